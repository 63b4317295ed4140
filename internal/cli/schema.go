package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/qrm/internal/schema"
)

// EntityInfo describes one entity in command output.
type EntityInfo struct {
	Name       string   `json:"name" msgpack:"name"`
	Table      string   `json:"table" msgpack:"table"`
	Fields     []string `json:"fields" msgpack:"fields"`
	PrimaryKey []string `json:"primary_key" msgpack:"primary_key"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema [entity...]",
		Short: "Describe entities",
		Long: `Describe entities from the schema file or, without one, by introspecting
the database. With no arguments every entity of the schema file is listed;
introspection needs explicit entity names.

Examples:
  qrm schema --schema ./schema.yaml
  qrm schema --dsn ./places.db address place comment
  qrm schema --driver mysql --dsn 'user:pw@/places' address --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(cmd.Context(), rootOpts, args, cmd)
		},
	}
}

func runSchema(ctx context.Context, opts *RootOptions, names []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := opts.formatter(cmd)

	s, err := openSession(ctx, opts, f, false)
	if err != nil {
		return err
	}
	defer s.Close()

	switch in := s.schema.(type) {
	case *schema.Static:
		if len(names) == 0 {
			names = in.Names()
		}
	case *schema.Cached:
		if len(names) == 0 {
			return f.Fail(ExitCommandError, ErrCodeConfig, "entity names are required when introspecting a database", nil)
		}
		if err := in.Preload(ctx, names...); err != nil {
			return f.Fail(ExitFailure, ErrCodeSchemaLoad, "failed to describe entities", err)
		}
	}

	infos := make([]EntityInfo, 0, len(names))
	var text strings.Builder
	for i, name := range names {
		e, err := s.schema.Describe(ctx, name)
		if err != nil {
			return f.Fail(ExitFailure, ErrCodeSchemaLoad, fmt.Sprintf("failed to describe %q", name), err)
		}
		infos = append(infos, EntityInfo{Name: e.Name, Table: e.Table, Fields: e.Fields, PrimaryKey: e.PrimaryKey})

		if i > 0 {
			text.WriteString("\n")
		}
		fmt.Fprintf(&text, "%s (table %s)\n", e.Name, e.Table)
		fmt.Fprintf(&text, "  fields:      %s\n", strings.Join(e.Fields, ", "))
		fmt.Fprintf(&text, "  primary key: %s", strings.Join(e.PrimaryKey, ", "))
	}
	return f.Success(text.String(), infos)
}
