package cli

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/roach88/qrm/internal/ir"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <query.yaml>",
		Short: "Execute a query definition and print the entity tree",
		Long: `Execute a query definition against the configured database and print the
materialized roots.

The schema comes from --schema when given and is otherwise introspected
from the database.

Exit codes:
  0 - Query executed
  1 - Query failed to build or execute
  2 - Command error (no database, missing files, bad config)

Examples:
  qrm run --dsn ./places.db ./queries/address.yaml
  qrm run --driver pgx --dsn postgres://localhost/places ./queries/address.yaml --format json
  QRM_DSN=./places.db qrm run ./queries/address.yaml --format msgpack > out.mp`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context(), rootOpts, args[0], cmd)
		},
	}
}

func runQuery(ctx context.Context, opts *RootOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := opts.formatter(cmd)
	logger := opts.Logger()

	s, err := openSession(ctx, opts, f, true)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	q, err := s.buildQuery(ctx, path, f)
	if err != nil {
		return err
	}
	roots, err := q.All(ctx, nil)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeExecute, "query failed", err)
	}
	logger.Info("query executed", "query", path, "roots", len(roots))

	tree := make([]any, len(roots))
	for i, r := range roots {
		tree[i] = ir.ToNative(r)
	}

	text, err := json.MarshalIndent(roots, "", "  ")
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeWriteFailed, "failed to encode tree", err)
	}
	return f.Success(string(text), tree)
}
