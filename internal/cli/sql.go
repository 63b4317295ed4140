package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/qrm/internal/ir"
)

// SQLResult is the output of the sql command.
type SQLResult struct {
	SQL     string   `json:"sql" msgpack:"sql"`
	Args    []any    `json:"args" msgpack:"args"`
	RawSQL  string   `json:"raw_sql" msgpack:"raw_sql"`
	Hash    string   `json:"hash" msgpack:"hash"`
	Columns []string `json:"columns" msgpack:"columns"`
}

// NewSQLCommand creates the sql command.
func NewSQLCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sql <query.yaml>",
		Short: "Print the SQL of a query definition",
		Long: `Build a query definition and print the SELECT statement it compiles to,
with the dialect's placeholders, the bound arguments, and a diagnostic
rendering with the arguments inlined. The diagnostic form is for reading
only and must not be executed.

Exit codes:
  0 - Statement built
  1 - The query definition does not build (unknown alias, bad join, ...)
  2 - Command error (missing files, bad config)

Examples:
  qrm sql --schema ./schema.yaml ./queries/address.yaml
  qrm sql --schema ./schema.cue --driver postgres ./queries/address.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSQL(cmd.Context(), rootOpts, args[0], cmd)
		},
	}
}

func runSQL(ctx context.Context, opts *RootOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := opts.formatter(cmd)

	s, err := openSession(ctx, opts, f, false)
	if err != nil {
		return err
	}
	defer s.Close()

	q, err := s.buildQuery(ctx, path, f)
	if err != nil {
		return err
	}
	stmt, err := q.Statement()
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeBuildFailed, "failed to compile query", err)
	}
	query, args, err := stmt.ToSql()
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeBuildFailed, "failed to render query", err)
	}
	hash, err := stmt.Hash()
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeBuildFailed, "failed to hash query", err)
	}

	result := SQLResult{
		SQL:     query,
		Args:    plainArgs(args),
		RawSQL:  stmt.RawSQL(),
		Hash:    hash,
		Columns: stmt.Columns(),
	}

	var text strings.Builder
	fmt.Fprintf(&text, "SQL:  %s\n", result.SQL)
	fmt.Fprintf(&text, "Args: %v\n", result.Args)
	fmt.Fprintf(&text, "Raw:  %s\n", result.RawSQL)
	fmt.Fprintf(&text, "Hash: %s", result.Hash)
	return f.Success(text.String(), result)
}

// plainArgs turns bound arguments into values every encoder understands.
func plainArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if v, err := ir.FromGo(a); err == nil {
			out[i] = ir.ToNative(v)
		} else {
			out[i] = fmt.Sprint(a)
		}
	}
	return out
}
