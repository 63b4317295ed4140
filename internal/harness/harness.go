package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/qrm/internal/qrm"
	"github.com/roach88/qrm/internal/querydef"
	"github.com/roach88/qrm/internal/schema"
	"github.com/roach88/qrm/internal/store"
)

// Harness runs scenarios.
type Harness struct {
	logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger passed to the query manager.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// New creates a harness. Logs are discarded unless WithLogger is given.
func New(opts ...Option) *Harness {
	h := &Harness{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default harness.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	return New().Run(ctx, scenario)
}

// Run executes a scenario and evaluates its assertions.
//
// Execution flow:
//  1. Create a fresh SQLite database in a temporary directory
//  2. Run the fixture script
//  3. Load the schema and the query definition
//  4. Build, execute and materialize the query
//  5. Evaluate assertions against the tree and the SQL
//
// Errors in setup or execution are returned as errors. Failed assertions
// are reported through the result.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "qrm-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(ctx, string(store.SQLite3), filepath.Join(dir, "scenario.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch store: %w", err)
	}
	defer st.Close()

	fixture, err := os.ReadFile(scenario.Fixture)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	if err := st.ExecScript(ctx, string(fixture)); err != nil {
		return nil, fmt.Errorf("failed to run fixture: %w", err)
	}

	entities, err := schema.LoadFile(scenario.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	def, err := querydef.Load(scenario.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to load query: %w", err)
	}

	opts := []qrm.Option{
		qrm.WithConnection(st),
		qrm.WithDialect(st.Dialect()),
		qrm.WithLogger(h.logger),
	}
	if scenario.StrictParams {
		opts = append(opts, qrm.WithStrictParams())
	}
	q, err := def.Build(ctx, qrm.New(entities, opts...))
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	result := NewResult()
	stmt, err := q.Statement()
	if err != nil {
		return nil, fmt.Errorf("failed to compile query: %w", err)
	}
	result.SQL = stmt.RawSQL()
	if result.Hash, err = stmt.Hash(); err != nil {
		return nil, fmt.Errorf("failed to hash statement: %w", err)
	}

	tree, err := q.All(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	result.Tree = tree

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"roots", len(tree),
		"pass", result.Pass,
	)
	return result, nil
}
