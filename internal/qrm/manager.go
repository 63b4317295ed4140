// Package qrm is the query builder: select a root entity, join related
// entities as single or multiple relations, and read the result back as a
// tree of entities.
//
//	q := m.Select(ctx, "address", "a").
//		WithSingle("city", "city", "c", "a", graph.On("id", "city_id")).
//		WithMultiple("places", "place", "p", "a", graph.On("address_id", "id")).
//		WithMultiple("comments", "comment", "cm", "p", graph.On("place_id", "id"))
//	addresses, err := q.All(ctx, nil)
package qrm

import (
	"context"
	"log/slog"

	"github.com/roach88/qrm/internal/querysql"
	"github.com/roach88/qrm/internal/schema"
	"github.com/roach88/qrm/internal/store"
)

// Manager creates queries. It holds the schema source, an optional default
// connection and the SQL dialect.
type Manager struct {
	schema  schema.Introspector
	conn    store.Querier
	dialect store.Dialect
	strict  bool
	logger  *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithConnection sets the connection used by All when none is passed.
func WithConnection(q store.Querier) Option {
	return func(m *Manager) {
		m.conn = q
	}
}

// WithDialect sets the SQL dialect. The default is store.SQLite3.
func WithDialect(d store.Dialect) Option {
	return func(m *Manager) {
		m.dialect = d
	}
}

// WithStrictParams rejects join parameters bound to different values by two
// joins of the same query.
func WithStrictParams() Option {
	return func(m *Manager) {
		m.strict = true
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates a Manager that resolves entities through in.
func New(in schema.Introspector, opts ...Option) *Manager {
	m := &Manager{
		schema:  in,
		dialect: store.SQLite3,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Schema returns the manager's introspector.
func (m *Manager) Schema() schema.Introspector {
	return m.schema
}

// Dialect returns the manager's dialect.
func (m *Manager) Dialect() store.Dialect {
	return m.dialect
}

// compiler returns a compiler configured for the manager's dialect.
func (m *Manager) compiler() *querysql.Compiler {
	opts := []querysql.Option{
		querysql.WithPlaceholder(m.dialect.Placeholder()),
		querysql.WithLogger(m.logger),
	}
	if m.strict {
		opts = append(opts, querysql.WithStrictParams())
	}
	return querysql.NewCompiler(opts...)
}

// Select starts a query whose root is entity, aliased as alias.
//
// ctx is used for the schema lookups made while the query is built; it is
// not used by All, which takes its own context.
func (m *Manager) Select(ctx context.Context, entity, alias string) *Query {
	q := newQuery(ctx, m)
	t, err := q.table(entity, alias, "")
	if err != nil {
		q.err = err
		return q
	}
	q.graph.AddRoot(t)
	return q
}
