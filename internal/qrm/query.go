package qrm

import (
	"context"
	"fmt"
	"slices"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/qrm/internal/graph"
	"github.com/roach88/qrm/internal/ir"
	"github.com/roach88/qrm/internal/materialize"
	"github.com/roach88/qrm/internal/querysql"
	"github.com/roach88/qrm/internal/store"
)

// JoinOption configures a join.
type JoinOption = graph.EdgeOption

// JoinType sets the join type of a relation. The default is left.
func JoinType(t graph.JoinType) JoinOption {
	return graph.WithJoinType(t)
}

// ExtraCondition appends fragment to the join's ON clause. The fragment
// refers to params as :name.
//
//	ExtraCondition("AND cm.mark >= :mark", map[string]any{"mark": 3})
func ExtraCondition(fragment string, params map[string]any) JoinOption {
	return graph.WithExtraCondition(fragment, params)
}

type modifier struct {
	alias string
	fn    materialize.Modifier
}

// Query is a query under construction.
//
// Builder methods return the same *Query. The first error a builder method
// hits is kept, later builder calls are ignored, and every terminal call
// (All, Statement, RawSQL) returns that error.
type Query struct {
	m         *Manager
	ctx       context.Context
	graph     *graph.JoinGraph
	filters   []querysql.Filter
	modifiers []modifier
	err       error
}

func newQuery(ctx context.Context, m *Manager) *Query {
	return &Query{
		m:     m,
		ctx:   ctx,
		graph: graph.New(),
	}
}

// table describes entity and builds its TableSpec.
func (q *Query) table(entity, alias, container string) (*graph.TableSpec, error) {
	e, err := q.m.schema.Describe(q.ctx, entity)
	if err != nil {
		return nil, fmt.Errorf("describe %q: %w", entity, err)
	}
	return graph.NewTableSpec(alias, e.Table, e.Fields, e.PrimaryKey, container)
}

// WithSingle joins entity as joinAs to the table aliased joinTo and attaches
// at most one instance under container. An unmatched relation is null.
func (q *Query) WithSingle(container, entity, joinAs, joinTo string, on graph.Condition, opts ...JoinOption) *Query {
	return q.with(graph.Single, container, entity, joinAs, joinTo, on, opts)
}

// WithMultiple joins entity as joinAs to the table aliased joinTo and attaches
// every instance as a list under container. An unmatched relation is [].
func (q *Query) WithMultiple(container, entity, joinAs, joinTo string, on graph.Condition, opts ...JoinOption) *Query {
	return q.with(graph.Multiple, container, entity, joinAs, joinTo, on, opts)
}

func (q *Query) with(kind graph.RelationKind, container, entity, joinAs, joinTo string, on graph.Condition, opts []JoinOption) *Query {
	if q.err != nil {
		return q
	}
	if container == "" {
		q.err = graph.NewError(graph.CodeInvalidEdge, joinAs, "join %q needs a container field", joinAs)
		return q
	}
	parent, err := q.graph.ByAlias(joinTo)
	if err != nil {
		q.err = err
		return q
	}
	t, err := q.table(entity, joinAs, container)
	if err != nil {
		q.err = err
		return q
	}
	e, err := graph.NewJoinEdge(kind, t, parent, on, opts...)
	if err != nil {
		q.err = err
		return q
	}
	if err := q.graph.AddEdge(e); err != nil {
		q.err = err
	}
	return q
}

// Filter registers a statement mutator. Filters run after all joins, in
// registration order.
func (q *Query) Filter(f querysql.Filter) *Query {
	if q.err == nil && f != nil {
		q.filters = append(q.filters, f)
	}
	return q
}

// Where is a shorthand for a Filter adding a WHERE predicate.
//
//	q.Where("c.name = ?", "Moscow")
//	q.Where(sq.Eq{"p.id": []int{1, 2}})
func (q *Query) Where(pred any, args ...any) *Query {
	return q.Filter(func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Where(pred, args...)
	})
}

// Modify registers fn to run once on every materialized node of alias.
func (q *Query) Modify(alias string, fn materialize.Modifier) *Query {
	if q.err != nil {
		return q
	}
	if _, err := q.graph.ByAlias(alias); err != nil {
		q.err = err
		return q
	}
	q.modifiers = append(q.modifiers, modifier{alias: alias, fn: fn})
	return q
}

// Err returns the first builder error, if any.
func (q *Query) Err() error {
	return q.err
}

// Graph exposes the join graph, e.g. to look up the root table.
func (q *Query) Graph() *graph.JoinGraph {
	return q.graph
}

// Statement compiles the query.
func (q *Query) Statement() (*querysql.Statement, error) {
	if q.err != nil {
		return nil, q.err
	}
	return q.m.compiler().Compile(q.graph, q.filters...)
}

// RawSQL compiles the query and renders it with arguments inlined as quoted
// literals. For logs and diagnostics only.
func (q *Query) RawSQL() (string, error) {
	stmt, err := q.Statement()
	if err != nil {
		return "", err
	}
	return stmt.RawSQL(), nil
}

// All compiles the query, runs it on conn (or the manager's connection when
// conn is nil) and returns the root entities in result order.
func (q *Query) All(ctx context.Context, conn store.Querier) ([]ir.IRObject, error) {
	stmt, err := q.Statement()
	if err != nil {
		return nil, err
	}
	if conn == nil {
		conn = q.m.conn
	}
	if conn == nil {
		return nil, graph.NewError(graph.CodeNoConnection, "", "no connection passed and none configured")
	}

	start := time.Now()
	rows, err := store.FetchRows(ctx, conn, stmt)
	if err != nil {
		return nil, err
	}
	if hash, err := stmt.Hash(); err == nil {
		q.m.logger.Debug("query executed",
			"hash", hash,
			"rows", len(rows),
			"elapsed", time.Since(start))
	}
	return q.materialize(rows)
}

// Materialize builds the entity tree from rows already fetched for this
// query's statement.
func (q *Query) Materialize(rows []ir.Row) ([]ir.IRObject, error) {
	if q.err != nil {
		return nil, q.err
	}
	return q.materialize(rows)
}

func (q *Query) materialize(rows []ir.Row) ([]ir.IRObject, error) {
	opts := []materialize.Option{materialize.WithLogger(q.m.logger)}
	for _, mod := range q.modifiers {
		opts = append(opts, materialize.WithModifier(mod.alias, mod.fn))
	}
	roots, err := materialize.New(q.graph, opts...).Materialize(rows)
	if err != nil {
		return nil, err
	}

	root, _ := q.graph.Root()
	q.m.logger.Debug("query materialized",
		"root", root.Alias(),
		"rows", len(rows),
		"entities", len(roots))
	return roots, nil
}

// Clone returns an independent copy of the query. Joins, filters and
// modifiers added to either copy afterwards do not affect the other.
func (q *Query) Clone() *Query {
	return &Query{
		m:         q.m,
		ctx:       q.ctx,
		graph:     q.graph.Clone(),
		filters:   slices.Clone(q.filters),
		modifiers: slices.Clone(q.modifiers),
		err:       q.err,
	}
}
