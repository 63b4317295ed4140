// Package materialize rebuilds a nested entity tree from the flat rows of a
// compiled join query.
package materialize

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/qrm/internal/graph"
	"github.com/roach88/qrm/internal/ir"
)

// KeySeparator joins the parts of a composite key.
const KeySeparator = "\x1f"

// Modifier post-processes one materialized node in place. It runs once per
// distinct node of its alias after every row has been consumed.
type Modifier func(node ir.IRObject)

// Materializer turns flat rows into root entities.
type Materializer struct {
	graph     *graph.JoinGraph
	modifiers []aliasModifier
	logger    *slog.Logger
}

type aliasModifier struct {
	alias string
	fn    Modifier
}

// Option configures a Materializer.
type Option func(*Materializer)

// WithModifier registers fn for every node of alias. Modifiers run in
// registration order, each one over all nodes of its alias before the next
// starts, so a modifier may read fields set by an earlier one on child nodes.
// Registering a second modifier for an alias adds to the first.
func WithModifier(alias string, fn Modifier) Option {
	return func(m *Materializer) {
		if fn != nil {
			m.modifiers = append(m.modifiers, aliasModifier{alias: alias, fn: fn})
		}
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Materializer) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates a Materializer for g.
func New(g *graph.JoinGraph, opts ...Option) *Materializer {
	m := &Materializer{
		graph:  g,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// nodeSet holds the nodes of one alias keyed by composite key, in first-seen order.
type nodeSet struct {
	keys  []string
	nodes map[string]ir.IRObject
}

func (s *nodeSet) get(key string) (ir.IRObject, bool) {
	n, ok := s.nodes[key]
	return n, ok
}

func (s *nodeSet) put(key string, node ir.IRObject) {
	s.keys = append(s.keys, key)
	s.nodes[key] = node
}

// linkKey identifies one attachment of a child node to a parent node.
type linkKey struct {
	parentAlias string
	parentKey   string
	container   string
	childKey    string
}

// run is the state of one Materialize call.
type run struct {
	nodes  map[string]*nodeSet
	linked map[linkKey]struct{}
}

// Materialize consumes rows and returns the root entities in first-seen order.
//
// For each row, every table whose primary key columns are not all null gets a
// node keyed by its pk field chain. A node seen for the first time has its
// container fields seeded ([] for Multiple, null for Single) and is kept; later
// rows with the same key reuse it. Each node is then attached to its parent
// node at most once.
//
// On error no result is returned.
func (m *Materializer) Materialize(rows []ir.Row) ([]ir.IRObject, error) {
	if err := m.graph.Prepare(); err != nil {
		return nil, err
	}
	root, err := m.graph.Root()
	if err != nil {
		return nil, err
	}
	for _, mod := range m.modifiers {
		if _, err := m.graph.ByAlias(mod.alias); err != nil {
			return nil, err
		}
	}

	tables := m.graph.Tables()
	st := &run{
		nodes:  make(map[string]*nodeSet, len(tables)),
		linked: make(map[linkKey]struct{}),
	}
	for _, t := range tables {
		st.nodes[t.Alias()] = &nodeSet{nodes: make(map[string]ir.IRObject)}
	}

	for i, row := range rows {
		for _, t := range tables {
			if err := m.visit(st, t, row); err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
		}
	}

	for _, mod := range m.modifiers {
		set := st.nodes[mod.alias]
		for _, key := range set.keys {
			mod.fn(set.nodes[key])
		}
	}

	rootSet := st.nodes[root.Alias()]
	out := make([]ir.IRObject, len(rootSet.keys))
	for i, key := range rootSet.keys {
		out[i] = rootSet.nodes[key]
	}

	m.logger.Debug("rows materialized",
		"rows", len(rows),
		"roots", len(out),
		"links", len(st.linked))
	return out, nil
}

func (m *Materializer) visit(st *run, t *graph.TableSpec, row ir.Row) error {
	present, err := isPresent(t, row)
	if err != nil {
		return err
	}
	if !present {
		return nil
	}

	key, err := chainKey(t, row)
	if err != nil {
		return err
	}

	set := st.nodes[t.Alias()]
	node, ok := set.get(key)
	if !ok {
		node = m.fragment(t, row)
		set.put(key, node)
	}

	if !m.graph.HasEdgeFor(t.Alias()) {
		return nil
	}
	edge, err := m.graph.EdgeFor(t.Alias())
	if err != nil {
		return err
	}
	return m.link(st, edge, row, key, node)
}

// fragment builds a fresh node from the row's columns of t and seeds the
// container field of every relation t is the parent of.
func (m *Materializer) fragment(t *graph.TableSpec, row ir.Row) ir.IRObject {
	node := make(ir.IRObject, len(t.Fields()))
	for _, f := range t.Fields() {
		v, ok := row.Get(t.FlatColumn(f))
		if !ok {
			v = ir.IRNull{}
		}
		node[f] = v
	}
	for _, e := range m.graph.EdgesInto(t.Alias()) {
		switch e.Kind {
		case graph.Multiple:
			node[e.Table.ContainerField()] = ir.IRArray{}
		default:
			node[e.Table.ContainerField()] = ir.IRNull{}
		}
	}
	return node
}

func (m *Materializer) link(st *run, e *graph.JoinEdge, row ir.Row, key string, node ir.IRObject) error {
	parentKey, err := chainKey(e.JoinTo, row)
	if err != nil {
		return err
	}
	parent, ok := st.nodes[e.JoinTo.Alias()].get(parentKey)
	if !ok {
		// Right joins can yield a child without its parent row.
		m.logger.Debug("child without parent",
			"alias", e.Table.Alias(),
			"parent", e.JoinTo.Alias())
		return nil
	}

	lk := linkKey{
		parentAlias: e.JoinTo.Alias(),
		parentKey:   parentKey,
		container:   e.Table.ContainerField(),
		childKey:    key,
	}
	if _, done := st.linked[lk]; done {
		return nil
	}

	switch e.Kind {
	case graph.Single:
		parent[lk.container] = node
	case graph.Multiple:
		list, _ := parent[lk.container].(ir.IRArray)
		parent[lk.container] = append(list, node)
	default:
		return graph.NewError(graph.CodeUnknownConditionType, e.Table.Alias(), "unknown relation kind %s", e.Kind)
	}
	st.linked[lk] = struct{}{}
	return nil
}

// isPresent reports whether any primary key column of t is non-null in row.
func isPresent(t *graph.TableSpec, row ir.Row) (bool, error) {
	present := false
	for _, col := range t.PrimaryKeyColumns() {
		v, ok := row.Get(col)
		if !ok {
			return false, graph.NewError(graph.CodePKValueMissing, t.Alias(), "row has no column %q", col)
		}
		if !ir.IsNull(v) {
			present = true
		}
	}
	return present, nil
}

// chainKey computes the composite key of t's node in row from t's pk field chain.
func chainKey(t *graph.TableSpec, row ir.Row) (string, error) {
	chain := t.PKFieldChain()
	vals := make([]ir.IRValue, len(chain))
	for i, col := range chain {
		v, ok := row.Get(col)
		if !ok {
			return "", graph.NewError(graph.CodePKValueMissing, t.Alias(), "row has no column %q", col)
		}
		vals[i] = v
	}
	return CompositeKey(vals...), nil
}

// CompositeKey joins the key parts of values with KeySeparator.
func CompositeKey(values ...ir.IRValue) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = ir.KeyPart(v)
	}
	return strings.Join(parts, KeySeparator)
}
