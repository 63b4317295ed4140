package graph

import "slices"

// JoinGraph is the tree of tables a query reads: a root table plus one
// inbound JoinEdge per joined table.
//
// Tables and edges are kept in insertion order. That order fixes the select
// list and the order of join clauses.
type JoinGraph struct {
	root   *TableSpec
	tables map[string]*TableSpec
	order  []string

	// joined alias -> inbound edge
	edges map[string]*JoinEdge

	// parent alias -> outbound edges, in insertion order
	children map[string][]*JoinEdge
}

// New creates an empty JoinGraph.
func New() *JoinGraph {
	return &JoinGraph{
		tables:   make(map[string]*TableSpec),
		edges:    make(map[string]*JoinEdge),
		children: make(map[string][]*JoinEdge),
	}
}

// AddRoot registers the root table. It is a no-op if a root already exists.
func (g *JoinGraph) AddRoot(t *TableSpec) {
	if g.root != nil || t == nil {
		return
	}
	g.root = t
	g.tables[t.Alias()] = t
	g.order = append(g.order, t.Alias())
}

// AddEdge registers a joined table and its inbound edge.
//
// It fails with DUPLICATE_ALIAS when the joined alias is taken and with
// UNKNOWN_ALIAS when the parent alias is not registered. A failed call leaves
// the graph unchanged.
func (g *JoinGraph) AddEdge(e *JoinEdge) error {
	if g.root == nil {
		return NewError(CodeNoRootTable, e.Table.Alias(), "cannot join %q before a root table is set", e.Table.Alias())
	}
	alias := e.Table.Alias()
	if _, exists := g.tables[alias]; exists {
		return NewError(CodeDuplicateAlias, alias, "alias %q is already used", alias)
	}
	parent, ok := g.tables[e.JoinTo.Alias()]
	if !ok {
		return NewError(CodeUnknownAlias, e.JoinTo.Alias(), "join target %q is not a table of this query", e.JoinTo.Alias())
	}
	// Edges always point at the registered instance so clones stay consistent.
	e.JoinTo = parent

	g.tables[alias] = e.Table
	g.order = append(g.order, alias)
	g.edges[alias] = e
	g.children[parent.Alias()] = append(g.children[parent.Alias()], e)
	return nil
}

// Root returns the root table.
func (g *JoinGraph) Root() (*TableSpec, error) {
	if g.root == nil {
		return nil, NewError(CodeNoRootTable, "", "query has no root table")
	}
	return g.root, nil
}

// ByAlias returns the table registered under alias.
func (g *JoinGraph) ByAlias(alias string) (*TableSpec, error) {
	t, ok := g.tables[alias]
	if !ok {
		return nil, NewError(CodeUnknownAlias, alias, "unknown alias %q", alias)
	}
	return t, nil
}

// EdgeFor returns the inbound edge of alias. Only the root has none.
func (g *JoinGraph) EdgeFor(alias string) (*JoinEdge, error) {
	e, ok := g.edges[alias]
	if !ok {
		return nil, NewError(CodeUnknownAlias, alias, "no join edge for alias %q", alias)
	}
	return e, nil
}

// HasEdgeFor reports whether alias has an inbound edge.
func (g *JoinGraph) HasEdgeFor(alias string) bool {
	_, ok := g.edges[alias]
	return ok
}

// EdgesInto returns the edges whose parent is alias, in insertion order.
func (g *JoinGraph) EdgesInto(alias string) []*JoinEdge {
	return slices.Clone(g.children[alias])
}

// AliasChain returns the aliases from the root down to alias, inclusive.
func (g *JoinGraph) AliasChain(alias string) ([]string, error) {
	if _, ok := g.tables[alias]; !ok {
		return nil, NewError(CodeUnknownAlias, alias, "unknown alias %q", alias)
	}
	var chain []string
	for cur := alias; ; {
		chain = append(chain, cur)
		e, ok := g.edges[cur]
		if !ok {
			break
		}
		cur = e.JoinTo.Alias()
	}
	slices.Reverse(chain)
	return chain, nil
}

// PKFieldChain returns the primary key flat columns of every table on the
// alias chain of alias, root first.
func (g *JoinGraph) PKFieldChain(alias string) ([]string, error) {
	chain, err := g.AliasChain(alias)
	if err != nil {
		return nil, err
	}
	var cols []string
	for _, a := range chain {
		cols = append(cols, g.tables[a].PrimaryKeyColumns()...)
	}
	return cols, nil
}

// Prepare stores the pk field chain on every table. It is idempotent.
func (g *JoinGraph) Prepare() error {
	if g.root == nil {
		return NewError(CodeNoRootTable, "", "query has no root table")
	}
	for _, alias := range g.order {
		chain, err := g.PKFieldChain(alias)
		if err != nil {
			return err
		}
		g.tables[alias].setPKFieldChain(chain)
	}
	return nil
}

// Tables returns every table, root first, in insertion order.
func (g *JoinGraph) Tables() []*TableSpec {
	out := make([]*TableSpec, len(g.order))
	for i, alias := range g.order {
		out[i] = g.tables[alias]
	}
	return out
}

// Edges returns every edge in insertion order.
func (g *JoinGraph) Edges() []*JoinEdge {
	out := make([]*JoinEdge, 0, len(g.edges))
	for _, alias := range g.order {
		if e, ok := g.edges[alias]; ok {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of tables.
func (g *JoinGraph) Len() int { return len(g.order) }

// Clone returns a deep copy. Mutating either graph afterwards does not
// affect the other.
func (g *JoinGraph) Clone() *JoinGraph {
	c := New()
	c.order = slices.Clone(g.order)
	for alias, t := range g.tables {
		c.tables[alias] = t.clone()
	}
	if g.root != nil {
		c.root = c.tables[g.root.Alias()]
	}
	for alias, e := range g.edges {
		ce := *e
		ce.Table = c.tables[alias]
		ce.JoinTo = c.tables[e.JoinTo.Alias()]
		ce.On = slices.Clone(e.On)
		ce.ExtraParams = slices.Clone(e.ExtraParams)
		c.edges[alias] = &ce
	}
	for _, alias := range c.order {
		if e, ok := c.edges[alias]; ok {
			parent := e.JoinTo.Alias()
			c.children[parent] = append(c.children[parent], e)
		}
	}
	return c
}
