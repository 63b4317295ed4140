package materialize

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/qrm/internal/graph"
	"github.com/roach88/qrm/internal/ir"
)

type city struct {
	id   int64
	name string
}

type address struct {
	id     int64
	cityID int64
	name   string
}

type place struct {
	id        int64
	addressID int64
	name      string
}

type comment struct {
	id       int64
	placeID  int64
	username string
	mark     int64
	text     string
}

var (
	cities = []city{
		{1, "Moscow"},
		{2, "St. Petersburg"},
	}
	addresses = []address{
		{1, 1, "Tverskaya st., 7"},
		{2, 1, "Schipok st., 1"},
		{3, 2, "Mayakovskogo st., 12"},
		{4, 2, "Galernaya st., 3"},
	}
	places = []place{
		{1, 1, "Cafe Pushkin"},
		{2, 1, "Bookshop"},
		{3, 2, "Bakery"},
		{4, 3, "Gallery"},
		{5, 3, "Pizzeria"},
		{6, 4, "Theatre"},
	}
	comments = []comment{
		{1, 1, "ivan", 5, "Great"},
		{2, 1, "olga", 3, "Fine"},
		{3, 1, "petr", 2, "Slow service"},
		{4, 3, "anna", 5, "Fresh bread"},
		{5, 5, "max", 4, "Tasty"},
		{6, 6, "kate", 3, "Nice"},
	}

	wantComments = map[int64]int{1: 3, 2: 0, 3: 1, 4: 0, 5: 1, 6: 1}
)

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func mustTable(t testing.TB, alias, name string, fields []string, container string) *graph.TableSpec {
	t.Helper()
	ts, err := graph.NewTableSpec(alias, name, fields, []string{"id"}, container)
	require.NoError(t, err)
	return ts
}

func mustJoin(t testing.TB, g *graph.JoinGraph, kind graph.RelationKind, child *graph.TableSpec, parent string, on graph.Condition) {
	t.Helper()
	p, err := g.ByAlias(parent)
	require.NoError(t, err)
	e, err := graph.NewJoinEdge(kind, child, p, on)
	require.NoError(t, err)
	require.NoError(t, g.AddEdge(e))
}

// addressGraph: address(a) -single-> city(c), -multiple-> place(p) -multiple-> comment(cm).
func addressGraph(t testing.TB) *graph.JoinGraph {
	t.Helper()
	g := graph.New()
	g.AddRoot(mustTable(t, "a", "address", []string{"id", "city_id", "name"}, ""))
	mustJoin(t, g, graph.Single, mustTable(t, "c", "city", []string{"id", "name"}, "city"), "a", graph.On("id", "city_id"))
	mustJoin(t, g, graph.Multiple, mustTable(t, "p", "place", []string{"id", "address_id", "name"}, "places"), "a", graph.On("address_id", "id"))
	mustJoin(t, g, graph.Multiple, mustTable(t, "cm", "comment", []string{"id", "place_id", "username", "mark", "text"}, "comments"), "p", graph.On("place_id", "id"))
	return g
}

func nullable[T any](v *T, get func(*T) ir.IRValue) ir.IRValue {
	if v == nil {
		return ir.IRNull{}
	}
	return get(v)
}

func addressRow(a *address, c *city, p *place, cm *comment) ir.Row {
	var r ir.Row
	r.Set("a_id", nullable(a, func(a *address) ir.IRValue { return ir.IRInt(a.id) }))
	r.Set("a_city_id", nullable(a, func(a *address) ir.IRValue { return ir.IRInt(a.cityID) }))
	r.Set("a_name", nullable(a, func(a *address) ir.IRValue { return ir.IRString(a.name) }))
	r.Set("c_id", nullable(c, func(c *city) ir.IRValue { return ir.IRInt(c.id) }))
	r.Set("c_name", nullable(c, func(c *city) ir.IRValue { return ir.IRString(c.name) }))
	r.Set("p_id", nullable(p, func(p *place) ir.IRValue { return ir.IRInt(p.id) }))
	r.Set("p_address_id", nullable(p, func(p *place) ir.IRValue { return ir.IRInt(p.addressID) }))
	r.Set("p_name", nullable(p, func(p *place) ir.IRValue { return ir.IRString(p.name) }))
	r.Set("cm_id", nullable(cm, func(c *comment) ir.IRValue { return ir.IRInt(c.id) }))
	r.Set("cm_place_id", nullable(cm, func(c *comment) ir.IRValue { return ir.IRInt(c.placeID) }))
	r.Set("cm_username", nullable(cm, func(c *comment) ir.IRValue { return ir.IRString(c.username) }))
	r.Set("cm_mark", nullable(cm, func(c *comment) ir.IRValue { return ir.IRInt(c.mark) }))
	r.Set("cm_text", nullable(cm, func(c *comment) ir.IRValue { return ir.IRString(c.text) }))
	return r
}

// leftJoinRows produces the rows a database returns for
// address LEFT JOIN city LEFT JOIN place LEFT JOIN comment.
func leftJoinRows(addrs []address, cs []city, ps []place, cms []comment) []ir.Row {
	var rows []ir.Row
	for i := range addrs {
		a := &addrs[i]
		var c *city
		for j := range cs {
			if cs[j].id == a.cityID {
				c = &cs[j]
			}
		}

		var matched []*place
		for j := range ps {
			if ps[j].addressID == a.id {
				matched = append(matched, &ps[j])
			}
		}
		if len(matched) == 0 {
			rows = append(rows, addressRow(a, c, nil, nil))
			continue
		}

		for _, p := range matched {
			n := 0
			for k := range cms {
				if cms[k].placeID == p.id {
					rows = append(rows, addressRow(a, c, p, &cms[k]))
					n++
				}
			}
			if n == 0 {
				rows = append(rows, addressRow(a, c, p, nil))
			}
		}
	}
	return rows
}
