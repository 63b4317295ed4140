package querysql

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qrm/internal/graph"
	"github.com/roach88/qrm/internal/ir"
)

func quietCompiler(opts ...Option) *Compiler {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewCompiler(opts...)
}

func table(t *testing.T, alias, name string, fields []string, container string) *graph.TableSpec {
	t.Helper()
	ts, err := graph.NewTableSpec(alias, name, fields, []string{"id"}, container)
	require.NoError(t, err)
	return ts
}

func join(t *testing.T, g *graph.JoinGraph, kind graph.RelationKind, child *graph.TableSpec, parent string, on graph.Condition, opts ...graph.EdgeOption) {
	t.Helper()
	p, err := g.ByAlias(parent)
	require.NoError(t, err)
	e, err := graph.NewJoinEdge(kind, child, p, on, opts...)
	require.NoError(t, err)
	require.NoError(t, g.AddEdge(e))
}

func placeGraph(t *testing.T) *graph.JoinGraph {
	t.Helper()
	g := graph.New()
	g.AddRoot(table(t, "p", "place", []string{"id", "name"}, ""))
	return g
}

func addressGraph(t *testing.T) *graph.JoinGraph {
	t.Helper()
	g := graph.New()
	g.AddRoot(table(t, "a", "address", []string{"id", "city_id", "name"}, ""))
	join(t, g, graph.Single, table(t, "c", "city", []string{"id", "name"}, "city"), "a", graph.On("id", "city_id"))
	join(t, g, graph.Multiple, table(t, "p", "place", []string{"id", "address_id", "name"}, "places"), "a", graph.On("address_id", "id"))
	join(t, g, graph.Multiple, table(t, "cm", "comment", []string{"id", "place_id", "username", "mark", "text"}, "comments"), "p",
		graph.On("place_id", "id"),
		graph.WithJoinType(graph.JoinInner),
		graph.WithExtraCondition("AND cm.mark >= :mark", map[string]any{"mark": 3}))
	return g
}

const addressSQL = "SELECT a.id AS a_id, a.city_id AS a_city_id, a.name AS a_name, " +
	"c.id AS c_id, c.name AS c_name, " +
	"p.id AS p_id, p.address_id AS p_address_id, p.name AS p_name, " +
	"cm.id AS cm_id, cm.place_id AS cm_place_id, cm.username AS cm_username, cm.mark AS cm_mark, cm.text AS cm_text " +
	"FROM address a " +
	"LEFT JOIN city c ON c.id = a.city_id " +
	"LEFT JOIN place p ON p.address_id = a.id " +
	"INNER JOIN comment cm ON cm.place_id = p.id AND cm.mark >= ?"

func TestCompile_RootOnly(t *testing.T) {
	c := quietCompiler()

	stmt, err := c.Compile(placeGraph(t))
	require.NoError(t, err)

	query, args, err := stmt.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT p.id AS p_id, p.name AS p_name FROM place p", query)
	assert.Empty(t, args)
	assert.Equal(t, []string{"p_id", "p_name"}, stmt.Columns())

	again, err := c.Compile(placeGraph(t))
	require.NoError(t, err)
	query2, _, err := again.ToSql()
	require.NoError(t, err)
	assert.Equal(t, query, query2, "compilation is deterministic")
}

func TestCompile_Joins(t *testing.T) {
	stmt, err := quietCompiler().Compile(addressGraph(t))
	require.NoError(t, err)

	query, args, err := stmt.ToSql()
	require.NoError(t, err)
	assert.Equal(t, addressSQL, query)
	assert.Equal(t, []any{int64(3)}, args)

	require.Len(t, stmt.Params(), 1)
	assert.Equal(t, graph.Param{Name: "mark", Value: ir.IRInt(3)}, stmt.Params()[0])
}

func TestCompile_NoRoot(t *testing.T) {
	_, err := quietCompiler().Compile(graph.New())
	assert.ErrorIs(t, err, graph.ErrNoRootTable)
}

func TestCompile_FiltersRunInOrder(t *testing.T) {
	var calls []string
	first := func(b sq.SelectBuilder) sq.SelectBuilder {
		calls = append(calls, "first")
		return b.Where("a.id IN (?,?)", 1, 2)
	}
	second := func(b sq.SelectBuilder) sq.SelectBuilder {
		calls = append(calls, "second")
		return b.OrderBy("a.id", "p.id").Limit(10)
	}

	stmt, err := quietCompiler().Compile(addressGraph(t), first, nil, second)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, calls)

	query, args, err := stmt.ToSql()
	require.NoError(t, err)
	assert.Equal(t, addressSQL+" WHERE a.id IN (?,?) ORDER BY a.id, p.id LIMIT 10", query)
	assert.Equal(t, []any{int64(3), 1, 2}, args)
}

func TestCompile_DollarPlaceholders(t *testing.T) {
	where := func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Where(sq.Eq{"c.name": "Moscow"})
	}

	stmt, err := quietCompiler(WithPlaceholder(sq.Dollar)).Compile(addressGraph(t), where)
	require.NoError(t, err)

	query, args, err := stmt.ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "AND cm.mark >= $1 WHERE c.name = $2")
	assert.Equal(t, []any{int64(3), "Moscow"}, args)
}

func TestCompile_DuplicateParams(t *testing.T) {
	build := func(t *testing.T, second any) *graph.JoinGraph {
		g := graph.New()
		g.AddRoot(table(t, "a", "address", []string{"id", "lang"}, ""))
		join(t, g, graph.Multiple, table(t, "p", "place", []string{"id", "address_id", "lang"}, "places"), "a",
			graph.On("address_id", "id"),
			graph.WithExtraCondition("AND p.lang = :lang", map[string]any{"lang": "en"}))
		join(t, g, graph.Multiple, table(t, "n", "note", []string{"id", "address_id", "lang"}, "notes"), "a",
			graph.On("address_id", "id"),
			graph.WithExtraCondition("AND n.lang = :lang", map[string]any{"lang": second}))
		return g
	}

	t.Run("last write wins", func(t *testing.T) {
		var logs bytes.Buffer
		c := NewCompiler(WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

		stmt, err := c.Compile(build(t, "ru"))
		require.NoError(t, err)

		_, args, err := stmt.ToSql()
		require.NoError(t, err)
		assert.Equal(t, []any{"ru", "ru"}, args)
		assert.Contains(t, logs.String(), "join parameter overwritten")
		assert.Contains(t, logs.String(), "param=lang")
	})

	t.Run("same value is not a collision", func(t *testing.T) {
		_, err := quietCompiler(WithStrictParams()).Compile(build(t, "en"))
		require.NoError(t, err)
	})

	t.Run("strict", func(t *testing.T) {
		_, err := quietCompiler(WithStrictParams()).Compile(build(t, "ru"))
		require.Error(t, err)
		assert.ErrorIs(t, err, graph.ErrDuplicateParameter)
	})
}

func TestBindNamed(t *testing.T) {
	params := &paramSet{values: map[string]ir.IRValue{
		"mark": ir.IRInt(3),
		"name": ir.IRString("x"),
		"obj":  ir.IRObject{},
	}}

	tests := []struct {
		name     string
		in       string
		want     string
		wantArgs []any
		wantErr  error
	}{
		{"no params", "p.id = a.id", "p.id = a.id", nil, nil},
		{"one param", "p.mark > :mark", "p.mark > ?", []any{int64(3)}, nil},
		{"repeated", ":mark < :mark", "? < ?", []any{int64(3), int64(3)}, nil},
		{"cast untouched", "p.name::text = :name", "p.name::text = ?", []any{"x"}, nil},
		{"quoted untouched", "p.name <> ':name' AND p.mark = :mark", "p.name <> ':name' AND p.mark = ?", []any{int64(3)}, nil},
		{"bare colon", "p.t = '12:30' OR :name = ':'", "p.t = '12:30' OR ? = ':'", []any{"x"}, nil},
		{"unbound", "p.x = :missing", "", nil, graph.ErrUnboundParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, args, err := bindNamed(tt.in, params)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantArgs, args)
		})
	}

	_, _, err := bindNamed("p.x = :obj", params)
	assert.Error(t, err, "objects are not parameters")
}

func TestStatement_RawSQL(t *testing.T) {
	where := func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Where("c.name = ?", "Moscow")
	}
	stmt, err := quietCompiler(WithPlaceholder(sq.Dollar)).Compile(addressGraph(t), where)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "address_raw_sql", []byte(stmt.RawSQL()+"\n"))
}

func TestStatement_RawSQLEscapesQuotes(t *testing.T) {
	where := func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Where("p.name = ?", "Joe's")
	}
	stmt, err := quietCompiler().Compile(placeGraph(t), where)
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT p.id AS p_id, p.name AS p_name FROM place p WHERE p.name = 'Joe''s'",
		stmt.RawSQL())

	_, args, err := stmt.ToSql()
	require.NoError(t, err)
	assert.Equal(t, []any{"Joe's"}, args, "bound arguments stay unescaped")
}

func TestStatement_Hash(t *testing.T) {
	a, err := quietCompiler().Compile(addressGraph(t))
	require.NoError(t, err)
	b, err := quietCompiler().Compile(addressGraph(t))
	require.NoError(t, err)

	ha, err := a.Hash()
	require.NoError(t, err)
	hb, err := b.Hash()
	require.NoError(t, err)
	assert.Equal(t, ha, hb)

	c, err := quietCompiler().Compile(placeGraph(t))
	require.NoError(t, err)
	hc, err := c.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, ha, hc)
}
