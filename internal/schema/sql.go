package schema

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/qrm/internal/ir"
	"github.com/roach88/qrm/internal/store"
)

// ForDialect returns the database introspector for a dialect.
// Entity names are table names.
func ForDialect(d store.Dialect, q store.Querier) (Introspector, error) {
	switch {
	case d.IsSQLite():
		return &SQLite{q: q}, nil
	case d == store.MySQL:
		return &MySQL{q: q}, nil
	case d.IsPostgres():
		return &Postgres{q: q}, nil
	default:
		return nil, fmt.Errorf("no introspector for dialect %q", d)
	}
}

// SQLite reads table shapes with PRAGMA table_info.
type SQLite struct {
	q store.Querier
}

// NewSQLite creates a SQLite introspector.
func NewSQLite(q store.Querier) *SQLite { return &SQLite{q: q} }

// Describe implements Introspector.
func (s *SQLite) Describe(ctx context.Context, name string) (Entity, error) {
	rows, err := store.FetchRows(ctx, s.q, sq.Expr("PRAGMA table_info("+quoteIdent(name, '"')+")"))
	if err != nil {
		return Entity{}, fmt.Errorf("describe %q: %w", name, err)
	}
	if len(rows) == 0 {
		return Entity{}, fmt.Errorf("%w: %s", ErrEntityNotFound, name)
	}

	type pkCol struct {
		pos  int64
		name string
	}
	e := Entity{Name: name, Table: name}
	var pks []pkCol
	for _, row := range rows {
		col := stringCol(row, "name")
		e.Fields = append(e.Fields, col)
		if pos, ok := intCol(row, "pk"); ok && pos > 0 {
			pks = append(pks, pkCol{pos: pos, name: col})
		}
	}
	slices.SortFunc(pks, func(a, b pkCol) int { return cmp.Compare(a.pos, b.pos) })
	for _, pk := range pks {
		e.PrimaryKey = append(e.PrimaryKey, pk.name)
	}
	return e, nil
}

// MySQL reads table shapes with SHOW COLUMNS. Primary key columns are the
// ones whose Key is PRI, in column order.
type MySQL struct {
	q store.Querier
}

// NewMySQL creates a MySQL introspector.
func NewMySQL(q store.Querier) *MySQL { return &MySQL{q: q} }

// Describe implements Introspector.
func (m *MySQL) Describe(ctx context.Context, name string) (Entity, error) {
	rows, err := store.FetchRows(ctx, m.q, sq.Expr("SHOW COLUMNS FROM "+quoteIdent(name, '`')))
	if err != nil {
		return Entity{}, fmt.Errorf("describe %q: %w", name, err)
	}
	if len(rows) == 0 {
		return Entity{}, fmt.Errorf("%w: %s", ErrEntityNotFound, name)
	}

	e := Entity{Name: name, Table: name}
	for _, row := range rows {
		col := stringCol(row, "Field")
		e.Fields = append(e.Fields, col)
		if stringCol(row, "Key") == "PRI" {
			e.PrimaryKey = append(e.PrimaryKey, col)
		}
	}
	return e, nil
}

// Postgres reads table shapes from information_schema in the current schema.
type Postgres struct {
	q store.Querier
}

// NewPostgres creates a PostgreSQL introspector.
func NewPostgres(q store.Querier) *Postgres { return &Postgres{q: q} }

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Describe implements Introspector.
func (p *Postgres) Describe(ctx context.Context, name string) (Entity, error) {
	cols := psql.Select("column_name").
		From("information_schema.columns").
		Where("table_schema = current_schema()").
		Where(sq.Eq{"table_name": name}).
		OrderBy("ordinal_position")

	rows, err := store.FetchRows(ctx, p.q, cols)
	if err != nil {
		return Entity{}, fmt.Errorf("describe %q: %w", name, err)
	}
	if len(rows) == 0 {
		return Entity{}, fmt.Errorf("%w: %s", ErrEntityNotFound, name)
	}
	e := Entity{Name: name, Table: name}
	for _, row := range rows {
		e.Fields = append(e.Fields, stringCol(row, "column_name"))
	}

	pk := psql.Select("kcu.column_name").
		From("information_schema.table_constraints tc").
		Join("information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema").
		Where(sq.Eq{"tc.constraint_type": "PRIMARY KEY", "tc.table_name": name}).
		Where("tc.table_schema = current_schema()").
		OrderBy("kcu.ordinal_position")

	rows, err = store.FetchRows(ctx, p.q, pk)
	if err != nil {
		return Entity{}, fmt.Errorf("describe %q primary key: %w", name, err)
	}
	for _, row := range rows {
		e.PrimaryKey = append(e.PrimaryKey, stringCol(row, "column_name"))
	}
	return e, nil
}

func quoteIdent(name string, q byte) string {
	s := string(q)
	return s + strings.ReplaceAll(name, s, s+s) + s
}

func stringCol(row ir.Row, col string) string {
	v, _ := row.Get(col)
	if s, ok := v.(ir.IRString); ok {
		return string(s)
	}
	if ir.IsNull(v) {
		return ""
	}
	return fmt.Sprint(ir.ToNative(v))
}

func intCol(row ir.Row, col string) (int64, bool) {
	v, ok := row.Get(col)
	if !ok {
		return 0, false
	}
	return ir.AsInt(v)
}
