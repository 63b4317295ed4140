package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/qrm/internal/ir"
)

// Querier runs a query. *sql.DB, *sql.Tx, *sql.Conn and *Store implement it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// FetchRows renders s, runs it on q and returns every result row.
//
// The whole result set is read before returning. Column values are converted
// with the help of the column's database type, so numbers returned as text by
// the driver (MySQL without prepared statements) still come back as numbers.
func FetchRows(ctx context.Context, q Querier, s sq.Sqlizer) ([]ir.Row, error) {
	if q == nil {
		return nil, fmt.Errorf("fetch rows: nil querier")
	}
	query, args, err := s.ToSql()
	if err != nil {
		return nil, fmt.Errorf("render query: %w", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	return ScanRows(rows)
}

// ScanRows reads every remaining row of rows. It does not close rows.
func ScanRows(rows *sql.Rows) ([]ir.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	types := make([]string, len(cols))
	if cts, err := rows.ColumnTypes(); err == nil {
		for i, ct := range cts {
			types[i] = strings.ToUpper(ct.DatabaseTypeName())
		}
	}

	var out []ir.Row
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(out), err)
		}

		var row ir.Row
		for i, col := range cols {
			v, err := convertValue(raw[i], types[i])
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", len(out), col, err)
			}
			row.Set(col, v)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// convertValue converts a scanned value, using the column's database type to
// interpret drivers that return numbers as bytes.
func convertValue(v any, dbType string) (ir.IRValue, error) {
	b, ok := v.([]byte)
	if !ok {
		return ir.FromDriver(v)
	}
	s := string(b)
	switch {
	case isIntegerType(dbType):
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return ir.IRInt(n), nil
		}
	case isFloatType(dbType):
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return ir.IRFloat(f), nil
		}
	case dbType == "BOOL" || dbType == "BOOLEAN":
		if bv, err := strconv.ParseBool(s); err == nil {
			return ir.IRBool(bv), nil
		}
	}
	return ir.IRString(s), nil
}

func isIntegerType(t string) bool {
	t = strings.TrimPrefix(t, "UNSIGNED ")
	switch t {
	case "INT", "INTEGER", "TINYINT", "SMALLINT", "MEDIUMINT", "BIGINT", "INT2", "INT4", "INT8", "YEAR":
		return true
	}
	return false
}

func isFloatType(t string) bool {
	switch t {
	case "FLOAT", "DOUBLE", "REAL", "DECIMAL", "NUMERIC", "FLOAT4", "FLOAT8":
		return true
	}
	return false
}
