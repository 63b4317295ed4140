package querysql

import (
	"slices"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/qrm/internal/graph"
	"github.com/roach88/qrm/internal/ir"
)

// Statement is a compiled query. It implements sq.Sqlizer.
type Statement struct {
	builder     sq.SelectBuilder
	placeholder sq.PlaceholderFormat
	columns     []string
	params      []graph.Param
}

// ToSql renders the statement with the dialect placeholder format.
func (s *Statement) ToSql() (string, []any, error) {
	return s.builder.PlaceholderFormat(s.placeholder).ToSql()
}

// RawSQL renders the statement with every argument substituted as a quoted
// literal, single quotes inside string arguments doubled. The result is for
// logs and diagnostics only and must never be executed: non-string values
// lose their type.
func (s *Statement) RawSQL() string {
	return sq.DebugSqlizer(quotedArgs{s.builder})
}

// quotedArgs escapes single quotes in the string arguments of a Sqlizer.
type quotedArgs struct {
	sq.Sqlizer
}

func (q quotedArgs) ToSql() (string, []any, error) {
	query, args, err := q.Sqlizer.ToSql()
	if err != nil {
		return "", nil, err
	}
	for i, a := range args {
		if str, ok := a.(string); ok {
			args[i] = strings.ReplaceAll(str, "'", "''")
		}
	}
	return query, args, nil
}

// Hash returns a stable digest of the rendered SQL and its arguments, used to
// correlate log lines of the same query.
func (s *Statement) Hash() (string, error) {
	query, args, err := s.ToSql()
	if err != nil {
		return "", err
	}
	return ir.StatementHash(query, args)
}

// Columns returns the flat select columns in select-list order.
func (s *Statement) Columns() []string {
	return slices.Clone(s.columns)
}

// Params returns the merged join parameters in first-bound order.
func (s *Statement) Params() []graph.Param {
	return slices.Clone(s.params)
}
