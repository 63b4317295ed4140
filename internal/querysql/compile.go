package querysql

import (
	"fmt"
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/qrm/internal/graph"
	"github.com/roach88/qrm/internal/ir"
)

// Filter mutates the statement after all joins are emitted. Filters may add
// WHERE, ORDER BY, LIMIT and similar clauses; they run in registration order.
//
// Filters always see a builder using ? placeholders. The dialect placeholder
// format is applied when the Statement is rendered.
type Filter func(sq.SelectBuilder) sq.SelectBuilder

// Compiler turns a JoinGraph into a single flat SELECT statement.
type Compiler struct {
	placeholder sq.PlaceholderFormat
	strict      bool
	logger      *slog.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithPlaceholder sets the placeholder format of rendered statements,
// e.g. sq.Dollar for PostgreSQL. The default is sq.Question.
func WithPlaceholder(p sq.PlaceholderFormat) Option {
	return func(c *Compiler) {
		if p != nil {
			c.placeholder = p
		}
	}
}

// WithStrictParams makes a parameter name bound to different values by two
// join edges a DUPLICATE_PARAMETER error instead of a warning.
func WithStrictParams() Option {
	return func(c *Compiler) {
		c.strict = true
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCompiler creates a Compiler.
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{
		placeholder: sq.Question,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile prepares g and builds its statement:
//
//	SELECT {alias}.{field} AS {alias}_{field}, ...
//	FROM {root.name} {root.alias}
//	{TYPE} JOIN {name} {alias} ON {predicate} ...
//
// followed by whatever the filters add. Extra-condition parameters of all
// edges are merged into one map keyed by name; a later edge overwrites an
// earlier binding of the same name.
func (c *Compiler) Compile(g *graph.JoinGraph, filters ...Filter) (*Statement, error) {
	if err := g.Prepare(); err != nil {
		return nil, err
	}
	root, err := g.Root()
	if err != nil {
		return nil, err
	}

	var columns, selectList []string
	for _, t := range g.Tables() {
		for _, f := range t.Fields() {
			flat := t.FlatColumn(f)
			columns = append(columns, flat)
			selectList = append(selectList, fmt.Sprintf("%s.%s AS %s", t.Alias(), f, flat))
		}
	}

	params, err := c.mergeParams(g.Edges())
	if err != nil {
		return nil, err
	}

	builder := sq.Select(selectList...).
		From(root.Name() + " " + root.Alias()).
		PlaceholderFormat(sq.Question)

	for _, e := range g.Edges() {
		pred, args, err := bindNamed(e.Predicate(), params)
		if err != nil {
			return nil, fmt.Errorf("join %q: %w", e.Table.Alias(), err)
		}
		clause := fmt.Sprintf("%s JOIN %s %s ON %s", e.Type.Keyword(), e.Table.Name(), e.Table.Alias(), pred)
		builder = builder.JoinClause(clause, args...)
	}

	for _, f := range filters {
		if f != nil {
			builder = f(builder)
		}
	}

	c.logger.Debug("query compiled",
		"root", root.Alias(),
		"tables", g.Len(),
		"params", len(params.names),
		"filters", len(filters))

	return &Statement{
		builder:     builder,
		placeholder: c.placeholder,
		columns:     columns,
		params:      params.list(),
	}, nil
}

// paramSet is an insertion-ordered parameter map.
type paramSet struct {
	names  []string
	values map[string]ir.IRValue
	owner  map[string]string
}

func (p *paramSet) list() []graph.Param {
	out := make([]graph.Param, len(p.names))
	for i, n := range p.names {
		out[i] = graph.Param{Name: n, Value: p.values[n]}
	}
	return out
}

func (c *Compiler) mergeParams(edges []*graph.JoinEdge) (*paramSet, error) {
	set := &paramSet{
		values: make(map[string]ir.IRValue),
		owner:  make(map[string]string),
	}
	for _, e := range edges {
		alias := e.Table.Alias()
		for _, p := range e.ExtraParams {
			prev, seen := set.values[p.Name]
			if !seen {
				set.names = append(set.names, p.Name)
			} else if ir.KeyPart(prev) != ir.KeyPart(p.Value) {
				if c.strict {
					return nil, graph.NewError(graph.CodeDuplicateParameter, alias,
						"parameter %q is bound by joins %q and %q", p.Name, set.owner[p.Name], alias)
				}
				c.logger.Warn("join parameter overwritten",
					"param", p.Name,
					"first", set.owner[p.Name],
					"second", alias)
			}
			set.values[p.Name] = p.Value
			set.owner[p.Name] = alias
		}
	}
	return set, nil
}

// bindNamed rewrites :name references in fragment to ? placeholders and
// returns the matching arguments in order. Text inside quotes and "::" casts
// are left untouched.
func bindNamed(fragment string, params *paramSet) (string, []any, error) {
	if !strings.Contains(fragment, ":") {
		return fragment, nil, nil
	}

	var (
		out   strings.Builder
		args  []any
		quote byte
	)
	for i := 0; i < len(fragment); i++ {
		ch := fragment[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
			out.WriteByte(ch)
		case ch == '\'' || ch == '"' || ch == '`':
			quote = ch
			out.WriteByte(ch)
		case ch == ':' && i+1 < len(fragment) && fragment[i+1] == ':':
			out.WriteString("::")
			i++
		case ch == ':' && i+1 < len(fragment) && isIdentStart(fragment[i+1]):
			j := i + 1
			for j < len(fragment) && isIdentPart(fragment[j]) {
				j++
			}
			name := fragment[i+1 : j]
			v, ok := params.values[name]
			if !ok {
				return "", nil, graph.NewError(graph.CodeUnboundParameter, "", "parameter :%s has no value", name)
			}
			arg, err := ir.ToParam(v)
			if err != nil {
				return "", nil, fmt.Errorf("parameter :%s: %w", name, err)
			}
			out.WriteByte('?')
			args = append(args, arg)
			i = j - 1
		default:
			out.WriteByte(ch)
		}
	}
	return out.String(), args, nil
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}
