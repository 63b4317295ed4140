package querydef

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-openapi/inflect"
	"gopkg.in/yaml.v3"

	"github.com/roach88/qrm/internal/graph"
	"github.com/roach88/qrm/internal/ir"
	"github.com/roach88/qrm/internal/qrm"
)

// Build turns the definition into a query of m.
func (d *Definition) Build(ctx context.Context, m *qrm.Manager) (*qrm.Query, error) {
	q := m.Select(ctx, d.Select, d.As)

	for i, j := range d.With {
		on, err := condition(&j.On)
		if err != nil {
			return nil, fmt.Errorf("with[%d]: %w", i, err)
		}
		jt, err := graph.ParseJoinType(j.Type)
		if err != nil {
			return nil, fmt.Errorf("with[%d]: %w", i, err)
		}
		opts := []qrm.JoinOption{qrm.JoinType(jt)}
		if j.Condition != "" {
			opts = append(opts, qrm.ExtraCondition(j.Condition, j.Params))
		}

		if j.Single != "" {
			alias := aliasOr(j.As, j.Single)
			q.WithSingle(containerOr(j.Container, inflect.Singularize(j.Single)), j.Single, alias, j.To, on, opts...)
		} else {
			alias := aliasOr(j.As, j.Multiple)
			q.WithMultiple(containerOr(j.Container, inflect.Pluralize(j.Multiple)), j.Multiple, alias, j.To, on, opts...)
		}
	}

	for _, p := range d.Where {
		q.Where(p.SQL, p.Args...)
	}
	if len(d.OrderBy) > 0 || d.Limit > 0 || d.Offset > 0 {
		q.Filter(d.paging)
	}
	for _, a := range d.Modify {
		q.Modify(a.Alias, a.modifier())
	}

	if err := q.Err(); err != nil {
		return nil, err
	}
	return q, nil
}

func (d *Definition) paging(b sq.SelectBuilder) sq.SelectBuilder {
	if len(d.OrderBy) > 0 {
		b = b.OrderBy(d.OrderBy...)
	}
	if d.Limit > 0 {
		b = b.Limit(d.Limit)
	}
	if d.Offset > 0 {
		b = b.Offset(d.Offset)
	}
	return b
}

func aliasOr(alias, entity string) string {
	if alias != "" {
		return alias
	}
	return entity
}

func containerOr(container, fallback string) string {
	if container != "" {
		return container
	}
	return fallback
}

// condition reads an ordered field: parent-field mapping.
func condition(n *yaml.Node) (graph.Condition, error) {
	var on graph.Condition
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind != yaml.ScalarNode || v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: on entries must be field: parent_field", k.Line)
		}
		on = append(on, graph.ColumnPair{Field: k.Value, ParentField: v.Value})
	}
	return on, nil
}

var aggregates = map[string]func(vals []float64, n int) ir.IRValue{
	"count": func(_ []float64, n int) ir.IRValue { return ir.IRInt(n) },
	"sum": func(vals []float64, _ int) ir.IRValue {
		var s float64
		for _, v := range vals {
			s += v
		}
		return number(s)
	},
	"avg": func(vals []float64, _ int) ir.IRValue {
		if len(vals) == 0 {
			return ir.IRNull{}
		}
		var s float64
		for _, v := range vals {
			s += v
		}
		return number(s / float64(len(vals)))
	},
	"min": func(vals []float64, _ int) ir.IRValue {
		if len(vals) == 0 {
			return ir.IRNull{}
		}
		m := vals[0]
		for _, v := range vals[1:] {
			m = min(m, v)
		}
		return number(m)
	},
	"max": func(vals []float64, _ int) ir.IRValue {
		if len(vals) == 0 {
			return ir.IRNull{}
		}
		m := vals[0]
		for _, v := range vals[1:] {
			m = max(m, v)
		}
		return number(m)
	},
}

// number keeps integral results integral.
func number(f float64) ir.IRValue {
	if f == float64(int64(f)) {
		return ir.IRInt(int64(f))
	}
	return ir.IRFloat(f)
}

func (a Aggregate) modifier() func(ir.IRObject) {
	agg := aggregates[a.Func]
	return func(node ir.IRObject) {
		list, _ := node[a.Of].(ir.IRArray)
		var vals []float64
		if a.Field != "" {
			for _, item := range list {
				obj, ok := item.(ir.IRObject)
				if !ok {
					continue
				}
				if f, ok := ir.AsFloat(obj[a.Field]); ok {
					vals = append(vals, f)
				}
			}
		}
		node[a.Set] = agg(vals, len(list))
	}
}
