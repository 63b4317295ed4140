package graph

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/qrm/internal/ir"
)

// RelationKind says whether a joined table attaches to its parent as a single
// entity or as a list.
type RelationKind int

const (
	// Single attaches at most one entity; an unmatched relation is null.
	Single RelationKind = iota + 1

	// Multiple attaches a list; an unmatched relation is an empty list.
	Multiple
)

// String returns the lowercase name of the kind.
func (k RelationKind) String() string {
	switch k {
	case Single:
		return "single"
	case Multiple:
		return "multiple"
	default:
		return fmt.Sprintf("RelationKind(%d)", int(k))
	}
}

// JoinType is the SQL join flavour of an edge.
type JoinType string

const (
	JoinInner JoinType = "inner"
	JoinLeft  JoinType = "left"
	JoinRight JoinType = "right"
)

// ParseJoinType accepts a join type name in any letter case.
// The empty string yields the default, JoinLeft.
func ParseJoinType(s string) (JoinType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return JoinLeft, nil
	case "inner":
		return JoinInner, nil
	case "left":
		return JoinLeft, nil
	case "right":
		return JoinRight, nil
	default:
		return "", NewError(CodeInvalidEdge, "", "unknown join type %q", s)
	}
}

// Keyword returns the SQL keyword, e.g. "LEFT".
func (j JoinType) Keyword() string {
	return strings.ToUpper(string(j))
}

// ColumnPair equates a field of the joined table with a field of its parent.
type ColumnPair struct {
	Field       string
	ParentField string
}

// Condition is an ordered list of equality pairs, rendered joined by AND.
type Condition []ColumnPair

// On starts a Condition with one pair.
//
//	graph.On("place_id", "id").And("lang", "lang")
func On(field, parentField string) Condition {
	return Condition{{Field: field, ParentField: parentField}}
}

// And appends a pair and returns the extended Condition.
func (c Condition) And(field, parentField string) Condition {
	return append(slices.Clip(c), ColumnPair{Field: field, ParentField: parentField})
}

// Param is a named value bound by an edge's extra condition.
type Param struct {
	Name  string
	Value ir.IRValue
}

// JoinEdge is one relation between a joined table and its parent.
type JoinEdge struct {
	Kind           RelationKind
	Table          *TableSpec
	JoinTo         *TableSpec
	On             Condition
	Type           JoinType
	ExtraCondition string

	// ExtraParams are sorted by name. Names carry no leading colon.
	ExtraParams []Param
}

// EdgeOption configures optional parts of a JoinEdge.
type EdgeOption func(*JoinEdge) error

// WithJoinType sets the join type. The default is JoinLeft.
func WithJoinType(t JoinType) EdgeOption {
	return func(e *JoinEdge) error {
		parsed, err := ParseJoinType(string(t))
		if err != nil {
			return err
		}
		e.Type = parsed
		return nil
	}
}

// WithExtraCondition appends a raw predicate fragment to the ON clause.
// Parameters are referenced in the fragment as :name and bound from params.
func WithExtraCondition(fragment string, params map[string]any) EdgeOption {
	return func(e *JoinEdge) error {
		e.ExtraCondition = strings.TrimSpace(fragment)
		e.ExtraParams = e.ExtraParams[:0]
		keys := make(map[string]string, len(params))
		for key := range params {
			name := strings.TrimPrefix(key, ":")
			if prev, ok := keys[name]; ok {
				return NewError(CodeDuplicateParameter, e.Table.Alias(),
					"parameter %q given as both %q and %q", name, prev, key)
			}
			keys[name] = key
		}
		names := slices.Sorted(maps.Keys(keys))
		for _, name := range names {
			v, err := ir.FromGo(params[keys[name]])
			if err != nil {
				return NewError(CodeInvalidEdge, e.Table.Alias(), "parameter %q: %v", name, err)
			}
			e.ExtraParams = append(e.ExtraParams, Param{Name: name, Value: v})
		}
		return nil
	}
}

// NewJoinEdge creates and validates a JoinEdge.
func NewJoinEdge(kind RelationKind, table, joinTo *TableSpec, on Condition, opts ...EdgeOption) (*JoinEdge, error) {
	if table == nil || joinTo == nil {
		return nil, NewError(CodeInvalidEdge, "", "join edge requires both tables")
	}
	if kind != Single && kind != Multiple {
		return nil, NewError(CodeUnknownConditionType, table.Alias(), "unknown relation kind %s", kind)
	}
	if len(on) == 0 {
		return nil, NewError(CodeInvalidEdge, table.Alias(), "join of %q to %q has no ON columns", table.Alias(), joinTo.Alias())
	}
	if table.IsRoot() {
		return nil, NewError(CodeInvalidEdge, table.Alias(), "joined table %q has no container field", table.Alias())
	}

	e := &JoinEdge{
		Kind:   kind,
		Table:  table,
		JoinTo: joinTo,
		On:     slices.Clone(on),
		Type:   JoinLeft,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Predicate renders the ON clause: each pair as
// "{table.alias}.{field} = {joinTo.alias}.{parentField}" joined by " AND ",
// followed by the extra condition when one is set.
func (e *JoinEdge) Predicate() string {
	parts := make([]string, len(e.On))
	for i, p := range e.On {
		parts[i] = fmt.Sprintf("%s.%s = %s.%s", e.Table.Alias(), p.Field, e.JoinTo.Alias(), p.ParentField)
	}
	pred := strings.Join(parts, " AND ")
	if e.ExtraCondition != "" {
		pred += " " + e.ExtraCondition
	}
	return pred
}

// Param returns the value bound to name and whether the edge binds it.
func (e *JoinEdge) Param(name string) (ir.IRValue, bool) {
	for _, p := range e.ExtraParams {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}
