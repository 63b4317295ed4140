package graph

import (
	"maps"
	"slices"
)

// TableSpec describes one table participating in a query: its alias, physical
// name, ordered field list, primary key and, for joined tables, the container
// field its instances are attached under in the parent entity.
//
// A TableSpec is immutable after construction except for the pk field chain,
// which JoinGraph.Prepare computes from the graph shape.
type TableSpec struct {
	alias          string
	name           string
	fields         []string
	primaryKey     []string
	containerField string

	// flat column -> field, the reverse of FlatColumn.
	byFlat map[string]string

	pkChain []string
}

// NewTableSpec creates a TableSpec. Duplicate fields are collapsed, keeping the
// first occurrence. Every primary key field must appear in fields and the
// primary key must not be empty.
func NewTableSpec(alias, name string, fields, primaryKey []string, containerField string) (*TableSpec, error) {
	if alias == "" {
		return nil, NewError(CodeInvalidEdge, alias, "table %q has an empty alias", name)
	}

	t := &TableSpec{
		alias:          alias,
		name:           name,
		fields:         make([]string, 0, len(fields)),
		containerField: containerField,
		byFlat:         make(map[string]string, len(fields)),
	}
	for _, f := range fields {
		flat := alias + "_" + f
		if _, dup := t.byFlat[flat]; dup {
			continue
		}
		t.byFlat[flat] = f
		t.fields = append(t.fields, f)
	}

	if len(primaryKey) == 0 {
		return nil, NewError(CodePKFieldNotFound, alias, "table %q declares no primary key", name)
	}
	for _, pk := range primaryKey {
		if !slices.Contains(t.fields, pk) {
			return nil, NewError(CodePKFieldNotFound, alias,
				"primary key field %q not found in fields of table %q", pk, name)
		}
	}
	t.primaryKey = slices.Clone(primaryKey)

	return t, nil
}

// Alias returns the table alias.
func (t *TableSpec) Alias() string { return t.alias }

// Name returns the physical table name.
func (t *TableSpec) Name() string { return t.name }

// Fields returns the ordered field list.
func (t *TableSpec) Fields() []string { return slices.Clone(t.fields) }

// PrimaryKey returns the ordered primary key fields.
func (t *TableSpec) PrimaryKey() []string { return slices.Clone(t.primaryKey) }

// ContainerField returns the parent field this table is attached under.
// It is empty for the root.
func (t *TableSpec) ContainerField() string { return t.containerField }

// IsRoot reports whether the table has no container field.
func (t *TableSpec) IsRoot() bool { return t.containerField == "" }

// FlatColumn returns the result column name for a field: "{alias}_{field}".
func (t *TableSpec) FlatColumn(field string) string {
	return t.alias + "_" + field
}

// FieldFor maps a flat result column back to this table's field.
func (t *TableSpec) FieldFor(flat string) (string, bool) {
	f, ok := t.byFlat[flat]
	return f, ok
}

// FlatColumns returns the flat result columns of every field, in field order.
func (t *TableSpec) FlatColumns() []string {
	out := make([]string, len(t.fields))
	for i, f := range t.fields {
		out[i] = t.FlatColumn(f)
	}
	return out
}

// PrimaryKeyColumns returns the flat result columns of the table's own primary key.
func (t *TableSpec) PrimaryKeyColumns() []string {
	out := make([]string, len(t.primaryKey))
	for i, f := range t.primaryKey {
		out[i] = t.FlatColumn(f)
	}
	return out
}

// PKFieldChain returns the composite identity columns computed by the last
// JoinGraph.Prepare, root first. It is nil before Prepare runs.
func (t *TableSpec) PKFieldChain() []string {
	return slices.Clone(t.pkChain)
}

func (t *TableSpec) setPKFieldChain(chain []string) {
	t.pkChain = chain
}

func (t *TableSpec) clone() *TableSpec {
	c := *t
	c.fields = slices.Clone(t.fields)
	c.primaryKey = slices.Clone(t.primaryKey)
	c.pkChain = slices.Clone(t.pkChain)
	c.byFlat = maps.Clone(t.byFlat)
	return &c
}
