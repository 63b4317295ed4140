// Package querydef reads query definitions from YAML files and turns them
// into qrm queries.
//
//	select: address
//	as: a
//	with:
//	  - single: city
//	    as: c
//	    to: a
//	    on: {id: city_id}
//	  - multiple: place
//	    as: p
//	    to: a
//	    on: {address_id: id}
//	  - multiple: comment
//	    as: cm
//	    to: p
//	    on: {place_id: id}
//	    type: inner
//	    condition: "AND cm.mark >= :mark"
//	    params: {mark: 3}
//	where:
//	  - "c.name = 'Moscow'"
//	  - {sql: "p.id > ?", args: [0]}
//	order_by: [a.id, p.id, cm.id]
//	modify:
//	  - {alias: p, set: comment_count, func: count, of: comments}
//
// The ON mapping reads joined-field: parent-field and keeps its order. A
// missing container name defaults to the entity name, singular for single
// relations and plural for multiple ones.
package querydef

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Definition is one query file.
type Definition struct {
	Select  string      `yaml:"select"`
	As      string      `yaml:"as"`
	With    []Join      `yaml:"with"`
	Where   []Predicate `yaml:"where"`
	OrderBy []string    `yaml:"order_by"`
	Limit   uint64      `yaml:"limit"`
	Offset  uint64      `yaml:"offset"`
	Modify  []Aggregate `yaml:"modify"`
}

// Join is one relation. Exactly one of Single and Multiple names the entity.
type Join struct {
	Single    string         `yaml:"single"`
	Multiple  string         `yaml:"multiple"`
	As        string         `yaml:"as"`
	To        string         `yaml:"to"`
	Container string         `yaml:"container"`
	On        yaml.Node      `yaml:"on"`
	Type      string         `yaml:"type"`
	Condition string         `yaml:"condition"`
	Params    map[string]any `yaml:"params"`
}

// Predicate is a WHERE fragment with ? placeholders. It may be written as a
// plain string when it has no arguments.
type Predicate struct {
	SQL  string `yaml:"sql"`
	Args []any  `yaml:"args"`
}

// UnmarshalYAML accepts a scalar or a {sql, args} mapping.
func (p *Predicate) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		p.SQL = n.Value
		return nil
	}
	type plain Predicate
	return n.Decode((*plain)(p))
}

// Aggregate derives a field on every node of Alias from one of its list
// containers.
type Aggregate struct {
	Alias string `yaml:"alias"`
	Set   string `yaml:"set"`
	Func  string `yaml:"func"`
	Of    string `yaml:"of"`
	Field string `yaml:"field"`
}

// Error is a definition error with its source position when known.
type Error struct {
	Path    string
	Line    int
	Message string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Load reads and validates a query file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Message: err.Error()}
	}
	return Parse(path, data)
}

// Parse decodes and validates a query definition. path is used in errors.
func Parse(path string, data []byte) (*Definition, error) {
	var d Definition
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, &Error{Path: path, Message: err.Error()}
	}
	if err := d.validate(path); err != nil {
		return nil, err
	}
	return &d, nil
}

func (d *Definition) validate(path string) error {
	if d.Select == "" {
		return &Error{Path: path, Message: "select is required"}
	}
	if d.As == "" {
		d.As = d.Select
	}
	for i, j := range d.With {
		if (j.Single == "") == (j.Multiple == "") {
			return &Error{Path: path, Line: j.On.Line, Message: fmt.Sprintf("with[%d]: exactly one of single or multiple is required", i)}
		}
		if j.To == "" {
			return &Error{Path: path, Line: j.On.Line, Message: fmt.Sprintf("with[%d]: to is required", i)}
		}
		if j.On.Kind != yaml.MappingNode || len(j.On.Content) == 0 {
			return &Error{Path: path, Line: j.On.Line, Message: fmt.Sprintf("with[%d]: on must be a non-empty mapping", i)}
		}
	}
	for i, a := range d.Modify {
		if a.Alias == "" || a.Set == "" || a.Of == "" {
			return &Error{Path: path, Message: fmt.Sprintf("modify[%d]: alias, set and of are required", i)}
		}
		if _, ok := aggregates[a.Func]; !ok {
			return &Error{Path: path, Message: fmt.Sprintf("modify[%d]: unknown func %q", i, a.Func)}
		}
		if a.Func != "count" && a.Field == "" {
			return &Error{Path: path, Message: fmt.Sprintf("modify[%d]: %s needs a field", i, a.Func)}
		}
	}
	return nil
}
