// Package schema describes the entities a query can select and join: their
// physical table, ordered field list and primary key.
//
// Descriptions come from schema files (CUE or YAML) or from the database
// itself through an Introspector for the connection's dialect.
package schema

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// ErrEntityNotFound is returned when an introspector knows nothing about an entity.
var ErrEntityNotFound = errors.New("entity not found")

// Entity is the shape of one table.
type Entity struct {
	// Name is the entity name used in queries.
	Name string

	// Table is the physical table name. It defaults to Name.
	Table string

	// Fields are the column names in table order.
	Fields []string

	// PrimaryKey is the ordered list of primary key fields.
	PrimaryKey []string
}

// Validate checks that the entity has fields and a primary key drawn from them.
func (e Entity) Validate() error {
	if e.Name == "" {
		return errors.New("entity has no name")
	}
	if len(e.Fields) == 0 {
		return fmt.Errorf("entity %q has no fields", e.Name)
	}
	if len(e.PrimaryKey) == 0 {
		return fmt.Errorf("entity %q has no primary key", e.Name)
	}
	for _, pk := range e.PrimaryKey {
		if !slices.Contains(e.Fields, pk) {
			return fmt.Errorf("entity %q: primary key field %q not in fields", e.Name, pk)
		}
	}
	return nil
}

// Introspector resolves an entity name to its description.
type Introspector interface {
	Describe(ctx context.Context, name string) (Entity, error)
}

// Static is an in-memory Introspector, typically loaded from a schema file.
type Static struct {
	entities map[string]Entity
	order    []string
}

// NewStatic creates a Static registry from entities. Table defaults to Name.
func NewStatic(entities ...Entity) (*Static, error) {
	s := &Static{entities: make(map[string]Entity, len(entities))}
	for _, e := range entities {
		if err := s.Add(e); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add registers an entity, replacing any previous entity of the same name.
func (s *Static) Add(e Entity) error {
	if e.Table == "" {
		e.Table = e.Name
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if _, exists := s.entities[e.Name]; !exists {
		s.order = append(s.order, e.Name)
	}
	s.entities[e.Name] = e
	return nil
}

// Describe implements Introspector.
func (s *Static) Describe(_ context.Context, name string) (Entity, error) {
	e, ok := s.entities[name]
	if !ok {
		return Entity{}, fmt.Errorf("%w: %s", ErrEntityNotFound, name)
	}
	return e, nil
}

// Names returns entity names in registration order.
func (s *Static) Names() []string {
	return slices.Clone(s.order)
}
