// Package testutil provides fixtures shared by package tests: a seeded
// SQLite database of addresses, places and comments, its schema, and
// deterministic run identifiers.
package testutil

import (
	"context"
	_ "embed"
	"path/filepath"
	"testing"

	"github.com/roach88/qrm/internal/schema"
	"github.com/roach88/qrm/internal/store"
)

// PlacesSQL creates and seeds the places database.
//
//go:embed testdata/places.sql
var PlacesSQL string

// PlacesSchemaYAML describes the places tables.
//
//go:embed testdata/places.yaml
var PlacesSchemaYAML []byte

// CommentCounts is the number of comments of each place in the fixture.
var CommentCounts = map[int64]int{1: 3, 2: 0, 3: 1, 4: 0, 5: 1, 6: 1}

// OpenPlacesDB creates a seeded places database in a temporary directory.
// The store is closed when the test ends.
func OpenPlacesDB(t testing.TB) *store.Store {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "places.db")

	s, err := store.Open(ctx, "sqlite3", path)
	if err != nil {
		t.Fatalf("open places db: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.ExecScript(ctx, PlacesSQL); err != nil {
		t.Fatalf("seed places db: %v", err)
	}
	return s
}

// PlacesSchema returns the static schema of the places tables.
func PlacesSchema(t testing.TB) *schema.Static {
	t.Helper()
	s, err := schema.ParseYAML("places.yaml", PlacesSchemaYAML)
	if err != nil {
		t.Fatalf("parse places schema: %v", err)
	}
	return s
}
