package schema

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntity_Validate(t *testing.T) {
	tests := []struct {
		name    string
		entity  Entity
		wantErr string
	}{
		{"valid", Entity{Name: "place", Fields: []string{"id", "name"}, PrimaryKey: []string{"id"}}, ""},
		{"no name", Entity{Fields: []string{"id"}, PrimaryKey: []string{"id"}}, "no name"},
		{"no fields", Entity{Name: "place", PrimaryKey: []string{"id"}}, "no fields"},
		{"no primary key", Entity{Name: "place", Fields: []string{"id"}}, "no primary key"},
		{"pk outside fields", Entity{Name: "place", Fields: []string{"id"}, PrimaryKey: []string{"uid"}}, `"uid" not in fields`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entity.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestStatic(t *testing.T) {
	s, err := NewStatic(
		Entity{Name: "place", Fields: []string{"id", "name"}, PrimaryKey: []string{"id"}},
		Entity{Name: "photo", Table: "place_photo", Fields: []string{"id"}, PrimaryKey: []string{"id"}},
	)
	require.NoError(t, err)

	e, err := s.Describe(context.Background(), "place")
	require.NoError(t, err)
	assert.Equal(t, "place", e.Table, "table defaults to name")

	e, err = s.Describe(context.Background(), "photo")
	require.NoError(t, err)
	assert.Equal(t, "place_photo", e.Table)

	_, err = s.Describe(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrEntityNotFound)

	assert.Equal(t, []string{"place", "photo"}, s.Names())

	_, err = NewStatic(Entity{Name: "bad"})
	assert.Error(t, err)
}
