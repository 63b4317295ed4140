package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenarioFiles creates a fixture, schema and query next to a scenario
// and returns the directory.
func writeScenarioFiles(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"fixture.sql": "CREATE TABLE item (id INTEGER PRIMARY KEY, name TEXT);\nINSERT INTO item (id, name) VALUES (1, 'one');\n",
		"schema.yaml": "entities:\n  item:\n    fields: [id, name]\n    primary_key: [id]\n",
		"query.yaml":  "select: item\nas: i\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := writeScenarioFiles(t)
	path := writeScenario(t, dir, `
name: items
description: "All items"
fixture: fixture.sql
schema: schema.yaml
query: query.yaml
assertions:
  - type: root_count
    count: 1
  - type: path_equals
    path: 0.name
    value: one
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "items", scenario.Name)
	assert.Equal(t, filepath.Join(dir, "fixture.sql"), scenario.Fixture)
	assert.Equal(t, filepath.Join(dir, "schema.yaml"), scenario.Schema)
	assert.Equal(t, filepath.Join(dir, "query.yaml"), scenario.Query)
	require.Len(t, scenario.Assertions, 2)
	assert.Equal(t, "one", scenario.Assertions[1].Value)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	dir := writeScenarioFiles(t)
	path := writeScenario(t, dir, `
name: items
description: "typo"
fixture: fixture.sql
schema: schema.yaml
query: query.yaml
assertion:
  - type: root_count
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Invalid(t *testing.T) {
	head := "name: items\ndescription: d\nfixture: fixture.sql\nschema: schema.yaml\nquery: query.yaml\n"
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no name", "description: d\nfixture: fixture.sql\nschema: schema.yaml\nquery: query.yaml\nassertions: [{type: root_count}]\n", "name is required"},
		{"no description", "name: x\nfixture: fixture.sql\nschema: schema.yaml\nquery: query.yaml\nassertions: [{type: root_count}]\n", "description is required"},
		{"no fixture", "name: x\ndescription: d\nschema: schema.yaml\nquery: query.yaml\nassertions: [{type: root_count}]\n", "fixture is required"},
		{"no schema", "name: x\ndescription: d\nfixture: fixture.sql\nquery: query.yaml\nassertions: [{type: root_count}]\n", "schema is required"},
		{"no query", "name: x\ndescription: d\nfixture: fixture.sql\nschema: schema.yaml\nassertions: [{type: root_count}]\n", "query is required"},
		{"no assertions", head, "assertions list is required"},
		{"missing query file", "name: x\ndescription: d\nfixture: fixture.sql\nschema: schema.yaml\nquery: other.yaml\nassertions: [{type: root_count}]\n", "file not found"},
		{"untyped assertion", head + "assertions: [{count: 1}]\n", "type is required"},
		{"unknown assertion", head + "assertions: [{type: trace_order}]\n", `unknown assertion type "trace_order"`},
		{"path_equals without path", head + "assertions: [{type: path_equals, value: 1}]\n", "path is required for path_equals"},
		{"path_len without path", head + "assertions: [{type: path_len, count: 1}]\n", "path is required for path_len"},
		{"negative path_len", head + "assertions: [{type: path_len, path: 0.x, count: -1}]\n", "count must be non-negative"},
		{"sql_contains without text", head + "assertions: [{type: sql_contains}]\n", "text is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeScenarioFiles(t)
			_, err := LoadScenario(writeScenario(t, dir, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	dir := writeScenarioFiles(t)
	other := t.TempDir()
	path := filepath.Join(other, "scenario.yaml")
	content := "name: x\ndescription: d\nfixture: fixture.sql\nschema: schema.yaml\nquery: query.yaml\nassertions: [{type: root_count, count: 1}]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)

	scenario, err := LoadScenarioWithBasePath(path, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "query.yaml"), scenario.Query)
}

func TestLoadScenario_Testdata(t *testing.T) {
	for _, name := range []string{"address_tree", "good_places"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)
			assert.Equal(t, name, scenario.Name)
		})
	}
}
