package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qrm/internal/ir"
)

func sampleResult() *Result {
	r := NewResult()
	r.SQL = "SELECT a.id AS a_id FROM address a LEFT JOIN place p ON p.address_id = a.id"
	r.Tree = []ir.IRObject{
		{
			"id":   ir.IRInt(1),
			"name": ir.IRString("Tverskaya"),
			"city": ir.IRObject{"name": ir.IRString("Moscow")},
			"places": ir.IRArray{
				ir.IRObject{"id": ir.IRInt(1), "avg": ir.IRFloat(4)},
				ir.IRObject{"id": ir.IRInt(2), "avg": ir.IRNull{}},
			},
		},
		{
			"id":     ir.IRInt(2),
			"city":   ir.IRNull{},
			"places": ir.IRArray{},
		},
	}
	return r
}

func TestLookup(t *testing.T) {
	roots := sampleResult().Tree
	tests := []struct {
		path string
		want ir.IRValue
	}{
		{"0.name", ir.IRString("Tverskaya")},
		{"0.city.name", ir.IRString("Moscow")},
		{"0.places.1.id", ir.IRInt(2)},
		{"1.city", ir.IRNull{}},
		{"1.places", ir.IRArray{}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := Lookup(roots, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLookup_Errors(t *testing.T) {
	roots := sampleResult().Tree
	tests := []struct {
		path string
		want string
	}{
		{"x", "expected an index"},
		{"5", "out of range"},
		{"0.missing", `no field "missing"`},
		{"0.name.first", "cannot descend"},
		{"0.places.-1", "out of range"},
		{"1.city.name", "cannot descend"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, err := Lookup(roots, tt.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	assertions := []Assertion{
		{Type: AssertRootCount, Count: 2},
		{Type: AssertPathEquals, Path: "0.city.name", Value: "Moscow"},
		{Type: AssertPathEquals, Path: "0.places.0.avg", Value: 4},
		{Type: AssertPathEquals, Path: "0.places.1.avg", Value: nil},
		{Type: AssertPathEquals, Path: "0.city", Value: map[string]any{"name": "Moscow"}},
		{Type: AssertPathLen, Path: "0.places", Count: 2},
		{Type: AssertPathLen, Path: "1.places", Count: 0},
		{Type: AssertSQLContains, Text: "LEFT JOIN place p"},
	}
	assert.Empty(t, EvaluateAssertions(sampleResult(), assertions))
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		want      string
	}{
		{"root count", Assertion{Type: AssertRootCount, Count: 3}, "Expected: 3 roots"},
		{"value mismatch", Assertion{Type: AssertPathEquals, Path: "0.name", Value: "Arbat"}, `Actual: "Tverskaya"`},
		{"type mismatch", Assertion{Type: AssertPathEquals, Path: "0.id", Value: "1"}, "path_equals at 0.id"},
		{"missing path", Assertion{Type: AssertPathEquals, Path: "0.nope", Value: 1}, "path to exist"},
		{"length", Assertion{Type: AssertPathLen, Path: "0.places", Count: 1}, "Expected: 1 elements"},
		{"not an array", Assertion{Type: AssertPathLen, Path: "0.city", Count: 1}, "an array"},
		{"sql", Assertion{Type: AssertSQLContains, Text: "INNER JOIN"}, `SQL containing "INNER JOIN"`},
		{"unknown", Assertion{Type: "trace_count"}, "unknown assertion type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(sampleResult(), []Assertion{tt.assertion})
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.want)
		})
	}
}

func TestValuesEqual_Numbers(t *testing.T) {
	assert.True(t, valuesEqual(ir.IRInt(4), ir.IRFloat(4)))
	assert.False(t, valuesEqual(ir.IRInt(4), ir.IRFloat(4.5)))
	assert.False(t, valuesEqual(ir.IRString("4"), ir.IRInt(4)))
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)
	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
