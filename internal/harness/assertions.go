package harness

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/qrm/internal/ir"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Path     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if e.Path != "" {
		fmt.Fprintf(&buf, " at %s", e.Path)
	}
	fmt.Fprintf(&buf, "\n  Expected: %s\n  Actual: %s", e.Expected, e.Actual)
	return buf.String()
}

// Lookup resolves a dot separated path in a list of roots. The first segment
// indexes the roots, later numeric segments index arrays and the rest name
// object fields.
func Lookup(roots []ir.IRObject, path string) (ir.IRValue, error) {
	arr := make(ir.IRArray, len(roots))
	for i, r := range roots {
		arr[i] = r
	}

	var cur ir.IRValue = arr
	for i, seg := range strings.Split(path, ".") {
		switch v := cur.(type) {
		case ir.IRArray:
			idx, err := strconv.Atoi(seg)
			if err != nil {
				return nil, fmt.Errorf("segment %d (%q): expected an index into an array", i, seg)
			}
			if idx < 0 || idx >= len(v) {
				return nil, fmt.Errorf("segment %d: index %d out of range (len %d)", i, idx, len(v))
			}
			cur = v[idx]
		case ir.IRObject:
			next, ok := v[seg]
			if !ok {
				return nil, fmt.Errorf("segment %d: no field %q", i, seg)
			}
			cur = next
		default:
			return nil, fmt.Errorf("segment %d (%q): cannot descend into %T", i, seg, cur)
		}
	}
	return cur, nil
}

func assertRootCount(result *Result, a Assertion) error {
	if len(result.Tree) != a.Count {
		return &AssertionError{
			Type:     AssertRootCount,
			Expected: fmt.Sprintf("%d roots", a.Count),
			Actual:   fmt.Sprintf("%d roots", len(result.Tree)),
		}
	}
	return nil
}

func assertPathEquals(result *Result, a Assertion) error {
	actual, err := Lookup(result.Tree, a.Path)
	if err != nil {
		return &AssertionError{Type: AssertPathEquals, Path: a.Path, Expected: "path to exist", Actual: err.Error()}
	}
	expected, err := ir.FromGo(a.Value)
	if err != nil {
		return fmt.Errorf("path_equals %s: %w", a.Path, err)
	}
	if !valuesEqual(expected, actual) {
		return &AssertionError{
			Type:     AssertPathEquals,
			Path:     a.Path,
			Expected: render(expected),
			Actual:   render(actual),
		}
	}
	return nil
}

func assertPathLen(result *Result, a Assertion) error {
	actual, err := Lookup(result.Tree, a.Path)
	if err != nil {
		return &AssertionError{Type: AssertPathLen, Path: a.Path, Expected: "path to exist", Actual: err.Error()}
	}
	arr, ok := actual.(ir.IRArray)
	if !ok {
		return &AssertionError{
			Type:     AssertPathLen,
			Path:     a.Path,
			Expected: "an array",
			Actual:   fmt.Sprintf("%T", actual),
		}
	}
	if len(arr) != a.Count {
		return &AssertionError{
			Type:     AssertPathLen,
			Path:     a.Path,
			Expected: fmt.Sprintf("%d elements", a.Count),
			Actual:   fmt.Sprintf("%d elements", len(arr)),
		}
	}
	return nil
}

func assertSQLContains(result *Result, a Assertion) error {
	if !strings.Contains(result.SQL, a.Text) {
		return &AssertionError{
			Type:     AssertSQLContains,
			Expected: fmt.Sprintf("SQL containing %q", a.Text),
			Actual:   result.SQL,
		}
	}
	return nil
}

// valuesEqual compares two tree values. Numbers compare by value so that a
// YAML 4 matches a computed 4.0; everything else compares through canonical
// JSON.
func valuesEqual(expected, actual ir.IRValue) bool {
	ef, eok := number(expected)
	af, aok := number(actual)
	if eok && aok {
		return ef == af
	}

	eb, err := ir.MarshalCanonical(expected)
	if err != nil {
		return false
	}
	ab, err := ir.MarshalCanonical(actual)
	if err != nil {
		return false
	}
	return bytes.Equal(eb, ab)
}

func number(v ir.IRValue) (float64, bool) {
	switch v.(type) {
	case ir.IRInt, ir.IRFloat:
		return ir.AsFloat(v)
	}
	return 0, false
}

func render(v ir.IRValue) string {
	b, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// EvaluateAssertions evaluates all assertions against the result and returns
// the messages of the failed ones.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertRootCount:
			err = assertRootCount(result, a)
		case AssertPathEquals:
			err = assertPathEquals(result, a)
		case AssertPathLen:
			err = assertPathLen(result, a)
		case AssertSQLContains:
			err = assertSQLContains(result, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
