package graph

import (
	"errors"
	"fmt"
)

// Error is the single error type reported by graph construction, query
// compilation, materialization and execution.
//
// Every Error carries a Code; use errors.Is against the sentinel values below
// to test for a category, or errors.As to read Alias and Message.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Alias is the table alias involved, when there is one.
	Alias string
}

// ErrorCode categorizes graph errors.
type ErrorCode string

const (
	// CodeDuplicateAlias indicates an alias is already registered in the graph.
	CodeDuplicateAlias ErrorCode = "DUPLICATE_ALIAS"

	// CodeUnknownAlias indicates a lookup for an alias the graph does not hold.
	CodeUnknownAlias ErrorCode = "UNKNOWN_ALIAS"

	// CodeNoRootTable indicates the graph has no root table yet.
	CodeNoRootTable ErrorCode = "NO_ROOT_TABLE"

	// CodePKFieldNotFound indicates a primary-key field missing from the field list.
	CodePKFieldNotFound ErrorCode = "PRIMARY_KEY_FIELD_NOT_FOUND"

	// CodePKValueMissing indicates a result row lacks an expected primary-key column.
	CodePKValueMissing ErrorCode = "PRIMARY_KEY_VALUE_MISSING_IN_ROW"

	// CodeUnknownConditionType indicates a relation kind outside Single/Multiple.
	CodeUnknownConditionType ErrorCode = "UNKNOWN_CONDITION_TYPE"

	// CodeNoConnection indicates execution was requested without a connection.
	CodeNoConnection ErrorCode = "NO_CONNECTION_AVAILABLE"

	// CodeInvalidEdge indicates a malformed join edge (empty ON, bad join type).
	CodeInvalidEdge ErrorCode = "INVALID_EDGE"

	// CodeUnboundParameter indicates a :name placeholder with no value.
	CodeUnboundParameter ErrorCode = "UNBOUND_PARAMETER"

	// CodeDuplicateParameter indicates one edge binds a parameter name twice
	// (as "name" and ":name"), or two edges bind the same name while strict
	// parameter checking is enabled.
	CodeDuplicateParameter ErrorCode = "DUPLICATE_PARAMETER"
)

// Sentinels for errors.Is. They match any *Error with the same Code.
var (
	ErrDuplicateAlias       = &Error{Code: CodeDuplicateAlias}
	ErrUnknownAlias         = &Error{Code: CodeUnknownAlias}
	ErrNoRootTable          = &Error{Code: CodeNoRootTable}
	ErrPKFieldNotFound      = &Error{Code: CodePKFieldNotFound}
	ErrPKValueMissing       = &Error{Code: CodePKValueMissing}
	ErrUnknownConditionType = &Error{Code: CodeUnknownConditionType}
	ErrNoConnection         = &Error{Code: CodeNoConnection}
	ErrInvalidEdge          = &Error{Code: CodeInvalidEdge}
	ErrUnboundParameter     = &Error{Code: CodeUnboundParameter}
	ErrDuplicateParameter   = &Error{Code: CodeDuplicateParameter}
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	if e.Alias != "" {
		return fmt.Sprintf("%s: %s (alias=%s)", e.Code, e.Message, e.Alias)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError creates an Error with a formatted message.
func NewError(code ErrorCode, alias, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Alias:   alias,
	}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}
