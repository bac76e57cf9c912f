package table

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every failure returned by the core unwraps to one of these,
// so callers branch with errors.Is and read the detail with errors.As.
var (
	ErrCoercion          = errors.New("coercion error")
	ErrInvalidExpression = errors.New("invalid expression")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrDegenerateRange   = errors.New("degenerate range")
	ErrInvalidWindow     = errors.New("invalid window")
	ErrKeyNotFound       = errors.New("key not found")
	ErrUnordered         = errors.New("unordered input")
	ErrShape             = errors.New("shape mismatch")
)

// Error carries the context of a failed table operation.
type Error struct {
	Op     string // operation, e.g. "coerce", "encode"
	Kind   error  // one of the Err* kinds above
	Column string
	Row    int // -1 when the failure is not tied to a row
	Value  string
	Msg    string
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Column != "" {
		fmt.Fprintf(&b, ": column %q", e.Column)
	}
	if e.Row >= 0 {
		fmt.Fprintf(&b, " row %d", e.Row)
	}
	if e.Value != "" {
		fmt.Fprintf(&b, " value %q", e.Value)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Kind }

// Errorf builds an *Error that is not tied to a row.
func Errorf(op string, kind error, column, format string, args ...any) *Error {
	return &Error{Op: op, Kind: kind, Column: column, Row: -1, Msg: fmt.Sprintf(format, args...)}
}

// NotFound reports an absent column.
func NotFound(op, column string) *Error {
	return &Error{Op: op, Kind: ErrKeyNotFound, Column: column, Row: -1}
}
