package table

import (
	"cmp"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical text form of a date without a clock part.
const DateLayout = "2006-01-02"

type state uint8

const (
	valid state = iota
	missing
	sentinel
)

// Value is a single typed cell. A Value is valid, missing, or a sentinel.
//
// A sentinel is an explicit "unknown" placeholder carrying a label. It is
// produced when a missing cell is replaced with a literal that cannot be
// represented in the column's kind ("N/A" in a date column). Numeric code
// treats sentinels like missing values; a sentinel never reads as zero.
//
// The zero Value is a missing String.
type Value struct {
	kind Kind
	st   state
	s    string
	i    int64
	f    float64
	t    time.Time
}

func StringValue(s string) Value { return Value{kind: String, s: s} }
func CategoryValue(s string) Value { return Value{kind: Category, s: s} }
func IntValue(i int64) Value { return Value{kind: Int, i: i} }

// FloatValue returns a valid float, or a missing float for NaN.
func FloatValue(f float64) Value {
	if math.IsNaN(f) {
		return Missing(Float)
	}
	return Value{kind: Float, f: f}
}

func DateValue(t time.Time) Value { return Value{kind: Date, t: t} }

// Missing returns the missing-value marker of kind k.
func Missing(k Kind) Value { return Value{kind: k, st: missing} }

// Sentinel returns an explicit placeholder of kind k rendered as label.
func Sentinel(k Kind, label string) Value { return Value{kind: k, st: sentinel, s: label} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsMissing() bool { return v.st == missing }
func (v Value) IsSentinel() bool { return v.st == sentinel }
func (v Value) IsValid() bool { return v.st == valid }

// Float returns the numeric value of a valid Int or Float.
func (v Value) Float() (float64, bool) {
	if v.st != valid {
		return 0, false
	}
	switch v.kind {
	case Int:
		return float64(v.i), true
	case Float:
		return v.f, true
	}
	return 0, false
}

// Int returns the integer payload of a valid Int.
func (v Value) Int() (int64, bool) {
	if v.st != valid || v.kind != Int {
		return 0, false
	}
	return v.i, true
}

// Time returns the payload of a valid Date.
func (v Value) Time() (time.Time, bool) {
	if v.st != valid || v.kind != Date {
		return time.Time{}, false
	}
	return v.t, true
}

// String renders the canonical text of the value. Missing values render
// as the empty string and sentinels as their label.
func (v Value) String() string {
	switch v.st {
	case missing:
		return ""
	case sentinel:
		return v.s
	}
	switch v.kind {
	case Int:
		return strconv.FormatInt(v.i, 10)
	case Float:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case Date:
		return FormatDate(v.t)
	}
	return v.s
}

// FormatDate renders t as 2006-01-02 when it carries no clock part and as
// RFC 3339 otherwise.
func FormatDate(t time.Time) string {
	if t.Location() == time.UTC && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(DateLayout)
	}
	return t.Format(time.RFC3339Nano)
}

// Equal reports whether two values have the same kind, state and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind || v.st != o.st {
		return false
	}
	switch v.st {
	case missing:
		return true
	case sentinel:
		return v.s == o.s
	}
	switch v.kind {
	case Int:
		return v.i == o.i
	case Float:
		return v.f == o.f
	case Date:
		return v.t.Equal(o.t)
	}
	return v.s == o.s
}

// Compare orders values of the same kind. Valid values come first in their
// natural order, then sentinels by label, then missing values.
func (v Value) Compare(o Value) int {
	if c := cmp.Compare(v.st, o.st); c != 0 {
		return c
	}
	switch v.st {
	case missing:
		return 0
	case sentinel:
		return strings.Compare(v.s, o.s)
	}
	switch v.kind {
	case Int:
		if o.kind == Float {
			return cmp.Compare(float64(v.i), o.f)
		}
		return cmp.Compare(v.i, o.i)
	case Float:
		if o.kind == Int {
			return cmp.Compare(v.f, float64(o.i))
		}
		return cmp.Compare(v.f, o.f)
	case Date:
		return v.t.Compare(o.t)
	}
	return strings.Compare(v.s, o.s)
}

// AppendKey appends a byte encoding of v that is equal for equal values.
// It is used for hashing dedup and group keys.
func (v Value) AppendKey(b []byte) []byte {
	b = append(b, byte(v.st))
	if v.st == missing {
		return b
	}
	return append(b, v.String()...)
}
