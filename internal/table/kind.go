package table

import (
	"fmt"
	"strings"
)

// Kind is the declared type of a column.
type Kind uint8

const (
	String Kind = iota
	Category
	Int
	Float
	Date
)

var kindNames = [...]string{
	String:   "string",
	Category: "category",
	Int:      "int",
	Float:    "float",
	Date:     "date",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Numeric reports whether values of this kind take part in arithmetic.
func (k Kind) Numeric() bool { return k == Int || k == Float }

// ParseKind maps a kind name ("int", "float", "date", ...) to a Kind.
// A few common aliases are accepted ("integer", "number", "text", ...).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "text", "str":
		return String, nil
	case "category", "categorical", "enum":
		return Category, nil
	case "int", "integer", "bigint":
		return Int, nil
	case "float", "number", "numeric", "double":
		return Float, nil
	case "date", "datetime", "timestamp":
		return Date, nil
	}
	return String, fmt.Errorf("table: unknown kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
