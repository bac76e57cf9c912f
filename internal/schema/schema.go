// Package schema declares the expected shape of a raw batch: the ordered
// columns, their kinds, how unparsable cells are handled, and which literals
// stand for a missing value.
package schema

import (
	"fmt"
	"strings"

	"tabjobs/internal/table"
)

// OnError selects what the coercer does with a cell that does not parse as
// the declared kind.
type OnError string

const (
	// OnErrorMissing replaces the cell with the missing-value marker.
	OnErrorMissing OnError = "missing"
	// OnErrorDrop removes the whole row.
	OnErrorDrop OnError = "drop"
	// OnErrorFail aborts coercion with table.ErrCoercion.
	OnErrorFail OnError = "fail"
)

// DefaultMissing lists the raw literals read as a missing value when a
// schema does not set its own.
var DefaultMissing = []string{"", "NA", "N/A", "NaN", "nan", "null", "NULL", "None"}

// Column declares one expected column.
type Column struct {
	// Name is the column name in the typed table.
	Name string `json:"name" yaml:"name"`
	// Source is the raw header to read from; defaults to Name.
	Source string     `json:"source,omitempty" yaml:"source,omitempty"`
	Kind   table.Kind `json:"kind" yaml:"kind"`
	// OnError defaults to OnErrorMissing.
	OnError OnError `json:"on_error,omitempty" yaml:"on_error,omitempty"`
	// Layouts are extra time layouts tried before the canonical ones.
	Layouts []string `json:"layouts,omitempty" yaml:"layouts,omitempty"`
	// Nullable marks columns a missing-value policy may fill.
	Nullable bool `json:"nullable,omitempty" yaml:"nullable,omitempty"`
}

// SourceName returns the raw header this column reads from.
func (c Column) SourceName() string {
	if c.Source != "" {
		return c.Source
	}
	return c.Name
}

// Policy returns the effective error policy.
func (c Column) Policy() OnError {
	if c.OnError == "" {
		return OnErrorMissing
	}
	return c.OnError
}

// Schema is an ordered list of column declarations.
type Schema struct {
	Columns []Column `json:"columns" yaml:"columns"`
	// Missing overrides DefaultMissing when non-nil.
	Missing []string `json:"missing,omitempty" yaml:"missing,omitempty"`
}

// New builds a schema from column declarations.
func New(cols ...Column) Schema { return Schema{Columns: cols} }

// MissingSet returns the literals treated as missing.
func (s Schema) MissingSet() map[string]struct{} {
	lits := s.Missing
	if lits == nil {
		lits = DefaultMissing
	}
	out := make(map[string]struct{}, len(lits))
	for _, l := range lits {
		out[l] = struct{}{}
	}
	return out
}

// Lookup returns the declaration for the named column.
func (s Schema) Lookup(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Nullable returns the names of the columns declared nullable.
func (s Schema) Nullable() []string {
	var out []string
	for _, c := range s.Columns {
		if c.Nullable {
			out = append(out, c.Name)
		}
	}
	return out
}

// Validate checks names are non-empty and unique and policies are known.
func (s Schema) Validate() error {
	seen := make(map[string]struct{}, len(s.Columns))
	for i, c := range s.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("schema: column %d has an empty name", i)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("schema: duplicate column %q", c.Name)
		}
		seen[c.Name] = struct{}{}
		switch c.Policy() {
		case OnErrorMissing, OnErrorDrop, OnErrorFail:
		default:
			return fmt.Errorf("schema: column %q: unknown on_error %q", c.Name, c.OnError)
		}
	}
	return nil
}
