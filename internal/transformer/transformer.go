// Package transformer defines the composable unit of table processing.
package transformer

import (
	"fmt"

	"tabjobs/internal/table"
)

// Step is a pure table-to-table operation. Implementations must not mutate
// their input.
type Step interface {
	Apply(table.Table) (table.Table, error)
}

// Func adapts a function to a Step.
type Func func(table.Table) (table.Table, error)

func (f Func) Apply(t table.Table) (table.Table, error) { return f(t) }

// Chain is an ordered list of steps. It stops at the first error.
type Chain []Step

func (c Chain) Apply(in table.Table) (table.Table, error) {
	out := in
	for i, s := range c {
		var err error
		if out, err = s.Apply(out); err != nil {
			return table.Table{}, fmt.Errorf("step %d (%T): %w", i, s, err)
		}
	}
	return out, nil
}
