// Package window computes trailing-window aggregates over ordered numeric
// sequences.
//
// Windows have a minimum period of one: position i aggregates the values in
// [max(0, i-w+1), i], so the window grows at the start of the sequence and the
// output always has the input's length. NaN marks a missing observation; it
// is skipped, and a window holding only NaN yields NaN. Every function runs in
// linear time.
package window

import (
	"math"

	"tabjobs/internal/table"
)

// Func selects the aggregate.
type Func string

const (
	Mean Func = "mean"
	Sum  Func = "sum"
	Min  Func = "min"
	Max  Func = "max"
)

func invalid(w int) error {
	return table.Errorf("rolling", table.ErrInvalidWindow, "", "window must be >= 1, got %d", w)
}

// Rolling dispatches to the aggregate named by fn.
func Rolling(seq []float64, w int, fn Func) ([]float64, error) {
	switch fn {
	case Mean, "":
		return RollingMean(seq, w)
	case Sum:
		return RollingSum(seq, w)
	case Min:
		return RollingMin(seq, w)
	case Max:
		return RollingMax(seq, w)
	}
	return nil, table.Errorf("rolling", table.ErrInvalidWindow, "", "unknown function %q", fn)
}

// RollingMean returns the trailing mean of each window.
func RollingMean(seq []float64, w int) ([]float64, error) {
	return runningSum(seq, w, true)
}

// RollingSum returns the trailing sum of each window.
func RollingSum(seq []float64, w int) ([]float64, error) {
	return runningSum(seq, w, false)
}

func runningSum(seq []float64, w int, mean bool) ([]float64, error) {
	if w < 1 {
		return nil, invalid(w)
	}
	out := make([]float64, len(seq))
	var (
		acc neumaier
		n   int
	)
	for i, v := range seq {
		if !math.IsNaN(v) {
			acc.add(v)
			n++
		}
		if j := i - w; j >= 0 && !math.IsNaN(seq[j]) {
			acc.add(-seq[j])
			n--
		}
		switch {
		case n == 0:
			out[i] = math.NaN()
			acc = neumaier{}
		case mean:
			out[i] = acc.value() / float64(n)
		default:
			out[i] = acc.value()
		}
	}
	return out, nil
}

// neumaier is a compensated running sum. The compensation term carries the
// low-order bits lost when values of very different magnitude meet, so a
// large value leaving the window does not wipe out the small ones.
type neumaier struct {
	sum, comp float64
}

func (a *neumaier) add(x float64) {
	t := a.sum + x
	if math.Abs(a.sum) >= math.Abs(x) {
		a.comp += (a.sum - t) + x
	} else {
		a.comp += (x - t) + a.sum
	}
	a.sum = t
}

func (a *neumaier) value() float64 { return a.sum + a.comp }

// RollingMin returns the trailing minimum of each window.
func RollingMin(seq []float64, w int) ([]float64, error) {
	return extreme(seq, w, func(a, b float64) bool { return a <= b })
}

// RollingMax returns the trailing maximum of each window.
func RollingMax(seq []float64, w int) ([]float64, error) {
	return extreme(seq, w, func(a, b float64) bool { return a >= b })
}

// extreme keeps a monotonic deque of indexes; the head is the window's best.
func extreme(seq []float64, w int, better func(a, b float64) bool) ([]float64, error) {
	if w < 1 {
		return nil, invalid(w)
	}
	out := make([]float64, len(seq))
	dq := make([]int, 0, min(w, len(seq)))
	head := 0
	for i, v := range seq {
		if head < len(dq) && dq[head] <= i-w {
			head++
		}
		if !math.IsNaN(v) {
			for len(dq) > head && better(v, seq[dq[len(dq)-1]]) {
				dq = dq[:len(dq)-1]
			}
			dq = append(dq, i)
		}
		if head == len(dq) {
			out[i] = math.NaN()
		} else {
			out[i] = seq[dq[head]]
		}
		if head > 0 && head == len(dq) {
			dq, head = dq[:0], 0
		}
	}
	return out, nil
}
