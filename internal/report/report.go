// Package report turns finished summaries into charts and tables.
//
// A Renderer receives a Chart, never raw data: the caller has already
// aggregated, ordered and labeled everything. Renderers register under a
// kind like store backends; import the renderer packages (png, text) to
// make them available to New.
package report

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"tabjobs/internal/table"
)

// Kind is the visual form of a chart.
type Kind string

const (
	Bar   Kind = "bar"
	Line  Kind = "line"
	Hist  Kind = "hist"
	Table Kind = "table"
)

// DefaultBins is the histogram bin count when Chart.Bins is zero.
const DefaultBins = 10

// Series is one named sequence of values. For bar charts Values align with
// Chart.Labels; for line charts they are plotted against their index.
type Series struct {
	Name   string
	Values []float64
}

// RefLine is a horizontal reference line.
type RefLine struct {
	Label string
	Y     float64
}

// Chart describes one rendered artifact.
type Chart struct {
	ID     string
	Kind   Kind
	Title  string
	XLabel string
	YLabel string
	// Labels name bar categories or line x positions.
	Labels   []string
	Series   []Series
	RefLines []RefLine
	Bins     int
	// Table is the content of Table charts.
	Table table.Table
}

// Handle identifies a rendered artifact.
type Handle struct {
	ID   string
	Path string
}

// Renderer renders charts to some medium.
type Renderer interface {
	Render(ctx context.Context, c Chart) (Handle, error)
}

// Config selects and configures a renderer.
type Config struct {
	Kind string
	Dir  string
	// Width and Height are in inches.
	Width  float64
	Height float64
	// Format is the text renderer output: txt or md.
	Format string
	Log    *zap.Logger
}

// Logger returns the configured logger or a no-op one.
func (c Config) Logger() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}

// Factory builds a Renderer.
type Factory func(cfg Config) (Renderer, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a renderer available under kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New builds the renderer named by cfg.Kind.
func New(cfg Config) (Renderer, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("report: unsupported kind %q (registered: %s)", cfg.Kind, strings.Join(ListKinds(), ", "))
	}
	return f(cfg)
}

// ListKinds returns the registered renderer kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// Validate checks that c is renderable.
func Validate(c Chart) error {
	if !validID.MatchString(c.ID) {
		return fmt.Errorf("report: invalid chart id %q", c.ID)
	}
	switch c.Kind {
	case Bar:
		if len(c.Series) == 0 || len(c.Labels) == 0 {
			return fmt.Errorf("report: %s: bar chart needs labels and a series", c.ID)
		}
		for _, s := range c.Series {
			if len(s.Values) != len(c.Labels) {
				return fmt.Errorf("report: %s: series %q has %d values for %d labels", c.ID, s.Name, len(s.Values), len(c.Labels))
			}
		}
	case Line, Hist:
		if len(c.Series) == 0 {
			return fmt.Errorf("report: %s: %s chart needs a series", c.ID, c.Kind)
		}
		for _, s := range c.Series {
			if len(s.Values) == 0 {
				return fmt.Errorf("report: %s: series %q is empty", c.ID, s.Name)
			}
		}
		if c.Kind == Hist && c.Bins < 0 {
			return fmt.Errorf("report: %s: bins must be positive", c.ID)
		}
	case Table:
		if c.Table.NumCols() == 0 {
			return fmt.Errorf("report: %s: table chart has no columns", c.ID)
		}
	default:
		return fmt.Errorf("report: %s: unknown chart kind %q", c.ID, c.Kind)
	}
	return nil
}

// BinCount returns c.Bins or DefaultBins.
func (c Chart) BinCount() int {
	if c.Bins > 0 {
		return c.Bins
	}
	return DefaultBins
}

// Bin is one histogram bucket covering [Lo, Hi); the last bin is closed.
type Bin struct {
	Lo, Hi float64
	Count  int
}

// Histogram counts the finite values of vs into n equal-width bins over
// their range. A constant input yields one bin holding every value.
func Histogram(vs []float64, n int) []Bin {
	if n <= 0 {
		n = DefaultBins
	}
	finite := Finite(vs)
	if len(finite) == 0 {
		return nil
	}
	lo, hi := finite[0], finite[0]
	for _, v := range finite[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return []Bin{{Lo: lo, Hi: hi, Count: len(finite)}}
	}
	width := (hi - lo) / float64(n)
	bins := make([]Bin, n)
	for i := range bins {
		bins[i].Lo = lo + float64(i)*width
		bins[i].Hi = lo + float64(i+1)*width
	}
	bins[n-1].Hi = hi
	for _, v := range finite {
		i := int((v - lo) / width)
		if i >= n {
			i = n - 1
		}
		bins[i].Count++
	}
	return bins
}

// Finite returns the values of vs that are neither NaN nor infinite.
func Finite(vs []float64) []float64 {
	out := make([]float64, 0, len(vs))
	for _, v := range vs {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}
