// Package png renders charts to PNG images with gonum/plot. Table charts
// have no graphical form and are delegated to the text renderer.
package png

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"tabjobs/internal/report"
	"tabjobs/internal/report/text"
)

const (
	defaultWidth  = 8
	defaultHeight = 5
	// maxTicks bounds the labelled positions on a line chart's x axis.
	maxTicks = 10
)

func init() {
	report.Register("png", func(cfg report.Config) (report.Renderer, error) {
		return New(cfg)
	})
}

// Renderer writes <dir>/<id>.png.
type Renderer struct {
	dir    string
	width  vg.Length
	height vg.Length
	tables *text.Renderer
	log    *zap.Logger
}

// New creates the output directory and the fallback text renderer.
func New(cfg report.Config) (*Renderer, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, fmt.Errorf("png report: dir must not be empty")
	}
	w, h := cfg.Width, cfg.Height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	tables, err := text.New(report.Config{Dir: cfg.Dir, Format: cfg.Format, Log: cfg.Log})
	if err != nil {
		return nil, err
	}
	return &Renderer{
		dir:    cfg.Dir,
		width:  vg.Length(w) * vg.Inch,
		height: vg.Length(h) * vg.Inch,
		tables: tables,
		log:    cfg.Logger(),
	}, nil
}

// Render draws c and saves it.
func (r *Renderer) Render(ctx context.Context, c report.Chart) (report.Handle, error) {
	if err := report.Validate(c); err != nil {
		return report.Handle{}, err
	}
	if c.Kind == report.Table {
		return r.tables.Render(ctx, c)
	}
	if err := ctx.Err(); err != nil {
		return report.Handle{}, err
	}

	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = c.XLabel
	p.Y.Label.Text = c.YLabel
	p.Legend.Top = true

	var err error
	switch c.Kind {
	case report.Bar:
		err = addBars(p, c)
	case report.Line:
		err = addLines(p, c)
	case report.Hist:
		err = addHists(p, c)
	}
	if err != nil {
		return report.Handle{}, fmt.Errorf("png report: %s: %w", c.ID, err)
	}

	path := filepath.Join(r.dir, c.ID+".png")
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return report.Handle{}, fmt.Errorf("png report: mkdir: %w", err)
	}
	if err := p.Save(r.width, r.height, path); err != nil {
		return report.Handle{}, fmt.Errorf("png report: save %s: %w", c.ID, err)
	}
	r.log.Debug("report: rendered", zap.String("id", c.ID), zap.String("kind", string(c.Kind)), zap.String("path", path))
	return report.Handle{ID: c.ID, Path: path}, nil
}

// addBars draws grouped bars, one group per label, with each bar's value
// printed above it.
func addBars(p *plot.Plot, c report.Chart) error {
	n := len(c.Series)
	width := vg.Points(40 / float64(n))
	for i, s := range c.Series {
		vals := make(plotter.Values, len(s.Values))
		for j, v := range s.Values {
			if math.IsNaN(v) {
				v = 0
			}
			vals[j] = v
		}
		bars, err := plotter.NewBarChart(vals, width)
		if err != nil {
			return err
		}
		bars.Color = plotutil.Color(i)
		bars.LineStyle.Width = vg.Length(0)
		bars.Offset = width * vg.Length(float64(i)-float64(n-1)/2)
		p.Add(bars)
		if n > 1 {
			p.Legend.Add(s.Name, bars)
		}

		if n == 1 {
			labels, err := valueLabels(s.Values)
			if err != nil {
				return err
			}
			p.Add(labels)
		}
	}
	p.NominalX(c.Labels...)
	return addRefLines(p, c.RefLines, -0.5, float64(len(c.Labels))-0.5)
}

func valueLabels(vs []float64) (*plotter.Labels, error) {
	xys := make(plotter.XYs, len(vs))
	marks := make([]string, len(vs))
	for i, v := range vs {
		if math.IsNaN(v) {
			v, marks[i] = 0, "n/a"
		} else {
			marks[i] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		xys[i] = plotter.XY{X: float64(i), Y: v}
	}
	return plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: marks})
}

// addLines plots each series against its index; NaN points are skipped.
func addLines(p *plot.Plot, c report.Chart) error {
	n := 0
	for i, s := range c.Series {
		xys := make(plotter.XYs, 0, len(s.Values))
		for j, v := range s.Values {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				xys = append(xys, plotter.XY{X: float64(j), Y: v})
			}
		}
		if len(xys) == 0 {
			continue
		}
		l, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		l.LineStyle.Color = plotutil.Color(i)
		l.LineStyle.Width = vg.Points(1.5)
		p.Add(l)
		p.Legend.Add(s.Name, l)
		n = max(n, len(s.Values))
	}
	if len(c.Labels) > 0 {
		p.X.Tick.Marker = labelTicks(c.Labels)
	}
	return addRefLines(p, c.RefLines, 0, float64(max(n-1, 1)))
}

// labelTicks marks at most maxTicks evenly spaced labels.
func labelTicks(labels []string) plot.ConstantTicks {
	step := max(1, (len(labels)+maxTicks-1)/maxTicks)
	var ticks plot.ConstantTicks
	for i := 0; i < len(labels); i += step {
		ticks = append(ticks, plot.Tick{Value: float64(i), Label: labels[i]})
	}
	return ticks
}

func addHists(p *plot.Plot, c report.Chart) error {
	for i, s := range c.Series {
		vals := plotter.Values(report.Finite(s.Values))
		if len(vals) == 0 {
			continue
		}
		h, err := plotter.NewHist(vals, c.BinCount())
		if err != nil {
			return err
		}
		fill := plotutil.Color(i)
		if rgba, ok := fill.(color.RGBA); ok && len(c.Series) > 1 {
			rgba.A = 160
			fill = rgba
		}
		h.FillColor = fill
		p.Add(h)
		p.Legend.Add(s.Name, h)
	}
	return nil
}

// addRefLines draws dashed horizontal lines spanning [x0, x1].
func addRefLines(p *plot.Plot, refs []report.RefLine, x0, x1 float64) error {
	for _, ref := range refs {
		l, err := plotter.NewLine(plotter.XYs{{X: x0, Y: ref.Y}, {X: x1, Y: ref.Y}})
		if err != nil {
			return err
		}
		l.LineStyle.Color = color.RGBA{R: 200, A: 255}
		l.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
		l.LineStyle.Width = vg.Points(1)
		p.Add(l)
		p.Legend.Add(fmt.Sprintf("%s (%s)", ref.Label, strconv.FormatFloat(ref.Y, 'f', 2, 64)), l)
	}
	return nil
}
