// Package text renders charts as plain-text or Markdown tables using
// go-pretty. Every chart kind has a tabular form: bar charts list one row
// per label, line charts one row per position, histograms one row per bin.
package text

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	ptext "github.com/jedib0t/go-pretty/v6/text"
	"go.uber.org/zap"

	"tabjobs/internal/report"
	tab "tabjobs/internal/table"
)

func init() {
	report.Register("text", func(cfg report.Config) (report.Renderer, error) {
		return New(cfg)
	})
}

// Renderer writes <dir>/<id>.txt or <dir>/<id>.md.
type Renderer struct {
	dir      string
	markdown bool
	log      *zap.Logger
}

// New validates the output format and creates the output directory.
func New(cfg report.Config) (*Renderer, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, fmt.Errorf("text report: dir must not be empty")
	}
	r := &Renderer{dir: cfg.Dir, log: cfg.Logger()}
	switch strings.ToLower(cfg.Format) {
	case "", "txt", "text":
	case "md", "markdown":
		r.markdown = true
	default:
		return nil, fmt.Errorf("text report: unsupported format %q", cfg.Format)
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("text report: mkdir: %w", err)
	}
	return r, nil
}

// Render writes the tabular form of c.
func (r *Renderer) Render(ctx context.Context, c report.Chart) (report.Handle, error) {
	if err := report.Validate(c); err != nil {
		return report.Handle{}, err
	}
	if err := ctx.Err(); err != nil {
		return report.Handle{}, err
	}
	ext := ".txt"
	if r.markdown {
		ext = ".md"
	}
	path := filepath.Join(r.dir, c.ID+ext)
	out := Format(c, r.markdown)
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return report.Handle{}, fmt.Errorf("text report: write %s: %w", c.ID, err)
	}
	r.log.Debug("report: rendered", zap.String("id", c.ID), zap.String("kind", string(c.Kind)), zap.String("path", path))
	return report.Handle{ID: c.ID, Path: path}, nil
}

// Format renders c to a string. c must be valid.
func Format(c report.Chart, markdown bool) string {
	style := table.StyleLight
	style.Format.Header = ptext.FormatDefault
	style.Format.Footer = ptext.FormatDefault

	w := table.NewWriter()
	w.SetStyle(style)
	if c.Title != "" {
		w.SetTitle(c.Title)
	}
	header, rows := tabulate(c)
	w.AppendHeader(header)
	for _, row := range rows {
		w.AppendRow(row)
	}
	for _, l := range c.RefLines {
		w.AppendFooter(table.Row{l.Label, formatFloat(l.Y)})
	}

	var out string
	if markdown {
		out = w.RenderMarkdown()
		if c.Title != "" {
			out = "## " + c.Title + "\n\n" + out
		}
	} else {
		out = w.Render()
	}
	return out + "\n"
}

func tabulate(c report.Chart) (table.Row, []table.Row) {
	switch c.Kind {
	case report.Table:
		return tableRows(c.Table)
	case report.Hist:
		return histRows(c)
	}
	x := c.XLabel
	if x == "" {
		x = "label"
	}
	header := table.Row{x}
	for _, s := range c.Series {
		header = append(header, s.Name)
	}
	n := 0
	for _, s := range c.Series {
		n = max(n, len(s.Values))
	}
	rows := make([]table.Row, n)
	for i := range rows {
		label := strconv.Itoa(i)
		if i < len(c.Labels) {
			label = c.Labels[i]
		}
		row := table.Row{label}
		for _, s := range c.Series {
			cell := ""
			if i < len(s.Values) {
				cell = formatFloat(s.Values[i])
			}
			row = append(row, cell)
		}
		rows[i] = row
	}
	return header, rows
}

func histRows(c report.Chart) (table.Row, []table.Row) {
	header := table.Row{"series", "from", "to", "count"}
	var rows []table.Row
	for _, s := range c.Series {
		for _, b := range report.Histogram(s.Values, c.BinCount()) {
			rows = append(rows, table.Row{s.Name, formatFloat(b.Lo), formatFloat(b.Hi), b.Count})
		}
	}
	return header, rows
}

func tableRows(t tab.Table) (table.Row, []table.Row) {
	header := make(table.Row, 0, t.NumCols())
	for _, n := range t.Names() {
		header = append(header, n)
	}
	rows := make([]table.Row, t.NumRows())
	for i := range rows {
		vals := t.Row(i)
		row := make(table.Row, len(vals))
		for j, v := range vals {
			row[j] = formatValue(v)
		}
		rows[i] = row
	}
	return header, rows
}

func formatValue(v tab.Value) string {
	if v.IsMissing() {
		return "NULL"
	}
	return v.String()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
