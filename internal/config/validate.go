package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path is the dotted config
// key, e.g. "jobs.crypto.window".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Known lists the registered store and renderer kinds. An empty list skips
// the corresponding check.
type Known struct {
	Stores    []string
	Renderers []string
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	return slices.ContainsFunc(issues, func(i Issue) bool { return i.Severity == SeverityError })
}

// Validate performs static checks over a loaded Config. It does not mutate
// cfg; callers decide whether warnings are fatal.
func Validate(cfg Config, known Known) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		add(SeverityError, "log_level", "unknown level %q; use debug, info, warn or error", cfg.LogLevel)
	}
	if !slices.Contains([]string{"json", "console"}, cfg.LogFormat) {
		add(SeverityError, "log_format", "unknown format %q; use json or console", cfg.LogFormat)
	}
	if cfg.Parallel < 0 {
		add(SeverityError, "parallel", "must be >= 0, got %d", cfg.Parallel)
	}

	// Store.
	s := cfg.Store
	if len(known.Stores) > 0 && !slices.Contains(known.Stores, s.Kind) {
		add(SeverityError, "store.kind", "unsupported kind %q (registered: %s)", s.Kind, strings.Join(known.Stores, ", "))
	}
	switch s.Kind {
	case "file":
		if strings.TrimSpace(s.Dir) == "" {
			add(SeverityError, "store.dir", "file store needs a directory")
		}
		if !slices.Contains([]string{"", "csv", "json"}, s.Format) {
			add(SeverityError, "store.format", "unknown table format %q; use csv or json", s.Format)
		}
	case "sqlite", "postgres", "mysql", "mssql":
		if strings.TrimSpace(s.DSN) == "" {
			add(SeverityError, "store.dsn", "%s store needs a DSN", s.Kind)
		}
		if s.Dir != "" && s.Dir != Defaults()["store.dir"] {
			add(SeverityWarning, "store.dir", "ignored by the %s store", s.Kind)
		}
	}

	// Report.
	r := cfg.Report
	if len(known.Renderers) > 0 && !slices.Contains(known.Renderers, r.Kind) {
		add(SeverityError, "report.kind", "unsupported kind %q (registered: %s)", r.Kind, strings.Join(known.Renderers, ", "))
	}
	if strings.TrimSpace(r.Dir) == "" {
		add(SeverityError, "report.dir", "must not be empty")
	}
	if r.Width < 0 || r.Height < 0 {
		add(SeverityError, "report.width", "width and height must be >= 0")
	}
	if !slices.Contains([]string{"", "txt", "text", "md", "markdown"}, r.Format) {
		add(SeverityError, "report.format", "unknown text format %q; use txt or md", r.Format)
	}

	// Metrics.
	m := cfg.Metrics
	switch m.Backend {
	case "", "none":
	case "prompush":
		if m.PushgatewayURL == "" {
			add(SeverityError, "metrics.pushgateway_url", "prompush backend needs a Pushgateway URL")
		}
	case "datadog":
		if m.DatadogAddr == "" {
			add(SeverityError, "metrics.datadog_addr", "datadog backend needs a DogStatsD address")
		}
	default:
		add(SeverityError, "metrics.backend", "unknown backend %q; use none, prompush or datadog", m.Backend)
	}

	issues = append(issues, validateJobs(cfg.Jobs)...)
	return issues
}

func validateJobs(j JobsConfig) []Issue {
	var issues []Issue
	positive := func(path string, v int) {
		if v <= 0 {
			issues = append(issues, Issue{SeverityError, path, fmt.Sprintf("must be > 0, got %d", v)})
		}
	}
	precision := func(path string, v int) {
		if v < 0 || v > 10 {
			issues = append(issues, Issue{SeverityError, path, fmt.Sprintf("must be within [0, 10], got %d", v)})
		}
	}

	positive("jobs.sales.rows", j.Sales.Rows)
	precision("jobs.sales.precision", j.Sales.Precision)

	positive("jobs.crypto.rows", j.Crypto.Rows)
	positive("jobs.crypto.window", j.Crypto.Window)
	precision("jobs.crypto.precision", j.Crypto.Precision)
	if j.Crypto.Window > j.Crypto.Rows && j.Crypto.Rows > 0 {
		issues = append(issues, Issue{SeverityWarning, "jobs.crypto.window",
			fmt.Sprintf("window %d exceeds the %d generated rows; every mean covers a prefix", j.Crypto.Window, j.Crypto.Rows)})
	}
	if _, err := time.Parse(time.DateOnly, j.Crypto.Start); err != nil {
		issues = append(issues, Issue{SeverityError, "jobs.crypto.start", fmt.Sprintf("want YYYY-MM-DD, got %q", j.Crypto.Start)})
	}

	positive("jobs.users.rows", j.Users.Rows)
	if j.Users.MaskKeep < 0 {
		issues = append(issues, Issue{SeverityError, "jobs.users.mask_keep", fmt.Sprintf("must be >= 0, got %d", j.Users.MaskKeep)})
	}
	if j.Users.Preview <= 0 {
		issues = append(issues, Issue{SeverityWarning, "jobs.users.preview", "no preview table will be rendered"})
	}

	positive("jobs.mlprep.rows", j.MLPrep.Rows)
	positive("jobs.mlprep.bins", j.MLPrep.Bins)
	if j.MLPrep.Rows == 1 {
		issues = append(issues, Issue{SeverityWarning, "jobs.mlprep.rows", "a single row has a degenerate scaling range"})
	}

	positive("jobs.incidents.rows", j.Incidents.Rows)
	order := j.Incidents.SeverityOrder
	if len(order) == 0 {
		issues = append(issues, Issue{SeverityError, "jobs.incidents.severity_order", "must list at least one severity"})
	}
	seen := make(map[string]struct{}, len(order))
	for i, s := range order {
		path := fmt.Sprintf("jobs.incidents.severity_order[%d]", i)
		if strings.TrimSpace(s) == "" {
			issues = append(issues, Issue{SeverityError, path, "must not be empty"})
			continue
		}
		if _, dup := seen[s]; dup {
			issues = append(issues, Issue{SeverityError, path, fmt.Sprintf("duplicate severity %q", s)})
		}
		seen[s] = struct{}{}
	}
	return issues
}
