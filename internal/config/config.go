// Package config loads the layered configuration of a tabjobs run.
//
// Precedence, highest first: explicitly set CLI flags, TABJOBS_ environment
// variables, the YAML config file, built-in defaults. Nested keys are spelled
// with "__" in environment variables, e.g. TABJOBS_STORE__KIND=sqlite or
// TABJOBS_JOBS__CRYPTO__WINDOW=7.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "TABJOBS_"

// Config is the full run configuration.
type Config struct {
	Seed      uint64        `koanf:"seed"`
	LogLevel  string        `koanf:"log_level"`
	LogFormat string        `koanf:"log_format"`
	Parallel  int           `koanf:"parallel"`
	Store     StoreConfig   `koanf:"store"`
	Report    ReportConfig  `koanf:"report"`
	Metrics   MetricsConfig `koanf:"metrics"`
	Jobs      JobsConfig    `koanf:"jobs"`
}

// StoreConfig selects the Artifact Store backend.
type StoreConfig struct {
	Kind   string `koanf:"kind"`
	Dir    string `koanf:"dir"`
	DSN    string `koanf:"dsn"`
	Prefix string `koanf:"prefix"`
	Format string `koanf:"format"`
}

// ReportConfig selects the Report Renderer.
type ReportConfig struct {
	Kind   string  `koanf:"kind"`
	Dir    string  `koanf:"dir"`
	Width  float64 `koanf:"width"`
	Height float64 `koanf:"height"`
	Format string  `koanf:"format"`
}

// MetricsConfig selects the metrics backend: none, prompush or datadog.
type MetricsConfig struct {
	Backend        string `koanf:"backend"`
	PushgatewayURL string `koanf:"pushgateway_url"`
	DatadogAddr    string `koanf:"datadog_addr"`
	Namespace      string `koanf:"namespace"`
}

// JobsConfig holds per-job settings.
type JobsConfig struct {
	Sales     SalesConfig     `koanf:"sales"`
	Crypto    CryptoConfig    `koanf:"crypto"`
	Users     UsersConfig     `koanf:"users"`
	MLPrep    MLPrepConfig    `koanf:"mlprep"`
	Incidents IncidentsConfig `koanf:"incidents"`
}

type SalesConfig struct {
	Rows      int `koanf:"rows"`
	Precision int `koanf:"precision"`
}

type CryptoConfig struct {
	Rows      int    `koanf:"rows"`
	Window    int    `koanf:"window"`
	Start     string `koanf:"start"`
	Precision int    `koanf:"precision"`
}

type UsersConfig struct {
	Rows     int    `koanf:"rows"`
	MaskKeep int    `koanf:"mask_keep"`
	Fill     string `koanf:"fill"`
	Preview  int    `koanf:"preview"`
}

type MLPrepConfig struct {
	Rows int `koanf:"rows"`
	Bins int `koanf:"bins"`
}

type IncidentsConfig struct {
	Rows          int      `koanf:"rows"`
	SeverityOrder []string `koanf:"severity_order"`
}

// Defaults returns the built-in configuration layer.
func Defaults() map[string]any {
	return map[string]any{
		"seed":                          42,
		"log_level":                     "info",
		"log_format":                    "console",
		"parallel":                      1,
		"store.kind":                    "file",
		"store.dir":                     "out/data",
		"store.format":                  "csv",
		"report.kind":                   "png",
		"report.dir":                    "out/reports",
		"report.width":                  8.0,
		"report.height":                 5.0,
		"report.format":                 "txt",
		"metrics.backend":               "none",
		"metrics.namespace":             "tabjobs.",
		"jobs.sales.rows":               100,
		"jobs.sales.precision":          2,
		"jobs.crypto.rows":              50,
		"jobs.crypto.window":            5,
		"jobs.crypto.start":             "2024-01-01",
		"jobs.crypto.precision":         2,
		"jobs.users.rows":               40,
		"jobs.users.mask_keep":          1,
		"jobs.users.fill":               "N/A",
		"jobs.users.preview":            5,
		"jobs.mlprep.rows":              200,
		"jobs.mlprep.bins":              10,
		"jobs.incidents.rows":           200,
		"jobs.incidents.severity_order": []string{"Low", "Medium", "High"},
	}
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"seed":            "seed",
	"log-level":       "log_level",
	"parallel":        "parallel",
	"store":           "store.kind",
	"store-dir":       "store.dir",
	"dsn":             "store.dsn",
	"report":          "report.kind",
	"report-dir":      "report.dir",
	"metrics-backend": "metrics.backend",
}

// BindFlags defines the persistent flags Load understands on fs.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file")
	fs.Uint64("seed", 42, "seed for fixture generation")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.Int("parallel", 1, "number of jobs run concurrently")
	fs.String("store", "file", "artifact store kind")
	fs.String("store-dir", "out/data", "root directory of the file store")
	fs.String("dsn", "", "connection string of SQL stores")
	fs.String("report", "png", "report renderer kind")
	fs.String("report-dir", "out/reports", "output directory of rendered reports")
	fs.String("metrics-backend", "none", "metrics backend: none, prompush, datadog")
}

// Load layers defaults, the optional YAML file at path, environment
// variables and the explicitly set flags of fs (which may be nil).
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("config: load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("config: load env: %w", err)
	}
	if fs != nil {
		if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		}), nil); err != nil {
			return Config{}, fmt.Errorf("config: load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

// envKey maps TABJOBS_JOBS__CRYPTO__WINDOW to jobs.crypto.window.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}
