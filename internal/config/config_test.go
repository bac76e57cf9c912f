package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tabjobs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

var known = Known{Stores: []string{"file", "sqlite"}, Renderers: []string{"png", "text"}}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, "file", cfg.Store.Kind)
	assert.Equal(t, 5, cfg.Jobs.Crypto.Window)
	assert.Equal(t, "N/A", cfg.Jobs.Users.Fill)
	assert.Equal(t, []string{"Low", "Medium", "High"}, cfg.Jobs.Incidents.SeverityOrder)
	assert.Empty(t, Validate(cfg, known))
}

// TestLoadPrecedence verifies flags > env > file > defaults, including
// nested keys spelled with "__" in environment variables.
func TestLoadPrecedence(t *testing.T) {
	path := writeYAML(t, `
seed: 7
store:
  kind: sqlite
  dsn: "file:a.db"
jobs:
  crypto:
    window: 9
    rows: 30
  incidents:
    severity_order: [High, Low]
`)
	t.Setenv("TABJOBS_JOBS__CRYPTO__WINDOW", "3")
	t.Setenv("TABJOBS_STORE__DSN", "file:b.db")
	t.Setenv("TABJOBS_SEED", "8")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--seed", "9", "--report", "text"}))

	cfg, err := Load(path, fs)
	require.NoError(t, err)

	assert.Equal(t, uint64(9), cfg.Seed, "flag wins over env and file")
	assert.Equal(t, 3, cfg.Jobs.Crypto.Window, "env wins over file")
	assert.Equal(t, 30, cfg.Jobs.Crypto.Rows, "file wins over defaults")
	assert.Equal(t, "file:b.db", cfg.Store.DSN)
	assert.Equal(t, "sqlite", cfg.Store.Kind)
	assert.Equal(t, "text", cfg.Report.Kind)
	assert.Equal(t, "out/reports", cfg.Report.Dir, "unset flags keep lower layers")
	assert.Equal(t, []string{"High", "Low"}, cfg.Jobs.Incidents.SeverityOrder)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestValidateReportsIssues(t *testing.T) {
	t.Parallel()

	cfg, err := Load("", nil)
	require.NoError(t, err)

	cfg.LogLevel = "chatty"
	cfg.Store.Kind = "sqlite"
	cfg.Report.Kind = "svg"
	cfg.Metrics.Backend = "prompush"
	cfg.Jobs.Sales.Rows = 0
	cfg.Jobs.Crypto.Window = 0
	cfg.Jobs.Crypto.Start = "01/02/2024"
	cfg.Jobs.Users.MaskKeep = -1
	cfg.Jobs.Incidents.SeverityOrder = []string{"Low", "Low"}

	issues := Validate(cfg, known)
	require.True(t, HasErrors(issues))

	paths := map[string]IssueSeverity{}
	for _, i := range issues {
		paths[i.Path] = i.Severity
	}
	for _, p := range []string{
		"log_level", "store.dsn", "report.kind", "metrics.pushgateway_url",
		"jobs.sales.rows", "jobs.crypto.window", "jobs.crypto.start",
		"jobs.users.mask_keep", "jobs.incidents.severity_order[1]",
	} {
		assert.Equal(t, SeverityError, paths[p], p)
	}
}

func TestValidateWarnings(t *testing.T) {
	t.Parallel()

	cfg, err := Load("", nil)
	require.NoError(t, err)
	cfg.Jobs.Crypto.Window = 100
	cfg.Jobs.Users.Preview = 0

	issues := Validate(cfg, Known{})
	assert.False(t, HasErrors(issues))
	require.Len(t, issues, 2)
	assert.Equal(t, "warning at jobs.crypto.window: window 100 exceeds the 50 generated rows; every mean covers a prefix", issues[0].Error())
}
