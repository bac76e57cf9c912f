// Package store persists job artifacts: raw input batches, processed tables
// and small summaries (statistics, encoding maps, cross tabs).
//
// Backends register a Factory under a kind at init time; callers open a
// Store with New and never import a backend directly. Importing
// tabjobs/internal/store/all enables every built-in backend.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"tabjobs/internal/table"
)

// ErrNotFound is returned by Load and LoadSummary for unknown identifiers.
var ErrNotFound = errors.New("store: artifact not found")

// Store reads and writes artifacts by identifier. Save and SaveSummary
// replace any previous artifact with the same identifier.
type Store interface {
	// Load returns the raw rows of a saved table, in saved order.
	Load(ctx context.Context, id string) (table.Raw, error)
	// Save persists t.
	Save(ctx context.Context, t table.Table, id string) error
	// SaveSummary persists a serializable value.
	SaveSummary(ctx context.Context, v any, id string) error
	// LoadSummary decodes a saved summary into v.
	LoadSummary(ctx context.Context, id string, v any) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Kind string
	// Dir is the root directory of the file backend.
	Dir string
	// DSN is the connection string of SQL backends.
	DSN string
	// Prefix is prepended to SQL table names.
	Prefix string
	// Format is the default table format of the file backend: csv or json.
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

// Factory opens a Store.
type Factory func(ctx context.Context, cfg Config) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind. It is typically called
// from a backend package's init function; registering a kind twice replaces
// the earlier factory.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens the backend named by cfg.Kind.
func New(ctx context.Context, cfg Config) (Store, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("store: unsupported kind %q (registered: %s)", cfg.Kind, strings.Join(ListKinds(), ", "))
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted.
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

var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// CheckID rejects identifiers that could escape a directory or a table name.
func CheckID(id string) error {
	if !validID.MatchString(id) || strings.Contains(id, "..") {
		return fmt.Errorf("store: invalid artifact id %q", id)
	}
	return nil
}

// TableName maps an identifier to a SQL table name: extension dropped,
// other separators folded to underscores, prefix prepended.
func TableName(prefix, id string) string {
	if i := strings.LastIndexByte(id, '.'); i > 0 {
		id = id[:i]
	}
	id = strings.NewReplacer(".", "_", "-", "_").Replace(id)
	return prefix + id
}
