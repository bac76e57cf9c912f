// Package file implements the Artifact Store on a local directory.
//
// The extension of an identifier selects the format. Tables are written as
// CSV (default) or as a JSON array of records; summaries as JSON (default),
// YAML, or CSV when the summary is itself a table.Table. Writes go to a
// temporary file in the same directory and are renamed into place.
package file

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"tabjobs/internal/store"
	"tabjobs/internal/table"
)

const (
	extCSV  = ".csv"
	extJSON = ".json"
	extYAML = ".yaml"
	extYML  = ".yml"
)

var _ store.Store = (*Store)(nil)

func init() {
	store.Register("file", func(ctx context.Context, cfg store.Config) (store.Store, error) {
		return Open(cfg)
	})
}

// Store keeps artifacts as files under a root directory.
type Store struct {
	dir    string
	format string
	log    *zap.Logger
}

// Open creates the root directory if needed.
func Open(cfg store.Config) (*Store, error) {
	dir := strings.TrimSpace(cfg.Dir)
	if dir == "" {
		return nil, fmt.Errorf("file store: dir must not be empty")
	}
	format := strings.ToLower(strings.TrimPrefix(cfg.Format, "."))
	switch format {
	case "", "csv":
		format = extCSV
	case "json":
		format = extJSON
	default:
		return nil, fmt.Errorf("file store: unsupported table format %q", cfg.Format)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file store: mkdir: %w", err)
	}
	return &Store{dir: dir, format: format, log: cfg.Logger()}, nil
}

// Dir returns the root directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the file an identifier maps to, applying def when the
// identifier has no extension.
func (s *Store) Path(id, def string) string {
	if filepath.Ext(id) == "" {
		id += def
	}
	return filepath.Join(s.dir, id)
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// Save writes t as CSV or JSON records.
func (s *Store) Save(ctx context.Context, t table.Table, id string) error {
	if err := store.CheckID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.Path(id, s.format)
	var (
		buf bytes.Buffer
		err error
	)
	switch ext := filepath.Ext(path); ext {
	case extCSV:
		err = writeCSV(&buf, t.Raw())
	case extJSON:
		err = writeRecords(&buf, t)
	default:
		return fmt.Errorf("file store: unsupported table extension %q", ext)
	}
	if err != nil {
		return fmt.Errorf("file store: encode %s: %w", id, err)
	}
	if err := writeAtomic(path, buf.Bytes()); err != nil {
		return err
	}
	s.log.Debug("store: saved", zap.String("id", id), zap.String("path", path), zap.Int("rows", t.NumRows()))
	return nil
}

// Load reads a table saved by Save. An identifier without extension is
// looked up as CSV first, then JSON.
func (s *Store) Load(ctx context.Context, id string) (table.Raw, error) {
	if err := store.CheckID(id); err != nil {
		return table.Raw{}, err
	}
	if err := ctx.Err(); err != nil {
		return table.Raw{}, err
	}
	candidates := []string{filepath.Join(s.dir, id)}
	if filepath.Ext(id) == "" {
		candidates = []string{s.Path(id, extCSV), s.Path(id, extJSON)}
	}
	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return table.Raw{}, fmt.Errorf("file store: read %s: %w", id, err)
		}
		var r table.Raw
		switch ext := filepath.Ext(path); ext {
		case extCSV:
			r, err = readCSV(bytes.NewReader(data))
		case extJSON:
			r, err = readRecords(bytes.NewReader(data))
		default:
			return table.Raw{}, fmt.Errorf("file store: unsupported table extension %q", ext)
		}
		if err != nil {
			return table.Raw{}, fmt.Errorf("file store: decode %s: %w", id, err)
		}
		s.log.Debug("store: loaded", zap.String("id", id), zap.Int("rows", r.NumRows()))
		return r, nil
	}
	return table.Raw{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
}

// SaveSummary writes v as JSON, YAML, or CSV for table.Table values.
func (s *Store) SaveSummary(ctx context.Context, v any, id string) error {
	if err := store.CheckID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.Path(id, extJSON)
	var (
		data []byte
		err  error
	)
	t, isTable := v.(table.Table)
	switch ext := filepath.Ext(path); {
	case ext == extJSON && isTable:
		var buf bytes.Buffer
		err = writeRecords(&buf, t)
		data = buf.Bytes()
	case ext == extJSON:
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	case ext == extCSV && isTable:
		var buf bytes.Buffer
		err = writeCSV(&buf, t.Raw())
		data = buf.Bytes()
	case ext == extCSV:
		return fmt.Errorf("file store: csv summary %s needs a table, got %T", id, v)
	case isTable:
		return fmt.Errorf("file store: table summary %s must be .csv or .json", id)
	case ext == extYAML, ext == extYML:
		data, err = yaml.Marshal(v)
	default:
		return fmt.Errorf("file store: unsupported summary extension %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("file store: encode summary %s: %w", id, err)
	}
	if err := writeAtomic(path, data); err != nil {
		return err
	}
	s.log.Debug("store: saved summary", zap.String("id", id), zap.String("path", path))
	return nil
}

// LoadSummary decodes a JSON or YAML summary into v.
func (s *Store) LoadSummary(ctx context.Context, id string, v any) error {
	if err := store.CheckID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.Path(id, extJSON)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("file store: read %s: %w", id, err)
	}
	switch ext := filepath.Ext(path); ext {
	case extJSON:
		err = json.Unmarshal(data, v)
	case extYAML, extYML:
		err = yaml.Unmarshal(data, v)
	default:
		return fmt.Errorf("file store: cannot decode summary extension %q", ext)
	}
	if err != nil {
		return fmt.Errorf("file store: decode summary %s: %w", id, err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("file store: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("file store: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("file store: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file store: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("file store: rename: %w", err)
	}
	return nil
}

// writeCSV writes absent cells as empty fields.
func writeCSV(w io.Writer, r table.Raw) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(r.Header); err != nil {
		return err
	}
	rec := make([]string, len(r.Header))
	for _, row := range r.Rows {
		for j := range rec {
			rec[j] = ""
			if j < len(row) && !row[j].Missing {
				rec[j] = row[j].Text
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func readCSV(rd io.Reader) (table.Raw, error) {
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return table.Raw{}, nil
	}
	if err != nil {
		return table.Raw{}, err
	}
	r := table.Raw{Header: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return r, nil
		}
		if err != nil {
			return table.Raw{}, err
		}
		row := make([]table.Cell, len(rec))
		for j, f := range rec {
			row[j] = table.Text(f)
		}
		r.Rows = append(r.Rows, row)
	}
}

// writeRecords writes one object per row, keys in column order. Numbers are
// JSON numbers, missing cells null, sentinels their label.
func writeRecords(w io.Writer, t table.Table) error {
	cols := t.Columns()
	keys := make([][]byte, len(cols))
	for j, c := range cols {
		k, err := json.Marshal(c.Name)
		if err != nil {
			return err
		}
		keys[j] = k
	}
	var b []byte
	b = append(b, '[')
	for i := 0; i < t.NumRows(); i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, "\n  {"...)
		for j, c := range cols {
			if j > 0 {
				b = append(b, ", "...)
			}
			b = append(b, keys[j]...)
			b = append(b, ": "...)
			v, err := jsonValue(c.Values[i])
			if err != nil {
				return err
			}
			b = append(b, v...)
		}
		b = append(b, '}')
	}
	b = append(b, "\n]\n"...)
	_, err := w.Write(b)
	return err
}

func jsonValue(v table.Value) ([]byte, error) {
	switch {
	case v.IsMissing():
		return []byte("null"), nil
	case v.IsValid() && v.Kind() == table.Int:
		n, _ := v.Int()
		return strconv.AppendInt(nil, n, 10), nil
	case v.IsValid() && v.Kind() == table.Float:
		f, _ := v.Float()
		return strconv.AppendFloat(nil, f, 'f', -1, 64), nil
	}
	return json.Marshal(v.String())
}

// readRecords streams the array so that the key order of the first record
// becomes the header. Keys first seen in later records are appended.
func readRecords(rd io.Reader) (table.Raw, error) {
	dec := json.NewDecoder(rd)
	dec.UseNumber()
	if err := expectDelim(dec, '['); err != nil {
		return table.Raw{}, err
	}
	var (
		r     table.Raw
		index = map[string]int{}
	)
	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return table.Raw{}, err
		}
		row := make([]table.Cell, len(r.Header))
		for i := range row {
			row[i] = table.Null()
		}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return table.Raw{}, err
			}
			key, ok := tok.(string)
			if !ok {
				return table.Raw{}, fmt.Errorf("record key: unexpected %v", tok)
			}
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return table.Raw{}, err
			}
			cell, err := cellOf(raw)
			if err != nil {
				return table.Raw{}, fmt.Errorf("record %d key %q: %w", len(r.Rows), key, err)
			}
			j, seen := index[key]
			if !seen {
				j = len(r.Header)
				index[key] = j
				r.Header = append(r.Header, key)
				row = append(row, table.Null())
			}
			row[j] = cell
		}
		if err := expectDelim(dec, '}'); err != nil {
			return table.Raw{}, err
		}
		r.Rows = append(r.Rows, row)
	}
	return r, expectDelim(dec, ']')
}

func cellOf(raw json.RawMessage) (table.Cell, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return table.Cell{}, err
	}
	switch x := v.(type) {
	case nil:
		return table.Null(), nil
	case string:
		return table.Text(x), nil
	case json.Number:
		return table.Text(x.String()), nil
	case bool:
		return table.Text(strconv.FormatBool(x)), nil
	}
	return table.Cell{}, fmt.Errorf("nested value %s", raw)
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}
