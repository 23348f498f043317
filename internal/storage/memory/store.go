// Package memory provides an in-memory rowstore.Store used by unit tests
// and the `memory` backend for local development without credentials.
package memory

import (
	"context"
	"sync"

	"github.com/go-faster/errors"

	"github.com/sekarjagad/batik-store/internal/rowstore"
)

var _ rowstore.Store = (*Store)(nil)

// Store keeps tables in process memory behind a mutex.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*rowstore.Table
}

// New creates an empty Store.
func New() *Store {
	return &Store{tables: make(map[string]*rowstore.Table)}
}

// SetTable installs (or replaces) a table. Rows are copied, so the caller
// may keep mutating its slice.
func (s *Store) SetTable(t rowstore.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[t.Name] = copyTable(&t)
}

// ReadTable returns a snapshot copy of the named table.
func (s *Store) ReadTable(_ context.Context, name string) (rowstore.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[name]
	if !ok {
		return rowstore.Table{}, errors.Wrapf(rowstore.ErrTableNotFound, "read table %q", name)
	}
	return *copyTable(t), nil
}

// BatchUpdateCells applies all updates or none: every update is checked
// against the current tables before the first write happens.
func (s *Store) BatchUpdateCells(_ context.Context, updates []rowstore.CellUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	type target struct {
		row, col int
		table    *rowstore.Table
	}
	targets := make([]target, len(updates))
	for i, u := range updates {
		t, ok := s.tables[u.Table]
		if !ok {
			return errors.Wrapf(rowstore.ErrTableNotFound, "update table %q", u.Table)
		}
		col := t.ColumnIndex(u.Column)
		if col < 0 {
			return errors.Errorf("update table %q: unknown column %q", u.Table, u.Column)
		}
		if u.RowIndex < 0 || u.RowIndex >= len(t.Rows) {
			return errors.Errorf("update table %q: row %d out of range", u.Table, u.RowIndex)
		}
		targets[i] = target{row: u.RowIndex, col: col, table: t}
	}

	for i, u := range updates {
		tg := targets[i]
		row := tg.table.Rows[tg.row]
		for len(row) <= tg.col {
			row = append(row, "")
		}
		row[tg.col] = u.Value
		tg.table.Rows[tg.row] = row
	}
	return nil
}

// AppendRow adds a data row to the named table.
func (s *Store) AppendRow(_ context.Context, table string, cells []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[table]
	if !ok {
		return errors.Wrapf(rowstore.ErrTableNotFound, "append to table %q", table)
	}
	t.Rows = append(t.Rows, append([]string(nil), cells...))
	return nil
}

func copyTable(t *rowstore.Table) *rowstore.Table {
	cp := &rowstore.Table{
		Name:   t.Name,
		Header: append([]string(nil), t.Header...),
		Rows:   make([][]string, len(t.Rows)),
	}
	for i, r := range t.Rows {
		cp.Rows[i] = append([]string(nil), r...)
	}
	return cp
}
