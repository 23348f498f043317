// Package rowstore abstracts the tabular backing store of the shop.
//
// The production store is a spreadsheet reached over HTTP; tables map to
// sheet tabs, the first row of a tab is the header, and data rows are
// addressed by a zero-based index that excludes the header. The store offers
// no transactions: correctness relies on callers issuing all related cell
// updates as a single batch.
package rowstore

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
)

var (
	// ErrUnavailable is returned when the backing store cannot be reached
	// or refuses the request. Callers should treat it as retryable.
	ErrUnavailable = errors.New("row store unavailable")
	// ErrTableNotFound is returned when the named table does not exist.
	ErrTableNotFound = errors.New("table not found")
)

// Table is one table snapshot: a header row plus ordered data rows of
// strings. Rows may be ragged (shorter than the header); use Cell for
// tolerant access.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// ColumnIndex returns the position of the named column in the header, or -1
// when absent. Comparison is case-insensitive and ignores surrounding
// whitespace, so reordered or loosely formatted sheet headers still resolve.
func (t Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// Cell returns the value at (row, column), or the empty string when the
// column is unknown or the row is too short to contain it.
func (t Table) Cell(row int, column string) string {
	idx := t.ColumnIndex(column)
	if idx < 0 || row < 0 || row >= len(t.Rows) || idx >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][idx]
}

// CellUpdate addresses a single cell by table, data-row index and column
// name. Column resolution against the live header is the store's job, so an
// update stays valid even if the sheet's columns were reordered since the
// table was read.
type CellUpdate struct {
	Table    string
	RowIndex int
	Column   string
	Value    string
}

// Store is the row-store contract. Implementations must apply
// BatchUpdateCells as one batch: either every update is sent in a single
// backend call, or none is applied.
type Store interface {
	ReadTable(ctx context.Context, name string) (Table, error)
	BatchUpdateCells(ctx context.Context, updates []CellUpdate) error
	AppendRow(ctx context.Context, table string, cells []string) error
}
