// Package postgres implements rowstore.Store on PostgreSQL for self-hosted
// deployments that mirror the spreadsheet instead of calling the Sheets API.
//
// The layout stays deliberately sheet-shaped: one row in sheet_tables per
// tab (name + header), one row in sheet_rows per data row (text[] cells).
// Unlike the spreadsheet, the batch write runs inside a transaction, so here
// the single-batch commit protocol is genuinely atomic.
package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sekarjagad/batik-store/db"
	"github.com/sekarjagad/batik-store/internal/rowstore"
)

// NewPool creates a pgxpool.Pool from a connection URL.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse database config")
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create connection pool")
	}
	return pool, nil
}

// RunMigrations executes the embedded DDL schema against the pool.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, db.Schema); err != nil {
		return errors.Wrap(err, "run migrations")
	}
	return nil
}

var _ rowstore.Store = (*Store)(nil)

// Store is the PostgreSQL-backed row store.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore returns a Store using the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ReadTable loads the header and all data rows of the named table.
func (s *Store) ReadTable(ctx context.Context, name string) (rowstore.Table, error) {
	t := rowstore.Table{Name: name}

	err := s.pool.QueryRow(ctx,
		`SELECT header FROM sheet_tables WHERE name = $1`, name,
	).Scan(&t.Header)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rowstore.Table{}, errors.Wrapf(rowstore.ErrTableNotFound, "read table %q", name)
		}
		return rowstore.Table{}, errors.Wrapf(rowstore.ErrUnavailable, "read table %q: %v", name, err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT cells FROM sheet_rows WHERE table_name = $1 ORDER BY row_idx`, name)
	if err != nil {
		return rowstore.Table{}, errors.Wrapf(rowstore.ErrUnavailable, "read rows of %q: %v", name, err)
	}

	t.Rows, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) ([]string, error) {
		var cells []string
		err := row.Scan(&cells)
		return cells, err
	})
	if err != nil {
		return rowstore.Table{}, errors.Wrapf(rowstore.ErrUnavailable, "scan rows of %q: %v", name, err)
	}
	return t, nil
}

// BatchUpdateCells applies every update inside one transaction using a
// single pgx batch round trip.
func (s *Store) BatchUpdateCells(ctx context.Context, updates []rowstore.CellUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrapf(rowstore.ErrUnavailable, "begin batch update: %v", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	headers := make(map[string][]string)
	b := &pgx.Batch{}
	for _, u := range updates {
		header, ok := headers[u.Table]
		if !ok {
			header, err = s.readHeader(ctx, tx, u.Table)
			if err != nil {
				return err
			}
			headers[u.Table] = header
		}

		col := rowstore.Table{Header: header}.ColumnIndex(u.Column)
		if col < 0 {
			return errors.Errorf("update table %q: unknown column %q", u.Table, u.Column)
		}

		// Postgres arrays are 1-based.
		b.Queue(
			`UPDATE sheet_rows SET cells[$1] = $2 WHERE table_name = $3 AND row_idx = $4`,
			col+1, u.Value, u.Table, u.RowIndex,
		)
	}

	br := tx.SendBatch(ctx, b)
	for _, u := range updates {
		tag, err := br.Exec()
		if err != nil {
			br.Close() //nolint:errcheck,gosec
			return errors.Wrapf(rowstore.ErrUnavailable, "update %s[%d].%s: %v", u.Table, u.RowIndex, u.Column, err)
		}
		if tag.RowsAffected() == 0 {
			br.Close() //nolint:errcheck,gosec
			return errors.Errorf("update table %q: row %d does not exist", u.Table, u.RowIndex)
		}
	}
	if err := br.Close(); err != nil {
		return errors.Wrapf(rowstore.ErrUnavailable, "close batch: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrapf(rowstore.ErrUnavailable, "commit batch update: %v", err)
	}
	return nil
}

// AppendRow adds a row after the current highest row index. Cells are padded
// to the header width so array-position updates always land on a real cell.
func (s *Store) AppendRow(ctx context.Context, table string, cells []string) error {
	var header []string
	err := s.pool.QueryRow(ctx,
		`SELECT header FROM sheet_tables WHERE name = $1`, table,
	).Scan(&header)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errors.Wrapf(rowstore.ErrTableNotFound, "append to table %q", table)
		}
		return errors.Wrapf(rowstore.ErrUnavailable, "append to table %q: %v", table, err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO sheet_rows (table_name, row_idx, cells)
		 VALUES ($1, (SELECT COALESCE(MAX(row_idx) + 1, 0) FROM sheet_rows WHERE table_name = $1), $2)`,
		table, padCells(cells, len(header)),
	)
	if err != nil {
		return errors.Wrapf(rowstore.ErrUnavailable, "append to table %q: %v", table, err)
	}
	return nil
}

// ReplaceTable installs a table wholesale: header upserted, existing rows
// dropped, new rows bulk-copied. Used by the ingest CLI, not by the engine.
func (s *Store) ReplaceTable(ctx context.Context, t rowstore.Table) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrapf(rowstore.ErrUnavailable, "begin replace: %v", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO sheet_tables (name, header) VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET header = EXCLUDED.header`,
		t.Name, t.Header,
	)
	if err != nil {
		return errors.Wrapf(rowstore.ErrUnavailable, "upsert table %q: %v", t.Name, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM sheet_rows WHERE table_name = $1`, t.Name); err != nil {
		return errors.Wrapf(rowstore.ErrUnavailable, "clear table %q: %v", t.Name, err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"sheet_rows"},
		[]string{"table_name", "row_idx", "cells"},
		pgx.CopyFromSlice(len(t.Rows), func(i int) ([]any, error) {
			return []any{t.Name, i, padCells(t.Rows[i], len(t.Header))}, nil
		}),
	)
	if err != nil {
		return errors.Wrapf(rowstore.ErrUnavailable, "copy rows of %q: %v", t.Name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrapf(rowstore.ErrUnavailable, "commit replace of %q: %v", t.Name, err)
	}
	return nil
}

func (s *Store) readHeader(ctx context.Context, tx pgx.Tx, table string) ([]string, error) {
	var header []string
	err := tx.QueryRow(ctx, `SELECT header FROM sheet_tables WHERE name = $1`, table).Scan(&header)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrapf(rowstore.ErrTableNotFound, "update table %q", table)
		}
		return nil, errors.Wrapf(rowstore.ErrUnavailable, "read header of %q: %v", table, err)
	}
	return header, nil
}

func padCells(cells []string, width int) []string {
	if len(cells) >= width {
		return cells
	}
	padded := make([]string, width)
	copy(padded, cells)
	return padded
}
