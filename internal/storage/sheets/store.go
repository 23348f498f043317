// Package sheets implements rowstore.Store on top of the Google Sheets API.
//
// Each table is one tab of a single spreadsheet: row 1 is the header, data
// rows start at sheet row 2, so data-row index 0 maps to A1 row 2.
package sheets

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/sekarjagad/batik-store/internal/rowstore"
)

var _ rowstore.Store = (*Store)(nil)

// Store talks to one spreadsheet identified by its ID.
type Store struct {
	values        *sheetsapi.SpreadsheetsValuesService
	spreadsheetID string
}

// New creates a Store for the given spreadsheet. When credentialsFile is
// empty, application default credentials are used.
func New(ctx context.Context, spreadsheetID, credentialsFile string) (*Store, error) {
	opts := []option.ClientOption{option.WithScopes(sheetsapi.SpreadsheetsScope)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create sheets service")
	}

	return &Store{
		values:        svc.Spreadsheets.Values,
		spreadsheetID: spreadsheetID,
	}, nil
}

// ReadTable fetches an entire tab and splits it into header and data rows.
func (s *Store) ReadTable(ctx context.Context, name string) (rowstore.Table, error) {
	resp, err := s.values.Get(s.spreadsheetID, name).Context(ctx).Do()
	if err != nil {
		return rowstore.Table{}, wrapAPIError(err, "read table %q", name)
	}

	t := rowstore.Table{Name: name}
	if len(resp.Values) == 0 {
		return t, nil
	}

	t.Header = toStrings(resp.Values[0])
	t.Rows = make([][]string, 0, len(resp.Values)-1)
	for _, row := range resp.Values[1:] {
		t.Rows = append(t.Rows, toStrings(row))
	}
	return t, nil
}

// BatchUpdateCells resolves every update to an A1 cell reference and sends
// them as one values.batchUpdate call. The Sheets API applies the request
// as a unit, which is what keeps a multi-row stock decrement from being
// half-written.
func (s *Store) BatchUpdateCells(ctx context.Context, updates []rowstore.CellUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	headers := make(map[string][]string)
	data := make([]*sheetsapi.ValueRange, 0, len(updates))
	for _, u := range updates {
		header, ok := headers[u.Table]
		if !ok {
			var err error
			header, err = s.readHeader(ctx, u.Table)
			if err != nil {
				return err
			}
			headers[u.Table] = header
		}

		col := columnIndex(header, u.Column)
		if col < 0 {
			return errors.Errorf("update table %q: unknown column %q", u.Table, u.Column)
		}

		// Header occupies sheet row 1; data row 0 lives at sheet row 2.
		ref := fmt.Sprintf("%s!%s%d", u.Table, columnLetter(col), u.RowIndex+2)
		data = append(data, &sheetsapi.ValueRange{
			Range:  ref,
			Values: [][]interface{}{{u.Value}},
		})
	}

	req := &sheetsapi.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             data,
	}
	if _, err := s.values.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return wrapAPIError(err, "batch update %d cells", len(updates))
	}
	return nil
}

// AppendRow appends one data row below the existing rows of a tab.
func (s *Store) AppendRow(ctx context.Context, table string, cells []string) error {
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
	}

	_, err := s.values.Append(s.spreadsheetID, table, &sheetsapi.ValueRange{
		Values: [][]interface{}{values},
	}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return wrapAPIError(err, "append to table %q", table)
	}
	return nil
}

func (s *Store) readHeader(ctx context.Context, table string) ([]string, error) {
	resp, err := s.values.Get(s.spreadsheetID, table+"!1:1").Context(ctx).Do()
	if err != nil {
		return nil, wrapAPIError(err, "read header of table %q", table)
	}
	if len(resp.Values) == 0 {
		return nil, errors.Errorf("table %q has no header row", table)
	}
	return toStrings(resp.Values[0]), nil
}

// wrapAPIError maps Sheets API failures onto the rowstore sentinels. The API
// reports an unknown tab name as a 400 on the range parse.
func wrapAPIError(err error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)

	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == 400 || gerr.Code == 404) {
		return errors.Wrapf(rowstore.ErrTableNotFound, "%s: %v", msg, err)
	}
	return errors.Wrapf(rowstore.ErrUnavailable, "%s: %v", msg, err)
}

func toStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		switch s := v.(type) {
		case string:
			out[i] = s
		default:
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// columnLetter converts a zero-based column index to its A1 letter form
// (0 -> A, 25 -> Z, 26 -> AA).
func columnLetter(idx int) string {
	letters := ""
	for idx >= 0 {
		letters = string(rune('A'+idx%26)) + letters
		idx = idx/26 - 1
	}
	return letters
}
