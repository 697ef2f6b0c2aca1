// Package sheets persists the ledger in a Google Sheets spreadsheet.
//
// The layout is fixed: a Transactions worksheet whose first row is the
// column header, and a Charts & Analysis worksheet holding derived tables
// with embedded charts anchored next to them.
package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/dvloznov/ledgerbook/internal/domain"
	"github.com/dvloznov/ledgerbook/internal/ledger"
	"github.com/dvloznov/ledgerbook/internal/logger"
)

const (
	// TransactionsSheet holds one transaction per row under the header row.
	TransactionsSheet = "Transactions"

	// ChartsSheet holds analytics tables and the charts built from them.
	ChartsSheet = "Charts & Analysis"

	transactionRows = 1000
	transactionCols = 6
	chartRows       = 50
	chartCols       = 10

	valueInputUserEntered = "USER_ENTERED"
)

// Client wraps the Sheets API for a single spreadsheet.
type Client struct {
	svc           *sheetsapi.Service
	spreadsheetID string
}

var _ ledger.Store = (*Client)(nil)

// New builds a client bound to one spreadsheet. Credentials come from the
// given client options, or Application Default Credentials when none are
// provided.
func New(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*Client, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet ID is required")
	}
	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// SpreadsheetID returns the bound spreadsheet.
func (c *Client) SpreadsheetID() string {
	return c.spreadsheetID
}

// EnsureWorksheets creates the Transactions and Charts & Analysis worksheets
// when they are missing. A freshly created Transactions worksheet gets the
// header row; existing worksheets are left untouched.
func (c *Client) EnsureWorksheets(ctx context.Context) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	existing := make(map[string]bool, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			existing[sh.Properties.Title] = true
		}
	}

	var requests []*sheetsapi.Request
	if !existing[TransactionsSheet] {
		requests = append(requests, addSheetRequest(TransactionsSheet, transactionRows, transactionCols))
	}
	if !existing[ChartsSheet] {
		requests = append(requests, addSheetRequest(ChartsSheet, chartRows, chartCols))
	}
	if len(requests) == 0 {
		return nil
	}
	if err := c.BatchUpdate(ctx, requests); err != nil {
		return fmt.Errorf("add worksheets: %w", err)
	}

	if !existing[TransactionsSheet] {
		header := make([]any, len(domain.Header))
		for i, name := range domain.Header {
			header[i] = name
		}
		if err := c.AppendRow(ctx, header); err != nil {
			return fmt.Errorf("write header row: %w", err)
		}
	}
	log := logger.FromContext(ctx)
	log.Info().
		Int("created", len(requests)).
		Msg("spreadsheet worksheets ensured")
	return nil
}

func addSheetRequest(title string, rows, cols int64) *sheetsapi.Request {
	return &sheetsapi.Request{
		AddSheet: &sheetsapi.AddSheetRequest{
			Properties: &sheetsapi.SheetProperties{
				Title: title,
				GridProperties: &sheetsapi.GridProperties{
					RowCount:    rows,
					ColumnCount: cols,
				},
			},
		},
	}
}

// AppendRow adds one row after the last non-empty row of the Transactions
// worksheet. Values go in as USER_ENTERED so dates and numbers keep their
// spreadsheet types.
func (c *Client) AppendRow(ctx context.Context, row []any) error {
	body := &sheetsapi.ValueRange{Values: [][]any{row}}
	_, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, transactionRange(), body).
		ValueInputOption(valueInputUserEntered).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	return nil
}

// AllRecords returns every data row of the Transactions worksheet keyed by
// the header row. Cells missing from short rows come back as empty strings,
// and fully empty rows are dropped.
func (c *Client) AllRecords(ctx context.Context) ([]map[string]any, error) {
	resp, err := c.svc.Spreadsheets.Values.
		Get(c.spreadsheetID, transactionRange()).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return recordsFromRows(resp.Values), nil
}

// ColumnValues returns the cells of a 1-based Transactions column, header
// included, up to the last non-empty cell.
func (c *Client) ColumnValues(ctx context.Context, column int) ([]string, error) {
	letter, err := columnLetter(column)
	if err != nil {
		return nil, err
	}
	rng := fmt.Sprintf("%s!%s1:%s", TransactionsSheet, letter, letter)
	resp, err := c.svc.Spreadsheets.Values.
		Get(c.spreadsheetID, rng).
		MajorDimension("COLUMNS").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read column %s: %w", letter, err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}
	values := make([]string, 0, len(resp.Values[0]))
	for _, cell := range resp.Values[0] {
		values = append(values, fmt.Sprint(cell))
	}
	return values, nil
}

// RewriteRows replaces every data row of the Transactions worksheet while
// keeping the header row. Used by balance repair and backup restore.
func (c *Client) RewriteRows(ctx context.Context, rows [][]any) error {
	dataRange := fmt.Sprintf("%s!A2:%s", TransactionsSheet, endColumn())
	if _, err := c.svc.Spreadsheets.Values.
		Clear(c.spreadsheetID, dataRange, &sheetsapi.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear data rows: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}
	body := &sheetsapi.ValueRange{Values: rows}
	_, err := c.svc.Spreadsheets.Values.
		Update(c.spreadsheetID, TransactionsSheet+"!A2", body).
		ValueInputOption(valueInputUserEntered).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write data rows: %w", err)
	}
	return nil
}

// SheetID resolves a worksheet title to its numeric grid ID.
func (c *Client) SheetID(ctx context.Context, title string) (int64, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return sh.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("worksheet %q not found", title)
}

// ChartIDs returns the IDs of every chart embedded in the given worksheet.
func (c *Client) ChartIDs(ctx context.Context, sheetID int64) ([]int64, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet: %w", err)
	}
	var ids []int64
	for _, sh := range ss.Sheets {
		if sh.Properties == nil || sh.Properties.SheetId != sheetID {
			continue
		}
		for _, chart := range sh.Charts {
			ids = append(ids, chart.ChartId)
		}
	}
	return ids, nil
}

// ClearSheet wipes every cell of the named worksheet. The title is quoted
// so names with spaces survive A1 notation.
func (c *Client) ClearSheet(ctx context.Context, title string) error {
	_, err := c.svc.Spreadsheets.Values.
		Clear(c.spreadsheetID, fmt.Sprintf("'%s'", title), &sheetsapi.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", title, err)
	}
	return nil
}

// UpdateCells writes a block of values at the given A1 range.
func (c *Client) UpdateCells(ctx context.Context, rng string, values [][]any) error {
	body := &sheetsapi.ValueRange{Values: values}
	_, err := c.svc.Spreadsheets.Values.
		Update(c.spreadsheetID, rng, body).
		ValueInputOption(valueInputUserEntered).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// BatchUpdate applies structural requests, such as adding worksheets or
// embedding charts, in a single call.
func (c *Client) BatchUpdate(ctx context.Context, requests []*sheetsapi.Request) error {
	if len(requests) == 0 {
		return nil
	}
	_, err := c.svc.Spreadsheets.
		BatchUpdate(c.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{Requests: requests}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("batch update: %w", err)
	}
	return nil
}

func transactionRange() string {
	return fmt.Sprintf("%s!A:%s", TransactionsSheet, endColumn())
}

func endColumn() string {
	letter, _ := columnLetter(len(domain.Header))
	return letter
}

// recordsFromRows converts raw sheet rows into header-keyed records the way
// the validator expects them: the first row names the columns, short rows
// are padded with empty strings, and blank rows are skipped.
func recordsFromRows(rows [][]any) []map[string]any {
	if len(rows) < 2 {
		return nil
	}
	header := rows[0]
	records := make([]map[string]any, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if rowEmpty(row) {
			continue
		}
		record := make(map[string]any, len(header))
		for i, cell := range header {
			key := fmt.Sprint(cell)
			if i < len(row) {
				record[key] = row[i]
			} else {
				record[key] = ""
			}
		}
		records = append(records, record)
	}
	return records
}

func rowEmpty(row []any) bool {
	for _, cell := range row {
		if fmt.Sprint(cell) != "" {
			return false
		}
	}
	return true
}

func columnLetter(column int) (string, error) {
	if column < 1 {
		return "", fmt.Errorf("column %d out of range", column)
	}
	var letters []byte
	for column > 0 {
		column--
		letters = append([]byte{byte('A' + column%26)}, letters...)
		column /= 26
	}
	return string(letters), nil
}
