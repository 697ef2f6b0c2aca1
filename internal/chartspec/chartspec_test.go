package chartspec

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/dvloznov/ledgerbook/internal/domain"
	"github.com/dvloznov/ledgerbook/internal/sheets"
)

func tx(date, category, amount, balance string) domain.Transaction {
	a := decimal.RequireFromString(amount)
	return domain.Transaction{
		Date:     date,
		Category: category,
		Amount:   a,
		Type:     domain.TypeForAmount(a),
		Balance:  decimal.RequireFromString(balance),
	}
}

func TestPieChartRequest(t *testing.T) {
	req := PieChart(7, 9)

	chart := req.AddChart.Chart
	if chart.Spec.Title != "Expenses by Category" {
		t.Errorf("title = %q", chart.Spec.Title)
	}
	pie := chart.Spec.PieChart
	if pie.LegendPosition != "RIGHT_LEGEND" {
		t.Errorf("legend = %q", pie.LegendPosition)
	}

	domainRange := pie.Domain.SourceRange.Sources[0]
	if domainRange.SheetId != 7 || domainRange.StartRowIndex != 3 || domainRange.EndRowIndex != 9 {
		t.Errorf("domain rows = sheet %d rows [%d,%d)", domainRange.SheetId, domainRange.StartRowIndex, domainRange.EndRowIndex)
	}
	if domainRange.StartColumnIndex != 0 || domainRange.EndColumnIndex != 1 {
		t.Errorf("domain cols = [%d,%d), want [0,1)", domainRange.StartColumnIndex, domainRange.EndColumnIndex)
	}
	seriesRange := pie.Series.SourceRange.Sources[0]
	if seriesRange.StartColumnIndex != 1 || seriesRange.EndColumnIndex != 2 {
		t.Errorf("series cols = [%d,%d), want [1,2)", seriesRange.StartColumnIndex, seriesRange.EndColumnIndex)
	}

	pos := chart.Position.OverlayPosition
	if pos.AnchorCell.RowIndex != 2 || pos.AnchorCell.ColumnIndex != 4 {
		t.Errorf("anchor = (%d,%d), want (2,4)", pos.AnchorCell.RowIndex, pos.AnchorCell.ColumnIndex)
	}
	if pos.WidthPixels != 500 || pos.HeightPixels != 300 {
		t.Errorf("size = %dx%d, want 500x300", pos.WidthPixels, pos.HeightPixels)
	}
}

func TestLineChartRequest(t *testing.T) {
	req := LineChart(7, 15, 20)

	spec := req.AddChart.Chart.Spec
	if spec.Title != "Balance Over Time" {
		t.Errorf("title = %q", spec.Title)
	}
	basic := spec.BasicChart
	if basic.ChartType != "LINE" {
		t.Errorf("chart type = %q, want LINE", basic.ChartType)
	}

	domainRange := basic.Domains[0].Domain.SourceRange.Sources[0]
	if domainRange.StartRowIndex != 17 || domainRange.EndRowIndex != 20 {
		t.Errorf("domain rows = [%d,%d), want [17,20)", domainRange.StartRowIndex, domainRange.EndRowIndex)
	}
	if len(basic.Series) != 1 {
		t.Fatalf("got %d series, want 1", len(basic.Series))
	}
	if basic.Series[0].TargetAxis != "LEFT_AXIS" {
		t.Errorf("target axis = %q", basic.Series[0].TargetAxis)
	}

	anchorCell := req.AddChart.Chart.Position.OverlayPosition.AnchorCell
	if anchorCell.RowIndex != 22 || anchorCell.ColumnIndex != 4 {
		t.Errorf("anchor = (%d,%d), want (22,4)", anchorCell.RowIndex, anchorCell.ColumnIndex)
	}
}

func TestColumnChartRequest(t *testing.T) {
	req := ColumnChart(7, 30, 36)

	basic := req.AddChart.Chart.Spec.BasicChart
	if basic.ChartType != "COLUMN" {
		t.Errorf("chart type = %q, want COLUMN", basic.ChartType)
	}
	if len(basic.Series) != 2 {
		t.Fatalf("got %d series, want 2 (income and expenses)", len(basic.Series))
	}

	domainRange := basic.Domains[0].Domain.SourceRange.Sources[0]
	if domainRange.StartRowIndex != 32 || domainRange.EndRowIndex != 36 {
		t.Errorf("domain rows = [%d,%d), want [32,36)", domainRange.StartRowIndex, domainRange.EndRowIndex)
	}
	income := basic.Series[0].Series.SourceRange.Sources[0]
	expenses := basic.Series[1].Series.SourceRange.Sources[0]
	if income.StartColumnIndex != 1 || expenses.StartColumnIndex != 2 {
		t.Errorf("series cols = %d and %d, want 1 and 2", income.StartColumnIndex, expenses.StartColumnIndex)
	}

	anchorCell := req.AddChart.Chart.Position.OverlayPosition.AnchorCell
	if anchorCell.RowIndex != 42 || anchorCell.ColumnIndex != 4 {
		t.Errorf("anchor = (%d,%d), want (42,4)", anchorCell.RowIndex, anchorCell.ColumnIndex)
	}
}

func TestCategoryRows(t *testing.T) {
	txs := []domain.Transaction{
		tx("2025-01-05", "Salary", "2500", "2500"),
		tx("2025-01-07", "Food", "-120.50", "2379.50"),
		tx("2025-01-09", "Transport", "-45", "2334.50"),
		tx("2025-01-12", "Food", "-30", "2304.50"),
	}

	rows := CategoryRows(txs)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2 (income-only categories excluded)", len(rows))
	}
	// Sorted by category name.
	if rows[0][0] != "Food" || rows[0][1] != "150.50" {
		t.Errorf("rows[0] = %v, want [Food 150.50]", rows[0])
	}
	if rows[1][0] != "Transport" || rows[1][1] != "45.00" {
		t.Errorf("rows[1] = %v, want [Transport 45.00]", rows[1])
	}
}

func TestMonthlyRows(t *testing.T) {
	txs := []domain.Transaction{
		tx("2025-02-07", "Food", "-120.50", "2379.50"),
		tx("2025-01-05", "Salary", "2500", "2500"),
		tx("2025-02-20", "Salary", "100", "2359.50"),
	}

	rows := MonthlyRows(txs)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0][0] != "2025-01" || rows[0][1] != "2500.00" || rows[0][2] != "0.00" {
		t.Errorf("rows[0] = %v", rows[0])
	}
	if rows[1][0] != "2025-02" || rows[1][1] != "100.00" || rows[1][2] != "120.50" {
		t.Errorf("rows[1] = %v", rows[1])
	}
}

func TestTrendRowsTruncatesTimestamps(t *testing.T) {
	txs := []domain.Transaction{
		tx("2025-03-01 09:30:00", "Salary", "100", "100"),
		tx("2025-03-02 10:15:00", "Food", "-30", "70"),
	}

	rows := TrendRows(txs)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0][0] != "2025-03-01" || rows[0][1] != "100.00" {
		t.Errorf("rows[0] = %v", rows[0])
	}
	if rows[1][0] != "2025-03-02" || rows[1][1] != "70.00" {
		t.Errorf("rows[1] = %v", rows[1])
	}
}

type fakeSurface struct {
	sheetID  int64
	chartIDs []int64

	cleared []string
	updates map[string][][]any
	batches [][]*sheetsapi.Request

	sheetIDErr error
	batchErr   error
}

func newFakeSurface(chartIDs ...int64) *fakeSurface {
	return &fakeSurface{sheetID: 7, chartIDs: chartIDs, updates: make(map[string][][]any)}
}

func (f *fakeSurface) SheetID(_ context.Context, title string) (int64, error) {
	if f.sheetIDErr != nil {
		return 0, f.sheetIDErr
	}
	if title != sheets.ChartsSheet {
		return 0, errors.New("unknown worksheet")
	}
	return f.sheetID, nil
}

func (f *fakeSurface) ChartIDs(_ context.Context, sheetID int64) ([]int64, error) {
	if sheetID != f.sheetID {
		return nil, errors.New("wrong sheet ID")
	}
	return f.chartIDs, nil
}

func (f *fakeSurface) ClearSheet(_ context.Context, title string) error {
	f.cleared = append(f.cleared, title)
	return nil
}

func (f *fakeSurface) UpdateCells(_ context.Context, rng string, values [][]any) error {
	f.updates[rng] = values
	return nil
}

func (f *fakeSurface) BatchUpdate(_ context.Context, requests []*sheetsapi.Request) error {
	if f.batchErr != nil {
		return f.batchErr
	}
	f.batches = append(f.batches, requests)
	return nil
}

func (f *fakeSurface) lastBatch() []*sheetsapi.Request {
	if len(f.batches) == 0 {
		return nil
	}
	return f.batches[len(f.batches)-1]
}

func TestRefresh(t *testing.T) {
	surface := newFakeSurface(11, 22)
	txs := []domain.Transaction{
		tx("2025-01-05", "Salary", "2500", "2500"),
		tx("2025-01-07", "Food", "-120.50", "2379.50"),
		tx("2025-02-01", "Rent", "-800", "1579.50"),
	}

	count, err := Refresh(context.Background(), surface, txs)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}

	// Stale charts go first, in their own batch.
	if len(surface.batches) != 2 {
		t.Fatalf("got %d batches, want 2 (deletes, then adds)", len(surface.batches))
	}
	deletes := surface.batches[0]
	if len(deletes) != 2 || deletes[0].DeleteEmbeddedObject == nil {
		t.Fatalf("first batch = %v, want 2 chart deletions", deletes)
	}
	if deletes[0].DeleteEmbeddedObject.ObjectId != 11 || deletes[1].DeleteEmbeddedObject.ObjectId != 22 {
		t.Errorf("deleted IDs = %d, %d, want 11, 22",
			deletes[0].DeleteEmbeddedObject.ObjectId, deletes[1].DeleteEmbeddedObject.ObjectId)
	}

	if len(surface.cleared) != 1 || surface.cleared[0] != sheets.ChartsSheet {
		t.Errorf("cleared = %v, want [%s]", surface.cleared, sheets.ChartsSheet)
	}

	// Title plus table block for each of the three tables.
	if len(surface.updates) != 6 {
		t.Errorf("got %d cell updates, want 6", len(surface.updates))
	}
	table, ok := surface.updates["'Charts & Analysis'!A3"]
	if !ok {
		t.Fatal("category table missing at A3")
	}
	if len(table) != 3 {
		t.Errorf("category table has %d rows, want header + 2 data", len(table))
	}

	adds := surface.lastBatch()
	if len(adds) != 3 {
		t.Fatalf("got %d chart requests, want 3", len(adds))
	}
	for i, req := range adds {
		if req.AddChart == nil {
			t.Errorf("request %d is not an addChart", i)
		}
	}
}

func TestRefreshSkipsThinTables(t *testing.T) {
	surface := newFakeSurface()
	// One income transaction: no expense categories and too few points for
	// a trend line, so only the monthly chart remains.
	txs := []domain.Transaction{
		tx("2025-01-05", "Salary", "2500", "2500"),
	}

	count, err := Refresh(context.Background(), surface, txs)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	adds := surface.lastBatch()
	if len(adds) != 1 || adds[0].AddChart == nil {
		t.Fatalf("last batch = %v, want single addChart", adds)
	}
	if adds[0].AddChart.Chart.Spec.Title != "Monthly Income vs Expenses" {
		t.Errorf("chart = %q, want monthly summary", adds[0].AddChart.Chart.Spec.Title)
	}
}

func TestRefreshNoTransactions(t *testing.T) {
	if _, err := Refresh(context.Background(), newFakeSurface(), nil); err == nil {
		t.Fatal("expected error for empty ledger")
	}
}

func TestRefreshBatchFailure(t *testing.T) {
	surface := newFakeSurface()
	surface.batchErr = errors.New("quota exhausted")
	txs := []domain.Transaction{
		tx("2025-01-05", "Salary", "2500", "2500"),
	}

	if _, err := Refresh(context.Background(), surface, txs); err == nil {
		t.Fatal("expected batch update failure to propagate")
	}
}

func TestRefreshSheetLookupFailure(t *testing.T) {
	surface := newFakeSurface()
	surface.sheetIDErr = errors.New("spreadsheet unreachable")
	txs := []domain.Transaction{
		tx("2025-01-05", "Salary", "2500", "2500"),
	}

	if _, err := Refresh(context.Background(), surface, txs); err == nil {
		t.Fatal("expected sheet lookup failure to propagate")
	}
}
