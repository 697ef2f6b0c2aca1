package chartspec

import (
	"context"
	"fmt"
	"sort"

	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/dvloznov/ledgerbook/internal/analytics"
	"github.com/dvloznov/ledgerbook/internal/domain"
	"github.com/dvloznov/ledgerbook/internal/logger"
	"github.com/dvloznov/ledgerbook/internal/sheets"
)

// Surface is the slice of the spreadsheet client a chart refresh needs.
// This interface enables mocking and testing of the refresh flow.
type Surface interface {
	SheetID(ctx context.Context, title string) (int64, error)
	ChartIDs(ctx context.Context, sheetID int64) ([]int64, error)
	ClearSheet(ctx context.Context, title string) error
	UpdateCells(ctx context.Context, rng string, values [][]any) error
	BatchUpdate(ctx context.Context, requests []*sheetsapi.Request) error
}

var _ Surface = (*sheets.Client)(nil)

// Refresh rebuilds the Charts & Analysis worksheet from the given
// transactions: stale charts are deleted, the worksheet is cleared, the
// three source tables are rewritten, and fresh charts are embedded. Tables
// without enough data are skipped, so the chart count can be under three.
// Running it twice over the same records produces the same worksheet.
func Refresh(ctx context.Context, surface Surface, txs []domain.Transaction) (int, error) {
	if len(txs) == 0 {
		return 0, fmt.Errorf("no transactions to chart")
	}

	sheetID, err := surface.SheetID(ctx, sheets.ChartsSheet)
	if err != nil {
		return 0, fmt.Errorf("resolve charts worksheet: %w", err)
	}

	// Drop stale charts before anything else so a refresh never stacks
	// duplicates on the worksheet.
	stale, err := surface.ChartIDs(ctx, sheetID)
	if err != nil {
		return 0, fmt.Errorf("list existing charts: %w", err)
	}
	if len(stale) > 0 {
		deletes := make([]*sheetsapi.Request, len(stale))
		for i, id := range stale {
			deletes[i] = DeleteChart(id)
		}
		if err := surface.BatchUpdate(ctx, deletes); err != nil {
			return 0, fmt.Errorf("delete stale charts: %w", err)
		}
	}
	if err := surface.ClearSheet(ctx, sheets.ChartsSheet); err != nil {
		return 0, fmt.Errorf("clear charts worksheet: %w", err)
	}

	var requests []*sheetsapi.Request

	if rows := CategoryRows(txs); len(rows) > 0 {
		if err := writeTable(ctx, surface, categoryTitleRow, "Category Expense Analysis",
			[]any{"Category", "Amount"}, rows); err != nil {
			return 0, err
		}
		requests = append(requests, PieChart(sheetID, int64(categoryTableRow+1+len(rows))))
	}

	// A single balance point draws no line.
	if rows := TrendRows(txs); len(rows) >= 2 {
		if err := writeTable(ctx, surface, trendTitleRow, "Balance Trend Analysis",
			[]any{"Date", "Balance"}, rows); err != nil {
			return 0, err
		}
		requests = append(requests, LineChart(sheetID, trendTitleRow, int64(trendTableRow+1+len(rows))))
	}

	if rows := MonthlyRows(txs); len(rows) > 0 {
		if err := writeTable(ctx, surface, monthlyTitleRow, "Monthly Income vs Expenses",
			[]any{"Month", "Income", "Expenses"}, rows); err != nil {
			return 0, err
		}
		requests = append(requests, ColumnChart(sheetID, monthlyTitleRow, int64(monthlyTableRow+1+len(rows))))
	}

	if err := surface.BatchUpdate(ctx, requests); err != nil {
		return 0, fmt.Errorf("embed charts: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Int("charts", len(requests)).
		Int("deleted", len(stale)).
		Msg("charts worksheet refreshed")
	return len(requests), nil
}

// writeTable writes a title cell at titleRow and a header-plus-data block
// two rows below it.
func writeTable(ctx context.Context, surface Surface, titleRow int, title string, header []any, rows [][]any) error {
	if err := surface.UpdateCells(ctx, anchor(titleRow), [][]any{{title}}); err != nil {
		return fmt.Errorf("write %q title: %w", title, err)
	}
	table := make([][]any, 0, len(rows)+1)
	table = append(table, header)
	table = append(table, rows...)
	if err := surface.UpdateCells(ctx, anchor(titleRow+2), table); err != nil {
		return fmt.Errorf("write %q table: %w", title, err)
	}
	return nil
}

func anchor(row int) string {
	return fmt.Sprintf("'%s'!A%d", sheets.ChartsSheet, row)
}

// CategoryRows returns one row per category that has expenses, sorted by
// category name, with the absolute expense total.
func CategoryRows(txs []domain.Transaction) [][]any {
	totals := analytics.CategoryTotals(txs)
	names := make([]string, 0, len(totals))
	for name, bucket := range totals {
		if bucket.Expense.IsZero() {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]any, 0, len(names))
	for _, name := range names {
		rows = append(rows, []any{name, totals[name].Expense.StringFixed(2)})
	}
	return rows
}

// TrendRows returns date and balance pairs for the most recent transactions,
// capped at the default trend window.
func TrendRows(txs []domain.Transaction) [][]any {
	points := analytics.BalanceTrend(txs, analytics.DefaultTrendEntries)
	rows := make([][]any, 0, len(points))
	for _, p := range points {
		rows = append(rows, []any{p.Date, p.Balance.StringFixed(2)})
	}
	return rows
}

// MonthlyRows returns month, income and expense triples in chronological
// order.
func MonthlyRows(txs []domain.Transaction) [][]any {
	series := analytics.MonthlySeries(txs)
	months := make([]string, 0, len(series))
	for month := range series {
		months = append(months, month)
	}
	sort.Strings(months)

	rows := make([][]any, 0, len(months))
	for _, month := range months {
		bucket := series[month]
		rows = append(rows, []any{month, bucket.Income.StringFixed(2), bucket.Expense.StringFixed(2)})
	}
	return rows
}
