// Package analytics derives aggregates from validated transactions. Every
// function here is pure: the ledger is never read or mutated.
package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledgerbook/internal/domain"
)

// DefaultTrendEntries bounds the balance-trend window.
const DefaultTrendEntries = 30

// Totals holds absolute income and expense sums for one bucket.
type Totals struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// CategoryTotals partitions amounts by sign into per-category buckets,
// summing absolute values. Income minus expense across all buckets equals
// the signed sum of all amounts.
func CategoryTotals(txs []domain.Transaction) map[string]Totals {
	totals := make(map[string]Totals)
	for _, tx := range txs {
		bucket := totals[tx.Category]
		if tx.Amount.IsNegative() {
			bucket.Expense = bucket.Expense.Add(tx.Amount.Abs())
		} else {
			bucket.Income = bucket.Income.Add(tx.Amount)
		}
		totals[tx.Category] = bucket
	}
	return totals
}

// MonthlySeries groups income and expenses by the YYYY-MM prefix of the date.
func MonthlySeries(txs []domain.Transaction) map[string]Totals {
	series := make(map[string]Totals)
	for _, tx := range txs {
		month := tx.Month()
		if month == "" {
			continue
		}
		bucket := series[month]
		if tx.Amount.IsNegative() {
			bucket.Expense = bucket.Expense.Add(tx.Amount.Abs())
		} else {
			bucket.Income = bucket.Income.Add(tx.Amount)
		}
		series[month] = bucket
	}
	return series
}

// TrendPoint is one (date, balance) sample of the running balance.
type TrendPoint struct {
	Date    string          `json:"date"`
	Balance decimal.Decimal `json:"balance"`
}

// BalanceTrend returns the last maxEntries points in original order. A
// non-positive maxEntries applies the default window.
func BalanceTrend(txs []domain.Transaction, maxEntries int) []TrendPoint {
	if maxEntries <= 0 {
		maxEntries = DefaultTrendEntries
	}
	start := 0
	if len(txs) > maxEntries {
		start = len(txs) - maxEntries
	}

	points := make([]TrendPoint, 0, len(txs)-start)
	for _, tx := range txs[start:] {
		points = append(points, TrendPoint{Date: tx.DayKey(), Balance: tx.Balance})
	}
	return points
}
