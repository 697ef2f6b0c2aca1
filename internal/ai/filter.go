package ai

import (
	"time"

	"github.com/dvloznov/ledgerbook/internal/domain"
)

// recentWindow is how many trailing records stand in for a period whose
// filter matched nothing.
const recentWindow = 10

// FilterByPeriod returns the transactions inside the period window: weekly,
// monthly and yearly look back 7, 30 and 365 days from now; any other
// period returns the input unchanged.
//
// The weekly and monthly windows are optimistic about bad dates: a record
// whose date cannot be parsed is kept, and when nothing at all falls inside
// the window the most recent ten records are returned instead, so
// downstream reporting never sees a silently empty set. Records with no
// date at all are always skipped.
func FilterByPeriod(txs []domain.Transaction, period string, now time.Time) []domain.Transaction {
	if len(txs) == 0 {
		return nil
	}
	var cutoff time.Time
	switch period {
	case "weekly":
		cutoff = now.AddDate(0, 0, -7)
	case "monthly":
		cutoff = now.AddDate(0, 0, -30)
	case "yearly":
		cutoff = now.AddDate(0, 0, -365)
	default:
		return txs
	}
	optimistic := period == "weekly" || period == "monthly"

	var filtered []domain.Transaction
	for _, tx := range txs {
		if tx.Date == "" {
			continue
		}
		day, err := tx.Day()
		if err != nil {
			if optimistic {
				filtered = append(filtered, tx)
			}
			continue
		}
		if !day.Before(cutoff) {
			filtered = append(filtered, tx)
		}
	}

	if len(filtered) == 0 && optimistic {
		if len(txs) > recentWindow {
			return txs[len(txs)-recentWindow:]
		}
		return txs
	}
	return filtered
}
