package bqexport

import (
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/dvloznov/ledgerbook/internal/domain"
)

// LedgerRow represents one ledger transaction in the BigQuery export table.
type LedgerRow struct {
	RowID string `bigquery:"row_id"` // REQUIRED, deterministic per source row

	TxDate      civil.Date `bigquery:"tx_date"` // REQUIRED DATE
	Description string     `bigquery:"description"`
	Category    string     `bigquery:"category"`

	Amount  *big.Rat `bigquery:"amount"`  // NUMERIC, signed (expenses negative)
	TxType  string   `bigquery:"tx_type"` // Income or Expense
	Balance *big.Rat `bigquery:"balance"` // NUMERIC running balance

	ExportedTS time.Time `bigquery:"exported_ts"`
}

// MonthlyTotal is one row of the monthly income/expense aggregate query.
type MonthlyTotal struct {
	Month    string   `bigquery:"month"` // YYYY-MM
	Income   *big.Rat `bigquery:"income"`
	Expenses *big.Rat `bigquery:"expenses"`
}

// Rows converts ledger transactions into export rows, skipping any whose
// date cannot be parsed. Returns the rows and the skip count.
func Rows(txs []domain.Transaction, now time.Time) ([]*LedgerRow, int) {
	rows := make([]*LedgerRow, 0, len(txs))
	skipped := 0
	for i, tx := range txs {
		row, err := rowFromTransaction(i, tx, now)
		if err != nil {
			skipped++
			continue
		}
		rows = append(rows, row)
	}
	return rows, skipped
}

func rowFromTransaction(i int, tx domain.Transaction, now time.Time) (*LedgerRow, error) {
	day, err := tx.Day()
	if err != nil {
		return nil, fmt.Errorf("rowFromTransaction: row %d: %w", i, err)
	}
	return &LedgerRow{
		RowID:       rowID(i, tx),
		TxDate:      civil.DateOf(day),
		Description: tx.Description,
		Category:    tx.Category,
		Amount:      tx.Amount.Rat(),
		TxType:      string(tx.Type),
		Balance:     tx.Balance.Rat(),
		ExportedTS:  now,
	}, nil
}

// rowID derives a stable UUID from the row's position and content so
// re-exporting the same sheet yields the same keys downstream.
func rowID(i int, tx domain.Transaction) string {
	key := fmt.Sprintf("ledgerbook://bqexport/%d|%s|%s|%s", i, tx.Date, tx.Description, tx.Amount.String())
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}
