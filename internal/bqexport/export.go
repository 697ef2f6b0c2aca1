// Package bqexport streams validated ledger transactions into BigQuery and
// runs aggregate queries against the exported table. It exists for
// long-horizon analysis the 1000-row worksheet cannot serve.
package bqexport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/ledgerbook/internal/domain"
	"github.com/dvloznov/ledgerbook/internal/logger"
)

const (
	// DefaultDataset is used when the caller does not name one.
	DefaultDataset = "ledgerbook"
	tableID        = "transactions"
)

// Exporter writes ledger rows into <dataset>.transactions.
type Exporter struct {
	client  *bigquery.Client
	dataset string
	now     func() time.Time
}

// New wraps an existing BigQuery client. An empty dataset falls back to
// DefaultDataset.
func New(client *bigquery.Client, dataset string) *Exporter {
	if dataset == "" {
		dataset = DefaultDataset
	}
	return &Exporter{client: client, dataset: dataset, now: time.Now}
}

// EnsureTable creates the dataset and the transactions table when missing.
// The schema is inferred from LedgerRow.
func (e *Exporter) EnsureTable(ctx context.Context) error {
	dataset := e.client.Dataset(e.dataset)
	if _, err := dataset.Metadata(ctx); err != nil {
		if !isNotFound(err) {
			return fmt.Errorf("EnsureTable: dataset metadata: %w", err)
		}
		if err := dataset.Create(ctx, &bigquery.DatasetMetadata{Name: e.dataset}); err != nil {
			return fmt.Errorf("EnsureTable: creating dataset: %w", err)
		}
		log := logger.FromContext(ctx)
		log.Info().Str("dataset", e.dataset).Msg("created bigquery dataset")
	}

	table := dataset.Table(tableID)
	if _, err := table.Metadata(ctx); err == nil {
		return nil
	} else if !isNotFound(err) {
		return fmt.Errorf("EnsureTable: table metadata: %w", err)
	}

	schema, err := bigquery.InferSchema(LedgerRow{})
	if err != nil {
		return fmt.Errorf("EnsureTable: inferring schema: %w", err)
	}
	if err := table.Create(ctx, &bigquery.TableMetadata{Schema: schema}); err != nil {
		return fmt.Errorf("EnsureTable: creating table: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().Str("table", e.dataset+"."+tableID).Msg("created bigquery table")
	return nil
}

// Export streams the transactions into the table. Rows with unparseable
// dates are skipped, mirroring the read-path validator. Returns the count
// of inserted and skipped rows.
func (e *Exporter) Export(ctx context.Context, txs []domain.Transaction) (int, int, error) {
	rows, skipped := Rows(txs, e.now().UTC())
	if len(rows) == 0 {
		return 0, skipped, nil
	}

	inserter := e.client.Dataset(e.dataset).Table(tableID).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return 0, skipped, fmt.Errorf("Export: inserting rows: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Int("rows", len(rows)).
		Int("skipped", skipped).
		Str("table", e.dataset+"."+tableID).
		Msg("ledger exported to bigquery")
	return len(rows), skipped, nil
}

// MonthlyTotals aggregates income and expenses per calendar month over the
// given date range, both bounds inclusive.
func (e *Exporter) MonthlyTotals(ctx context.Context, start, end time.Time) ([]MonthlyTotal, error) {
	q := e.client.Query(fmt.Sprintf(`
		SELECT
			FORMAT_DATE('%%Y-%%m', tx_date) AS month,
			SUM(IF(tx_type = 'Income', amount, NUMERIC '0')) AS income,
			SUM(IF(tx_type = 'Expense', -amount, NUMERIC '0')) AS expenses
		FROM %s.%s
		WHERE tx_date >= @start_date
		  AND tx_date <= @end_date
		GROUP BY month
		ORDER BY month
	`, e.dataset, tableID))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "start_date", Value: civil.DateOf(start)},
		{Name: "end_date", Value: civil.DateOf(end)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("MonthlyTotals: query read: %w", err)
	}

	var totals []MonthlyTotal
	for {
		var row MonthlyTotal
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("MonthlyTotals: iter next: %w", err)
		}
		totals = append(totals, row)
	}
	return totals, nil
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
