package backup

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/dvloznov/ledgerbook/internal/domain"
	"github.com/dvloznov/ledgerbook/internal/records"
)

// MarshalCSV renders transactions as a CSV snapshot: the worksheet header
// followed by one row per transaction, amounts fixed to two decimals.
func MarshalCSV(txs []domain.Transaction) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(domain.Header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, tx := range txs {
		record := []string{
			tx.Date,
			tx.Description,
			tx.Category,
			tx.Amount.StringFixed(2),
			string(tx.Type),
			tx.Balance.StringFixed(2),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalCSV parses a snapshot back into transactions, running every row
// through the same validation as worksheet reads. It returns the parsed
// transactions and the number of rows skipped as malformed.
func UnmarshalCSV(data []byte) ([]domain.Transaction, int, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("snapshot is empty")
	}

	header := rows[0]
	if len(header) == 0 || header[0] != domain.Header[0] {
		return nil, 0, fmt.Errorf("snapshot missing %q header", domain.Header[0])
	}

	raw := make([]map[string]any, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(map[string]any, len(header))
		for i, key := range header {
			if i < len(row) {
				record[key] = row[i]
			} else {
				record[key] = ""
			}
		}
		raw = append(raw, record)
	}

	txs, skipped := records.NewValidator().Validate(raw)
	return txs, skipped, nil
}
