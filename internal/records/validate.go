package records

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledgerbook/internal/domain"
)

// Caps applied while cleaning; worksheet cells are unbounded but downstream
// prompts and chart labels are not.
const (
	MaxDescriptionLen = 200
	MaxCategoryLen    = 50
)

// Validator cleans raw worksheet rows into typed transactions.
//
// The worksheet presents rows as loosely typed maps whose key casing depends
// on how the header row was written (Amount or amount). All casing probing
// happens here; validated transactions carry one fixed schema.
type Validator struct {
	maxDescription int
	maxCategory    int
}

// NewValidator creates a validator with the default field caps.
func NewValidator() *Validator {
	return &Validator{
		maxDescription: MaxDescriptionLen,
		maxCategory:    MaxCategoryLen,
	}
}

// Validate converts raw rows into transactions, dropping rows that fail
// validation. The returned count says how many rows were dropped; a bad row
// never fails the batch.
func (v *Validator) Validate(raw []map[string]any) ([]domain.Transaction, int) {
	txs := make([]domain.Transaction, 0, len(raw))
	skipped := 0

	for _, row := range raw {
		tx, err := v.clean(row)
		if err != nil {
			skipped++
			continue
		}
		txs = append(txs, tx)
	}

	return txs, skipped
}

// clean validates one row. Date, amount, balance and category are required;
// the transaction type is derived from the amount sign rather than trusted
// from the row.
func (v *Validator) clean(row map[string]any) (domain.Transaction, error) {
	date, err := requiredText(row, "Date")
	if err != nil {
		return domain.Transaction{}, err
	}

	category, err := requiredText(row, "Category")
	if err != nil {
		return domain.Transaction{}, err
	}
	category = capLen(category, v.maxCategory)

	amount, err := requiredDecimal(row, "Amount")
	if err != nil {
		return domain.Transaction{}, err
	}

	balance, err := requiredDecimal(row, "Balance")
	if err != nil {
		return domain.Transaction{}, err
	}

	description := ""
	if raw, ok := lookup(row, "Description"); ok {
		description = capLen(strings.TrimSpace(text(raw)), v.maxDescription)
	}

	return domain.Transaction{
		Date:        date,
		Description: description,
		Category:    category,
		Amount:      amount,
		Type:        domain.TypeForAmount(amount),
		Balance:     balance,
	}, nil
}

// lookup finds a field under its header casing or the all-lowercase variant.
func lookup(row map[string]any, key string) (any, bool) {
	if v, ok := row[key]; ok {
		return v, true
	}
	v, ok := row[strings.ToLower(key)]
	return v, ok
}

func requiredText(row map[string]any, key string) (string, error) {
	raw, ok := lookup(row, key)
	if !ok {
		return "", &domain.ValidationError{Field: key, Reason: "missing"}
	}
	s := strings.TrimSpace(text(raw))
	if s == "" {
		return "", &domain.ValidationError{Field: key, Reason: "empty"}
	}
	return s, nil
}

func requiredDecimal(row map[string]any, key string) (decimal.Decimal, error) {
	raw, ok := lookup(row, key)
	if !ok {
		return decimal.Zero, &domain.ValidationError{Field: key, Reason: "missing"}
	}
	d, err := Decimal(raw)
	if err != nil {
		return decimal.Zero, &domain.ValidationError{Field: key, Reason: err.Error()}
	}
	return d, nil
}

// Decimal coerces a worksheet cell into a decimal. Numeric cells are used
// directly. String cells are stripped of everything but digits, '.' and '-';
// an empty residue, or one of "-", ".", "-.", is invalid. Header misalignment
// can leak the literals "Income"/"Expense" into numeric columns, which the
// strip policy rejects as empty.
func Decimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case float64:
		return decimal.NewFromFloat(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case decimal.Decimal:
		return x, nil
	case string:
		return decimalFromString(x)
	default:
		return decimal.Zero, fmt.Errorf("cell has type %T, want number or string", v)
	}
}

func decimalFromString(s string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || trimmed == string(domain.Income) || trimmed == string(domain.Expense) {
		return decimal.Zero, fmt.Errorf("non-numeric cell %q", s)
	}

	var b strings.Builder
	for _, r := range trimmed {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}

	cleaned := b.String()
	switch cleaned {
	case "", "-", ".", "-.":
		return decimal.Zero, fmt.Errorf("non-numeric cell %q", s)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("non-numeric cell %q: %w", s, err)
	}
	return d, nil
}

func text(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func capLen(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
