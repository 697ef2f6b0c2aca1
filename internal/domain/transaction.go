package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType marks a transaction as money in or money out.
type TransactionType string

const (
	// Income is money in; amounts carry a positive sign.
	Income TransactionType = "Income"
	// Expense is money out; amounts carry a negative sign.
	Expense TransactionType = "Expense"
)

// Header is the column order of the transactions worksheet.
var Header = []string{"Date", "Description", "Category", "Amount", "Type", "Balance"}

// BalanceColumn is the 1-based worksheet column holding the running balance.
const BalanceColumn = 6

// DateLayout is the normalized date format written to the worksheet.
const DateLayout = "2006-01-02"

// TimestampLayout is the full stamp the ledger writes on newly recorded
// transactions; reads only ever rely on the DateLayout prefix.
const TimestampLayout = "2006-01-02 15:04:05"

// Transaction is one validated ledger row.
//
// Amount is signed: negative for Expense, positive for Income. Balance is the
// running balance after this row was applied. Date stays a string because the
// worksheet is hand-editable and may hold values no layout parses; consumers
// parse lazily and own the failure policy.
type Transaction struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Balance     decimal.Decimal `json:"balance"`
}

// Day parses the date, tolerating a trailing time component.
func (t Transaction) Day() (time.Time, error) {
	return time.Parse(DateLayout, t.DayKey())
}

// DayKey returns the YYYY-MM-DD portion of the date.
func (t Transaction) DayKey() string {
	if len(t.Date) > len(DateLayout) {
		return t.Date[:len(DateLayout)]
	}
	return t.Date
}

// Month returns the YYYY-MM grouping key.
func (t Transaction) Month() string {
	if len(t.Date) > 7 {
		return t.Date[:7]
	}
	return t.Date
}

// Row renders the transaction in worksheet column order.
func (t Transaction) Row() []any {
	return []any{
		t.Date,
		t.Description,
		t.Category,
		t.Amount.StringFixed(2),
		string(t.Type),
		t.Balance.StringFixed(2),
	}
}

// TypeForAmount returns Expense for negative amounts and Income otherwise.
func TypeForAmount(amount decimal.Decimal) TransactionType {
	if amount.IsNegative() {
		return Expense
	}
	return Income
}

// ParseType folds user-supplied casing into a TransactionType. Casing is
// normalized here, once, at the boundary; everything downstream compares
// the canonical constants.
func ParseType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income":
		return Income, nil
	case "expense":
		return Expense, nil
	default:
		return "", &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown transaction type %q", s)}
	}
}

// SignedAmount forces the sign convention for the given type: negative for
// Expense, positive for Income.
func SignedAmount(amount decimal.Decimal, t TransactionType) decimal.Decimal {
	abs := amount.Abs()
	if t == Expense {
		return abs.Neg()
	}
	return abs
}
