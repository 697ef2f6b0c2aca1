package ai

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledgerbook/internal/analytics"
	"github.com/dvloznov/ledgerbook/internal/domain"
)

// amountPattern captures the first dollar-ish number in free text.
var amountPattern = regexp.MustCompile(`\$?(\d+(?:\.\d{2})?)`)

var (
	expenseKeywords = []string{"spend", "spent", "paid", "bought", "cost"}
	incomeKeywords  = []string{"earn", "earned", "paid", "received", "got"}
)

// fallbackCategory applies the keyword rules used when no model answer is
// available. A positive amount with no keyword hit reads as income.
func fallbackCategory(description string, amount decimal.Decimal) string {
	lower := strings.ToLower(description)
	switch {
	case containsAny(lower, "grocery", "food", "restaurant", "cafe"):
		return "Food & Dining"
	case containsAny(lower, "gas", "uber", "taxi", "transport"):
		return "Transportation"
	case containsAny(lower, "rent", "utility", "bill", "insurance"):
		return "Bills & Utilities"
	case amount.IsPositive():
		return "Income"
	default:
		return "Other"
	}
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// fallbackDraft extracts a transaction candidate from free text without the
// model. The first number is the magnitude; verb keywords pick the
// direction, with expense verbs winning ties ("paid" appears on both
// sides).
func fallbackDraft(text, today string) Draft {
	amount := decimal.Zero
	if m := amountPattern.FindStringSubmatch(text); m != nil {
		if v, err := decimal.NewFromString(m[1]); err == nil {
			amount = v
		}
	}
	lower := strings.ToLower(text)
	var txType domain.TransactionType
	switch {
	case containsAny(lower, expenseKeywords...):
		txType = domain.Expense
	case containsAny(lower, incomeKeywords...):
		txType = domain.Income
	default:
		if amount.IsPositive() {
			txType = domain.Expense
		} else {
			txType = domain.Income
		}
	}
	amount = domain.SignedAmount(amount, txType)
	description := text
	if len(description) > maxDraftDescription {
		description = description[:maxDraftDescription]
	}
	return Draft{
		Description: description,
		Amount:      amount,
		Category:    fallbackCategory(text, amount),
		Date:        today,
		Type:        txType,
	}
}

// fallbackInsights builds the analysis bundle from the summary numbers
// alone. It never fails, including on summaries with no expenses.
func fallbackInsights(summary analytics.Summary) Insights {
	if summary.TotalTransactions == 0 {
		return Insights{
			SpendingPatterns:      "No transaction data available",
			BudgetRecommendations: "Add transactions to get recommendations",
			SavingsTips:           "Track your expenses to receive personalized tips",
			Anomalies:             "No anomalies detected",
			MonthlyTrend:          "Insufficient data",
			TopCategories:         []string{},
		}
	}

	avgExpense := decimal.Zero
	if summary.ExpenseCount > 0 {
		avgExpense = summary.TotalExpenses.Div(decimal.NewFromInt(int64(summary.ExpenseCount)))
	}
	net := summary.NetAmount

	budget := "Good financial position"
	if net.IsNegative() {
		budget = "Consider reducing expenses"
	}
	tips := "Continue tracking expenses"
	if len(summary.TopCategories) > 0 {
		tips = "Focus on reducing top spending categories"
	}
	trend := "Negative trend"
	if net.IsPositive() {
		trend = "Positive trend"
	}

	top := summary.TopCategories
	if len(top) > 3 {
		top = top[:3]
	}
	topList := make([]string, 0, len(top))
	for _, c := range top {
		topList = append(topList, fmt.Sprintf("%s: $%s", c.Category, c.Amount.StringFixed(2)))
	}

	return Insights{
		SpendingPatterns: fmt.Sprintf("Total: $%s expenses, $%s income. Average expense: $%s",
			summary.TotalExpenses.StringFixed(2), summary.TotalIncome.StringFixed(2), avgExpense.StringFixed(2)),
		BudgetRecommendations: fmt.Sprintf("Current net: $%s. %s", net.StringFixed(2), budget),
		SavingsTips:           fmt.Sprintf("You have %d transactions recorded. %s", summary.TotalTransactions, tips),
		Anomalies:             "Enable AI features for detailed anomaly detection",
		MonthlyTrend:          fmt.Sprintf("%s - Net amount: $%s", trend, net.StringFixed(2)),
		TopCategories:         topList,
	}
}

// fallbackReport renders the totals-only report template.
func fallbackReport(txs []domain.Transaction, period string, now time.Time) string {
	if len(txs) == 0 {
		return fmt.Sprintf("No transactions available for %s report.", period)
	}
	summary := analytics.Summarize(txs)
	return fmt.Sprintf(`
%s FINANCIAL REPORT
Generated on %s

Summary:
- Total Income: $%s
- Total Expenses: $%s
- Net Amount: $%s
- Transactions: %d

Enable AI features for detailed analysis and recommendations.
`,
		strings.ToUpper(period),
		now.Format(domain.DateLayout),
		summary.TotalIncome.StringFixed(2),
		summary.TotalExpenses.StringFixed(2),
		summary.NetAmount.StringFixed(2),
		summary.TotalTransactions)
}
