package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledgerbook/internal/domain"
)

const (
	topCategoryCount = 5
	recentCount      = 10
)

// Summary is the numeric digest fed to model prompts and reused by the
// deterministic fallbacks. Field names follow the JSON the prompts embed.
type Summary struct {
	TotalTransactions  int                 `json:"total_transactions"`
	TotalIncome        decimal.Decimal     `json:"total_income"`
	TotalExpenses      decimal.Decimal     `json:"total_expenses"`
	NetAmount          decimal.Decimal     `json:"net_amount"`
	TopCategories      []CategoryAmount    `json:"top_categories"`
	RecentTransactions []RecentTransaction `json:"recent_transactions"`

	// ExpenseCount backs the average-expense fallback line; it is not part
	// of the prompt payload.
	ExpenseCount int `json:"-"`
}

// CategoryAmount is one expense category with its absolute total.
type CategoryAmount struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// RecentTransaction is the trimmed view of a transaction included in prompts.
type RecentTransaction struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
}

// Summarize digests transactions into totals, the top expense categories and
// the most recent entries. Expense totals are absolute values; only negative
// amounts count toward the category ranking.
func Summarize(txs []domain.Transaction) Summary {
	sum := Summary{
		TotalTransactions: len(txs),
		TotalIncome:       decimal.Zero,
		TotalExpenses:     decimal.Zero,
		NetAmount:         decimal.Zero,
		TopCategories:     []CategoryAmount{},
	}

	expenseByCategory := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if tx.Amount.IsNegative() {
			sum.TotalExpenses = sum.TotalExpenses.Add(tx.Amount.Abs())
			sum.ExpenseCount++
			expenseByCategory[tx.Category] = expenseByCategory[tx.Category].Add(tx.Amount.Abs())
		} else {
			sum.TotalIncome = sum.TotalIncome.Add(tx.Amount)
		}
	}
	sum.NetAmount = sum.TotalIncome.Sub(sum.TotalExpenses)
	sum.TopCategories = rankCategories(expenseByCategory, topCategoryCount)

	recent := txs
	if len(recent) > recentCount {
		recent = recent[len(recent)-recentCount:]
	}
	sum.RecentTransactions = make([]RecentTransaction, 0, len(recent))
	for _, tx := range recent {
		sum.RecentTransactions = append(sum.RecentTransactions, RecentTransaction{
			Description: tx.Description,
			Amount:      tx.Amount,
			Category:    tx.Category,
		})
	}

	return sum
}

// rankCategories orders categories by descending amount, breaking ties by
// name so the ranking is deterministic.
func rankCategories(byCategory map[string]decimal.Decimal, limit int) []CategoryAmount {
	ranked := make([]CategoryAmount, 0, len(byCategory))
	for category, amount := range byCategory {
		ranked = append(ranked, CategoryAmount{Category: category, Amount: amount})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if cmp := ranked[i].Amount.Cmp(ranked[j].Amount); cmp != 0 {
			return cmp > 0
		}
		return ranked[i].Category < ranked[j].Category
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
