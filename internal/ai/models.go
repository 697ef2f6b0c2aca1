package ai

import (
	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledgerbook/internal/domain"
)

// Draft is a transaction candidate parsed from natural language input.
// Amount carries the signed convention: negative for expenses, positive for
// income.
type Draft struct {
	Description string                 `json:"description"`
	Amount      decimal.Decimal        `json:"amount"`
	Category    string                 `json:"category"`
	Date        string                 `json:"date"`
	Type        domain.TransactionType `json:"type"`
}

// Insights is the structured analysis bundle returned by GenerateInsights.
type Insights struct {
	SpendingPatterns      string   `json:"spending_patterns"`
	BudgetRecommendations string   `json:"budget_recommendations"`
	SavingsTips           string   `json:"savings_tips"`
	Anomalies             string   `json:"anomalies"`
	MonthlyTrend          string   `json:"monthly_trend"`
	TopCategories         []string `json:"top_categories"`
}

// fillDefaults replaces missing text fields with the stock "no analysis"
// strings and guarantees TopCategories is non-nil.
func (i *Insights) fillDefaults() {
	if i.SpendingPatterns == "" {
		i.SpendingPatterns = "No spending patterns analysis available"
	}
	if i.BudgetRecommendations == "" {
		i.BudgetRecommendations = "No budget recommendations analysis available"
	}
	if i.SavingsTips == "" {
		i.SavingsTips = "No savings tips analysis available"
	}
	if i.Anomalies == "" {
		i.Anomalies = "No anomalies analysis available"
	}
	if i.MonthlyTrend == "" {
		i.MonthlyTrend = "No monthly trend analysis available"
	}
	if i.TopCategories == nil {
		i.TopCategories = []string{}
	}
}
