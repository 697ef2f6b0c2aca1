package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledgerbook/internal/analytics"
	"github.com/dvloznov/ledgerbook/internal/domain"
)

// categorizePrompt asks for a single category name, constrained to the
// fixed taxonomy, with the caller's recent categorization habits as
// context.
func categorizePrompt(description string, amount decimal.Decimal, history []domain.Transaction) string {
	var b strings.Builder
	if context := historyContext(history); context != "" {
		b.WriteString("User's recent categorization patterns: " + context + "\n\n")
	}
	b.WriteString("Based on the transaction description and amount, suggest the most appropriate category.\n\n")
	fmt.Fprintf(&b, "Transaction: %q\n", description)
	fmt.Fprintf(&b, "Amount: $%s\n", amount.Abs().StringFixed(2))
	fmt.Fprintf(&b, "Type: %s\n\n", domain.TypeForAmount(amount))
	b.WriteString("Available categories:\n")
	b.WriteString(promptCategories + "\n\n")
	b.WriteString("Respond with ONLY the category name, nothing else.")
	return b.String()
}

// historyContext folds the most recent transactions into a compact
// description=category listing, capped so the prompt stays small.
func historyContext(history []domain.Transaction) string {
	if len(history) == 0 {
		return ""
	}
	start := 0
	if len(history) > historyWindow {
		start = len(history) - historyWindow
	}
	pairs := make([]string, 0, len(history)-start)
	for _, tx := range history[start:] {
		desc := strings.ToLower(strings.TrimSpace(tx.Description))
		if desc == "" || tx.Category == "" {
			continue
		}
		pairs = append(pairs, desc+"="+tx.Category)
	}
	context := strings.Join(pairs, "; ")
	if len(context) > contextCap {
		context = context[:contextCap]
	}
	return context
}

// parsePrompt asks for a strict JSON transaction draft. The current date is
// embedded so the model can resolve relative wording like "yesterday".
func parsePrompt(text, today string) string {
	var b strings.Builder
	b.WriteString("Parse this natural language transaction into structured data:\n")
	fmt.Fprintf(&b, "%q\n\n", text)
	b.WriteString("Extract and return ONLY a JSON object with these fields:\n")
	b.WriteString("- \"description\": clear description of the transaction\n")
	b.WriteString("- \"amount\": numeric amount (positive for income, negative for expenses)\n")
	b.WriteString("- \"category\": most appropriate category\n")
	fmt.Fprintf(&b, "- \"date\": date in YYYY-MM-DD format (today is %s, use it if no date is given)\n", today)
	b.WriteString("- \"type\": either \"Income\" or \"Expense\"\n\n")
	b.WriteString("Examples:\n")
	b.WriteString("\"I spent $25 on groceries at Walmart yesterday\" ->\n")
	b.WriteString("{\"description\": \"Groceries at Walmart\", \"amount\": -25.0, \"category\": \"Groceries\", \"date\": \"2024-01-15\", \"type\": \"Expense\"}\n\n")
	b.WriteString("\"Got paid $500 for freelance work\" ->\n")
	b.WriteString("{\"description\": \"Freelance work payment\", \"amount\": 500.0, \"category\": \"Freelance\", \"date\": \"2024-01-16\", \"type\": \"Income\"}\n\n")
	b.WriteString("Return ONLY the JSON object, no additional text.")
	return b.String()
}

// insightsPrompt requests the six-key analysis bundle over an aggregated
// summary of the records.
func insightsPrompt(summary analytics.Summary, balance decimal.Decimal) (string, error) {
	payload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode summary: %w", err)
	}
	var b strings.Builder
	b.WriteString("Analyze this financial data and provide insights in JSON format:\n\n")
	b.Write(payload)
	fmt.Fprintf(&b, "\n\nCurrent balance: $%s\n\n", balance.StringFixed(2))
	b.WriteString("Return a JSON object with exactly these keys:\n")
	b.WriteString("- \"spending_patterns\": brief description of spending patterns\n")
	b.WriteString("- \"budget_recommendations\": one specific budget recommendation\n")
	b.WriteString("- \"savings_tips\": one practical savings tip\n")
	b.WriteString("- \"anomalies\": any unusual patterns or \"None detected\"\n")
	b.WriteString("- \"monthly_trend\": spending trend description\n")
	b.WriteString("- \"top_categories\": list of top 3 spending categories\n\n")
	b.WriteString("Keep responses brief and actionable. Return only valid JSON.")
	return b.String(), nil
}

// reportPrompt requests free-text prose, never JSON.
func reportPrompt(summary analytics.Summary, period string) (string, error) {
	payload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode summary: %w", err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Create a %s expense report based on this financial data:\n\n", period)
	b.Write(payload)
	b.WriteString("\n\nWrite a professional report with:\n")
	b.WriteString("1. Brief executive summary (2-3 sentences)\n")
	b.WriteString("2. Income vs expenses totals\n")
	b.WriteString("3. Top spending categories\n")
	b.WriteString("4. Key insights\n")
	b.WriteString("5. Simple recommendations\n\n")
	b.WriteString("Make it clear and concise. Do not use JSON format.")
	return b.String(), nil
}
