package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/dvloznov/ledgerbook/internal/ai"
	"github.com/dvloznov/ledgerbook/internal/analytics"
	"github.com/dvloznov/ledgerbook/internal/chartspec"
	"github.com/dvloznov/ledgerbook/internal/domain"
	"github.com/dvloznov/ledgerbook/internal/ledger"
	"github.com/dvloznov/ledgerbook/internal/logger"
	"github.com/dvloznov/ledgerbook/internal/readcache"
	"github.com/dvloznov/ledgerbook/internal/records"
	"github.com/dvloznov/ledgerbook/internal/sheets"
)

const defaultRecentLimit = 10

// app holds the wired collaborators for one interactive session.
type app struct {
	ledger    *ledger.Ledger
	assistant *ai.Orchestrator
	charts    chartspec.Surface
	scanner   *bufio.Scanner
}

func main() {
	var (
		spreadsheet = flag.String("spreadsheet", os.Getenv("LEDGER_SPREADSHEET_ID"), "Google Sheets spreadsheet ID (or set LEDGER_SPREADSHEET_ID env)")
		credentials = flag.String("credentials", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"), "service account key file (optional)")
		model       = flag.String("model", os.Getenv("GEMINI_MODEL"), "Gemini model name (or set GEMINI_MODEL env)")
		cacheTTL    = flag.Duration("cache-ttl", 30*time.Second, "TTL for the spreadsheet read cache")
	)
	flag.Parse()

	// Logs go to stderr so the menu stays readable on stdout.
	log := logger.NewWithWriter(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).Level(zerolog.WarnLevel)

	if *spreadsheet == "" {
		log.Fatal().Msg("No spreadsheet configured - set -spreadsheet or LEDGER_SPREADSHEET_ID")
	}

	ctx := logger.WithContext(context.Background(), log)

	var opts []option.ClientOption
	if *credentials != "" {
		opts = append(opts, option.WithCredentialsFile(*credentials))
	}
	store, err := sheets.New(ctx, *spreadsheet, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create sheets client")
	}
	if err := store.EnsureWorksheets(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare worksheets")
	}

	assistant := ai.NewOrchestrator(nil, ai.DefaultPolicy())
	if os.Getenv("GEMINI_API_KEY") != "" || os.Getenv("GOOGLE_API_KEY") != "" {
		if gemini, err := ai.NewGemini(ctx, *model); err == nil {
			assistant = ai.NewOrchestrator(gemini, ai.DefaultPolicy())
		} else {
			log.Warn().Err(err).Msg("Gemini client unavailable - deterministic fallbacks only")
		}
	}

	cli := &app{
		ledger:    ledger.New(store, readcache.New(*cacheTTL)),
		assistant: assistant,
		charts:    store,
		scanner:   bufio.NewScanner(os.Stdin),
	}

	fmt.Println("Personal Ledger")
	fmt.Println(strings.Repeat("=", 45))
	if !assistant.Available() {
		fmt.Println("note: AI model offline, smart features use deterministic fallbacks")
	}

	cli.run(ctx)
}

func (a *app) run(ctx context.Context) {
	for {
		fmt.Println("\nChoose an option:")
		fmt.Println("  1. Add expense")
		fmt.Println("  2. Add income")
		fmt.Println("  3. Smart add (describe it in words)")
		fmt.Println("  4. Recent transactions")
		fmt.Println("  5. Category summary")
		fmt.Println("  6. Current balance")
		fmt.Println("  7. AI insights")
		fmt.Println("  8. Expense report")
		fmt.Println("  9. Refresh charts")
		fmt.Println(" 10. Repair balances")
		fmt.Println("  0. Exit")

		choice, ok := a.prompt("Enter your choice: ")
		if !ok {
			return
		}

		switch choice {
		case "1":
			a.addTransaction(ctx, domain.Expense)
		case "2":
			a.addTransaction(ctx, domain.Income)
		case "3":
			a.smartAdd(ctx)
		case "4":
			a.recentTransactions(ctx)
		case "5":
			a.categorySummary(ctx)
		case "6":
			a.currentBalance(ctx)
		case "7":
			a.insights(ctx)
		case "8":
			a.report(ctx)
		case "9":
			a.refreshCharts(ctx)
		case "10":
			a.repair(ctx)
		case "0", "q", "exit":
			fmt.Println("Bye.")
			return
		default:
			fmt.Println("Invalid choice, enter 0-10.")
		}
	}
}

// prompt reads one trimmed line, returning false on EOF.
func (a *app) prompt(label string) (string, bool) {
	fmt.Print(label)
	if !a.scanner.Scan() {
		fmt.Println()
		return "", false
	}
	return strings.TrimSpace(a.scanner.Text()), true
}

func (a *app) addTransaction(ctx context.Context, txType domain.TransactionType) {
	description, ok := a.prompt("Description: ")
	if !ok || description == "" {
		fmt.Println("Cancelled: description is required.")
		return
	}
	category, ok := a.prompt("Category (empty for AI suggestion): ")
	if !ok {
		return
	}
	rawAmount, ok := a.prompt("Amount: ")
	if !ok {
		return
	}
	amount, err := records.Decimal(rawAmount)
	if err != nil || amount.IsZero() {
		fmt.Println("Cancelled: amount must be a non-zero number.")
		return
	}

	if category == "" {
		history, _ := a.ledger.Records(ctx)
		category = a.assistant.Categorize(ctx, description, domain.SignedAmount(amount, txType), history)
		fmt.Printf("Suggested category: %s\n", category)
	}

	tx, err := a.ledger.Record(ctx, description, category, amount, txType)
	if err != nil {
		fmt.Printf("Failed to record transaction: %v\n", err)
		return
	}
	fmt.Printf("Recorded. New balance: $%s\n", tx.Balance.StringFixed(2))
}

func (a *app) smartAdd(ctx context.Context) {
	text, ok := a.prompt("Describe the transaction (e.g. \"spent $25 on groceries\"): ")
	if !ok || text == "" {
		fmt.Println("Cancelled: nothing to parse.")
		return
	}

	draft := a.assistant.ParseNaturalLanguage(ctx, text)
	if draft.Amount.IsZero() {
		fmt.Println("Could not find an amount in that, try \"spent $12 on lunch\".")
		return
	}

	fmt.Println("\nParsed draft:")
	fmt.Printf("  Description: %s\n", draft.Description)
	fmt.Printf("  Category:    %s\n", draft.Category)
	fmt.Printf("  Amount:      $%s (%s)\n", draft.Amount.Abs().StringFixed(2), draft.Type)
	fmt.Printf("  Date:        %s\n", draft.Date)

	confirm, ok := a.prompt("Save it? (y/N): ")
	if !ok || !strings.EqualFold(confirm, "y") {
		fmt.Println("Discarded.")
		return
	}

	tx, err := a.ledger.Record(ctx, draft.Description, draft.Category, draft.Amount, draft.Type)
	if err != nil {
		fmt.Printf("Failed to record transaction: %v\n", err)
		return
	}
	fmt.Printf("Recorded. New balance: $%s\n", tx.Balance.StringFixed(2))
}

func (a *app) recentTransactions(ctx context.Context) {
	limit := defaultRecentLimit
	if raw, ok := a.prompt(fmt.Sprintf("How many to show? (default %d): ", defaultRecentLimit)); ok && raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	txs, err := a.ledger.Records(ctx)
	if err != nil {
		fmt.Printf("Failed to load transactions: %v\n", err)
		return
	}
	if len(txs) == 0 {
		fmt.Println("No transactions yet.")
		return
	}

	start := 0
	if len(txs) > limit {
		start = len(txs) - limit
	}

	fmt.Printf("\n%-12s %-28s %-18s %12s %12s\n", "Date", "Description", "Category", "Amount", "Balance")
	fmt.Println(strings.Repeat("-", 86))
	for _, tx := range txs[start:] {
		fmt.Printf("%-12s %-28s %-18s %12s %12s\n",
			tx.DayKey(),
			truncate(tx.Description, 28),
			truncate(tx.Category, 18),
			tx.Amount.StringFixed(2),
			tx.Balance.StringFixed(2))
	}
}

func (a *app) categorySummary(ctx context.Context) {
	txs, err := a.ledger.Records(ctx)
	if err != nil {
		fmt.Printf("Failed to load transactions: %v\n", err)
		return
	}
	totals := analytics.CategoryTotals(txs)
	if len(totals) == 0 {
		fmt.Println("No transactions yet.")
		return
	}

	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("\n%-22s %12s %12s\n", "Category", "Income", "Expense")
	fmt.Println(strings.Repeat("-", 48))
	for _, name := range names {
		t := totals[name]
		fmt.Printf("%-22s %12s %12s\n", truncate(name, 22), t.Income.StringFixed(2), t.Expense.StringFixed(2))
	}
}

func (a *app) currentBalance(ctx context.Context) {
	balance, err := a.ledger.CurrentBalance(ctx)
	if err != nil {
		fmt.Printf("Failed to read balance: %v\n", err)
		return
	}
	fmt.Printf("\nCurrent balance: $%s\n", balance.StringFixed(2))
}

func (a *app) insights(ctx context.Context) {
	txs, err := a.ledger.Records(ctx)
	if err != nil {
		fmt.Printf("Failed to load transactions: %v\n", err)
		return
	}
	balance, err := a.ledger.CurrentBalance(ctx)
	if err != nil {
		fmt.Printf("Failed to read balance: %v\n", err)
		return
	}

	fmt.Println("\nAnalyzing...")
	ins := a.assistant.GenerateInsights(ctx, txs, balance)

	fmt.Println("\nSpending patterns:")
	fmt.Println("  " + ins.SpendingPatterns)
	fmt.Println("Budget recommendations:")
	fmt.Println("  " + ins.BudgetRecommendations)
	fmt.Println("Savings tips:")
	fmt.Println("  " + ins.SavingsTips)
	fmt.Println("Anomalies:")
	fmt.Println("  " + ins.Anomalies)
	fmt.Println("Monthly trend:")
	fmt.Println("  " + ins.MonthlyTrend)
	if len(ins.TopCategories) > 0 {
		fmt.Printf("Top categories: %s\n", strings.Join(ins.TopCategories, ", "))
	}
}

func (a *app) report(ctx context.Context) {
	period, ok := a.prompt("Period (e.g. \"this month\", \"last month\", \"this year\"): ")
	if !ok {
		return
	}
	if period == "" {
		period = "this month"
	}

	txs, err := a.ledger.Records(ctx)
	if err != nil {
		fmt.Printf("Failed to load transactions: %v\n", err)
		return
	}

	fmt.Println("\nGenerating report...")
	fmt.Println(a.assistant.GenerateReport(ctx, txs, period))
}

func (a *app) refreshCharts(ctx context.Context) {
	txs, err := a.ledger.Records(ctx)
	if err != nil {
		fmt.Printf("Failed to load transactions: %v\n", err)
		return
	}
	if len(txs) == 0 {
		fmt.Println("No transactions to chart yet.")
		return
	}

	count, err := chartspec.Refresh(ctx, a.charts, txs)
	if err != nil {
		fmt.Printf("Chart refresh failed: %v\n", err)
		return
	}
	fmt.Printf("Updated %d chart(s). Open the spreadsheet to view them.\n", count)
}

func (a *app) repair(ctx context.Context) {
	confirm, ok := a.prompt("Recompute every stored balance? (y/N): ")
	if !ok || !strings.EqualFold(confirm, "y") {
		fmt.Println("Skipped.")
		return
	}

	repaired, err := a.ledger.RepairAll(ctx)
	if err != nil {
		fmt.Printf("Repair failed: %v\n", err)
		return
	}
	fmt.Printf("Repaired %d row(s).\n", len(repaired))
	if len(repaired) > 0 {
		fmt.Printf("Final balance: $%s\n", repaired[len(repaired)-1].Balance.StringFixed(2))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
