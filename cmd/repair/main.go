package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"google.golang.org/api/option"

	"github.com/dvloznov/ledgerbook/internal/domain"
	"github.com/dvloznov/ledgerbook/internal/ledger"
	"github.com/dvloznov/ledgerbook/internal/logger"
	"github.com/dvloznov/ledgerbook/internal/sheets"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	// Parse CLI flags
	spreadsheet := flag.String("spreadsheet", os.Getenv("LEDGER_SPREADSHEET_ID"), "Google Sheets spreadsheet ID (required)")
	credentials := flag.String("credentials", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"), "service account key file (optional)")
	dryRun := flag.Bool("dry-run", false, "Preview balance changes without rewriting the sheet")
	flag.Parse()

	if *spreadsheet == "" {
		log.Fatal().Msg("Error: --spreadsheet is required (or set LEDGER_SPREADSHEET_ID)")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	var opts []option.ClientOption
	if *credentials != "" {
		opts = append(opts, option.WithCredentialsFile(*credentials))
	}
	store, err := sheets.New(ctx, *spreadsheet, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create sheets client")
	}

	lgr := ledger.New(store, nil)

	log.Info().Bool("dry_run", *dryRun).Msg("Starting balance repair")

	before, err := lgr.Records(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load transactions")
	}
	if len(before) == 0 {
		fmt.Println("Ledger is empty, nothing to repair.")
		return
	}

	changed := printPlan(before, ledger.RepairPlan(before))

	if *dryRun {
		fmt.Printf("Dry run: %d of %d row(s) would change. Re-run without -dry-run to apply.\n", changed, len(before))
		return
	}
	if changed == 0 {
		fmt.Printf("All %d row(s) already consistent, nothing to rewrite.\n", len(before))
		return
	}

	repaired, err := lgr.RepairAll(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Repair failed")
	}

	fmt.Printf("Repaired %d row(s), final balance %s.\n", len(repaired), repaired[len(repaired)-1].Balance.StringFixed(2))
}

// printPlan prints one line per row whose balance would change and returns
// how many there are.
func printPlan(before, after []domain.Transaction) int {
	changed := 0
	for i, tx := range before {
		if tx.Balance.Equal(after[i].Balance) {
			continue
		}
		fmt.Printf("  [FIX] row %d  %s  %-28s  %s -> %s\n",
			i+1, tx.DayKey(), tx.Description, tx.Balance.StringFixed(2), after[i].Balance.StringFixed(2))
		changed++
	}
	return changed
}
