package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"google.golang.org/api/option"

	"github.com/dvloznov/ledgerbook/internal/ledger"
	"github.com/dvloznov/ledgerbook/internal/logger"
	"github.com/dvloznov/ledgerbook/internal/notionsync"
	"github.com/dvloznov/ledgerbook/internal/sheets"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	// Parse CLI flags
	notionToken := flag.String("notion-token", os.Getenv("NOTION_TOKEN"), "Notion API token (required)")
	notionDBID := flag.String("notion-db-id", os.Getenv("NOTION_DATABASE_ID"), "Notion database ID (required)")
	spreadsheet := flag.String("spreadsheet", os.Getenv("LEDGER_SPREADSHEET_ID"), "Google Sheets spreadsheet ID (required)")
	credentials := flag.String("credentials", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"), "service account key file (optional)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	// Validate required flags
	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required (or set NOTION_TOKEN)")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id is required (or set NOTION_DATABASE_ID)")
	}
	if *spreadsheet == "" {
		log.Fatal().Msg("Error: --spreadsheet is required (or set LEDGER_SPREADSHEET_ID)")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("notion_db_id", *notionDBID).
		Bool("dry_run", *dryRun).
		Msg("Starting Notion sync")

	var opts []option.ClientOption
	if *credentials != "" {
		opts = append(opts, option.WithCredentialsFile(*credentials))
	}
	store, err := sheets.New(ctx, *spreadsheet, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create sheets client")
	}
	lgr := ledger.New(store, nil)

	txs, err := lgr.Records(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load transactions")
	}
	// Syncing an empty ledger would archive every mirrored page. A fresh
	// ledger has nothing to mirror; a read gone wrong must not look like one.
	if len(txs) == 0 {
		log.Fatal().Msg("Ledger is empty, refusing to sync")
	}

	notionClient := notionsync.NewClient(*notionToken)

	result, err := notionsync.SyncTransactions(ctx, notionClient, *notionDBID, txs, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	if *dryRun {
		fmt.Printf("Dry run: would create %d, delete %d, skip %d of %d row(s).\n",
			result.Created, result.Deleted, result.Skipped, result.Total)
		return
	}
	fmt.Printf("Sync completed: created %d, deleted %d, skipped %d of %d row(s).\n",
		result.Created, result.Deleted, result.Skipped, result.Total)
}
