package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/option"

	"github.com/dvloznov/ledgerbook/internal/bqexport"
	"github.com/dvloznov/ledgerbook/internal/ledger"
	"github.com/dvloznov/ledgerbook/internal/logger"
	"github.com/dvloznov/ledgerbook/internal/readcache"
	"github.com/dvloznov/ledgerbook/internal/sheets"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	// Parse CLI flags
	projectID := flag.String("project", "", "GCP project ID (required)")
	datasetID := flag.String("dataset", bqexport.DefaultDataset, "BigQuery dataset ID")
	spreadsheet := flag.String("spreadsheet", os.Getenv("LEDGER_SPREADSHEET_ID"), "Google Sheets spreadsheet ID (required)")
	credentials := flag.String("credentials", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"), "service account key file (optional)")
	startDateStr := flag.String("start-date", "", "Print monthly totals from this date, YYYY-MM-DD (needs --end-date)")
	endDateStr := flag.String("end-date", "", "Print monthly totals up to this date, YYYY-MM-DD (needs --start-date)")
	flag.Parse()

	if *projectID == "" {
		log.Fatal().Msg("Error: --project flag is required. Please specify your GCP project ID.")
	}
	if *spreadsheet == "" {
		log.Fatal().Msg("Error: --spreadsheet is required (or set LEDGER_SPREADSHEET_ID)")
	}
	if (*startDateStr == "") != (*endDateStr == "") {
		log.Fatal().Msg("Error: --start-date and --end-date must be given together")
	}

	var startDate, endDate time.Time
	wantTotals := *startDateStr != ""
	if wantTotals {
		var err error
		startDate, err = time.Parse("2006-01-02", *startDateStr)
		if err != nil {
			log.Fatal().Err(err).Str("start_date", *startDateStr).Msg("Error: invalid start-date format, expected YYYY-MM-DD")
		}
		endDate, err = time.Parse("2006-01-02", *endDateStr)
		if err != nil {
			log.Fatal().Err(err).Str("end_date", *endDateStr).Msg("Error: invalid end-date format, expected YYYY-MM-DD")
		}
		if endDate.Before(startDate) {
			log.Fatal().
				Time("start_date", startDate).
				Time("end_date", endDate).
				Msg("Error: end-date must be after start-date")
		}
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
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
	lgr := ledger.New(store, readcache.New(0))

	client, err := bigquery.NewClient(ctx, *projectID, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer client.Close()

	log.Info().Str("project", *projectID).Str("dataset", *datasetID).Msg("Starting BigQuery export")

	exporter := bqexport.New(client, *datasetID)
	if err := exporter.EnsureTable(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure export table")
	}

	txs, err := lgr.Records(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load transactions")
	}

	exported, skipped, err := exporter.Export(ctx, txs)
	if err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}

	fmt.Printf("Exported %d row(s) to %s.%s", exported, *projectID, *datasetID)
	if skipped > 0 {
		fmt.Printf(" (%d skipped as unparseable)", skipped)
	}
	fmt.Println()

	if !wantTotals {
		return
	}

	totals, err := exporter.MonthlyTotals(ctx, startDate, endDate)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to query monthly totals")
	}

	if len(totals) == 0 {
		fmt.Printf("No exported rows between %s and %s.\n", *startDateStr, *endDateStr)
		return
	}
	fmt.Printf("\n%-10s %14s %14s\n", "Month", "Income", "Expenses")
	for _, t := range totals {
		fmt.Printf("%-10s %14s %14s\n", t.Month, t.Income.FloatString(2), t.Expenses.FloatString(2))
	}
}
