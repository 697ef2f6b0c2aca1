package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/dvloznov/ledgerbook/internal/backup"
	"github.com/dvloznov/ledgerbook/internal/ledger"
	"github.com/dvloznov/ledgerbook/internal/logger"
	"github.com/dvloznov/ledgerbook/internal/sheets"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "snapshot":
		runSnapshot(log)
	case "restore":
		runRestore(log)
	case "list":
		runList(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Ledger Backup")
	fmt.Println("\nUsage:")
	fmt.Println("  backup <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  snapshot  Upload a CSV snapshot of the ledger to GCS")
	fmt.Println("  restore   Rewrite the ledger from a snapshot (latest by default)")
	fmt.Println("  list      List available snapshots, oldest first")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'backup <command> -h' for more information on a command.")
}

func runSnapshot(log zerolog.Logger) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	bucket := fs.String("bucket", os.Getenv("LEDGER_BACKUP_BUCKET"), "GCS bucket name")
	spreadsheet := fs.String("spreadsheet", os.Getenv("LEDGER_SPREADSHEET_ID"), "Google Sheets spreadsheet ID")
	credentials := fs.String("credentials", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"), "service account key file (optional)")
	fs.Parse(os.Args[2:])

	if *bucket == "" {
		log.Fatal().Msg("Error: --bucket is required (or set LEDGER_BACKUP_BUCKET)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	lgr := openLedger(ctx, log, *spreadsheet, *credentials)

	txs, err := lgr.Records(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load transactions")
	}

	log.Info().Str("bucket", *bucket).Int("rows", len(txs)).Msg("Uploading ledger snapshot")

	objectName, err := backup.Upload(ctx, *bucket, txs, time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("Snapshot failed")
	}

	fmt.Printf("Uploaded %d row(s) to gs://%s/%s\n", len(txs), *bucket, objectName)
}

func runRestore(log zerolog.Logger) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	bucket := fs.String("bucket", os.Getenv("LEDGER_BACKUP_BUCKET"), "GCS bucket name")
	object := fs.String("object", "", "Snapshot object name (defaults to the latest)")
	spreadsheet := fs.String("spreadsheet", os.Getenv("LEDGER_SPREADSHEET_ID"), "Google Sheets spreadsheet ID")
	credentials := fs.String("credentials", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"), "service account key file (optional)")
	fs.Parse(os.Args[2:])

	if *bucket == "" {
		log.Fatal().Msg("Error: --bucket is required (or set LEDGER_BACKUP_BUCKET)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	if *object == "" {
		latest, err := backup.Latest(ctx, *bucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to find latest snapshot")
		}
		*object = latest
	}

	log.Info().Str("bucket", *bucket).Str("object", *object).Msg("Restoring ledger snapshot")

	txs, skipped, err := backup.Fetch(ctx, *bucket, *object)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch snapshot")
	}
	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Msg("Snapshot contained malformed rows")
	}
	// An empty snapshot would wipe the ledger; that is never what a restore
	// is for.
	if len(txs) == 0 {
		log.Fatal().Str("object", *object).Msg("Snapshot has no rows, refusing to overwrite the ledger")
	}

	lgr := openLedger(ctx, log, *spreadsheet, *credentials)

	restored, err := lgr.Replace(ctx, txs)
	if err != nil {
		log.Fatal().Err(err).Msg("Restore failed")
	}

	fmt.Printf("Restored %d row(s) from gs://%s/%s, final balance %s\n",
		len(restored), *bucket, *object, restored[len(restored)-1].Balance.StringFixed(2))
}

func runList(log zerolog.Logger) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	bucket := fs.String("bucket", os.Getenv("LEDGER_BACKUP_BUCKET"), "GCS bucket name")
	fs.Parse(os.Args[2:])

	if *bucket == "" {
		log.Fatal().Msg("Error: --bucket is required (or set LEDGER_BACKUP_BUCKET)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	names, err := backup.List(ctx, *bucket)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list snapshots")
	}

	if len(names) == 0 {
		fmt.Printf("No snapshots in gs://%s/%s\n", *bucket, backup.ObjectPrefix)
		return
	}
	for i, name := range names {
		marker := "  "
		if i == len(names)-1 {
			marker = "* " // latest
		}
		fmt.Printf("%sgs://%s/%s\n", marker, *bucket, name)
	}
}

// openLedger wires a cache-less ledger over the spreadsheet, exiting on any
// setup failure.
func openLedger(ctx context.Context, log zerolog.Logger, spreadsheet, credentials string) *ledger.Ledger {
	if spreadsheet == "" {
		log.Fatal().Msg("Error: --spreadsheet is required (or set LEDGER_SPREADSHEET_ID)")
	}

	var opts []option.ClientOption
	if credentials != "" {
		opts = append(opts, option.WithCredentialsFile(credentials))
	}
	store, err := sheets.New(ctx, spreadsheet, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create sheets client")
	}
	return ledger.New(store, nil)
}
