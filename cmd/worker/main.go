package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/api/option"

	"github.com/dvloznov/ledgerbook/internal/ai"
	"github.com/dvloznov/ledgerbook/internal/jobs"
	"github.com/dvloznov/ledgerbook/internal/jobs/inmemory"
	"github.com/dvloznov/ledgerbook/internal/ledger"
	"github.com/dvloznov/ledgerbook/internal/logger"
	"github.com/dvloznov/ledgerbook/internal/readcache"
	"github.com/dvloznov/ledgerbook/internal/sheets"
)

func main() {
	var (
		spreadsheet = flag.String("spreadsheet", os.Getenv("LEDGER_SPREADSHEET_ID"), "Google Sheets spreadsheet ID (or set LEDGER_SPREADSHEET_ID env)")
		credentials = flag.String("credentials", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"), "service account key file (optional)")
		model       = flag.String("model", os.Getenv("GEMINI_MODEL"), "Gemini model name (or set GEMINI_MODEL env)")
		cacheTTL    = flag.Duration("cache-ttl", 30*time.Second, "TTL for the spreadsheet read cache")
	)
	flag.Parse()

	log := logger.New()

	if *spreadsheet == "" {
		log.Fatal().Msg("No spreadsheet configured - set -spreadsheet or LEDGER_SPREADSHEET_ID")
	}

	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	var opts []option.ClientOption
	if *credentials != "" {
		opts = append(opts, option.WithCredentialsFile(*credentials))
	}
	store, err := sheets.New(ctx, *spreadsheet, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create sheets client")
	}

	lgr := ledger.New(store, readcache.New(*cacheTTL))

	assistant := ai.NewOrchestrator(nil, ai.DefaultPolicy())
	if os.Getenv("GEMINI_API_KEY") != "" || os.Getenv("GOOGLE_API_KEY") != "" {
		gemini, err := ai.NewGemini(ctx, *model)
		if err != nil {
			log.Warn().Err(err).Msg("Gemini client unavailable - deterministic fallbacks only")
		} else {
			assistant = ai.NewOrchestrator(gemini, ai.DefaultPolicy())
		}
	} else {
		log.Warn().Msg("No Gemini API key configured - deterministic fallbacks only")
	}

	// Initialize job store and queue.
	// In production this would be replaced with Cloud Tasks or Pub/Sub so
	// the API process could publish into it.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	log.Info().Msg("Starting worker service")

	handler := func(ctx context.Context, job jobs.Job) error {
		reportJob, ok := job.(*jobs.ReportJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", reportJob.JobID).
			Str("kind", string(reportJob.Kind)).
			Str("period", reportJob.Period).
			Msg("Processing report job")

		txs, err := lgr.Records(ctx)
		if err != nil {
			return fmt.Errorf("fetch records: %w", err)
		}

		switch reportJob.Kind {
		case jobs.JobTypeGenerateInsights:
			balance, err := lgr.CurrentBalance(ctx)
			if err != nil {
				return fmt.Errorf("fetch balance: %w", err)
			}
			encoded, err := json.Marshal(assistant.GenerateInsights(ctx, txs, balance))
			if err != nil {
				return fmt.Errorf("encode insights: %w", err)
			}
			reportJob.Result = string(encoded)
		default:
			reportJob.Result = assistant.GenerateReport(ctx, txs, reportJob.Period)
		}

		log.Info().
			Str("job_id", reportJob.JobID).
			Msg("Report job completed")
		return nil
	}

	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Worker service exited")
}
