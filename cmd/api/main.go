package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"google.golang.org/api/option"

	"github.com/dvloznov/ledgerbook/internal/ai"
	"github.com/dvloznov/ledgerbook/internal/api/handlers"
	"github.com/dvloznov/ledgerbook/internal/api/middleware"
	"github.com/dvloznov/ledgerbook/internal/jobs"
	"github.com/dvloznov/ledgerbook/internal/jobs/inmemory"
	"github.com/dvloznov/ledgerbook/internal/ledger"
	"github.com/dvloznov/ledgerbook/internal/logger"
	"github.com/dvloznov/ledgerbook/internal/readcache"
	"github.com/dvloznov/ledgerbook/internal/sheets"
)

func main() {
	// Parse command-line flags
	var (
		port        = flag.String("port", "8080", "HTTP server port")
		spreadsheet = flag.String("spreadsheet", os.Getenv("LEDGER_SPREADSHEET_ID"), "Google Sheets spreadsheet ID (or set LEDGER_SPREADSHEET_ID env)")
		credentials = flag.String("credentials", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"), "service account key file (optional; application default credentials when empty)")
		model       = flag.String("model", os.Getenv("GEMINI_MODEL"), "Gemini model name (or set GEMINI_MODEL env)")
		authToken   = flag.String("auth-token", os.Getenv("API_AUTH_TOKEN"), "bearer token required on requests (or set API_AUTH_TOKEN env; empty disables auth)")
		cacheTTL    = flag.Duration("cache-ttl", 30*time.Second, "TTL for the spreadsheet read cache")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New()

	if *spreadsheet == "" {
		log.Fatal().Msg("No spreadsheet configured - set -spreadsheet or LEDGER_SPREADSHEET_ID")
	}
	if *authToken == "" {
		log.Warn().Msg("No auth token configured - API is open")
	}

	ctx := logger.WithContext(context.Background(), log)

	// Initialize the spreadsheet store
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

	lgr := ledger.New(store, readcache.New(*cacheTTL))

	// The model is optional: without credentials every AI-backed operation
	// answers from the deterministic fallbacks.
	assistant := ai.NewOrchestrator(nil, ai.DefaultPolicy())
	var models handlers.ModelLister
	if hasGeminiKey() {
		gemini, err := ai.NewGemini(ctx, *model)
		if err != nil {
			log.Warn().Err(err).Msg("Gemini client unavailable - deterministic fallbacks only")
		} else {
			assistant = ai.NewOrchestrator(gemini, ai.DefaultPolicy())
			models = gemini
			log.Info().Str("model", gemini.ModelName()).Msg("Gemini model wired in")
		}
	} else {
		log.Warn().Msg("No Gemini API key configured - deterministic fallbacks only")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	// Start job consumer in background
	go func() {
		log.Info().Msg("Starting report worker")
		if err := jobQueue.Start(workerCtx, reportJobHandler(lgr, assistant)); err != nil {
			log.Error().Err(err).Msg("Report worker stopped with error")
		}
	}()

	// Initialize handlers
	transactionsHandler := handlers.NewTransactionsHandler(lgr, assistant, log)
	analyticsHandler := handlers.NewAnalyticsHandler(lgr, assistant, log)
	reportsHandler := handlers.NewReportsHandler(jobQueue, jobStore, log)
	adminHandler := handlers.NewAdminHandler(lgr, store, models, log)

	// Create router
	mux := http.NewServeMux()

	// Transactions endpoints
	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.List(w, r)
		case http.MethodPost:
			transactionsHandler.Create(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions/parse", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			transactionsHandler.Parse(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/balance", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			transactionsHandler.Balance(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Analytics endpoints
	mux.HandleFunc("/api/analytics/summary", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			analyticsHandler.Summary(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/analytics/categories", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			analyticsHandler.Categories(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/analytics/monthly", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			analyticsHandler.Monthly(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/analytics/trend", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			analyticsHandler.Trend(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/analytics/insights", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			analyticsHandler.Insights(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Reports endpoints
	mux.HandleFunc("/api/reports", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			reportsHandler.List(w, r)
		case http.MethodPost:
			reportsHandler.Create(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/reports/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/reports/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			reportsHandler.Get(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Admin endpoints
	mux.HandleFunc("/api/admin/repair", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			adminHandler.Repair(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/admin/charts/refresh", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			adminHandler.RefreshCharts(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/admin/models", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			adminHandler.Models(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(log)(
				middleware.CORS(
					middleware.Auth(*authToken)(mux),
				),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Str("spreadsheet", *spreadsheet).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Cancel worker context
	cancelWorker()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}

// reportJobHandler processes queued report and insight jobs, storing the
// rendered result on the job record for pollers.
func reportJobHandler(lgr *ledger.Ledger, assistant *ai.Orchestrator) jobs.JobHandler {
	return func(ctx context.Context, job jobs.Job) error {
		reportJob, ok := job.(*jobs.ReportJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log := logger.FromContext(ctx)
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
			insights := assistant.GenerateInsights(ctx, txs, balance)
			encoded, err := json.Marshal(insights)
			if err != nil {
				return fmt.Errorf("encode insights: %w", err)
			}
			reportJob.Result = string(encoded)
		default:
			reportJob.Result = assistant.GenerateReport(ctx, txs, reportJob.Period)
		}

		log.Info().
			Str("job_id", reportJob.JobID).
			Int("result_bytes", len(reportJob.Result)).
			Msg("Report job completed")
		return nil
	}
}

// hasGeminiKey reports whether the genai SDK will find an API key in the
// environment, checked up front so a keyless deployment degrades loudly at
// startup instead of on the first request.
func hasGeminiKey() bool {
	return os.Getenv("GEMINI_API_KEY") != "" || os.Getenv("GOOGLE_API_KEY") != ""
}
