package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledgerbook/internal/ai"
	"github.com/dvloznov/ledgerbook/internal/analytics"
	"github.com/dvloznov/ledgerbook/internal/api/middleware"
	"github.com/dvloznov/ledgerbook/internal/chartspec"
	"github.com/dvloznov/ledgerbook/internal/domain"
	"github.com/dvloznov/ledgerbook/internal/jobs"
	"github.com/dvloznov/ledgerbook/internal/ledger"
)

// ModelLister probes the generative backend for usable models.
// This interface enables mocking and testing of the models endpoint.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
	ModelName() string
}

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	ledger    *ledger.Ledger
	assistant *ai.Orchestrator
	log       zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(l *ledger.Ledger, assistant *ai.Orchestrator, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		ledger:    l,
		assistant: assistant,
		log:       log,
	}
}

// List handles GET /api/transactions
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	txs, err := h.ledger.Records(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read transactions")
		return
	}

	if period := r.URL.Query().Get("period"); period != "" {
		txs = ai.FilterByPeriod(txs, period, time.Now())
	}

	// Return array directly for frontend compatibility
	if txs == nil {
		txs = []domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, txs)
}

// Create handles POST /api/transactions
// An omitted category is filled in by the assistant from the description.
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Type        string          `json:"type"`
		Category    string          `json:"category"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" {
		middleware.WriteError(w, http.StatusBadRequest, "description is required")
		return
	}
	if req.Amount.IsZero() {
		middleware.WriteError(w, http.StatusBadRequest, "amount must be non-zero")
		return
	}
	txType, err := domain.ParseType(req.Type)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()

	category := strings.TrimSpace(req.Category)
	autoCategorized := false
	if category == "" {
		// Best effort: categorization history is optional context.
		history, _ := h.ledger.Records(ctx)
		category = h.assistant.Categorize(ctx, req.Description, req.Amount, history)
		autoCategorized = true
	}

	tx, err := h.ledger.Record(ctx, req.Description, category, req.Amount, txType)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to record transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to record transaction")
		return
	}

	h.log.Info().
		Str("category", tx.Category).
		Str("type", string(tx.Type)).
		Bool("auto_categorized", autoCategorized).
		Msg("Transaction recorded")

	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"transaction":      tx,
		"auto_categorized": autoCategorized,
	})
}

// Parse handles POST /api/transactions/parse
// It turns free-form text into a transaction draft without recording it.
func (h *TransactionsHandler) Parse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "text is required")
		return
	}

	draft := h.assistant.ParseNaturalLanguage(r.Context(), req.Text)

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"draft": draft,
	})
}

// Balance handles GET /api/balance
func (h *TransactionsHandler) Balance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	balance, err := h.ledger.CurrentBalance(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read balance")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read balance")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"balance": balance,
	})
}

// AnalyticsHandler handles analytics and insights endpoints.
type AnalyticsHandler struct {
	ledger    *ledger.Ledger
	assistant *ai.Orchestrator
	log       zerolog.Logger
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(l *ledger.Ledger, assistant *ai.Orchestrator, log zerolog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		ledger:    l,
		assistant: assistant,
		log:       log,
	}
}

// Summary handles GET /api/analytics/summary
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	txs, ok := h.records(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, analytics.Summarize(txs))
}

// Categories handles GET /api/analytics/categories
func (h *AnalyticsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	txs, ok := h.records(w, r)
	if !ok {
		return
	}

	totals := analytics.CategoryTotals(txs)
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": totals,
		"count":      len(totals),
	})
}

// Monthly handles GET /api/analytics/monthly
func (h *AnalyticsHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	txs, ok := h.records(w, r)
	if !ok {
		return
	}

	series := analytics.MonthlySeries(txs)
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"months": series,
		"count":  len(series),
	})
}

// Trend handles GET /api/analytics/trend
func (h *AnalyticsHandler) Trend(w http.ResponseWriter, r *http.Request) {
	txs, ok := h.records(w, r)
	if !ok {
		return
	}

	entries := 0
	if s := r.URL.Query().Get("entries"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			entries = n
		}
	}

	points := analytics.BalanceTrend(txs, entries)
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"trend": points,
		"count": len(points),
	})
}

// Insights handles POST /api/analytics/insights
// Generation always answers: when the model misbehaves the assistant falls
// back to insights computed from the records themselves.
func (h *AnalyticsHandler) Insights(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	txs, ok := h.records(w, r)
	if !ok {
		return
	}
	balance, err := h.ledger.CurrentBalance(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read balance")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read balance")
		return
	}

	insights := h.assistant.GenerateInsights(ctx, txs, balance)

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"insights":     insights,
		"transactions": len(txs),
	})
}

func (h *AnalyticsHandler) records(w http.ResponseWriter, r *http.Request) ([]domain.Transaction, bool) {
	txs, err := h.ledger.Records(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read transactions")
		return nil, false
	}
	return txs, true
}

// ReportsHandler handles asynchronous report generation endpoints.
type ReportsHandler struct {
	publisher jobs.Publisher
	store     jobs.JobStore
	log       zerolog.Logger
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(publisher jobs.Publisher, store jobs.JobStore, log zerolog.Logger) *ReportsHandler {
	return &ReportsHandler{
		publisher: publisher,
		store:     store,
		log:       log,
	}
}

// Create handles POST /api/reports
// It enqueues a report or insights job and returns its ID for polling.
func (h *ReportsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Period string `json:"period"`
		Kind   string `json:"kind"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	kind := jobs.JobTypeGenerateReport
	switch strings.ToLower(strings.TrimSpace(req.Kind)) {
	case "", "report":
	case "insights":
		kind = jobs.JobTypeGenerateInsights
	default:
		middleware.WriteError(w, http.StatusBadRequest, "kind must be report or insights")
		return
	}

	period := strings.TrimSpace(req.Period)
	if period == "" {
		period = "this month"
	}

	ctx := r.Context()

	job := &jobs.ReportJob{
		Kind:   kind,
		Period: period,
	}
	if err := h.publisher.PublishReport(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue report job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue report job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("kind", string(kind)).Str("period", period).Msg("Report job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"kind":   string(job.Kind),
		"status": string(job.Status),
	})
}

// Get handles GET /api/reports/{id}
// The job carries its result once completed.
func (h *ReportsHandler) Get(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Report job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// List handles GET /api/reports
// Jobs come back newest first; kind, status, limit and offset narrow the set.
func (h *ReportsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		Kind:   jobs.JobType(query.Get("kind")),
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list report jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list report jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// AdminHandler handles maintenance endpoints.
type AdminHandler struct {
	ledger *ledger.Ledger
	charts chartspec.Surface
	models ModelLister
	log    zerolog.Logger
}

// NewAdminHandler creates a new admin handler. charts and models may be nil
// when the spreadsheet or assistant backends are not configured.
func NewAdminHandler(l *ledger.Ledger, charts chartspec.Surface, models ModelLister, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		ledger: l,
		charts: charts,
		models: models,
		log:    log,
	}
}

// Repair handles POST /api/admin/repair
// It recomputes every running balance from zero and rewrites the sheet.
func (h *AdminHandler) Repair(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	repaired, err := h.ledger.RepairAll(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to repair balances")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to repair balances")
		return
	}

	balance := decimal.Zero
	if len(repaired) > 0 {
		balance = repaired[len(repaired)-1].Balance
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"repaired": len(repaired),
		"balance":  balance,
	})
}

// RefreshCharts handles POST /api/admin/charts/refresh
func (h *AdminHandler) RefreshCharts(w http.ResponseWriter, r *http.Request) {
	if h.charts == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Chart backend not configured")
		return
	}

	ctx := r.Context()

	txs, err := h.ledger.Records(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read transactions")
		return
	}
	if len(txs) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "No transactions to chart")
		return
	}

	count, err := chartspec.Refresh(ctx, h.charts, txs)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to refresh charts")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to refresh charts")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"charts": count,
	})
}

// Models handles GET /api/admin/models
// It probes the generative backend for models that can serve this ledger.
func (h *AdminHandler) Models(w http.ResponseWriter, r *http.Request) {
	if h.models == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Assistant not configured")
		return
	}

	ctx := r.Context()

	// The probe is informational, so a backend hiccup degrades to an
	// empty list rather than an error response.
	models, err := h.models.ListModels(ctx)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to list models")
		models = nil
	}
	if models == nil {
		models = []string{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"models": models,
		"count":  len(models),
		"active": h.models.ModelName(),
	})
}
