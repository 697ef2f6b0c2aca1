package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/dvloznov/ledgerbook/internal/ai"
	"github.com/dvloznov/ledgerbook/internal/domain"
	"github.com/dvloznov/ledgerbook/internal/jobs/inmemory"
	"github.com/dvloznov/ledgerbook/internal/ledger"
	"github.com/dvloznov/ledgerbook/internal/readcache"
)

// fakeStore keeps worksheet rows in memory, in the column order of the
// Transactions sheet.
type fakeStore struct {
	rows      [][]any
	rewritten [][]any
	appendErr error
	allErr    error
}

func row(date, desc, category, amount, typ, balance string) []any {
	return []any{date, desc, category, amount, typ, balance}
}

func (s *fakeStore) AppendRow(_ context.Context, row []any) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.rows = append(s.rows, row)
	return nil
}

func (s *fakeStore) AllRecords(_ context.Context) ([]map[string]any, error) {
	if s.allErr != nil {
		return nil, s.allErr
	}
	records := make([]map[string]any, 0, len(s.rows))
	for _, r := range s.rows {
		record := make(map[string]any, len(domain.Header))
		for i, key := range domain.Header {
			if i < len(r) {
				record[key] = r[i]
			} else {
				record[key] = ""
			}
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *fakeStore) ColumnValues(_ context.Context, column int) ([]string, error) {
	if s.allErr != nil {
		return nil, s.allErr
	}
	values := []string{domain.Header[column-1]}
	for _, r := range s.rows {
		values = append(values, fmt.Sprint(r[column-1]))
	}
	return values, nil
}

func (s *fakeStore) RewriteRows(_ context.Context, rows [][]any) error {
	s.rows = rows
	s.rewritten = rows
	return nil
}

func newTestHandlers(store *fakeStore) (*TransactionsHandler, *AnalyticsHandler, *AdminHandler) {
	l := ledger.New(store, readcache.New(0))
	// No generator: the assistant answers from its deterministic fallbacks.
	assistant := ai.NewOrchestrator(nil, ai.DefaultPolicy())
	log := zerolog.Nop()
	return NewTransactionsHandler(l, assistant, log),
		NewAnalyticsHandler(l, assistant, log),
		NewAdminHandler(l, nil, nil, log)
}

func postJSON(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
}

func TestTransactionsList(t *testing.T) {
	store := &fakeStore{rows: [][]any{
		row("2025-03-01", "Salary", "Salary", "2500", "Income", "2500"),
		row("2025-03-02", "Groceries", "Food & Dining", "-120.50", "Expense", "2379.50"),
	}}
	th, _, _ := newTestHandlers(store)

	w := httptest.NewRecorder()
	th.List(w, httptest.NewRequest(http.MethodGet, "/api/transactions", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var txs []domain.Transaction
	if err := json.Unmarshal(w.Body.Bytes(), &txs); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txs))
	}
	if !txs[1].Amount.Equal(decimal.RequireFromString("-120.50")) {
		t.Errorf("Amount = %s, want -120.50", txs[1].Amount)
	}
}

func TestTransactionsListEmpty(t *testing.T) {
	th, _, _ := newTestHandlers(&fakeStore{})

	w := httptest.NewRecorder()
	th.List(w, httptest.NewRequest(http.MethodGet, "/api/transactions", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var txs []domain.Transaction
	if err := json.Unmarshal(w.Body.Bytes(), &txs); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("got %d transactions, want empty array", len(txs))
	}
}

func TestTransactionsListStoreFailure(t *testing.T) {
	th, _, _ := newTestHandlers(&fakeStore{allErr: errors.New("sheet unreachable")})

	w := httptest.NewRecorder()
	th.List(w, httptest.NewRequest(http.MethodGet, "/api/transactions", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}

func TestTransactionsCreate(t *testing.T) {
	store := &fakeStore{rows: [][]any{
		row("2025-03-01", "Salary", "Salary", "2500", "Income", "2500"),
	}}
	th, _, _ := newTestHandlers(store)

	w := httptest.NewRecorder()
	th.Create(w, postJSON(`{"description":"March rent","amount":800,"type":"expense","category":"Rent"}`))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Transaction     domain.Transaction `json:"transaction"`
		AutoCategorized bool               `json:"auto_categorized"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.AutoCategorized {
		t.Error("auto_categorized = true for explicit category")
	}
	if !resp.Transaction.Amount.Equal(decimal.RequireFromString("-800")) {
		t.Errorf("Amount = %s, want -800", resp.Transaction.Amount)
	}
	if !resp.Transaction.Balance.Equal(decimal.RequireFromString("1700")) {
		t.Errorf("Balance = %s, want 1700", resp.Transaction.Balance)
	}
	if len(store.rows) != 2 {
		t.Errorf("store has %d rows, want 2", len(store.rows))
	}
}

func TestTransactionsCreateAutoCategorize(t *testing.T) {
	th, _, _ := newTestHandlers(&fakeStore{})

	w := httptest.NewRecorder()
	th.Create(w, postJSON(`{"description":"weekly grocery run","amount":"54.20","type":"expense"}`))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Transaction     domain.Transaction `json:"transaction"`
		AutoCategorized bool               `json:"auto_categorized"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.AutoCategorized {
		t.Error("auto_categorized = false, want true")
	}
	if resp.Transaction.Category != "Food & Dining" {
		t.Errorf("Category = %q, want Food & Dining", resp.Transaction.Category)
	}
}

func TestTransactionsCreateValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed JSON", `{"description":`},
		{"missing description", `{"amount":10,"type":"expense"}`},
		{"zero amount", `{"description":"x","amount":0,"type":"expense"}`},
		{"unknown type", `{"description":"x","amount":10,"type":"transfer"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			th, _, _ := newTestHandlers(store)

			w := httptest.NewRecorder()
			th.Create(w, postJSON(tt.body))

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			if len(store.rows) != 0 {
				t.Errorf("invalid request wrote %d rows", len(store.rows))
			}
		})
	}
}

func TestTransactionsParse(t *testing.T) {
	th, _, _ := newTestHandlers(&fakeStore{})

	w := httptest.NewRecorder()
	th.Parse(w, postJSON(`{"text":"spent $25 on food"}`))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Draft ai.Draft `json:"draft"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Draft.Amount.Equal(decimal.RequireFromString("-25")) {
		t.Errorf("Amount = %s, want -25", resp.Draft.Amount)
	}
	if resp.Draft.Type != domain.Expense {
		t.Errorf("Type = %q, want expense", resp.Draft.Type)
	}
	if resp.Draft.Category != "Food & Dining" {
		t.Errorf("Category = %q, want Food & Dining", resp.Draft.Category)
	}
	if resp.Draft.Date == "" {
		t.Error("Date not filled in")
	}
}

func TestTransactionsParseEmptyText(t *testing.T) {
	th, _, _ := newTestHandlers(&fakeStore{})

	w := httptest.NewRecorder()
	th.Parse(w, postJSON(`{"text":"  "}`))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestBalanceEndpoint(t *testing.T) {
	store := &fakeStore{rows: [][]any{
		row("2025-03-01", "Salary", "Salary", "100", "Income", "100"),
		row("2025-03-02", "Coffee", "Food & Dining", "-30", "Expense", "70"),
	}}
	th, _, _ := newTestHandlers(store)

	w := httptest.NewRecorder()
	th.Balance(w, httptest.NewRequest(http.MethodGet, "/api/balance", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Balance decimal.Decimal `json:"balance"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Balance.Equal(decimal.RequireFromString("70")) {
		t.Errorf("Balance = %s, want 70", resp.Balance)
	}
}

func TestAnalyticsSummary(t *testing.T) {
	store := &fakeStore{rows: [][]any{
		row("2025-03-01", "Salary", "Salary", "1000", "Income", "1000"),
		row("2025-03-02", "Groceries", "Food & Dining", "-300", "Expense", "700"),
		row("2025-03-03", "Bus", "Transportation", "-50", "Expense", "650"),
	}}
	_, ah, _ := newTestHandlers(store)

	w := httptest.NewRecorder()
	ah.Summary(w, httptest.NewRequest(http.MethodGet, "/api/analytics/summary", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		TotalTransactions int             `json:"total_transactions"`
		TotalExpenses     decimal.Decimal `json:"total_expenses"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.TotalTransactions != 3 {
		t.Errorf("TotalTransactions = %d, want 3", resp.TotalTransactions)
	}
	if !resp.TotalExpenses.Equal(decimal.RequireFromString("350")) {
		t.Errorf("TotalExpenses = %s, want 350", resp.TotalExpenses)
	}
}

func TestAnalyticsTrend(t *testing.T) {
	store := &fakeStore{rows: [][]any{
		row("2025-03-01", "Salary", "Salary", "100", "Income", "100"),
		row("2025-03-02", "Coffee", "Food & Dining", "-30", "Expense", "70"),
		row("2025-03-03", "Bus", "Transportation", "-10", "Expense", "60"),
	}}
	_, ah, _ := newTestHandlers(store)

	w := httptest.NewRecorder()
	ah.Trend(w, httptest.NewRequest(http.MethodGet, "/api/analytics/trend?entries=2", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Trend []struct {
			Date string `json:"date"`
		} `json:"trend"`
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Count != 2 {
		t.Fatalf("count = %d, want trend capped at 2 entries", resp.Count)
	}
	if resp.Trend[0].Date != "2025-03-02" {
		t.Errorf("trend starts at %s, want 2025-03-02", resp.Trend[0].Date)
	}
}

func TestAnalyticsInsightsFallback(t *testing.T) {
	store := &fakeStore{rows: [][]any{
		row("2025-03-01", "Salary", "Salary", "1000", "Income", "1000"),
		row("2025-03-02", "Groceries", "Food & Dining", "-300", "Expense", "700"),
	}}
	_, ah, _ := newTestHandlers(store)

	w := httptest.NewRecorder()
	ah.Insights(w, postJSON(`{}`))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Insights     ai.Insights `json:"insights"`
		Transactions int         `json:"transactions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Transactions != 2 {
		t.Errorf("transactions = %d, want 2", resp.Transactions)
	}
	// Without a model the computed fallback still carries the numbers.
	if resp.Insights.SpendingPatterns == "" {
		t.Error("insights missing spending patterns")
	}
}

func TestReportsFlow(t *testing.T) {
	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(4, jobStore)
	defer queue.Close()
	rh := NewReportsHandler(queue, jobStore, zerolog.Nop())

	w := httptest.NewRecorder()
	rh.Create(w, postJSON(`{"period":"this month","kind":"report"}`))

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
	}
	var created struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if created.JobID == "" {
		t.Fatal("no job_id returned")
	}
	if created.Status != "pending" {
		t.Errorf("status = %q, want pending", created.Status)
	}

	w = httptest.NewRecorder()
	rh.Get(w, httptest.NewRequest(http.MethodGet, "/api/reports/"+created.JobID, nil), created.JobID)
	if w.Code != http.StatusOK {
		t.Fatalf("poll status = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	rh.List(w, httptest.NewRequest(http.MethodGet, "/api/reports?kind=generate_report", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", w.Code)
	}
	var listed struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if listed.Count != 1 {
		t.Errorf("count = %d, want 1", listed.Count)
	}
}

func TestReportsCreateBadKind(t *testing.T) {
	rh := NewReportsHandler(inmemory.NewQueue(1, nil), inmemory.NewStore(), zerolog.Nop())

	w := httptest.NewRecorder()
	rh.Create(w, postJSON(`{"period":"today","kind":"haiku"}`))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestReportsGetMissing(t *testing.T) {
	rh := NewReportsHandler(inmemory.NewQueue(1, nil), inmemory.NewStore(), zerolog.Nop())

	w := httptest.NewRecorder()
	rh.Get(w, httptest.NewRequest(http.MethodGet, "/api/reports/nope", nil), "nope")

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestAdminRepair(t *testing.T) {
	store := &fakeStore{rows: [][]any{
		row("2025-01-05", "Salary", "Salary", "2500", "Income", "2500"),
		row("2025-01-07", "Groceries", "Food & Dining", "-120.50", "Expense", "0"),
		row("2025-01-09", "Bus", "Transportation", "-45", "Expense", "9999"),
	}}
	_, _, adm := newTestHandlers(store)

	w := httptest.NewRecorder()
	adm.Repair(w, httptest.NewRequest(http.MethodPost, "/api/admin/repair", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Repaired int             `json:"repaired"`
		Balance  decimal.Decimal `json:"balance"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Repaired != 3 {
		t.Errorf("repaired = %d, want 3", resp.Repaired)
	}
	if !resp.Balance.Equal(decimal.RequireFromString("2334.50")) {
		t.Errorf("balance = %s, want 2334.50", resp.Balance)
	}
	if store.rewritten[1][5] != "2379.50" {
		t.Errorf("rewritten balance = %v, want 2379.50", store.rewritten[1][5])
	}
}

// fakeSurface implements chartspec.Surface for the refresh endpoint.
type fakeSurface struct {
	batches int
	updates int
}

func (f *fakeSurface) SheetID(context.Context, string) (int64, error) { return 7, nil }
func (f *fakeSurface) ChartIDs(context.Context, int64) ([]int64, error) {
	return nil, nil
}
func (f *fakeSurface) ClearSheet(context.Context, string) error { return nil }
func (f *fakeSurface) UpdateCells(context.Context, string, [][]any) error {
	f.updates++
	return nil
}
func (f *fakeSurface) BatchUpdate(_ context.Context, reqs []*sheetsapi.Request) error {
	f.batches += len(reqs)
	return nil
}

func TestAdminRefreshCharts(t *testing.T) {
	store := &fakeStore{rows: [][]any{
		row("2025-01-05", "Salary", "Salary", "2500", "Income", "2500"),
		row("2025-01-07", "Groceries", "Food & Dining", "-120.50", "Expense", "2379.50"),
		row("2025-02-01", "Rent", "Rent", "-800", "Expense", "1579.50"),
	}}
	l := ledger.New(store, readcache.New(0))
	surface := &fakeSurface{}
	adm := NewAdminHandler(l, surface, nil, zerolog.Nop())

	w := httptest.NewRecorder()
	adm.RefreshCharts(w, httptest.NewRequest(http.MethodPost, "/api/admin/charts/refresh", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Charts int `json:"charts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Charts != 3 {
		t.Errorf("charts = %d, want 3", resp.Charts)
	}
	if surface.updates != 6 {
		t.Errorf("cell updates = %d, want 6 (title and table per chart)", surface.updates)
	}
}

func TestAdminRefreshChartsNoBackend(t *testing.T) {
	_, _, adm := newTestHandlers(&fakeStore{})

	w := httptest.NewRecorder()
	adm.RefreshCharts(w, httptest.NewRequest(http.MethodPost, "/api/admin/charts/refresh", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestAdminRefreshChartsEmptyLedger(t *testing.T) {
	l := ledger.New(&fakeStore{}, readcache.New(0))
	adm := NewAdminHandler(l, &fakeSurface{}, nil, zerolog.Nop())

	w := httptest.NewRecorder()
	adm.RefreshCharts(w, httptest.NewRequest(http.MethodPost, "/api/admin/charts/refresh", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

// fakeModels implements ModelLister.
type fakeModels struct {
	models []string
	err    error
}

func (f *fakeModels) ListModels(context.Context) ([]string, error) {
	return f.models, f.err
}
func (f *fakeModels) ModelName() string { return "gemini-2.0-flash" }

func TestAdminModels(t *testing.T) {
	adm := NewAdminHandler(nil, nil, &fakeModels{models: []string{"gemini-2.0-flash", "gemini-1.5-pro"}}, zerolog.Nop())

	w := httptest.NewRecorder()
	adm.Models(w, httptest.NewRequest(http.MethodGet, "/api/admin/models", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Models []string `json:"models"`
		Count  int      `json:"count"`
		Active string   `json:"active"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Count != 2 || resp.Active != "gemini-2.0-flash" {
		t.Errorf("count = %d, active = %q", resp.Count, resp.Active)
	}
}

func TestAdminModelsUnconfigured(t *testing.T) {
	_, _, adm := newTestHandlers(&fakeStore{})

	w := httptest.NewRecorder()
	adm.Models(w, httptest.NewRequest(http.MethodGet, "/api/admin/models", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestAdminModelsBackendFailure(t *testing.T) {
	adm := NewAdminHandler(nil, nil, &fakeModels{err: errors.New("api down")}, zerolog.Nop())

	w := httptest.NewRecorder()
	adm.Models(w, httptest.NewRequest(http.MethodGet, "/api/admin/models", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Models []string `json:"models"`
		Count  int      `json:"count"`
		Active string   `json:"active"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Models) != 0 || resp.Count != 0 {
		t.Errorf("models = %v, count = %d, want empty", resp.Models, resp.Count)
	}
	if resp.Active != "gemini-2.0-flash" {
		t.Errorf("active = %q", resp.Active)
	}
}
