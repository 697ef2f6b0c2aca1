package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledgerbook/internal/analytics"
	"github.com/dvloznov/ledgerbook/internal/domain"
	"github.com/dvloznov/ledgerbook/internal/logger"
)

// Orchestrator wraps a text model with deterministic fallbacks so that
// categorization, parsing, insights and reports always produce a usable
// result. A nil generator disables the model entirely and every call
// answers from the fallback path.
type Orchestrator struct {
	gen    TextGenerator
	policy Policy
	now    func() time.Time
}

// NewOrchestrator wires a generator and retry policy together. A policy
// with no attempt budget falls back to DefaultPolicy.
func NewOrchestrator(gen TextGenerator, policy Policy) *Orchestrator {
	if policy.Attempts < 1 {
		policy = DefaultPolicy()
	}
	return &Orchestrator{
		gen:    gen,
		policy: policy,
		now:    time.Now,
	}
}

// Available reports whether a model client is wired in.
func (o *Orchestrator) Available() bool { return o.gen != nil }

// Categorize suggests a category for a transaction. The model gets one
// attempt; a call failure or an answer outside the taxonomy falls back to
// the keyword rules.
func (o *Orchestrator) Categorize(ctx context.Context, description string, amount decimal.Decimal, history []domain.Transaction) string {
	if o.gen == nil {
		return fallbackCategory(description, amount)
	}
	answer, err := o.gen.Generate(ctx, categorizePrompt(description, amount, history))
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("categorization model call failed")
		return fallbackCategory(description, amount)
	}
	if label, ok := matchCategory(answer); ok {
		return label
	}
	return fallbackCategory(description, amount)
}

// ParseNaturalLanguage turns free text into a transaction draft. One model
// attempt; a call or decode failure switches to the regex extractor. The
// returned draft always carries a signed amount matching its type.
func (o *Orchestrator) ParseNaturalLanguage(ctx context.Context, text string) Draft {
	today := o.now().Format(domain.DateLayout)
	if o.gen == nil {
		return fallbackDraft(text, today)
	}
	raw, err := o.gen.Generate(ctx, parsePrompt(text, today))
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("parsing model call failed")
		return fallbackDraft(text, today)
	}
	var draft Draft
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &draft); err != nil {
		serr := &domain.StructuralResponseError{Op: "parse", Err: err}
		log := logger.FromContext(ctx)
		log.Warn().Err(serr).Msg("model returned malformed draft")
		return fallbackDraft(text, today)
	}
	return normalizeDraft(draft, today)
}

// normalizeDraft repairs whatever the model got wrong: a missing type is
// derived from the amount sign, the amount is re-signed to match the type,
// the category is folded into the taxonomy and an unparseable date becomes
// today.
func normalizeDraft(draft Draft, today string) Draft {
	if draft.Type != domain.Income && draft.Type != domain.Expense {
		draft.Type = domain.TypeForAmount(draft.Amount)
	}
	draft.Amount = domain.SignedAmount(draft.Amount, draft.Type)
	if label, ok := matchCategory(draft.Category); ok {
		draft.Category = label
	} else {
		draft.Category = fallbackCategory(draft.Description, draft.Amount)
	}
	if len(draft.Date) > len(domain.DateLayout) {
		draft.Date = draft.Date[:len(domain.DateLayout)]
	}
	if _, err := time.Parse(domain.DateLayout, draft.Date); err != nil {
		draft.Date = today
	}
	return draft
}

// GenerateInsights produces the six-part analysis bundle for the given
// records. Attempts returning malformed JSON are retried per the policy;
// exhaustion yields a bundle computed from the records themselves.
func (o *Orchestrator) GenerateInsights(ctx context.Context, txs []domain.Transaction, currentBalance decimal.Decimal) Insights {
	summary := analytics.Summarize(txs)
	if o.gen == nil || len(txs) == 0 {
		return fallbackInsights(summary)
	}
	prompt, err := insightsPrompt(summary, currentBalance)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("building insights prompt failed")
		return fallbackInsights(summary)
	}

	var out Insights
	err = o.policy.Do(ctx, "insights", func(ctx context.Context) error {
		raw, err := o.gen.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		decoded, err := decodeInsights(raw)
		if err != nil {
			return err
		}
		out = decoded
		return nil
	})
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("insight generation exhausted, using computed fallback")
		return fallbackInsights(summary)
	}
	return out
}

// decodeInsights parses the model's JSON reply. A fenced reply has the
// outer block stripped down to the first '{' .. last '}' span first.
func decodeInsights(raw string) (Insights, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = extractJSONObject(text)
	}
	var ins Insights
	if err := json.Unmarshal([]byte(text), &ins); err != nil {
		return Insights{}, &domain.StructuralResponseError{Op: "insights", Err: err}
	}
	ins.fillDefaults()
	return ins, nil
}

// extractJSONObject slices raw down to its outermost object literal.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return raw
	}
	return raw[start : end+1]
}

// GenerateReport writes a period expense report. The record set is first
// narrowed by FilterByPeriod; replies at or under minReportLength count as
// failed attempts. Exhaustion falls back to the totals-only template.
func (o *Orchestrator) GenerateReport(ctx context.Context, txs []domain.Transaction, period string) string {
	now := o.now()
	if o.gen == nil || len(txs) == 0 {
		return fallbackReport(txs, period, now)
	}
	filtered := FilterByPeriod(txs, period, now)
	if len(filtered) == 0 {
		return fallbackReport(txs, period, now)
	}
	prompt, err := reportPrompt(analytics.Summarize(filtered), period)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("building report prompt failed")
		return fallbackReport(filtered, period, now)
	}

	var report string
	err = o.policy.Do(ctx, "report", func(ctx context.Context) error {
		raw, err := o.gen.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		text := strings.TrimSpace(raw)
		if len(text) <= minReportLength {
			return &domain.StructuralResponseError{
				Op:  "report",
				Err: fmt.Errorf("reply of %d chars is too short", len(text)),
			}
		}
		report = text
		return nil
	})
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("report generation exhausted, using computed fallback")
		return fallbackReport(filtered, period, now)
	}
	return formatReport(report, period, now)
}

// formatReport frames the model's text under a centered banner.
func formatReport(report, period string, now time.Time) string {
	rule := strings.Repeat("=", reportRuleWidth)
	title := centerLine(strings.ToUpper(period)+" FINANCIAL REPORT", reportRuleWidth)
	stamp := centerLine("Generated on "+now.Format("2006-01-02 15:04"), reportRuleWidth)
	return "\n" + rule + "\n" + title + "\n" + stamp + "\n" + rule + "\n\n" + report
}

func centerLine(s string, width int) string {
	pad := width - len(s)
	if pad <= 0 {
		return s
	}
	left := pad / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}
