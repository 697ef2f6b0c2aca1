package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledgerbook/internal/domain"
	"github.com/dvloznov/ledgerbook/internal/logger"
	"github.com/dvloznov/ledgerbook/internal/readcache"
	"github.com/dvloznov/ledgerbook/internal/records"
)

// Store is the persistence surface the ledger requires. The sheets client
// satisfies it; tests use in-memory fakes.
type Store interface {
	// AppendRow adds one row after the last non-empty row.
	AppendRow(ctx context.Context, row []any) error
	// AllRecords returns every data row keyed by header name.
	AllRecords(ctx context.Context) ([]map[string]any, error)
	// ColumnValues returns the non-empty cells of a 1-based column,
	// header included.
	ColumnValues(ctx context.Context, column int) ([]string, error)
	// RewriteRows replaces all data rows, keeping the header.
	RewriteRows(ctx context.Context, rows [][]any) error
}

// Ledger owns the append path and the running-balance invariant:
// balance[i] = balance[i-1] + amount[i], starting from zero. Reads go
// through a TTL cache; every successful write invalidates it.
type Ledger struct {
	store     Store
	cache     *readcache.Cache
	validator *records.Validator
	now       func() time.Time
}

// New builds a ledger over a store. A nil cache gets the default TTL.
func New(store Store, cache *readcache.Cache) *Ledger {
	if cache == nil {
		cache = readcache.New(0)
	}
	return &Ledger{
		store:     store,
		cache:     cache,
		validator: records.NewValidator(),
		now:       time.Now,
	}
}

// Records returns the validated transactions, served from cache inside the
// TTL window.
func (l *Ledger) Records(ctx context.Context) ([]domain.Transaction, error) {
	return l.cache.Get(ctx, func(ctx context.Context) ([]domain.Transaction, error) {
		return l.fetch(ctx)
	})
}

func (l *Ledger) fetch(ctx context.Context) ([]domain.Transaction, error) {
	raw, err := l.store.AllRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}
	validated, skipped := l.validator.Validate(raw)
	if skipped > 0 {
		log := logger.FromContext(ctx)
		log.Warn().Int("skipped", skipped).Msg("dropped malformed ledger rows")
	}
	return validated, nil
}

// Record signs the amount for its type, stamps the current time, computes
// the next running balance and appends the row. The returned transaction is
// exactly what was persisted. A failed append leaves no trace: the cache
// keeps serving the pre-append state and no balance advances.
func (l *Ledger) Record(ctx context.Context, description, category string, amount decimal.Decimal, txType domain.TransactionType) (domain.Transaction, error) {
	signed := domain.SignedAmount(amount, txType)
	balance, err := l.CurrentBalance(ctx)
	if err != nil {
		return domain.Transaction{}, err
	}

	tx := domain.Transaction{
		Date:        l.now().Format(domain.TimestampLayout),
		Description: description,
		Category:    category,
		Amount:      signed,
		Type:        txType,
		Balance:     balance.Add(signed),
	}
	if err := l.store.AppendRow(ctx, tx.Row()); err != nil {
		return domain.Transaction{}, &domain.PersistenceError{Op: "append transaction", Err: err}
	}
	l.cache.Invalidate()
	return tx, nil
}

// CurrentBalance reads the last persisted running balance straight from the
// balance column. An unreadable column or an unparseable last cell falls
// back to reconciling the validated amounts; an empty ledger is zero.
func (l *Ledger) CurrentBalance(ctx context.Context) (decimal.Decimal, error) {
	values, err := l.store.ColumnValues(ctx, domain.BalanceColumn)
	if err == nil {
		if len(values) <= 1 {
			return decimal.Zero, nil
		}
		if v, perr := records.Decimal(values[len(values)-1]); perr == nil {
			return v, nil
		}
	}
	log := logger.FromContext(ctx)
	log.Warn().Err(err).Msg("balance column unreadable, reconciling from amounts")
	return l.ReconcileBalance(ctx)
}

// ReconcileBalance recomputes the balance from the validated amounts alone,
// ignoring the stored balance column entirely.
func (l *Ledger) ReconcileBalance(ctx context.Context) (decimal.Decimal, error) {
	txs, err := l.Records(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return Reconcile(txs), nil
}

// Reconcile sums amounts in insertion order. Running it twice over the same
// records yields the same result.
func Reconcile(txs []domain.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Amount)
	}
	return total
}

// RepairPlan recomputes every running balance from zero, leaving dates,
// descriptions, categories and amounts untouched. It is pure; RepairAll
// persists its output.
func RepairPlan(txs []domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, len(txs))
	running := decimal.Zero
	for i, tx := range txs {
		running = running.Add(tx.Amount)
		tx.Balance = running
		out[i] = tx
	}
	return out
}

// RepairAll rewrites the store with recomputed balances and returns the
// repaired records. It reads the store directly rather than through the
// cache so a rewrite can never be based on a stale snapshot. Running it
// twice in a row produces identical rows.
func (l *Ledger) RepairAll(ctx context.Context) ([]domain.Transaction, error) {
	txs, err := l.fetch(ctx)
	if err != nil {
		return nil, err
	}
	repaired := RepairPlan(txs)

	rows := make([][]any, len(repaired))
	for i, tx := range repaired {
		rows[i] = tx.Row()
	}
	if err := l.store.RewriteRows(ctx, rows); err != nil {
		return nil, &domain.PersistenceError{Op: "rewrite repaired rows", Err: err}
	}
	l.cache.Invalidate()

	log := logger.FromContext(ctx)
	log.Info().Int("rows", len(repaired)).Msg("ledger balances repaired")
	return repaired, nil
}

// Replace rewrites the store with the given transactions, recomputing every
// running balance from zero. Backup restore lands here so a snapshot taken
// before a repair still restores to consistent balances.
func (l *Ledger) Replace(ctx context.Context, txs []domain.Transaction) ([]domain.Transaction, error) {
	repaired := RepairPlan(txs)

	rows := make([][]any, len(repaired))
	for i, tx := range repaired {
		rows[i] = tx.Row()
	}
	if err := l.store.RewriteRows(ctx, rows); err != nil {
		return nil, &domain.PersistenceError{Op: "rewrite restored rows", Err: err}
	}
	l.cache.Invalidate()

	log := logger.FromContext(ctx)
	log.Info().Int("rows", len(repaired)).Msg("ledger rows replaced")
	return repaired, nil
}

// Invalidate forces the next read to bypass the cache window.
func (l *Ledger) Invalidate() {
	l.cache.Invalidate()
}
