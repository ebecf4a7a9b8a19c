package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rojas-cambio/cambio/internal/activity"
	"github.com/rojas-cambio/cambio/internal/id"
	"github.com/rojas-cambio/cambio/internal/model"
)

// Auditor records user actions.
type Auditor interface {
	Record(entries ...activity.Entry) error
}

// Service provides business logic for recording transactions.
type Service struct {
	store      Store
	currencies CurrencyChecker
	audit      Auditor
	logger     *slog.Logger
	now        func() time.Time

	// serializes receipt numbering
	mu sync.Mutex
}

// NewService creates a ledger Service. audit may be nil.
func NewService(store Store, currencies CurrencyChecker, audit Auditor, logger *slog.Logger) *Service {
	return &Service{store: store, currencies: currencies, audit: audit, logger: logger, now: time.Now}
}

// Record validates a draft and stores it as a new transaction owned by
// userID. A rejected draft returns ValidationErrors.
func (s *Service) Record(ctx context.Context, userID string, d Draft) (model.Transaction, error) {
	t, verrs := d.Parse(s.currencies, s.now())
	if len(verrs) > 0 {
		return model.Transaction{}, ValidationErrors(verrs)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.insertLocked(ctx, userID, &t); err != nil {
		return model.Transaction{}, err
	}
	s.record(activity.Entry{
		UserID:  userID,
		Action:  activity.ActionTxnCreate,
		Details: describe(t),
		Ref:     t.Receipt,
	})
	return t, nil
}

// RecordBatch validates every draft before storing any. Row numbers in the
// returned error are 1-based.
func (s *Service) RecordBatch(ctx context.Context, userID string, drafts []Draft) ([]model.Transaction, error) {
	parsed := make([]model.Transaction, len(drafts))
	var verrs ValidationErrors
	for i, d := range drafts {
		t, errs := d.Parse(s.currencies, s.now())
		for _, e := range errs {
			e.Field = fmt.Sprintf("row %d %s", i+1, e.Field)
			verrs = append(verrs, e)
		}
		parsed[i] = t
	}
	if len(verrs) > 0 {
		return nil, verrs
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range parsed {
		if err := s.insertLocked(ctx, userID, &parsed[i]); err != nil {
			return parsed[:i], fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	s.record(activity.Entry{
		UserID:  userID,
		Action:  activity.ActionTxnImport,
		Details: fmt.Sprintf("imported %d transactions", len(parsed)),
	})
	return parsed, nil
}

// Edit replaces the fields of an existing transaction. ID, receipt, owner
// and creation time are kept.
func (s *Service) Edit(ctx context.Context, userID, txID string, d Draft) (model.Transaction, error) {
	old, err := s.store.Get(ctx, txID)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("loading transaction %s: %w", txID, err)
	}

	t, verrs := d.Parse(s.currencies, s.now())
	if len(verrs) > 0 {
		return model.Transaction{}, ValidationErrors(verrs)
	}
	t.ID = old.ID
	t.Receipt = old.Receipt
	t.UserID = old.UserID
	t.CreatedAt = old.CreatedAt

	if err := s.store.Update(ctx, t); err != nil {
		return model.Transaction{}, fmt.Errorf("updating transaction %s: %w", txID, err)
	}
	s.record(activity.Entry{
		UserID:  userID,
		Action:  activity.ActionTxnUpdate,
		Details: describe(t),
		Ref:     t.Receipt,
	})
	return t, nil
}

// Remove deletes a transaction.
func (s *Service) Remove(ctx context.Context, userID, txID string) error {
	t, err := s.store.Get(ctx, txID)
	if err != nil {
		return fmt.Errorf("loading transaction %s: %w", txID, err)
	}
	if err := s.store.Delete(ctx, txID); err != nil {
		return fmt.Errorf("deleting transaction %s: %w", txID, err)
	}
	s.record(activity.Entry{
		UserID:  userID,
		Action:  activity.ActionTxnDelete,
		Details: describe(t),
		Ref:     t.Receipt,
	})
	return nil
}

// Get returns one transaction.
func (s *Service) Get(ctx context.Context, txID string) (model.Transaction, error) {
	return s.store.Get(ctx, txID)
}

// List returns transactions matching q, newest first.
func (s *Service) List(ctx context.Context, q Query) ([]model.Transaction, error) {
	txns, err := s.store.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	return txns, nil
}

// NextReceipt returns the receipt number the next transaction of type typ
// dated on day would get. Sequences count every receipt ever issued for
// that month, including ones since moved to another month or removed.
func (s *Service) NextReceipt(ctx context.Context, typ model.TransactionType, day time.Time) (string, error) {
	_, receipt, err := s.nextReceipt(ctx, typ, day)
	return receipt, err
}

func (s *Service) nextReceipt(ctx context.Context, typ model.TransactionType, day time.Time) (int, string, error) {
	prefix := id.Prefix(typ)
	year, month := day.Year(), int(day.Month())
	key := id.SeqKey(prefix, year, month)

	existing, err := s.store.List(ctx, Query{Receipt: key + "-"})
	if err != nil {
		return 0, "", fmt.Errorf("reading receipts %s: %w", key, err)
	}
	receipts := make([]string, len(existing))
	for i, t := range existing {
		receipts[i] = t.Receipt
	}
	seq := id.NextSeq(receipts, prefix, year, month)

	last, err := s.store.LastSeq(ctx, key)
	if err != nil {
		return 0, "", fmt.Errorf("reading sequence %s: %w", key, err)
	}
	if last >= seq {
		seq = last + 1
	}
	return seq, id.FormatReceipt(prefix, year, month, seq), nil
}

func (s *Service) insertLocked(ctx context.Context, userID string, t *model.Transaction) error {
	seq, receipt, err := s.nextReceipt(ctx, t.Type, t.Date)
	if err != nil {
		return err
	}
	t.ID = id.New()
	t.Receipt = receipt
	t.UserID = userID
	t.CreatedAt = s.now().UTC()

	if err := s.store.Add(ctx, *t); err != nil {
		return fmt.Errorf("storing transaction: %w", err)
	}
	key := id.SeqKey(id.Prefix(t.Type), t.Date.Year(), int(t.Date.Month()))
	if err := s.store.SetSeq(ctx, key, seq); err != nil {
		return fmt.Errorf("storing sequence %s: %w", key, err)
	}
	return nil
}

// record writes an audit entry. Audit failures never undo a stored change.
func (s *Service) record(e activity.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(e); err != nil {
		s.logger.Warn("activity log write failed", "action", e.Action, "ref", e.Ref, "error", err)
	}
}

func describe(t model.Transaction) string {
	return fmt.Sprintf("%s %s %s @ %s", t.Type, t.Amount.StringFixed(2), t.Currency, t.Rate.StringFixed(4))
}
