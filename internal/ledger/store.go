package ledger

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/rojas-cambio/cambio/internal/model"
)

// ErrNotFound is returned when a transaction ID does not exist.
var ErrNotFound = errors.New("transaction not found")

// Query selects transactions. Zero fields match everything.
type Query struct {
	Range    model.DateRange
	Currency model.Currency
	Type     model.TransactionType
	UserID   string
	// Receipt matches receipt numbers starting with it, e.g. "CMP-2025-01-".
	Receipt string
	Limit   int
}

// Match reports whether t satisfies every set field of q (Limit aside).
func (q Query) Match(t model.Transaction) bool {
	if !q.Range.Contains(t.Day()) {
		return false
	}
	if q.Currency != "" && t.Currency != q.Currency {
		return false
	}
	if q.Type != "" && t.Type != q.Type {
		return false
	}
	if q.UserID != "" && t.UserID != q.UserID {
		return false
	}
	if q.Receipt != "" && !strings.HasPrefix(t.Receipt, q.Receipt) {
		return false
	}
	return true
}

// Store persists transactions.
type Store interface {
	Add(ctx context.Context, t model.Transaction) error
	Get(ctx context.Context, id string) (model.Transaction, error)
	Update(ctx context.Context, t model.Transaction) error
	Delete(ctx context.Context, id string) error
	// List returns matches newest first: by date, then creation time.
	List(ctx context.Context, q Query) ([]model.Transaction, error)
	// LastSeq returns the highest receipt sequence issued under key
	// ("CMP-2025-01"), zero when none was.
	LastSeq(ctx context.Context, key string) (int, error)
	// SetSeq raises the sequence stored under key to seq. Lower values are
	// ignored.
	SetSeq(ctx context.Context, key string, seq int) error
	Close() error
}

// sortNewestFirst orders by date then creation time, both descending, and
// applies the query limit.
func sortNewestFirst(txns []model.Transaction, limit int) []model.Transaction {
	sort.SliceStable(txns, func(i, j int) bool {
		a, b := txns[i], txns[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	if limit > 0 && len(txns) > limit {
		txns = txns[:limit]
	}
	return txns
}
