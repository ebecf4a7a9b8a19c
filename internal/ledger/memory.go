package ledger

import (
	"context"
	"sync"

	"github.com/rojas-cambio/cambio/internal/model"
)

// MemoryStore keeps transactions in memory. Used in tests and for dry runs.
type MemoryStore struct {
	mu    sync.RWMutex
	txns  map[string]model.Transaction
	order []string
	seqs  map[string]int
}

// NewMemoryStore creates an empty MemoryStore, optionally seeded.
func NewMemoryStore(seed ...model.Transaction) *MemoryStore {
	s := &MemoryStore{txns: make(map[string]model.Transaction), seqs: make(map[string]int)}
	for _, t := range seed {
		s.txns[t.ID] = t
		s.order = append(s.order, t.ID)
	}
	return s
}

func (s *MemoryStore) Add(ctx context.Context, t model.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txns[t.ID]; !ok {
		s.order = append(s.order, t.ID)
	}
	s.txns[t.ID] = t
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (model.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return model.Transaction{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.txns[id]
	if !ok {
		return model.Transaction{}, ErrNotFound
	}
	return t, nil
}

func (s *MemoryStore) Update(ctx context.Context, t model.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txns[t.ID]; !ok {
		return ErrNotFound
	}
	s.txns[t.ID] = t
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txns[id]; !ok {
		return ErrNotFound
	}
	delete(s.txns, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) List(ctx context.Context, q Query) ([]model.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Transaction
	for _, id := range s.order {
		if t := s.txns[id]; q.Match(t) {
			out = append(out, t)
		}
	}
	return sortNewestFirst(out, q.Limit), nil
}

func (s *MemoryStore) LastSeq(ctx context.Context, key string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seqs[key], nil
}

func (s *MemoryStore) SetSeq(ctx context.Context, key string, seq int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq > s.seqs[key] {
		s.seqs[key] = seq
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }
