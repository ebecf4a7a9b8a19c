package ledger

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/rojas-cambio/cambio/internal/model"
)

const sequencesFile = "sequences.yaml"

// CSVStore keeps one transactions.csv per month under
// <root>/transactions/YYYY/MM/ and the issued receipt sequences in
// <root>/transactions/sequences.yaml.
type CSVStore struct {
	root string
	mu   sync.RWMutex
}

// NewCSVStore creates a CSVStore over a data directory.
func NewCSVStore(root string) *CSVStore {
	return &CSVStore{root: root}
}

// Add appends t to its month file, creating the file and header if new.
func (s *CSVStore) Add(ctx context.Context, t model.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(t)
}

func (s *CSVStore) appendLocked(t model.Transaction) error {
	path := s.monthPath(t.Date.Year(), int(t.Date.Month()))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating transactions dir: %w", err)
	}

	isNew := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		isNew = true
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening transactions: %w", err)
	}
	defer f.Close()

	if isNew {
		if _, err := fmt.Fprintln(f, Header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	if err := AppendTransactions(f, []model.Transaction{t}); err != nil {
		return fmt.Errorf("appending transaction: %w", err)
	}
	return nil
}

func (s *CSVStore) Get(ctx context.Context, id string) (model.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return model.Transaction{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, _, err := s.findLocked(id)
	return t, err
}

// Update replaces the row with t's ID, moving it when its month changed.
func (s *CSVStore) Update(ctx context.Context, t model.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	old, path, err := s.findLocked(t.ID)
	if err != nil {
		return err
	}
	if old.Date.Year() == t.Date.Year() && old.Date.Month() == t.Date.Month() {
		return s.rewriteLocked(path, func(txns []model.Transaction) []model.Transaction {
			for i := range txns {
				if txns[i].ID == t.ID {
					txns[i] = t
				}
			}
			return txns
		})
	}
	if err := s.appendLocked(t); err != nil {
		return err
	}
	return s.rewriteLocked(path, without(t.ID))
}

func (s *CSVStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, path, err := s.findLocked(id)
	if err != nil {
		return err
	}
	return s.rewriteLocked(path, without(id))
}

// List reads only the month files the query range touches when both bounds
// are set, otherwise every month file.
func (s *CSVStore) List(ctx context.Context, q Query) ([]model.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths, err := s.pathsFor(q.Range)
	if err != nil {
		return nil, err
	}

	var out []model.Transaction
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		txns, err := readFile(p)
		if err != nil {
			return nil, err
		}
		for _, t := range txns {
			if q.Match(t) {
				out = append(out, t)
			}
		}
	}
	return sortNewestFirst(out, q.Limit), nil
}

func (s *CSVStore) Close() error { return nil }

func (s *CSVStore) LastSeq(ctx context.Context, key string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	seqs, err := s.readSequencesLocked()
	if err != nil {
		return 0, err
	}
	return seqs[key], nil
}

func (s *CSVStore) SetSeq(ctx context.Context, key string, seq int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	seqs, err := s.readSequencesLocked()
	if err != nil {
		return err
	}
	if seq <= seqs[key] {
		return nil
	}
	seqs[key] = seq

	data, err := yaml.Marshal(seqs)
	if err != nil {
		return fmt.Errorf("marshaling sequences: %w", err)
	}
	path := s.sequencesPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating transactions dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing sequences: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing sequences: %w", err)
	}
	return nil
}

func (s *CSVStore) readSequencesLocked() (map[string]int, error) {
	seqs := make(map[string]int)
	data, err := os.ReadFile(s.sequencesPath())
	if errors.Is(err, fs.ErrNotExist) {
		return seqs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading sequences: %w", err)
	}
	if err := yaml.Unmarshal(data, &seqs); err != nil {
		return nil, fmt.Errorf("parsing sequences: %w", err)
	}
	if seqs == nil {
		seqs = make(map[string]int)
	}
	return seqs, nil
}

func (s *CSVStore) sequencesPath() string {
	return filepath.Join(s.root, "transactions", sequencesFile)
}

func (s *CSVStore) pathsFor(r model.DateRange) ([]string, error) {
	if months, ok := r.Months(); ok {
		paths := make([]string, len(months))
		for i, ym := range months {
			paths[i] = s.monthPath(ym[0], ym[1])
		}
		return paths, nil
	}
	return s.allPaths()
}

func (s *CSVStore) allPaths() ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(s.root, "transactions", "[0-9][0-9][0-9][0-9]", "[0-9][0-9]", "transactions.csv"))
	if err != nil {
		return nil, fmt.Errorf("listing transaction files: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *CSVStore) findLocked(id string) (model.Transaction, string, error) {
	paths, err := s.allPaths()
	if err != nil {
		return model.Transaction{}, "", err
	}
	for _, p := range paths {
		txns, err := readFile(p)
		if err != nil {
			return model.Transaction{}, "", err
		}
		for _, t := range txns {
			if t.ID == id {
				return t, p, nil
			}
		}
	}
	return model.Transaction{}, "", ErrNotFound
}

// rewriteLocked replaces a month file through a temp file and rename.
func (s *CSVStore) rewriteLocked(path string, edit func([]model.Transaction) []model.Transaction) error {
	txns, err := readFile(path)
	if err != nil {
		return err
	}
	txns = edit(txns)

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}
	if err := WriteTransactions(f, txns); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

func (s *CSVStore) monthPath(year, month int) string {
	return filepath.Join(s.root, "transactions", fmt.Sprintf("%04d", year), fmt.Sprintf("%02d", month), "transactions.csv")
}

func readFile(path string) ([]model.Transaction, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening transactions %s: %w", path, err)
	}
	defer f.Close()

	txns, err := ReadTransactions(f)
	if err != nil {
		return nil, fmt.Errorf("reading transactions %s: %w", path, err)
	}
	return txns, nil
}

func without(id string) func([]model.Transaction) []model.Transaction {
	return func(txns []model.Transaction) []model.Transaction {
		out := txns[:0]
		for _, t := range txns {
			if t.ID != id {
				out = append(out, t)
			}
		}
		return out
	}
}
