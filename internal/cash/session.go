package cash

import (
	"context"
	"errors"
	"sync"
)

// ErrStale is returned for a calculation that finished after a newer one
// was started on the same Session.
var ErrStale = errors.New("calculation superseded by a newer request")

// Session serializes what a single user sees: only the most recently
// started calculation may publish its result.
type Session struct {
	calc *Calculator

	mu        sync.Mutex
	seq       uint64
	latest    *Result
	latestSeq uint64
}

// NewSession creates a Session over a Calculator.
func NewSession(calc *Calculator) *Session {
	return &Session{calc: calc}
}

// Calculate starts a calculation and returns its result with its sequence
// number. If another calculation starts before this one finishes, this one
// returns ErrStale and its result is discarded.
func (s *Session) Calculate(ctx context.Context, req Request) (*Result, uint64, error) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	res, err := s.calc.Calculate(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		return nil, seq, ErrStale
	}
	if err != nil {
		return nil, seq, err
	}
	s.latest = res
	s.latestSeq = seq
	return res, seq, nil
}

// Latest returns the last published result and its sequence number, or
// nil when nothing was published yet.
func (s *Session) Latest() (*Result, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.latestSeq
}

// Sessions hands out one Session per key, typically a user ID.
type Sessions struct {
	calc *Calculator

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessions creates an empty Sessions registry.
func NewSessions(calc *Calculator) *Sessions {
	return &Sessions{calc: calc, sessions: make(map[string]*Session)}
}

// For returns the Session for key, creating it on first use.
func (s *Sessions) For(key string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[key]
	if !ok {
		sess = NewSession(s.calc)
		s.sessions[key] = sess
	}
	return sess
}
