package cash

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rojas-cambio/cambio/internal/ledger"
	"github.com/rojas-cambio/cambio/internal/model"
)

// gatedSource blocks each List call until released.
type gatedSource struct {
	inner   Source
	started chan string
	release map[string]chan struct{}
}

func (g *gatedSource) List(ctx context.Context, q ledger.Query) ([]model.Transaction, error) {
	key := q.Range.Start
	g.started <- key
	<-g.release[key]
	return g.inner.List(ctx, q)
}

func TestSession_StaleResponseIsRejected(t *testing.T) {
	src := &gatedSource{
		inner:   seed(),
		started: make(chan string, 2),
		release: map[string]chan struct{}{
			"2025-01-01": make(chan struct{}),
			"2025-02-01": make(chan struct{}),
		},
	}
	sess := NewSession(newCalc(src))
	ctx := context.Background()

	type outcome struct {
		res *Result
		err error
	}
	older := make(chan outcome, 1)
	go func() {
		res, _, err := sess.Calculate(ctx, Request{Range: model.DateRange{Start: "2025-01-01", End: "2025-01-31"}})
		older <- outcome{res, err}
	}()
	require.Equal(t, "2025-01-01", <-src.started)

	newer := make(chan outcome, 1)
	go func() {
		res, _, err := sess.Calculate(ctx, Request{Range: model.DateRange{Start: "2025-02-01", End: "2025-02-28"}})
		newer <- outcome{res, err}
	}()
	require.Equal(t, "2025-02-01", <-src.started)

	// The newer request completes first, then the older one arrives late.
	close(src.release["2025-02-01"])
	n := <-newer
	require.NoError(t, n.err)

	close(src.release["2025-01-01"])
	o := <-older
	assert.ErrorIs(t, o.err, ErrStale)
	assert.Nil(t, o.res)

	latest, seq := sess.Latest()
	require.NotNil(t, latest)
	assert.Equal(t, "2025-02-01", latest.Request.Range.Start)
	assert.Equal(t, uint64(2), seq)
}

func TestSession_SequentialCalls(t *testing.T) {
	sess := NewSession(newCalc(seed()))
	ctx := context.Background()

	_, seq1, err := sess.Calculate(ctx, Request{})
	require.NoError(t, err)
	_, seq2, err := sess.Calculate(ctx, Request{})
	require.NoError(t, err)
	assert.Greater(t, seq2, seq1)
}

func TestSessions_PerKey(t *testing.T) {
	reg := NewSessions(newCalc(seed()))
	assert.Same(t, reg.For("op1"), reg.For("op1"))
	assert.NotSame(t, reg.For("op1"), reg.For("op2"))
}
