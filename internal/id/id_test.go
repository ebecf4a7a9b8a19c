package id

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rojas-cambio/cambio/internal/model"
)

func TestFormatReceipt(t *testing.T) {
	tests := []struct {
		prefix           string
		year, month, seq int
		want             string
	}{
		{PrefixBuy, 2025, 1, 1, "CMP-2025-01-001"},
		{PrefixSell, 2025, 12, 99, "VTA-2025-12-099"},
		{PrefixBuy, 2025, 1, 1234, "CMP-2025-01-1234"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatReceipt(tt.prefix, tt.year, tt.month, tt.seq))
	}
}

func TestParseReceipt(t *testing.T) {
	prefix, year, month, seq, err := ParseReceipt("VTA-2025-03-042")
	require.NoError(t, err)
	assert.Equal(t, PrefixSell, prefix)
	assert.Equal(t, 2025, year)
	assert.Equal(t, 3, month)
	assert.Equal(t, 42, seq)
}

func TestParseReceipt_Invalid(t *testing.T) {
	for _, bad := range []string{"", "CMP-2025-01", "XXX-2025-01-001", "CMP-abcd-01-001", "CMP-2025-xx-001", "CMP-2025-01-abc"} {
		_, _, _, _, err := ParseReceipt(bad)
		assert.Error(t, err, "ParseReceipt(%q)", bad)
	}
}

func TestNextSeq(t *testing.T) {
	receipts := []string{
		"CMP-2025-01-001",
		"CMP-2025-01-003",
		"VTA-2025-01-007",
		"CMP-2025-02-009",
		"garbage",
	}
	assert.Equal(t, 4, NextSeq(receipts, PrefixBuy, 2025, 1))
	assert.Equal(t, 8, NextSeq(receipts, PrefixSell, 2025, 1))
	assert.Equal(t, 1, NextSeq(receipts, PrefixSell, 2025, 2))
	assert.Equal(t, 1, NextSeq(nil, PrefixBuy, 2025, 1))
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, PrefixBuy, Prefix(model.Buy))
	assert.Equal(t, PrefixSell, Prefix(model.Sell))
}

func TestNew(t *testing.T) {
	a, b := New(), New()
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}
