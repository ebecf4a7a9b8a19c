package id

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/rojas-cambio/cambio/internal/model"
)

// Receipt prefixes per operation type.
const (
	PrefixBuy  = "CMP"
	PrefixSell = "VTA"
)

// New returns a random unique identifier.
func New() string {
	return uuid.NewString()
}

// Prefix returns the receipt prefix for a transaction type.
func Prefix(t model.TransactionType) string {
	if t == model.Sell {
		return PrefixSell
	}
	return PrefixBuy
}

// FormatReceipt returns a receipt number like "CMP-2025-01-001".
func FormatReceipt(prefix string, year, month, seq int) string {
	return fmt.Sprintf("%s-%04d-%02d-%03d", prefix, year, month, seq)
}

// SeqKey names the sequence a receipt belongs to, e.g. "CMP-2025-01".
func SeqKey(prefix string, year, month int) string {
	return fmt.Sprintf("%s-%04d-%02d", prefix, year, month)
}

// ParseReceipt parses "VTA-2025-01-001" into prefix, year, month, seq.
func ParseReceipt(receipt string) (prefix string, year, month, seq int, err error) {
	parts := strings.SplitN(receipt, "-", 4)
	if len(parts) != 4 {
		return "", 0, 0, 0, fmt.Errorf("invalid receipt format: %q", receipt)
	}

	prefix = parts[0]
	if prefix != PrefixBuy && prefix != PrefixSell {
		return "", 0, 0, 0, fmt.Errorf("invalid prefix in receipt %q", receipt)
	}

	year, err = strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, 0, 0, fmt.Errorf("invalid year in receipt %q: %w", receipt, err)
	}

	month, err = strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, 0, 0, fmt.Errorf("invalid month in receipt %q: %w", receipt, err)
	}

	seq, err = strconv.Atoi(parts[3])
	if err != nil {
		return "", 0, 0, 0, fmt.Errorf("invalid sequence in receipt %q: %w", receipt, err)
	}

	return prefix, year, month, seq, nil
}

// NextSeq returns one past the highest sequence among receipts with the
// given prefix, year and month.
func NextSeq(receipts []string, prefix string, year, month int) int {
	maxSeq := 0
	for _, r := range receipts {
		p, y, m, seq, err := ParseReceipt(r)
		if err != nil || p != prefix || y != year || m != month {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq + 1
}
