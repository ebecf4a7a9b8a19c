package importer

import (
	"fmt"
	"io"
	"strings"

	"github.com/rojas-cambio/cambio/internal/ledger"
)

// ExportParser reads a transactions file written by this tool, such as a
// month file copied from another office. IDs, receipts and owners are
// reassigned on import.
type ExportParser struct{}

// Format returns the parser name.
func (p *ExportParser) Format() string { return "cambio" }

// Matches reports whether header is the ledger header.
func (p *ExportParser) Matches(header []string) bool {
	return headerIs(header, strings.Split(ledger.Header, ",")...)
}

// Parse reads a ledger CSV and returns drafts.
func (p *ExportParser) Parse(r io.Reader) ([]ledger.Draft, error) {
	txns, err := ledger.ReadTransactions(r)
	if err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}
	drafts := make([]ledger.Draft, len(txns))
	for i, t := range txns {
		drafts[i] = ledger.Draft{
			Type:         string(t.Type),
			Currency:     string(t.Currency),
			Amount:       t.Amount.String(),
			Rate:         t.Rate.String(),
			Date:         t.Day(),
			CustomerDNI:  t.CustomerDNI,
			CustomerName: t.CustomerName,
		}
	}
	return drafts, nil
}
