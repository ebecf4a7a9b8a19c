package rates

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rojas-cambio/cambio/internal/model"
)

// HistoryHeader is the CSV header for rates/history.csv.
const HistoryHeader = "timestamp,currency,buy,sell,market,source"

const (
	histFields   = 6
	colTimestamp = 0
	colCurrency  = 1
	colBuy       = 2
	colSell      = 3
	colMarket    = 4
	colSource    = 5
)

// MarshalRate converts a Rate to a history row.
func MarshalRate(r model.Rate) []string {
	row := make([]string, histFields)
	row[colTimestamp] = r.UpdatedAt.UTC().Format(time.RFC3339)
	row[colCurrency] = string(r.Currency)
	row[colBuy] = r.Buy.StringFixed(4)
	row[colSell] = r.Sell.StringFixed(4)
	if !r.Market.IsZero() {
		row[colMarket] = r.Market.StringFixed(4)
	}
	row[colSource] = r.Source
	return row
}

// UnmarshalRate converts a history row to a Rate.
func UnmarshalRate(record []string) (model.Rate, error) {
	if len(record) != histFields {
		return model.Rate{}, fmt.Errorf("expected %d fields, got %d", histFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return model.Rate{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	buy, err := decimal.NewFromString(record[colBuy])
	if err != nil {
		return model.Rate{}, fmt.Errorf("parsing buy %q: %w", record[colBuy], err)
	}
	sell, err := decimal.NewFromString(record[colSell])
	if err != nil {
		return model.Rate{}, fmt.Errorf("parsing sell %q: %w", record[colSell], err)
	}
	var market decimal.Decimal
	if record[colMarket] != "" {
		market, err = decimal.NewFromString(record[colMarket])
		if err != nil {
			return model.Rate{}, fmt.Errorf("parsing market %q: %w", record[colMarket], err)
		}
	}

	return model.Rate{
		Currency:  model.Currency(record[colCurrency]),
		Buy:       buy,
		Sell:      sell,
		Market:    market,
		UpdatedAt: ts,
		Source:    record[colSource],
	}, nil
}

// ReadHistory reads all rows from a history reader.
func ReadHistory(r io.Reader) ([]model.Rate, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = histFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading rate history CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var out []model.Rate
	for i, rec := range records[1:] {
		r, err := UnmarshalRate(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// appendHistory appends rows to path, writing the header for a new file.
func appendHistory(path string, rates []model.Rate) error {
	needsHeader := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening rate history: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(HistoryHeader, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, r := range rates {
		if err := cw.Write(MarshalRate(r)); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	return cw.Error()
}

func readHistoryFile(path string) ([]model.Rate, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening rate history: %w", err)
	}
	defer f.Close()
	return ReadHistory(f)
}
