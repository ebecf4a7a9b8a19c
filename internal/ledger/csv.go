package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rojas-cambio/cambio/internal/model"
)

// Header is the CSV header for transactions.csv.
const Header = "id,receipt,date,type,currency,amount,rate,total,customer_dni,customer_name,user_id,created_at"

// TimestampFormat is a fixed-width UTC layout so timestamps sort as strings.
const TimestampFormat = "2006-01-02T15:04:05.000000000Z"

const (
	numFields    = 12
	colID        = 0
	colReceipt   = 1
	colDate      = 2
	colType      = 3
	colCurrency  = 4
	colAmount    = 5
	colRate      = 6
	colTotal     = 7
	colDNI       = 8
	colName      = 9
	colUserID    = 10
	colCreatedAt = 11
)

// ReadTransactions reads all transactions from a transactions.csv reader.
func ReadTransactions(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading transactions CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var txns []model.Transaction
	for i, rec := range records[1:] {
		t, err := UnmarshalTransaction(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, t)
	}
	return txns, nil
}

// WriteTransactions writes transactions including the header.
func WriteTransactions(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, t := range txns {
		if err := cw.Write(MarshalTransaction(t)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// AppendTransactions writes rows without a header.
func AppendTransactions(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	for i, t := range txns {
		if err := cw.Write(MarshalTransaction(t)); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	return cw.Error()
}

// MarshalTransaction converts a Transaction to a CSV row.
func MarshalTransaction(t model.Transaction) []string {
	row := make([]string, numFields)
	row[colID] = t.ID
	row[colReceipt] = t.Receipt
	row[colDate] = t.Date.Format(model.DateFormat)
	row[colType] = string(t.Type)
	row[colCurrency] = string(t.Currency)
	row[colAmount] = t.Amount.StringFixed(2)
	row[colRate] = t.Rate.StringFixed(4)
	if !t.Total.IsZero() {
		row[colTotal] = t.Total.StringFixed(2)
	}
	row[colDNI] = t.CustomerDNI
	row[colName] = t.CustomerName
	row[colUserID] = t.UserID
	if !t.CreatedAt.IsZero() {
		row[colCreatedAt] = t.CreatedAt.UTC().Format(TimestampFormat)
	}
	return row
}

// UnmarshalTransaction converts a CSV row to a Transaction. Type and
// currency are kept verbatim so unknown values survive a round trip.
func UnmarshalTransaction(record []string) (model.Transaction, error) {
	if len(record) != numFields {
		return model.Transaction{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	date, err := time.Parse(model.DateFormat, record[colDate])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}

	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}

	rate, err := decimal.NewFromString(record[colRate])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing rate %q: %w", record[colRate], err)
	}

	var total decimal.Decimal
	if record[colTotal] != "" {
		total, err = decimal.NewFromString(record[colTotal])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing total %q: %w", record[colTotal], err)
		}
	}

	var createdAt time.Time
	if record[colCreatedAt] != "" {
		createdAt, err = time.Parse(TimestampFormat, record[colCreatedAt])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing created_at %q: %w", record[colCreatedAt], err)
		}
	}

	return model.Transaction{
		ID:           record[colID],
		Receipt:      record[colReceipt],
		Type:         model.TransactionType(record[colType]),
		Currency:     model.Currency(record[colCurrency]),
		Amount:       amount,
		Rate:         rate,
		Total:        total,
		Date:         date,
		CustomerDNI:  record[colDNI],
		CustomerName: record[colName],
		UserID:       record[colUserID],
		CreatedAt:    createdAt,
	}, nil
}
