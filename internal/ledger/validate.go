package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rojas-cambio/cambio/internal/model"
)

// ValidationError describes one rejected field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors is returned by Service when a draft is rejected.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, ve := range v {
		msgs[i] = ve.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// CurrencyChecker tests whether a currency is traded.
type CurrencyChecker interface {
	Recognizes(c model.Currency) bool
}

// Draft is a transaction as typed into a form or read from a spreadsheet.
type Draft struct {
	Type         string
	Currency     string
	Amount       string
	Rate         string
	Date         string // YYYY-MM-DD; empty means today
	CustomerDNI  string
	CustomerName string
}

// Parse converts a draft into a transaction without ID, receipt or owner.
// Total is Amount * Rate rounded to cents.
func (d Draft) Parse(currencies CurrencyChecker, today time.Time) (model.Transaction, []ValidationError) {
	var errs []ValidationError
	var t model.Transaction

	if strings.TrimSpace(d.Type) == "" {
		errs = append(errs, ValidationError{"type", "required"})
	} else if typ, err := model.ParseTransactionType(d.Type); err != nil {
		errs = append(errs, ValidationError{"type", fmt.Sprintf("must be buy or sell, got %q", d.Type)})
	} else {
		t.Type = typ
	}

	if strings.TrimSpace(d.Currency) == "" {
		errs = append(errs, ValidationError{"currency", "required"})
	} else if cur, err := model.ParseCurrency(d.Currency); err != nil {
		errs = append(errs, ValidationError{"currency", err.Error()})
	} else {
		t.Currency = cur
	}

	var ok bool
	if t.Amount, ok = parsePositive("amount", d.Amount, &errs); ok {
		t.Amount = t.Amount.Round(2)
	}
	t.Rate, _ = parsePositive("rate", d.Rate, &errs)

	day := strings.TrimSpace(d.Date)
	if day == "" {
		t.Date = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	} else if date, err := time.Parse(model.DateFormat, day); err != nil {
		errs = append(errs, ValidationError{"date", fmt.Sprintf("want YYYY-MM-DD, got %q", d.Date)})
	} else {
		t.Date = date
	}

	t.CustomerDNI = strings.TrimSpace(d.CustomerDNI)
	t.CustomerName = strings.TrimSpace(d.CustomerName)

	if len(errs) > 0 {
		return model.Transaction{}, errs
	}

	t.Total = t.Amount.Mul(t.Rate).Round(2)
	if verrs := ValidateTransaction(t, currencies); len(verrs) > 0 {
		return model.Transaction{}, verrs
	}
	return t, nil
}

// ValidateTransaction checks a parsed transaction against the rules every
// stored transaction obeys.
func ValidateTransaction(t model.Transaction, currencies CurrencyChecker) []ValidationError {
	var errs []ValidationError

	if !t.Type.Valid() {
		errs = append(errs, ValidationError{"type", fmt.Sprintf("must be buy or sell, got %q", t.Type)})
	}
	if currencies != nil && !currencies.Recognizes(t.Currency) {
		errs = append(errs, ValidationError{"currency", fmt.Sprintf("%s is not traded", t.Currency)})
	}
	if !t.Amount.IsPositive() {
		errs = append(errs, ValidationError{"amount", "must be greater than zero"})
	}
	if !t.Rate.IsPositive() {
		errs = append(errs, ValidationError{"rate", "must be greater than zero"})
	}
	if t.Date.IsZero() {
		errs = append(errs, ValidationError{"date", "required"})
	}
	if t.CustomerDNI != "" && !isDNI(t.CustomerDNI) {
		errs = append(errs, ValidationError{"customer_dni", "must be 8 digits"})
	}
	return errs
}

func parsePositive(field, raw string, errs *[]ValidationError) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		*errs = append(*errs, ValidationError{field, "required"})
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		*errs = append(*errs, ValidationError{field, fmt.Sprintf("not a number: %q", raw)})
		return decimal.Zero, false
	}
	if !d.IsPositive() {
		*errs = append(*errs, ValidationError{field, "must be greater than zero"})
		return decimal.Zero, false
	}
	return d, true
}

func isDNI(s string) bool {
	if len(s) != 8 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
