package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rojas-cambio/cambio/internal/ledger"
	"github.com/rojas-cambio/cambio/internal/model"
)

// PlanillaParser reads the daily operations sheet kept at the counter:
// Fecha, Operación, Moneda, Monto, Tipo de cambio, Total, DNI, Cliente.
type PlanillaParser struct{}

const (
	planillaDateFormat = "02/01/2006"
	planillaNumFields  = 8
	planillaColDate    = 0
	planillaColOp      = 1
	planillaColCcy     = 2
	planillaColAmount  = 3
	planillaColRate    = 4
	planillaColTotal   = 5
	planillaColDNI     = 6
	planillaColName    = 7
)

var planillaHeader = []string{"fecha", "operacion", "moneda", "monto", "tipo de cambio", "total", "dni", "cliente"}

// totalTolerance is how far a sheet total may be from amount*rate.
var totalTolerance = decimal.RequireFromString("0.01")

// Format returns the parser name.
func (p *PlanillaParser) Format() string { return "planilla" }

// Matches reports whether header is a planilla header.
func (p *PlanillaParser) Matches(header []string) bool {
	return headerIs(header, planillaHeader...)
}

// Parse reads a planilla CSV and returns drafts. An empty Total cell is
// allowed; a filled one must agree with Monto x Tipo de cambio.
func (p *PlanillaParser) Parse(r io.Reader) ([]ledger.Draft, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = planillaNumFields
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading planilla CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}
	if !p.Matches(records[0]) {
		return nil, fmt.Errorf("unexpected planilla header %q", strings.Join(records[0], ","))
	}

	var drafts []ledger.Draft
	for i, rec := range records[1:] {
		if blankRow(rec) {
			continue
		}
		d, err := parsePlanillaRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

func parsePlanillaRow(rec []string) (ledger.Draft, error) {
	date, err := time.Parse(planillaDateFormat, strings.TrimSpace(rec[planillaColDate]))
	if err != nil {
		return ledger.Draft{}, fmt.Errorf("parsing fecha %q: %w", rec[planillaColDate], err)
	}
	amount := cleanNumber(rec[planillaColAmount])
	rate := cleanNumber(rec[planillaColRate])

	if total := cleanNumber(rec[planillaColTotal]); total != "" {
		if err := checkTotal(amount, rate, total); err != nil {
			return ledger.Draft{}, err
		}
	}

	return ledger.Draft{
		Type:         strings.TrimSpace(rec[planillaColOp]),
		Currency:     strings.ToUpper(strings.TrimSpace(rec[planillaColCcy])),
		Amount:       amount,
		Rate:         rate,
		Date:         date.Format(model.DateFormat),
		CustomerDNI:  strings.TrimSpace(rec[planillaColDNI]),
		CustomerName: strings.TrimSpace(rec[planillaColName]),
	}, nil
}

// checkTotal compares the sheet total against amount*rate. Unparseable
// amount or rate are left to ledger validation.
func checkTotal(amount, rate, total string) error {
	a, errA := decimal.NewFromString(amount)
	r, errR := decimal.NewFromString(rate)
	if errA != nil || errR != nil {
		return nil
	}
	t, err := decimal.NewFromString(total)
	if err != nil {
		return fmt.Errorf("parsing total %q: %w", total, err)
	}
	want := a.Mul(r).Round(2)
	if want.Sub(t).Abs().GreaterThan(totalTolerance) {
		return fmt.Errorf("total %s does not match %s x %s = %s", t.StringFixed(2), amount, rate, want.StringFixed(2))
	}
	return nil
}

// cleanNumber drops currency symbols, spaces and thousands separators.
func cleanNumber(s string) string {
	s = strings.TrimSpace(s)
	for _, sym := range []string{"S/.", "S/", "US$", "$", "€"} {
		s = strings.TrimPrefix(s, sym)
	}
	return strings.NewReplacer(",", "", " ", "").Replace(s)
}

func blankRow(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
