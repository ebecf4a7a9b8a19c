package model

import (
	"fmt"
	"strings"
)

// Currency is an ISO 4217 currency code.
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	PEN Currency = "PEN" // local currency
)

// ParseCurrency normalizes and checks a three-letter currency code.
func ParseCurrency(s string) (Currency, error) {
	code := strings.ToUpper(strings.TrimSpace(s))
	if len(code) != 3 {
		return "", fmt.Errorf("invalid currency code %q", s)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("invalid currency code %q", s)
		}
	}
	return Currency(code), nil
}

// ParseCurrencies parses a list of currency codes, skipping blanks.
func ParseCurrencies(codes []string) ([]Currency, error) {
	var out []Currency
	for _, c := range codes {
		if strings.TrimSpace(c) == "" {
			continue
		}
		cur, err := ParseCurrency(c)
		if err != nil {
			return nil, err
		}
		out = append(out, cur)
	}
	return out, nil
}
