package models

import "github.com/shopspring/decimal"

// MonthlyRates holds ruble rates for one calendar month. Month has the
// form "2006-01". A code missing from Rates had no published rate.
type MonthlyRates struct {
	Month string
	Rates map[string]decimal.Decimal
}

// RateHistory is an ordered series of monthly rates for a fixed set of
// currency codes.
type RateHistory struct {
	Codes  []string
	Months []MonthlyRates
}

// Lookup returns the rate for code in month.
func (h *RateHistory) Lookup(month, code string) (decimal.Decimal, bool) {
	for _, m := range h.Months {
		if m.Month == month {
			r, ok := m.Rates[code]
			return r, ok
		}
	}
	return decimal.Decimal{}, false
}
