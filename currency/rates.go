// Package currency holds the static conversion table used to bring every
// salary to rubles.
package currency

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Ruble is the code of the common unit every salary is converted to.
const Ruble = "RUR"

// Table maps a currency code to the number of rubles in one unit.
type Table struct {
	Version string
	rates   map[string]decimal.Decimal
}

// NewTable builds a Table from decimal strings. It panics on a malformed
// rate, so it is meant for package-level constants and tests.
func NewTable(version string, rates map[string]string) Table {
	t := Table{Version: version, rates: make(map[string]decimal.Decimal, len(rates))}
	for code, raw := range rates {
		t.rates[code] = decimal.RequireFromString(raw)
	}
	return t
}

// Default is the fixed rate table. Changing a rate means bumping Version.
var Default = NewTable("2022-12", map[string]string{
	"AZN": "35.68",
	"BYR": "23.91",
	"EUR": "59.90",
	"GEL": "21.74",
	"KGS": "0.76",
	"KZT": "0.13",
	"RUR": "1",
	"UAH": "1.64",
	"USD": "60.66",
	"UZS": "0.0055",
})

// Rate returns the ruble multiplier for code.
func (t Table) Rate(code string) (decimal.Decimal, bool) {
	r, ok := t.rates[code]
	return r, ok
}

// Codes returns the supported currency codes, sorted.
func (t Table) Codes() []string {
	codes := make([]string, 0, len(t.rates))
	for c := range t.rates {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}
