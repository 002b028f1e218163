package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"vacancy-stats/currency"
	"vacancy-stats/models"
)

var two = decimal.NewFromInt(2)

// Normalizer turns raw CSV rows into Vacancy values with a ruble salary.
type Normalizer struct {
	rates currency.Table
}

// NewNormalizer creates a Normalizer over the given rate table.
func NewNormalizer(rates currency.Table) *Normalizer {
	return &Normalizer{rates: rates}
}

// Normalize converts one raw row. The error wraps ErrUnsupportedCurrency
// or ErrMalformedField; callers drop the row in both cases.
func (n *Normalizer) Normalize(raw models.RawVacancy) (models.Vacancy, error) {
	code := raw[models.FieldCurrency]
	rate, ok := n.rates.Rate(code)
	if !ok {
		return models.Vacancy{}, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, code)
	}

	from, err := parseBound(raw[models.FieldSalaryFrom])
	if err != nil {
		return models.Vacancy{}, fmt.Errorf("%s: %w", models.FieldSalaryFrom, err)
	}
	to, err := parseBound(raw[models.FieldSalaryTo])
	if err != nil {
		return models.Vacancy{}, fmt.Errorf("%s: %w", models.FieldSalaryTo, err)
	}

	year, err := parseYear(raw[models.FieldPublishedAt])
	if err != nil {
		return models.Vacancy{}, fmt.Errorf("%s: %w", models.FieldPublishedAt, err)
	}

	return models.Vacancy{
		Title:            raw[models.FieldName],
		SalaryFrom:       from,
		SalaryTo:         to,
		Currency:         code,
		SalaryAverageRub: AverageRub(rate, from, to),
		Area:             raw[models.FieldArea],
		Year:             year,
	}, nil
}

// AverageRub returns rate * (from + to) / 2 rounded half-to-even to one
// decimal place.
func AverageRub(rate decimal.Decimal, from, to int64) decimal.Decimal {
	sum := decimal.NewFromInt(from).Add(decimal.NewFromInt(to))
	return rate.Mul(sum).Div(two).RoundBank(1)
}

// parseBound truncates a decimal string like "200.00" to an integer. An
// empty string is an absent bound and counts as 0.
func parseBound(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedField, s)
	}
	whole := d.Truncate(0).BigInt()
	if !whole.IsInt64() {
		return 0, fmt.Errorf("%w: %q out of range", ErrMalformedField, s)
	}
	return whole.Int64(), nil
}

func parseYear(publishedAt string) (int, error) {
	if len(publishedAt) < 4 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedField, publishedAt)
	}
	year, err := strconv.Atoi(publishedAt[:4])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedField, publishedAt)
	}
	return year, nil
}
