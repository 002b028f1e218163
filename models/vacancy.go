package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Column names of a vacancy CSV export.
const (
	FieldName        = "name"
	FieldSalaryFrom  = "salary_from"
	FieldSalaryTo    = "salary_to"
	FieldCurrency    = "salary_currency"
	FieldArea        = "area_name"
	FieldPublishedAt = "published_at"
)

// RawVacancy is one CSV row keyed by header name. Nothing about its
// contents is guaranteed.
type RawVacancy map[string]string

// Vacancy is a normalized posting. It is passed by value and never
// modified after the normalizer builds it.
type Vacancy struct {
	Title            string
	SalaryFrom       int64
	SalaryTo         int64
	Currency         string
	SalaryAverageRub decimal.Decimal
	Area             string
	Year             int
}

// ConvertedVacancy is a posting whose salary was converted with the
// exchange rate of its publication month. Salary is invalid when the
// posting has no usable salary or no rate was known for that month.
type ConvertedVacancy struct {
	Title       string
	Salary      decimal.NullDecimal
	Area        string
	PublishedAt time.Time
}
