package services

import (
	"fmt"
	"iter"
	"time"

	"github.com/shopspring/decimal"

	"vacancy-stats/currency"
	"vacancy-stats/models"
	"vacancy-stats/utils"
)

// Converter prices each vacancy in rubles using the rate of its
// publication month.
type Converter struct {
	rates  map[string]map[string]decimal.Decimal
	logger *utils.Logger
}

// NewConverter indexes history for lookups by month and code.
func NewConverter(history *models.RateHistory, logger *utils.Logger) *Converter {
	idx := make(map[string]map[string]decimal.Decimal, len(history.Months))
	for _, m := range history.Months {
		idx[m.Month] = m.Rates
	}
	return &Converter{rates: idx, logger: logger}
}

// Convert prices one vacancy. When only one salary bound is given that
// bound is used, otherwise their mean; the result is rounded to whole
// rubles. The salary is left invalid when there are no bounds, no currency
// or no rate for the month. Only an unparseable date is an error.
func (c *Converter) Convert(raw models.RawVacancy) (models.ConvertedVacancy, error) {
	published := raw[models.FieldPublishedAt]
	if len(published) < 10 {
		return models.ConvertedVacancy{}, fmt.Errorf("%w: %q", ErrMalformedField, published)
	}
	day, err := time.Parse("2006-01-02", published[:10])
	if err != nil {
		return models.ConvertedVacancy{}, fmt.Errorf("%w: %q", ErrMalformedField, published)
	}

	out := models.ConvertedVacancy{
		Title:       raw[models.FieldName],
		Area:        raw[models.FieldArea],
		PublishedAt: day,
	}

	from, errFrom := optionalBound(raw[models.FieldSalaryFrom])
	to, errTo := optionalBound(raw[models.FieldSalaryTo])
	if errFrom != nil || errTo != nil || (!from.Valid && !to.Valid) {
		return out, nil
	}

	rate, ok := c.rate(day.Format("2006-01"), raw[models.FieldCurrency])
	if !ok {
		return out, nil
	}

	out.Salary = decimal.NewNullDecimal(salaryFromBounds(from.Decimal, to.Decimal).Mul(rate).RoundBank(0))
	return out, nil
}

// ConvertAll converts every record, skipping rows with a bad date.
func (c *Converter) ConvertAll(records iter.Seq[models.RawVacancy]) []models.ConvertedVacancy {
	var out []models.ConvertedVacancy
	skipped, priced := 0, 0
	for raw := range records {
		v, err := c.Convert(raw)
		if err != nil {
			skipped++
			c.logger.Warn("[converter] Skipping %q: %v", raw[models.FieldName], err)
			continue
		}
		if v.Salary.Valid {
			priced++
		}
		out = append(out, v)
	}
	c.logger.Info("[converter] Converted %d vacancies (%d with salary, %d skipped)", len(out), priced, skipped)
	return out
}

func (c *Converter) rate(month, code string) (decimal.Decimal, bool) {
	switch code {
	case "":
		return decimal.Decimal{}, false
	case currency.Ruble:
		return decimal.NewFromInt(1), true
	}
	r, ok := c.rates[month][code]
	return r, ok
}

func salaryFromBounds(from, to decimal.Decimal) decimal.Decimal {
	if from.IsZero() || to.IsZero() {
		return decimal.Max(from, to)
	}
	return from.Add(to).Div(two)
}

func optionalBound(s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}
