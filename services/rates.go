package services

import (
	"context"
	"iter"
	"sort"
	"time"

	"vacancy-stats/currency"
	"vacancy-stats/models"
	"vacancy-stats/utils"
)

// RateFetcher downloads monthly rates for the given codes.
type RateFetcher interface {
	FetchHistory(ctx context.Context, months []time.Time, codes []string) (*models.RateHistory, error)
}

// RatePlan is what a rate download needs: the months spanned by the
// vacancies and the currencies frequent enough to be worth fetching.
type RatePlan struct {
	Months []time.Time
	Codes  []string
	Usage  map[string]int
	Total  int
}

// PlanRates scans records once. A currency is selected when it occurs more
// than minCount times; rubles never are.
func PlanRates(records iter.Seq[models.RawVacancy], minCount int) RatePlan {
	usage := make(map[string]int)
	var first, last time.Time
	total := 0

	for rec := range records {
		code := rec[models.FieldCurrency]
		if code == "" {
			continue
		}
		total++
		usage[code]++

		month, err := publicationMonth(rec[models.FieldPublishedAt])
		if err != nil {
			continue
		}
		if first.IsZero() || month.Before(first) {
			first = month
		}
		if month.After(last) {
			last = month
		}
	}

	plan := RatePlan{Usage: usage, Total: total}
	for code, n := range usage {
		if n > minCount && code != currency.Ruble {
			plan.Codes = append(plan.Codes, code)
		}
	}
	sort.Strings(plan.Codes)

	if !first.IsZero() {
		for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
			plan.Months = append(plan.Months, m)
		}
	}
	return plan
}

// RateService turns a vacancy file into a monthly rate history.
type RateService struct {
	fetcher RateFetcher
	logger  *utils.Logger
}

// NewRateService creates a RateService.
func NewRateService(fetcher RateFetcher, logger *utils.Logger) *RateService {
	return &RateService{fetcher: fetcher, logger: logger}
}

// Build plans and downloads the history for records.
func (s *RateService) Build(ctx context.Context, records iter.Seq[models.RawVacancy], minCount int) (*models.RateHistory, error) {
	plan := PlanRates(records, minCount)
	s.logger.Info("[rates] %d vacancies with a currency, %d months, currencies %v",
		plan.Total, len(plan.Months), plan.Codes)
	for code, n := range plan.Usage {
		s.logger.Debug("[rates] %s: %d (%.4f)", code, n, float64(n)/float64(plan.Total))
	}
	if len(plan.Months) == 0 || len(plan.Codes) == 0 {
		return &models.RateHistory{Codes: plan.Codes}, nil
	}
	return s.fetcher.FetchHistory(ctx, plan.Months, plan.Codes)
}

func publicationMonth(publishedAt string) (time.Time, error) {
	if len(publishedAt) < 7 {
		return time.Time{}, ErrMalformedField
	}
	return time.Parse("2006-01", publishedAt[:7])
}
