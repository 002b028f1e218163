package services

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"vacancy-stats/models"
	"vacancy-stats/utils"
)

// Aggregator accumulates salaries by year, by year for matching titles and
// by area in a single forward pass. It is owned by one run and is not safe
// for concurrent use.
type Aggregator struct {
	normalizer *Normalizer
	logger     *utils.Logger

	filter string
	folder cases.Caser

	salaryByYear         *utils.OrderedMap[int, []decimal.Decimal]
	salaryByYearFiltered *utils.OrderedMap[int, []decimal.Decimal]
	salaryByArea         *utils.OrderedMap[string, []decimal.Decimal]
	total                int
	rejected             int
}

// NewAggregator creates an Aggregator whose filtered tables only count
// postings whose title contains vacancyName, ignoring case.
func NewAggregator(normalizer *Normalizer, vacancyName string, logger *utils.Logger) *Aggregator {
	folder := cases.Fold()
	return &Aggregator{
		normalizer:           normalizer,
		logger:               logger,
		filter:               folder.String(vacancyName),
		folder:               folder,
		salaryByYear:         utils.NewOrderedMap[int, []decimal.Decimal](),
		salaryByYearFiltered: utils.NewOrderedMap[int, []decimal.Decimal](),
		salaryByArea:         utils.NewOrderedMap[string, []decimal.Decimal](),
	}
}

// AddRaw normalizes raw and adds it. Rows the normalizer rejects are
// counted and skipped.
func (a *Aggregator) AddRaw(raw models.RawVacancy) {
	v, err := a.normalizer.Normalize(raw)
	if err != nil {
		a.rejected++
		a.logger.Debug("[aggregator] Skipping %q: %v", raw[models.FieldName], err)
		return
	}
	a.Add(v)
}

// Add records one normalized posting.
func (a *Aggregator) Add(v models.Vacancy) {
	salary := []decimal.Decimal{v.SalaryAverageRub}

	utils.Accumulate(a.salaryByYear, v.Year, salary, utils.AppendTo[decimal.Decimal])
	if a.Matches(v.Title) {
		utils.Accumulate(a.salaryByYearFiltered, v.Year, salary, utils.AppendTo[decimal.Decimal])
	}
	utils.Accumulate(a.salaryByArea, v.Area, salary, utils.AppendTo[decimal.Decimal])
	a.total++
}

// Matches reports whether title contains the filter, ignoring case.
func (a *Aggregator) Matches(title string) bool {
	return containsFold(a.folder, title, a.filter)
}

// Total is the number of postings added.
func (a *Aggregator) Total() int { return a.total }

// Rejected is the number of raw rows dropped by the normalizer.
func (a *Aggregator) Rejected() int { return a.rejected }

// SalaryByYear returns the accumulated salaries per year.
func (a *Aggregator) SalaryByYear() *utils.OrderedMap[int, []decimal.Decimal] { return a.salaryByYear }

// SalaryByArea returns the accumulated salaries per area.
func (a *Aggregator) SalaryByArea() *utils.OrderedMap[string, []decimal.Decimal] { return a.salaryByArea }

// MatchedByYear returns the salaries per year of matching titles only,
// without the zero fill applied by FilteredSalaryByYear.
func (a *Aggregator) MatchedByYear() *utils.OrderedMap[int, []decimal.Decimal] {
	return a.salaryByYearFiltered
}

// FilteredSalaryByYear returns the accumulated salaries per year for
// matching titles, and the per-year posting counts. When nothing matched,
// every observed year gets a single zero salary and a zero count.
func (a *Aggregator) FilteredSalaryByYear() (*utils.OrderedMap[int, []decimal.Decimal], *utils.OrderedMap[int, int]) {
	counts := utils.NewOrderedMap[int, int]()

	if a.salaryByYearFiltered.Len() == 0 {
		zeros := utils.NewOrderedMap[int, []decimal.Decimal]()
		for _, year := range a.salaryByYear.Keys() {
			zeros.Set(year, []decimal.Decimal{decimal.Zero})
			counts.Set(year, 0)
		}
		return zeros, counts
	}

	for _, year := range a.salaryByYearFiltered.Keys() {
		values, _ := a.salaryByYearFiltered.Get(year)
		counts.Set(year, len(values))
	}
	return a.salaryByYearFiltered, counts
}

// containsFold reports whether s contains the already folded substr under
// Unicode case folding.
func containsFold(folder cases.Caser, s, foldedSubstr string) bool {
	return strings.Contains(folder.String(s), foldedSubstr)
}
