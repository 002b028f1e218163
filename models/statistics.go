package models

import "github.com/shopspring/decimal"

// YearValue is one row of a per-year table.
type YearValue struct {
	Year  int
	Value int
}

// AreaSalary is one row of the area salary ranking.
type AreaSalary struct {
	Area   string
	Salary int
}

// AreaShare is one row of the area share ranking. Share is a fraction of
// all postings rounded to four places.
type AreaShare struct {
	Area  string
	Share decimal.Decimal
}

// Statistics is the result of one aggregation run. Every slice is ordered:
// yearly tables by ascending year, area tables by rank.
type Statistics struct {
	VacancyName string
	Total       int
	Rejected    int

	SalaryByYear         []YearValue
	CountByYear          []YearValue
	FilteredSalaryByYear []YearValue
	FilteredCountByYear  []YearValue
	TopSalaryByArea      []AreaSalary
	TopShareByArea       []AreaShare
}

// ValueFor returns the value stored for year in a yearly table.
func ValueFor(table []YearValue, year int) (int, bool) {
	for _, yv := range table {
		if yv.Year == year {
			return yv.Value, true
		}
	}
	return 0, false
}

// ChunkSummary holds the per-year salary sums of one chunk file. Sums
// rather than averages are kept so chunks can be merged exactly.
type ChunkSummary struct {
	File  string
	Years []YearSums
}

// YearSums accumulates the salaries of one year, overall and for matching
// titles.
type YearSums struct {
	Year          int
	Sum           decimal.Decimal
	Count         int
	FilteredSum   decimal.Decimal
	FilteredCount int
}

// YearlyTables are the four per-year tables built from chunk summaries.
type YearlyTables struct {
	SalaryByYear         []YearValue
	CountByYear          []YearValue
	FilteredSalaryByYear []YearValue
	FilteredCountByYear  []YearValue
}
