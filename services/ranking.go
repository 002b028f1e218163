package services

import (
	"sort"

	"github.com/shopspring/decimal"

	"vacancy-stats/models"
	"vacancy-stats/utils"
)

const (
	// TopAreas is the length of both area rankings.
	TopAreas = 10
	// shareDecimals is the precision of an area's share of postings.
	shareDecimals = 4
)

// MinAreaShare is the share an area needs to appear in either ranking.
var MinAreaShare = decimal.RequireFromString("0.01")

// Average returns floor(sum(values) / len(values)). values must not be empty.
func Average(values []decimal.Decimal) int {
	return floorQuo(decimal.Sum(decimal.Zero, values...), len(values))
}

func floorQuo(sum decimal.Decimal, n int) int {
	count := decimal.NewFromInt(int64(n))
	q, _ := sum.QuoRem(count, 0)
	if sum.IsNegative() && !q.Mul(count).Equal(sum) {
		q = q.Sub(decimal.NewFromInt(1))
	}
	return int(q.IntPart())
}

// Share returns count/total rounded half-to-even to four places.
func Share(count, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(count)).Div(decimal.NewFromInt(int64(total))).RoundBank(shareDecimals)
}

// YearlyAverages returns the average salary of every year, ascending by year.
func YearlyAverages(series *utils.OrderedMap[int, []decimal.Decimal]) []models.YearValue {
	years := sortedYears(series.Keys())
	out := make([]models.YearValue, 0, len(years))
	for _, y := range years {
		values, _ := series.Get(y)
		out = append(out, models.YearValue{Year: y, Value: Average(values)})
	}
	return out
}

// YearlyCounts returns the number of salaries of every year, ascending by year.
func YearlyCounts(series *utils.OrderedMap[int, []decimal.Decimal]) []models.YearValue {
	years := sortedYears(series.Keys())
	out := make([]models.YearValue, 0, len(years))
	for _, y := range years {
		values, _ := series.Get(y)
		out = append(out, models.YearValue{Year: y, Value: len(values)})
	}
	return out
}

// CountTable turns a year → count map into a table ascending by year.
func CountTable(counts *utils.OrderedMap[int, int]) []models.YearValue {
	years := sortedYears(counts.Keys())
	out := make([]models.YearValue, 0, len(years))
	for _, y := range years {
		c, _ := counts.Get(y)
		out = append(out, models.YearValue{Year: y, Value: c})
	}
	return out
}

// RankAreas builds both area rankings from the per-area salaries.
//
// Only areas holding at least MinAreaShare of total postings are ranked.
// The share ranking keeps the first TopAreas of those by share. The salary
// ranking is then computed over the members of that share ranking only,
// and again keeps the first TopAreas by average salary. Equal values keep
// the order in which the areas were first seen.
func RankAreas(byArea *utils.OrderedMap[string, []decimal.Decimal], total int) ([]models.AreaSalary, []models.AreaShare) {
	eligible := make([]models.AreaShare, 0, byArea.Len())
	for _, area := range byArea.Keys() {
		values, _ := byArea.Get(area)
		share := Share(len(values), total)
		if share.GreaterThanOrEqual(MinAreaShare) {
			eligible = append(eligible, models.AreaShare{Area: area, Share: share})
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Share.GreaterThan(eligible[j].Share)
	})
	topShare := eligible[:min(len(eligible), TopAreas)]

	inTopShare := make(map[string]struct{}, len(topShare))
	for _, s := range topShare {
		inTopShare[s.Area] = struct{}{}
	}

	salaries := make([]models.AreaSalary, 0, len(topShare))
	for _, area := range byArea.Keys() {
		if _, ok := inTopShare[area]; !ok {
			continue
		}
		values, _ := byArea.Get(area)
		salaries = append(salaries, models.AreaSalary{Area: area, Salary: Average(values)})
	}

	sort.SliceStable(salaries, func(i, j int) bool {
		return salaries[i].Salary > salaries[j].Salary
	})
	topSalary := salaries[:min(len(salaries), TopAreas)]

	return topSalary, topShare
}

func sortedYears(years []int) []int {
	sort.Ints(years)
	return years
}
