package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vacancy-stats/currency"
	"vacancy-stats/utils"
)

func newTestAggregator(filter string) *Aggregator {
	return NewAggregator(NewNormalizer(currency.Default), filter, utils.Discard())
}

func decimals(values ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.RequireFromString(v)
	}
	return out
}

func assertSalaries(t *testing.T, want []decimal.Decimal, got []decimal.Decimal) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, want[i].Equal(got[i]), "index %d: got %s, want %s", i, got[i], want[i])
	}
}

func TestAggregatorGroupsInArrivalOrder(t *testing.T) {
	agg := newTestAggregator("it")

	agg.AddRaw(raw("IT", "200", "240", "GEL", "Romania", "2020-09-20"))
	agg.AddRaw(raw("Clerk", "500", "500", "RUR", "Other", "2021-01-01"))
	agg.AddRaw(raw("IT Lead", "1000", "2000", "RUR", "Romania", "2020-03-01"))

	assert.Equal(t, 3, agg.Total())
	assert.Equal(t, 0, agg.Rejected())
	assert.Equal(t, []int{2020, 2021}, agg.SalaryByYear().Keys())
	assert.Equal(t, []string{"Romania", "Other"}, agg.SalaryByArea().Keys())

	y2020, _ := agg.SalaryByYear().Get(2020)
	assertSalaries(t, decimals("4782.8", "1500"), y2020)

	romania, _ := agg.SalaryByArea().Get("Romania")
	assertSalaries(t, decimals("4782.8", "1500"), romania)

	filtered, counts := agg.FilteredSalaryByYear()
	assert.Equal(t, []int{2020}, filtered.Keys())
	c, _ := counts.Get(2020)
	assert.Equal(t, 2, c)
}

func TestAggregatorSkipsRejectedRows(t *testing.T) {
	agg := newTestAggregator("")

	agg.AddRaw(raw("Dev", "100", "100", "JPY", "Tokyo", "2020-01-01"))
	agg.AddRaw(raw("Dev", "100", "100", "RUR", "Tokyo", "bad"))
	agg.AddRaw(raw("Dev", "100", "100", "RUR", "Tokyo", "2020-01-01"))

	assert.Equal(t, 1, agg.Total())
	assert.Equal(t, 2, agg.Rejected())
	assert.Equal(t, []string{"Tokyo"}, agg.SalaryByArea().Keys())
}

func TestAggregatorFilterIgnoresCase(t *testing.T) {
	agg := newTestAggregator("АНАЛИТИК")

	assert.True(t, agg.Matches("Ведущий аналитик данных"))
	assert.True(t, agg.Matches("Аналитик"))
	assert.False(t, agg.Matches("Программист"))
}

func TestAggregatorSynthesizesZeroFilteredTable(t *testing.T) {
	agg := newTestAggregator("nobody matches this")

	agg.AddRaw(raw("Dev", "100", "200", "RUR", "Moscow", "2019-01-01"))
	agg.AddRaw(raw("Dev", "100", "200", "RUR", "Moscow", "2021-01-01"))
	agg.AddRaw(raw("QA", "100", "200", "RUR", "Kazan", "2020-01-01"))

	filtered, counts := agg.FilteredSalaryByYear()
	assert.Equal(t, agg.SalaryByYear().Keys(), filtered.Keys())
	assert.Equal(t, agg.SalaryByYear().Keys(), counts.Keys())

	for _, year := range filtered.Keys() {
		values, _ := filtered.Get(year)
		assertSalaries(t, decimals("0"), values)
		c, _ := counts.Get(year)
		assert.Equal(t, 0, c)
	}
}

func TestAccumulationKeepsRunningAverage(t *testing.T) {
	m := utils.NewOrderedMap[int, []decimal.Decimal]()
	values := decimals("10.5", "3", "7.7", "100")

	sum := decimal.Zero
	for i, v := range values {
		utils.Accumulate(m, 1, []decimal.Decimal{v}, utils.AppendTo[decimal.Decimal])
		sum = sum.Add(v)

		got, _ := m.Get(1)
		require.Len(t, got, i+1)
		want := sum.Div(decimal.NewFromInt(int64(i + 1))).Floor().IntPart()
		assert.Equal(t, int(want), Average(got))
	}
}
