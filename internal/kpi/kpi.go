// Package kpi computes summary statistics, operational profiles and pairwise
// correlations against the energy signal. Everything here is a pure function
// of the cleaned table.
package kpi

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"hvacsight/internal/models"
)

// Compute builds the KPI set and the correlation set for one cleaned table.
// Metrics whose column is absent are omitted from the set; a zero is never
// fabricated. Zero or undefined variance in either series resolves the
// correlation to 0.0, never an error.
func Compute(table *models.Table) (models.KPISet, models.Correlations) {
	kpis := models.KPISet{
		models.KPIRecords: float64(table.Len()),
	}
	if energy := table.Column(models.ColEnergy); energy != nil && len(energy) > 0 {
		kpis[models.KPIAvgEnergy] = stat.Mean(energy, nil)
		kpis[models.KPIPeakEnergy] = peak(energy)
	}
	if eff := table.Column(models.ColEfficiency); eff != nil && len(eff) > 0 {
		kpis[models.KPIAvgEfficiency] = stat.Mean(eff, nil)
	}
	if temp := table.Column(models.ColAmbient); temp != nil && len(temp) > 0 {
		kpis[models.KPIAvgAmbient] = stat.Mean(temp, nil)
	}

	correlations := models.Correlations{}
	energy := table.Column(models.ColEnergy)
	if energy != nil {
		for _, col := range table.Available() {
			if col == models.ColEnergy {
				continue
			}
			correlations[col] = pearson(table.Column(col), energy)
		}
	}
	return kpis, correlations
}

// pearson is stat.Correlation with degenerate inputs resolved to 0.0.
func pearson(xs, ys []float64) float64 {
	if len(xs) < 2 || len(xs) != len(ys) {
		return 0.0
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0.0
	}
	return r
}

func peak(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Profiles aggregates energy draw into an hour-of-day mean profile and a
// per-day total profile for the report layer. Tables without an energy
// column yield empty profiles.
func Profiles(table *models.Table) ([]models.HourlyProfile, []models.DailyProfile) {
	energy := table.Column(models.ColEnergy)
	if energy == nil {
		return nil, nil
	}

	hourSum := make(map[int]float64)
	hourCount := make(map[int]int)
	daySum := make(map[string]float64)
	for i, ts := range table.Timestamps {
		hourSum[ts.Hour()] += energy[i]
		hourCount[ts.Hour()]++
		daySum[ts.Format("2006-01-02")] += energy[i]
	}

	hourly := make([]models.HourlyProfile, 0, len(hourSum))
	for hour, sum := range hourSum {
		hourly = append(hourly, models.HourlyProfile{Hour: hour, AvgEnergy: sum / float64(hourCount[hour])})
	}
	sort.Slice(hourly, func(i, j int) bool { return hourly[i].Hour < hourly[j].Hour })

	daily := make([]models.DailyProfile, 0, len(daySum))
	for day, sum := range daySum {
		daily = append(daily, models.DailyProfile{Date: day, TotalEnergy: sum})
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].Date < daily[j].Date })

	return hourly, daily
}
