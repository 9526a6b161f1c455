// Package recommend turns the upstream artifacts into ordered, severity
// ranked findings with concrete operator actions. The rule set is a fixed
// ordered list evaluated top to bottom; every rule is a total function and an
// unmatched edge case simply does not fire.
package recommend

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"hvacsight/internal/config"
	"hvacsight/internal/models"
)

// Severity escalation factors: a rule fires at medium once its threshold is
// crossed and escalates to high past the factor.
const (
	efficiencyHighFactor   = 1.25
	degradationHighPct     = 15.0
	anomalyRatioHighPct    = 10.0
	tempCorrHighThreshold  = 0.75
	forecastSpikeHighRatio = 1.5
)

// Inputs collects the read-only upstream artifacts one rule pass needs.
type Inputs struct {
	KPIs         models.KPISet
	Correlations models.Correlations
	Summary      models.AnomalySummary
	Forecast     *models.Forecast
}

type rule struct {
	name string
	eval func(in Inputs, cfg config.Analysis) (models.Finding, bool)
}

// rules is evaluated in order; ties in severity keep this order in the output.
var rules = []rule{
	{name: "efficiency_above_target", eval: efficiencyRule},
	{name: "efficiency_degrading", eval: degradationRule},
	{name: "anomaly_ratio_elevated", eval: anomalyRatioRule},
	{name: "weather_sensitive", eval: weatherRule},
	{name: "forecast_spike", eval: spikeRule},
}

// Recommend evaluates the rule set and returns findings sorted by severity,
// high first. The result is never empty: a quiet system yields a single
// "stable" finding.
func Recommend(in Inputs, cfg config.Analysis) []models.Finding {
	var findings []models.Finding
	for _, r := range rules {
		if f, fired := r.eval(in, cfg); fired {
			findings = append(findings, f)
		}
	}

	if len(findings) == 0 {
		findings = append(findings, models.Finding{
			Severity:    models.SeverityLow,
			Title:       "System Stable",
			Observation: "All monitored indicators are inside their operating bands.",
			Action:      "Keep the current schedule and continue monitoring with a weekly KPI review.",
		})
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Severity.Rank() > findings[j].Severity.Rank()
	})
	return findings
}

func efficiencyRule(in Inputs, cfg config.Analysis) (models.Finding, bool) {
	avg, ok := in.KPIs[models.KPIAvgEfficiency]
	if !ok || avg <= cfg.EfficiencyTarget {
		return models.Finding{}, false
	}
	severity := models.SeverityMedium
	if avg > cfg.EfficiencyTarget*efficiencyHighFactor {
		severity = models.SeverityHigh
	}
	return models.Finding{
		Severity:    severity,
		Title:       "Cooling Efficiency Above Target",
		Observation: fmt.Sprintf("Average efficiency ratio is %.3f iKW/TR against a target of %.2f; the plant is spending more energy per ton of cooling than it should.", avg, cfg.EfficiencyTarget),
		Action:      "Tune the chilled-water setpoint and clean condenser tubes to restore COP.",
	}, true
}

func degradationRule(in Inputs, cfg config.Analysis) (models.Finding, bool) {
	deg := in.Summary.DegradationPct
	if deg <= cfg.DegradationAlertPct {
		return models.Finding{}, false
	}
	severity := models.SeverityMedium
	if deg > degradationHighPct {
		severity = models.SeverityHigh
	}
	return models.Finding{
		Severity:    severity,
		Title:       "Efficiency Degradation Trend",
		Observation: fmt.Sprintf("Mean efficiency ratio worsened %.1f%% between the earliest and latest part of the window.", deg),
		Action:      "Schedule maintenance for filters, pumps and chiller heat-exchange surfaces within 7 days.",
	}, true
}

func anomalyRatioRule(in Inputs, cfg config.Analysis) (models.Finding, bool) {
	ratio := in.Summary.RatioPct
	if ratio <= cfg.AnomalyRatioAlertPct {
		return models.Finding{}, false
	}
	severity := models.SeverityMedium
	if ratio > anomalyRatioHighPct {
		severity = models.SeverityHigh
	}
	return models.Finding{
		Severity:    severity,
		Title:       "Frequent Anomalies",
		Observation: fmt.Sprintf("%.1f%% of observations (%d records) were flagged as anomalous.", ratio, in.Summary.Count),
		Action:      "Review BMS sensor calibration and alarm thresholds for temperature and load inputs.",
	}, true
}

func weatherRule(in Inputs, cfg config.Analysis) (models.Finding, bool) {
	corr, ok := in.Correlations[models.ColAmbient]
	if !ok || corr <= cfg.TempCorrThreshold {
		return models.Finding{}, false
	}
	severity := models.SeverityMedium
	if corr > tempCorrHighThreshold {
		severity = models.SeverityHigh
	}
	return models.Finding{
		Severity:    severity,
		Title:       "High Weather Sensitivity",
		Observation: fmt.Sprintf("Energy draw correlates %.2f with ambient temperature over the analysis window.", corr),
		Action:      "Apply weather-reset control and pre-cool during lower tariff hours.",
	}, true
}

func spikeRule(in Inputs, cfg config.Analysis) (models.Finding, bool) {
	if in.Forecast == nil || len(in.Forecast.Points) == 0 {
		return models.Finding{}, false
	}
	values := make([]float64, len(in.Forecast.Points))
	peakAt := in.Forecast.Points[0].Timestamp
	peakVal := in.Forecast.Points[0].Energy
	for i, p := range in.Forecast.Points {
		values[i] = p.Energy
		if p.Energy > peakVal {
			peakVal, peakAt = p.Energy, p.Timestamp
		}
	}
	mean := stat.Mean(values, nil)
	if mean <= 0 || peakVal <= mean*cfg.ForecastSpikeRatio {
		return models.Finding{}, false
	}
	severity := models.SeverityMedium
	if peakVal > mean*forecastSpikeHighRatio {
		severity = models.SeverityHigh
	}
	return models.Finding{
		Severity:    severity,
		Title:       "Upcoming Demand Spike",
		Observation: fmt.Sprintf("Forecast peaks at %.0f kWh around %s, %.0f%% above the forecast mean.", peakVal, peakAt.Format("Mon 15:04"), (peakVal/mean-1)*100),
		Action:      "Pre-stage chillers and rebalance load across units before the peak window.",
	}, true
}
