package models

import "time"

// Canonical core parameter column names. Every recognised header alias folds
// onto one of these before the pipeline runs.
const (
	ColTimestamp  = "timestamp"
	ColEnergy     = "energy"
	ColEfficiency = "efficiency_ratio"
	ColAmbient    = "ambient_temp"
	ColLoad       = "load"
)

// CoreColumns lists the four numeric core parameters in canonical order.
var CoreColumns = []string{ColEnergy, ColEfficiency, ColAmbient, ColLoad}

// RawTable is an uninterpreted two-dimensional table with a header row, as
// produced by the CSV reader or any other ingestion collaborator.
type RawTable struct {
	Headers []string
	Rows    [][]string
}

// Table is the cleaned, normalized observation table. Timestamps are strictly
// increasing and every present core column has one finite value per row.
// Stages treat a Table as read-only; it is never mutated after normalization.
type Table struct {
	Timestamps []time.Time          `json:"timestamps"`
	Columns    map[string][]float64 `json:"columns"`
}

// Len returns the number of observations.
func (t *Table) Len() int {
	return len(t.Timestamps)
}

// Has reports whether the named core column survived normalization.
func (t *Table) Has(col string) bool {
	_, ok := t.Columns[col]
	return ok
}

// Column returns the values for a core column, or nil if absent.
func (t *Table) Column(col string) []float64 {
	return t.Columns[col]
}

// Available returns the core parameters present in the table, in canonical order.
func (t *Table) Available() []string {
	var cols []string
	for _, c := range CoreColumns {
		if t.Has(c) {
			cols = append(cols, c)
		}
	}
	return cols
}

// KPI metric names. A metric that cannot be computed because its column is
// absent is omitted from the set entirely, never reported as zero.
const (
	KPIRecords       = "records"
	KPIAvgEnergy     = "avg_energy"
	KPIPeakEnergy    = "peak_energy"
	KPIAvgEfficiency = "avg_efficiency_ratio"
	KPIAvgAmbient    = "avg_ambient_temp"
)

// KPISet maps metric names to values for one analysis run.
type KPISet map[string]float64

// Correlations maps each available core parameter (excluding energy) to its
// Pearson correlation with the energy column over the full cleaned window.
type Correlations map[string]float64

// HourlyProfile is the mean energy draw for one hour-of-day bucket.
type HourlyProfile struct {
	Hour      int     `json:"hour"`
	AvgEnergy float64 `json:"avg_energy"`
}

// DailyProfile is the total energy draw for one calendar day.
type DailyProfile struct {
	Date        string  `json:"date"`
	TotalEnergy float64 `json:"total_energy"`
}

// AnomalyFlag records which detection methods fired for one observation.
type AnomalyFlag struct {
	Timestamp time.Time `json:"timestamp"`
	ZScore    bool      `json:"zscore"`
	Outlier   bool      `json:"outlier"`
}

// Flagged reports whether either method fired.
func (f AnomalyFlag) Flagged() bool {
	return f.ZScore || f.Outlier
}

// AnomalySummary aggregates the flag vector for reporting and rule evaluation.
type AnomalySummary struct {
	Count          int     `json:"anomaly_count"`
	RatioPct       float64 `json:"anomaly_ratio_pct"`
	DegradationPct float64 `json:"efficiency_degradation_pct"`
}

// AnomalyReport is the full output of the anomaly detector.
type AnomalyReport struct {
	Flags   []AnomalyFlag  `json:"flags"`
	Summary AnomalySummary `json:"summary"`
}

// ForecastPoint is one projected step of future energy demand.
type ForecastPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Energy    float64   `json:"energy"`
}

// Forecast is the forecaster's output: exactly the requested number of steps
// at the input's sampling interval, plus the fitted model coefficients.
type Forecast struct {
	Points []ForecastPoint    `json:"points"`
	Model  map[string]float64 `json:"model"`
}

// Severity ranks a finding. Higher rank sorts first.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Rank returns a sortable weight for the severity; unknown values sort last.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Finding is one rule-derived observation with a recommended action.
type Finding struct {
	Severity    Severity `json:"severity"`
	Title       string   `json:"title"`
	Observation string   `json:"observation"`
	Action      string   `json:"action"`
}

// AnalysisResult bundles every artifact of one pipeline run. All fields are
// derived, immutable snapshots; nothing is shared across runs.
type AnalysisResult struct {
	GeneratedAt    time.Time       `json:"generated_at"`
	Records        int             `json:"records"`
	KPIs           KPISet          `json:"kpis"`
	Correlations   Correlations    `json:"correlations"`
	HourlyProfiles []HourlyProfile `json:"hourly_profiles,omitempty"`
	DailyProfiles  []DailyProfile  `json:"daily_profiles,omitempty"`
	Anomalies      AnomalyReport   `json:"anomalies"`
	Forecast       *Forecast       `json:"forecast,omitempty"`
	ForecastError  string          `json:"forecast_error,omitempty"`
	Findings       []Finding       `json:"findings"`
}
