// Package report renders one analysis result as a standalone HTML decision
// report with embedded charts. It only consumes the pipeline's immutable
// output artifacts.
package report

import (
	"fmt"
	"html"
	"io"
	"sort"

	"github.com/dustin/go-humanize"

	"hvacsight/internal/logging"
	"hvacsight/internal/models"
)

// forecastTableRows caps the forecast table; the chart still shows the full
// horizon.
const forecastTableRows = 24

// Friendly display names for KPI metrics and correlated parameters.
var metricLabels = map[string]string{
	models.KPIRecords:       "Records",
	models.KPIAvgEnergy:     "Average Energy (kWh)",
	models.KPIPeakEnergy:    "Peak Energy (kWh)",
	models.KPIAvgEfficiency: "Average Efficiency (iKW/TR)",
	models.KPIAvgAmbient:    "Average Ambient Temp (°C)",

	models.ColEfficiency: "Efficiency Ratio",
	models.ColAmbient:    "Ambient Temperature",
	models.ColLoad:       "Load",
}

// HTMLReporter generates HTML reports from analysis results.
type HTMLReporter struct {
	log    *logging.Logger
	charts *ChartGenerator
}

// NewHTMLReporter creates a report generator.
func NewHTMLReporter(log *logging.Logger) *HTMLReporter {
	return &HTMLReporter{
		log:    log.WithComponent("report"),
		charts: NewChartGenerator(),
	}
}

// Write renders the full report to w.
func (r *HTMLReporter) Write(w io.Writer, result *models.AnalysisResult) error {
	r.writeHeader(w, result)
	r.writeKPIs(w, result)
	r.writeDiagnostics(w, result)
	r.writeCorrelations(w, result)
	r.writeFindings(w, result)
	r.writeForecast(w, result)
	r.writeCharts(w, result)
	r.writeFooter(w)
	return nil
}

func (r *HTMLReporter) writeHeader(w io.Writer, result *models.AnalysisResult) {
	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Building Energy Decision Report</title>
    <style>
        :root {
            --primary-color: #00C896;
            --warning-color: #FFB800;
            --danger-color: #FF006E;
            --bg-color: #0A0F1E;
            --card-bg: #1A2332;
            --text-color: #E8EAF6;
            --text-muted: #9FA8DA;
            --border-color: #2A3550;
        }
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: var(--bg-color);
            color: var(--text-color);
            line-height: 1.6;
            padding: 20px;
        }
        .container { max-width: 1200px; margin: 0 auto; }
        header {
            background: linear-gradient(135deg, var(--primary-color), #0369a1);
            padding: 40px;
            border-radius: 16px;
            margin-bottom: 30px;
        }
        h1 { font-size: 2.2em; margin-bottom: 10px; }
        .subtitle { color: rgba(255, 255, 255, 0.9); }
        .card {
            background: var(--card-bg);
            border-radius: 12px;
            padding: 30px;
            margin-bottom: 30px;
            border: 1px solid var(--border-color);
        }
        h2 { color: var(--primary-color); margin-bottom: 20px; border-bottom: 2px solid var(--border-color); padding-bottom: 10px; }
        table { width: 100%%; border-collapse: collapse; margin: 20px 0; }
        th, td { padding: 12px; text-align: left; border-bottom: 1px solid var(--border-color); }
        th { color: var(--primary-color); }
        .metric-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(220px, 1fr)); gap: 20px; }
        .metric-card { border: 1px solid var(--border-color); border-radius: 8px; padding: 20px; text-align: center; }
        .metric-value { font-size: 1.8em; font-weight: bold; }
        .metric-label { color: var(--text-muted); font-size: 0.9em; }
        .finding { border-left: 4px solid var(--text-muted); padding: 14px 18px; margin-bottom: 14px; background: rgba(255,255,255,0.02); }
        .finding.high { border-color: var(--danger-color); }
        .finding.medium { border-color: var(--warning-color); }
        .finding.low { border-color: var(--primary-color); }
        .finding .severity { text-transform: uppercase; font-size: 0.8em; letter-spacing: 1px; color: var(--text-muted); }
        .finding .action { color: var(--text-muted); margin-top: 6px; }
        .chart { margin: 20px 0; }
        .chart img { max-width: 100%%; border-radius: 8px; }
        footer { color: var(--text-muted); text-align: center; padding: 20px; }
    </style>
</head>
<body>
<div class="container">
<header>
    <h1>Building Energy Decision Report</h1>
    <p class="subtitle">Generated %s · %s records analyzed</p>
</header>
`, result.GeneratedAt.Format("2006-01-02 15:04 MST"), humanize.Comma(int64(result.Records)))
}

func (r *HTMLReporter) writeKPIs(w io.Writer, result *models.AnalysisResult) {
	fmt.Fprintf(w, "<div class=\"card\">\n<h2>Key Performance Indicators</h2>\n<div class=\"metric-grid\">\n")
	for _, name := range []string{
		models.KPIRecords,
		models.KPIAvgEnergy,
		models.KPIPeakEnergy,
		models.KPIAvgEfficiency,
		models.KPIAvgAmbient,
	} {
		value := "N/A"
		if v, ok := result.KPIs[name]; ok {
			value = humanize.CommafWithDigits(v, 2)
		}
		fmt.Fprintf(w, "<div class=\"metric-card\"><div class=\"metric-value\">%s</div><div class=\"metric-label\">%s</div></div>\n",
			value, html.EscapeString(metricLabels[name]))
	}
	fmt.Fprintf(w, "</div>\n</div>\n")
}

func (r *HTMLReporter) writeDiagnostics(w io.Writer, result *models.AnalysisResult) {
	s := result.Anomalies.Summary
	fmt.Fprintf(w, `<div class="card">
<h2>Diagnostic Summary</h2>
<div class="metric-grid">
<div class="metric-card"><div class="metric-value">%d</div><div class="metric-label">Anomalous Records</div></div>
<div class="metric-card"><div class="metric-value">%.1f%%</div><div class="metric-label">Anomaly Ratio</div></div>
<div class="metric-card"><div class="metric-value">%.1f%%</div><div class="metric-label">Efficiency Degradation</div></div>
</div>
</div>
`, s.Count, s.RatioPct, s.DegradationPct)
}

func (r *HTMLReporter) writeCorrelations(w io.Writer, result *models.AnalysisResult) {
	fmt.Fprintf(w, "<div class=\"card\">\n<h2>Correlation With Energy Draw</h2>\n<table>\n<tr><th>Parameter</th><th>Pearson r</th></tr>\n")
	if len(result.Correlations) == 0 {
		fmt.Fprintf(w, "<tr><td colspan=\"2\">N/A</td></tr>\n")
	}
	for _, col := range models.CoreColumns {
		if v, ok := result.Correlations[col]; ok {
			fmt.Fprintf(w, "<tr><td>%s</td><td>%.2f</td></tr>\n", html.EscapeString(metricLabels[col]), v)
		}
	}
	fmt.Fprintf(w, "</table>\n</div>\n")
}

func (r *HTMLReporter) writeFindings(w io.Writer, result *models.AnalysisResult) {
	fmt.Fprintf(w, "<div class=\"card\">\n<h2>Findings &amp; Recommended Actions</h2>\n")
	for _, f := range result.Findings {
		fmt.Fprintf(w, `<div class="finding %s">
<div class="severity">%s</div>
<strong>%s</strong>
<p>%s</p>
<p class="action">Action: %s</p>
</div>
`,
			f.Severity,
			html.EscapeString(string(f.Severity)),
			html.EscapeString(f.Title),
			html.EscapeString(f.Observation),
			html.EscapeString(f.Action))
	}
	fmt.Fprintf(w, "</div>\n")
}

func (r *HTMLReporter) writeForecast(w io.Writer, result *models.AnalysisResult) {
	fmt.Fprintf(w, "<div class=\"card\">\n<h2>Demand Forecast</h2>\n")
	if result.Forecast == nil {
		reason := result.ForecastError
		if reason == "" {
			reason = "no forecast available"
		}
		fmt.Fprintf(w, "<p>%s</p>\n</div>\n", html.EscapeString(reason))
		return
	}

	fmt.Fprintf(w, "<table>\n<tr><th>Timestamp</th><th>Predicted Energy (kWh)</th></tr>\n")
	for i, p := range result.Forecast.Points {
		if i >= forecastTableRows {
			break
		}
		fmt.Fprintf(w, "<tr><td>%s</td><td>%s</td></tr>\n",
			p.Timestamp.Format("2006-01-02 15:04"), humanize.CommafWithDigits(p.Energy, 2))
	}
	fmt.Fprintf(w, "</table>\n")

	if len(result.Forecast.Model) > 0 {
		names := make([]string, 0, len(result.Forecast.Model))
		for name := range result.Forecast.Model {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(w, "<h2>Model Coefficients</h2>\n<table>\n<tr><th>Feature</th><th>Coefficient</th></tr>\n")
		for _, name := range names {
			fmt.Fprintf(w, "<tr><td>%s</td><td>%.4f</td></tr>\n", html.EscapeString(name), result.Forecast.Model[name])
		}
		fmt.Fprintf(w, "</table>\n")
	}
	fmt.Fprintf(w, "</div>\n")
}

func (r *HTMLReporter) writeCharts(w io.Writer, result *models.AnalysisResult) {
	type chartSpec struct {
		title  string
		render func() (string, error)
	}
	specs := []chartSpec{
		{"hourly profile", func() (string, error) { return r.charts.GenerateHourlyProfileChart(result.HourlyProfiles) }},
		{"daily trend", func() (string, error) { return r.charts.GenerateDailyTrendChart(result.DailyProfiles) }},
		{"forecast", func() (string, error) { return r.charts.GenerateForecastChart(result.Forecast) }},
	}

	wrote := false
	for _, spec := range specs {
		encoded, err := spec.render()
		if err != nil {
			r.log.Debug("chart skipped", "chart", spec.title, "reason", err)
			continue
		}
		if !wrote {
			fmt.Fprintf(w, "<div class=\"card\">\n<h2>Charts</h2>\n")
			wrote = true
		}
		fmt.Fprintf(w, "<div class=\"chart\"><img src=\"data:image/png;base64,%s\" alt=\"%s\"></div>\n",
			encoded, html.EscapeString(spec.title))
	}
	if wrote {
		fmt.Fprintf(w, "</div>\n")
	}
}

func (r *HTMLReporter) writeFooter(w io.Writer) {
	fmt.Fprintf(w, "<footer>hvacsight · derived from one analysis run; no history is persisted</footer>\n</div>\n</body>\n</html>\n")
}
