package report

import (
	"encoding/base64"
	"fmt"

	charts "github.com/vicanso/go-charts/v2"

	"hvacsight/internal/models"
)

// ChartGenerator renders the report's embedded charts.
type ChartGenerator struct {
	theme string
}

// NewChartGenerator creates a chart generator matching the report theme.
func NewChartGenerator() *ChartGenerator {
	return &ChartGenerator{theme: "dark"}
}

// GenerateHourlyProfileChart draws the mean energy draw per hour of day.
func (cg *ChartGenerator) GenerateHourlyProfileChart(profiles []models.HourlyProfile) (string, error) {
	if len(profiles) == 0 {
		return "", fmt.Errorf("no hourly profile available")
	}
	labels := make([]string, len(profiles))
	values := make([]float64, len(profiles))
	for i, p := range profiles {
		labels[i] = fmt.Sprintf("%02d:00", p.Hour)
		values[i] = p.AvgEnergy
	}
	return cg.render([][]float64{values}, labels, []string{"Avg Energy (kWh)"}, "Hourly Operating Profile")
}

// GenerateDailyTrendChart draws total energy per day over the window.
func (cg *ChartGenerator) GenerateDailyTrendChart(profiles []models.DailyProfile) (string, error) {
	if len(profiles) == 0 {
		return "", fmt.Errorf("no daily profile available")
	}
	labels := make([]string, len(profiles))
	values := make([]float64, len(profiles))
	for i, p := range profiles {
		labels[i] = p.Date
		values[i] = p.TotalEnergy
	}
	return cg.render([][]float64{values}, labels, []string{"Daily Energy (kWh)"}, "Daily Energy Trend")
}

// GenerateForecastChart draws the projected demand curve.
func (cg *ChartGenerator) GenerateForecastChart(forecast *models.Forecast) (string, error) {
	if forecast == nil || len(forecast.Points) == 0 {
		return "", fmt.Errorf("no forecast available")
	}
	labels := make([]string, len(forecast.Points))
	values := make([]float64, len(forecast.Points))
	for i, p := range forecast.Points {
		labels[i] = p.Timestamp.Format("Jan 2 15:04")
		values[i] = p.Energy
	}
	return cg.render([][]float64{values}, labels, []string{"Predicted Energy (kWh)"}, "Demand Forecast")
}

func (cg *ChartGenerator) render(values [][]float64, labels, legend []string, title string) (string, error) {
	p, err := charts.LineRender(
		values,
		charts.TitleTextOptionFunc(title),
		charts.XAxisDataOptionFunc(labels),
		charts.LegendLabelsOptionFunc(legend, charts.PositionRight),
		charts.ThemeOptionFunc(cg.theme),
		charts.WidthOptionFunc(1200),
		charts.HeightOptionFunc(400),
		charts.PaddingOptionFunc(charts.Box{
			Top:    20,
			Right:  20,
			Bottom: 20,
			Left:   20,
		}),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render %s chart: %w", title, err)
	}
	buf, err := p.Bytes()
	if err != nil {
		return "", fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}
