// Package pipeline wires the analysis stages together: normalize once, fan
// the three independent middle stages out over the immutable cleaned table,
// then join for recommendation.
package pipeline

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"hvacsight/internal/anomaly"
	"hvacsight/internal/config"
	"hvacsight/internal/forecast"
	"hvacsight/internal/kpi"
	"hvacsight/internal/logging"
	"hvacsight/internal/metrics"
	"hvacsight/internal/models"
	"hvacsight/internal/normalize"
	"hvacsight/internal/recommend"
)

// Pipeline runs one full analysis per call. Instances are safe for concurrent
// use; runs share no state.
type Pipeline struct {
	cfg        config.Analysis
	log        *logging.Logger
	detector   *anomaly.Detector
	forecaster *forecast.Forecaster
}

// New builds a pipeline with the default anomaly scorer.
func New(cfg config.Analysis, log *logging.Logger) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		log:        log.WithComponent("pipeline"),
		detector:   anomaly.New(cfg),
		forecaster: forecast.New(cfg),
	}
}

// Run analyzes one raw table. Normalization failure aborts the run with
// *normalize.SchemaError and no partial result. Forecasting failure is
// isolated: the result still carries KPIs, anomalies and (degraded)
// recommendations, with the forecast error message preserved verbatim.
func (p *Pipeline) Run(ctx context.Context, raw models.RawTable) (*models.AnalysisResult, error) {
	table, err := stage("normalize", func() (*models.Table, error) {
		return normalize.Normalize(raw)
	})
	if err != nil {
		return nil, err
	}
	p.log.Debug("table normalized", "records", table.Len(), "columns", table.Available())

	result := &models.AnalysisResult{
		GeneratedAt: time.Now().UTC(),
		Records:     table.Len(),
	}

	// The middle stages are mutually independent and read-only over the
	// cleaned table, so they run in parallel and join before recommendation.
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := stage("kpi", func() (struct{}, error) {
			result.KPIs, result.Correlations = kpi.Compute(table)
			result.HourlyProfiles, result.DailyProfiles = kpi.Profiles(table)
			return struct{}{}, nil
		})
		return err
	})
	g.Go(func() error {
		_, err := stage("anomaly", func() (struct{}, error) {
			result.Anomalies = p.detector.Detect(table)
			return struct{}{}, nil
		})
		return err
	})
	g.Go(func() error {
		fcst, err := stage("forecast", func() (*models.Forecast, error) {
			return p.forecaster.Forecast(table)
		})
		var insufficient *forecast.InsufficientDataError
		if errors.As(err, &insufficient) {
			p.log.Warn("forecast skipped", "reason", err.Error())
			result.ForecastError = err.Error()
			return nil
		}
		if err != nil {
			return err
		}
		result.Forecast = fcst
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.Findings = recommend.Recommend(recommend.Inputs{
		KPIs:         result.KPIs,
		Correlations: result.Correlations,
		Summary:      result.Anomalies.Summary,
		Forecast:     result.Forecast,
	}, p.cfg)

	p.log.Info("analysis complete",
		"records", result.Records,
		"anomalies", result.Anomalies.Summary.Count,
		"findings", len(result.Findings),
		"forecast_steps", forecastSteps(result.Forecast))
	return result, nil
}

func forecastSteps(f *models.Forecast) int {
	if f == nil {
		return 0
	}
	return len(f.Points)
}

// stage times one pipeline stage and records it.
func stage[T any](name string, fn func() (T, error)) (T, error) {
	start := time.Now()
	out, err := fn()
	metrics.RecordStage(name, time.Since(start), err)
	return out, err
}
