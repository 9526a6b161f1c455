package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Sensitivity selects how aggressively the statistical anomaly method flags
// deviations. A higher sensitivity maps to a lower |z| cutoff.
type Sensitivity string

const (
	SensitivityLow    Sensitivity = "Low"
	SensitivityMedium Sensitivity = "Medium"
	SensitivityHigh   Sensitivity = "High"
)

// Default analysis thresholds. The rule thresholds are empirically chosen
// operating values carried over from field use; they are plain configuration,
// not derived statistics.
const (
	DefaultHorizon              = 24
	MaxHorizon                  = 168
	DefaultEfficiencyTarget     = 1.2
	DefaultDegradationAlertPct  = 8.0
	DefaultAnomalyRatioAlertPct = 4.0
	DefaultTempCorrThreshold    = 0.5
	DefaultForecastSpikeRatio   = 1.2

	DefaultContamination = 0.05
	DefaultForestSeed    = 42
	DefaultForestTrees   = 100
	DefaultForestSample  = 256
)

// Z-score cutoffs per sensitivity tier. Stricter tiers require a larger
// deviation before a point is flagged.
const (
	ZCutoffLow    = 3.0
	ZCutoffMedium = 2.5
	ZCutoffHigh   = 2.0
)

// Analysis carries every knob the pipeline stages need. It is passed by value
// into stage constructors and never mutated after Load; there is no
// process-wide settings object.
type Analysis struct {
	Sensitivity     Sensitivity `yaml:"sensitivity"`
	ZCutoffOverride float64     `yaml:"z_cutoff_override"`
	Horizon         int         `yaml:"horizon"`

	EfficiencyTarget     float64 `yaml:"efficiency_target"`
	DegradationAlertPct  float64 `yaml:"degradation_alert_pct"`
	AnomalyRatioAlertPct float64 `yaml:"anomaly_ratio_alert_pct"`
	TempCorrThreshold    float64 `yaml:"temp_correlation_threshold"`
	ForecastSpikeRatio   float64 `yaml:"forecast_spike_ratio"`

	Contamination float64 `yaml:"contamination"`
	ForestSeed    int64   `yaml:"forest_seed"`
	ForestTrees   int     `yaml:"forest_trees"`
	ForestSample  int     `yaml:"forest_sample"`
}

// ZCutoff resolves the effective |z| threshold for the statistical method.
func (a Analysis) ZCutoff() float64 {
	if a.ZCutoffOverride > 0 {
		return a.ZCutoffOverride
	}
	switch a.Sensitivity {
	case SensitivityLow:
		return ZCutoffLow
	case SensitivityHigh:
		return ZCutoffHigh
	default:
		return ZCutoffMedium
	}
}

// Fingerprint returns a stable string over every knob that changes pipeline
// output. It keys the result cache together with the dataset digest.
func (a Analysis) Fingerprint() string {
	return fmt.Sprintf("s=%s|z=%g|h=%d|eff=%g|deg=%g|ar=%g|tc=%g|spk=%g|c=%g|seed=%d|t=%d|ss=%d",
		a.Sensitivity, a.ZCutoffOverride, a.Horizon,
		a.EfficiencyTarget, a.DegradationAlertPct, a.AnomalyRatioAlertPct,
		a.TempCorrThreshold, a.ForecastSpikeRatio,
		a.Contamination, a.ForestSeed, a.ForestTrees, a.ForestSample)
}

// Validate checks the knobs a caller may override per request.
func (a Analysis) Validate() error {
	if a.Horizon < 1 || a.Horizon > MaxHorizon {
		return fmt.Errorf("horizon must be between 1 and %d, got %d", MaxHorizon, a.Horizon)
	}
	switch a.Sensitivity {
	case SensitivityLow, SensitivityMedium, SensitivityHigh:
	default:
		return fmt.Errorf("unknown sensitivity %q (want Low, Medium or High)", a.Sensitivity)
	}
	if a.ZCutoffOverride < 0 {
		return fmt.Errorf("z cutoff override must be positive, got %g", a.ZCutoffOverride)
	}
	return nil
}

// ServerConfig holds the HTTP service settings.
type ServerConfig struct {
	Addr  string `yaml:"addr"`
	Debug bool   `yaml:"debug"`
}

// RedisConfig holds the optional analysis-result cache settings. An empty
// Addr disables the cache entirely.
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLMinutes int    `yaml:"ttl_minutes"`
}

// TTL returns the cache entry lifetime.
func (r RedisConfig) TTL() time.Duration {
	if r.TTLMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(r.TTLMinutes) * time.Minute
}

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig `yaml:"server"`
	Redis    RedisConfig  `yaml:"redis"`
	Analysis Analysis     `yaml:"analysis"`
}

// DefaultAnalysis returns the analysis knobs with their documented defaults.
func DefaultAnalysis() Analysis {
	return Analysis{
		Sensitivity:          SensitivityMedium,
		Horizon:              DefaultHorizon,
		EfficiencyTarget:     DefaultEfficiencyTarget,
		DegradationAlertPct:  DefaultDegradationAlertPct,
		AnomalyRatioAlertPct: DefaultAnomalyRatioAlertPct,
		TempCorrThreshold:    DefaultTempCorrThreshold,
		ForecastSpikeRatio:   DefaultForecastSpikeRatio,
		Contamination:        DefaultContamination,
		ForestSeed:           DefaultForestSeed,
		ForestTrees:          DefaultForestTrees,
		ForestSample:         DefaultForestSample,
	}
}

// Load reads a YAML config file, falling back to defaults for anything unset.
// An empty path returns defaults with environment overrides applied.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Server:   ServerConfig{Addr: ":8080"},
		Redis:    RedisConfig{TTLMinutes: 15},
		Analysis: DefaultAnalysis(),
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvironment()

	if err := cfg.Analysis.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis settings: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnvironment() {
	c.Server.Addr = getEnv("HVACSIGHT_ADDR", c.Server.Addr)
	if v := os.Getenv("HVACSIGHT_DEBUG"); v != "" {
		c.Server.Debug = strings.EqualFold(v, "true") || v == "1"
	}
	c.Redis.Addr = getEnv("HVACSIGHT_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("HVACSIGHT_REDIS_PASSWORD", c.Redis.Password)
	if v := os.Getenv("HVACSIGHT_REDIS_DB"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = parsed
		}
	}
	if v := os.Getenv("HVACSIGHT_SENSITIVITY"); v != "" {
		c.Analysis.Sensitivity = Sensitivity(v)
	}
	if v := os.Getenv("HVACSIGHT_HORIZON"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			c.Analysis.Horizon = parsed
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
