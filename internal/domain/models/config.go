package models

import (
	"fmt"
	"math"
	"time"

	"github.com/creasty/defaults"
)

// Metric selects the optimizer's primary ranking key.
type Metric string

const (
	MetricSharpe      Metric = "sharpe"
	MetricTotalReturn Metric = "total_return"
	MetricMaxDrawdown Metric = "max_drawdown"
)

func (m Metric) String() string { return string(m) }

func (m Metric) IsValid() bool {
	switch m {
	case MetricSharpe, MetricTotalReturn, MetricMaxDrawdown:
		return true
	default:
		return false
	}
}

// HigherIsBetter reports the optimization direction. Drawdown is stored as a
// positive decline fraction, so smaller is better.
func (m Metric) HigherIsBetter() bool { return m != MetricMaxDrawdown }

// CalcConfig fixes the windows for the oscillator series. SMA windows come
// from the ParameterSet, not from here.
type CalcConfig struct {
	ZScoreWindow int `yaml:"zscore_window" json:"zscore_window" default:"20" validate:"gte=2"`
	RSIWindow    int `yaml:"rsi_window" json:"rsi_window" default:"14" validate:"gte=1"`
}

// ValidationConfig tunes the record validator.
type ValidationConfig struct {
	// OutlierThreshold is the |z| above which a value is flagged as an
	// outlier (warning, record stays usable).
	OutlierThreshold float64 `yaml:"outlier_threshold" json:"outlier_threshold" default:"3.0" validate:"gt=0"`
	// MinQualityScore is the data_quality_score below which callers should
	// treat validation as failed.
	MinQualityScore float64 `yaml:"min_quality_score" json:"min_quality_score" default:"0.5" validate:"gte=0,lte=1"`
}

// SignalConfig selects combination behavior for the single-run path.
type SignalConfig struct {
	Strategy CombineStrategy `yaml:"strategy" json:"strategy" default:"majority_vote" validate:"oneof=majority_vote consensus weighted best_performer"`
}

// BacktestConfig is the simulation surface consumed from the caller.
type BacktestConfig struct {
	InitialCapital    float64 `yaml:"initial_capital" json:"initial_capital" default:"100000" validate:"gt=0"`
	CommissionRate    float64 `yaml:"commission_rate" json:"commission_rate" default:"0.001" validate:"gte=0,lt=1"`
	Slippage          float64 `yaml:"slippage" json:"slippage" default:"0.0005" validate:"gte=0,lt=1"`
	RiskFreeRate      float64 `yaml:"risk_free_rate" json:"risk_free_rate" default:"0.02" validate:"gte=0"`
	PositionSizing    float64 `yaml:"position_sizing" json:"position_sizing" default:"1.0" validate:"gt=0,lte=1"`
	AllowShortSelling bool    `yaml:"allow_short_selling" json:"allow_short_selling"`
}

// Range is an inclusive numeric sweep: min, min+step, ... while <= max.
type Range struct {
	Min  float64 `yaml:"min" json:"min"`
	Max  float64 `yaml:"max" json:"max"`
	Step float64 `yaml:"step" json:"step"`
}

// Count returns how many grid points the range enumerates.
func (r Range) Count() int {
	if r.Step <= 0 || r.Max < r.Min {
		return 0
	}
	// Small epsilon so 1.0..2.0 step 0.5 counts 3, not 2, despite float error.
	return int(math.Floor((r.Max-r.Min)/r.Step+1e-9)) + 1
}

// Value returns the i-th grid point.
func (r Range) Value(i int) float64 { return r.Min + float64(i)*r.Step }

// IntRange is an inclusive integer sweep.
type IntRange struct {
	Min  int `yaml:"min" json:"min"`
	Max  int `yaml:"max" json:"max"`
	Step int `yaml:"step" json:"step"`
}

func (r IntRange) Count() int {
	if r.Step <= 0 || r.Max < r.Min {
		return 0
	}
	return (r.Max-r.Min)/r.Step + 1
}

func (r IntRange) Value(i int) int { return r.Min + i*r.Step }

// GridConfig is the six-dimension search space.
type GridConfig struct {
	ZScoreBuy  Range    `yaml:"zscore_buy" json:"zscore_buy"`
	ZScoreSell Range    `yaml:"zscore_sell" json:"zscore_sell"`
	RSIBuy     Range    `yaml:"rsi_buy" json:"rsi_buy"`
	RSISell    Range    `yaml:"rsi_sell" json:"rsi_sell"`
	SMAFast    IntRange `yaml:"sma_fast" json:"sma_fast"`
	SMASlow    IntRange `yaml:"sma_slow" json:"sma_slow"`
}

// TotalCombinations is the full product before ordering validation.
func (g GridConfig) TotalCombinations() int {
	return g.ZScoreBuy.Count() * g.ZScoreSell.Count() * g.RSIBuy.Count() *
		g.RSISell.Count() * g.SMAFast.Count() * g.SMASlow.Count()
}

// OptimizationConfig is the search surface consumed from the caller.
type OptimizationConfig struct {
	MaxCombinations int           `yaml:"max_combinations" json:"max_combinations" default:"100000" validate:"gt=0"`
	MaxWorkers      int           `yaml:"max_workers" json:"max_workers" default:"8" validate:"gte=1,lte=256"`
	Timeout         time.Duration `yaml:"timeout" json:"timeout" default:"3600s"`
	MinTrades       int           `yaml:"min_trades" json:"min_trades" default:"10" validate:"gte=0"`
	PrimaryMetric   Metric        `yaml:"primary_metric" json:"primary_metric" default:"sharpe" validate:"oneof=sharpe total_return max_drawdown"`
	Grid            GridConfig    `yaml:"grid" json:"grid"`
}

// DefaultGridConfig is the reference search space: 3*3*4*4*5*3 = 2,160
// combinations, every one of them satisfying the ordering invariants.
func DefaultGridConfig() GridConfig {
	return GridConfig{
		ZScoreBuy:  Range{Min: -2.0, Max: -1.0, Step: 0.5},
		ZScoreSell: Range{Min: 1.0, Max: 2.0, Step: 0.5},
		RSIBuy:     Range{Min: 20, Max: 35, Step: 5},
		RSISell:    Range{Min: 65, Max: 80, Step: 5},
		SMAFast:    IntRange{Min: 5, Max: 25, Step: 5},
		SMASlow:    IntRange{Min: 50, Max: 150, Step: 50},
	}
}

func DefaultCalcConfig() CalcConfig {
	var c CalcConfig
	mustDefaults(&c)
	return c
}

func DefaultValidationConfig() ValidationConfig {
	var c ValidationConfig
	mustDefaults(&c)
	return c
}

func DefaultSignalConfig() SignalConfig {
	var c SignalConfig
	mustDefaults(&c)
	return c
}

func DefaultBacktestConfig() BacktestConfig {
	var c BacktestConfig
	mustDefaults(&c)
	return c
}

func DefaultOptimizationConfig() OptimizationConfig {
	var c OptimizationConfig
	mustDefaults(&c)
	c.Grid = DefaultGridConfig()
	return c
}

func mustDefaults(v interface{}) {
	if err := defaults.Set(v); err != nil {
		panic(err) // static tags, cannot fail at runtime
	}
}

// Validate checks tag rules on any of the config value types.
func ValidateConfig(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Normalize fills unset fields with defaults and falls back to the reference
// grid when no grid was provided.
func (c *OptimizationConfig) Normalize() {
	mustDefaults(c)
	if c.Grid.TotalCombinations() == 0 {
		c.Grid = DefaultGridConfig()
	}
}

// Normalize fills unset fields with defaults.
func (c *BacktestConfig) Normalize() {
	mustDefaults(c)
}
