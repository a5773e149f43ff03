package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/google/uuid"

	"econquant/internal/domain/models"
	"econquant/internal/services/backtest"
	"econquant/internal/services/indicators"
	"econquant/internal/services/optimizer"
	"econquant/internal/services/signals"
	"econquant/internal/services/validation"
	"econquant/pkg/logger"
	"econquant/pkg/metrics"
)

// Settings bundles the per-component configuration the pipeline runs with.
// Zero fields are filled with the documented defaults at construction.
type Settings struct {
	Validation   models.ValidationConfig   `yaml:"validation"`
	Calc         models.CalcConfig         `yaml:"calc"`
	Signal       models.SignalConfig       `yaml:"signal"`
	Backtest     models.BacktestConfig     `yaml:"backtest"`
	Optimization models.OptimizationConfig `yaml:"optimization"`
}

// DefaultSettings returns the documented defaults for every component.
func DefaultSettings() Settings {
	var s Settings
	normalize(&s)
	return s
}

func normalize(s *Settings) {
	if err := defaults.Set(s); err != nil {
		panic(err) // static tags, cannot fail at runtime
	}
	if s.Optimization.Grid.TotalCombinations() == 0 {
		s.Optimization.Grid = models.DefaultGridConfig()
	}
}

// Pipeline is the in-process API over the whole core: it wires the record
// validator, indicator calculator, signal generator/combiner, backtest
// engine, and parameter optimizer behind four operations. Construct once and
// reuse; every operation is an independent run with no shared mutable state.
type Pipeline struct {
	log      *logger.Logger
	rec      *metrics.Recorder
	settings Settings

	validator *validation.Validator
	calc      *indicators.Calculator
	gen       *signals.Generator
	comb      *signals.Combiner
	engine    *backtest.Engine
	opt       *optimizer.Optimizer
}

func NewPipeline(s Settings, log *logger.Logger, rec *metrics.Recorder) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	normalize(&s)
	return &Pipeline{
		log:       log,
		rec:       rec,
		settings:  s,
		validator: validation.NewValidator(s.Validation, log),
		calc:      indicators.NewCalculator(log),
		gen:       signals.NewGenerator(log),
		comb:      signals.NewCombiner(log),
		engine:    backtest.NewEngine(log),
		opt: optimizer.NewOptimizer(log,
			optimizer.WithCalcConfig(s.Calc),
			optimizer.WithSignalConfig(s.Signal),
			optimizer.WithBacktestConfig(s.Backtest),
			optimizer.WithMetrics(rec)),
	}
}

// ValidateRecords runs the validator, optionally repairing gaps when repair
// names a method. An empty repair leaves values untouched. The report comes
// back even when the quality score is poor; judging it against a floor is
// the caller's decision.
func (p *Pipeline) ValidateRecords(ctx context.Context, records []models.RawIndicatorRecord, repair models.RepairMethod) (*models.ValidationReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	var report *models.ValidationReport
	var err error
	if repair == "" {
		report, err = p.validator.Validate(records)
	} else {
		report, err = p.validator.ValidateAndRepair(records, repair)
	}
	if err != nil {
		p.rec.RecordError("validation")
		return nil, err
	}

	p.rec.RecordDataQuality(seriesLabel(report.Records), report.QualityScore)
	p.rec.RecordDuration("validate", time.Since(start).Seconds())
	return report, nil
}

// AnalyzeSeries validates one series and derives its indicators and combined
// signal stream under the given parameters. No prices are involved, so the
// best-performer combine strategy has no performance history here and acts
// as majority vote throughout.
func (p *Pipeline) AnalyzeSeries(ctx context.Context, records []models.RawIndicatorRecord, params models.ParameterSet) (*models.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := p.analyze(records, params, nil)
	if err != nil {
		return nil, err
	}
	p.rec.RecordDuration("analyze", time.Since(start).Seconds())
	p.log.Info("analysis complete",
		logger.String("series", res.SeriesID),
		logger.String("strategy", res.Strategy.String()),
		logger.Int("signals", len(res.Signals)))
	return res, nil
}

// RunBacktest validates, analyzes, and replays one series' combined signals
// against the price data.
func (p *Pipeline) RunBacktest(ctx context.Context, records []models.RawIndicatorRecord, prices []models.OHLCV, params models.ParameterSet) (*models.BacktestResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	analysis, err := p.analyze(records, params, prices)
	if err != nil {
		return nil, err
	}
	res, err := p.engine.Run(analysis.Signals, prices, p.settings.Backtest)
	if err != nil {
		p.rec.RecordError("backtest")
		return nil, err
	}
	res.SeriesID = analysis.SeriesID
	res.Params = &analysis.Params

	p.rec.RecordDuration("backtest", time.Since(start).Seconds())
	p.log.Info("backtest complete",
		logger.String("series", res.SeriesID),
		logger.String("symbol", res.Symbol),
		logger.Int("trades", res.TradeCount),
		logger.Float64("total_return", res.TotalReturn),
		logger.Float64("sharpe", res.SharpeRatio))
	return res, nil
}

// RunOptimization validates one series and sweeps the configured parameter
// grid against the price data. Cancellation and the configured timeout are
// honored at the optimizer's dispatch boundary.
func (p *Pipeline) RunOptimization(ctx context.Context, records []models.RawIndicatorRecord, prices []models.OHLCV) (*models.OptimizationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	report, err := p.validateGated(records)
	if err != nil {
		return nil, err
	}
	if _, err := singleSeries(report.Records); err != nil {
		return nil, err
	}
	return p.opt.Optimize(ctx, report.Records, prices, p.settings.Optimization)
}

// analyze is the shared validate -> calculate -> generate -> combine path.
func (p *Pipeline) analyze(records []models.RawIndicatorRecord, params models.ParameterSet, prices []models.OHLCV) (*models.AnalysisResult, error) {
	params, err := models.NewParameterSet(params)
	if err != nil {
		return nil, err
	}
	report, err := p.validateGated(records)
	if err != nil {
		return nil, err
	}
	seriesID, err := singleSeries(report.Records)
	if err != nil {
		return nil, err
	}

	set, err := p.calc.All(report.Records, p.settings.Calc, params.SMAFast, params.SMASlow)
	if err != nil {
		return nil, err
	}
	streams := p.gen.Generate(set, params)
	combined, err := p.comb.Combine(p.settings.Signal.Strategy, streams, prices)
	if err != nil {
		return nil, err
	}

	return &models.AnalysisResult{
		RunID:      uuid.NewString(),
		SeriesID:   seriesID,
		Strategy:   p.settings.Signal.Strategy,
		Params:     params,
		Report:     report,
		Indicators: set,
		Signals:    combined,
	}, nil
}

// validateGated validates and enforces the configured quality floor.
func (p *Pipeline) validateGated(records []models.RawIndicatorRecord) (*models.ValidationReport, error) {
	report, err := p.validator.Validate(records)
	if err != nil {
		p.rec.RecordError("validation")
		return nil, err
	}
	p.rec.RecordDataQuality(seriesLabel(report.Records), report.QualityScore)
	if !report.Passed(p.settings.Validation.MinQualityScore) {
		p.rec.RecordError("quality_gate")
		return nil, &models.DataQualityError{
			SeriesID: seriesLabel(report.Records),
			Score:    report.QualityScore,
			Min:      p.settings.Validation.MinQualityScore,
		}
	}
	return report, nil
}

// singleSeries returns the one series identifier the records carry, or an
// error when the input mixes series.
func singleSeries(records []models.RawIndicatorRecord) (string, error) {
	if len(records) == 0 {
		return "", &models.InsufficientDataError{Op: "analyze", Needed: 1, Have: 0}
	}
	id := records[0].SeriesID
	for _, r := range records[1:] {
		if r.SeriesID != id {
			return "", fmt.Errorf("expected a single series, got both %q and %q", id, r.SeriesID)
		}
	}
	return id, nil
}

// seriesLabel names the record set for metrics: the single series id, or
// "multi" for mixed inputs.
func seriesLabel(records []models.RawIndicatorRecord) string {
	if len(records) == 0 {
		return "none"
	}
	id := records[0].SeriesID
	for _, r := range records[1:] {
		if r.SeriesID != id {
			return "multi"
		}
	}
	return id
}
