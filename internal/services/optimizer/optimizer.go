package optimizer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"econquant/internal/domain/models"
	"econquant/internal/services/backtest"
	"econquant/internal/services/indicators"
	"econquant/internal/services/signals"
	"econquant/pkg/cache"
	"econquant/pkg/logger"
	"econquant/pkg/metrics"
)

const progressEvery = 2 * time.Second

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithCalcConfig sets the indicator windows used for the shared series.
func WithCalcConfig(cfg models.CalcConfig) Option {
	return func(o *Optimizer) {
		o.calcCfg = cfg
	}
}

// WithBacktestConfig sets the simulation settings applied to every candidate.
func WithBacktestConfig(cfg models.BacktestConfig) Option {
	return func(o *Optimizer) {
		o.btCfg = cfg
	}
}

// WithSignalConfig sets the combine strategy applied to every candidate.
func WithSignalConfig(cfg models.SignalConfig) Option {
	return func(o *Optimizer) {
		o.sigCfg = cfg
	}
}

// WithMetrics attaches a recorder for combination and score counters.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(o *Optimizer) {
		o.rec = rec
	}
}

// Optimizer sweeps the parameter grid with a bounded worker pool and ranks
// the surviving candidates deterministically. Each call to Optimize is an
// independent run; nothing is shared between calls.
type Optimizer struct {
	log     *logger.Logger
	rec     *metrics.Recorder
	calcCfg models.CalcConfig
	btCfg   models.BacktestConfig
	sigCfg  models.SignalConfig

	calc   *indicators.Calculator
	gen    *signals.Generator
	comb   *signals.Combiner
	engine *backtest.Engine
}

func NewOptimizer(log *logger.Logger, opts ...Option) *Optimizer {
	if log == nil {
		log = logger.Nop()
	}
	o := &Optimizer{
		log:     log,
		calcCfg: models.DefaultCalcConfig(),
		btCfg:   models.DefaultBacktestConfig(),
		sigCfg:  models.DefaultSignalConfig(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.calc = indicators.NewCalculator(log)
	o.gen = signals.NewGenerator(log)
	o.comb = signals.NewCombiner(log)
	o.engine = backtest.NewEngine(log)
	return o
}

// sharedSeries is the read-only data every worker evaluates against. It is
// fully built before the pool starts; workers only read.
type sharedSeries struct {
	seriesID string
	zscore   []models.TechnicalIndicator
	rsi      []models.TechnicalIndicator
	smaFast  *cache.Memo[[]models.TechnicalIndicator]
	smaSlow  *cache.Memo[[]models.TechnicalIndicator]
}

type evaluation struct {
	point  gridPoint
	result *models.BacktestResult
	err    error
}

// Optimize evaluates every valid grid combination of cfg against the record
// and price series and returns the deterministic ranking. The timeout is
// cooperative: expiry stops dispatching new candidates, in-flight ones
// finish, and the partial ranking comes back flagged TimedOut.
func (o *Optimizer) Optimize(ctx context.Context, records []models.RawIndicatorRecord, prices []models.OHLCV, cfg models.OptimizationConfig) (*models.OptimizationResult, error) {
	start := time.Now()
	cfg.Normalize()
	if err := models.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &models.InsufficientDataError{Op: "optimize", Needed: 1, Have: 0}
	}
	if len(prices) == 0 {
		return nil, &models.InsufficientDataError{Op: "optimize prices", Needed: 1, Have: 0}
	}

	total := cfg.Grid.TotalCombinations()
	if total > cfg.MaxCombinations {
		return nil, fmt.Errorf("grid enumerates %d combinations, above the limit of %d", total, cfg.MaxCombinations)
	}

	seriesID := records[0].SeriesID
	points, skipped := enumerateGrid(cfg.Grid, seriesID)
	o.log.Info("optimization starting",
		logger.String("series", seriesID),
		logger.Int("combinations", total),
		logger.Int("queued", len(points)),
		logger.Int("workers", cfg.MaxWorkers))

	shared, err := o.precompute(records, cfg.Grid, seriesID)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	cands := make(chan gridPoint, cfg.MaxWorkers)
	go func() {
		defer close(cands)
		for _, gp := range points {
			if runCtx.Err() != nil {
				return
			}
			select {
			case cands <- gp:
			case <-runCtx.Done():
				return
			}
		}
	}()

	workers := cfg.MaxWorkers
	if workers > len(points) && len(points) > 0 {
		workers = len(points)
	}
	results := make(chan evaluation, cfg.MaxWorkers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for gp := range cands {
				results <- o.evaluate(gp, shared, prices)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	limiter := rate.NewLimiter(rate.Every(progressEvery), 1)
	var retained []evaluation
	evaluated, failed, filtered := 0, 0, 0
	for ev := range results {
		evaluated++
		switch {
		case ev.err != nil:
			failed++
			o.rec.RecordCombination("failed")
			o.rec.RecordError("evaluation")
			o.log.Debug("combination failed",
				logger.Int("grid_index", ev.point.index),
				logger.Error(ev.err))
		case ev.result.TradeCount < cfg.MinTrades:
			filtered++
			o.rec.RecordCombination("filtered")
		default:
			retained = append(retained, ev)
			o.rec.RecordCombination("retained")
		}
		if limiter.Allow() {
			o.log.Info("optimization progress",
				logger.Int("evaluated", evaluated),
				logger.Int("queued", len(points)))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timedOut := errors.Is(runCtx.Err(), context.DeadlineExceeded)
	elapsed := time.Since(start)
	if timedOut && evaluated == 0 {
		return nil, &models.TimeoutError{Elapsed: elapsed, Evaluated: 0}
	}
	if len(retained) == 0 {
		return nil, models.ErrNoQualifyingResults
	}

	sort.Slice(retained, func(i, j int) bool {
		return lessRanked(retained[i], retained[j], cfg.PrimaryMetric)
	})
	rankings := make([]models.RankedResult, len(retained))
	for i, ev := range retained {
		p := ev.point.params
		ev.result.Params = &p
		rankings[i] = models.RankedResult{
			Rank:      i + 1,
			GridIndex: ev.point.index,
			Params:    p,
			Result:    ev.result,
		}
	}

	res := &models.OptimizationResult{
		RunID:             uuid.NewString(),
		SeriesID:          seriesID,
		Symbol:            prices[0].Symbol,
		Metric:            cfg.PrimaryMetric,
		Best:              &rankings[0],
		Rankings:          rankings,
		TotalCombinations: total,
		ValidCombinations: len(retained),
		SkippedInvalid:    skipped,
		FilteredLowTrades: filtered,
		Failed:            failed,
		Evaluated:         evaluated,
		Duration:          elapsed,
		TimedOut:          timedOut,
	}

	o.rec.RecordBestScore(cfg.PrimaryMetric.String(), rankings[0].Result.MetricValue(cfg.PrimaryMetric))
	o.rec.RecordDuration("optimize", elapsed.Seconds())
	o.log.Info("optimization complete",
		logger.String("series", seriesID),
		logger.Int("evaluated", evaluated),
		logger.Int("retained", len(retained)),
		logger.Int("filtered", filtered),
		logger.Int("failed", failed),
		logger.Bool("timed_out", timedOut),
		logger.Duration("elapsed", elapsed),
		logger.String("best", rankings[0].Params.Label()))
	return res, nil
}

// precompute builds every series the grid can reference. The z-score and
// RSI series are independent of the swept parameters; SMA series exist per
// distinct window. A window too large for the data fails only the
// candidates that reference it, recorded in the memo as an absent entry.
func (o *Optimizer) precompute(records []models.RawIndicatorRecord, grid models.GridConfig, seriesID string) (*sharedSeries, error) {
	zs, err := o.calc.ZScore(records, o.calcCfg.ZScoreWindow)
	if err != nil {
		return nil, fmt.Errorf("zscore precompute: %w", err)
	}
	rsi, err := o.calc.RSI(records, o.calcCfg.RSIWindow)
	if err != nil {
		return nil, fmt.Errorf("rsi precompute: %w", err)
	}

	sh := &sharedSeries{
		seriesID: seriesID,
		zscore:   zs,
		rsi:      rsi,
		smaFast:  cache.NewMemo[[]models.TechnicalIndicator](),
		smaSlow:  cache.NewMemo[[]models.TechnicalIndicator](),
	}
	fast, slow := smaWindows(grid)
	for _, w := range fast {
		series, err := o.calc.SMA(records, w, models.IndicatorSMAFast)
		if err != nil {
			o.log.Warn("sma window unusable", logger.Int("window", w), logger.Error(err))
			continue
		}
		sh.smaFast.Set(smaKey(w), series)
	}
	for _, w := range slow {
		series, err := o.calc.SMA(records, w, models.IndicatorSMASlow)
		if err != nil {
			o.log.Warn("sma window unusable", logger.Int("window", w), logger.Error(err))
			continue
		}
		sh.smaSlow.Set(smaKey(w), series)
	}
	return sh, nil
}

func smaKey(window int) string { return strconv.Itoa(window) }

// evaluate runs one candidate end to end. Panics inside the simulation are
// contained here so one bad candidate cannot take down the pool.
func (o *Optimizer) evaluate(gp gridPoint, sh *sharedSeries, prices []models.OHLCV) (ev evaluation) {
	defer func() {
		if r := recover(); r != nil {
			ev = evaluation{point: gp, err: fmt.Errorf("candidate %s: panic: %v", gp.params.Label(), r)}
		}
	}()

	fastSeries, ok := sh.smaFast.Get(smaKey(gp.params.SMAFast))
	if !ok {
		return evaluation{point: gp, err: &models.InsufficientDataError{Op: "sma fast", Needed: gp.params.SMAFast, Have: 0}}
	}
	slowSeries, ok := sh.smaSlow.Get(smaKey(gp.params.SMASlow))
	if !ok {
		return evaluation{point: gp, err: &models.InsufficientDataError{Op: "sma slow", Needed: gp.params.SMASlow, Have: 0}}
	}

	set := &models.IndicatorSet{
		SeriesID: sh.seriesID,
		ZScore:   sh.zscore,
		RSI:      sh.rsi,
		SMAFast:  fastSeries,
		SMASlow:  slowSeries,
	}
	streams := o.gen.Generate(set, gp.params)
	combined, err := o.comb.Combine(o.sigCfg.Strategy, streams, prices)
	if err != nil {
		return evaluation{point: gp, err: err}
	}
	res, err := o.engine.Run(combined, prices, o.btCfg)
	if err != nil {
		return evaluation{point: gp, err: err}
	}
	res.SeriesID = sh.seriesID
	return evaluation{point: gp, result: res}
}

// lessRanked orders by the primary metric in its better direction, then
// higher total return, then fewer trades, then enumeration order. The final
// key is unique, so the ranking is a total order independent of worker
// scheduling.
func lessRanked(a, b evaluation, metric models.Metric) bool {
	am, bm := a.result.MetricValue(metric), b.result.MetricValue(metric)
	if am != bm {
		if metric.HigherIsBetter() {
			return am > bm
		}
		return am < bm
	}
	if a.result.TotalReturn != b.result.TotalReturn {
		return a.result.TotalReturn > b.result.TotalReturn
	}
	if a.result.TradeCount != b.result.TradeCount {
		return a.result.TradeCount < b.result.TradeCount
	}
	return a.point.index < b.point.index
}
