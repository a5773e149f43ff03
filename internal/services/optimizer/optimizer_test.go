package optimizer

import (
	"context"
	"errors"
	"testing"
	"time"

	"econquant/internal/domain/models"
)

func day(i int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

// sawtoothValues is five flat days, three up/down cycles with five-day legs,
// and a flat tail. Troughs push the window-5 z-score to about -1.26 and
// Wilder RSI under 30; peaks mirror both. The dips never reach a z-score of
// -6, which is below the algebraic floor for a five-point window.
func sawtoothValues() []float64 {
	vals := []float64{100, 100, 100, 100, 100}
	for c := 0; c < 3; c++ {
		vals = append(vals, 103, 106, 109, 112, 115)
		vals = append(vals, 112, 109, 106, 103, 100)
	}
	return append(vals, 100, 100, 100, 100, 100)
}

func sawtoothRecords() []models.RawIndicatorRecord {
	vals := sawtoothValues()
	out := make([]models.RawIndicatorRecord, len(vals))
	for i, v := range vals {
		out[i] = models.RawIndicatorRecord{
			SeriesID: "hibor_on", Date: day(i), Value: v, Quality: models.QualityGood,
		}
	}
	return out
}

func sawtoothPrices() []models.OHLCV {
	vals := sawtoothValues()
	out := make([]models.OHLCV, len(vals))
	for i, v := range vals {
		out[i] = models.OHLCV{
			Symbol: "HSI", Date: day(i),
			Open: v, High: v, Low: v, Close: v, Volume: 1000,
		}
	}
	return out
}

// scenarioGrid enumerates 2x2x2 = 8 combinations. Half of them use a
// zscore_buy of -6 that no five-point window can reach, so those candidates
// never open a position.
func scenarioGrid() models.GridConfig {
	return models.GridConfig{
		ZScoreBuy:  models.Range{Min: -6, Max: -1.2, Step: 4.8},
		ZScoreSell: models.Range{Min: 1.2, Max: 1.2, Step: 1},
		RSIBuy:     models.Range{Min: 30, Max: 30, Step: 1},
		RSISell:    models.Range{Min: 70, Max: 70, Step: 1},
		SMAFast:    models.IntRange{Min: 2, Max: 3, Step: 1},
		SMASlow:    models.IntRange{Min: 4, Max: 5, Step: 1},
	}
}

func scenarioConfig(workers int) models.OptimizationConfig {
	return models.OptimizationConfig{
		MaxCombinations: 100,
		MaxWorkers:      workers,
		Timeout:         time.Minute,
		MinTrades:       1,
		PrimaryMetric:   models.MetricSharpe,
		Grid:            scenarioGrid(),
	}
}

func newTestOptimizer() *Optimizer {
	return NewOptimizer(nil, WithCalcConfig(models.CalcConfig{ZScoreWindow: 5, RSIWindow: 3}))
}

func TestOptimizeFiltersStarvedCombinations(t *testing.T) {
	o := newTestOptimizer()
	res, err := o.Optimize(context.Background(), sawtoothRecords(), sawtoothPrices(), scenarioConfig(4))
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}

	if res.TotalCombinations != 8 {
		t.Fatalf("total = %d, want 8", res.TotalCombinations)
	}
	if res.SkippedInvalid != 0 || res.Failed != 0 {
		t.Fatalf("skipped=%d failed=%d, want 0/0", res.SkippedInvalid, res.Failed)
	}
	if res.Evaluated != 8 {
		t.Fatalf("evaluated = %d, want 8", res.Evaluated)
	}
	if res.FilteredLowTrades != 4 {
		t.Fatalf("filtered = %d, want the 4 unreachable-threshold combinations", res.FilteredLowTrades)
	}
	if res.ValidCombinations != 4 || len(res.Rankings) != 4 {
		t.Fatalf("valid=%d rankings=%d, want 4/4", res.ValidCombinations, len(res.Rankings))
	}

	for _, r := range res.Rankings {
		if r.Params.ZScoreBuy < -2 {
			t.Fatalf("filtered combination leaked into rankings: zscore_buy %v", r.Params.ZScoreBuy)
		}
		if r.Result.TradeCount < 1 {
			t.Fatalf("ranked combination has %d trades, below the floor", r.Result.TradeCount)
		}
		if r.Result.Params == nil || r.Result.Params.ID != r.Params.ID {
			t.Fatalf("ranked result not stamped with its parameters")
		}
	}
	if res.Best == nil || res.Best.Rank != 1 || res.Best.Params.ID != res.Rankings[0].Params.ID {
		t.Fatalf("best is not the top ranking")
	}
	for i := 1; i < len(res.Rankings); i++ {
		if res.Rankings[i].Rank != i+1 {
			t.Fatalf("rank at %d = %d", i, res.Rankings[i].Rank)
		}
		prev, cur := res.Rankings[i-1].Result.SharpeRatio, res.Rankings[i].Result.SharpeRatio
		if prev < cur {
			t.Fatalf("rankings not sorted by sharpe: %v before %v", prev, cur)
		}
	}
}

func TestOptimizeDeterministicAcrossWorkerCounts(t *testing.T) {
	o := newTestOptimizer()
	records, prices := sawtoothRecords(), sawtoothPrices()

	serial, err := o.Optimize(context.Background(), records, prices, scenarioConfig(1))
	if err != nil {
		t.Fatalf("serial optimize: %v", err)
	}
	parallel, err := o.Optimize(context.Background(), records, prices, scenarioConfig(8))
	if err != nil {
		t.Fatalf("parallel optimize: %v", err)
	}

	if len(serial.Rankings) != len(parallel.Rankings) {
		t.Fatalf("ranking sizes differ: %d vs %d", len(serial.Rankings), len(parallel.Rankings))
	}
	for i := range serial.Rankings {
		s, p := serial.Rankings[i], parallel.Rankings[i]
		if s.GridIndex != p.GridIndex {
			t.Fatalf("rank %d grid index %d vs %d", i+1, s.GridIndex, p.GridIndex)
		}
		if s.Params.ID != p.Params.ID {
			t.Fatalf("rank %d params differ: %s vs %s", i+1, s.Params.Label(), p.Params.Label())
		}
		if s.Result.SharpeRatio != p.Result.SharpeRatio || s.Result.TotalReturn != p.Result.TotalReturn {
			t.Fatalf("rank %d metrics differ between worker counts", i+1)
		}
	}
	if serial.Best.Params.ID != parallel.Best.Params.ID {
		t.Fatalf("best parameters differ: %s vs %s", serial.Best.Params.Label(), parallel.Best.Params.Label())
	}
}

func TestOptimizeTimeoutBeforeAnyEvaluation(t *testing.T) {
	o := newTestOptimizer()
	cfg := scenarioConfig(2)
	cfg.Timeout = -time.Nanosecond // expired before dispatch starts

	_, err := o.Optimize(context.Background(), sawtoothRecords(), sawtoothPrices(), cfg)
	var te *models.TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if te.Evaluated != 0 {
		t.Fatalf("evaluated = %d, want 0", te.Evaluated)
	}
}

func TestOptimizeCanceledContext(t *testing.T) {
	o := newTestOptimizer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Optimize(ctx, sawtoothRecords(), sawtoothPrices(), scenarioConfig(2))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOptimizeNoQualifyingResults(t *testing.T) {
	o := newTestOptimizer()
	cfg := scenarioConfig(2)
	cfg.MinTrades = 100

	_, err := o.Optimize(context.Background(), sawtoothRecords(), sawtoothPrices(), cfg)
	if !errors.Is(err, models.ErrNoQualifyingResults) {
		t.Fatalf("expected ErrNoQualifyingResults, got %v", err)
	}
}

func TestOptimizeRejectsOversizedGrid(t *testing.T) {
	o := newTestOptimizer()
	cfg := scenarioConfig(2)
	cfg.MaxCombinations = 4

	_, err := o.Optimize(context.Background(), sawtoothRecords(), sawtoothPrices(), cfg)
	if err == nil {
		t.Fatalf("expected error for grid above max_combinations")
	}
}

func TestOptimizeEmptyInputs(t *testing.T) {
	o := newTestOptimizer()
	var ide *models.InsufficientDataError

	_, err := o.Optimize(context.Background(), nil, sawtoothPrices(), scenarioConfig(2))
	if !errors.As(err, &ide) {
		t.Fatalf("expected InsufficientDataError for empty records, got %v", err)
	}
	_, err = o.Optimize(context.Background(), sawtoothRecords(), nil, scenarioConfig(2))
	if !errors.As(err, &ide) {
		t.Fatalf("expected InsufficientDataError for empty prices, got %v", err)
	}
}
