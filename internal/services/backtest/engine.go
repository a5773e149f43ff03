package backtest

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"econquant/internal/domain/models"
	"econquant/pkg/logger"
	"econquant/pkg/util"
)

var one = decimal.NewFromInt(1)

// Engine replays a combined signal stream against a daily price series.
// Price bars are the time axis: a signal executes at the close of its own
// date, and signal dates with no bar (non-trading days) are never executed.
// A single run is deterministic and free of shared state.
type Engine struct {
	log *logger.Logger
}

func NewEngine(log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{log: log}
}

// ledger is the mutable state of one run. Cash and units stay in decimal so
// a run with no executed trades conserves capital exactly.
type ledger struct {
	cash   decimal.Decimal
	pos    *models.Position
	trades []models.Trade
}

func (e *Engine) Run(signals []models.TradingSignal, prices []models.OHLCV, cfg models.BacktestConfig) (*models.BacktestResult, error) {
	cfg.Normalize()
	if err := models.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if len(prices) == 0 {
		return nil, &models.InsufficientDataError{Op: "backtest", Needed: 1, Have: 0}
	}
	for i, b := range prices {
		if err := b.Validate(); err != nil {
			return nil, err
		}
		if i > 0 && !prices[i-1].Date.Before(b.Date) {
			return nil, fmt.Errorf("price series not strictly ascending at %s", b.Date.Format("2006-01-02"))
		}
	}
	if err := checkCoverage(signals, prices); err != nil {
		return nil, err
	}

	sigByDate := make(map[int64]models.TradingSignal, len(signals))
	for _, s := range signals {
		sigByDate[util.DayUTC(s.Date).Unix()] = s
	}

	led := &ledger{cash: decimal.NewFromFloat(cfg.InitialCapital)}
	commRate := decimal.NewFromFloat(cfg.CommissionRate)
	slip := decimal.NewFromFloat(cfg.Slippage)
	sizing := decimal.NewFromFloat(cfg.PositionSizing)

	equity := make([]models.EquityPoint, 0, len(prices))
	for _, bar := range prices {
		closeD := decimal.NewFromFloat(bar.Close)
		if s, ok := sigByDate[util.DayUTC(bar.Date).Unix()]; ok {
			switch s.Action {
			case models.ActionBuy:
				led.onBuy(bar, closeD, commRate, slip, sizing)
			case models.ActionSell:
				led.onSell(bar, closeD, commRate, slip, sizing, cfg.AllowShortSelling)
			}
		}
		equity = append(equity, models.EquityPoint{
			Date:   util.DayUTC(bar.Date),
			Equity: led.equityAt(closeD).InexactFloat64(),
		})
	}

	res := &models.BacktestResult{
		RunID:          uuid.NewString(),
		Symbol:         prices[0].Symbol,
		SeriesID:       seriesID(signals),
		From:           util.DayUTC(prices[0].Date),
		To:             util.DayUTC(prices[len(prices)-1].Date),
		InitialCapital: cfg.InitialCapital,
		Trades:         led.trades,
		TradeCount:     len(led.trades),
		EquityCurve:    equity,
	}
	fillMetrics(res, cfg.RiskFreeRate)

	e.log.Debug("backtest complete",
		logger.String("symbol", res.Symbol),
		logger.Int("bars", len(prices)),
		logger.Int("trades", res.TradeCount),
		logger.Float64("total_return", res.TotalReturn))
	return res, nil
}

// checkCoverage requires every signal date to fall inside the simulated
// price range. Signals the engine can never reach would silently skew the
// result, so they fail the run instead.
func checkCoverage(signals []models.TradingSignal, prices []models.OHLCV) error {
	if len(signals) == 0 {
		return nil
	}
	first := util.DayUTC(prices[0].Date)
	last := util.DayUTC(prices[len(prices)-1].Date)
	covered := 0
	for _, s := range signals {
		d := util.DayUTC(s.Date)
		if !d.Before(first) && !d.After(last) {
			covered++
		}
	}
	if covered < len(signals) {
		return &models.InsufficientDataError{Op: "backtest coverage", Needed: len(signals), Have: covered}
	}
	return nil
}

func seriesID(signals []models.TradingSignal) string {
	if len(signals) == 0 {
		return ""
	}
	return signals[0].SeriesID
}

// onBuy opens a long position when flat, or covers an open short. A Buy
// while already long changes nothing.
func (l *ledger) onBuy(bar models.OHLCV, closeD, commRate, slip, sizing decimal.Decimal) {
	execPrice := closeD.Mul(one.Add(slip))
	switch {
	case l.pos == nil:
		l.open(models.SideLong, bar, execPrice, commRate, sizing)
	case l.pos.Side == models.SideShort:
		l.close(bar, execPrice, commRate)
	}
}

// onSell closes an open long. When flat it opens a short only if shorting
// is enabled; otherwise it is a no-op.
func (l *ledger) onSell(bar models.OHLCV, closeD, commRate, slip, sizing decimal.Decimal, allowShort bool) {
	execPrice := closeD.Mul(one.Sub(slip))
	switch {
	case l.pos != nil && l.pos.Side == models.SideLong:
		l.close(bar, execPrice, commRate)
	case l.pos == nil && allowShort:
		l.open(models.SideShort, bar, execPrice, commRate, sizing)
	}
}

// open sizes the position from the configured cash fraction, leaving room
// for the entry commission so the ledger never goes negative.
func (l *ledger) open(side models.PositionSide, bar models.OHLCV, execPrice, commRate, sizing decimal.Decimal) {
	budget := l.cash.Mul(sizing)
	if !budget.IsPositive() {
		return
	}
	units := budget.Div(execPrice.Mul(one.Add(commRate)))
	if !units.IsPositive() {
		return
	}
	notional := units.Mul(execPrice)
	commission := notional.Mul(commRate)

	if side == models.SideLong {
		l.cash = l.cash.Sub(notional).Sub(commission)
	} else {
		l.cash = l.cash.Add(notional).Sub(commission)
	}
	l.pos = &models.Position{
		Side:     side,
		Units:    units,
		AvgCost:  execPrice,
		OpenedAt: util.DayUTC(bar.Date),
	}
}

// close settles the open position at execPrice and records the round trip.
func (l *ledger) close(bar models.OHLCV, execPrice, commRate decimal.Decimal) {
	pos := l.pos
	entryNotional := pos.Units.Mul(pos.AvgCost)
	entryCommission := entryNotional.Mul(commRate)
	exitNotional := pos.Units.Mul(execPrice)
	exitCommission := exitNotional.Mul(commRate)

	var pnl decimal.Decimal
	if pos.Side == models.SideLong {
		l.cash = l.cash.Add(exitNotional).Sub(exitCommission)
		pnl = exitNotional.Sub(exitCommission).Sub(entryNotional).Sub(entryCommission)
	} else {
		l.cash = l.cash.Sub(exitNotional).Sub(exitCommission)
		pnl = entryNotional.Sub(entryCommission).Sub(exitNotional).Sub(exitCommission)
	}

	basis := entryNotional.Add(entryCommission)
	returnPct := 0.0
	if basis.IsPositive() {
		returnPct = pnl.Div(basis).InexactFloat64()
	}

	l.trades = append(l.trades, models.Trade{
		Symbol:     bar.Symbol,
		Side:       pos.Side,
		EntryDate:  pos.OpenedAt,
		ExitDate:   util.DayUTC(bar.Date),
		EntryPrice: pos.AvgCost,
		ExitPrice:  execPrice,
		Units:      pos.Units,
		Commission: entryCommission.Add(exitCommission),
		PnL:        pnl,
		ReturnPct:  returnPct,
	})
	l.pos = nil
}

// equityAt marks the portfolio to a close price. An open short is a
// liability, so its market value subtracts.
func (l *ledger) equityAt(closeD decimal.Decimal) decimal.Decimal {
	if l.pos == nil {
		return l.cash
	}
	value := l.pos.Units.Mul(closeD)
	if l.pos.Side == models.SideShort {
		return l.cash.Sub(value)
	}
	return l.cash.Add(value)
}
