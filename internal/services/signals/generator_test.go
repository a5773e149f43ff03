package signals

import (
	"math"
	"testing"
	"time"

	"econquant/internal/domain/models"
	"econquant/internal/services/indicators"
)

func day(i int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func points(kind models.IndicatorKind, vals ...float64) []models.TechnicalIndicator {
	out := make([]models.TechnicalIndicator, len(vals))
	for i, v := range vals {
		out[i] = models.TechnicalIndicator{
			SeriesID: "hibor_on", Date: day(i), Kind: kind, Window: 5, Value: v, Valid: true,
		}
	}
	return out
}

func testParams(t *testing.T) models.ParameterSet {
	t.Helper()
	p, err := models.NewParameterSet(models.ParameterSet{
		IndicatorName: "hibor_on",
		ZScoreBuy:     -1.5, ZScoreSell: 1.5,
		RSIBuy: 30, RSISell: 70,
		SMAFast: 5, SMASlow: 20,
	})
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	return p
}

func TestFromZScoreThresholds(t *testing.T) {
	g := NewGenerator(nil)
	sigs := g.FromZScore(points(models.IndicatorZScore, -1.6, 0, 1.8, -1.5, 1.5), testParams(t))

	want := []models.SignalAction{
		models.ActionBuy, models.ActionHold, models.ActionSell,
		models.ActionBuy,  // boundary is inclusive for zscore
		models.ActionSell, // boundary is inclusive for zscore
	}
	for i, s := range sigs {
		if s.Action != want[i] {
			t.Fatalf("signal[%d] = %s, want %s", i, s.Action, want[i])
		}
	}
	if c := sigs[0].Confidence; math.Abs(c-0.1) > 1e-9 {
		t.Fatalf("buy confidence = %v, want 0.1", c)
	}
	if c := sigs[3].Confidence; c != 0 {
		t.Fatalf("boundary confidence = %v, want 0", c)
	}
}

func TestFromZScoreInvalidVotesHold(t *testing.T) {
	g := NewGenerator(nil)
	pts := points(models.IndicatorZScore, -3)
	pts[0].Valid = false
	sigs := g.FromZScore(pts, testParams(t))
	if sigs[0].Action != models.ActionHold {
		t.Fatalf("invalid point voted %s, want hold", sigs[0].Action)
	}
}

func TestFromRSIStrictThresholds(t *testing.T) {
	g := NewGenerator(nil)
	sigs := g.FromRSI(points(models.IndicatorRSI, 30, 29, 70, 71), testParams(t))

	want := []models.SignalAction{
		models.ActionHold, // 30 is not strictly below 30
		models.ActionBuy,
		models.ActionHold, // 70 is not strictly above 70
		models.ActionSell,
	}
	for i, s := range sigs {
		if s.Action != want[i] {
			t.Fatalf("signal[%d] = %s, want %s", i, s.Action, want[i])
		}
	}
	if c := sigs[1].Confidence; math.Abs(c-0.1) > 1e-9 {
		t.Fatalf("confidence = %v, want 0.1", c)
	}
}

func TestConfidenceClamped(t *testing.T) {
	g := NewGenerator(nil)
	sigs := g.FromRSI(points(models.IndicatorRSI, 2), testParams(t))
	if sigs[0].Confidence != 1 {
		t.Fatalf("confidence = %v, want clamped 1.0", sigs[0].Confidence)
	}
}

func TestFromSMACross(t *testing.T) {
	g := NewGenerator(nil)
	fast := points(models.IndicatorSMAFast, 9, 11, 12, 9.5)
	slow := points(models.IndicatorSMASlow, 10, 10, 10, 10)
	sigs := g.FromSMACross(fast, slow, testParams(t))

	want := []models.SignalAction{
		models.ActionHold, // no previous pair
		models.ActionBuy,  // 9<=10 then 11>10
		models.ActionHold, // still above, no new cross
		models.ActionSell, // 12>=10 then 9.5<10
	}
	if len(sigs) != len(want) {
		t.Fatalf("got %d signals, want %d", len(sigs), len(want))
	}
	for i, s := range sigs {
		if s.Action != want[i] {
			t.Fatalf("signal[%d] = %s, want %s", i, s.Action, want[i])
		}
	}
	if sigs[1].Confidence <= 0 || sigs[1].Confidence > 1 {
		t.Fatalf("cross confidence out of range: %v", sigs[1].Confidence)
	}
}

func TestFromSMACrossSkipsUnalignedDates(t *testing.T) {
	g := NewGenerator(nil)
	fast := points(models.IndicatorSMAFast, 9, 11)
	slow := points(models.IndicatorSMASlow, 10, 10)
	slow[0].Date = day(50) // no overlap for the first fast point
	sigs := g.FromSMACross(fast, slow, testParams(t))
	if len(sigs) != 1 {
		t.Fatalf("expected 1 aligned signal, got %d", len(sigs))
	}
}

// A 30-day series that is quiet except for one sharp dip and one later sharp
// rally must produce exactly one Buy and then one Sell through the z-score
// rule with window 5 and thresholds of one sigma.
func TestZScoreSignalsSingleDipAndRally(t *testing.T) {
	vals := []float64{
		10, 10, 10, 10, 10, 10, 10, 10, 10, 10,
		10, 9, 9.6, 9.8, 9.9, 10, 10, 10, 10, 10,
		10, 11, 10.4, 10.2, 10.1, 10, 10, 10, 10, 10,
	}
	records := make([]models.RawIndicatorRecord, len(vals))
	for i, v := range vals {
		records[i] = models.RawIndicatorRecord{
			SeriesID: "visitors", Date: day(i), Value: v, Quality: models.QualityGood,
		}
	}

	calc := indicators.NewCalculator(nil)
	series, err := calc.ZScore(records, 5)
	if err != nil {
		t.Fatalf("zscore: %v", err)
	}

	params, err := models.NewParameterSet(models.ParameterSet{
		IndicatorName: "visitors",
		ZScoreBuy:     -1.0, ZScoreSell: 1.0,
		RSIBuy: 30, RSISell: 70,
		SMAFast: 5, SMASlow: 20,
	})
	if err != nil {
		t.Fatalf("params: %v", err)
	}

	sigs := NewGenerator(nil).FromZScore(series, params)

	var buys, sells []time.Time
	for _, s := range sigs {
		switch s.Action {
		case models.ActionBuy:
			buys = append(buys, s.Date)
		case models.ActionSell:
			sells = append(sells, s.Date)
		}
	}
	if len(buys) != 1 || len(sells) != 1 {
		t.Fatalf("expected exactly one buy and one sell, got %d buys %d sells", len(buys), len(sells))
	}
	if !buys[0].Before(sells[0]) {
		t.Fatalf("buy at %v should precede sell at %v", buys[0], sells[0])
	}
	if !buys[0].Equal(day(11)) {
		t.Fatalf("buy on %v, want the dip day %v", buys[0], day(11))
	}
	if !sells[0].Equal(day(21)) {
		t.Fatalf("sell on %v, want the rally day %v", sells[0], day(21))
	}
}
