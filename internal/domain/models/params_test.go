package models

import "testing"

func validParams() ParameterSet {
	return ParameterSet{
		IndicatorName: "hibor_on",
		ZScoreBuy:     -1.5,
		ZScoreSell:    1.5,
		RSIBuy:        30,
		RSISell:       70,
		SMAFast:       10,
		SMASlow:       50,
	}
}

func TestNewParameterSet(t *testing.T) {
	p, err := NewParameterSet(validParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == "" {
		t.Fatalf("expected id to be stamped")
	}

	again, err := NewParameterSet(validParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != again.ID {
		t.Fatalf("identical parameters produced different ids: %s vs %s", p.ID, again.ID)
	}
}

func TestNewParameterSetRejectsBadOrderings(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ParameterSet)
	}{
		{"zscore buy positive", func(p *ParameterSet) { p.ZScoreBuy = 0.5 }},
		{"zscore buy zero", func(p *ParameterSet) { p.ZScoreBuy = 0 }},
		{"zscore sell negative", func(p *ParameterSet) { p.ZScoreSell = -0.5 }},
		{"rsi buy above sell", func(p *ParameterSet) { p.RSIBuy = 80 }},
		{"rsi buy equals sell", func(p *ParameterSet) { p.RSIBuy = 70 }},
		{"sma fast above slow", func(p *ParameterSet) { p.SMAFast = 60 }},
		{"sma fast equals slow", func(p *ParameterSet) { p.SMAFast = 50 }},
		{"sma fast zero", func(p *ParameterSet) { p.SMAFast = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validParams()
			tc.mutate(&p)
			if _, err := NewParameterSet(p); err == nil {
				t.Fatalf("expected construction to fail")
			}
		})
	}
}
