package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ParameterSet is one point of the optimizer's search space: the six
// thresholds/periods a strategy candidate is built from. Immutable value
// type; construct through NewParameterSet so the ordering invariants hold:
// zscore_buy < 0 < zscore_sell, rsi_buy < rsi_sell, 0 < sma_fast < sma_slow.
type ParameterSet struct {
	ID            string  `json:"id" yaml:"-"`
	IndicatorName string  `json:"indicator_name" yaml:"indicator_name"`
	ZScoreBuy     float64 `json:"zscore_buy" yaml:"zscore_buy" default:"-1.5" validate:"lt=0"`
	ZScoreSell    float64 `json:"zscore_sell" yaml:"zscore_sell" default:"1.5" validate:"gt=0"`
	RSIBuy        float64 `json:"rsi_buy" yaml:"rsi_buy" default:"30" validate:"gte=0,ltfield=RSISell"`
	RSISell       float64 `json:"rsi_sell" yaml:"rsi_sell" default:"70" validate:"lte=100,gtfield=RSIBuy"`
	SMAFast       int     `json:"sma_fast" yaml:"sma_fast" default:"10" validate:"gt=0,ltfield=SMASlow"`
	SMASlow       int     `json:"sma_slow" yaml:"sma_slow" default:"50" validate:"gt=0,gtfield=SMAFast"`
}

// DefaultParameterSet returns the single-run thresholds used when the caller
// does not sweep the grid: z-score +-1.5, RSI 30/70, SMA 10/50.
func DefaultParameterSet() ParameterSet {
	var p ParameterSet
	mustDefaults(&p)
	p, _ = NewParameterSet(p)
	return p
}

// NewParameterSet validates p and stamps a deterministic ID derived from its
// values, so identical parameter sets share an ID across runs and workers.
func NewParameterSet(p ParameterSet) (ParameterSet, error) {
	if err := p.Validate(); err != nil {
		return ParameterSet{}, err
	}
	if p.ID == "" {
		p.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(p.IndicatorName+"|"+p.Label())).String()
	}
	return p, nil
}

// Validate re-checks the ordering invariants on an existing set.
func (p ParameterSet) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid parameter set %s: %w", p.Label(), err)
	}
	return nil
}

// Label is a compact form for logs and reports.
func (p ParameterSet) Label() string {
	return fmt.Sprintf("z[%.2f,%.2f] rsi[%.0f,%.0f] sma[%d,%d]",
		p.ZScoreBuy, p.ZScoreSell, p.RSIBuy, p.RSISell, p.SMAFast, p.SMASlow)
}
