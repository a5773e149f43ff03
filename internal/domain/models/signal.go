package models

import "time"

// SignalAction is the trading decision for one date.
type SignalAction string

const (
	ActionBuy  SignalAction = "buy"
	ActionSell SignalAction = "sell"
	ActionHold SignalAction = "hold"
)

func (a SignalAction) String() string { return string(a) }

func (a SignalAction) IsValid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionHold:
		return true
	default:
		return false
	}
}

// TradingSignal is the generator/combiner output for one (series, date).
// Confidence is always within [0,1]. Contributors lists the indicator kinds
// behind the decision; Rationale is a short explanation for reports.
// At most one combined signal exists per series per date.
type TradingSignal struct {
	SeriesID     string       `json:"series_id"`
	Date         time.Time    `json:"date"`
	Action       SignalAction `json:"action"`
	Confidence   float64      `json:"confidence"`
	Contributors []string     `json:"contributors,omitempty"`
	Rationale    string       `json:"rationale,omitempty"`
}

// CombineStrategy selects how per-indicator signals merge into one decision.
type CombineStrategy string

const (
	CombineMajorityVote  CombineStrategy = "majority_vote"
	CombineConsensus     CombineStrategy = "consensus"
	CombineWeighted      CombineStrategy = "weighted"
	CombineBestPerformer CombineStrategy = "best_performer"
)

func (s CombineStrategy) String() string { return string(s) }

func (s CombineStrategy) IsValid() bool {
	switch s {
	case CombineMajorityVote, CombineConsensus, CombineWeighted, CombineBestPerformer:
		return true
	default:
		return false
	}
}
