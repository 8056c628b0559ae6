package models

import "time"

// BreakDirection is the direction of the first close beyond the opening range.
type BreakDirection string

const (
	BreakUp   BreakDirection = "up"
	BreakDown BreakDirection = "down"
	BreakNone BreakDirection = "none"
)

// Resolution is the terminal state of a simulated trading day.
type Resolution string

const (
	ResolutionWin Resolution = "WIN"
	ResolutionLoss Resolution = "LOSS"
	ResolutionNoTrade Resolution = "NO_TRADE"
	// ResolutionUnresolved marks a trade still open at day end. Unresolved
	// days are excluded from expectancy statistics.
	ResolutionUnresolved Resolution = "UNRESOLVED"
)

// TradeOutcome is the result of simulating one RuleSpec over one trading day.
// Outcomes are created once and never mutated; re-simulation produces a new
// outcome record.
type TradeOutcome struct {
	Date           time.Time      `json:"date"`
	Direction      BreakDirection `json:"direction"`
	EntryPrice     float64        `json:"entry_price"`
	StopPrice      float64        `json:"stop_price"`
	TargetPrice    float64        `json:"target_price"`
	RiskPoints     float64        `json:"risk_points"`
	OutcomePoints  float64        `json:"outcome_points"`
	Resolution     Resolution     `json:"resolution"`
	RealizedR      float64        `json:"realized_r"`
	MaxAdverse     float64        `json:"max_adverse_excursion"`
	MaxFavorable   float64        `json:"max_favorable_excursion"`
}

// Traded reports whether the day produced a resolved trade.
func (o TradeOutcome) Traded() bool {
	return o.Resolution == ResolutionWin || o.Resolution == ResolutionLoss
}
