package models

// ValidateRequest is the HTTP/Kafka payload asking for a rule validation run.
type ValidateRequest struct {
	RuleID      string  `json:"rule_id" validate:"required"`
	Instrument  string  `json:"instrument" validate:"required"`
	WindowLabel string  `json:"window" validate:"required,len=4,numeric"`
	WindowMins  int     `json:"window_minutes" default:"15" validate:"gte=1,lte=120"`
	Bias        string  `json:"bias" default:"both" validate:"oneof=long_only short_only both"`
	RewardRisk  float64 `json:"reward_risk" default:"2" validate:"gt=0,lte=10"`
	StopMode    string  `json:"stop_mode" default:"opposite_edge" validate:"oneof=opposite_edge midpoint"`
	EntryMode   string  `json:"entry_mode" default:"first_close" validate:"oneof=first_close second_close resting_limit"`
	MinRangeFrac float64 `json:"min_range_frac" validate:"gte=0"`
	MaxRangeFrac float64 `json:"max_range_frac" validate:"gte=0"`
	RangeRef     float64 `json:"range_ref" validate:"gte=0"`
	From         string  `json:"from" validate:"required"`
	To           string  `json:"to" validate:"required"`
	// Explainability is the externally supplied human judgment.
	Explainability string `json:"explainability" default:"UNCLEAR" validate:"oneof=YES NO UNCLEAR"`
}

// ValidateResponse bundles everything a validation run produced.
type ValidateResponse struct {
	RuleID   string            `json:"rule_id"`
	Metrics  ValidationMetrics `json:"metrics"`
	Result   ValidationResult  `json:"result"`
	Outcomes []TradeOutcome    `json:"outcomes,omitempty"`
	Cached   bool              `json:"cached"`
}

// VerdictEvent is the message published to the verdicts topic after a run.
type VerdictEvent struct {
	RuleID         string         `json:"rule_id"`
	Instrument     string         `json:"instrument"`
	Window         string         `json:"window"`
	Classification Classification `json:"classification"`
	CanPromote     bool           `json:"can_promote"`
	SampleSize     int            `json:"sample_size"`
	MeanRealizedR  float64        `json:"mean_realized_r"`
}

// ProgressEvent streams run progress to dashboard clients.
type ProgressEvent struct {
	RuleID    string `json:"rule_id"`
	Stage     string `json:"stage"` // "simulate", "validate", "classify", "done"
	DaysDone  int    `json:"days_done"`
	DaysTotal int    `json:"days_total"`
}
