package models

// DirectionBias restricts which break directions a rule may trade.
type DirectionBias string

const (
	BiasLongOnly  DirectionBias = "long_only"
	BiasShortOnly DirectionBias = "short_only"
	BiasBoth      DirectionBias = "both"
)

// StopMode selects where the protective stop is placed.
type StopMode string

const (
	StopOppositeEdge StopMode = "opposite_edge"
	StopMidpoint     StopMode = "midpoint"
)

// EntryMode selects how a detected break converts into an entry.
type EntryMode string

const (
	// EntryFirstClose enters at the next bar's open after the break close.
	EntryFirstClose EntryMode = "first_close"
	// EntrySecondClose requires two consecutive closes beyond the edge,
	// entering at the open following the second.
	EntrySecondClose EntryMode = "second_close"
	// EntryRestingLimit enters at the edge price itself when touched after
	// the break, with no slippage.
	EntryRestingLimit EntryMode = "resting_limit"
)

// RangeFilter bounds the opening-range size as a fraction of a volatility
// reference. Zero values disable the corresponding bound.
type RangeFilter struct {
	MinFraction float64 `json:"min_fraction" yaml:"min_fraction"`
	MaxFraction float64 `json:"max_fraction" yaml:"max_fraction"`
	// Reference is the volatility reference in points the fractions apply to.
	Reference float64 `json:"reference" yaml:"reference"`
}

// Enabled reports whether the filter constrains anything.
func (f RangeFilter) Enabled() bool {
	return f.Reference > 0 && (f.MinFraction > 0 || f.MaxFraction > 0)
}

// Allows reports whether a range size passes the filter.
func (f RangeFilter) Allows(rangeSize float64) bool {
	if !f.Enabled() {
		return true
	}
	frac := rangeSize / f.Reference
	if f.MinFraction > 0 && frac < f.MinFraction {
		return false
	}
	if f.MaxFraction > 0 && frac > f.MaxFraction {
		return false
	}
	return true
}

// RuleSpec is the candidate breakout rule under test. A RuleSpec is immutable
// once simulated; re-simulation produces new outcomes rather than patching
// old ones.
type RuleSpec struct {
	ID           string             `json:"id" validate:"required"`
	Instrument   string             `json:"instrument" validate:"required"`
	Window       OpeningRangeWindow `json:"window"`
	Bias         DirectionBias      `json:"bias" validate:"required,oneof=long_only short_only both"`
	RewardRisk   float64            `json:"reward_risk" validate:"required,gt=0"`
	StopMode     StopMode           `json:"stop_mode" validate:"required,oneof=opposite_edge midpoint"`
	EntryMode    EntryMode          `json:"entry_mode" validate:"required,oneof=first_close second_close resting_limit"`
	RangeFilter  RangeFilter        `json:"range_filter"`
}

// AllowsDirection reports whether the bias permits trading a break direction.
func (r RuleSpec) AllowsDirection(d BreakDirection) bool {
	switch r.Bias {
	case BiasLongOnly:
		return d == BreakUp
	case BiasShortOnly:
		return d == BreakDown
	default:
		return d == BreakUp || d == BreakDown
	}
}

// Fingerprint returns a stable identity string for the rule's parameters.
// It seeds the control population so repeated validations are reproducible.
func (r RuleSpec) Fingerprint() string {
	return r.Instrument + "|" + r.Window.Label + "|" + string(r.Bias) + "|" +
		string(r.StopMode) + "|" + string(r.EntryMode)
}
