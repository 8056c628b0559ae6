package models

// SubTestResult is the outcome of one robustness sub-test.
type SubTestResult string

const (
	SubTestPass SubTestResult = "PASS"
	SubTestFail SubTestResult = "FAIL"
)

// ControlResult is the outcome of the random-entry control comparison.
type ControlResult string

const (
	ControlBeaten        ControlResult = "BEATS_CONTROL"
	ControlNotSignificant ControlResult = "NOT_SIGNIFICANT"
)

// ControlStats summarizes the control population for reporting.
type ControlStats struct {
	SampleSize int     `json:"sample_size"`
	WinRate    float64 `json:"win_rate"`
	Expectancy float64 `json:"expectancy"`
	PValue     float64 `json:"p_value"`
}

// ValidationMetrics is the derived, non-persistent aggregate over a
// TradeOutcome set. Everything downstream (the classifier included) is a
// pure function of this struct.
type ValidationMetrics struct {
	SampleSize    int           `json:"sample_size"`
	WinRate       float64       `json:"win_rate"`
	MeanRealizedR float64       `json:"mean_realized_r"`
	MaxDrawdownR  float64       `json:"max_drawdown_r"`
	Stress25      SubTestResult `json:"stress_25"`
	Stress50      SubTestResult `json:"stress_50"`
	WalkForward   SubTestResult `json:"walk_forward"`
	Control       ControlResult `json:"control"`
	ControlStats  ControlStats  `json:"control_stats"`
}

// Signal layer values.
type Signal string

const (
	SignalPresent Signal = "PRESENT"
	SignalAbsent  Signal = "ABSENT"
)

// Robustness layer values.
type Robustness string

const (
	RobustnessRobust  Robustness = "ROBUST"
	RobustnessFragile Robustness = "FRAGILE"
	RobustnessNone    Robustness = "NONE"
)

// TradeQuality layer values. Informational only; never blocks promotion.
type TradeQuality string

const (
	QualityGood TradeQuality = "GOOD"
	QualityPoor TradeQuality = "POOR"
)

// Explainability is supplied externally by human judgment.
type Explainability string

const (
	ExplainYes     Explainability = "YES"
	ExplainNo      Explainability = "NO"
	ExplainUnclear Explainability = "UNCLEAR"
)

// Classification routes a rule to its follow-up path: STRUCTURAL rules should
// never be re-searched, OVERFIT rules may be retried with parameter variants,
// REGIME rules only with added conditioning filters, and DATA_LIMITED rules
// are parked until more history accumulates.
type Classification string

const (
	ClassStructural  Classification = "STRUCTURAL"
	ClassOverfit     Classification = "OVERFIT"
	ClassRegime      Classification = "REGIME"
	ClassDataLimited Classification = "DATA_LIMITED"
)

// ValidationResult is the classifier's graded verdict. It is always
// recomputable from the ValidationMetrics that produced it; stored copies are
// non-authoritative hints.
type ValidationResult struct {
	Signal         Signal         `json:"signal"`
	Robustness     Robustness     `json:"robustness"`
	TradeQuality   TradeQuality   `json:"trade_quality"`
	Explainability Explainability `json:"explainability"`
	Classification Classification `json:"classification"`
	CanPromote     bool           `json:"can_promote"`
}
