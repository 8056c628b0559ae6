package validation

import (
	"context"
	"fmt"

	"BreakCheck/internal/domain/models"
	"BreakCheck/internal/services/cost"
)

// Config tunes the validator's thresholds. Zero values are replaced by the
// defaults below.
type Config struct {
	// PromotionThresholdR is the minimum mean realized R a rule must retain
	// under cost stress.
	PromotionThresholdR float64
	// WalkForwardRatio is the chronological train fraction, in (0,1).
	WalkForwardRatio float64
	// WalkForwardTolerance is the allowed |train - test| win-rate gap.
	WalkForwardTolerance float64
	// WalkForwardFloor is the absolute test-segment win-rate floor.
	WalkForwardFloor float64
	// ControlResamples is how many random-entry passes are pooled into the
	// control population.
	ControlResamples int
	// Alpha is the significance level for the control comparison.
	Alpha float64
	// MinRangeBars mirrors the simulator's opening-range minimum so the
	// control population trades the same eligible days as the rule.
	MinRangeBars int
}

func (c Config) withDefaults() Config {
	if c.PromotionThresholdR == 0 {
		c.PromotionThresholdR = 0.15
	}
	if c.WalkForwardRatio == 0 {
		c.WalkForwardRatio = 0.7
	}
	if c.WalkForwardTolerance == 0 {
		c.WalkForwardTolerance = 0.10
	}
	if c.WalkForwardFloor == 0 {
		c.WalkForwardFloor = 0.45
	}
	if c.ControlResamples == 0 {
		c.ControlResamples = 200
	}
	if c.Alpha == 0 {
		c.Alpha = 0.05
	}
	if c.MinRangeBars == 0 {
		c.MinRangeBars = 5
	}
	return c
}

// Validator turns a TradeOutcome sequence into ValidationMetrics. Every
// sub-test is fail-closed: missing or insufficient data yields FAIL (or
// NOT_SIGNIFICANT), never a default PASS.
type Validator struct {
	cfg   Config
	costs *cost.Model
}

// New creates a Validator.
func New(cfg Config, costs *cost.Model) (*Validator, error) {
	if costs == nil {
		return nil, fmt.Errorf("validator: cost model is required")
	}
	cfg = cfg.withDefaults()
	if cfg.WalkForwardRatio <= 0 || cfg.WalkForwardRatio >= 1 {
		return nil, fmt.Errorf("validator: walk-forward ratio must be in (0,1), got %v", cfg.WalkForwardRatio)
	}
	return &Validator{cfg: cfg, costs: costs}, nil
}

// Validate computes the full metric set for one rule's outcomes. bars are the
// same bars the outcomes were simulated from; the control comparison re-runs
// its own independent simulation pass over them.
func (v *Validator) Validate(ctx context.Context, rule models.RuleSpec, outcomes []models.TradeOutcome, bars []models.Bar) (models.ValidationMetrics, error) {
	resolved := resolvedOutcomes(outcomes)

	m := models.ValidationMetrics{
		SampleSize:  len(resolved),
		Stress25:    models.SubTestFail,
		Stress50:    models.SubTestFail,
		WalkForward: models.SubTestFail,
		Control:     models.ControlNotSignificant,
	}
	if len(resolved) == 0 {
		return m, nil
	}

	wins := 0
	var sumR float64
	for _, o := range resolved {
		if o.Resolution == models.ResolutionWin {
			wins++
		}
		sumR += o.RealizedR
	}
	m.WinRate = float64(wins) / float64(len(resolved))
	m.MeanRealizedR = sumR / float64(len(resolved))
	m.MaxDrawdownR = maxDrawdownR(resolved)

	s25, err := v.stressTest(rule, resolved, 1.25)
	if err != nil {
		return models.ValidationMetrics{}, err
	}
	m.Stress25 = s25
	s50, err := v.stressTest(rule, resolved, 1.50)
	if err != nil {
		return models.ValidationMetrics{}, err
	}
	m.Stress50 = s50

	m.WalkForward = v.walkForward(resolved)

	ctrl, err := v.controlComparison(ctx, rule, resolved, bars)
	if err != nil {
		return models.ValidationMetrics{}, err
	}
	m.Control = ctrl.result
	m.ControlStats = ctrl.stats

	return m, nil
}

func resolvedOutcomes(outcomes []models.TradeOutcome) []models.TradeOutcome {
	out := make([]models.TradeOutcome, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Traded() {
			out = append(out, o)
		}
	}
	return out
}

// stressTest recomputes realized R for every resolved outcome under an
// inflated cost multiplier, holding trade geometry fixed. PASS iff stressed
// expectancy still meets the promotion threshold.
func (v *Validator) stressTest(rule models.RuleSpec, resolved []models.TradeOutcome, stress float64) (models.SubTestResult, error) {
	if len(resolved) == 0 {
		return models.SubTestFail, nil
	}
	c, err := v.costs.PerTradeCost(rule.Instrument, stress)
	if err != nil {
		return models.SubTestFail, err
	}
	var sum float64
	for _, o := range resolved {
		r, err := v.costs.RealizedR(rule.Instrument, o.OutcomePoints, o.RiskPoints, c)
		if err != nil {
			return models.SubTestFail, err
		}
		sum += r
	}
	if sum/float64(len(resolved)) >= v.cfg.PromotionThresholdR {
		return models.SubTestPass, nil
	}
	return models.SubTestFail, nil
}

// walkForward splits the chronological outcome sequence and compares segment
// win rates. Guards against rules that only worked in one regime.
func (v *Validator) walkForward(resolved []models.TradeOutcome) models.SubTestResult {
	train, test := SplitChronological(resolved, v.cfg.WalkForwardRatio)
	if len(train) == 0 || len(test) == 0 {
		return models.SubTestFail
	}
	trainWR := winRate(train)
	testWR := winRate(test)
	gap := trainWR - testWR
	if gap < 0 {
		gap = -gap
	}
	if gap <= v.cfg.WalkForwardTolerance && testWR >= v.cfg.WalkForwardFloor {
		return models.SubTestPass
	}
	return models.SubTestFail
}

// SplitChronological splits outcomes at ratio into train/test segments.
// train+test always equals the input length for any ratio in (0,1).
func SplitChronological(outcomes []models.TradeOutcome, ratio float64) (train, test []models.TradeOutcome) {
	cut := int(float64(len(outcomes)) * ratio)
	if cut < 0 {
		cut = 0
	}
	if cut > len(outcomes) {
		cut = len(outcomes)
	}
	return outcomes[:cut], outcomes[cut:]
}

func winRate(outcomes []models.TradeOutcome) float64 {
	if len(outcomes) == 0 {
		return 0
	}
	wins := 0
	for _, o := range outcomes {
		if o.Resolution == models.ResolutionWin {
			wins++
		}
	}
	return float64(wins) / float64(len(outcomes))
}

// maxDrawdownR computes the worst peak-to-trough drop of the cumulative
// realized-R curve, in R units. Result is <= 0.
func maxDrawdownR(resolved []models.TradeOutcome) float64 {
	var equity, peak, maxDD float64
	for _, o := range resolved {
		equity += o.RealizedR
		if equity > peak {
			peak = equity
		}
		if dd := equity - peak; dd < maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
