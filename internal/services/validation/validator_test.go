package validation

import (
	"context"
	"math"
	"testing"
	"time"

	"BreakCheck/internal/domain/models"
	"BreakCheck/internal/services/cost"
)

func testCostModel(t *testing.T) *cost.Model {
	t.Helper()
	m, err := cost.NewModel([]cost.Instrument{
		{Symbol: "MES", PointValue: 5, TickSize: 0.25, RoundTripFriction: 3.5},
	})
	if err != nil {
		t.Fatalf("cost model: %v", err)
	}
	return m
}

func testValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := New(Config{}, testCostModel(t))
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}
	return v
}

func testRule() models.RuleSpec {
	return models.RuleSpec{
		ID:         "r1",
		Instrument: "MES",
		Window: models.OpeningRangeWindow{
			Label:    "0930",
			Start:    models.DayTime{Hour: 9, Minute: 30},
			Duration: 5 * time.Minute,
			Location: time.UTC,
		},
		Bias:       models.BiasBoth,
		RewardRisk: 2,
		StopMode:   models.StopOppositeEdge,
		EntryMode:  models.EntryFirstClose,
	}
}

// resolvedTrade builds a WIN or LOSS with 8 points of risk on MES at base
// friction, realized R computed through the cost model.
func resolvedTrade(t *testing.T, m *cost.Model, win bool, date time.Time) models.TradeOutcome {
	t.Helper()
	const risk = 8.0
	o := models.TradeOutcome{Date: date, Direction: models.BreakUp, RiskPoints: risk}
	if win {
		o.Resolution = models.ResolutionWin
		o.OutcomePoints = 2 * risk
	} else {
		o.Resolution = models.ResolutionLoss
		o.OutcomePoints = -risk
	}
	c, err := m.PerTradeCost("MES", 1.0)
	if err != nil {
		t.Fatalf("per-trade cost: %v", err)
	}
	rr, err := m.RealizedR("MES", o.OutcomePoints, o.RiskPoints, c)
	if err != nil {
		t.Fatalf("realized R: %v", err)
	}
	o.RealizedR = rr
	return o
}

func trades(t *testing.T, m *cost.Model, wins, losses int) []models.TradeOutcome {
	t.Helper()
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make([]models.TradeOutcome, 0, wins+losses)
	for i := 0; i < wins; i++ {
		out = append(out, resolvedTrade(t, m, true, base.AddDate(0, 0, len(out))))
	}
	for i := 0; i < losses; i++ {
		out = append(out, resolvedTrade(t, m, false, base.AddDate(0, 0, len(out))))
	}
	return out
}

func TestEmptyOutcomesFailClosed(t *testing.T) {
	v := testValidator(t)
	m, err := v.Validate(context.Background(), testRule(), nil, nil)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if m.SampleSize != 0 {
		t.Fatalf("sample size: got %d", m.SampleSize)
	}
	if m.Stress25 != models.SubTestFail || m.Stress50 != models.SubTestFail || m.WalkForward != models.SubTestFail {
		t.Fatalf("empty input must fail every sub-test, got %+v", m)
	}
	if m.Control != models.ControlNotSignificant {
		t.Fatalf("empty input must not beat the control, got %s", m.Control)
	}
}

func TestNoTradeAndUnresolvedExcluded(t *testing.T) {
	v := testValidator(t)
	cm := testCostModel(t)
	outcomes := trades(t, cm, 3, 2)
	outcomes = append(outcomes,
		models.TradeOutcome{Resolution: models.ResolutionNoTrade},
		models.TradeOutcome{Resolution: models.ResolutionUnresolved, OutcomePoints: 4, RiskPoints: 8},
	)
	m, err := v.Validate(context.Background(), testRule(), outcomes, nil)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if m.SampleSize != 5 {
		t.Fatalf("only WIN and LOSS count toward the sample: want 5 got %d", m.SampleSize)
	}
	if math.Abs(m.WinRate-0.6) > 1e-9 {
		t.Fatalf("win rate: want 0.6 got %v", m.WinRate)
	}
}

func TestStressPassesForStrongEdge(t *testing.T) {
	v := testValidator(t)
	cm := testCostModel(t)
	m, err := v.Validate(context.Background(), testRule(), trades(t, cm, 30, 10), nil)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if m.Stress25 != models.SubTestPass || m.Stress50 != models.SubTestPass {
		t.Fatalf("75%% win rate at 2R must survive cost stress, got %s/%s", m.Stress25, m.Stress50)
	}
}

func TestStressFailsForThinEdge(t *testing.T) {
	v := testValidator(t)
	cm := testCostModel(t)
	// ~37% wins at 2R is barely positive at base cost and dies under stress
	m, err := v.Validate(context.Background(), testRule(), trades(t, cm, 15, 25), nil)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if m.Stress50 != models.SubTestFail {
		t.Fatalf("thin edge must fail the 50%% stress, got %s", m.Stress50)
	}
}

func TestSplitChronologicalTotality(t *testing.T) {
	cm := testCostModel(t)
	for _, n := range []int{0, 1, 2, 3, 10, 29, 100} {
		outcomes := trades(t, cm, n, 0)
		for _, ratio := range []float64{0.1, 0.3, 0.5, 0.7, 0.9} {
			train, test := SplitChronological(outcomes, ratio)
			if len(train)+len(test) != n {
				t.Fatalf("n=%d ratio=%v: train %d + test %d != %d", n, ratio, len(train), len(test), n)
			}
		}
	}
}

func TestWalkForwardStableRulePasses(t *testing.T) {
	v := testValidator(t)
	cm := testCostModel(t)
	// train 42/70 = 0.60, test 15/30 = 0.50: gap 0.10, floor met
	outcomes := append(trades(t, cm, 42, 28), trades(t, cm, 15, 15)...)
	if got := v.walkForward(outcomes); got != models.SubTestPass {
		t.Fatalf("stable win rates must pass walk-forward, got %s", got)
	}
}

func TestWalkForwardRegimeShiftFails(t *testing.T) {
	v := testValidator(t)
	cm := testCostModel(t)
	// train 0.60, test 6/30 = 0.20: the rule only worked early
	outcomes := append(trades(t, cm, 42, 28), trades(t, cm, 6, 24)...)
	if got := v.walkForward(outcomes); got != models.SubTestFail {
		t.Fatalf("regime shift must fail walk-forward, got %s", got)
	}
}

func TestWalkForwardFloorBindsEvenWhenStable(t *testing.T) {
	v := testValidator(t)
	cm := testCostModel(t)
	// 0.40 on both segments: perfectly stable, still below the 0.45 floor
	outcomes := append(trades(t, cm, 28, 42), trades(t, cm, 12, 18)...)
	if got := v.walkForward(outcomes); got != models.SubTestFail {
		t.Fatalf("a stable-but-weak rule must fail the absolute floor, got %s", got)
	}
}

func TestMaxDrawdown(t *testing.T) {
	seq := []models.TradeOutcome{
		{Resolution: models.ResolutionWin, RealizedR: 1},
		{Resolution: models.ResolutionLoss, RealizedR: -1},
		{Resolution: models.ResolutionLoss, RealizedR: -1},
		{Resolution: models.ResolutionWin, RealizedR: 1},
	}
	if got := maxDrawdownR(seq); math.Abs(got-(-2)) > 1e-12 {
		t.Fatalf("max drawdown: want -2 got %v", got)
	}
	if got := maxDrawdownR(nil); got != 0 {
		t.Fatalf("empty sequence has no drawdown, got %v", got)
	}
}

func TestControlComparisonDeterministic(t *testing.T) {
	v := testValidator(t)
	bars := winningHistory(40)
	rule := testRule()
	cm := testCostModel(t)
	outcomes := trades(t, cm, 30, 10)

	first, err := v.controlComparison(context.Background(), rule, outcomes, bars)
	if err != nil {
		t.Fatalf("control: %v", err)
	}
	if first.stats.SampleSize == 0 {
		t.Fatalf("control population must be non-empty on tradable history")
	}
	again, err := v.controlComparison(context.Background(), rule, outcomes, bars)
	if err != nil {
		t.Fatalf("control rerun: %v", err)
	}
	if first != again {
		t.Fatalf("control comparison must be deterministic per rule fingerprint:\n%+v\n%+v", first, again)
	}
}

func TestControlEmptyBarsNotSignificant(t *testing.T) {
	v := testValidator(t)
	cm := testCostModel(t)
	res, err := v.controlComparison(context.Background(), testRule(), trades(t, cm, 30, 10), nil)
	if err != nil {
		t.Fatalf("control: %v", err)
	}
	if res.result != models.ControlNotSignificant || res.stats.PValue != 1 {
		t.Fatalf("no history means no control comparison, got %+v", res)
	}
}

func TestValidateEndToEnd(t *testing.T) {
	v := testValidator(t)
	bars := winningHistory(40)
	outcomes := simulateAll(t, bars)

	m, err := v.Validate(context.Background(), testRule(), outcomes, bars)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if m.SampleSize != 40 {
		t.Fatalf("sample size: want 40 got %d", m.SampleSize)
	}
	if m.WinRate != 1.0 {
		t.Fatalf("every simulated day wins in this history, got WR %v", m.WinRate)
	}
	if m.Stress25 != models.SubTestPass || m.Stress50 != models.SubTestPass {
		t.Fatalf("an all-win 2R rule must survive stress, got %s/%s", m.Stress25, m.Stress50)
	}
	if m.WalkForward != models.SubTestPass {
		t.Fatalf("uniform win rate must pass walk-forward, got %s", m.WalkForward)
	}
	if m.Control != models.ControlBeaten {
		t.Fatalf("a perfect rule must beat the random-entry control (ctrl WR %v, p %v)",
			m.ControlStats.WinRate, m.ControlStats.PValue)
	}
	if m.MaxDrawdownR != 0 {
		t.Fatalf("an all-win sequence has zero drawdown, got %v", m.MaxDrawdownR)
	}
}
