package simulator

import (
	"context"
	"math"
	"reflect"
	"testing"
	"time"

	"BreakCheck/internal/domain/models"
	"BreakCheck/internal/services/cost"
)

const testMinBars = 5

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

func testSimulator(t *testing.T) *Simulator {
	t.Helper()
	s, err := New(testCostModel(t), testMinBars)
	if err != nil {
		t.Fatalf("new simulator: %v", err)
	}
	return s
}

func testWindow() models.OpeningRangeWindow {
	return models.OpeningRangeWindow{
		Label:    "0930",
		Start:    models.DayTime{Hour: 9, Minute: 30},
		Duration: 5 * time.Minute,
		Location: time.UTC,
	}
}

func testRule() models.RuleSpec {
	return models.RuleSpec{
		ID:         "r1",
		Instrument: "MES",
		Window:     testWindow(),
		Bias:       models.BiasBoth,
		RewardRisk: 2,
		StopMode:   models.StopOppositeEdge,
		EntryMode:  models.EntryFirstClose,
	}
}

// bar builds a minute bar at 9:(30+i) on the given day.
func bar(day time.Time, i int, o, h, l, c float64) models.Bar {
	return models.Bar{
		Timestamp: time.Date(day.Year(), day.Month(), day.Day(), 9, 30+i, 0, 0, time.UTC),
		Open:      o, High: h, Low: l, Close: c, Volume: 1000,
	}
}

// breakoutDay builds a day with opening range [100,105], an up-break close
// at 106, entry bar opening at 106.5, then a run to 110.
func breakoutDay(day time.Time) []models.Bar {
	bars := make([]models.Bar, 0, 12)
	// 5 window bars forming range [100, 105]
	bars = append(bars,
		bar(day, 0, 101, 105, 100, 104),
		bar(day, 1, 104, 104.5, 101, 102),
		bar(day, 2, 102, 103, 100.5, 101),
		bar(day, 3, 101, 104, 100.25, 103.5),
		bar(day, 4, 103.5, 104.75, 102, 104),
	)
	// post-window: first close beyond 105 at index 6
	bars = append(bars,
		bar(day, 5, 104, 105, 103, 104.5),
		bar(day, 6, 104.5, 106.5, 104, 106), // break close
		bar(day, 7, 106.5, 107, 106, 106.75), // entry at open 106.5
		bar(day, 8, 106.75, 110, 106.5, 109.5),
	)
	return bars
}

func TestBreakoutScenarioGeometry(t *testing.T) {
	s := testSimulator(t)
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	out, err := s.SimulateDay(testRule(), breakoutDay(day))
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if out.Direction != models.BreakUp {
		t.Fatalf("expected up break, got %s", out.Direction)
	}
	if out.EntryPrice != 106.5 {
		t.Fatalf("entry should be next bar's open after break close, got %v", out.EntryPrice)
	}
	if out.StopPrice != 100 {
		t.Fatalf("stop should be opposite edge 100, got %v", out.StopPrice)
	}
	wantTarget := 106.5 + 2*(106.5-100)
	if math.Abs(out.TargetPrice-wantTarget) > 1e-9 {
		t.Fatalf("target = entry + 2*(entry-stop): want %v got %v", wantTarget, out.TargetPrice)
	}
	if out.Resolution != models.ResolutionUnresolved {
		// target 119.5 is never reached on this day
		t.Fatalf("expected UNRESOLVED, got %s", out.Resolution)
	}
}

func TestWinResolution(t *testing.T) {
	s := testSimulator(t)
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	bars := breakoutDay(day)
	// extend the day until the target (119.5) is touched
	bars = append(bars, bar(day, 9, 109.5, 120, 109, 119))

	out, err := s.SimulateDay(testRule(), bars)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if out.Resolution != models.ResolutionWin {
		t.Fatalf("expected WIN, got %s", out.Resolution)
	}
	if math.Abs(out.OutcomePoints-2*out.RiskPoints) > 1e-9 {
		t.Fatalf("win should bank RR*risk points: risk=%v outcome=%v", out.RiskPoints, out.OutcomePoints)
	}
	// realized R by hand: ((2*risk*5) - 3.5) / (risk*5 + 3.5)
	risk := out.RiskPoints
	wantR := (2*risk*5 - 3.5) / (risk*5 + 3.5)
	if math.Abs(out.RealizedR-wantR) > 1e-6 {
		t.Fatalf("realized R mismatch: want %v got %v", wantR, out.RealizedR)
	}
}

func TestStopBeforeTargetIsLoss(t *testing.T) {
	s := testSimulator(t)
	day := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
	bars := breakoutDay(day)
	// price collapses through the stop before any target touch
	bars = append(bars, bar(day, 9, 109, 109.5, 99.5, 100.5))

	out, err := s.SimulateDay(testRule(), bars)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if out.Resolution != models.ResolutionLoss {
		t.Fatalf("expected LOSS, got %s", out.Resolution)
	}
	if math.Abs(out.OutcomePoints-(-out.RiskPoints)) > 1e-9 {
		t.Fatalf("loss should be exactly -risk points, got %v", out.OutcomePoints)
	}
}

func TestSameBarTieResolvesLoss(t *testing.T) {
	s := testSimulator(t)
	day := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)
	bars := breakoutDay(day)
	// one bar spans both the stop (100) and the target (119.5)
	bars = append(bars, bar(day, 9, 109, 125, 99, 110))

	out, err := s.SimulateDay(testRule(), bars)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if out.Resolution != models.ResolutionLoss {
		t.Fatalf("same-bar tie must resolve LOSS, never WIN; got %s", out.Resolution)
	}
}

func TestShortWindowYieldsNoTrade(t *testing.T) {
	s := testSimulator(t)
	day := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	bars := []models.Bar{
		bar(day, 0, 101, 105, 100, 104),
		bar(day, 1, 104, 104.5, 101, 102),
		// only 2 window bars; minimum is 5
		bar(day, 6, 104.5, 106.5, 104, 106),
	}
	out, err := s.SimulateDay(testRule(), bars)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if out.Resolution != models.ResolutionNoTrade {
		t.Fatalf("short window must yield NO_TRADE, got %s", out.Resolution)
	}
}

func TestNoBreakYieldsNoTrade(t *testing.T) {
	s := testSimulator(t)
	day := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	bars := breakoutDay(day)[:6] // window bars plus one inside bar
	out, err := s.SimulateDay(testRule(), bars)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if out.Resolution != models.ResolutionNoTrade || out.Direction != models.BreakNone {
		t.Fatalf("expected NO_TRADE/none, got %s/%s", out.Resolution, out.Direction)
	}
}

func TestDirectionBiasFiltersBreak(t *testing.T) {
	s := testSimulator(t)
	day := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
	rule := testRule()
	rule.Bias = models.BiasShortOnly

	out, err := s.SimulateDay(rule, breakoutDay(day))
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if out.Resolution != models.ResolutionNoTrade {
		t.Fatalf("short-only rule must skip up-breaks, got %s", out.Resolution)
	}
	if out.Direction != models.BreakUp {
		t.Fatalf("break direction should still be recorded, got %s", out.Direction)
	}
}

func TestRangeFilterBlocksTrade(t *testing.T) {
	s := testSimulator(t)
	day := time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)
	rule := testRule()
	// range size is 5 points; require at least 0.8 of a 10-point reference
	rule.RangeFilter = models.RangeFilter{MinFraction: 0.8, Reference: 10}

	out, err := s.SimulateDay(rule, breakoutDay(day))
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if out.Resolution != models.ResolutionNoTrade {
		t.Fatalf("filtered range must yield NO_TRADE, got %s", out.Resolution)
	}
}

func TestSecondCloseEntry(t *testing.T) {
	s := testSimulator(t)
	day := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	rule := testRule()
	rule.EntryMode = models.EntrySecondClose

	out, err := s.SimulateDay(rule, breakoutDay(day))
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	// closes at 106 (idx 6) and 106.75 (idx 7) are both beyond 105,
	// so entry is at idx 8's open
	if out.EntryPrice != 106.75 {
		t.Fatalf("second-close entry should fill at 106.75, got %v", out.EntryPrice)
	}
}

func TestRestingLimitEntryFillsAtEdge(t *testing.T) {
	s := testSimulator(t)
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	rule := testRule()
	rule.EntryMode = models.EntryRestingLimit

	bars := breakoutDay(day)[:7] // through the break close at idx 6
	// retrace touches the edge at 105, then runs
	bars = append(bars,
		bar(day, 7, 106, 106.5, 104.9, 105.5),
		bar(day, 8, 105.5, 108, 105.25, 107.5),
	)
	out, err := s.SimulateDay(rule, bars)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if out.EntryPrice != 105 {
		t.Fatalf("resting limit must fill at the edge price, got %v", out.EntryPrice)
	}
}

func TestUnknownInstrumentIsConfigurationError(t *testing.T) {
	s := testSimulator(t)
	day := time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC)
	rule := testRule()
	rule.Instrument = "ES"

	if _, err := s.SimulateDay(rule, breakoutDay(day)); err == nil {
		t.Fatalf("unvalidated instrument must be a hard error, not NO_TRADE")
	}
}

func TestDeterminism(t *testing.T) {
	s := testSimulator(t)
	rule := testRule()
	day := time.Date(2024, 3, 19, 0, 0, 0, 0, time.UTC)
	bars := breakoutDay(day)
	bars = append(bars, bar(day, 9, 109.5, 120, 109, 119))

	first, err := s.SimulateDay(rule, bars)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	for i := 0; i < 50; i++ {
		again, err := s.SimulateDay(rule, bars)
		if err != nil {
			t.Fatalf("simulate #%d: %v", i, err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("simulation must be bit-identical across runs: %+v vs %+v", first, again)
		}
	}
}

func TestBuilderHundredDayScenario(t *testing.T) {
	s := testSimulator(t)
	b, err := NewBuilder(s, 4)
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}

	var bars []models.Bar
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	breakDays := 0
	for i := 0; i < 100; i++ {
		day := start.AddDate(0, 0, i)
		if i%4 == 3 {
			// quiet day: no close ever leaves the range
			bars = append(bars, breakoutDay(day)[:6]...)
			continue
		}
		breakDays++
		d := breakoutDay(day)
		d = append(d, bar(day, 9, 109.5, 120, 109, 119)) // run to target
		bars = append(bars, d...)
	}

	outcomes, err := b.Build(context.Background(), testRule(), bars)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(outcomes) != 100 {
		t.Fatalf("expected one outcome per day, got %d", len(outcomes))
	}

	resolved := 0
	for i, o := range outcomes {
		if o.Traded() {
			resolved++
			if o.Resolution != models.ResolutionWin {
				t.Fatalf("day %d: expected WIN, got %s", i, o.Resolution)
			}
		}
	}
	if resolved != breakDays {
		t.Fatalf("sample size must equal days with a qualifying break: want %d got %d", breakDays, resolved)
	}

	// repeated builds are bit-identical (determinism across the pool)
	again, err := b.Build(context.Background(), testRule(), bars)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if !reflect.DeepEqual(outcomes, again) {
		t.Fatalf("parallel build must stay deterministic")
	}
}

func TestBuilderSkipsEmptyAndShortDays(t *testing.T) {
	s := testSimulator(t)
	b, err := NewBuilder(s, 0)
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}

	day1 := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 5, 7, 0, 0, 0, 0, time.UTC)
	bars := append(breakoutDay(day1), bar(day2, 0, 101, 102, 100, 101.5)) // day2 has one bar

	outcomes, err := b.Build(context.Background(), testRule(), bars)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 day outcomes, got %d", len(outcomes))
	}
	if outcomes[1].Resolution != models.ResolutionNoTrade {
		t.Fatalf("short day must be NO_TRADE, got %s", outcomes[1].Resolution)
	}
}

func TestBuildWindowsIndependent(t *testing.T) {
	s := testSimulator(t)
	b, err := NewBuilder(s, 2)
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}
	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	bars := breakoutDay(day)

	late := testWindow()
	late.Label = "1030"
	late.Start = models.DayTime{Hour: 10, Minute: 30}

	res, err := b.BuildWindows(context.Background(), testRule(), []models.OpeningRangeWindow{testWindow(), late}, bars)
	if err != nil {
		t.Fatalf("build windows: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("expected results for both windows, got %d", len(res))
	}
	if res["1030"][0].Resolution != models.ResolutionNoTrade {
		t.Fatalf("late window has no bars and must be NO_TRADE")
	}
}
