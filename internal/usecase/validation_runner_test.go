package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"BreakCheck/internal/domain/models"
	"BreakCheck/internal/repository"
	"BreakCheck/internal/services/classify"
	"BreakCheck/internal/services/cost"
	"BreakCheck/internal/services/simulator"
	"BreakCheck/internal/services/validation"
	"BreakCheck/pkg/cache"
)

type fakeBarStore struct {
	bars []models.Bar
}

func (f *fakeBarStore) GetBars(_ context.Context, _ string, _, _ time.Time) ([]models.Bar, error) {
	return f.bars, nil
}

func (f *fakeBarStore) Health(context.Context) error { return nil }

type fakeOutcomeStore struct {
	mu     sync.Mutex
	stores int
	rules  []string
	counts []int
}

func (f *fakeOutcomeStore) StoreOutcomes(_ context.Context, ruleID string, outcomes []models.TradeOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stores++
	f.rules = append(f.rules, ruleID)
	f.counts = append(f.counts, len(outcomes))
	return nil
}

func (f *fakeOutcomeStore) Close() error { return nil }

type fakePublisher struct {
	mu     sync.Mutex
	events []models.VerdictEvent
}

func (f *fakePublisher) Publish(_ context.Context, ev models.VerdictEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeProgress struct {
	mu     sync.Mutex
	stages []string
}

func (f *fakeProgress) Broadcast(ev models.ProgressEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stages = append(f.stages, ev.Stage)
}

func winningBar(day time.Time, i int, o, h, l, c float64) models.Bar {
	return models.Bar{
		Timestamp: time.Date(day.Year(), day.Month(), day.Day(), 9, 30+i, 0, 0, time.UTC),
		Open:      o, High: h, Low: l, Close: c, Volume: 1000,
	}
}

// winningHistory builds n days with range [100,105], an up-break and a run
// through the 2R target, so every day resolves WIN for a first-close long.
func winningHistory(n int) []models.Bar {
	var bars []models.Bar
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		day := start.AddDate(0, 0, i)
		bars = append(bars,
			winningBar(day, 0, 101, 105, 100, 104),
			winningBar(day, 1, 104, 104.5, 101, 102),
			winningBar(day, 2, 102, 103, 100.5, 101),
			winningBar(day, 3, 101, 104, 100.25, 103.5),
			winningBar(day, 4, 103.5, 104.75, 102, 104),
			winningBar(day, 5, 104, 105, 103, 104.5),
			winningBar(day, 6, 104.5, 106.5, 104, 106),
			winningBar(day, 7, 106.5, 107, 106, 106.75),
			winningBar(day, 8, 106.75, 110, 106.5, 109.5),
			winningBar(day, 9, 109.5, 120, 109, 119),
		)
	}
	return bars
}

func testRunner(t *testing.T, bars *fakeBarStore, opts ...RunnerOption) *ValidationRunner {
	t.Helper()
	costs, err := cost.NewModel([]cost.Instrument{
		{Symbol: "MES", PointValue: 5, TickSize: 0.25, RoundTripFriction: 3.5},
	})
	if err != nil {
		t.Fatalf("cost model: %v", err)
	}
	sim, err := simulator.New(costs, 5)
	if err != nil {
		t.Fatalf("simulator: %v", err)
	}
	builder, err := simulator.NewBuilder(sim, 2)
	if err != nil {
		t.Fatalf("builder: %v", err)
	}
	validator, err := validation.New(validation.Config{}, costs)
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	runner, err := NewValidationRunner(bars, builder, validator, classify.New(classify.Thresholds{}), nil, nil, opts...)
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	return runner
}

func validateRequest() *models.ValidateRequest {
	return &models.ValidateRequest{
		RuleID:      "orb-mes-0930-long",
		Instrument:  "MES",
		WindowLabel: "0930",
		WindowMins:  5,
		Bias:        "both",
		RewardRisk:  2,
		StopMode:    "opposite_edge",
		EntryMode:   "first_close",
		From:        "2024-01-01T00:00:00Z",
		To:          "2024-02-15T00:00:00Z",
	}
}

func TestRunEndToEnd(t *testing.T) {
	bars := &fakeBarStore{bars: winningHistory(40)}
	outcomes := &fakeOutcomeStore{}
	publisher := &fakePublisher{}
	progress := &fakeProgress{}
	runner := testRunner(t, bars,
		WithOutcomeStore(outcomes),
		WithVerdictPublisher(publisher),
		WithProgressSink(progress),
	)

	res, err := runner.Run(context.Background(), validateRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Cached {
		t.Fatal("fresh run must not be marked cached")
	}
	if res.Metrics.SampleSize != 40 {
		t.Fatalf("sample size = %d, want 40", res.Metrics.SampleSize)
	}
	if res.Metrics.WinRate != 1.0 {
		t.Fatalf("win rate = %v, want 1.0", res.Metrics.WinRate)
	}
	if !res.Result.CanPromote {
		t.Fatalf("expected promotable verdict, got %+v", res.Result)
	}

	if outcomes.stores != 1 || outcomes.counts[0] != 40 {
		t.Fatalf("outcome store calls = %d counts = %v", outcomes.stores, outcomes.counts)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("published %d verdicts, want 1", len(publisher.events))
	}
	ev := publisher.events[0]
	if ev.RuleID != "orb-mes-0930-long" || ev.Instrument != "MES" || ev.Window != "0930" || !ev.CanPromote {
		t.Fatalf("unexpected verdict event: %+v", ev)
	}

	want := []string{"simulate", "validate", "classify", "done"}
	if len(progress.stages) != len(want) {
		t.Fatalf("progress stages = %v", progress.stages)
	}
	for i, s := range want {
		if progress.stages[i] != s {
			t.Fatalf("stage[%d] = %q, want %q", i, progress.stages[i], s)
		}
	}
}

func TestRunCacheHitShortCircuits(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	outcomes := &fakeOutcomeStore{}
	runner := testRunner(t, &fakeBarStore{bars: winningHistory(35)},
		WithOutcomeStore(outcomes),
		WithVerdictCache(repository.NewCachedVerdict(mc, time.Minute)),
	)
	ctx := context.Background()

	first, err := runner.Run(ctx, validateRequest())
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if first.Cached {
		t.Fatal("first run must not be cached")
	}

	second, err := runner.Run(ctx, validateRequest())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if !second.Cached {
		t.Fatal("second run should hit the verdict cache")
	}
	if second.Metrics.SampleSize != first.Metrics.SampleSize {
		t.Fatalf("cached metrics diverge: %d vs %d", second.Metrics.SampleSize, first.Metrics.SampleSize)
	}
	if outcomes.stores != 1 {
		t.Fatalf("outcome store calls = %d, want 1 (cache hit skips the run)", outcomes.stores)
	}
}

func TestRunInvalidateForcesRecompute(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	outcomes := &fakeOutcomeStore{}
	runner := testRunner(t, &fakeBarStore{bars: winningHistory(35)},
		WithOutcomeStore(outcomes),
		WithVerdictCache(repository.NewCachedVerdict(mc, time.Minute)),
	)
	ctx := context.Background()
	req := validateRequest()

	if _, err := runner.Run(ctx, req); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := runner.Invalidate(ctx, req.RuleID); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	res, err := runner.Run(ctx, req)
	if err != nil {
		t.Fatalf("Run after invalidate: %v", err)
	}
	if res.Cached {
		t.Fatal("run after invalidate must recompute")
	}
	if outcomes.stores != 2 {
		t.Fatalf("outcome store calls = %d, want 2", outcomes.stores)
	}
}

func TestRunRejectsMalformedRequests(t *testing.T) {
	runner := testRunner(t, &fakeBarStore{})

	cases := []struct {
		name   string
		mutate func(*models.ValidateRequest)
	}{
		{"bad from", func(r *models.ValidateRequest) { r.From = "yesterday" }},
		{"bad to", func(r *models.ValidateRequest) { r.To = "" }},
		{"to before from", func(r *models.ValidateRequest) { r.To = "2023-01-01T00:00:00Z" }},
		{"bad window label", func(r *models.ValidateRequest) { r.WindowLabel = "9x30" }},
		{"short window label", func(r *models.ValidateRequest) { r.WindowLabel = "9" }},
		{"empty window label", func(r *models.ValidateRequest) { r.WindowLabel = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validateRequest()
			tc.mutate(req)
			if _, err := runner.Run(context.Background(), req); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
