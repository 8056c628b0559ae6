package simulator

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"BreakCheck/internal/domain/models"
)

// Builder drives the Simulator across a full historical range, producing one
// outcome per trading day. Days are independent, so simulation runs as a
// parallel map over a bounded worker pool with no shared mutable state.
type Builder struct {
	sim     *Simulator
	workers int
}

// NewBuilder creates a Builder. workers <= 0 selects GOMAXPROCS.
func NewBuilder(sim *Simulator, workers int) (*Builder, error) {
	if sim == nil {
		return nil, fmt.Errorf("builder: simulator is required")
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Builder{sim: sim, workers: workers}, nil
}

// Build simulates the rule over every trading day in bars, in chronological
// order. Days with missing or short data are absorbed as NO_TRADE; only
// configuration errors abort the run.
func (b *Builder) Build(ctx context.Context, rule models.RuleSpec, bars []models.Bar) ([]models.TradeOutcome, error) {
	days := SplitDays(bars, rule.Window.Location)
	if len(days) == 0 {
		return nil, nil
	}

	type task struct {
		idx int
		day []models.Bar
	}

	outcomes := make([]models.TradeOutcome, len(days))
	errs := make([]error, len(days))

	tasks := make(chan task)
	var wg sync.WaitGroup
	for w := 0; w < b.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				outcomes[t.idx], errs[t.idx] = b.sim.SimulateDay(rule, t.day)
			}
		}()
	}

	for i, d := range days {
		select {
		case <-ctx.Done():
			close(tasks)
			wg.Wait()
			return nil, ctx.Err()
		case tasks <- task{idx: i, day: d}:
		}
	}
	close(tasks)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return outcomes, nil
}

// BuildWindows simulates the same instrument across several opening-range
// windows independently and in parallel. Each window gets its own rule copy
// and its own outcome slice; nothing is shared between windows.
func (b *Builder) BuildWindows(ctx context.Context, base models.RuleSpec, windows []models.OpeningRangeWindow, bars []models.Bar) (map[string][]models.TradeOutcome, error) {
	results := make(map[string][]models.TradeOutcome, len(windows))
	var mu sync.Mutex
	var wg sync.WaitGroup
	errCh := make(chan error, len(windows))

	for _, w := range windows {
		rule := base
		rule.Window = w
		wg.Add(1)
		go func(rule models.RuleSpec) {
			defer wg.Done()
			out, err := b.Build(ctx, rule, bars)
			if err != nil {
				errCh <- fmt.Errorf("window %s: %w", rule.Window.Label, err)
				return
			}
			mu.Lock()
			results[rule.Window.Label] = out
			mu.Unlock()
		}(rule)
	}
	wg.Wait()
	close(errCh)
	if err := <-errCh; err != nil {
		return nil, err
	}
	return results, nil
}

// SplitDays groups bars into per-day slices by calendar date in loc,
// preserving chronological order within and across days. Unsorted input is
// sorted ascending before grouping.
func SplitDays(bars []models.Bar, loc *time.Location) [][]models.Bar {
	if len(bars) == 0 {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	if !sort.SliceIsSorted(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) }) {
		sorted := make([]models.Bar, len(bars))
		copy(sorted, bars)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })
		bars = sorted
	}

	var days [][]models.Bar
	start := 0
	y, m, d := bars[0].Timestamp.In(loc).Date()
	for i := 1; i < len(bars); i++ {
		yy, mm, dd := bars[i].Timestamp.In(loc).Date()
		if yy != y || mm != m || dd != d {
			days = append(days, bars[start:i])
			start, y, m, d = i, yy, mm, dd
		}
	}
	days = append(days, bars[start:])
	return days
}
