package validation

import (
	"context"
	"testing"
	"time"

	"BreakCheck/internal/domain/models"
	"BreakCheck/internal/services/simulator"
)

func minuteBar(day time.Time, i int, o, h, l, c float64) models.Bar {
	return models.Bar{
		Timestamp: time.Date(day.Year(), day.Month(), day.Day(), 9, 30+i, 0, 0, time.UTC),
		Open:      o, High: h, Low: l, Close: c, Volume: 1000,
	}
}

// winningHistory builds n trading days with opening range [100,105], an
// up-break close, entry at 106.5 and a run through the 2R target at 119.5.
// Every day resolves WIN for the first-close long rule under test.
func winningHistory(n int) []models.Bar {
	var bars []models.Bar
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		day := start.AddDate(0, 0, i)
		bars = append(bars,
			minuteBar(day, 0, 101, 105, 100, 104),
			minuteBar(day, 1, 104, 104.5, 101, 102),
			minuteBar(day, 2, 102, 103, 100.5, 101),
			minuteBar(day, 3, 101, 104, 100.25, 103.5),
			minuteBar(day, 4, 103.5, 104.75, 102, 104),
			minuteBar(day, 5, 104, 105, 103, 104.5),
			minuteBar(day, 6, 104.5, 106.5, 104, 106),
			minuteBar(day, 7, 106.5, 107, 106, 106.75),
			minuteBar(day, 8, 106.75, 110, 106.5, 109.5),
			minuteBar(day, 9, 109.5, 120, 109, 119),
		)
	}
	return bars
}

// simulateAll runs the full builder pipeline over the synthetic history.
func simulateAll(t *testing.T, bars []models.Bar) []models.TradeOutcome {
	t.Helper()
	sim, err := simulator.New(testCostModel(t), 5)
	if err != nil {
		t.Fatalf("simulator: %v", err)
	}
	b, err := simulator.NewBuilder(sim, 4)
	if err != nil {
		t.Fatalf("builder: %v", err)
	}
	outcomes, err := b.Build(context.Background(), testRule(), bars)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return outcomes
}
