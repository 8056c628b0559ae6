package simulator

import (
	"time"

	"BreakCheck/internal/domain/models"
)

// buildOpeningRange computes the day's opening range from bars inside the
// configured window. Returns ok=false when the window holds fewer than
// minBars bars; such days yield no range and no trade.
func buildOpeningRange(day []models.Bar, windowStart time.Time, duration time.Duration, minBars int) (models.OpeningRange, int, bool) {
	windowEnd := windowStart.Add(duration)

	var (
		r     models.OpeningRange
		count int
		last  int = -1
	)
	for i, b := range day {
		if b.Timestamp.Before(windowStart) {
			continue
		}
		if !b.Timestamp.Before(windowEnd) {
			break
		}
		if count == 0 {
			r.High = b.High
			r.Low = b.Low
		} else {
			if b.High > r.High {
				r.High = b.High
			}
			if b.Low < r.Low {
				r.Low = b.Low
			}
		}
		count++
		last = i
	}

	if count < minBars || last < 0 {
		return models.OpeningRange{}, -1, false
	}
	// first index after the window; break scanning starts here
	return r, last + 1, true
}

// RangeForDay exposes the opening-range build for callers that need a day's
// risk geometry without running the full rule path, such as the random-entry
// control population.
func RangeForDay(day []models.Bar, w models.OpeningRangeWindow, minBars int) (models.OpeningRange, int, bool) {
	if len(day) == 0 {
		return models.OpeningRange{}, -1, false
	}
	return buildOpeningRange(day, w.At(day[0].Timestamp), w.Duration, minBars)
}

// firstBreakClose returns the index of the first bar at or after start whose
// close falls outside [low, high], along with the break direction.
func firstBreakClose(day []models.Bar, start int, r models.OpeningRange) (int, models.BreakDirection) {
	for i := start; i < len(day); i++ {
		if day[i].Close > r.High {
			return i, models.BreakUp
		}
		if day[i].Close < r.Low {
			return i, models.BreakDown
		}
	}
	return -1, models.BreakNone
}
