package simulator

import (
	"fmt"
	"time"

	"BreakCheck/internal/domain/models"
	"BreakCheck/internal/services/cost"
)

// Simulator deterministically replays one RuleSpec over one trading day's
// bars. Identical (bars, rule) inputs always produce identical outcomes:
// there is no randomness and no wall-clock dependence anywhere in the path.
type Simulator struct {
	costs *cost.Model
	// minBars is the minimum bar count required inside the opening-range
	// window. Days with fewer bars yield NO_TRADE.
	minBars int
}

// New creates a Simulator over a validated cost model.
func New(costs *cost.Model, minBars int) (*Simulator, error) {
	if costs == nil {
		return nil, fmt.Errorf("simulator: cost model is required")
	}
	if minBars <= 0 {
		return nil, fmt.Errorf("simulator: min bars must be > 0, got %d", minBars)
	}
	return &Simulator{costs: costs, minBars: minBars}, nil
}

func noTrade(date time.Time, dir models.BreakDirection) models.TradeOutcome {
	return models.TradeOutcome{Date: date, Direction: dir, Resolution: models.ResolutionNoTrade}
}

// SimulateDay computes at most one trade outcome for the day. Data-quality
// problems (missing bars, short windows, no breakout) are absorbed as
// NO_TRADE; only configuration problems (unvalidated instrument, degenerate
// rule) surface as errors.
func (s *Simulator) SimulateDay(rule models.RuleSpec, day []models.Bar) (models.TradeOutcome, error) {
	// Fail closed before touching any bar: unvalidated instruments are a
	// configuration error, not a data gap.
	if _, err := s.costs.Instrument(rule.Instrument); err != nil {
		return models.TradeOutcome{}, err
	}
	if rule.RewardRisk <= 0 {
		return models.TradeOutcome{}, fmt.Errorf("simulator: reward:risk must be > 0, got %v", rule.RewardRisk)
	}
	if len(day) == 0 {
		return noTrade(time.Time{}, models.BreakNone), nil
	}

	date := day[0].Timestamp
	windowStart := rule.Window.At(date)

	r, scanFrom, ok := buildOpeningRange(day, windowStart, rule.Window.Duration, s.minBars)
	if !ok {
		return noTrade(date, models.BreakNone), nil
	}

	breakIdx, dir := firstBreakClose(day, scanFrom, r)
	if dir == models.BreakNone {
		return noTrade(date, models.BreakNone), nil
	}
	if !rule.AllowsDirection(dir) {
		return noTrade(date, dir), nil
	}
	if !rule.RangeFilter.Allows(r.Size()) {
		return noTrade(date, dir), nil
	}

	entryIdx, entryPrice, entered := s.resolveEntry(rule, day, breakIdx, dir, r)
	if !entered {
		return noTrade(date, dir), nil
	}

	stop := stopPrice(rule.StopMode, dir, r)
	var risk float64
	if dir == models.BreakUp {
		risk = entryPrice - stop
	} else {
		risk = stop - entryPrice
	}
	// A gap through the stop before entry leaves no defined trade geometry.
	if risk <= 0 {
		return noTrade(date, dir), nil
	}

	var target float64
	if dir == models.BreakUp {
		target = entryPrice + rule.RewardRisk*risk
	} else {
		target = entryPrice - rule.RewardRisk*risk
	}

	out := models.TradeOutcome{
		Date:        date,
		Direction:   dir,
		EntryPrice:  entryPrice,
		StopPrice:   stop,
		TargetPrice: target,
		RiskPoints:  risk,
	}
	s.resolvePath(rule, day, entryIdx, &out)

	if out.Traded() {
		c, err := s.costs.PerTradeCost(rule.Instrument, 1.0)
		if err != nil {
			return models.TradeOutcome{}, err
		}
		rr, err := s.costs.RealizedR(rule.Instrument, out.OutcomePoints, out.RiskPoints, c)
		if err != nil {
			return models.TradeOutcome{}, err
		}
		out.RealizedR = rr
	}
	return out, nil
}

// resolveEntry applies the rule's entry-confirmation mode after a detected
// break close at breakIdx. Returns the index of the bar the position is live
// from and the entry price.
func (s *Simulator) resolveEntry(rule models.RuleSpec, day []models.Bar, breakIdx int, dir models.BreakDirection, r models.OpeningRange) (int, float64, bool) {
	edge := r.High
	if dir == models.BreakDown {
		edge = r.Low
	}

	switch rule.EntryMode {
	case models.EntrySecondClose:
		// Two consecutive closes beyond the edge, then enter at the
		// following open.
		consec := 1
		for i := breakIdx + 1; i < len(day); i++ {
			beyond := (dir == models.BreakUp && day[i].Close > edge) ||
				(dir == models.BreakDown && day[i].Close < edge)
			if beyond {
				consec++
				if consec >= 2 {
					if i+1 < len(day) {
						return i + 1, day[i+1].Open, true
					}
					return 0, 0, false
				}
			} else {
				consec = 0
			}
		}
		return 0, 0, false

	case models.EntryRestingLimit:
		// Limit resting at the edge price; fills when a later bar trades
		// back to the edge. No slippage on a limit fill.
		for i := breakIdx + 1; i < len(day); i++ {
			touched := (dir == models.BreakUp && day[i].Low <= edge) ||
				(dir == models.BreakDown && day[i].High >= edge)
			if touched {
				return i, edge, true
			}
		}
		return 0, 0, false

	default: // EntryFirstClose
		if breakIdx+1 < len(day) {
			return breakIdx + 1, day[breakIdx+1].Open, true
		}
		return 0, 0, false
	}
}

func stopPrice(mode models.StopMode, dir models.BreakDirection, r models.OpeningRange) float64 {
	if mode == models.StopMidpoint {
		return r.Mid()
	}
	// opposite edge
	if dir == models.BreakUp {
		return r.Low
	}
	return r.High
}

// resolvePath walks bars from the entry bar tracking running excursions and
// resolving the first touched level. When target and stop are both touchable
// within one bar the trade resolves LOSS: this conservative tie-break is a
// deliberate, documented bias and downstream statistics are defined relative
// to it.
func (s *Simulator) resolvePath(rule models.RuleSpec, day []models.Bar, entryIdx int, out *models.TradeOutcome) {
	long := out.Direction == models.BreakUp

	for i := entryIdx; i < len(day); i++ {
		b := day[i]

		var adverse, favorable float64
		if long {
			adverse = out.EntryPrice - b.Low
			favorable = b.High - out.EntryPrice
		} else {
			adverse = b.High - out.EntryPrice
			favorable = out.EntryPrice - b.Low
		}
		if adverse > out.MaxAdverse {
			out.MaxAdverse = adverse
		}
		if favorable > out.MaxFavorable {
			out.MaxFavorable = favorable
		}

		var hitStop, hitTarget bool
		if long {
			hitStop = b.Low <= out.StopPrice
			hitTarget = b.High >= out.TargetPrice
		} else {
			hitStop = b.High >= out.StopPrice
			hitTarget = b.Low <= out.TargetPrice
		}

		if hitStop { // stop wins ties
			out.Resolution = models.ResolutionLoss
			out.OutcomePoints = -out.RiskPoints
			return
		}
		if hitTarget {
			out.Resolution = models.ResolutionWin
			out.OutcomePoints = rule.RewardRisk * out.RiskPoints
			return
		}
	}

	// Open at day end: excluded from expectancy statistics.
	out.Resolution = models.ResolutionUnresolved
	last := day[len(day)-1].Close
	if long {
		out.OutcomePoints = last - out.EntryPrice
	} else {
		out.OutcomePoints = out.EntryPrice - last
	}
}
