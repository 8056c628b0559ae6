package validation

import (
	"context"
	"hash/fnv"
	"math/rand"

	"BreakCheck/internal/domain/models"
	"BreakCheck/internal/services/simulator"
)

type controlOutcome struct {
	win       bool
	realizedR float64
}

type controlComparisonResult struct {
	result models.ControlResult
	stats  models.ControlStats
}

// controlComparison simulates a random-entry population under the same
// instrument, risk, reward:risk and cost structure over the same dates, then
// tests whether the rule's win rate and expectancy exceed the control's with
// chi-square significance. The pass keeps its own accumulators; nothing is
// shared with the rule's simulation.
//
// The PRNG is seeded from the rule fingerprint, so repeated validations of
// the same rule reproduce the same control population.
func (v *Validator) controlComparison(ctx context.Context, rule models.RuleSpec, resolved []models.TradeOutcome, bars []models.Bar) (controlComparisonResult, error) {
	failed := controlComparisonResult{
		result: models.ControlNotSignificant,
		stats:  models.ControlStats{PValue: 1},
	}
	if len(resolved) == 0 || len(bars) == 0 {
		return failed, nil
	}

	baseCost, err := v.costs.PerTradeCost(rule.Instrument, 1.0)
	if err != nil {
		return failed, err
	}

	days := simulator.SplitDays(bars, rule.Window.Location)
	seed := fingerprintSeed(rule.Fingerprint())

	var (
		ctrlWins, ctrlLosses int
		ctrlSumR             float64
	)
	for resample := 0; resample < v.cfg.ControlResamples; resample++ {
		select {
		case <-ctx.Done():
			return failed, ctx.Err()
		default:
		}
		rng := rand.New(rand.NewSource(seed + int64(resample)))
		for _, day := range days {
			o, ok := v.randomEntryDay(rule, day, rng, baseCost)
			if !ok {
				continue
			}
			if o.win {
				ctrlWins++
			} else {
				ctrlLosses++
			}
			ctrlSumR += o.realizedR
		}
	}

	ctrlN := ctrlWins + ctrlLosses
	if ctrlN == 0 {
		return failed, nil
	}
	ctrlWR := float64(ctrlWins) / float64(ctrlN)
	ctrlExp := ctrlSumR / float64(ctrlN)

	ruleWins, ruleLosses := 0, 0
	var ruleSumR float64
	for _, o := range resolved {
		if o.Resolution == models.ResolutionWin {
			ruleWins++
		} else {
			ruleLosses++
		}
		ruleSumR += o.RealizedR
	}
	ruleWR := float64(ruleWins) / float64(len(resolved))
	ruleExp := ruleSumR / float64(len(resolved))

	_, p := chiSquare2x2(float64(ruleWins), float64(ruleLosses), float64(ctrlWins), float64(ctrlLosses))

	res := controlComparisonResult{
		result: models.ControlNotSignificant,
		stats: models.ControlStats{
			SampleSize: ctrlN,
			WinRate:    ctrlWR,
			Expectancy: ctrlExp,
			PValue:     p,
		},
	}
	// Numerically higher is not enough: both margins must hold AND the
	// win/loss split must be significant.
	if ruleWR > ctrlWR && ruleExp > ctrlExp && p < v.cfg.Alpha {
		res.result = models.ControlBeaten
	}
	return res, nil
}

// randomEntryDay places one random (non-rule-based) entry on the day using
// the same opening-range risk geometry, stop mode, reward:risk and cost as
// the rule, then resolves it with the same conservative tie-break.
func (v *Validator) randomEntryDay(rule models.RuleSpec, day []models.Bar, rng *rand.Rand, baseCost float64) (controlOutcome, bool) {
	r, scanFrom, ok := simulator.RangeForDay(day, rule.Window, v.cfg.MinRangeBars)
	if !ok || scanFrom >= len(day) {
		return controlOutcome{}, false
	}

	entryIdx := scanFrom + rng.Intn(len(day)-scanFrom)
	long := rng.Intn(2) == 0
	switch rule.Bias {
	case models.BiasLongOnly:
		long = true
	case models.BiasShortOnly:
		long = false
	}
	entry := day[entryIdx].Open

	var stop float64
	if rule.StopMode == models.StopMidpoint {
		stop = r.Mid()
	} else if long {
		stop = r.Low
	} else {
		stop = r.High
	}

	risk := entry - stop
	if !long {
		risk = stop - entry
	}
	if risk <= 0 {
		return controlOutcome{}, false
	}

	var target float64
	if long {
		target = entry + rule.RewardRisk*risk
	} else {
		target = entry - rule.RewardRisk*risk
	}

	for i := entryIdx; i < len(day); i++ {
		b := day[i]
		var hitStop, hitTarget bool
		if long {
			hitStop = b.Low <= stop
			hitTarget = b.High >= target
		} else {
			hitStop = b.High >= stop
			hitTarget = b.Low <= target
		}
		if hitStop { // stop wins ties, same as the rule path
			rr, err := v.costs.RealizedR(rule.Instrument, -risk, risk, baseCost)
			if err != nil {
				return controlOutcome{}, false
			}
			return controlOutcome{win: false, realizedR: rr}, true
		}
		if hitTarget {
			rr, err := v.costs.RealizedR(rule.Instrument, rule.RewardRisk*risk, risk, baseCost)
			if err != nil {
				return controlOutcome{}, false
			}
			return controlOutcome{win: true, realizedR: rr}, true
		}
	}
	// Unresolved control trades are excluded, matching the rule statistics.
	return controlOutcome{}, false
}

func fingerprintSeed(fp string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(fp))
	return int64(h.Sum64())
}
