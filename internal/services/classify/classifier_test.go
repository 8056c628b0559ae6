package classify

import (
	"testing"

	"BreakCheck/internal/domain/models"
)

func strongMetrics() models.ValidationMetrics {
	return models.ValidationMetrics{
		SampleSize:    60,
		WinRate:       0.62,
		MeanRealizedR: 0.45,
		MaxDrawdownR:  -1.2,
		Stress25:      models.SubTestPass,
		Stress50:      models.SubTestPass,
		WalkForward:   models.SubTestPass,
		Control:       models.ControlBeaten,
	}
}

func TestStructuralVerdict(t *testing.T) {
	c := New(Thresholds{})
	res := c.Classify(strongMetrics(), models.ExplainYes)

	if res.Signal != models.SignalPresent {
		t.Fatalf("signal: got %s", res.Signal)
	}
	if res.Robustness != models.RobustnessRobust {
		t.Fatalf("robustness: got %s", res.Robustness)
	}
	if res.TradeQuality != models.QualityGood {
		t.Fatalf("quality: got %s", res.TradeQuality)
	}
	if res.Classification != models.ClassRegime {
		t.Fatalf("classification: got %s", res.Classification)
	}
	if !res.CanPromote {
		t.Fatalf("a robust present signal on a full sample must be promotable")
	}
}

func TestSmallSampleOverridesEverything(t *testing.T) {
	c := New(Thresholds{})
	m := strongMetrics()
	m.SampleSize = 15

	res := c.Classify(m, models.ExplainYes)
	if res.Classification != models.ClassDataLimited {
		t.Fatalf("15 resolved trades must classify DATA_LIMITED regardless of metrics, got %s", res.Classification)
	}
	if res.CanPromote {
		t.Fatalf("promotion must re-check the sample floor, not trust the classification order")
	}
}

func TestAbsentSignalBlocksPromotion(t *testing.T) {
	c := New(Thresholds{})
	m := strongMetrics()
	m.Control = models.ControlNotSignificant

	res := c.Classify(m, models.ExplainYes)
	if res.Signal != models.SignalAbsent {
		t.Fatalf("not beating the control means no signal, got %s", res.Signal)
	}
	if res.Classification != models.ClassStructural {
		t.Fatalf("absent signal routes STRUCTURAL, got %s", res.Classification)
	}
	if res.CanPromote {
		t.Fatalf("passing every stress test cannot rescue an absent signal")
	}
}

func TestNegativeExpectancyIsAbsentSignal(t *testing.T) {
	c := New(Thresholds{})
	m := strongMetrics()
	m.MeanRealizedR = -0.05

	if res := c.Classify(m, models.ExplainYes); res.Signal != models.SignalAbsent {
		t.Fatalf("negative expectancy means no signal even when control is beaten, got %s", res.Signal)
	}
}

func TestFragileSignalIsPromotableButNotRobust(t *testing.T) {
	c := New(Thresholds{})
	m := strongMetrics()
	m.Stress50 = models.SubTestFail

	res := c.Classify(m, models.ExplainYes)
	if res.Robustness != models.RobustnessFragile {
		t.Fatalf("2/3 sub-tests is FRAGILE, got %s", res.Robustness)
	}
	if !res.CanPromote {
		t.Fatalf("fragile edges remain promotable; robustness gates the grade, not the gate")
	}
}

func TestAllSubTestsFailingIsOverfit(t *testing.T) {
	c := New(Thresholds{})
	m := strongMetrics()
	m.Stress25 = models.SubTestFail
	m.Stress50 = models.SubTestFail
	m.WalkForward = models.SubTestFail

	res := c.Classify(m, models.ExplainYes)
	if res.Robustness != models.RobustnessNone {
		t.Fatalf("robustness: got %s", res.Robustness)
	}
	if res.Classification != models.ClassOverfit {
		t.Fatalf("present-but-unstable signal routes OVERFIT, got %s", res.Classification)
	}
	if res.CanPromote {
		t.Fatalf("zero robustness must block promotion")
	}
}

func TestDrawdownFloorDegradesQuality(t *testing.T) {
	c := New(Thresholds{})
	m := strongMetrics()
	m.MaxDrawdownR = -3.5

	res := c.Classify(m, models.ExplainYes)
	if res.TradeQuality != models.QualityPoor {
		t.Fatalf("a -3.5R drawdown breaches the floor, got %s", res.TradeQuality)
	}
	// quality grades the edge; it does not gate promotion
	if !res.CanPromote {
		t.Fatalf("poor quality alone must not block promotion")
	}
}

func TestEmptyExplainabilityDefaultsUnclear(t *testing.T) {
	c := New(Thresholds{})
	if res := c.Classify(strongMetrics(), ""); res.Explainability != models.ExplainUnclear {
		t.Fatalf("explainability default: got %s", res.Explainability)
	}
}

// TestClassificationTotality drives every combination of the discrete inputs
// through the classifier and checks a verdict always comes back.
func TestClassificationTotality(t *testing.T) {
	c := New(Thresholds{})
	subs := []models.SubTestResult{models.SubTestPass, models.SubTestFail}
	ctrls := []models.ControlResult{models.ControlBeaten, models.ControlNotSignificant}
	samples := []int{0, 15, 30, 200}
	means := []float64{-0.5, 0, 0.4}

	valid := map[models.Classification]bool{
		models.ClassStructural:  true,
		models.ClassOverfit:     true,
		models.ClassRegime:      true,
		models.ClassDataLimited: true,
	}
	for _, s25 := range subs {
		for _, s50 := range subs {
			for _, wf := range subs {
				for _, ctrl := range ctrls {
					for _, n := range samples {
						for _, mean := range means {
							m := models.ValidationMetrics{
								SampleSize:    n,
								MeanRealizedR: mean,
								MaxDrawdownR:  -1,
								Stress25:      s25,
								Stress50:      s50,
								WalkForward:   wf,
								Control:       ctrl,
							}
							res := c.Classify(m, models.ExplainYes)
							if !valid[res.Classification] {
								t.Fatalf("unclassified input %+v -> %q", m, res.Classification)
							}
							if n < 30 && res.CanPromote {
								t.Fatalf("promotion below the sample floor: %+v", m)
							}
						}
					}
				}
			}
		}
	}
}

func TestCustomThresholds(t *testing.T) {
	c := New(Thresholds{MinSampleSize: 10, DrawdownFloorR: -5})
	m := strongMetrics()
	m.SampleSize = 12
	m.MaxDrawdownR = -4

	res := c.Classify(m, models.ExplainYes)
	if res.Classification == models.ClassDataLimited {
		t.Fatalf("12 trades clears a floor of 10")
	}
	if res.TradeQuality != models.QualityGood {
		t.Fatalf("-4R clears a floor of -5, got %s", res.TradeQuality)
	}
}
