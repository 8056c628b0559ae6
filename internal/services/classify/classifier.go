package classify

import "BreakCheck/internal/domain/models"

// Thresholds tune the classifier's floors. Zero values select the defaults.
type Thresholds struct {
	// MinSampleSize is the resolved-trade floor below which everything is
	// DATA_LIMITED.
	MinSampleSize int
	// DrawdownFloorR is the worst acceptable cumulative drawdown, in R,
	// for GOOD trade quality.
	DrawdownFloorR float64
}

func (t Thresholds) withDefaults() Thresholds {
	if t.MinSampleSize == 0 {
		t.MinSampleSize = 30
	}
	if t.DrawdownFloorR == 0 {
		t.DrawdownFloorR = -3.0
	}
	return t
}

// Classifier maps ValidationMetrics onto four independent graded layers and
// a single routing classification. It is a pure function of its inputs:
// classify twice, get the same verdict twice.
type Classifier struct {
	t Thresholds
}

// New creates a Classifier.
func New(t Thresholds) *Classifier {
	return &Classifier{t: t.withDefaults()}
}

// Classify derives the verdict. The explainability layer is externally
// supplied human judgment; an empty value defaults to UNCLEAR.
func (c *Classifier) Classify(m models.ValidationMetrics, explain models.Explainability) models.ValidationResult {
	if explain == "" {
		explain = models.ExplainUnclear
	}

	signal := models.SignalAbsent
	if m.MeanRealizedR > 0 && m.Control == models.ControlBeaten {
		signal = models.SignalPresent
	}

	passes := 0
	for _, st := range []models.SubTestResult{m.Stress25, m.Stress50, m.WalkForward} {
		if st == models.SubTestPass {
			passes++
		}
	}
	robustness := models.RobustnessNone
	switch {
	case passes == 3:
		robustness = models.RobustnessRobust
	case passes >= 1:
		robustness = models.RobustnessFragile
	}

	quality := models.QualityPoor
	if m.SampleSize >= c.t.MinSampleSize && m.MaxDrawdownR > c.t.DrawdownFloorR {
		quality = models.QualityGood
	}

	// Priority order: an insufficient sample short-circuits every other
	// judgment; a missing signal means no edge to protect; a present but
	// unstable edge is overfit; what remains is conditionally stable.
	var class models.Classification
	switch {
	case m.SampleSize < c.t.MinSampleSize:
		class = models.ClassDataLimited
	case signal == models.SignalAbsent:
		class = models.ClassStructural
	case robustness == models.RobustnessNone:
		class = models.ClassOverfit
	default:
		class = models.ClassRegime
	}

	// The sample-size gate is repeated here on purpose: DATA_LIMITED is
	// decided before Signal is meaningful, so promotion must re-check the
	// floor rather than trust the classification order.
	canPromote := signal == models.SignalPresent &&
		(robustness == models.RobustnessFragile || robustness == models.RobustnessRobust) &&
		m.SampleSize >= c.t.MinSampleSize

	return models.ValidationResult{
		Signal:         signal,
		Robustness:     robustness,
		TradeQuality:   quality,
		Explainability: explain,
		Classification: class,
		CanPromote:     canPromote,
	}
}
