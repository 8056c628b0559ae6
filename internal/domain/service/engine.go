package service

import (
	"context"

	"BreakCheck/internal/domain/models"
)

// Simulator replays a rule's entry/stop/target logic over historical bars,
// producing at most one outcome per trading day.
type Simulator interface {
	SimulateDay(rule models.RuleSpec, day []models.Bar) (models.TradeOutcome, error)
}

// OutcomeBuilder drives the simulator across a full historical range.
type OutcomeBuilder interface {
	Build(ctx context.Context, rule models.RuleSpec, bars []models.Bar) ([]models.TradeOutcome, error)
}

// Validator aggregates an outcome set into ValidationMetrics.
type Validator interface {
	Validate(ctx context.Context, rule models.RuleSpec, outcomes []models.TradeOutcome, bars []models.Bar) (models.ValidationMetrics, error)
}

// Classifier derives the graded verdict from metrics plus the externally
// supplied explainability judgment.
type Classifier interface {
	Classify(m models.ValidationMetrics, explain models.Explainability) models.ValidationResult
}
