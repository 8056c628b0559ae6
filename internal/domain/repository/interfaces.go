package repository

import (
	"context"
	"time"

	"BreakCheck/internal/domain/models"
)

// BarStore supplies historical minute bars. The engine consumes bars through
// this boundary and never touches storage directly.
type BarStore interface {
	// GetBars returns bars for one instrument ordered ascending by timestamp.
	GetBars(ctx context.Context, instrument string, from, to time.Time) ([]models.Bar, error)
	Health(ctx context.Context) error
}

// OutcomeStore persists simulated trade outcomes for audit and display.
// Persistence is a collaborator concern; the engine only returns outcomes.
type OutcomeStore interface {
	StoreOutcomes(ctx context.Context, ruleID string, outcomes []models.TradeOutcome) error
	Close() error
}

// VerdictPublisher announces finished validation runs.
type VerdictPublisher interface {
	Publish(ctx context.Context, ev models.VerdictEvent) error
	Close() error
}

// VerdictCache stores ValidationResults as non-authoritative hints. A cached
// verdict is never trusted as state; it can always be recomputed from bars.
type VerdictCache interface {
	Get(ctx context.Context, ruleID string) (*models.ValidateResponse, error)
	Put(ctx context.Context, ruleID string, res *models.ValidateResponse) error
	Invalidate(ctx context.Context, ruleID string) error
}

// Metrics records operational counters for the surrounding application.
type Metrics interface {
	RecordRunStarted(instrument, window string)
	RecordRunFinished(instrument, window string, classification string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordSimulatedDays(n int)
}
