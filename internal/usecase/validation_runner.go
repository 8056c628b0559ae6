package usecase

import (
	"context"
	"fmt"
	"time"

	"BreakCheck/internal/domain/models"
	domrepo "BreakCheck/internal/domain/repository"
	domservice "BreakCheck/internal/domain/service"
	applogger "BreakCheck/pkg/logger"
	xutil "BreakCheck/pkg/util"
)

// ProgressSink receives run progress for live dashboards. A nil sink is
// valid; progress is best-effort and never blocks the run.
type ProgressSink interface {
	Broadcast(ev models.ProgressEvent)
}

// ValidationRunner orchestrates one full validation run: load bars, simulate,
// validate, classify, persist, publish. The engine stays pure; every side
// effect lives here behind a repository interface.
type ValidationRunner struct {
	bars      domrepo.BarStore
	builder   domservice.OutcomeBuilder
	validator domservice.Validator
	classify  domservice.Classifier
	outcomes  domrepo.OutcomeStore
	verdicts  domrepo.VerdictPublisher
	cache     domrepo.VerdictCache
	metrics   domrepo.Metrics
	progress  ProgressSink
	logger    *applogger.Logger
	loc       *time.Location
}

// RunnerOption configures optional collaborators.
type RunnerOption func(*ValidationRunner)

// WithOutcomeStore persists simulated outcomes after each run.
func WithOutcomeStore(s domrepo.OutcomeStore) RunnerOption {
	return func(r *ValidationRunner) { r.outcomes = s }
}

// WithVerdictPublisher announces finished runs.
func WithVerdictPublisher(p domrepo.VerdictPublisher) RunnerOption {
	return func(r *ValidationRunner) { r.verdicts = p }
}

// WithVerdictCache short-circuits repeat requests with cached hints.
func WithVerdictCache(c domrepo.VerdictCache) RunnerOption {
	return func(r *ValidationRunner) { r.cache = c }
}

// WithProgressSink streams run progress.
func WithProgressSink(s ProgressSink) RunnerOption {
	return func(r *ValidationRunner) { r.progress = s }
}

// WithLocation sets the session timezone used to anchor opening-range
// windows. Defaults to UTC.
func WithLocation(loc *time.Location) RunnerOption {
	return func(r *ValidationRunner) { r.loc = loc }
}

// NewValidationRunner creates the runner. bars, builder, validator, classify
// and metrics are required; the rest are optional collaborators.
func NewValidationRunner(
	bars domrepo.BarStore,
	builder domservice.OutcomeBuilder,
	validator domservice.Validator,
	classify domservice.Classifier,
	metrics domrepo.Metrics,
	logger *applogger.Logger,
	opts ...RunnerOption,
) (*ValidationRunner, error) {
	if bars == nil || builder == nil || validator == nil || classify == nil {
		return nil, fmt.Errorf("validation runner: missing required collaborator")
	}
	r := &ValidationRunner{
		bars:      bars,
		builder:   builder,
		validator: validator,
		classify:  classify,
		metrics:   metrics,
		logger:    logger,
		loc:       time.UTC,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run executes a validation request end to end and returns the full response.
// A cache hit returns the previous verdict with Cached=true; cache misses and
// cache failures both fall through to a fresh run.
func (r *ValidationRunner) Run(ctx context.Context, req *models.ValidateRequest) (*models.ValidateResponse, error) {
	rule, from, to, err := r.ruleFromRequest(req)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if hit, cerr := r.cache.Get(ctx, rule.ID); cerr == nil && hit != nil {
			hit.Cached = true
			return hit, nil
		} else if cerr != nil {
			r.warn("verdict cache get failed", applogger.String("rule_id", rule.ID), applogger.Error(cerr))
		}
	}

	if r.metrics != nil {
		r.metrics.RecordRunStarted(rule.Instrument, rule.Window.Label)
	}
	runStart := time.Now()

	bars, err := r.bars.GetBars(ctx, rule.Instrument, from, to)
	if err != nil {
		r.recordError("bar_load")
		return nil, fmt.Errorf("load bars: %w", err)
	}

	r.broadcast(models.ProgressEvent{RuleID: rule.ID, Stage: "simulate"})
	outcomes, err := r.builder.Build(ctx, rule, bars)
	if err != nil {
		r.recordError("simulate")
		return nil, fmt.Errorf("simulate: %w", err)
	}
	if r.metrics != nil {
		r.metrics.RecordSimulatedDays(len(outcomes))
	}

	r.broadcast(models.ProgressEvent{RuleID: rule.ID, Stage: "validate", DaysDone: len(outcomes), DaysTotal: len(outcomes)})
	m, err := r.validator.Validate(ctx, rule, outcomes, bars)
	if err != nil {
		r.recordError("validate")
		return nil, fmt.Errorf("validate: %w", err)
	}

	r.broadcast(models.ProgressEvent{RuleID: rule.ID, Stage: "classify", DaysDone: len(outcomes), DaysTotal: len(outcomes)})
	result := r.classify.Classify(m, models.Explainability(req.Explainability))

	res := &models.ValidateResponse{
		RuleID:   rule.ID,
		Metrics:  m,
		Result:   result,
		Outcomes: outcomes,
	}

	// Side effects after the verdict is computed. Each is independent and a
	// failure degrades that concern only, never the verdict.
	if r.outcomes != nil {
		if serr := r.outcomes.StoreOutcomes(ctx, rule.ID, outcomes); serr != nil {
			r.recordError("outcome_store")
			r.warn("outcome store failed", applogger.String("rule_id", rule.ID), applogger.Error(serr))
		}
	}
	if r.cache != nil {
		if cerr := r.cache.Put(ctx, rule.ID, res); cerr != nil {
			r.recordError("verdict_cache")
			r.warn("verdict cache put failed", applogger.String("rule_id", rule.ID), applogger.Error(cerr))
		}
	}
	if r.verdicts != nil {
		ev := models.VerdictEvent{
			RuleID:         rule.ID,
			Instrument:     rule.Instrument,
			Window:         rule.Window.Label,
			Classification: result.Classification,
			CanPromote:     result.CanPromote,
			SampleSize:     m.SampleSize,
			MeanRealizedR:  m.MeanRealizedR,
		}
		if perr := r.verdicts.Publish(ctx, ev); perr != nil {
			r.recordError("verdict_publish")
			r.warn("verdict publish failed", applogger.String("rule_id", rule.ID), applogger.Error(perr))
		}
	}

	if r.metrics != nil {
		r.metrics.RecordRunFinished(rule.Instrument, rule.Window.Label, string(result.Classification))
		r.metrics.RecordLatency("validation_run_seconds", time.Since(runStart).Seconds())
	}
	r.broadcast(models.ProgressEvent{RuleID: rule.ID, Stage: "done", DaysDone: len(outcomes), DaysTotal: len(outcomes)})

	if r.logger != nil {
		r.logger.Info("validation run finished",
			applogger.String("rule_id", rule.ID),
			applogger.String("instrument", rule.Instrument),
			applogger.String("window", rule.Window.Label),
			applogger.String("classification", string(result.Classification)),
			applogger.Bool("can_promote", result.CanPromote),
			applogger.Int("sample_size", m.SampleSize),
			applogger.Float64("mean_realized_r", m.MeanRealizedR),
			applogger.Duration("duration_ms", time.Since(runStart)),
		)
	}
	return res, nil
}

// Invalidate drops a rule's cached verdict so the next request recomputes.
func (r *ValidationRunner) Invalidate(ctx context.Context, ruleID string) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Invalidate(ctx, ruleID)
}

func (r *ValidationRunner) ruleFromRequest(req *models.ValidateRequest) (models.RuleSpec, time.Time, time.Time, error) {
	from, ok := xutil.ParseTime(req.From)
	if !ok {
		return models.RuleSpec{}, time.Time{}, time.Time{}, fmt.Errorf("invalid from time %q", req.From)
	}
	to, ok := xutil.ParseTime(req.To)
	if !ok {
		return models.RuleSpec{}, time.Time{}, time.Time{}, fmt.Errorf("invalid to time %q", req.To)
	}
	if !to.After(from) {
		return models.RuleSpec{}, time.Time{}, time.Time{}, fmt.Errorf("to must be after from")
	}
	from, to = xutil.AlignDayRange(from, to, r.loc)

	if len(req.WindowLabel) != 4 {
		return models.RuleSpec{}, time.Time{}, time.Time{}, fmt.Errorf("invalid window label %q: want 4-digit local start time", req.WindowLabel)
	}
	hour := xutil.ParseIntDefault(req.WindowLabel[:2], -1)
	minute := xutil.ParseIntDefault(req.WindowLabel[2:], -1)
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return models.RuleSpec{}, time.Time{}, time.Time{}, fmt.Errorf("invalid window label %q", req.WindowLabel)
	}

	rule := models.RuleSpec{
		ID:         req.RuleID,
		Instrument: req.Instrument,
		Window: models.OpeningRangeWindow{
			Label:    req.WindowLabel,
			Start:    models.DayTime{Hour: hour, Minute: minute},
			Duration: time.Duration(req.WindowMins) * time.Minute,
			Location: r.loc,
		},
		Bias:       models.DirectionBias(req.Bias),
		RewardRisk: req.RewardRisk,
		StopMode:   models.StopMode(req.StopMode),
		EntryMode:  models.EntryMode(req.EntryMode),
		RangeFilter: models.RangeFilter{
			MinFraction: req.MinRangeFrac,
			MaxFraction: req.MaxRangeFrac,
			Reference:   req.RangeRef,
		},
	}
	return rule, from, to, nil
}

func (r *ValidationRunner) broadcast(ev models.ProgressEvent) {
	if r.progress != nil {
		r.progress.Broadcast(ev)
	}
}

func (r *ValidationRunner) recordError(kind string) {
	if r.metrics != nil {
		r.metrics.RecordError(kind)
	}
}

func (r *ValidationRunner) warn(msg string, fields ...applogger.Field) {
	if r.logger != nil {
		r.logger.Warn(msg, fields...)
	}
}
