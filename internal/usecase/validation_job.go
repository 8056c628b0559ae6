package usecase

import (
	"context"
	"fmt"

	"BreakCheck/internal/domain/models"
	xhttp "BreakCheck/pkg/http"
	applogger "BreakCheck/pkg/logger"
	"BreakCheck/pkg/queue"
)

// ValidationJobType routes queued async validation requests to ValidationJob.
const ValidationJobType = "rule.validate"

// ValidationJob runs queued validation requests from the Redis job queue.
// The async HTTP endpoint enqueues; workers pick up here. Queue retries cover
// transient storage failures, so Handle returns errors unfiltered.
type ValidationJob struct {
	runner *ValidationRunner
	logger *applogger.Logger
}

func NewValidationJob(runner *ValidationRunner, logger *applogger.Logger) *ValidationJob {
	return &ValidationJob{runner: runner, logger: logger}
}

func (j *ValidationJob) Name() string { return "validation_run" }
func (j *ValidationJob) Type() string { return ValidationJobType }

func (j *ValidationJob) Handle(ctx context.Context, payload interface{}) error {
	req, err := queue.ParsePayload[models.ValidateRequest](payload)
	if err != nil {
		return err
	}
	// Queued payloads skip Echo binding, so defaults and validation run here.
	if err := xhttp.PrepareRequest(ctx, req); err != nil {
		return fmt.Errorf("invalid queued request %s: %w", req.RuleID, err)
	}
	res, err := j.runner.Run(ctx, req)
	if err != nil {
		return err
	}
	if j.logger != nil {
		j.logger.Info("queued validation finished",
			applogger.String("rule_id", req.RuleID),
			applogger.String("classification", string(res.Result.Classification)),
		)
	}
	return nil
}

var _ queue.Job = (*ValidationJob)(nil)
