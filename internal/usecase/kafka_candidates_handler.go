package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"BreakCheck/internal/domain/models"
	domrepo "BreakCheck/internal/domain/repository"
	xhttp "BreakCheck/pkg/http"
	pkgkafka "BreakCheck/pkg/kafka"
	applogger "BreakCheck/pkg/logger"
)

// KafkaCandidatesHandler consumes candidate-rule messages and runs them
// through the validation pipeline. Malformed payloads are permanent failures
// and must not be retried; they surface as errors so the consumer's DLQ path
// takes them.
type KafkaCandidatesHandler struct {
	topic   string
	runner  *ValidationRunner
	metrics domrepo.Metrics
	logger  *applogger.Logger
}

func NewKafkaCandidatesHandler(topic string, runner *ValidationRunner, metrics domrepo.Metrics, logger *applogger.Logger) *KafkaCandidatesHandler {
	return &KafkaCandidatesHandler{topic: topic, runner: runner, metrics: metrics, logger: logger}
}

func (h *KafkaCandidatesHandler) Topic() string { return h.topic }

// Handle parses one ValidateRequest and runs it synchronously. The consumer's
// worker pool provides the concurrency; one run per message keeps offset
// commits aligned with completed work.
func (h *KafkaCandidatesHandler) Handle(ctx context.Context, b []byte) error {
	var req models.ValidateRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.metrics.RecordError("candidate_unmarshal")
		return fmt.Errorf("unmarshal candidate: %w", err)
	}
	// Kafka payloads skip Echo binding, so defaults and validation run here.
	if err := xhttp.PrepareRequest(ctx, &req); err != nil {
		h.metrics.RecordError("candidate_invalid")
		return fmt.Errorf("invalid candidate %s: %w", req.RuleID, err)
	}

	res, err := h.runner.Run(ctx, &req)
	if err != nil {
		h.metrics.RecordError("candidate_run")
		return fmt.Errorf("run candidate %s: %w", req.RuleID, err)
	}

	if h.logger != nil {
		h.logger.Info("candidate processed",
			applogger.String("rule_id", req.RuleID),
			applogger.String("classification", string(res.Result.Classification)),
			applogger.Bool("cached", res.Cached),
		)
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaCandidatesHandler)(nil)
