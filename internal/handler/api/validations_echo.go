package api

import (
	"net/http"

	models "BreakCheck/internal/domain/models"
	"BreakCheck/internal/usecase"
	xhttp "BreakCheck/pkg/http"
	xlogger "BreakCheck/pkg/logger"
	"BreakCheck/pkg/queue"

	"github.com/labstack/echo/v4"
)

// ValidationsEchoHandler exposes the validation engine over HTTP. Synchronous
// runs return the full verdict; async runs enqueue and return 202.
type ValidationsEchoHandler struct {
	logger *xlogger.Logger
	runner *usecase.ValidationRunner
	jobs   queue.QueueService
	health func(c echo.Context) error
}

// HandlerOption configures optional collaborators.
type HandlerOption func(*ValidationsEchoHandler)

// WithJobQueue enables the async submission endpoint.
func WithJobQueue(q queue.QueueService) HandlerOption {
	return func(h *ValidationsEchoHandler) { h.jobs = q }
}

// WithHealthCheck sets the /healthz handler.
func WithHealthCheck(f func(c echo.Context) error) HandlerOption {
	return func(h *ValidationsEchoHandler) { h.health = f }
}

func NewValidationsEchoHandler(logger *xlogger.Logger, runner *usecase.ValidationRunner, opts ...HandlerOption) *ValidationsEchoHandler {
	h := &ValidationsEchoHandler{logger: logger, runner: runner}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *ValidationsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.POST("/validations", h.Validate)
	g.POST("/validations/async", h.ValidateAsync)
	g.DELETE("/validations/:rule_id/cache", h.InvalidateCache)
	if h.health != nil {
		e.GET("/healthz", h.health)
	}
}

// Validate runs a full validation synchronously and returns the verdict.
func (h *ValidationsEchoHandler) Validate(c echo.Context) error {
	req := &models.ValidateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.runner.Run(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("validation run error",
			xlogger.String("rule_id", req.RuleID),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// ValidateAsync enqueues a validation run and returns immediately. The
// verdict arrives on the verdicts topic and the progress socket.
func (h *ValidationsEchoHandler) ValidateAsync(c echo.Context) error {
	if h.jobs == nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("async validation is not enabled"))
	}
	req := &models.ValidateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if err := h.jobs.PublishMessage(c.Request().Context(), usecase.ValidationJobType, req); err != nil {
		h.logger.Error("validation enqueue error",
			xlogger.String("rule_id", req.RuleID),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.DataResponse(c, http.StatusAccepted, map[string]string{"rule_id": req.RuleID, "status": "queued"})
}

// InvalidateCache drops a cached verdict so the next request recomputes.
func (h *ValidationsEchoHandler) InvalidateCache(c echo.Context) error {
	ruleID := c.Param("rule_id")
	if ruleID == "" {
		return xhttp.BadRequestResponse(c, "rule_id is required")
	}
	if err := h.runner.Invalidate(c.Request().Context(), ruleID); err != nil {
		h.logger.Error("cache invalidate error", xlogger.String("rule_id", ruleID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.NoContentResponse(c)
}
