package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sony/gobreaker"

	models "FinWalk/internal/domain/models"
	"FinWalk/internal/service/metrics"
	"FinWalk/internal/service/ratelimit"
	"FinWalk/internal/services/walkforward"
	"FinWalk/internal/usecase"
	xhttp "FinWalk/pkg/http"
	xlogger "FinWalk/pkg/logger"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// WalkForwardEchoHandler serves the walk-forward API.
type WalkForwardEchoHandler struct {
	logger     *xlogger.Logger
	uc         *usecase.WalkForwardUseCase
	rl         *ratelimit.Limiter
	runTimeout time.Duration
	checks     map[string]HealthCheck
}

func NewWalkForwardEchoHandler(logger *xlogger.Logger, uc *usecase.WalkForwardUseCase, rl *ratelimit.Limiter, runTimeout time.Duration) *WalkForwardEchoHandler {
	metrics.Register()
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &WalkForwardEchoHandler{
		logger:     logger,
		uc:         uc,
		rl:         rl,
		runTimeout: runTimeout,
		checks:     make(map[string]HealthCheck),
	}
}

// AddHealthCheck registers a dependency probe reported by /healthz.
func (h *WalkForwardEchoHandler) AddHealthCheck(name string, check HealthCheck) {
	h.checks[name] = check
}

func (h *WalkForwardEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api/walkforward")
	g.POST("", h.Run)
	g.GET("/grid", h.Grid)
}

func (h *WalkForwardEchoHandler) Run(c echo.Context) error {
	const endpoint = "walkforward"
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	if h.rl != nil && !h.rl.Allow(c.RealIP()+":"+endpoint) {
		metrics.APIRateLimited.WithLabelValues(endpoint).Inc()
		h.logger.Warn("walkforward rate limited", xlogger.String("remote", c.RealIP()))
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limited"))
	}

	req := &models.WalkForwardRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.APIErrors.WithLabelValues(endpoint, "bad_request").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	if h.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.runTimeout)
		defer cancel()
	}

	res, err := h.uc.Run(ctx, req)
	if err != nil {
		appErr := toAppError(err)
		metrics.APIErrors.WithLabelValues(endpoint, appErr.Code).Inc()
		if appErr.Status >= http.StatusInternalServerError {
			h.logger.Error("walkforward usecase error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, appErr)
	}
	return xhttp.SuccessResponse(c, models.NewRunReport(res, req.IncludeScores))
}

func (h *WalkForwardEchoHandler) Grid(c echo.Context) error {
	const endpoint = "grid"
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.GridRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.APIErrors.WithLabelValues(endpoint, "bad_request").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}
	preview, err := h.uc.PreviewGrid(req)
	if err != nil {
		appErr := toAppError(err)
		metrics.APIErrors.WithLabelValues(endpoint, appErr.Code).Inc()
		return xhttp.AppErrorResponse(c, appErr)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=300")
	return xhttp.SuccessResponse(c, preview)
}

func (h *WalkForwardEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}
	return xhttp.DataResponse(c, status, deps)
}

// toAppError maps engine and use case errors onto HTTP errors.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	switch {
	case errors.Is(err, usecase.ErrNoData):
		appErr = xhttp.NotFoundError(err.Error())
	case errors.Is(err, usecase.ErrNoStore), errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		appErr = xhttp.ServiceUnavailableError(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		appErr = xhttp.GatewayTimeoutError("walk-forward run timed out")
	case errors.Is(err, walkforward.ErrInvalidConfig),
		errors.Is(err, walkforward.ErrInsufficientData),
		errors.Is(err, walkforward.ErrEmptyGrid),
		errors.Is(err, walkforward.ErrGridTooLarge):
		appErr = xhttp.BadRequestError(err.Error())
		appErr.Code = "ERR_" + strings.ToUpper(walkforward.ErrorKind(err))
	case errors.Is(err, walkforward.ErrNoValidSelection), errors.Is(err, walkforward.ErrMisalignedInput):
		appErr = xhttp.UnprocessableError(err.Error())
		appErr.Code = "ERR_" + strings.ToUpper(walkforward.ErrorKind(err))
	default:
		appErr = xhttp.InternalError("walk-forward run failed")
	}
	var ic *walkforward.InvalidConfigError
	if errors.As(err, &ic) {
		appErr.Field = ic.Field
	}
	return appErr.WithError(err)
}
