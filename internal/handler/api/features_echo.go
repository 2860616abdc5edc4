package api

import (
	"net/http"
	"time"

	models "FeatureMill/internal/domain/models"
	domrepo "FeatureMill/internal/domain/repository"
	"FeatureMill/internal/schema"
	"FeatureMill/internal/service/ratelimit"
	"FeatureMill/internal/usecase"
	xhttp "FeatureMill/pkg/http"
	xlogger "FeatureMill/pkg/logger"
	xutil "FeatureMill/pkg/util"

	"github.com/labstack/echo/v4"
)

// FeaturesEchoHandler implements Echo-based HTTP handlers following Clean Architecture.
type FeaturesEchoHandler struct {
	logger   *xlogger.Logger
	registry *schema.Registry
	store    domrepo.FeatureStore
	sweeps   *usecase.SweepService
	rl       *ratelimit.Limiter
}

func NewFeaturesEchoHandler(logger *xlogger.Logger, registry *schema.Registry, store domrepo.FeatureStore, sweeps *usecase.SweepService) *FeaturesEchoHandler {
	return &FeaturesEchoHandler{logger: logger, registry: registry, store: store, sweeps: sweeps, rl: ratelimit.New()}
}

func (h *FeaturesEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)
	g := e.Group("/api")
	g.GET("/schema", h.Schema)
	g.GET("/features", h.Features)
	g.GET("/bars", h.Bars)
	g.POST("/sweep", h.SubmitSweep)
	g.GET("/sweep/:id", h.SweepStatus)
}

// Healthz reports storage connectivity.
func (h *FeaturesEchoHandler) Healthz(c echo.Context) error {
	if err := h.store.Health(c.Request().Context()); err != nil {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// Schema exposes the registered logical name to column mapping.
func (h *FeaturesEchoHandler) Schema(c echo.Context) error {
	cols := h.registry.Columns()
	out := make(map[string]interface{}, 2)
	out["columns"] = cols
	out["count"] = len(cols)
	return xhttp.SuccessResponse(c, out)
}

func (h *FeaturesEchoHandler) Features(c echo.Context) error {
	req := &models.FeaturesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from := time.Unix(req.From, 0)
	to := time.Unix(req.To, 0)
	if req.To == 0 {
		to = time.Now()
	}
	from, to = xutil.AlignFromTo(from, to, "5m")

	rows, err := h.store.GetFeatureRows(c.Request().Context(), req.Symbol, from, to, req.Limit)
	if err != nil {
		h.logger.Error("features usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *FeaturesEchoHandler) Bars(c echo.Context) error {
	req := &models.BarsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := domrepo.NormalizeTimeframe(req.TF)

	bars, err := h.store.GetLatestNBars(c.Request().Context(), req.Symbol, req.N, tf)
	if err != nil {
		h.logger.Error("bars usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, bars, int64(len(bars)))
}

func (h *FeaturesEchoHandler) SubmitSweep(c echo.Context) error {
	// Sweeps are expensive; throttle per caller.
	if !h.rl.Allow(c.RealIP()+":sweep", 3, 0.5) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, map[string]string{"error": "rate limited"})
	}
	req := &models.SweepSubmitRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	id, err := h.sweeps.Submit(c.Request().Context(), req.Symbol, time.Unix(req.From, 0), time.Unix(req.To, 0))
	if err != nil {
		h.logger.Error("sweep submit error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	return xhttp.CreatedResponse(c, map[string]string{"id": id})
}

func (h *FeaturesEchoHandler) SweepStatus(c echo.Context) error {
	req := &models.SweepStatusRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	st, ok := h.sweeps.Status(c.Request().Context(), req.ID)
	if !ok {
		return xhttp.NotFoundResponse(c, map[string]string{"id": req.ID})
	}
	return xhttp.SuccessResponse(c, st)
}
