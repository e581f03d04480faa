package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/BarkinBalci/behavioral-analytics-service/docs"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/auth"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/domain"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/dto"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/service"
)

const (
	defaultCohort        = "signup"
	defaultRetentionDays = 7
)

// Options bounds what a single caller may send to the authenticated routes
type Options struct {
	RateLimit    int
	RateWindow   time.Duration
	MaxBodyBytes int64
}

type Handler struct {
	eventService     service.EventServicer
	analyticsService service.AnalyticsServicer
	keys             *auth.KeyStore
	gatherer         prometheus.Gatherer
	opts             Options
	router           *gin.Engine
	log              *zap.Logger
}

func NewHandler(eventService service.EventServicer, analyticsService service.AnalyticsServicer, keys *auth.KeyStore, gatherer prometheus.Gatherer, opts Options, log *zap.Logger) *Handler {
	h := &Handler{
		eventService:     eventService,
		analyticsService: analyticsService,
		keys:             keys,
		gatherer:         gatherer,
		opts:             opts,
		router:           gin.Default(),
		log:              log,
	}

	h.registerRoutes()

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", h.healthCheck)
	h.router.GET("/ready", h.readiness)
	h.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	h.router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := h.router.Group("/",
		auth.RateLimit(h.opts.RateLimit, h.opts.RateWindow, h.log),
		limitBody(h.opts.MaxBodyBytes),
		auth.Middleware(h.keys, h.log))
	api.POST("/events", h.submitEvents)
	api.POST("/analytics/funnels", h.funnel)
	api.GET("/analytics/users/:id/journey", h.journey)
	api.GET("/analytics/retention", h.retention)
	api.GET("/analytics/metrics", h.metrics)
}

// healthCheck handles health check requests
// @Summary Health check
// @Description Check if the service is running
// @Tags health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Router /health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{Status: "ok"})
}

// readiness handles readiness probes
// @Summary Readiness check
// @Description Check that the event store is reachable
// @Tags health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Failure 503 {object} dto.HealthResponse
// @Router /ready [get]
func (h *Handler) readiness(c *gin.Context) {
	if err := h.analyticsService.Ready(c.Request.Context()); err != nil {
		h.log.Warn("Readiness check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, dto.HealthResponse{Status: "unavailable"})
		return
	}
	c.JSON(http.StatusOK, dto.HealthResponse{Status: "ok"})
}

// submitEvents handles POST /events
// @Summary Submit a batch of events
// @Description Validate and enqueue up to 10000 events. Events are persisted asynchronously.
// @Tags events
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param events body dto.SubmitEventsRequest true "Events"
// @Success 202 {object} dto.SubmitEventsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 413 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /events [post]
func (h *Handler) submitEvents(c *gin.Context) {
	var req dto.SubmitEventsRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.rejectBody(c, err, "Invalid event batch request")
		return
	}

	resp, err := h.eventService.SubmitBatch(c.Request.Context(), auth.TenantFrom(c), req.Events)
	if err != nil {
		h.respondError(c, err, "Failed to submit events", zap.Int("event_count", len(req.Events)))
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// funnel handles POST /analytics/funnels
// @Summary Compute a conversion funnel
// @Description Count users completing each step of an ordered event sequence
// @Tags analytics
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param funnel body dto.FunnelRequest true "Funnel definition"
// @Success 200 {object} domain.FunnelResult
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /analytics/funnels [post]
func (h *Handler) funnel(c *gin.Context) {
	var req dto.FunnelRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.rejectBody(c, err, "Invalid funnel request")
		return
	}

	tenant, err := auth.Resolve(auth.TenantFrom(c), req.OrgID, req.ProjectID)
	if err != nil {
		h.respondError(c, err, "Funnel request for foreign tenant")
		return
	}

	dateRange, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		h.respondError(c, err, "Invalid funnel date range")
		return
	}

	steps := make([]string, len(req.Steps))
	for i, step := range req.Steps {
		steps[i] = step.Event
	}

	result, err := h.analyticsService.Funnel(c.Request.Context(), domain.FunnelRequest{
		Tenant: tenant,
		Steps:  steps,
		Range:  dateRange,
	})
	if err != nil {
		h.respondError(c, err, "Failed to compute funnel", zap.Strings("steps", steps))
		return
	}

	c.JSON(http.StatusOK, result)
}

// journey handles GET /analytics/users/:id/journey
// @Summary Get a user journey
// @Description List a user's events in time order
// @Tags analytics
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "User ID"
// @Param startDate query string false "Start date (RFC3339 or YYYY-MM-DD)"
// @Param endDate query string false "End date (RFC3339 or YYYY-MM-DD)"
// @Success 200 {array} domain.JourneyEntry
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /analytics/users/{id}/journey [get]
func (h *Handler) journey(c *gin.Context) {
	var req dto.JourneyRequest

	if err := c.ShouldBindQuery(&req); err != nil {
		h.log.Warn("Invalid journey request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	dateRange, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		h.respondError(c, err, "Invalid journey date range")
		return
	}

	userID := c.Param("id")
	journey, err := h.analyticsService.Journey(c.Request.Context(), domain.JourneyQuery{
		Tenant:     auth.TenantFrom(c),
		UserID:     userID,
		Range:      dateRange,
		Properties: propertyFilters(c),
	})
	if err != nil {
		h.respondError(c, err, "Failed to load journey", zap.String("user_id", userID))
		return
	}

	c.JSON(http.StatusOK, journey)
}

// retention handles GET /analytics/retention
// @Summary Compute cohort retention
// @Description Group users by the day of their first cohort event and report activity on each following day
// @Tags analytics
// @Produce json
// @Security ApiKeyAuth
// @Param cohort query string false "Cohort event name" default(signup)
// @Param days query int false "Window in days" default(7)
// @Success 200 {array} domain.RetentionBucket
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /analytics/retention [get]
func (h *Handler) retention(c *gin.Context) {
	req := dto.RetentionRequest{Cohort: defaultCohort, Days: defaultRetentionDays}

	if err := c.ShouldBindQuery(&req); err != nil {
		h.log.Warn("Invalid retention request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	buckets, err := h.analyticsService.Retention(c.Request.Context(), domain.RetentionQuery{
		Tenant:      auth.TenantFrom(c),
		CohortEvent: req.Cohort,
		WindowDays:  req.Days,
	})
	if err != nil {
		h.respondError(c, err, "Failed to compute retention",
			zap.String("cohort", req.Cohort),
			zap.Int("days", req.Days))
		return
	}

	c.JSON(http.StatusOK, buckets)
}

// metrics handles GET /analytics/metrics
// @Summary Get event counts over time
// @Description Count events per day or ISO week. Property filters are passed as prop.<key>=<value>.
// @Tags analytics
// @Produce json
// @Security ApiKeyAuth
// @Param event query string true "Event name" example(purchase)
// @Param interval query string false "Bucket width" Enums(daily, weekly) default(daily)
// @Param userId query string false "Restrict to one user"
// @Param startDate query string false "Start date (RFC3339 or YYYY-MM-DD)"
// @Param endDate query string false "End date (RFC3339 or YYYY-MM-DD)"
// @Success 200 {array} domain.MetricPoint
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /analytics/metrics [get]
func (h *Handler) metrics(c *gin.Context) {
	var req dto.MetricsRequest

	if err := c.ShouldBindQuery(&req); err != nil {
		h.log.Warn("Invalid metrics request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	interval, err := domain.ParseInterval(req.Interval)
	if err != nil {
		h.respondError(c, err, "Invalid metrics interval")
		return
	}

	dateRange, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		h.respondError(c, err, "Invalid metrics date range")
		return
	}

	points, err := h.analyticsService.Metrics(c.Request.Context(), domain.MetricsQuery{
		Tenant:     auth.TenantFrom(c),
		EventName:  req.Event,
		Interval:   interval,
		UserID:     req.UserID,
		Range:      dateRange,
		Properties: propertyFilters(c),
	})
	if err != nil {
		h.respondError(c, err, "Failed to get metrics", zap.String("event_name", req.Event))
		return
	}

	c.JSON(http.StatusOK, points)
}

// limitBody caps request bodies at maxBytes; zero means unlimited
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// rejectBody answers a request whose JSON body could not be bound
func (h *Handler) rejectBody(c *gin.Context, err error, msg string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.log.Warn(msg, zap.Int64("limit_bytes", tooLarge.Limit), zap.Error(err))
		c.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{
			Error:   "payload_too_large",
			Message: err.Error(),
		})
		return
	}

	h.log.Warn(msg, zap.Error(err))
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   "validation_error",
		Message: err.Error(),
	})
}

// respondError maps domain errors to client errors and everything else to 500
func (h *Handler) respondError(c *gin.Context, err error, msg string, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))

	code := errorCode(err)
	if code == "internal_error" {
		h.log.Error(msg, fields...)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   code,
			Message: "internal server error",
		})
		return
	}

	h.log.Warn(msg, fields...)
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   code,
		Message: err.Error(),
	})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidBatch):
		return "invalid_batch"
	case errors.Is(err, domain.ErrValidation):
		return "validation_error"
	case errors.Is(err, domain.ErrTenantMismatch):
		return "tenant_mismatch"
	case errors.Is(err, domain.ErrQuery):
		return "query_error"
	default:
		return "internal_error"
	}
}
