package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BarkinBalci/behavioral-analytics-service/internal/dto"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConsumerHandler serves the consumer's health probe, live counter channel and metrics
type ConsumerHandler struct {
	store  Pinger
	router *gin.Engine
	log    *zap.Logger
}

func NewConsumerHandler(store Pinger, live http.Handler, gatherer prometheus.Gatherer, log *zap.Logger) *ConsumerHandler {
	h := &ConsumerHandler{
		store:  store,
		router: gin.New(),
		log:    log,
	}

	h.router.Use(gin.Recovery())
	h.router.GET("/health", h.healthCheck)
	h.router.GET("/live", gin.WrapH(live))
	h.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return h
}

func (h *ConsumerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *ConsumerHandler) healthCheck(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		h.log.Warn("Health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, dto.HealthResponse{Status: "unavailable"})
		return
	}
	c.JSON(http.StatusOK, dto.HealthResponse{Status: "ok"})
}
