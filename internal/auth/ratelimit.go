package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/BarkinBalci/behavioral-analytics-service/internal/dto"
)

// RateLimit allows limit requests per window for each API key. Requests
// without a key are counted per client IP. A non-positive limit or window
// disables the limiter.
func RateLimit(limit int, window time.Duration, log *zap.Logger) gin.HandlerFunc {
	if limit <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiter := httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(keyByAPIKey),
		// the gin side writes the 429 body
		httprate.WithLimitHandler(func(http.ResponseWriter, *http.Request) {}),
	)

	return func(c *gin.Context) {
		passed := false
		limiter(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
			c.Next()
		})).ServeHTTP(c.Writer, c.Request)

		if passed {
			return
		}

		log.Warn("Rate limit exceeded",
			zap.String("path", c.FullPath()),
			zap.String("client_ip", c.ClientIP()))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.ErrorResponse{
			Error:   "rate_limited",
			Message: "too many requests, please try again later",
		})
	}
}

func keyByAPIKey(r *http.Request) (string, error) {
	if key := strings.TrimSpace(r.Header.Get(HeaderAPIKey)); key != "" {
		return "key:" + key, nil
	}
	ip, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + ip, nil
}
