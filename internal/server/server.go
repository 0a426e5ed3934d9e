// Package server exposes the emergency detector over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Skufu/carealert/internal/emergency"
	"github.com/Skufu/carealert/internal/store"
)

const maxBodyBytes = 1 << 20

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type HistoryStore interface {
	EmergencyHistory(ctx context.Context, sessionID string, limit int) ([]store.EmergencyLog, error)
}

// Options wires the router. DB and History may be nil when persistence
// is disabled; an empty AdminSecret leaves the admin routes unregistered.
type Options struct {
	Detector       *emergency.Detector
	DB             HealthChecker
	History        HistoryStore
	Logger         zerolog.Logger
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	AdminSecret    []byte
}

func NewRouter(opts Options) *gin.Engine {
	if opts.Detector == nil {
		opts.Detector = emergency.NewDetector(emergency.Config{Logger: opts.Logger})
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	h := &handlers{
		detector: opts.Detector,
		history:  opts.History,
		logger:   opts.Logger,
	}

	router := gin.New()
	router.Use(
		requestID(),
		requestLogger(opts.Logger),
		gin.Recovery(),
		limitBodySize(maxBodyBytes),
		cors.New(cors.Config{
			AllowOrigins:  origins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", headerSessionID, headerRequestID},
			ExposeHeaders: []string{headerSessionID, headerRequestID},
			MaxAge:        12 * time.Hour,
		}),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", readyz(opts.DB))

	limited := router.Group("/", rateLimit(opts.RateLimitRPS, opts.RateLimitBurst))
	limited.POST("/api/emergency/check", h.checkEmergency)
	limited.POST("/check-emergency", h.checkEmergency)
	limited.GET("/api/emergency/history", h.emergencyHistory)

	if len(opts.AdminSecret) > 0 {
		admin := limited.Group("/api/admin", requireAdmin(opts.AdminSecret))
		admin.GET("/emergency-rules", h.getRules)
		admin.POST("/emergency-rules", h.updateRules)
	}

	return router
}

func readyz(db HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "disabled"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "degraded",
				"db":     fmt.Sprintf("unhealthy: %v", err),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "ok"})
	}
}
