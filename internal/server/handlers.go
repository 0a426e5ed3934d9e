package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Skufu/carealert/internal/emergency"
	"github.com/Skufu/carealert/internal/store"
)

type handlers struct {
	detector *emergency.Detector
	history  HistoryStore
	logger   zerolog.Logger
}

type checkRequest struct {
	Symptoms   []string              `json:"symptoms"`
	Prediction *emergency.Prediction `json:"prediction"`

	// accepted from older clients
	PredictionResult *emergency.Prediction `json:"prediction_result"`
}

func (r *checkRequest) prediction() *emergency.Prediction {
	if r.Prediction != nil {
		return r.Prediction
	}
	return r.PredictionResult
}

type updateRulesRequest struct {
	CriticalSymptoms []string   `json:"criticalSymptoms"`
	Combinations     [][]string `json:"combinations"`
}

// checkEmergency always answers 200 once the payload is readable; a failed
// detection is reported through the response's success flag.
func (h *handlers) checkEmergency(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	prediction := req.prediction()
	if len(req.Symptoms) == 0 && prediction == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symptoms or prediction required"})
		return
	}

	session := c.GetHeader(headerSessionID)
	if session == "" {
		session = uuid.NewString()
	}
	c.Header(headerSessionID, session)

	resp, outcome := h.detector.Detect(c.Request.Context(), session, req.Symptoms, prediction)
	if outcome.Err != nil {
		h.logger.Warn().Err(outcome.Err).Str("request_id", c.GetString(ctxRequestID)).Msg("emergency not persisted")
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) emergencyHistory(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "emergency history unavailable: database disabled"})
		return
	}

	limit := store.DefaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = store.ClampLimit(n)
	}

	session := c.GetHeader(headerSessionID)
	if session == "" {
		session = emergency.DefaultSessionID
	}

	logs, err := h.history.EmergencyHistory(c.Request.Context(), session, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("session", session).Msg("failed to load emergency history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load emergency history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionId": session, "emergencies": logs})
}

func (h *handlers) getRules(c *gin.Context) {
	c.JSON(http.StatusOK, h.detector.Rules().Snapshot().Summary())
}

func (h *handlers) updateRules(c *gin.Context) {
	var req updateRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid payload"})
		return
	}

	if err := h.detector.Rules().Update(req.CriticalSymptoms, req.Combinations); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, emergency.ErrNoRules) || errors.Is(err, emergency.ErrEmptyCombination) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"success": false, "error": err.Error()})
		return
	}

	h.logger.Info().
		Str("admin", c.GetString(ctxAdminSubject)).
		Int("critical", len(req.CriticalSymptoms)).
		Int("combinations", len(req.Combinations)).
		Msg("emergency rules updated")
	c.JSON(http.StatusOK, gin.H{"success": true})
}
