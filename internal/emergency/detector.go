// Package emergency decides whether reported symptoms, optionally combined
// with a disease prediction, amount to a medical emergency.
package emergency

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/rs/zerolog"
)

// DefaultSessionID is used when the caller has no session to attribute an
// emergency log to.
const DefaultSessionID = "default_session"

// LogEntry is what the detector records for a detected emergency.
type LogEntry struct {
	SessionID       string
	Symptoms        []string
	EmergencyType   string
	SeverityLevel   string
	AmbulanceCalled bool
}

// LogSink persists emergency events. The returned id is informational.
type LogSink interface {
	LogEmergency(ctx context.Context, entry LogEntry) (int64, error)
}

// LogOutcome describes what happened to the best-effort emergency log.
// It never influences the Response; callers that do not care discard it.
type LogOutcome struct {
	RecordID int64
	Err      error
	Skipped  bool
}

// Config wires a Detector. Zero fields fall back to the defaults.
type Config struct {
	Rules      *RuleSet
	Thresholds Thresholds
	Contacts   map[string]string
	Sink       LogSink
	Logger     zerolog.Logger
	Now        func() time.Time
}

// Detector combines rule matching with the classifier signal. It is safe
// for concurrent use.
type Detector struct {
	rules      *RuleSet
	thresholds Thresholds
	contacts   map[string]string
	sink       LogSink
	logger     zerolog.Logger
	now        func() time.Time
}

func NewDetector(cfg Config) *Detector {
	if cfg.Rules == nil {
		cfg.Rules = NewRuleSet(nil)
	}
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}
	if cfg.Contacts == nil {
		cfg.Contacts = DefaultContacts()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Detector{
		rules:      cfg.Rules,
		thresholds: cfg.Thresholds,
		contacts:   maps.Clone(cfg.Contacts),
		sink:       cfg.Sink,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}
}

// Rules exposes the rule set for administrative updates.
func (d *Detector) Rules() *RuleSet {
	return d.rules
}

// Contacts returns a copy of the emergency contact book.
func (d *Detector) Contacts() map[string]string {
	return maps.Clone(d.contacts)
}

// Detect assesses symptoms and an optional prediction. It never returns an
// error: any failure produces the safe default response with Success false.
// When an emergency is found it is logged to the sink; the outcome of that
// call is returned separately and does not affect the response.
func (d *Detector) Detect(ctx context.Context, sessionID string, symptoms []string, prediction *Prediction) (resp *Response, outcome LogOutcome) {
	now := d.now()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("emergency detection panicked: %v", r)
			d.logger.Error().Err(err).Msg("emergency detection failed")
			resp, outcome = safeDefault(err, d.contacts, now), LogOutcome{Skipped: true}
		}
	}()

	resp, normalized := d.assess(symptoms, prediction, now)
	if !resp.IsEmergency {
		return resp, LogOutcome{Skipped: true}
	}

	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	return resp, d.logEmergency(ctx, sessionID, normalized, resp)
}

// AssessWithPrediction is Detect without session attribution.
func (d *Detector) AssessWithPrediction(ctx context.Context, symptoms []string, prediction *Prediction) *Response {
	resp, _ := d.Detect(ctx, DefaultSessionID, symptoms, prediction)
	return resp
}

func (d *Detector) assess(symptoms []string, prediction *Prediction, now time.Time) (*Response, SymptomSet) {
	rules := d.rules.Snapshot()
	normalized := Normalize(symptoms)

	ruleHit, ruleReason := rules.firstRuleMatch(normalized)
	if ruleHit {
		d.logger.Info().Str("rule", ruleReason).Msg("emergency rule matched")
	}

	predictionHit, predictionReason := rules.predictionMatch(prediction, d.thresholds)
	if predictionHit {
		d.logger.Info().Str("signal", predictionReason).Msg("prediction indicates emergency")
	}

	isEmergency := ruleHit || predictionHit
	level := Severity(rules, normalized, prediction, isEmergency)
	confidence := Confidence(rules, normalized, prediction)

	return compose(isEmergency, level, confidence, d.contacts, now), normalized
}

func (d *Detector) logEmergency(ctx context.Context, sessionID string, symptoms SymptomSet, resp *Response) (outcome LogOutcome) {
	level := string(resp.SeverityLevel)
	if d.sink == nil {
		d.logger.Info().Str("severity", level).Msg("emergency detected but not logged (no sink)")
		return LogOutcome{Skipped: true}
	}

	defer func() {
		if r := recover(); r != nil {
			outcome = LogOutcome{Err: fmt.Errorf("emergency log panicked: %v", r)}
			d.logger.Warn().Err(outcome.Err).Msg("failed to log emergency")
		}
	}()

	id, err := d.sink.LogEmergency(ctx, LogEntry{
		SessionID:       sessionID,
		Symptoms:        symptoms.Sorted(),
		EmergencyType:   level,
		SeverityLevel:   level,
		AmbulanceCalled: resp.IsEmergency,
	})
	if err != nil {
		d.logger.Warn().Err(err).Str("session", sessionID).Msg("failed to log emergency")
		return LogOutcome{Err: err}
	}

	d.logger.Info().Int64("id", id).Str("session", sessionID).Str("type", level).Msg("emergency logged")
	return LogOutcome{RecordID: id}
}
