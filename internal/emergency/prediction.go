package emergency

import (
	"fmt"
	"math"
	"strings"
)

// Prediction is the output of an upstream disease classifier. Missing JSON
// fields decode to their zero values.
type Prediction struct {
	Disease    string  `json:"disease"`
	Confidence float64 `json:"confidence"`
	Severity   string  `json:"severity"`
}

// PredictionSeverity is the severity label reported by the classifier,
// distinct from the Level this package assigns.
type PredictionSeverity string

const (
	SeverityNone   PredictionSeverity = ""
	SeverityLow    PredictionSeverity = "low"
	SeverityMedium PredictionSeverity = "medium"
	SeverityHigh   PredictionSeverity = "high"
)

// ParsePredictionSeverity is case-insensitive. Unknown labels map to
// SeverityNone.
func ParsePredictionSeverity(label string) PredictionSeverity {
	switch PredictionSeverity(strings.ToLower(strings.TrimSpace(label))) {
	case SeverityLow:
		return SeverityLow
	case SeverityMedium:
		return SeverityMedium
	case SeverityHigh:
		return SeverityHigh
	default:
		return SeverityNone
	}
}

func (p *Prediction) severity() PredictionSeverity {
	if p == nil {
		return SeverityNone
	}
	return ParsePredictionSeverity(p.Severity)
}

// confidence is the classifier confidence bounded to [0,1]. Non-finite
// values count as zero.
func (p *Prediction) confidence() float64 {
	if p == nil {
		return 0
	}
	c := p.Confidence
	switch {
	case math.IsNaN(c), math.IsInf(c, -1), c < 0:
		return 0
	case math.IsInf(c, 1), c > 1:
		return 1
	}
	return c
}

// Thresholds gate the classifier signal. Only High takes part in the
// emergency decision.
type Thresholds struct {
	High   float64
	Medium float64
	Low    float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{High: 0.8, Medium: 0.6, Low: 0.4}
}

// MatchesPredictionEmergency reports whether the prediction alone flags an
// emergency: a known emergency disease name, or high confidence together
// with a high severity label.
func (r *Rules) MatchesPredictionEmergency(p *Prediction, t Thresholds) bool {
	matched, _ := r.predictionMatch(p, t)
	return matched
}

func (r *Rules) predictionMatch(p *Prediction, t Thresholds) (bool, string) {
	if p == nil {
		return false, ""
	}
	disease := strings.ToLower(p.Disease)
	for _, d := range r.Diseases {
		if strings.Contains(disease, d) {
			return true, "emergency disease: " + d
		}
	}
	if p.Confidence >= t.High && p.severity() == SeverityHigh {
		return true, fmt.Sprintf("high confidence %.2f with high severity", p.Confidence)
	}
	return false, ""
}
