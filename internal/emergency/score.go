package emergency

// Level is the urgency verdict of an assessment.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
	LevelUnknown  Level = "unknown"
)

// Cut points for the non-emergency severity score. They are unrelated to
// Thresholds even where the numbers agree.
const (
	ScoreHighCutoff   = 0.8
	ScoreMediumCutoff = 0.5
)

const (
	criticalHitWeight     = 0.3
	predictionConfWeight  = 0.4
	combinationConfWeight = 0.4
	criticalConfWeight    = 0.3
	highSeverityPoints    = 0.3
	mediumSeverityPoints  = 0.2
	lowSeverityPoints     = 0.1
)

var severityPoints = map[PredictionSeverity]float64{
	SeverityHigh:   highSeverityPoints,
	SeverityMedium: mediumSeverityPoints,
	SeverityLow:    lowSeverityPoints,
}

// Score is the weighted severity score used when no emergency rule fired.
func Score(r *Rules, symptoms SymptomSet, p *Prediction) float64 {
	s := criticalHitWeight * float64(r.CriticalHits(symptoms))
	s += predictionConfWeight * p.confidence()
	s += severityPoints[p.severity()]
	return s
}

func LevelForScore(s float64) Level {
	switch {
	case s >= ScoreHighCutoff:
		return LevelHigh
	case s >= ScoreMediumCutoff:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Severity resolves the final level. An emergency is always critical.
func Severity(r *Rules, symptoms SymptomSet, p *Prediction, isEmergency bool) Level {
	if isEmergency {
		return LevelCritical
	}
	return LevelForScore(Score(r, symptoms, p))
}

// Confidence is descriptive metadata for the response: the rule confidence,
// averaged with the classifier confidence when a prediction is present.
func Confidence(r *Rules, symptoms SymptomSet, p *Prediction) float64 {
	rule := criticalConfWeight*float64(r.CriticalHits(symptoms)) +
		combinationConfWeight*float64(r.CombinationHits(symptoms))
	if rule > 1 {
		rule = 1
	}
	if p == nil {
		return rule
	}
	return (rule + p.confidence()) / 2
}
