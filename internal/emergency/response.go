package emergency

import (
	"maps"
	"time"
)

// Response is the assessment returned for a single detection call.
type Response struct {
	Success           bool              `json:"success"`
	IsEmergency       bool              `json:"isEmergency"`
	SeverityLevel     Level             `json:"severityLevel"`
	Confidence        float64           `json:"confidence"`
	Alerts            []string          `json:"alerts"`
	Recommendations   []string          `json:"recommendations"`
	EmergencyContacts map[string]string `json:"emergencyContacts"`
	AmbulanceInfo     *AmbulanceInfo    `json:"ambulanceInfo"`
	Timestamp         time.Time         `json:"timestamp"`
	Error             string            `json:"error,omitempty"`
}

// AmbulanceInfo is a simulated dispatch record. No unit is actually sent.
type AmbulanceInfo struct {
	DispatchTime      time.Time `json:"dispatchTime"`
	EstimatedArrival  string    `json:"estimatedArrival"`
	UnitID            string    `json:"unitId"`
	DispatcherMessage string    `json:"dispatcherMessage"`
	Instructions      []string  `json:"instructions"`
	ContactNumber     string    `json:"contactNumber"`
}

const AmbulanceContact = "ambulance"

// DefaultContacts returns the emergency contact book shown with every
// assessment.
func DefaultContacts() map[string]string {
	return map[string]string{
		AmbulanceContact:    "911",
		"poison_control":    "1-800-222-1222",
		"emergency_hotline": "1-800-EMERGENCY",
		"local_hospital":    "555-HOSPITAL",
	}
}

type guidance struct {
	alerts          []string
	recommendations []string
}

var guidanceByLevel = map[Level]guidance{
	LevelCritical: {
		alerts: []string{
			"EMERGENCY DETECTED - SEEK IMMEDIATE MEDICAL ATTENTION",
			"Call 911 or go to the nearest emergency room immediately",
			"Do not delay - this could be a life-threatening condition",
		},
		recommendations: []string{
			"Call emergency services (911) immediately",
			"If conscious, stay calm and follow dispatcher instructions",
			"Have someone drive you to the hospital - do not drive yourself",
			"Bring a list of current medications and medical history",
		},
	},
	LevelHigh: {
		alerts: []string{
			"HIGH PRIORITY - Seek medical attention soon",
			"Contact your doctor or visit urgent care within 24 hours",
			"Monitor symptoms closely for any worsening",
		},
		recommendations: []string{
			"Schedule appointment with healthcare provider today",
			"Consider visiting urgent care if symptoms worsen",
			"Keep track of symptom progression",
		},
	},
	LevelMedium: {
		alerts: []string{
			"MODERATE CONCERN - Medical consultation recommended",
			"Schedule appointment with healthcare provider within 2-3 days",
		},
		recommendations: []string{
			"Contact your primary care physician",
			"Monitor symptoms and seek care if they worsen",
			"Consider over-the-counter remedies as appropriate",
		},
	},
	LevelLow: {
		alerts: []string{
			"LOW RISK - Monitor symptoms",
			"Consider self-care measures and monitor for changes",
		},
		recommendations: []string{
			"Rest and stay hydrated",
			"Monitor symptoms for 24-48 hours",
			"Contact healthcare provider if symptoms persist or worsen",
		},
	},
}

var ambulanceInstructions = []string{
	"Stay calm and remain where you are",
	"Unlock doors for paramedic access",
	"Have identification and insurance ready",
	"List current medications if possible",
}

func compose(isEmergency bool, level Level, confidence float64, contacts map[string]string, now time.Time) *Response {
	g := guidanceByLevel[level]
	if isEmergency {
		g = guidanceByLevel[LevelCritical]
	}

	resp := &Response{
		Success:           true,
		IsEmergency:       isEmergency,
		SeverityLevel:     level,
		Confidence:        confidence,
		Alerts:            append([]string(nil), g.alerts...),
		Recommendations:   append([]string(nil), g.recommendations...),
		EmergencyContacts: maps.Clone(contacts),
		Timestamp:         now,
	}
	if isEmergency {
		resp.AmbulanceInfo = simulateAmbulance(contacts[AmbulanceContact], now)
	}
	return resp
}

func simulateAmbulance(contactNumber string, now time.Time) *AmbulanceInfo {
	return &AmbulanceInfo{
		DispatchTime:      now,
		EstimatedArrival:  "8-12 minutes",
		UnitID:            "AMB-001",
		DispatcherMessage: "Ambulance dispatched to your location. Stay on the line.",
		Instructions:      append([]string(nil), ambulanceInstructions...),
		ContactNumber:     contactNumber,
	}
}

// safeDefault is the response for a failed detection. It still points the
// user at medical care.
func safeDefault(err error, contacts map[string]string, now time.Time) *Response {
	return &Response{
		Success:           false,
		IsEmergency:       false,
		SeverityLevel:     LevelUnknown,
		Confidence:        0,
		Alerts:            []string{"System error - please consult healthcare professional immediately"},
		Recommendations:   []string{"Seek immediate medical attention"},
		EmergencyContacts: maps.Clone(contacts),
		Timestamp:         now,
		Error:             err.Error(),
	}
}
