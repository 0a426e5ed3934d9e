package emergency

import (
	"errors"
	"sync"
	"testing"
)

func TestNormalize(t *testing.T) {
	set := Normalize([]string{"Chest-Pain", "", "  shortness_of_breath ", "   "})
	for _, want := range []string{"chest pain", "chest_pain", "shortness of breath", "shortness_of_breath"} {
		if !set.Contains(want) {
			t.Fatalf("expected %q in %v", want, set.Sorted())
		}
	}
	if len(set) != 4 {
		t.Fatalf("expected 4 members, got %v", set.Sorted())
	}
}

func TestNormalize_Empty(t *testing.T) {
	if set := Normalize(nil); len(set) != 0 {
		t.Fatalf("expected empty set, got %v", set.Sorted())
	}
}

func TestDefaultRules(t *testing.T) {
	r := DefaultRules()
	if len(r.Critical) != 49 {
		t.Fatalf("expected 49 critical symptoms, got %d", len(r.Critical))
	}
	if len(r.Combinations) != 14 {
		t.Fatalf("expected 14 combinations, got %d", len(r.Combinations))
	}
	if len(r.Diseases) != 27 {
		t.Fatalf("expected 27 emergency diseases, got %d", len(r.Diseases))
	}
}

func TestMatchesCriticalRule(t *testing.T) {
	r := DefaultRules()
	cases := []struct {
		name     string
		symptoms []string
		want     bool
	}{
		{"critical literal", []string{"palpitations"}, true},
		{"heart attack combination", []string{"chest pain", "arm pain", "sweating"}, true},
		{"meningitis superset", []string{"headache", "neck stiffness", "light-sensitivity", "cough"}, true},
		{"two of three", []string{"swelling", "rash"}, false},
		{"nothing relevant", []string{"sore throat", "runny nose"}, false},
		{"empty", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := r.MatchesCriticalRule(Normalize(tc.symptoms)); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestHitCounts(t *testing.T) {
	r := DefaultRules()
	// sepsis pattern; only the underscore spelling of rapid heartbeat is a
	// critical literal
	set := Normalize([]string{"fever", "rapid heartbeat", "confusion"})
	if got := r.CriticalHits(set); got != 2 {
		t.Fatalf("expected 2 critical hits, got %d", got)
	}
	if got := r.CombinationHits(set); got != 1 {
		t.Fatalf("expected 1 combination hit, got %d", got)
	}

	set = Normalize([]string{"severe abdominal pain", "nausea", "fever", "severe headache", "neck stiffness"})
	if got := r.CombinationHits(set); got != 2 {
		t.Fatalf("expected appendicitis and meningitis combinations, got %d", got)
	}
}

func TestMatchesPredictionEmergency(t *testing.T) {
	r := DefaultRules()
	th := DefaultThresholds()
	cases := []struct {
		name string
		p    *Prediction
		want bool
	}{
		{"nil", nil, false},
		{"disease substring", &Prediction{Disease: "Acute Myocardial Infarction", Confidence: 0.1}, true},
		{"case insensitive disease", &Prediction{Disease: "PULMONARY EMBOLISM"}, true},
		{"high confidence high severity", &Prediction{Disease: "Migraine", Confidence: 0.8, Severity: "HIGH"}, true},
		{"high confidence medium severity", &Prediction{Disease: "Migraine", Confidence: 0.95, Severity: "Medium"}, false},
		{"low confidence high severity", &Prediction{Disease: "Migraine", Confidence: 0.79, Severity: "High"}, false},
		{"unremarkable", &Prediction{Disease: "Common Cold", Confidence: 0.5, Severity: "Low"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := r.MatchesPredictionEmergency(tc.p, th); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestParsePredictionSeverity(t *testing.T) {
	cases := map[string]PredictionSeverity{
		"High":     SeverityHigh,
		" medium ": SeverityMedium,
		"LOW":      SeverityLow,
		"severe":   SeverityNone,
		"":         SeverityNone,
	}
	for in, want := range cases {
		if got := ParsePredictionSeverity(in); got != want {
			t.Fatalf("ParsePredictionSeverity(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRuleSetUpdate(t *testing.T) {
	rs := NewRuleSet(nil)
	before := rs.Snapshot()

	err := rs.Update([]string{"  Blue Lips "}, [][]string{{"itchy eyes", "sneezing"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	after := rs.Snapshot()
	if !after.Critical.Contains("blue lips") {
		t.Fatal("expected new critical symptom to be added")
	}
	if len(after.Combinations) != len(before.Combinations)+1 {
		t.Fatalf("expected one new combination, got %d", len(after.Combinations))
	}
	if !after.MatchesCriticalRule(Normalize([]string{"itchy_eyes", "Sneezing"})) {
		t.Fatal("expected new combination to match")
	}

	if before.Critical.Contains("blue lips") || len(before.Combinations) != 14 {
		t.Fatal("earlier snapshot must not change")
	}
	for s := range before.Critical {
		if !after.Critical.Contains(s) {
			t.Fatalf("existing symptom %q was removed", s)
		}
	}
}

func TestRuleSetUpdate_IgnoresDuplicates(t *testing.T) {
	rs := NewRuleSet(nil)
	if err := rs.Update([]string{"chest pain"}, [][]string{{"nausea", "chest_pain", "shortness_of_breath"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := rs.Snapshot()
	if len(r.Critical) != 49 || len(r.Combinations) != 14 {
		t.Fatalf("expected duplicates to be ignored, got %d/%d", len(r.Critical), len(r.Combinations))
	}
}

func TestRuleSetUpdate_FoldsSeparators(t *testing.T) {
	rs := NewRuleSet(nil)
	err := rs.Update([]string{"Blue-Lips"}, [][]string{{"stiff-neck", "light-sensitivity", "high_fever"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := rs.Snapshot()
	if !r.Critical.Contains("blue lips") || !r.Critical.Contains("blue_lips") {
		t.Fatalf("expected both spellings of the added symptom, got %v", r.Critical.Sorted())
	}
	for _, input := range []string{"blue lips", "blue_lips", "Blue-Lips"} {
		if !r.MatchesCriticalRule(Normalize([]string{input})) {
			t.Fatalf("expected %q to match the added critical symptom", input)
		}
	}
	if !r.MatchesCriticalRule(Normalize([]string{"stiff neck", "light_sensitivity", "high-fever"})) {
		t.Fatal("expected hyphenated combination members to match")
	}
}

func TestRuleSetUpdate_SeparatorVariantsAreDuplicates(t *testing.T) {
	rs := NewRuleSet(nil)
	if err := rs.Update([]string{"chest-pain"}, [][]string{{"chest pain", "shortness-of-breath", "nausea"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := rs.Snapshot()
	if len(r.Critical) != 49 || len(r.Combinations) != 14 {
		t.Fatalf("expected separator variants to be ignored, got %d/%d", len(r.Critical), len(r.Combinations))
	}
}

func TestRuleSetUpdate_Errors(t *testing.T) {
	rs := NewRuleSet(nil)
	if err := rs.Update(nil, nil); !errors.Is(err, ErrNoRules) {
		t.Fatalf("expected ErrNoRules, got %v", err)
	}

	err := rs.Update([]string{"blue lips"}, [][]string{{"fever", "rash"}, {"  "}})
	if !errors.Is(err, ErrEmptyCombination) {
		t.Fatalf("expected ErrEmptyCombination, got %v", err)
	}
	if rs.Snapshot().Critical.Contains("blue lips") {
		t.Fatal("rejected update must not be partially applied")
	}
}

func TestRuleSetAddDiseases(t *testing.T) {
	rs := NewRuleSet(nil)
	if err := rs.AddDiseases([]string{"Dengue Hemorrhagic Fever", "stroke"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := rs.Snapshot()
	if len(r.Diseases) != 28 {
		t.Fatalf("expected 28 diseases, got %d", len(r.Diseases))
	}
	if !r.MatchesPredictionEmergency(&Prediction{Disease: "dengue hemorrhagic fever (suspected)"}, DefaultThresholds()) {
		t.Fatal("expected added disease to match")
	}
}

func TestRuleSetConcurrentReadsDuringUpdate(t *testing.T) {
	rs := NewRuleSet(nil)
	set := Normalize([]string{"chest pain"})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if !rs.Snapshot().MatchesCriticalRule(set) {
					t.Error("chest pain must stay critical")
					return
				}
			}
		}()
	}
	for i := 0; i < 50; i++ {
		_ = rs.Update([]string{"extra symptom"}, nil)
	}
	wg.Wait()
}

func TestSummary(t *testing.T) {
	s := DefaultRules().Summary()
	if len(s.CriticalSymptoms) != 49 || len(s.Combinations) != 14 || len(s.EmergencyDiseases) != 27 {
		t.Fatalf("unexpected summary sizes: %d/%d/%d", len(s.CriticalSymptoms), len(s.Combinations), len(s.EmergencyDiseases))
	}
	if s.CriticalSymptoms[0] > s.CriticalSymptoms[1] {
		t.Fatal("expected sorted critical symptoms")
	}
}
