package emergency

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	ErrEmptyCombination = errors.New("emergency combination has no symptoms")
	ErrNoRules          = errors.New("no rules supplied")
)

var (
	defaultCriticalSymptoms = []string{
		"chest_pain", "chest pain", "severe chest pain", "crushing chest pain",
		"shortness_of_breath", "shortness of breath", "difficulty breathing", "difficulty_breathing",
		"severe_headache", "severe headache", "worst headache ever",
		"unconsciousness", "loss of consciousness", "fainting", "syncope",
		"seizures", "seizure", "convulsions",
		"severe_bleeding", "severe bleeding", "heavy bleeding", "hemorrhage",
		"anaphylaxis", "severe allergic reaction", "allergic_reaction",
		"stroke_symptoms", "stroke symptoms", "facial drooping", "slurred speech",
		"severe_abdominal_pain", "severe abdominal pain", "acute abdomen",
		"high_fever", "very high fever", "fever over 104",
		"neck_stiffness", "neck stiffness", "stiff neck",
		"confusion", "altered mental state", "disorientation",
		"severe_dehydration", "severe dehydration",
		"rapid_heartbeat", "rapid heart rate", "palpitations",
		"cold_sweat", "profuse sweating", "diaphoresis",
	}

	defaultCombinations = [][]string{
		// heart attack
		{"chest_pain", "shortness_of_breath", "nausea"},
		{"chest_pain", "arm_pain", "sweating"},
		{"chest_pain", "jaw_pain", "dizziness"},
		// stroke
		{"severe_headache", "confusion", "weakness"},
		{"facial_drooping", "slurred_speech", "arm_weakness"},
		{"sudden_weakness", "speech_problems", "vision_problems"},
		// meningitis
		{"severe_headache", "neck_stiffness", "fever"},
		{"headache", "neck_stiffness", "light_sensitivity"},
		// sepsis
		{"fever", "rapid_heartbeat", "confusion"},
		{"high_fever", "low_blood_pressure", "rapid_breathing"},
		// anaphylaxis
		{"difficulty_breathing", "swelling", "rash"},
		{"severe_allergic_reaction", "shortness_of_breath", "hives"},
		// appendicitis
		{"severe_abdominal_pain", "nausea", "fever"},
		{"right_lower_quadrant_pain", "vomiting", "tenderness"},
	}

	// Matched as substrings of the predicted disease name, so the short
	// abbreviations also hit longer names that happen to contain them.
	defaultEmergencyDiseases = []string{
		"heart attack", "myocardial infarction", "cardiac arrest",
		"stroke", "cerebrovascular accident", "tia",
		"meningitis", "encephalitis",
		"appendicitis", "acute appendicitis",
		"anaphylaxis", "anaphylactic shock",
		"sepsis", "septic shock",
		"pulmonary embolism", "pe",
		"pneumothorax", "collapsed lung",
		"diabetic ketoacidosis", "dka",
		"severe asthma", "status asthmaticus",
		"acute pancreatitis",
		"ectopic pregnancy",
		"aortic dissection",
		"severe trauma", "major trauma",
	}
)

// Rules is an immutable snapshot of the detection tables.
type Rules struct {
	Critical     SymptomSet
	Combinations []SymptomSet
	Diseases     []string
}

// DefaultRules returns a fresh copy of the built-in tables.
func DefaultRules() *Rules {
	r := &Rules{
		Critical:     newSymptomSet(defaultCriticalSymptoms...),
		Combinations: make([]SymptomSet, 0, len(defaultCombinations)),
		Diseases:     append([]string(nil), defaultEmergencyDiseases...),
	}
	for _, combo := range defaultCombinations {
		r.Combinations = append(r.Combinations, newSymptomSet(combo...))
	}
	return r
}

func (r *Rules) clone() *Rules {
	out := &Rules{
		Critical:     make(SymptomSet, len(r.Critical)),
		Combinations: make([]SymptomSet, len(r.Combinations)),
		Diseases:     append([]string(nil), r.Diseases...),
	}
	for s := range r.Critical {
		out.Critical[s] = struct{}{}
	}
	// combination sets are never mutated once published, so they can be shared
	copy(out.Combinations, r.Combinations)
	return out
}

// Summary is a JSON-friendly view of a rules snapshot.
type Summary struct {
	CriticalSymptoms  []string   `json:"criticalSymptoms"`
	Combinations      [][]string `json:"combinations"`
	EmergencyDiseases []string   `json:"emergencyDiseases"`
}

func (r *Rules) Summary() Summary {
	s := Summary{
		CriticalSymptoms:  r.Critical.Sorted(),
		Combinations:      make([][]string, 0, len(r.Combinations)),
		EmergencyDiseases: append([]string(nil), r.Diseases...),
	}
	for _, c := range r.Combinations {
		s.Combinations = append(s.Combinations, c.Sorted())
	}
	return s
}

// RuleSet publishes Rules snapshots. Readers never lock; Update builds a
// new snapshot and swaps it in, so a detection in flight keeps using the
// tables it started with.
type RuleSet struct {
	mu      sync.Mutex
	current atomic.Pointer[Rules]
}

func NewRuleSet(initial *Rules) *RuleSet {
	if initial == nil {
		initial = DefaultRules()
	}
	rs := &RuleSet{}
	rs.current.Store(initial)
	return rs
}

// Snapshot returns the active tables. Callers must treat them as read-only.
func (rs *RuleSet) Snapshot() *Rules {
	return rs.current.Load()
}

// Update adds critical symptoms and emergency combinations. It never removes
// or edits existing entries. Either the whole update applies or none of it.
func (rs *RuleSet) Update(newCritical []string, newCombinations [][]string) error {
	return rs.extend(newCritical, newCombinations, nil)
}

// AddDiseases extends the disease substring table. Used when loading a
// rules file at startup.
func (rs *RuleSet) AddDiseases(diseases []string) error {
	return rs.extend(nil, nil, diseases)
}

func (rs *RuleSet) extend(newCritical []string, newCombinations [][]string, newDiseases []string) error {
	if len(newCritical) == 0 && len(newCombinations) == 0 && len(newDiseases) == 0 {
		return ErrNoRules
	}

	combos := make([]SymptomSet, 0, len(newCombinations))
	for i, raw := range newCombinations {
		set := addedCombination(raw)
		if len(set) == 0 {
			return fmt.Errorf("combination %d: %w", i, ErrEmptyCombination)
		}
		combos = append(combos, set)
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	next := rs.current.Load().clone()
	for _, s := range newCritical {
		if spaced := spacedRuleEntry(s); spaced != "" {
			next.Critical[spaced] = struct{}{}
			next.Critical[strings.ReplaceAll(spaced, " ", "_")] = struct{}{}
		}
	}
	for _, c := range combos {
		if !next.hasCombination(c) {
			next.Combinations = append(next.Combinations, c)
		}
	}
	for _, d := range newDiseases {
		d = cleanRuleEntry(d)
		if d != "" && !containsString(next.Diseases, d) {
			next.Diseases = append(next.Diseases, d)
		}
	}

	rs.current.Store(next)
	return nil
}

// hasCombination compares members with separators folded, so
// "chest_pain" and "chest pain" count as the same member.
func (r *Rules) hasCombination(c SymptomSet) bool {
	want := addedCombination(sortedKeys(c))
	for _, existing := range r.Combinations {
		have := addedCombination(sortedKeys(existing))
		if len(have) == len(want) && have.ContainsAll(want) {
			return true
		}
	}
	return false
}

func newSymptomSet(entries ...string) SymptomSet {
	set := make(SymptomSet, len(entries))
	for _, e := range entries {
		if e = cleanRuleEntry(e); e != "" {
			set[e] = struct{}{}
		}
	}
	return set
}

func cleanRuleEntry(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// spacedRuleEntry folds '_' and '-' to spaces the way Normalize does, so
// added entries line up with normalized input.
func spacedRuleEntry(s string) string {
	return strings.TrimSpace(separatorReplacer.Replace(cleanRuleEntry(s)))
}

// addedCombination keeps only the spaced form of each member. Normalize
// always emits that form, so the set matches either input spelling.
func addedCombination(members []string) SymptomSet {
	set := make(SymptomSet, len(members))
	for _, m := range members {
		if spaced := spacedRuleEntry(m); spaced != "" {
			set[spaced] = struct{}{}
		}
	}
	return set
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func sortedKeys(set SymptomSet) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
