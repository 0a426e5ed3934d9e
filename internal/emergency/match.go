package emergency

import "strings"

// MatchesCriticalRule reports whether symptoms contain a critical symptom or
// a full emergency combination.
func (r *Rules) MatchesCriticalRule(symptoms SymptomSet) bool {
	matched, _ := r.firstRuleMatch(symptoms)
	return matched
}

// firstRuleMatch stops at the first rule that fires and describes it for
// the log line.
func (r *Rules) firstRuleMatch(symptoms SymptomSet) (bool, string) {
	for s := range symptoms {
		if r.Critical.Contains(s) {
			return true, "critical symptom: " + s
		}
	}
	for _, combo := range r.Combinations {
		if symptoms.ContainsAll(combo) {
			return true, "emergency combination: " + strings.Join(combo.Sorted(), ", ")
		}
	}
	return false, ""
}

// CriticalHits counts set members found in the critical table. A symptom
// reported once may count twice when both its spellings are listed.
func (r *Rules) CriticalHits(symptoms SymptomSet) int {
	n := 0
	for s := range symptoms {
		if r.Critical.Contains(s) {
			n++
		}
	}
	return n
}

// CombinationHits counts every combination fully contained in symptoms.
func (r *Rules) CombinationHits(symptoms SymptomSet) int {
	n := 0
	for _, combo := range r.Combinations {
		if symptoms.ContainsAll(combo) {
			n++
		}
	}
	return n
}
