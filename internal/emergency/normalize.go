package emergency

import "strings"

// SymptomSet holds normalized symptom strings. Each reported symptom is
// present in both its spaced and its underscore form.
type SymptomSet map[string]struct{}

var separatorReplacer = strings.NewReplacer("_", " ", "-", " ")

// Normalize lowercases and trims raw symptoms, unifies '_' and '-' to a
// space, and records both the spaced and the underscore-joined variant.
// Empty entries are dropped.
func Normalize(raw []string) SymptomSet {
	set := make(SymptomSet, len(raw)*2)
	for _, symptom := range raw {
		clean := strings.ToLower(strings.TrimSpace(symptom))
		if clean == "" {
			continue
		}
		spaced := separatorReplacer.Replace(clean)
		set[spaced] = struct{}{}
		set[strings.ReplaceAll(spaced, " ", "_")] = struct{}{}
	}
	return set
}

func (s SymptomSet) Contains(symptom string) bool {
	_, ok := s[symptom]
	return ok
}

// ContainsAll reports whether every member of other is in s.
func (s SymptomSet) ContainsAll(other SymptomSet) bool {
	for symptom := range other {
		if _, ok := s[symptom]; !ok {
			return false
		}
	}
	return true
}

// Sorted returns the members in lexical order.
func (s SymptomSet) Sorted() []string {
	return sortedKeys(s)
}
