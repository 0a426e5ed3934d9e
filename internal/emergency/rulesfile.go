package emergency

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// RulesFile is the on-disk format for extra rules, e.g.
//
//	critical_symptoms: [blue lips]
//	combinations:
//	  - [fever, rash, joint_pain]
//	emergency_diseases: [dengue hemorrhagic fever]
type RulesFile struct {
	CriticalSymptoms  []string   `yaml:"critical_symptoms"`
	Combinations      [][]string `yaml:"combinations"`
	EmergencyDiseases []string   `yaml:"emergency_diseases"`
}

// LoadRulesFile reads a YAML rules file.
func LoadRulesFile(path string) (*RulesFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules file: %w", err)
	}
	defer f.Close()
	return ParseRulesFile(f)
}

func ParseRulesFile(r io.Reader) (*RulesFile, error) {
	var rf RulesFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&rf); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode rules file: %w", err)
	}
	return &rf, nil
}

// Apply adds the file's entries to rs. An empty file is a no-op.
func (rf *RulesFile) Apply(rs *RuleSet) error {
	if len(rf.CriticalSymptoms) > 0 || len(rf.Combinations) > 0 {
		if err := rs.Update(rf.CriticalSymptoms, rf.Combinations); err != nil {
			return fmt.Errorf("apply rules: %w", err)
		}
	}
	if len(rf.EmergencyDiseases) > 0 {
		if err := rs.AddDiseases(rf.EmergencyDiseases); err != nil {
			return fmt.Errorf("apply emergency diseases: %w", err)
		}
	}
	return nil
}
