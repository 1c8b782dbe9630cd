package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"codeindex/internal/errors"
)

// ruleSpec is one entry in a rule import file.
type ruleSpec struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Severity    string  `yaml:"severity"`
	Query       string  `yaml:"query"`
	Weight      float64 `yaml:"weight"`
	LearnedFrom string  `yaml:"learned_from"`
}

type ruleFile struct {
	Rules []ruleSpec `yaml:"rules"`
}

// SkippedRule explains why one import entry was rejected.
type SkippedRule struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

// ImportReport summarizes a rule import: which IDs were registered and
// which entries were skipped.
type ImportReport struct {
	Imported []string      `json:"imported"`
	Skipped  []SkippedRule `json:"skipped,omitempty"`
}

// ImportRules loads custom rules from a YAML file with a top-level "rules"
// list. Entries missing required fields or carrying a query the store
// rejects are skipped and reported; valid entries are registered through
// Add. The file being unreadable or unparseable is an error.
func (e *Engine) ImportRules(path string) (*ImportReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.FileUnreadable, "cannot read rule file", err)
	}

	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(errors.InvalidInput, "cannot parse rule file", err)
	}

	report := &ImportReport{Imported: []string{}}
	for i, spec := range file.Rules {
		if reason := validateSpec(spec); reason != "" {
			report.Skipped = append(report.Skipped, SkippedRule{Index: i, ID: spec.ID, Reason: reason})
			continue
		}

		// Dry-run the query so broken SQL is caught at import time
		// instead of silently finding nothing on every run.
		if _, err := e.db.QueryRows(spec.Query); err != nil {
			report.Skipped = append(report.Skipped, SkippedRule{
				Index:  i,
				ID:     spec.ID,
				Reason: fmt.Sprintf("query rejected: %v", err),
			})
			continue
		}

		_, err := e.Add(spec.ID, spec.Name, spec.Query, spec.Severity, spec.Description, spec.Weight, spec.LearnedFrom)
		if err != nil {
			report.Skipped = append(report.Skipped, SkippedRule{Index: i, ID: spec.ID, Reason: err.Error()})
			continue
		}
		report.Imported = append(report.Imported, spec.ID)
	}
	return report, nil
}

func validateSpec(spec ruleSpec) string {
	switch {
	case spec.ID == "":
		return "missing id"
	case spec.Name == "":
		return "missing name"
	case spec.Query == "":
		return "missing query"
	}
	return ""
}
