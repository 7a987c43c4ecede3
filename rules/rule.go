// Package rules loads operator-defined queue filters from .shortlist/rules.
// A rule names a candidate field, a comparison, and a value; the selection
// view only shows candidates that match every loaded rule. Rules live on disk
// as YAML files or as interpreted Go files, so operators can tighten the queue
// without rebuilding the binary.
package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/candidatesuite/shortlist/internal/schema"
)

// Comparison operators accepted in rule definitions.
const (
	OpEquals      = "equals"
	OpNotEquals   = "not-equals"
	OpContains    = "contains"
	OpAtLeast     = "at-least"
	OpAtMost      = "at-most"
	OpGreaterThan = "greater-than"
	OpLessThan    = "less-than"
)

// Rule describes one queue filter loaded from .shortlist/rules/*.yaml or
// declared by an interpreted Go rule file.
type Rule struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Field       string `json:"field" yaml:"field"`
	Op          string `json:"op" yaml:"op"`
	Value       string `json:"value" yaml:"value"`
}

// Normalized returns a trimmed copy of the rule.
func (r Rule) Normalized() Rule {
	return Rule{
		ID:          strings.TrimSpace(r.ID),
		Name:        strings.TrimSpace(r.Name),
		Description: strings.TrimSpace(r.Description),
		Field:       strings.TrimSpace(r.Field),
		Op:          strings.ToLower(strings.TrimSpace(r.Op)),
		Value:       strings.TrimSpace(r.Value),
	}
}

// Validate ensures the rule references a known field and operator.
func (r Rule) Validate() error {
	normalized := r.Normalized()
	if normalized.ID == "" {
		return fmt.Errorf("rule: id is required")
	}
	if normalized.Field == "" {
		return fmt.Errorf("rule %s: field is required", normalized.ID)
	}
	if _, ok := (schema.Candidate{}).FieldValue(normalized.Field); !ok {
		return fmt.Errorf("rule %s: unknown field %q", normalized.ID, normalized.Field)
	}
	switch normalized.Op {
	case OpEquals, OpNotEquals, OpContains, OpAtLeast, OpAtMost, OpGreaterThan, OpLessThan:
	default:
		return fmt.Errorf("rule %s: unknown op %q", normalized.ID, normalized.Op)
	}
	if normalized.Value == "" {
		return fmt.Errorf("rule %s: value is required", normalized.ID)
	}
	return nil
}

// Match reports whether the candidate passes the rule. Numeric comparisons on
// values that do not parse as numbers never match; a sheet cell like "N/A"
// must not sneak past a minimum-score rule.
func (r Rule) Match(c schema.Candidate) bool {
	rule := r.Normalized()
	got, ok := c.FieldValue(rule.Field)
	if !ok {
		return false
	}
	got = strings.TrimSpace(got)
	switch rule.Op {
	case OpEquals:
		return strings.EqualFold(got, rule.Value)
	case OpNotEquals:
		return !strings.EqualFold(got, rule.Value)
	case OpContains:
		return strings.Contains(strings.ToLower(got), strings.ToLower(rule.Value))
	}

	lhs, err := strconv.ParseFloat(got, 64)
	if err != nil {
		return false
	}
	rhs, err := strconv.ParseFloat(rule.Value, 64)
	if err != nil {
		return false
	}
	switch rule.Op {
	case OpAtLeast:
		return lhs >= rhs
	case OpAtMost:
		return lhs <= rhs
	case OpGreaterThan:
		return lhs > rhs
	case OpLessThan:
		return lhs < rhs
	}
	return false
}

// Apply filters candidates down to those matching every rule. A nil or empty
// rule set passes everything through untouched.
func Apply(files []RuleFile, candidates []schema.Candidate) []schema.Candidate {
	if len(files) == 0 {
		return candidates
	}
	out := make([]schema.Candidate, 0, len(candidates))
	for _, c := range candidates {
		keep := true
		for _, f := range files {
			if !f.Rule.Match(c) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, c)
		}
	}
	return out
}
