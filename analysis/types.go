// Package analysis implements the core of textreflex: composing the
// manipulation-analysis prompt, recovering the JSON payload from the
// model's reply, and coercing it into a typed result. The model's
// output is not schema-guaranteed, so every inbound field is treated as
// optional and coerced defensively; the outbound Result is always fully
// populated.
package analysis

import (
	"strings"
)

// Severity is the ordered rating of how strongly a detected strategy
// manipulates the reader: none < low < mid < high < very_high.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityMid      Severity = "mid"
	SeverityHigh     Severity = "high"
	SeverityVeryHigh Severity = "very_high"
)

// severityRank orders severities for comparison.
var severityRank = map[Severity]int{
	SeverityNone:     0,
	SeverityLow:      1,
	SeverityMid:      2,
	SeverityHigh:     3,
	SeverityVeryHigh: 4,
}

// ParseSeverity normalizes a model-supplied severity string. Values
// outside the enumeration clamp to SeverityNone rather than failing;
// the upstream output is not schema-guaranteed.
func ParseSeverity(s string) Severity {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	normalized = strings.ReplaceAll(normalized, " ", "_")

	switch Severity(normalized) {
	case SeverityNone, SeverityLow, SeverityMid, SeverityHigh, SeverityVeryHigh:
		return Severity(normalized)
	}

	// Common model spellings for the extremes.
	switch normalized {
	case "medium", "moderate":
		return SeverityMid
	case "veryhigh", "very_strong", "severe", "extreme":
		return SeverityVeryHigh
	}

	return SeverityNone
}

// AtLeast reports whether s rates at or above other.
func (s Severity) AtLeast(other Severity) bool {
	return severityRank[s] >= severityRank[other]
}

// Strategy is one of the fixed vocabulary of rhetorical techniques the
// analysis detects.
type Strategy string

const (
	StrategyFear         Strategy = "fear"
	StrategyUrgency      Strategy = "urgency"
	StrategyScapegoating Strategy = "scapegoating"
	StrategyPolarization Strategy = "polarization"
	StrategyTone         Strategy = "tone"
)

// Strategies returns the fixed vocabulary in canonical order. Findings
// are emitted in this order regardless of how the model ordered them.
func Strategies() []Strategy {
	return []Strategy{
		StrategyFear,
		StrategyUrgency,
		StrategyScapegoating,
		StrategyPolarization,
		StrategyTone,
	}
}

// ParseStrategy normalizes a model-supplied strategy name. Unknown
// names report ok=false and are dropped by the caller.
func ParseStrategy(s string) (Strategy, bool) {
	normalized := Strategy(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Strategies() {
		if normalized == known {
			return known, true
		}
	}
	return "", false
}

// Finding is one detected manipulation strategy with its rating.
type Finding struct {
	Strategy Strategy `json:"strategy"`
	Severity Severity `json:"severity"`

	// Label is the model's short justification for the rating.
	Label string `json:"label,omitempty"`

	// Passage is the character or sentence range the rating refers to.
	Passage string `json:"passage,omitempty"`
}

// Claim is one flagged false or misleading statement.
type Claim struct {
	Claim     string `json:"claim"`
	Reasoning string `json:"reasoning,omitempty"`
	Passage   string `json:"passage,omitempty"`
}

// Result is the validated analysis output. Every field is present on
// output even when the provider omitted it; lists are empty, never nil.
type Result struct {
	// Conclusion is the meta-analysis of the text's manipulative intent.
	Conclusion string `json:"conclusion"`

	// Findings lists detected strategies in canonical vocabulary order.
	Findings []Finding `json:"findings"`

	// Claims lists flagged misleading statements with reasoning.
	Claims []Claim `json:"claims"`

	// TopPassages lists the most manipulative excerpts.
	TopPassages []string `json:"top_passages"`
}

// emptyResult returns a Result with all lists allocated so JSON output
// carries [] rather than null.
func emptyResult() *Result {
	return &Result{
		Findings:    []Finding{},
		Claims:      []Claim{},
		TopPassages: []string{},
	}
}
