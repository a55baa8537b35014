package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoAnalysis indicates the provider responded, but no usable
// analysis payload could be recovered from the body.
var ErrNoAnalysis = errors.New("no analysis payload in provider response")

var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?\\s*```")

// ParseResult recovers the analysis JSON from the raw provider body and
// coerces it into a Result. The body may wrap the JSON object in
// markdown fences or explanatory prose; the first well-formed object
// wins. Unknown strategies are dropped and unknown severities clamp to
// the default, so a sloppy model reply degrades instead of failing.
func ParseResult(raw string) (*Result, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: empty body", ErrNoAnalysis)
	}

	payload, err := decodePayload(text)
	if err != nil {
		return nil, err
	}

	return coerce(payload), nil
}

// decodePayload tries progressively harder to find a JSON object:
// direct parse, then fenced block, then balanced-brace extraction.
func decodePayload(text string) (map[string]interface{}, error) {
	if m, ok := tryDecode(text); ok {
		return m, nil
	}

	if fenced := extractFromCodeFence(text); fenced != "" {
		if m, ok := tryDecode(fenced); ok {
			return m, nil
		}
	}

	if obj := extractJSONObject(text); obj != "" {
		if m, ok := tryDecode(obj); ok {
			return m, nil
		}
	}

	return nil, fmt.Errorf("%w: no parseable JSON object", ErrNoAnalysis)
}

// tryDecode parses data as a JSON object and checks the top-level shape:
// at least one expected field must be present.
func tryDecode(data string) (map[string]interface{}, bool) {
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, false
	}
	for _, key := range []string{"ratings", "passages", "bs_claims", "claims", "top_passages", "conclusion"} {
		if _, ok := m[key]; ok {
			return m, true
		}
	}
	return nil, false
}

func extractFromCodeFence(text string) string {
	matches := codeFenceRe.FindStringSubmatch(text)
	if len(matches) >= 2 {
		return strings.TrimSpace(matches[1])
	}
	return ""
}

// extractJSONObject returns the first balanced JSON object in text,
// tracking string literals and escapes so braces inside values don't
// break the scan.
func extractJSONObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// coerce maps the loose payload onto a Result field by field. Every
// field is optional on input; missing or mistyped values become
// defaults, never errors.
func coerce(m map[string]interface{}) *Result {
	result := emptyResult()
	result.Conclusion = asString(m["conclusion"])

	ratings, _ := m["ratings"].(map[string]interface{})
	passages, _ := m["passages"].(map[string]interface{})

	// Emit findings in canonical vocabulary order; keys outside the
	// vocabulary are dropped.
	for _, strategy := range Strategies() {
		value, ok := lookupStrategy(ratings, strategy)
		if !ok {
			continue
		}
		severity, label := parseRating(value)
		finding := Finding{
			Strategy: strategy,
			Severity: severity,
			Label:    label,
		}
		if passageValue, ok := lookupStrategy(passages, strategy); ok {
			finding.Passage = asString(passageValue)
		}
		result.Findings = append(result.Findings, finding)
	}

	result.Claims = coerceClaims(m)

	if tops, ok := m["top_passages"].([]interface{}); ok {
		for _, v := range tops {
			if s := asString(v); s != "" {
				result.TopPassages = append(result.TopPassages, s)
			}
		}
	}

	return result
}

// lookupStrategy finds the entry for a strategy in a model-supplied
// map, tolerating case and whitespace drift in the keys.
func lookupStrategy(m map[string]interface{}, strategy Strategy) (interface{}, bool) {
	if m == nil {
		return nil, false
	}
	if v, ok := m[string(strategy)]; ok {
		return v, true
	}
	for key, v := range m {
		if parsed, ok := ParseStrategy(key); ok && parsed == strategy {
			return v, true
		}
	}
	return nil, false
}

// parseRating splits a rating value into severity and label. String
// values follow the "level: short label" convention from the prompt;
// object values are probed for the obvious key names.
func parseRating(v interface{}) (Severity, string) {
	switch value := v.(type) {
	case string:
		level, label, found := strings.Cut(value, ":")
		if !found {
			return ParseSeverity(value), ""
		}
		return ParseSeverity(level), strings.TrimSpace(label)
	case map[string]interface{}:
		level := asString(value["level"])
		if level == "" {
			level = asString(value["severity"])
		}
		label := asString(value["label"])
		if label == "" {
			label = asString(value["why"])
		}
		return ParseSeverity(level), label
	}
	return SeverityNone, ""
}

// coerceClaims reads the flagged-claim list, accepting both the
// "bs_claims" key the prompt requests and a plain "claims" alias.
func coerceClaims(m map[string]interface{}) []Claim {
	claims := []Claim{}

	list, ok := m["bs_claims"].([]interface{})
	if !ok {
		list, _ = m["claims"].([]interface{})
	}

	for _, entry := range list {
		obj, ok := entry.(map[string]interface{})
		if !ok {
			// A bare string is treated as the claim text itself.
			if s := asString(entry); s != "" {
				claims = append(claims, Claim{Claim: s})
			}
			continue
		}
		claim := Claim{
			Claim:     asString(obj["claim"]),
			Reasoning: asString(obj["reasoning"]),
			Passage:   asString(obj["passage"]),
		}
		if claim.Claim == "" && claim.Reasoning == "" && claim.Passage == "" {
			continue
		}
		claims = append(claims, claim)
	}

	return claims
}

// asString coerces scalar JSON values to a string, returning "" for
// anything that has no sensible string form.
func asString(v interface{}) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", value), "0"), ".")
	case bool:
		return fmt.Sprintf("%t", value)
	}
	return ""
}
