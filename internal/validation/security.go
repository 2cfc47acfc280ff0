package validation

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// ThreatKind names a family of malicious input patterns.
type ThreatKind string

const (
	ThreatXSS              ThreatKind = "xss"
	ThreatSQLInjection     ThreatKind = "sql_injection"
	ThreatPathTraversal    ThreatKind = "path_traversal"
	ThreatCommandInjection ThreatKind = "command_injection"
)

type threatPattern struct {
	kind ThreatKind
	re   *regexp.Regexp
}

var threatPatterns = []threatPattern{
	{ThreatXSS, regexp.MustCompile(`(?i)<\s*script\b`)},
	{ThreatXSS, regexp.MustCompile(`(?i)javascript\s*:`)},
	{ThreatXSS, regexp.MustCompile(`(?i)\bon(error|load|click|mouseover|focus)\s*=`)},
	{ThreatXSS, regexp.MustCompile(`(?i)<\s*(iframe|object|embed|svg)\b`)},
	{ThreatSQLInjection, regexp.MustCompile(`(?i)\b(union\s+(all\s+)?select|drop\s+table|insert\s+into|delete\s+from|truncate\s+table)\b`)},
	{ThreatSQLInjection, regexp.MustCompile(`(?i)'\s*(or|and)\s+'?\d+'?\s*=\s*'?\d+`)},
	{ThreatSQLInjection, regexp.MustCompile(`(?i)(;|'|")\s*--`)},
	{ThreatPathTraversal, regexp.MustCompile(`\.\.(/|\\)`)},
	{ThreatPathTraversal, regexp.MustCompile(`(?i)%2e%2e(%2f|%5c)`)},
	{ThreatCommandInjection, regexp.MustCompile(`(;|&&|\|\|?)\s*(rm|cat|curl|wget|sh|bash|nc|chmod|sudo)\b`)},
	{ThreatCommandInjection, regexp.MustCompile("\\$\\([^)]*\\)|`[^`]*`")},
}

// Threat describes a rejected value.
type Threat struct {
	Kind  ThreatKind
	Field string
}

func (t *Threat) Error() string {
	if t.Field == "" {
		return fmt.Sprintf("potentially malicious input detected (%s)", t.Kind)
	}
	return fmt.Sprintf("potentially malicious input detected in %q (%s)", t.Field, t.Kind)
}

// DetectThreat returns the first pattern family s matches, if any.
func DetectThreat(s string) (ThreatKind, bool) {
	for _, p := range threatPatterns {
		if p.re.MatchString(s) {
			return p.kind, true
		}
	}
	return "", false
}

// ScanJSON walks every key and string value of a JSON document.
// An empty body is accepted; malformed JSON is reported as an error.
func ScanJSON(body []byte) error {
	if len(body) == 0 {
		return nil
	}
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("invalid JSON format: %w", err)
	}
	if t := scanValue("", doc); t != nil {
		return t
	}
	return nil
}

func scanValue(field string, v interface{}) *Threat {
	switch val := v.(type) {
	case string:
		if kind, ok := DetectThreat(val); ok {
			return &Threat{Kind: kind, Field: field}
		}
	case map[string]interface{}:
		for k, child := range val {
			if kind, ok := DetectThreat(k); ok {
				return &Threat{Kind: kind, Field: k}
			}
			if t := scanValue(k, child); t != nil {
				return t
			}
		}
	case []interface{}:
		for _, child := range val {
			if t := scanValue(field, child); t != nil {
				return t
			}
		}
	}
	return nil
}
