package bias

import (
	"encoding/json"

	"github.com/mitchellh/mapstructure"
)

const (
	TypeProtectedAttribute = "protected_attribute"
	TypeBiasedLanguage     = "biased_language"
	TypeDetectionError     = "detection_error"
)

type Finding struct {
	Type      string `json:"type" mapstructure:"type"`
	Attribute string `json:"attribute,omitempty" mapstructure:"attribute"`
	Term      string `json:"term,omitempty" mapstructure:"term"`
	Context   string `json:"context,omitempty" mapstructure:"context"`
}

// HasBias reports whether any real finding is present. Detection-error
// markers record degraded runs and do not count as bias.
func HasBias(findings, promptBias []Finding) bool {
	count := func(fs []Finding) int {
		n := 0
		for _, f := range fs {
			if f.Type != TypeDetectionError {
				n++
			}
		}
		return n
	}
	return count(findings) > 0 || count(promptBias) > 0
}

// Summarize groups serialized findings by type: attributes for
// protected-attribute findings, terms for biased-language findings.
// Malformed input degrades to a single error bucket.
func Summarize(raw []byte) map[string][]string {
	if len(raw) == 0 {
		return map[string][]string{}
	}

	var decoded []map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return map[string][]string{"error": {"Could not parse findings"}}
	}

	summary := map[string][]string{}
	for _, entry := range decoded {
		var f Finding
		if err := mapstructure.Decode(entry, &f); err != nil {
			return map[string][]string{"error": {"Could not parse findings"}}
		}

		t := f.Type
		if t == "" {
			t = "unknown"
		}

		switch t {
		case TypeProtectedAttribute:
			summary[t] = append(summary[t], orUnknown(f.Attribute))
		case TypeBiasedLanguage:
			summary[t] = append(summary[t], orUnknown(f.Term))
		default:
			summary[t] = append(summary[t], orUnknown(f.Context))
		}
	}
	return summary
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
