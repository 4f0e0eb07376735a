package bias

import (
	"regexp"
	"sort"
	"strings"
)

// Protected-class phrase lexicon, grouped by attribute. Matching is
// case-insensitive on word boundaries.
var protectedAttributePhrases = map[string][]string{
	"age":            {"years old", "age", "young", "youthful", "recent graduate", "digital native", "over 50", "under 30"},
	"gender":         {"male", "female", "man", "woman", "he", "she", "his", "her", "gender"},
	"race":           {"race", "ethnicity", "ethnic", "nationality", "national origin"},
	"religion":       {"religion", "religious", "church", "christian", "muslim", "jewish"},
	"disability":     {"disability", "disabled", "able-bodied", "handicap"},
	"marital_status": {"married", "unmarried", "single mother", "single father", "marital status"},
	"family":         {"children", "pregnant", "pregnancy", "family commitments"},
}

// Loaded terms with neutral substitutes. Replacements must not themselves
// appear in the lexicon or debiasing would never converge.
var biasedTermReplacements = map[string]string{
	"rockstar":       "skilled professional",
	"ninja":          "expert",
	"guru":           "specialist",
	"superhero":      "high performer",
	"aggressive":     "proactive",
	"dominant":       "leading",
	"competitive":    "results-oriented",
	"manpower":       "workforce",
	"man hours":      "work hours",
	"chairman":       "chairperson",
	"salesman":       "salesperson",
	"workmanship":    "craft quality",
	"brotherhood":    "community",
	"energetic":      "motivated",
	"fearless":       "confident",
	"work hard play hard": "balanced team culture",
}

// Requirement phrasings that exclude protected groups outright.
var biasedRequirementPhrases = []string{
	"native english speaker",
	"recent graduate",
	"digital native",
	"no visible tattoos",
	"able-bodied",
	"must own a car",
	"unmarried",
	"culture fit",
}

type lexiconEntry struct {
	term        string
	replacement string
	attribute   string
	re          *regexp.Regexp
}

var (
	protectedEntries []lexiconEntry
	languageEntries  []lexiconEntry
	requirementRes   []lexiconEntry
)

func init() {
	// Lexicons live in maps; fix iteration order so findings come out the
	// same on every run.
	attributes := make([]string, 0, len(protectedAttributePhrases))
	for a := range protectedAttributePhrases {
		attributes = append(attributes, a)
	}
	sort.Strings(attributes)
	for _, attribute := range attributes {
		for _, p := range protectedAttributePhrases[attribute] {
			protectedEntries = append(protectedEntries, lexiconEntry{
				term:      p,
				attribute: attribute,
				re:        wordRe(p),
			})
		}
	}

	terms := make([]string, 0, len(biasedTermReplacements))
	for t := range biasedTermReplacements {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	for _, term := range terms {
		languageEntries = append(languageEntries, lexiconEntry{
			term:        term,
			replacement: biasedTermReplacements[term],
			re:          wordRe(term),
		})
	}

	for _, p := range biasedRequirementPhrases {
		requirementRes = append(requirementRes, lexiconEntry{term: p, re: wordRe(p)})
	}
}

func wordRe(phrase string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(phrase) + `\b`)
}

// DetectProtectedAttributes flags references to protected classes.
func DetectProtectedAttributes(text string) []Finding {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var findings []Finding
	seen := map[string]bool{}
	for _, e := range protectedEntries {
		loc := e.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		key := e.attribute + ":" + strings.ToLower(e.term)
		if seen[key] {
			continue
		}
		seen[key] = true
		findings = append(findings, Finding{
			Type:      TypeProtectedAttribute,
			Attribute: e.attribute,
			Term:      strings.ToLower(e.term),
			Context:   contextAround(text, loc[0], loc[1]),
		})
	}
	return findings
}

// DetectBiasedLanguage flags loaded terms from the replacement lexicon.
func DetectBiasedLanguage(text string) []Finding {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var findings []Finding
	seen := map[string]bool{}
	for _, e := range languageEntries {
		loc := e.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		term := strings.ToLower(e.term)
		if seen[term] {
			continue
		}
		seen[term] = true
		findings = append(findings, Finding{
			Type:    TypeBiasedLanguage,
			Term:    term,
			Context: contextAround(text, loc[0], loc[1]),
		})
	}
	return findings
}

// Detect runs both finding families over the text.
func Detect(text string) []Finding {
	findings := DetectProtectedAttributes(text)
	return append(findings, DetectBiasedLanguage(text)...)
}

func contextAround(text string, start, end int) string {
	const window = 40
	from := start - window
	if from < 0 {
		from = 0
	}
	to := end + window
	if to > len(text) {
		to = len(text)
	}
	return strings.TrimSpace(text[from:to])
}
