package bias

import (
	"fmt"
)

const (
	// Score thresholds partitioning the 0..1 range into Low/Medium/High.
	MediumThreshold = 0.3
	HighThreshold   = 0.6

	// MitigationThreshold is the score at or above which a debiased
	// rewrite is produced.
	MitigationThreshold = 0.3

	termWeight        = 0.15
	requirementWeight = 0.20
)

type Change struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

type JobAnalysis struct {
	BiasTerms          []string
	BiasedRequirements []string
	BiasScore          float64
	Recommendations    []string
}

func (a JobAnalysis) HasBias() bool {
	return a.BiasScore >= MediumThreshold
}

func (a JobAnalysis) Level() string {
	return Level(a.BiasScore)
}

func Level(score float64) string {
	switch {
	case score < MediumThreshold:
		return "Low"
	case score < HighThreshold:
		return "Medium"
	default:
		return "High"
	}
}

// AnalyzeJobDescription scores a posting on a 0..1 scale: each loaded term
// adds 0.15 and each exclusionary requirement adds 0.20, capped at 1.0. The
// count-based score keeps two flagged terms at the Medium boundary no matter
// how long the posting is.
func AnalyzeJobDescription(text string) JobAnalysis {
	analysis := JobAnalysis{}

	for _, e := range languageEntries {
		if e.re.MatchString(text) {
			analysis.BiasTerms = append(analysis.BiasTerms, e.term)
			analysis.Recommendations = append(analysis.Recommendations,
				fmt.Sprintf("Replace %q with %q", e.term, e.replacement))
		}
	}

	for _, e := range requirementRes {
		if e.re.MatchString(text) {
			analysis.BiasedRequirements = append(analysis.BiasedRequirements, e.term)
			analysis.Recommendations = append(analysis.Recommendations,
				fmt.Sprintf("Reconsider requirement %q; it may exclude protected groups", e.term))
		}
	}

	score := termWeight*float64(len(analysis.BiasTerms)) + requirementWeight*float64(len(analysis.BiasedRequirements))
	if score > 1 {
		score = 1
	}
	analysis.BiasScore = score
	return analysis
}

// Debias substitutes every loaded term with its neutral replacement and
// reports the substitutions made. Replacements never reintroduce lexicon
// terms, so reapplying to already-debiased text yields no changes.
func Debias(text string) (string, []Change) {
	out := text
	var changes []Change
	for _, e := range languageEntries {
		if !e.re.MatchString(out) {
			continue
		}
		out = e.re.ReplaceAllString(out, e.replacement)
		changes = append(changes, Change{Before: e.term, After: e.replacement})
	}
	return out, changes
}

// EvaluateTemplate scores prompt-template text for the registry: findings
// from both families plus the same capped linear score used for postings.
func EvaluateTemplate(text string) ([]Finding, float64) {
	findings := Detect(text)
	n := 0
	for _, f := range findings {
		if f.Type == TypeBiasedLanguage {
			n++
		}
	}
	score := termWeight * float64(n)
	if score > 1 {
		score = 1
	}
	return findings, score
}
