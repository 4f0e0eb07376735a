package bias

import (
	"strings"
	"testing"
)

func TestLevelThresholds(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{0.0, "Low"},
		{0.29, "Low"},
		{0.3, "Medium"},
		{0.59, "Medium"},
		{0.6, "High"},
		{1.0, "High"},
	}
	for _, c := range cases {
		if got := Level(c.score); got != c.want {
			t.Fatalf("Level(%v) = %q, want %q", c.score, got, c.want)
		}
	}
}

func TestAnalyzeJobDescription_Clean(t *testing.T) {
	a := AnalyzeJobDescription("Backend engineer building payment infrastructure in Go and Postgres.")
	if a.BiasScore != 0 {
		t.Fatalf("expected score 0, got %v", a.BiasScore)
	}
	if a.HasBias() {
		t.Fatalf("clean text must not report bias")
	}
	if a.Level() != "Low" {
		t.Fatalf("expected Low level, got %q", a.Level())
	}
}

func TestAnalyzeJobDescription_TwoTerms(t *testing.T) {
	a := AnalyzeJobDescription("Seeking a rockstar engineer with an aggressive approach to sales.")
	if len(a.BiasTerms) != 2 {
		t.Fatalf("expected 2 bias terms, got %v", a.BiasTerms)
	}
	if a.BiasScore < 0.3 {
		t.Fatalf("two flagged terms must reach the Medium boundary, got %v", a.BiasScore)
	}
	if lvl := a.Level(); lvl != "Medium" && lvl != "High" {
		t.Fatalf("expected Medium or High, got %q", lvl)
	}
	if !a.HasBias() {
		t.Fatalf("expected has_bias")
	}
	if len(a.Recommendations) == 0 {
		t.Fatalf("expected recommendations")
	}
}

func TestAnalyzeJobDescription_RequirementWeighting(t *testing.T) {
	a := AnalyzeJobDescription("Must be a native english speaker and a recent graduate.")
	if len(a.BiasedRequirements) != 2 {
		t.Fatalf("expected 2 biased requirements, got %v", a.BiasedRequirements)
	}
	// "recent graduate" is also an age-coded phrase but only requirement
	// phrases contribute the 0.20 weight here.
	if a.BiasScore < 0.4 {
		t.Fatalf("expected score >= 0.4, got %v", a.BiasScore)
	}
}

func TestAnalyzeJobDescription_ScoreCapped(t *testing.T) {
	text := strings.Join([]string{
		"rockstar", "ninja", "guru", "superhero", "aggressive", "dominant",
		"competitive", "manpower", "chairman", "salesman",
		"native english speaker", "recent graduate", "able-bodied",
	}, " and ")
	a := AnalyzeJobDescription(text)
	if a.BiasScore != 1 {
		t.Fatalf("expected capped score 1.0, got %v", a.BiasScore)
	}
	if a.Level() != "High" {
		t.Fatalf("expected High, got %q", a.Level())
	}
}

func TestDebias(t *testing.T) {
	text := "We want a rockstar who is aggressive about growing our manpower."
	out, changes := Debias(text)
	if out == text {
		t.Fatalf("expected rewritten text")
	}
	if len(changes) != 3 {
		t.Fatalf("expected 3 changes, got %v", changes)
	}
	if a := AnalyzeJobDescription(out); len(a.BiasTerms) != 0 {
		t.Fatalf("debiased text still contains terms: %v", a.BiasTerms)
	}
}

func TestDebias_Idempotent(t *testing.T) {
	once, _ := Debias("Our rockstar ninja team plays a dominant role.")
	twice, changes := Debias(once)
	if len(changes) != 0 {
		t.Fatalf("re-debiasing must make no changes, got %v", changes)
	}
	if twice != once {
		t.Fatalf("re-debiasing altered text:\n%s\n%s", once, twice)
	}
}

func TestEvaluateTemplate(t *testing.T) {
	findings, score := EvaluateTemplate("Extract the rockstar qualities of this candidate.")
	if len(findings) == 0 {
		t.Fatalf("expected findings")
	}
	if score <= 0 {
		t.Fatalf("expected positive score, got %v", score)
	}

	clean, cleanScore := EvaluateTemplate("Extract name, skills, and work history as JSON.")
	if len(clean) != 0 || cleanScore != 0 {
		t.Fatalf("expected clean template, got %v score %v", clean, cleanScore)
	}
}
