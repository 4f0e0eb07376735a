package matching

import (
	"math"
	"sort"

	"github.com/google/uuid"
)

const (
	SemanticWeight = 0.6
	SkillWeight    = 0.4
)

type CandidateSkill struct {
	SkillID          uuid.UUID
	SkillName        string
	YearsExperience  int
	ProficiencyLevel string
	IsHighlighted    bool
}

type JobSkill struct {
	SkillID            uuid.UUID
	SkillName          string
	IsRequired         bool
	MinYearsExperience int
	Importance         int
}

type SkillScore struct {
	SkillID      uuid.UUID `json:"skill_id"`
	SkillName    string    `json:"skill_name"`
	IsRequired   bool      `json:"is_required"`
	Importance   int       `json:"importance"`
	Met          bool      `json:"met"`
	Contribution float64   `json:"contribution"`
}

type Details struct {
	SemanticComponent float64      `json:"semantic_component"`
	SkillComponent    float64      `json:"skill_component"`
	SemanticWeight    float64      `json:"semantic_weight"`
	SkillWeight       float64      `json:"skill_weight"`
	Partial           bool         `json:"partial"`
	PartialReason     string       `json:"partial_reason,omitempty"`
	Skills            []SkillScore `json:"skills"`
}

type Result struct {
	JobID          uuid.UUID
	CandidateID    uuid.UUID
	Score          float64
	Details        Details
	MatchingSkills []string
	MissingSkills  []string
}

// Compute blends embedding similarity with importance-weighted skill overlap.
// Either embedding may be nil; the result then degrades to skill-only scoring
// and is flagged partial instead of failing.
func Compute(jobID, candidateID uuid.UUID, jobEmbedding, candEmbedding []float32, jobSkills []JobSkill, candSkills []CandidateSkill) Result {
	skillComponent, scores, matchingSkills, missingSkills := SkillComponent(jobSkills, candSkills)

	details := Details{
		SkillComponent: skillComponent,
		SemanticWeight: SemanticWeight,
		SkillWeight:    SkillWeight,
		Skills:         scores,
	}

	var score float64
	if len(jobEmbedding) == 0 || len(candEmbedding) == 0 {
		details.Partial = true
		details.PartialReason = "embedding unavailable"
		details.SemanticWeight = 0
		details.SkillWeight = 1
		score = skillComponent
	} else {
		details.SemanticComponent = SemanticComponent(jobEmbedding, candEmbedding)
		score = SemanticWeight*details.SemanticComponent + SkillWeight*skillComponent
	}

	return Result{
		JobID:          jobID,
		CandidateID:    candidateID,
		Score:          clamp(score, 0, 100),
		Details:        details,
		MatchingSkills: matchingSkills,
		MissingSkills:  missingSkills,
	}
}

// SemanticComponent maps cosine similarity onto [0,100]. Negative similarity
// clamps to zero rather than rescaling.
func SemanticComponent(a, b []float32) float64 {
	return clamp(CosineSimilarity(a, b), 0, 1) * 100
}

func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SkillComponent normalizes matched importance over total importance across
// every job skill, required and preferred alike. A skill counts as met when
// the candidate holds it with at least min_years_experience. Only required
// unmet skills are reported missing.
func SkillComponent(jobSkills []JobSkill, candSkills []CandidateSkill) (float64, []SkillScore, []string, []string) {
	if len(jobSkills) == 0 {
		return 100, nil, nil, nil
	}

	candBySkillID := make(map[uuid.UUID]CandidateSkill, len(candSkills))
	for _, cs := range candSkills {
		if cs.SkillID == uuid.Nil {
			continue
		}
		candBySkillID[cs.SkillID] = cs
	}

	ordered := make([]JobSkill, len(jobSkills))
	copy(ordered, jobSkills)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].SkillID.String() < ordered[j].SkillID.String()
	})

	var totalImportance, matchedImportance float64
	scores := make([]SkillScore, 0, len(ordered))
	matching := make([]string, 0)
	missing := make([]string, 0)

	for _, js := range ordered {
		importance := float64(clampInt(js.Importance, 1, 10))
		totalImportance += importance

		cs, ok := candBySkillID[js.SkillID]
		met := ok && cs.YearsExperience >= js.MinYearsExperience

		sc := SkillScore{
			SkillID:    js.SkillID,
			SkillName:  js.SkillName,
			IsRequired: js.IsRequired,
			Importance: clampInt(js.Importance, 1, 10),
			Met:        met,
		}
		if met {
			sc.Contribution = importance
			matchedImportance += importance
			matching = append(matching, js.SkillName)
		} else if js.IsRequired {
			missing = append(missing, js.SkillName)
		}
		scores = append(scores, sc)
	}

	component := 100 * matchedImportance / totalImportance
	return component, scores, matching, missing
}

// Rank orders results by score descending, candidate ID ascending on ties.
func Rank(results []Result) []Result {
	out := make([]Result, len(results))
	copy(out, results)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].CandidateID.String() < out[j].CandidateID.String()
	})
	return out
}

func clamp(v, minV, maxV float64) float64 {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func clampInt(v, minV, maxV int) int {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}
