package screening

// Decision is the three-way outcome of routing policy evaluation.
type Decision string

const (
	DecisionAutoProceed Decision = "auto_proceed"
	DecisionAutoReject  Decision = "auto_reject"
	DecisionReview      Decision = "review"
)

// Priority is the review queue tier assigned when routing to human review.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities for queue serving: a lower rank is served first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Recommendation is the recruiter-facing label derived from the overall
// score bands.
type Recommendation string

const (
	RecommendationStrongFit Recommendation = "strong_fit"
	RecommendationGoodFit   Recommendation = "good_fit"
	RecommendationWeakFit   Recommendation = "weak_fit"
	RecommendationNoFit     Recommendation = "no_fit"
)

// RecommendationFor maps an overall score to its label.
func RecommendationFor(score float64) Recommendation {
	switch {
	case score >= 85:
		return RecommendationStrongFit
	case score >= 70:
		return RecommendationGoodFit
	case score >= 50:
		return RecommendationWeakFit
	default:
		return RecommendationNoFit
	}
}

// Explanation is the structured rationale attached to every evaluation.
type Explanation struct {
	Strengths     []string `json:"strengths,omitempty"`
	Concerns      []string `json:"concerns,omitempty"`
	RedFlags      []string `json:"red_flags,omitempty"`
	ReasoningText string   `json:"reasoning_text,omitempty"`
}

// Evaluation is the immutable result of scoring one subject against one job
// under one configuration version. The engine fills the numeric fields; the
// routing policy fills RoutingDecision and Priority. Identity and timestamps
// are assigned by the caller at persistence time so that the engine stays a
// deterministic function of its inputs.
type Evaluation struct {
	SubjectID     string `json:"subject_id"`
	JobID         string `json:"job_id"`
	OrgID         string `json:"org_id"`
	ConfigVersion int    `json:"config_version"`

	OverallScore   float64        `json:"overall_score"`
	Confidence     float64        `json:"confidence"`
	Recommendation Recommendation `json:"recommendation"`
	Explanation    Explanation    `json:"explanation"`

	RoutingDecision Decision `json:"routing_decision,omitempty"`
	Priority        Priority `json:"priority,omitempty"`
}
