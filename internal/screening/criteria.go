package screening

import (
	"fmt"
	"math"
	"sort"
)

// Well-known criterion names. Extractors may supply additional criteria; the
// engine only consumes the ones present in the active weight configuration.
const (
	CriterionEducation     = "education"
	CriterionExperience    = "experience"
	CriterionSkills        = "skills"
	CriterionCommunication = "communication"
)

const (
	// MinScore and MaxScore bound every criterion score. Values outside the
	// range are a contract violation by the extraction collaborator.
	MinScore = 0
	MaxScore = 100
)

// CriterionScoreSet holds the per-criterion inputs for one (subject, job)
// pair, already normalized to the 0-100 scale by the external extractor. It
// is immutable once built: the engine only reads it.
type CriterionScoreSet struct {
	SubjectID string `json:"subject_id" mapstructure:"subject_id"`
	JobID     string `json:"job_id" mapstructure:"job_id"`

	// Scores maps criterion name to its normalized value.
	Scores map[string]float64 `json:"scores" mapstructure:"scores"`

	// RawSignals carries free-form supporting evidence per criterion. It
	// feeds explanation text and keyword rules only, never the weighted sum.
	RawSignals map[string][]string `json:"raw_signals,omitempty" mapstructure:"raw_signals"`
}

// Validate checks the extractor contract: every score must sit inside
// [MinScore, MaxScore].
func (s *CriterionScoreSet) Validate() error {
	for _, name := range s.CriteriaNames() {
		score := s.Scores[name]
		// NaN compares false against both bounds.
		if math.IsNaN(score) || score < MinScore || score > MaxScore {
			return fmt.Errorf("%w: %s=%v for subject %s", ErrOutOfRangeScore, name, score, s.SubjectID)
		}
	}

	return nil
}

// CriteriaNames returns the criterion names present in the set, sorted for
// deterministic iteration.
func (s *CriterionScoreSet) CriteriaNames() []string {
	names := make([]string, 0, len(s.Scores))
	for name := range s.Scores {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Signals returns the raw evidence recorded for the given criterion.
func (s *CriterionScoreSet) Signals(criterion string) []string {
	if s.RawSignals == nil {
		return nil
	}
	return s.RawSignals[criterion]
}
