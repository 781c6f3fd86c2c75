package screening

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// WeightSumTolerance is the allowed deviation of the weight sum from 1.0.
const WeightSumTolerance = 1e-6

// RuleKind tags a custom rule variant. Rules are evaluated in declaration
// order with a fixed effect per kind.
type RuleKind string

const (
	// RuleMustHave caps the criterion score at the rule ceiling when the
	// criterion falls below the rule threshold and records a red flag.
	RuleMustHave RuleKind = "must_have"
	// RuleDealBreaker forces the whole evaluation to zero with full
	// confidence when the criterion falls below the rule threshold.
	RuleDealBreaker RuleKind = "deal_breaker"
	// RulePreferredKeyword adds a bounded bonus when the keyword appears in
	// the raw signals of the target criterion.
	RulePreferredKeyword RuleKind = "preferred_keyword"
)

// CustomRule is one organization-specific screening rule.
type CustomRule struct {
	Kind      RuleKind `json:"kind" mapstructure:"kind"`
	Criterion string   `json:"criterion" mapstructure:"criterion"`

	// Threshold is the minimum acceptable score for must_have and
	// deal_breaker rules.
	Threshold float64 `json:"threshold,omitempty" mapstructure:"threshold"`

	// Ceiling caps the criterion score when a must_have rule is unmet.
	Ceiling float64 `json:"ceiling,omitempty" mapstructure:"ceiling"`

	// Keyword is matched case-insensitively against raw signals for
	// preferred_keyword rules.
	Keyword string `json:"keyword,omitempty" mapstructure:"keyword"`

	// Bonus overrides the default preferred_keyword bonus when positive.
	Bonus float64 `json:"bonus,omitempty" mapstructure:"bonus"`
}

func (r CustomRule) String() string {
	switch r.Kind {
	case RulePreferredKeyword:
		return fmt.Sprintf("%s: %q on %s", r.Kind, r.Keyword, r.Criterion)
	default:
		return fmt.Sprintf("%s: %s < %v", r.Kind, r.Criterion, r.Threshold)
	}
}

// Thresholds drives the routing policy decision table.
type Thresholds struct {
	AutoProceedScore         float64 `json:"auto_proceed_score" mapstructure:"auto-proceed-score"`
	AutoProceedMinConfidence float64 `json:"auto_proceed_min_confidence" mapstructure:"auto-proceed-min-confidence"`
	AutoRejectScore          float64 `json:"auto_reject_score" mapstructure:"auto-reject-score"`
	AutoRejectMinConfidence  float64 `json:"auto_reject_min_confidence" mapstructure:"auto-reject-min-confidence"`
	ReviewBandLow            float64 `json:"review_band_low" mapstructure:"review-band-low"`
	ReviewBandHigh           float64 `json:"review_band_high" mapstructure:"review-band-high"`
}

// WeightConfiguration is one immutable configuration version for an
// organization. New versions are produced by the calibration apply step;
// existing versions are never edited in place.
type WeightConfiguration struct {
	OrgID   string `json:"org_id" mapstructure:"org-id"`
	Version int    `json:"version" mapstructure:"version"`

	// Weights maps criterion name to its fraction of the overall score.
	// The fractions must sum to 1.0 within WeightSumTolerance.
	Weights map[string]float64 `json:"weights" mapstructure:"weights"`

	CustomRules []CustomRule `json:"custom_rules,omitempty" mapstructure:"rules"`
	Thresholds  Thresholds   `json:"thresholds" mapstructure:"thresholds"`

	CreatedAt  time.Time `json:"created_at,omitempty" mapstructure:"-"`
	ApprovedBy string    `json:"approved_by,omitempty" mapstructure:"-"`
}

// DefaultConfiguration returns the onboarding configuration for a new
// organization: the stock weight profile plus conservative thresholds.
func DefaultConfiguration(orgID string) *WeightConfiguration {
	return &WeightConfiguration{
		OrgID:   orgID,
		Version: 1,
		Weights: map[string]float64{
			CriterionExperience:    0.35,
			CriterionSkills:        0.30,
			CriterionEducation:     0.25,
			CriterionCommunication: 0.10,
		},
		Thresholds: Thresholds{
			AutoProceedScore:         75,
			AutoProceedMinConfidence: 0.80,
			AutoRejectScore:          40,
			AutoRejectMinConfidence:  0.80,
			ReviewBandLow:            60,
			ReviewBandHigh:           75,
		},
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks the configuration invariants. A violated weight sum is
// reported as ErrInvalidConfiguration.
func (c *WeightConfiguration) Validate() error {
	if len(c.Weights) == 0 {
		return fmt.Errorf("%w: no weights defined for org %s", ErrInvalidConfiguration, c.OrgID)
	}

	sum := 0.0
	for name, weight := range c.Weights {
		if weight < 0 {
			return fmt.Errorf("%w: negative weight %v for criterion %s", ErrInvalidConfiguration, weight, name)
		}
		sum += weight
	}

	if math.Abs(sum-1.0) > WeightSumTolerance {
		return fmt.Errorf("%w: weights sum to %v, want 1.0", ErrInvalidConfiguration, sum)
	}

	for _, rule := range c.CustomRules {
		if rule.Criterion == "" && rule.Kind != RulePreferredKeyword {
			return fmt.Errorf("%w: rule %q has no target criterion", ErrInvalidConfiguration, rule.Kind)
		}
		if rule.Kind == RulePreferredKeyword && rule.Keyword == "" {
			return fmt.Errorf("%w: preferred_keyword rule has no keyword", ErrInvalidConfiguration)
		}
	}

	return nil
}

// Clone returns a deep copy. Stored configurations are handed out as clones
// so callers cannot mutate history.
func (c *WeightConfiguration) Clone() *WeightConfiguration {
	clone := *c

	clone.Weights = make(map[string]float64, len(c.Weights))
	for name, weight := range c.Weights {
		clone.Weights[name] = weight
	}

	clone.CustomRules = make([]CustomRule, len(c.CustomRules))
	copy(clone.CustomRules, c.CustomRules)

	return &clone
}

// WeightedCriteria returns the criterion names carrying a weight, sorted for
// deterministic iteration.
func (c *WeightConfiguration) WeightedCriteria() []string {
	names := make([]string, 0, len(c.Weights))
	for name := range c.Weights {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
