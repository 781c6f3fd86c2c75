package screening

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	// concernFloor is the score below which a criterion is listed as a
	// concern in the explanation.
	concernFloor = 50.0

	// defaultKeywordBonus and maxKeywordBonus bound the preferred_keyword
	// additive bonus applied after the weighted sum.
	defaultKeywordBonus = 2.0
	maxKeywordBonus     = 10.0

	// missingPenalty is subtracted from confidence for every weighted
	// criterion absent from the score set.
	missingPenalty = 0.1

	// spreadNormalizer maps the criterion score standard deviation into
	// [0,1]. 50 is the maximum possible deviation for values in [0,100].
	spreadNormalizer = 50.0

	strengthsCount = 2
)

// Evaluate scores one subject against one configuration version. It is a
// pure function of its two inputs: identical inputs always produce an
// identical Evaluation, which keeps historical re-scoring deterministic.
func Evaluate(set *CriterionScoreSet, cfg *WeightConfiguration) (*Evaluation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}

	eval := &Evaluation{
		SubjectID:     set.SubjectID,
		JobID:         set.JobID,
		OrgID:         cfg.OrgID,
		ConfigVersion: cfg.Version,
	}

	effective := make(map[string]float64, len(set.Scores))
	for name, score := range set.Scores {
		effective[name] = score
	}

	rejected := false
	bonus := 0.0

	for _, rule := range cfg.CustomRules {
		switch rule.Kind {
		case RuleDealBreaker:
			score, ok := set.Scores[rule.Criterion]
			if !ok {
				return nil, fmt.Errorf("%w: %s required by deal_breaker rule", ErrMissingCriterion, rule.Criterion)
			}
			if score < rule.Threshold {
				rejected = true
				eval.Explanation.RedFlags = append(eval.Explanation.RedFlags,
					fmt.Sprintf("%s (got %v)", rule, score))
			}
		case RuleMustHave:
			score := set.Scores[rule.Criterion]
			if score < rule.Threshold {
				effective[rule.Criterion] = math.Min(score, rule.Ceiling)
				eval.Explanation.RedFlags = append(eval.Explanation.RedFlags,
					fmt.Sprintf("%s (got %v, capped at %v)", rule, score, rule.Ceiling))
			}
		case RulePreferredKeyword:
			if matchKeyword(set, rule) {
				b := rule.Bonus
				if b <= 0 {
					b = defaultKeywordBonus
				}
				bonus = math.Min(bonus+b, maxKeywordBonus)
			}
		default:
			return nil, fmt.Errorf("%w: unknown rule kind %q", ErrInvalidConfiguration, rule.Kind)
		}
	}

	mean := 0.0
	missing := 0
	for _, name := range cfg.WeightedCriteria() {
		if _, ok := set.Scores[name]; !ok {
			missing++
			continue
		}
		mean += cfg.Weights[name] * effective[name]
	}

	eval.OverallScore = clamp(mean+bonus, MinScore, MaxScore)
	eval.Confidence = confidence(set, cfg, mean, missing)
	eval.Explanation.Strengths = strengths(set, cfg)
	eval.Explanation.Concerns = concerns(set)

	if rejected {
		// A deal-breaker overrides everything else: zero score, certain.
		eval.OverallScore = 0
		eval.Confidence = 1
	}

	eval.Recommendation = RecommendationFor(eval.OverallScore)

	return eval, nil
}

// confidence derives the [0,1] reliability measure from the weighted spread
// of criterion scores around the weighted mean, minus a fixed penalty per
// missing weighted criterion.
func confidence(set *CriterionScoreSet, cfg *WeightConfiguration, mean float64, missing int) float64 {
	variance := 0.0
	for _, name := range cfg.WeightedCriteria() {
		score, ok := set.Scores[name]
		if !ok {
			continue
		}
		diff := score - mean
		variance += cfg.Weights[name] * diff * diff
	}

	spread := math.Sqrt(variance) / spreadNormalizer

	return clamp(1-spread-float64(missing)*missingPenalty, 0, 1)
}

// strengths lists the top criteria by weighted contribution, ties broken by
// name so the result is stable.
func strengths(set *CriterionScoreSet, cfg *WeightConfiguration) []string {
	type contribution struct {
		name  string
		value float64
	}

	contributions := make([]contribution, 0, len(cfg.Weights))
	for _, name := range cfg.WeightedCriteria() {
		score, ok := set.Scores[name]
		if !ok {
			continue
		}
		contributions = append(contributions, contribution{name: name, value: cfg.Weights[name] * score})
	}

	sort.SliceStable(contributions, func(i, j int) bool {
		if contributions[i].value != contributions[j].value {
			return contributions[i].value > contributions[j].value
		}
		return contributions[i].name < contributions[j].name
	})

	top := make([]string, 0, strengthsCount)
	for _, c := range contributions {
		if len(top) == strengthsCount {
			break
		}
		top = append(top, fmt.Sprintf("%s (%v)", c.name, set.Scores[c.name]))
	}

	return top
}

func concerns(set *CriterionScoreSet) []string {
	var out []string
	for _, name := range set.CriteriaNames() {
		if score := set.Scores[name]; score < concernFloor {
			out = append(out, fmt.Sprintf("%s (%v)", name, score))
		}
	}

	return out
}

// matchKeyword reports whether the rule keyword appears in the raw signals
// of the target criterion, or anywhere when the rule has no target.
func matchKeyword(set *CriterionScoreSet, rule CustomRule) bool {
	keyword := strings.ToLower(rule.Keyword)

	signals := set.Signals(rule.Criterion)
	if rule.Criterion == "" {
		for _, values := range set.RawSignals {
			signals = append(signals, values...)
		}
	}

	for _, signal := range signals {
		if strings.Contains(strings.ToLower(signal), keyword) {
			return true
		}
	}

	return false
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
