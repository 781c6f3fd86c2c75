// Package routing decides what happens to a finished evaluation: automatic
// acceptance, automatic rejection, or a prioritized hand-off to the human
// review queue.
package routing

import (
	"fmt"

	"github.com/spigell/screening-responder/internal/screening"
)

const (
	// Confidence floors for review priority assignment.
	highPriorityConfidence   = 0.70
	mediumPriorityConfidence = 0.80
)

// Signals are externally supplied inputs the policy accepts without altering
// its own thresholds.
type Signals struct {
	// ComplianceSample redirects an otherwise auto_proceed case to review
	// at low priority. The sampling decision itself is made outside the
	// policy.
	ComplianceSample bool

	// ConflictingSignal marks a disagreement with another signal source;
	// it raises a review case to at least medium priority.
	ConflictingSignal bool
}

// Outcome is the policy verdict for one evaluation.
type Outcome struct {
	Decision screening.Decision
	// Priority is set only when Decision is review.
	Priority screening.Priority
	Reason   string
}

// Route applies the decision table in fixed order, first match wins:
//
//  1. any red flags: auto_reject
//  2. score and confidence above the proceed thresholds: auto_proceed
//  3. score below and confidence above the reject thresholds: auto_reject
//  4. otherwise: review, with a tiered priority
//
// The ordering guarantees a deal-breaker rejection is never overridden by a
// high aggregate score, and that the borderline band always reaches a human.
func Route(eval *screening.Evaluation, cfg *screening.WeightConfiguration, sig Signals) Outcome {
	t := cfg.Thresholds

	if len(eval.Explanation.RedFlags) > 0 {
		return Outcome{
			Decision: screening.DecisionAutoReject,
			Reason:   fmt.Sprintf("red flags present: %d", len(eval.Explanation.RedFlags)),
		}
	}

	if eval.OverallScore >= t.AutoProceedScore && eval.Confidence >= t.AutoProceedMinConfidence {
		if sig.ComplianceSample {
			return Outcome{
				Decision: screening.DecisionReview,
				Priority: screening.PriorityLow,
				Reason:   "compliance sample of an auto_proceed case",
			}
		}
		return Outcome{
			Decision: screening.DecisionAutoProceed,
			Reason:   fmt.Sprintf("score %.1f and confidence %.2f above proceed thresholds", eval.OverallScore, eval.Confidence),
		}
	}

	if eval.OverallScore <= t.AutoRejectScore && eval.Confidence >= t.AutoRejectMinConfidence {
		return Outcome{
			Decision: screening.DecisionAutoReject,
			Reason:   fmt.Sprintf("score %.1f below reject threshold with confidence %.2f", eval.OverallScore, eval.Confidence),
		}
	}

	return review(eval, t, sig)
}

func review(eval *screening.Evaluation, t screening.Thresholds, sig Signals) Outcome {
	inBand := eval.OverallScore >= t.ReviewBandLow && eval.OverallScore < t.ReviewBandHigh

	switch {
	case inBand:
		return Outcome{
			Decision: screening.DecisionReview,
			Priority: screening.PriorityHigh,
			Reason:   fmt.Sprintf("score %.1f inside the borderline band [%.0f, %.0f)", eval.OverallScore, t.ReviewBandLow, t.ReviewBandHigh),
		}
	case eval.Confidence < highPriorityConfidence:
		return Outcome{
			Decision: screening.DecisionReview,
			Priority: screening.PriorityHigh,
			Reason:   fmt.Sprintf("confidence %.2f below %.2f", eval.Confidence, highPriorityConfidence),
		}
	case eval.Confidence < mediumPriorityConfidence:
		return Outcome{
			Decision: screening.DecisionReview,
			Priority: screening.PriorityMedium,
			Reason:   fmt.Sprintf("confidence %.2f below %.2f", eval.Confidence, mediumPriorityConfidence),
		}
	case sig.ConflictingSignal:
		return Outcome{
			Decision: screening.DecisionReview,
			Priority: screening.PriorityMedium,
			Reason:   "conflicting external signal flagged",
		}
	default:
		return Outcome{
			Decision: screening.DecisionReview,
			Priority: screening.PriorityLow,
			Reason:   "no automatic threshold met",
		}
	}
}
