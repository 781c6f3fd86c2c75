package routing

import (
	"testing"

	"github.com/spigell/screening-responder/internal/screening"
)

func testConfig() *screening.WeightConfiguration {
	cfg := screening.DefaultConfiguration("acme")
	return cfg
}

func evalWith(score, confidence float64) *screening.Evaluation {
	return &screening.Evaluation{
		SubjectID:    "cand-1",
		JobID:        "job-1",
		OverallScore: score,
		Confidence:   confidence,
	}
}

func TestRouteRedFlagsAlwaysReject(t *testing.T) {
	eval := evalWith(95, 0.99)
	eval.Explanation.RedFlags = []string{"deal_breaker: experience < 30 (got 25)"}

	outcome := Route(eval, testConfig(), Signals{})
	if outcome.Decision != screening.DecisionAutoReject {
		t.Fatalf("expected auto_reject regardless of score, got %s", outcome.Decision)
	}
}

func TestRouteAutoProceedNeedsBothThresholds(t *testing.T) {
	outcome := Route(evalWith(90, 0.95), testConfig(), Signals{})
	if outcome.Decision != screening.DecisionAutoProceed {
		t.Fatalf("expected auto_proceed, got %s: %s", outcome.Decision, outcome.Reason)
	}

	// High score with shaky confidence must not proceed automatically.
	outcome = Route(evalWith(90, 0.75), testConfig(), Signals{})
	if outcome.Decision != screening.DecisionReview {
		t.Fatalf("expected review for low confidence, got %s", outcome.Decision)
	}
}

func TestRouteAutoRejectNeedsBothThresholds(t *testing.T) {
	outcome := Route(evalWith(30, 0.90), testConfig(), Signals{})
	if outcome.Decision != screening.DecisionAutoReject {
		t.Fatalf("expected auto_reject, got %s", outcome.Decision)
	}

	outcome = Route(evalWith(30, 0.60), testConfig(), Signals{})
	if outcome.Decision != screening.DecisionReview {
		t.Fatalf("expected review for low confidence, got %s", outcome.Decision)
	}
}

func TestRouteBorderlineBandIsHighPriority(t *testing.T) {
	// The 69.5 scenario: inside [60, 75), confidence irrelevant.
	outcome := Route(evalWith(69.5, 0.95), testConfig(), Signals{})
	if outcome.Decision != screening.DecisionReview {
		t.Fatalf("expected review, got %s", outcome.Decision)
	}
	if outcome.Priority != screening.PriorityHigh {
		t.Fatalf("expected high priority for band match, got %s", outcome.Priority)
	}
}

func TestRouteBandUpperEdgeIsExclusive(t *testing.T) {
	// 75 is outside [60, 75); only confidence drives the priority here.
	outcome := Route(evalWith(75, 0.75), testConfig(), Signals{})
	if outcome.Decision != screening.DecisionReview {
		t.Fatalf("expected review, got %s", outcome.Decision)
	}
	if outcome.Priority != screening.PriorityMedium {
		t.Fatalf("expected medium priority from confidence 0.75, got %s", outcome.Priority)
	}
}

func TestRouteReviewPriorities(t *testing.T) {
	tests := []struct {
		name       string
		score      float64
		confidence float64
		signals    Signals
		priority   screening.Priority
	}{
		{name: "low confidence is high", score: 50, confidence: 0.60, priority: screening.PriorityHigh},
		{name: "middling confidence is medium", score: 50, confidence: 0.75, priority: screening.PriorityMedium},
		{name: "conflicting signal is medium", score: 50, confidence: 0.95, signals: Signals{ConflictingSignal: true}, priority: screening.PriorityMedium},
		{name: "otherwise low", score: 50, confidence: 0.95, priority: screening.PriorityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := Route(evalWith(tt.score, tt.confidence), testConfig(), tt.signals)
			if outcome.Decision != screening.DecisionReview {
				t.Fatalf("expected review, got %s", outcome.Decision)
			}
			if outcome.Priority != tt.priority {
				t.Fatalf("expected %s priority, got %s (%s)", tt.priority, outcome.Priority, outcome.Reason)
			}
		})
	}
}

func TestRouteComplianceSampleRedirectsProceed(t *testing.T) {
	outcome := Route(evalWith(90, 0.95), testConfig(), Signals{ComplianceSample: true})
	if outcome.Decision != screening.DecisionReview {
		t.Fatalf("expected review, got %s", outcome.Decision)
	}
	if outcome.Priority != screening.PriorityLow {
		t.Fatalf("expected low priority, got %s", outcome.Priority)
	}

	// Sampling never touches cases that would not have proceeded.
	outcome = Route(evalWith(30, 0.90), testConfig(), Signals{ComplianceSample: true})
	if outcome.Decision != screening.DecisionAutoReject {
		t.Fatalf("expected auto_reject, got %s", outcome.Decision)
	}
}
