package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/screening-responder/internal/screening"
)

type stubGenerator struct {
	response   string
	err        error
	failures   int
	calls      int
	lastPrompt string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.calls++
	s.lastPrompt = prompt
	if s.failures > 0 {
		s.failures--
		return "", errors.New("transient upstream error")
	}

	return s.response, s.err
}

func (s *stubGenerator) Model() string { return "stub-model" }

func testEvaluation() (*screening.Evaluation, *screening.CriterionScoreSet) {
	eval := &screening.Evaluation{
		SubjectID:    "cand-1",
		JobID:        "job-9",
		OverallScore: 72.5,
		Confidence:   0.81,
		Explanation: screening.Explanation{
			Strengths: []string{"skills (85)"},
			Concerns:  []string{"experience (40)"},
		},
	}
	set := &screening.CriterionScoreSet{
		SubjectID: "cand-1",
		JobID:     "job-9",
		Scores: map[string]float64{
			screening.CriterionSkills:     85,
			screening.CriterionExperience: 40,
		},
		RawSignals: map[string][]string{
			screening.CriterionSkills: {"kubernetes"},
		},
	}

	return eval, set
}

func TestNarrate(t *testing.T) {
	stub := &stubGenerator{response: "  Strong technical profile.\n"}
	narrator := NewNarrator(stub, zap.NewNop(), 0, 0)

	eval, set := testEvaluation()
	narrative, err := narrator.Narrate(context.Background(), eval, set)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if narrative.Text != "Strong technical profile." {
		t.Fatalf("unexpected narrative text: %q", narrative.Text)
	}
	if narrative.Raw != stub.response {
		t.Fatalf("raw response was altered: %q", narrative.Raw)
	}
	if !strings.Contains(stub.lastPrompt, `"cand-1"`) {
		t.Fatalf("prompt does not carry the evaluation payload: %q", stub.lastPrompt)
	}
	if !strings.Contains(stub.lastPrompt, "kubernetes") {
		t.Fatalf("prompt does not carry the raw signals: %q", stub.lastPrompt)
	}
}

func TestNarrateRetriesTransientFailures(t *testing.T) {
	stub := &stubGenerator{response: "Recovered.", failures: 2}
	narrator := NewNarrator(stub, zap.NewNop(), 2, 0)
	narrator.retryDelay = time.Millisecond

	eval, set := testEvaluation()
	narrative, err := narrator.Narrate(context.Background(), eval, set)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if narrative.Text != "Recovered." {
		t.Fatalf("unexpected narrative text: %q", narrative.Text)
	}
	if stub.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", stub.calls)
	}
}

func TestNarrateGivesUpAfterRetries(t *testing.T) {
	stub := &stubGenerator{failures: 5}
	narrator := NewNarrator(stub, zap.NewNop(), 1, 0)
	narrator.retryDelay = time.Millisecond

	eval, set := testEvaluation()
	if _, err := narrator.Narrate(context.Background(), eval, set); err == nil {
		t.Fatalf("expected an error after exhausting retries")
	}
	if stub.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", stub.calls)
	}
}

func TestNarrateRequiresEvaluation(t *testing.T) {
	narrator := NewNarrator(&stubGenerator{}, zap.NewNop(), 0, 0)

	if _, err := narrator.Narrate(context.Background(), nil, &screening.CriterionScoreSet{}); err == nil {
		t.Fatalf("expected an error for a nil evaluation")
	}
}
