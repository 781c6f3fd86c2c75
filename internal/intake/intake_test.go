package intake

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/screening-responder/internal/candidates"
	"github.com/spigell/screening-responder/internal/screening"
)

func candidate(subject, job string, scores map[string]float64) *screening.CriterionScoreSet {
	return &screening.CriterionScoreSet{SubjectID: subject, JobID: job, Scores: scores}
}

func subjects(list *candidates.List) []string {
	out := make([]string, 0, list.Len())
	for _, item := range list.Items {
		out = append(out, item.SubjectID)
	}
	return out
}

func TestDuplicatesKeepsFirstPair(t *testing.T) {
	list := &candidates.List{Items: []*screening.CriterionScoreSet{
		candidate("cand-1", "job-9", map[string]float64{screening.CriterionSkills: 80}),
		candidate("cand-1", "job-9", map[string]float64{screening.CriterionSkills: 10}),
		candidate("cand-1", "job-7", map[string]float64{screening.CriterionSkills: 60}),
	}}

	out, err := Run(context.Background(), &Config{}, Deps{Logger: zap.NewNop()},
		[]Filter{NewDuplicates()}, list)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.Len() != 2 {
		t.Fatalf("expected 2 candidates, got %v", subjects(out))
	}
	if out.Items[0].Scores[screening.CriterionSkills] != 80 {
		t.Fatalf("first entry of the pair must win, got %v", out.Items[0].Scores)
	}
}

func TestExcludeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exclude.json")
	payload, err := json.Marshal(candidates.Exclusions{Subjects: []string{"cand-2"}})
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	list := &candidates.List{Items: []*screening.CriterionScoreSet{
		candidate("cand-1", "job-9", map[string]float64{screening.CriterionSkills: 80}),
		candidate("cand-2", "job-9", map[string]float64{screening.CriterionSkills: 70}),
	}}

	out, err := Run(context.Background(), &Config{ExcludeFile: path}, Deps{Logger: zap.NewNop()},
		[]Filter{NewExcludeFile()}, list)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.Len() != 1 || out.Items[0].SubjectID != "cand-1" {
		t.Fatalf("expected only cand-1 to survive, got %v", subjects(out))
	}
}

func TestExcludeFileMissing(t *testing.T) {
	list := &candidates.List{Items: []*screening.CriterionScoreSet{
		candidate("cand-1", "job-9", nil),
	}}

	_, err := Run(context.Background(),
		&Config{ExcludeFile: filepath.Join(t.TempDir(), "absent.json")},
		Deps{Logger: zap.NewNop()}, []Filter{NewExcludeFile()}, list)
	if err == nil {
		t.Fatalf("expected an error for a missing exclude file")
	}
}

func TestCompleteDropsUnscored(t *testing.T) {
	cfg := &Config{Required: []string{screening.CriterionSkills, screening.CriterionExperience}}
	list := &candidates.List{Items: []*screening.CriterionScoreSet{
		candidate("cand-1", "job-9", map[string]float64{screening.CriterionSkills: 80}),
		candidate("cand-2", "job-9", map[string]float64{screening.CriterionEducation: 90}),
	}}

	out, err := Run(context.Background(), cfg, Deps{Logger: zap.NewNop()},
		[]Filter{NewComplete(false)}, list)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.Len() != 1 || out.Items[0].SubjectID != "cand-1" {
		t.Fatalf("expected only cand-1 to survive, got %v", subjects(out))
	}
}

func TestCompleteAllowPartial(t *testing.T) {
	cfg := &Config{Required: []string{screening.CriterionSkills}}
	list := &candidates.List{Items: []*screening.CriterionScoreSet{
		candidate("cand-2", "job-9", map[string]float64{screening.CriterionEducation: 90}),
	}}

	out, err := Run(context.Background(), cfg, Deps{Logger: zap.NewNop()},
		[]Filter{NewComplete(true)}, list)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.Len() != 1 {
		t.Fatalf("allow-partial must keep every candidate, got %v", subjects(out))
	}
}

func TestDisableByName(t *testing.T) {
	steps := []Filter{NewDuplicates(), newDisableable("exclude_file")}
	DisableByName(steps, "exclude_file", "not configured")

	list := &candidates.List{Items: []*screening.CriterionScoreSet{
		candidate("cand-1", "job-9", nil),
	}}
	out, err := Run(context.Background(), &Config{}, Deps{}, steps, list)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Len() != 1 {
		t.Fatalf("disabled filter must not run")
	}

	statuses := Describe(steps)
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[1].Enabled {
		t.Fatalf("expected the disabled filter to report disabled")
	}
}

type disableableFilter struct {
	name    string
	enabled bool
}

func newDisableable(name string) *disableableFilter {
	return &disableableFilter{name: name, enabled: true}
}

func (f *disableableFilter) Name() string { return f.name }

func (f *disableableFilter) Disable(string) { f.enabled = false }

func (f *disableableFilter) IsEnabled() bool { return f.enabled }

func (f *disableableFilter) Validate(*Config) error { return nil }

func (f *disableableFilter) Apply(context.Context, Deps, *candidates.List) (*candidates.List, Step, error) {
	return nil, Step{}, nil
}
