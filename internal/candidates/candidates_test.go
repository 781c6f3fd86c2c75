package candidates

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spigell/screening-responder/internal/screening"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "candidates.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	return path
}

func TestFromFile(t *testing.T) {
	path := writeFile(t, `{
  "candidates": [
    {
      "subject_id": "cand-1",
      "job_id": "job-9",
      "scores": {"education": 80, "experience": 65, "skills": 70, "communication": 55},
      "raw_signals": {"skills": ["kubernetes", "golang"]}
    },
    {
      "subject_id": "cand-2",
      "job_id": "job-9",
      "scores": {"education": 40, "experience": 90, "skills": 85, "communication": 75}
    }
  ]
}`)

	list, err := FromFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list.Len() != 2 {
		t.Fatalf("expected 2 candidates, got %d", list.Len())
	}

	first := list.Items[0]
	if first.SubjectID != "cand-1" || first.JobID != "job-9" {
		t.Fatalf("unexpected identity: %s / %s", first.SubjectID, first.JobID)
	}
	if first.Scores[screening.CriterionEducation] != 80 {
		t.Fatalf("unexpected education score: %v", first.Scores[screening.CriterionEducation])
	}
	if len(first.Signals(screening.CriterionSkills)) != 2 {
		t.Fatalf("expected 2 skills signals, got %v", first.Signals(screening.CriterionSkills))
	}
}

func TestFromFileEmpty(t *testing.T) {
	list, err := FromFile(writeFile(t, ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list.Len() != 0 {
		t.Fatalf("expected an empty list, got %d items", list.Len())
	}
}

func TestFromFileMissing(t *testing.T) {
	if _, err := FromFile(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestFromFileRequiresIdentity(t *testing.T) {
	path := writeFile(t, `{
  "candidates": [
    {"subject_id": "cand-1", "scores": {"education": 80}}
  ]
}`)

	_, err := FromFile(path)
	if err == nil {
		t.Fatalf("expected an error for a candidate without job_id")
	}
	if !strings.Contains(err.Error(), "job_id") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFromFileRejectsOutOfRangeScore(t *testing.T) {
	path := writeFile(t, `{
  "candidates": [
    {"subject_id": "cand-1", "job_id": "job-9", "scores": {"education": 105}}
  ]
}`)

	if _, err := FromFile(path); !errors.Is(err, screening.ErrOutOfRangeScore) {
		t.Fatalf("expected ErrOutOfRangeScore, got %v", err)
	}
}
