// Package candidates loads extractor output from disk. The extraction
// collaborator produces one criterion score set per (subject, job) pair; this
// package only decodes and validates, it never derives scores.
package candidates

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/screening-responder/internal/screening"
)

// List is the decoded candidates file.
type List struct {
	Items []*screening.CriterionScoreSet `json:"candidates"`
}

func (l *List) Len() int {
	return len(l.Items)
}

// FromFile reads a candidates file. An empty file yields an empty list.
func FromFile(path string) (*List, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &List{}, nil
	}

	var raw struct {
		Candidates []map[string]any `json:"candidates"`
	}
	if err := json.NewDecoder(file).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding candidates file %s: %w", path, err)
	}

	list := &List{Items: make([]*screening.CriterionScoreSet, 0, len(raw.Candidates))}
	for i, item := range raw.Candidates {
		var set screening.CriterionScoreSet
		if err := mapstructure.Decode(item, &set); err != nil {
			return nil, fmt.Errorf("decoding candidate %d: %w", i, err)
		}
		if set.SubjectID == "" || set.JobID == "" {
			return nil, fmt.Errorf("candidate %d: subject_id and job_id are required", i)
		}
		if err := set.Validate(); err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		list.Items = append(list.Items, &set)
	}

	return list, nil
}

// Exclusions is a decoded exclusion file: subject IDs to skip at intake.
type Exclusions struct {
	Subjects []string `json:"subjects"`
}

// ExclusionsFromFile reads an exclusion file.
func ExclusionsFromFile(path string) (*Exclusions, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var excluded Exclusions
	if err := json.NewDecoder(file).Decode(&excluded); err != nil {
		return nil, fmt.Errorf("decoding exclusion file %s: %w", path, err)
	}

	return &excluded, nil
}

// Exclude removes candidates whose subject ID is listed and returns the
// removed subject IDs.
func (l *List) Exclude(subjects []string) []string {
	listed := make(map[string]struct{}, len(subjects))
	for _, id := range subjects {
		listed[id] = struct{}{}
	}

	removed := make([]string, 0)
	kept := l.Items[:0]
	for _, item := range l.Items {
		if _, ok := listed[item.SubjectID]; ok {
			removed = append(removed, item.SubjectID)
			continue
		}
		kept = append(kept, item)
	}
	l.Items = kept

	return removed
}

// DumpToTmpFile writes the provided report to a temp file and returns its
// name.
func DumpToTmpFile(report any) (string, error) {
	file, err := os.CreateTemp("", "screening_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return "", err
	}

	return file.Name(), nil
}
