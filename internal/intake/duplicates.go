package intake

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/screening-responder/internal/candidates"
)

type duplicatesFilter struct{}

// NewDuplicates creates a filter that keeps only the first entry per
// (subject, job) pair. Extractors occasionally emit the same pair twice and a
// second evaluation would collide on the queue's one-active-entry rule.
func NewDuplicates() Filter {
	return &duplicatesFilter{}
}

func (f *duplicatesFilter) Name() string { return "duplicates" }

func (f *duplicatesFilter) Disable(string) {}

func (f *duplicatesFilter) IsEnabled() bool { return true }

func (f *duplicatesFilter) Validate(*Config) error { return nil }

func (f *duplicatesFilter) Apply(_ context.Context, deps Deps, list *candidates.List) (*candidates.List, Step, error) {
	initial := list.Len()

	seen := make(map[string]struct{}, list.Len())
	dropped := make([]string, 0)
	kept := list.Items[:0]
	for _, item := range list.Items {
		key := fmt.Sprintf("%s/%s", item.SubjectID, item.JobID)
		if _, ok := seen[key]; ok {
			dropped = append(dropped, key)
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, item)
	}
	list.Items = kept

	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Info("dropping duplicate candidate entries",
			zap.Strings("dropped_pairs", dropped),
			zap.Int("candidates_left", list.Len()),
		)
	}

	return list, Step{Initial: initial, Dropped: len(dropped), Left: list.Len()}, nil
}

func (f *duplicatesFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: true}
}
