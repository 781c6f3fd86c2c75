package intake

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/screening-responder/internal/candidates"
)

type completeFilter struct {
	ignore   bool
	required []string
}

// NewComplete creates a filter that removes candidates carrying no score for
// any of the required criteria. Such entries only produce a zero-confidence
// evaluation that goes straight to review. Set allowPartial to let them
// through anyway.
func NewComplete(allowPartial bool) Filter {
	return &completeFilter{ignore: allowPartial}
}

func (f *completeFilter) Name() string { return "complete_scores" }

func (f *completeFilter) Disable(string) {}

func (f *completeFilter) IsEnabled() bool { return true }

func (f *completeFilter) Validate(cfg *Config) error {
	f.required = cfg.Required
	return nil
}

func (f *completeFilter) Apply(_ context.Context, deps Deps, list *candidates.List) (*candidates.List, Step, error) {
	initial := list.Len()
	if f.ignore || len(f.required) == 0 {
		if deps.Logger != nil && f.ignore {
			deps.Logger.Info("keeping candidates with partial scores", zap.String("reason", "allow-partial flag is set"))
		}
		return list, Step{Initial: initial, Dropped: 0, Left: list.Len()}, nil
	}

	dropped := make([]string, 0)
	kept := list.Items[:0]
	for _, item := range list.Items {
		scored := 0
		for _, name := range f.required {
			if _, ok := item.Scores[name]; ok {
				scored++
			}
		}
		if scored == 0 {
			dropped = append(dropped, item.SubjectID)
			continue
		}
		kept = append(kept, item)
	}
	list.Items = kept

	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Info("dropping candidates without scores for any weighted criterion",
			zap.Strings("dropped_subjects", dropped),
			zap.Int("candidates_left", list.Len()),
		)
	}

	return list, Step{Initial: initial, Dropped: len(dropped), Left: list.Len()}, nil
}

func (f *completeFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: true,
		Details: map[string]string{
			"allow_partial": strconv.FormatBool(f.ignore),
		},
	}
}
