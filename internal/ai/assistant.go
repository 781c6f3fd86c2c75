package ai

import (
	"context"

	"github.com/spigell/screening-responder/internal/screening"
)

// Narrative is recruiter-facing prose generated for an evaluation. It is
// attached to the explanation as reasoning text and never feeds the numeric
// computation.
type Narrative struct {
	Text string
	Raw  string
}

// Narrator turns a finished evaluation into explanation reasoning text.
type Narrator interface {
	Narrate(ctx context.Context, eval *screening.Evaluation, set *screening.CriterionScoreSet) (*Narrative, error)
}
