package queue

import (
	"errors"
	"time"

	"github.com/spigell/screening-responder/internal/screening"
)

// State of a review queue entry. Entries are append-only for audit: resolved
// is terminal and nothing is ever deleted.
type State string

const (
	StatePending   State = "pending"
	StateInReview  State = "in_review"
	StateEscalated State = "escalated"
	StateResolved  State = "resolved"
)

// Resolution is the human verdict closing an entry. Escalate defers the
// decision elsewhere and is excluded from disagreement statistics.
type Resolution string

const (
	ResolutionApprove  Resolution = "approve"
	ResolutionReject   Resolution = "reject"
	ResolutionEscalate Resolution = "escalate"
)

// State machine and concurrency violations, surfaced as retryable conflicts.
var (
	ErrAlreadyAssigned   = errors.New("entry is already assigned to another reviewer")
	ErrAlreadyResolved   = errors.New("entry is already resolved")
	ErrActiveEntryExists = errors.New("an active entry already exists for this evaluation")
	ErrUnknownEntry      = errors.New("unknown queue entry")
	ErrInvalidTransition = errors.New("invalid state transition")
)

// Entry is one case awaiting human review.
type Entry struct {
	ID           string              `json:"id"`
	EvaluationID string              `json:"evaluation_id"`
	Priority     screening.Priority  `json:"priority"`
	State        State               `json:"state"`
	EnqueuedAt   time.Time           `json:"enqueued_at"`
	ReviewerID   string              `json:"reviewer_id,omitempty"`
	Resolution   Resolution          `json:"resolution,omitempty"`
	Notes        string              `json:"notes,omitempty"`
	ResolvedAt   time.Time           `json:"resolved_at,omitempty"`

	// Automatic is the routing decision the entry was enqueued with; it is
	// compared against the human resolution to derive disagreement.
	Automatic screening.Decision `json:"automatic_decision"`

	seq       uint64
	heapIndex int
}

func (e *Entry) clone() *Entry {
	c := *e
	c.heapIndex = -1
	return &c
}

// FeedbackEvent records one human resolution against its automatic decision.
// It is created exactly once per resolved entry and is the sole input to the
// calibration loop.
type FeedbackEvent struct {
	ID                string             `json:"id"`
	EvaluationID      string             `json:"evaluation_id"`
	AutomaticDecision screening.Decision `json:"automatic_decision"`
	HumanDecision     Resolution         `json:"human_decision"`
	Disagreement      bool               `json:"disagreement"`
	ReasonText        string             `json:"reason_text,omitempty"`
	Timestamp         time.Time          `json:"timestamp"`
}

// disagreement maps resolutions onto routing decisions: approve corresponds
// to auto_proceed and reject to auto_reject. Escalations defer rather than
// decide, so they never count as disagreement.
func disagreement(automatic screening.Decision, human Resolution) bool {
	switch human {
	case ResolutionApprove:
		return automatic != screening.DecisionAutoProceed
	case ResolutionReject:
		return automatic != screening.DecisionAutoReject
	default:
		return false
	}
}
