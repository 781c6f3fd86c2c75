// Package queue owns the lifecycle of review queue entries from enqueue to
// human resolution. It is the only mutable shared resource in the core: all
// state transitions are serialized through the manager mutex so that assign
// and resolve conflicts are deterministic.
package queue

import (
	"container/heap"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/screening-responder/internal/audit"
	"github.com/spigell/screening-responder/internal/screening"
)

// Manager is the review queue. Entries are served as a priority queue keyed
// by (priority tier, enqueue time), not a plain FIFO: high always before
// medium before low, oldest first within a tier.
type Manager struct {
	mu sync.Mutex

	logger *zap.Logger
	sink   audit.Sink

	entries      map[string]*Entry
	activeByEval map[string]string
	pending      entryHeap
	feedback     []FeedbackEvent
	seq          uint64

	now   func() time.Time
	newID func() string
}

// NewManager builds an empty queue. A nil sink disables audit emission.
func NewManager(logger *zap.Logger, sink audit.Sink) *Manager {
	if sink == nil {
		sink = audit.NopSink{}
	}

	return &Manager{
		logger:       logger,
		sink:         sink,
		entries:      make(map[string]*Entry),
		activeByEval: make(map[string]string),
		now:          func() time.Time { return time.Now().UTC() },
		newID:        uuid.NewString,
	}
}

// Enqueue creates a pending entry for the evaluation. At most one active
// (non-resolved) entry may exist per evaluation.
func (m *Manager) Enqueue(evaluationID string, automatic screening.Decision, priority screening.Priority) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.activeByEval[evaluationID]; ok {
		return nil, fmt.Errorf("%w: evaluation %s already tracked by entry %s", ErrActiveEntryExists, evaluationID, id)
	}

	m.seq++
	entry := &Entry{
		ID:           m.newID(),
		EvaluationID: evaluationID,
		Priority:     priority,
		State:        StatePending,
		EnqueuedAt:   m.now(),
		Automatic:    automatic,
		seq:          m.seq,
	}

	m.entries[entry.ID] = entry
	m.activeByEval[evaluationID] = entry.ID
	heap.Push(&m.pending, entry)

	m.logger.Info("enqueued review entry",
		zap.String("entry_id", entry.ID),
		zap.String("evaluation_id", evaluationID),
		zap.String("priority", string(priority)),
	)
	m.emit(audit.KindQueueEnqueued, entry)

	return entry.clone(), nil
}

// Next returns the entry that should be served first, without removing it.
func (m *Manager) Next() (*Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending.Len() == 0 {
		return nil, false
	}

	return m.pending[0].clone(), true
}

// Assign moves a pending entry to in_review for the given reviewer. It is
// idempotent for the same reviewer; a different reviewer gets
// ErrAlreadyAssigned.
func (m *Manager) Assign(entryID, reviewerID string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := m.lookup(entryID)
	if err != nil {
		return nil, err
	}

	switch entry.State {
	case StateResolved:
		return nil, fmt.Errorf("%w: entry %s", ErrAlreadyResolved, entryID)
	case StateInReview, StateEscalated:
		if entry.ReviewerID == reviewerID {
			return entry.clone(), nil
		}
		return nil, fmt.Errorf("%w: entry %s is held by %s", ErrAlreadyAssigned, entryID, entry.ReviewerID)
	}

	heap.Remove(&m.pending, entry.heapIndex)
	entry.State = StateInReview
	entry.ReviewerID = reviewerID

	m.logger.Info("assigned review entry",
		zap.String("entry_id", entry.ID),
		zap.String("reviewer_id", reviewerID),
	)
	m.emit(audit.KindQueueAssigned, entry)

	return entry.clone(), nil
}

// Escalate moves an in_review entry to escalated. The entry stays active and
// must still be resolved to close it.
func (m *Manager) Escalate(entryID string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := m.lookup(entryID)
	if err != nil {
		return nil, err
	}

	switch entry.State {
	case StateResolved:
		return nil, fmt.Errorf("%w: entry %s", ErrAlreadyResolved, entryID)
	case StateInReview:
		// allowed
	default:
		return nil, fmt.Errorf("%w: cannot escalate %s entry %s", ErrInvalidTransition, entry.State, entryID)
	}

	entry.State = StateEscalated

	m.logger.Info("escalated review entry", zap.String("entry_id", entry.ID))
	m.emit(audit.KindQueueEscalated, entry)

	return entry.clone(), nil
}

// Resolve closes an in_review or escalated entry with the human verdict and
// produces exactly one feedback event. The transition and the event are
// applied atomically under the manager lock: a failed resolve never leaves a
// partial feedback event behind.
func (m *Manager) Resolve(entryID, reviewerID string, resolution Resolution, notes string) (*FeedbackEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := m.lookup(entryID)
	if err != nil {
		return nil, err
	}

	switch entry.State {
	case StateResolved:
		return nil, fmt.Errorf("%w: entry %s", ErrAlreadyResolved, entryID)
	case StateInReview, StateEscalated:
		// allowed
	default:
		return nil, fmt.Errorf("%w: cannot resolve %s entry %s, assign it first", ErrInvalidTransition, entry.State, entryID)
	}

	switch resolution {
	case ResolutionApprove, ResolutionReject, ResolutionEscalate:
	default:
		return nil, fmt.Errorf("%w: unknown resolution %q", ErrInvalidTransition, resolution)
	}

	entry.State = StateResolved
	entry.Resolution = resolution
	entry.Notes = notes
	entry.ResolvedAt = m.now()
	if reviewerID != "" {
		entry.ReviewerID = reviewerID
	}
	delete(m.activeByEval, entry.EvaluationID)

	event := FeedbackEvent{
		ID:                m.newID(),
		EvaluationID:      entry.EvaluationID,
		AutomaticDecision: entry.Automatic,
		HumanDecision:     resolution,
		Disagreement:      disagreement(entry.Automatic, resolution),
		ReasonText:        notes,
		Timestamp:         entry.ResolvedAt,
	}
	m.feedback = append(m.feedback, event)

	m.logger.Info("resolved review entry",
		zap.String("entry_id", entry.ID),
		zap.String("resolution", string(resolution)),
		zap.Bool("disagreement", event.Disagreement),
	)
	m.emit(audit.KindQueueResolved, entry)

	return &event, nil
}

// Pending returns the unassigned entries in serving order.
func (m *Manager) Pending() []*Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Entry, 0, m.pending.Len())
	for _, entry := range m.pending {
		out = append(out, entry.clone())
	}

	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })

	return out
}

// Feedback returns a snapshot of the accumulated feedback events.
func (m *Manager) Feedback() []FeedbackEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]FeedbackEvent, len(m.feedback))
	copy(out, m.feedback)

	return out
}

// Len returns the number of pending entries.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.pending.Len()
}

func (m *Manager) lookup(entryID string) (*Entry, error) {
	entry, ok := m.entries[entryID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntry, entryID)
	}
	return entry, nil
}

func (m *Manager) emit(kind string, entry *Entry) {
	m.sink.Emit(audit.New(kind, map[string]string{
		"entry_id":      entry.ID,
		"evaluation_id": entry.EvaluationID,
		"state":         string(entry.State),
		"priority":      string(entry.Priority),
	}))
}

func less(a, b *Entry) bool {
	if a.Priority.Rank() != b.Priority.Rank() {
		return a.Priority.Rank() < b.Priority.Rank()
	}
	if !a.EnqueuedAt.Equal(b.EnqueuedAt) {
		return a.EnqueuedAt.Before(b.EnqueuedAt)
	}
	return a.seq < b.seq
}

type entryHeap []*Entry

func (h entryHeap) Len() int           { return len(h) }
func (h entryHeap) Less(i, j int) bool { return less(h[i], h[j]) }

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *entryHeap) Push(x any) {
	entry := x.(*Entry)
	entry.heapIndex = len(*h)
	*h = append(*h, entry)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	entry.heapIndex = -1
	*h = old[:n-1]

	return entry
}
