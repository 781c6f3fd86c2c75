// Package audit defines the immutable event payloads handed to the
// notification/audit collaborator. Events are emitted once and never mutated
// afterwards; the default sink writes them to the structured log.
package audit

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event kinds emitted by the core.
const (
	KindEvaluationCompleted = "evaluation_completed"
	KindQueueEnqueued       = "queue_enqueued"
	KindQueueAssigned       = "queue_assigned"
	KindQueueEscalated      = "queue_escalated"
	KindQueueResolved       = "queue_resolved"
	KindConfigApplied       = "config_applied"
)

// Event is one immutable audit record.
type Event struct {
	ID         string            `json:"id"`
	Kind       string            `json:"kind"`
	OccurredAt time.Time         `json:"occurred_at"`
	Details    map[string]string `json:"details,omitempty"`
}

// Sink receives every audit event. Implementations must not block queue or
// evaluation operations.
type Sink interface {
	Emit(event Event)
}

// New builds an event with a fresh identity.
func New(kind string, details map[string]string) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		OccurredAt: time.Now().UTC(),
		Details:    details,
	}
}

// ZapSink logs every event with structured fields.
type ZapSink struct {
	logger *zap.Logger
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger}
}

func (s *ZapSink) Emit(event Event) {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("kind", event.Kind),
		zap.Time("occurred_at", event.OccurredAt),
	}
	for key, value := range event.Details {
		fields = append(fields, zap.String(key, value))
	}

	s.logger.Info("audit event", fields...)
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Emit(Event) {}
