package metrics

import (
	"github.com/darrell-green/prewarm/internal/types"
)

// EventPublisher is a debug sink that turns per-operation events into
// tagged counters and timings on a Publisher, then forwards the event to
// the next sink, if any.
type EventPublisher struct {
	publisher Publisher
	next      types.DebugSink
}

// NewEventPublisher creates an event publisher over pub. next may be nil.
func NewEventPublisher(pub Publisher, next types.DebugSink) *EventPublisher {
	return &EventPublisher{publisher: pub, next: next}
}

// Emit publishes the event's outcome and hands it on.
func (e *EventPublisher) Emit(event types.DebugEvent) {
	tags := []string{StatusTag(string(event.Status))}
	if event.Trigger != "" {
		tags = append(tags, TriggerTag(event.Trigger))
	}

	e.publisher.Incr("operations.count", tags...)
	if event.Duration > 0 {
		e.publisher.Timing("operations.duration", event.Duration, tags...)
	}

	if e.next != nil {
		e.next.Emit(event)
	}
}

var _ types.DebugSink = (*EventPublisher)(nil)
