package audit

import (
	"context"
	"log/slog"
	"time"
)

// Sink persists audit events. Implementations must tolerate concurrent
// Append calls.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Publisher hands events to the background worker through a bounded inbox.
// Emit never blocks the issuance path: when the inbox is full the event is
// dropped and counted in the log.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewPublisher(buffer int, logger *slog.Logger) *Publisher {
	return &Publisher{
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

func (p *Publisher) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit inbox full, dropping event", "type", event.Type)
	}
}

// Inbox exposes the event channel for the worker.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}
