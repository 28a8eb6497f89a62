package audit

import (
	"context"
	"log/slog"
)

// Worker drains the publisher inbox into the configured sinks. Sink failures
// are logged and skipped; the audit trail must never take issuance down with
// it.
type Worker struct {
	inbox  <-chan Event
	sinks  []Sink
	logger *slog.Logger
}

func NewWorker(inbox <-chan Event, logger *slog.Logger, sinks ...Sink) *Worker {
	return &Worker{inbox: inbox, sinks: sinks, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			for _, sink := range w.sinks {
				if err := sink.Append(ctx, event); err != nil {
					w.logger.Warn("audit sink append failed", "error", err, "type", event.Type)
				}
			}
		}
	}
}
