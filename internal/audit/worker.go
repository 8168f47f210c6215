package audit

import (
	"context"
	"log/slog"
)

//go:generate mockgen -source=worker.go -destination=mocks/mocks.go -package=mocks Publisher

// Publisher is the streaming sink the mirror worker drains into.
type Publisher interface {
	Publish(ctx context.Context, entry Entry) error
}

// Worker consumes mirrored audit entries from a channel and publishes them
// downstream. Publish failures are logged and skipped: the mirror is
// best-effort, the public log already holds the entry.
type Worker struct {
	publisher Publisher
	inbox     <-chan Entry
	logger    *slog.Logger
}

func NewWorker(publisher Publisher, inbox <-chan Entry, logger *slog.Logger) *Worker {
	return &Worker{publisher: publisher, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry := <-w.inbox:
			if err := w.publisher.Publish(ctx, entry); err != nil {
				w.logger.ErrorContext(ctx, "audit mirror publish failed",
					"key", entry.Key(), "error", err)
			}
		}
	}
}
