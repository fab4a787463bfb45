package feedback

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"

	"basegraph.app/supportbot/common/logger"
	"basegraph.app/supportbot/internal/model"
)

// Appender writes one record to the durable feedback log.
type Appender interface {
	Append(ctx context.Context, rec model.FeedbackLogRecord) error
}

// AsyncSink runs each append on its own goroutine. The caller never waits for
// or observes the result; failures are logged and dropped after one attempt.
type AsyncSink struct {
	appender Appender
	wg       sync.WaitGroup
}

func NewAsyncSink(appender Appender) *AsyncSink {
	return &AsyncSink{appender: appender}
}

// RecordAsync dispatches rec. The append runs on a context detached from ctx's
// cancellation so it outlives the webhook request.
func (s *AsyncSink) RecordAsync(ctx context.Context, rec model.FeedbackLogRecord) {
	ctx = logger.WithLogFields(context.WithoutCancel(ctx), logger.LogFields{
		Component: "supportbot.feedback.sink",
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.ErrorContext(ctx, "feedback append panicked",
					"panic", r,
					"stack", string(debug.Stack()))
			}
		}()

		if err := s.appender.Append(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "feedback append failed",
				"step", "append_feedback",
				"error", err,
				"feedback", rec.Feedback)
		}
	}()
}

// Close waits for in-flight appends.
func (s *AsyncSink) Close() error {
	s.wg.Wait()
	return nil
}
