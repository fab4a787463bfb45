package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"basegraph.app/supportbot/common/logger"
	"basegraph.app/supportbot/internal/feedback"
	"basegraph.app/supportbot/internal/queue"
)

// Worker drains the feedback stream into the spreadsheet. Each record gets one
// append attempt; a failed record is parked on the dead letter stream.
type Worker struct {
	consumer Consumer
	appender feedback.Appender

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer Consumer, appender feedback.Appender) *Worker {
	return &Worker{
		consumer:  consumer,
		appender:  appender,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "supportbot.worker",
	})
	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.ProcessOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				// Brief backoff on error
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

// ProcessOnce reads one batch and handles every message in it.
func (w *Worker) ProcessOnce(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		if err := w.processMessageSafe(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "message processing failed",
				"error", err,
				"message_id", msg.ID)
		}
	}

	return nil
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing",
				"panic", r,
				"message_id", msg.ID)
			err = fmt.Errorf("panic: %v", r)
			w.deadLetter(ctx, msg, err)
		}
	}()
	return w.ProcessMessage(ctx, msg)
}

// ProcessMessage settles the stream entry and then appends the record once.
// An entry whose ack fails stays pending and is never appended here, so the
// reclaimer only ever sees entries no worker has attempted. Exported so the
// reclaimer can reuse it.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	sc := logger.StartSpanFromTraceID(ctx, msg.Task.TraceID, "worker.append_feedback")
	defer sc.End()
	ctx = sc.Context()

	slog.InfoContext(ctx, "processing feedback record",
		"message_id", msg.ID,
		"feedback", msg.Task.Record.Feedback)

	if err := w.consumer.Ack(ctx, msg); err != nil {
		sc.RecordError(err)
		return fmt.Errorf("acking before append: %w", err)
	}

	if err := w.appender.Append(ctx, msg.Task.Record); err != nil {
		sc.RecordError(err)
		w.deadLetter(ctx, msg, err)
		return fmt.Errorf("appending feedback: %w", err)
	}

	return nil
}

func (w *Worker) deadLetter(ctx context.Context, msg queue.Message, cause error) {
	slog.ErrorContext(ctx, "feedback append failed, sending to DLQ",
		"message_id", msg.ID,
		"error", cause)
	if err := w.consumer.SendDLQ(ctx, msg, cause.Error()); err != nil {
		slog.ErrorContext(ctx, "failed to send to DLQ", "error", err)
	}
}
