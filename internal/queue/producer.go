package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

type Producer interface {
	Enqueue(ctx context.Context, task FeedbackTask) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Enqueue(ctx context.Context, task FeedbackTask) error {
	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: taskValues(task),
	}).Err(); err != nil {
		return fmt.Errorf("enqueue feedback: %w", err)
	}

	p.logger.InfoContext(ctx, "enqueued feedback record",
		"feedback", task.Record.Feedback,
		"stream", p.stream)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}

func taskValues(task FeedbackTask) map[string]any {
	values := map[string]any{
		fieldTaskType:    string(TaskTypeFeedbackLog),
		fieldTicketLabel: task.Record.TicketLabel,
		fieldFeedback:    task.Record.Feedback,
		fieldUserEmail:   task.Record.UserEmail,
		fieldTimestamp:   task.Record.Timestamp,
	}
	if task.TraceID != "" {
		values[fieldTraceID] = task.TraceID
	}
	return values
}
