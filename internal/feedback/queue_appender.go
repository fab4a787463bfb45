package feedback

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"basegraph.app/supportbot/internal/model"
	"basegraph.app/supportbot/internal/queue"
)

// QueueAppender hands records to the feedback worker over a Redis stream
// instead of calling Sheets from the server process.
type QueueAppender struct {
	producer queue.Producer
}

func NewQueueAppender(producer queue.Producer) *QueueAppender {
	return &QueueAppender{producer: producer}
}

func (a *QueueAppender) Append(ctx context.Context, rec model.FeedbackLogRecord) error {
	task := queue.FeedbackTask{Record: rec}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		task.TraceID = sc.TraceID().String()
	}
	return a.producer.Enqueue(ctx, task)
}
