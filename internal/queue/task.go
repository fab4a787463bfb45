package queue

import "basegraph.app/supportbot/internal/model"

type TaskType string

const (
	TaskTypeFeedbackLog TaskType = "feedback_log"
)

// Stream field names.
const (
	fieldTaskType    = "task_type"
	fieldTicketLabel = "ticket_label"
	fieldFeedback    = "feedback"
	fieldUserEmail   = "user_email"
	fieldTimestamp   = "timestamp"
	fieldTraceID     = "trace_id"
	fieldError       = "error"
)

// FeedbackTask is one spreadsheet append handed from the server to the worker.
type FeedbackTask struct {
	Record  model.FeedbackLogRecord
	TraceID string
}
