package worker

import (
	"context"

	"basegraph.app/supportbot/internal/queue"
)

// Consumer abstracts the feedback stream for testability.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

// MessageProcessor handles one feedback message end to end, including the ack.
type MessageProcessor func(ctx context.Context, msg queue.Message) error
