package model

import (
	"time"

	"github.com/slack-go/slack"
)

type FeedbackKind string

const (
	FeedbackPositive FeedbackKind = "positive"
	FeedbackNegative FeedbackKind = "negative"
)

// Button action IDs carried by the feedback controls.
const (
	ActionFeedbackPositive = "feedback_positive"
	ActionFeedbackNegative = "feedback_negative"
)

// FeedbackKindFromAction maps a button action ID to a feedback kind.
func FeedbackKindFromAction(actionID string) (FeedbackKind, bool) {
	switch actionID {
	case ActionFeedbackPositive:
		return FeedbackPositive, true
	case ActionFeedbackNegative:
		return FeedbackNegative, true
	default:
		return "", false
	}
}

// Emoji returns the reaction shown once feedback is received.
func (k FeedbackKind) Emoji() string {
	if k == FeedbackPositive {
		return "👍"
	}
	return "👎"
}

// FeedbackAction is a click on one of the feedback buttons attached to an answer.
type FeedbackAction struct {
	Kind                     FeedbackKind
	ChannelID                string
	ThreadTimestamp          string
	OriginalMessageTimestamp string
	ActingUserID             string
	OriginalMessageText      string
	OriginalMessageBlocks    []slack.Block
}

type ReporterIdentity struct {
	Email       string
	DisplayName string
}

const (
	FeedbackLogLabel           = "AI_Ticket"
	FeedbackLogPositive        = "Positive Feedback"
	FeedbackLogTimestampFormat = "2006-01-02 15:04:05"
)

// FeedbackLogRecord is one spreadsheet row. Field order matches the column order.
type FeedbackLogRecord struct {
	TicketLabel string `json:"ticket_label"`
	Feedback    string `json:"feedback"`
	UserEmail   string `json:"user_email"`
	Timestamp   string `json:"timestamp"`
}

// NewPositiveFeedbackRecord builds the row logged for a thumbs-up.
func NewPositiveFeedbackRecord(email string, at time.Time) FeedbackLogRecord {
	return FeedbackLogRecord{
		TicketLabel: FeedbackLogLabel,
		Feedback:    FeedbackLogPositive,
		UserEmail:   email,
		Timestamp:   at.Format(FeedbackLogTimestampFormat),
	}
}

// Row returns the record as spreadsheet cell values.
func (r FeedbackLogRecord) Row() []any {
	return []any{r.TicketLabel, r.Feedback, r.UserEmail, r.Timestamp}
}
