package model

import (
	"encoding/json"
	"net/http"
)

// EventKind classifies an authenticated webhook call for dispatch.
type EventKind string

const (
	EventKindMessage           EventKind = "message"
	EventKindURLVerification   EventKind = "url_verification"
	EventKindInteractionAction EventKind = "interaction_action"
	// EventKindUnsupported covers inner event types and interaction types the bot does not handle.
	EventKindUnsupported EventKind = "unsupported"
)

// InboundEvent is one webhook call after authentication. Payload holds the JSON
// document to decode: the raw body for Events API calls, the decoded "payload"
// form field for interactions.
type InboundEvent struct {
	Kind      EventKind
	RawBody   []byte
	Headers   http.Header
	Timestamp int64
	Payload   json.RawMessage
}

// ChannelType is the normalized Slack conversation type.
type ChannelType string

const (
	ChannelTypeDirect  ChannelType = "direct"
	ChannelTypeGroup   ChannelType = "group"
	ChannelTypeChannel ChannelType = "channel"
)

// Message subtypes the bot never answers.
const (
	SubtypeBotMessage     = "bot_message"
	SubtypeMessageDeleted = "message_deleted"
	SubtypeChannelJoin    = "channel_join"
)

type MessageEvent struct {
	UserID          string
	ChannelID       string
	ChannelType     ChannelType
	Text            string
	EventTimestamp  string
	ThreadTimestamp string // empty for messages posted outside a thread
	Subtype         string
}

// IsThreadReply reports whether the message was posted inside an existing thread.
func (e MessageEvent) IsThreadReply() bool {
	return e.ThreadTimestamp != "" && e.ThreadTimestamp != e.EventTimestamp
}

// ReplyThread returns the timestamp replies should be threaded under.
func (e MessageEvent) ReplyThread() string {
	if e.ThreadTimestamp != "" {
		return e.ThreadTimestamp
	}
	return e.EventTimestamp
}
