package service

import "basegraph.app/supportbot/internal/model"

// EventFilter decides from event metadata alone whether a message is dropped.
type EventFilter interface {
	ShouldIgnore(ev model.MessageEvent) bool
}

type eventFilter struct {
	botUserID string
}

func NewEventFilter(botUserID string) EventFilter {
	return &eventFilter{botUserID: botUserID}
}

// ShouldIgnore drops direct messages, bot and housekeeping subtypes, the bot's
// own messages and replies inside an existing thread.
func (f *eventFilter) ShouldIgnore(ev model.MessageEvent) bool {
	if ev.ChannelType == model.ChannelTypeDirect {
		return true
	}

	switch ev.Subtype {
	case model.SubtypeBotMessage, model.SubtypeMessageDeleted, model.SubtypeChannelJoin:
		return true
	}

	if f.botUserID != "" && ev.UserID == f.botUserID {
		return true
	}

	return ev.IsThreadReply()
}
