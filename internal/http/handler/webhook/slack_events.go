package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"basegraph.app/supportbot/common/logger"
	"basegraph.app/supportbot/internal/model"
	"basegraph.app/supportbot/internal/service"
)

// MessageHandler feeds message events to the conversation service.
func MessageHandler(conversation service.ConversationService) EventHandlerFunc {
	return func(ctx context.Context, ev model.InboundEvent) error {
		msg, err := ParseMessageEvent(ev.Payload)
		if err != nil {
			return err
		}

		ctx = logger.WithLogFields(ctx, logger.LogFields{
			ChannelID: &msg.ChannelID,
			UserID:    &msg.UserID,
		})

		outcome, err := conversation.HandleMessage(ctx, msg)
		if err != nil {
			return fmt.Errorf("handling message: %w", err)
		}
		slog.InfoContext(ctx, "message handled", "outcome", outcome)
		return nil
	}
}

// FeedbackHandler feeds feedback button clicks to the conversation service.
// Other block actions, like the manual ticket link, are acknowledged only.
func FeedbackHandler(conversation service.ConversationService) EventHandlerFunc {
	return func(ctx context.Context, ev model.InboundEvent) error {
		slog.DebugContext(ctx, "interaction payload received", "payload", string(ev.Payload))

		action, ok, err := ParseFeedbackAction(ev.Payload)
		if err != nil {
			return err
		}
		if !ok {
			slog.DebugContext(ctx, "ignoring non-feedback block action")
			return nil
		}

		ctx = logger.WithLogFields(ctx, logger.LogFields{
			ChannelID: &action.ChannelID,
			UserID:    &action.ActingUserID,
			ThreadTS:  &action.ThreadTimestamp,
		})

		outcome, err := conversation.HandleFeedback(ctx, action)
		if err != nil {
			return fmt.Errorf("handling feedback: %w", err)
		}
		slog.InfoContext(ctx, "feedback handled", "kind", action.Kind, "outcome", outcome)
		return nil
	}
}

// ParseMessageEvent decodes an event_callback body carrying a message event.
func ParseMessageEvent(payload json.RawMessage) (model.MessageEvent, error) {
	outer, err := slackevents.ParseEvent(payload, slackevents.OptionNoVerifyToken())
	if err != nil {
		return model.MessageEvent{}, fmt.Errorf("parsing events api body: %w", err)
	}

	inner, ok := outer.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		return model.MessageEvent{}, fmt.Errorf("unexpected inner event %q", outer.InnerEvent.Type)
	}

	return model.MessageEvent{
		UserID:          inner.User,
		ChannelID:       inner.Channel,
		ChannelType:     channelType(inner.ChannelType),
		Text:            inner.Text,
		EventTimestamp:  inner.TimeStamp,
		ThreadTimestamp: inner.ThreadTimeStamp,
		Subtype:         inner.SubType,
	}, nil
}

func channelType(raw string) model.ChannelType {
	switch raw {
	case "im":
		return model.ChannelTypeDirect
	case "mpim", "group":
		return model.ChannelTypeGroup
	default:
		return model.ChannelTypeChannel
	}
}

// ParseFeedbackAction decodes a block_actions payload. ok is false when the
// first action is not one of the feedback buttons.
func ParseFeedbackAction(payload json.RawMessage) (model.FeedbackAction, bool, error) {
	var callback slack.InteractionCallback
	if err := json.Unmarshal(payload, &callback); err != nil {
		return model.FeedbackAction{}, false, fmt.Errorf("parsing interaction payload: %w", err)
	}

	if callback.Type != slack.InteractionTypeBlockActions || len(callback.ActionCallback.BlockActions) == 0 {
		return model.FeedbackAction{}, false, nil
	}

	kind, ok := model.FeedbackKindFromAction(callback.ActionCallback.BlockActions[0].ActionID)
	if !ok {
		return model.FeedbackAction{}, false, nil
	}

	channelID := callback.Container.ChannelID
	if channelID == "" {
		channelID = callback.Channel.ID
	}

	messageTS := callback.Container.MessageTs
	if messageTS == "" {
		messageTS = callback.Message.Timestamp
	}

	threadTS := callback.Container.ThreadTs
	if threadTS == "" {
		threadTS = callback.Message.ThreadTimestamp
	}
	if threadTS == "" {
		threadTS = messageTS
	}

	return model.FeedbackAction{
		Kind:                     kind,
		ChannelID:                channelID,
		ThreadTimestamp:          threadTS,
		OriginalMessageTimestamp: messageTS,
		ActingUserID:             callback.User.ID,
		OriginalMessageText:      callback.Message.Text,
		OriginalMessageBlocks:    callback.Message.Blocks.BlockSet,
	}, true, nil
}
