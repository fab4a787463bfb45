package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"

	"basegraph.app/supportbot/internal/model"
)

// SlackClient adapts the Slack Web API to the calls the conversation service makes.
type SlackClient struct {
	api *slack.Client
}

func NewSlackClient(botToken string, opts ...slack.Option) *SlackClient {
	return &SlackClient{api: slack.New(botToken, opts...)}
}

// BotUserID asks auth.test who the token belongs to.
func (c *SlackClient) BotUserID(ctx context.Context) (string, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("slack auth.test: %w", err)
	}
	return resp.UserID, nil
}

// PostMessage posts msg, threaded under threadTS when set, and returns the new message ts.
func (c *SlackClient) PostMessage(ctx context.Context, channelID, threadTS string, msg model.ChatMessage) (string, error) {
	opts := messageOptions(msg)
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}

	_, ts, err := c.api.PostMessageContext(ctx, channelID, opts...)
	if err != nil {
		return "", fmt.Errorf("slack chat.postMessage: %w", err)
	}
	return ts, nil
}

func (c *SlackClient) UpdateMessage(ctx context.Context, channelID, ts string, msg model.ChatMessage) error {
	if _, _, _, err := c.api.UpdateMessageContext(ctx, channelID, ts, messageOptions(msg)...); err != nil {
		return fmt.Errorf("slack chat.update: %w", err)
	}
	return nil
}

// ThreadReplies returns the first page of the thread, root message first.
func (c *SlackClient) ThreadReplies(ctx context.Context, channelID, threadTS string) ([]model.ThreadMessage, error) {
	msgs, hasMore, _, err := c.api.GetConversationRepliesContext(ctx, &slack.GetConversationRepliesParameters{
		ChannelID: channelID,
		Timestamp: threadTS,
		Inclusive: true,
	})
	if err != nil {
		return nil, fmt.Errorf("slack conversations.replies: %w", err)
	}
	if hasMore {
		slog.DebugContext(ctx, "thread has more replies than the first page", "channel_id", channelID)
	}

	out := make([]model.ThreadMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, model.ThreadMessage{
			UserID:    m.User,
			Text:      m.Text,
			Timestamp: m.Timestamp,
		})
	}
	return out, nil
}

// UserProfile resolves the user's email and display name. The email may be
// empty when the app lacks the users:read.email scope.
func (c *SlackClient) UserProfile(ctx context.Context, userID string) (*model.ReporterIdentity, error) {
	user, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("slack users.info: %w", err)
	}

	name := user.Profile.RealName
	if name == "" {
		name = user.Profile.DisplayName
	}
	if name == "" {
		name = userID
	}

	return &model.ReporterIdentity{
		Email:       user.Profile.Email,
		DisplayName: name,
	}, nil
}

func messageOptions(msg model.ChatMessage) []slack.MsgOption {
	opts := []slack.MsgOption{slack.MsgOptionText(msg.Text, false)}
	if len(msg.Blocks) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(msg.Blocks...))
	}
	return opts
}
