package model

import "github.com/slack-go/slack"

// ChatMessage is an outbound rendering: fallback text plus optional Block Kit blocks.
type ChatMessage struct {
	Text   string
	Blocks []slack.Block
}

// PendingResponse identifies the placeholder message that is updated in place.
type PendingResponse struct {
	ChannelID        string
	MessageTimestamp string
}

// ThreadMessage is one entry of a thread history, oldest first.
type ThreadMessage struct {
	UserID    string
	Text      string
	Timestamp string
}
