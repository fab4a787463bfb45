package service

import (
	"fmt"

	"github.com/slack-go/slack"

	"basegraph.app/supportbot/internal/model"
)

// FeedbackBlockID tags the actions block holding the feedback buttons.
const FeedbackBlockID = "feedback_buttons"

const ActionCreateTicketButton = "create_ticket_button"

// User-facing copy.
const (
	MsgSufficientPrompt   = "*Please let me know if this answer is sufficient!*"
	MsgGenericFailure     = "Sorry, something went wrong. Please try again later."
	MsgEmailUnavailable   = "Unable to retrieve your email. Please contact support manually."
	MsgPositiveThanks     = "Thank you for your feedback! 😊 I'm glad I could help!"
	MsgUserMessageMissing = "User message not found."
	MsgTicketFallback     = "I'm sorry I couldn't resolve your query, and there was an error creating a support ticket automatically. Please use the button below to create a ticket manually."
	MsgTicketFallbackHint = "Please use the button below to create a ticket:"
)

// AnswerMessage renders the model's answer with the thumbs-up/thumbs-down controls.
func AnswerMessage(answer string) model.ChatMessage {
	text := answer + "\n\n" + MsgSufficientPrompt

	yes := slack.NewButtonBlockElement(model.ActionFeedbackPositive, "",
		slack.NewTextBlockObject(slack.PlainTextType, "👍 Yes", true, false))
	no := slack.NewButtonBlockElement(model.ActionFeedbackNegative, "",
		slack.NewTextBlockObject(slack.PlainTextType, "👎 No", true, false))

	return model.ChatMessage{
		Text: text,
		Blocks: []slack.Block{
			slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil),
			slack.NewActionBlock(FeedbackBlockID, yes, no),
		},
	}
}

// FeedbackReceivedMessage re-renders an answer after a click: the feedback
// buttons are removed and a single "Feedback received" context block is appended.
// Any earlier annotation is dropped so repeated renders stay identical.
func FeedbackReceivedMessage(text string, original []slack.Block, kind model.FeedbackKind) model.ChatMessage {
	blocks := make([]slack.Block, 0, len(original)+1)
	for _, block := range original {
		if isFeedbackBlock(block) || isFeedbackAnnotation(block) {
			continue
		}
		blocks = append(blocks, block)
	}

	blocks = append(blocks, slack.NewContextBlock(feedbackAnnotationID,
		slack.NewTextBlockObject(slack.MarkdownType, "Feedback received: "+kind.Emoji(), false, false)))

	return model.ChatMessage{Text: text, Blocks: blocks}
}

const feedbackAnnotationID = "feedback_received"

func isFeedbackBlock(block slack.Block) bool {
	switch b := block.(type) {
	case *slack.ActionBlock:
		return b.BlockID == FeedbackBlockID
	case slack.ActionBlock:
		return b.BlockID == FeedbackBlockID
	}
	return false
}

func isFeedbackAnnotation(block slack.Block) bool {
	switch b := block.(type) {
	case *slack.ContextBlock:
		return b.BlockID == feedbackAnnotationID
	case slack.ContextBlock:
		return b.BlockID == feedbackAnnotationID
	}
	return false
}

func TicketCreatedMessage(result *model.TicketResult) model.ChatMessage {
	return model.ChatMessage{
		Text: fmt.Sprintf("I'm sorry I couldn't resolve your query. A support ticket has been created for you: <%s|%s>. Our team will get back to you shortly.",
			result.TicketURL, result.IssueKey),
	}
}

// TicketFallbackMessage points the user at the manual ticket form.
func TicketFallbackMessage(manualURL string) model.ChatMessage {
	button := slack.NewButtonBlockElement(ActionCreateTicketButton, "",
		slack.NewTextBlockObject(slack.PlainTextType, "Create Ticket", false, false))
	button.URL = manualURL

	return model.ChatMessage{
		Text: MsgTicketFallback,
		Blocks: []slack.Block{
			slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, MsgTicketFallbackHint, false, false), nil, nil),
			slack.NewActionBlock("", button),
		},
	}
}

func TextMessage(text string) model.ChatMessage {
	return model.ChatMessage{Text: text}
}
