package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"basegraph.app/supportbot/common/logger"
	"basegraph.app/supportbot/internal/model"
	"basegraph.app/supportbot/internal/service/issue_tracker"
)

// ChatClient is the subset of the Slack Web API the orchestrator drives.
type ChatClient interface {
	PostMessage(ctx context.Context, channelID, threadTS string, msg model.ChatMessage) (string, error)
	UpdateMessage(ctx context.Context, channelID, ts string, msg model.ChatMessage) error
	ThreadReplies(ctx context.Context, channelID, threadTS string) ([]model.ThreadMessage, error)
	UserProfile(ctx context.Context, userID string) (*model.ReporterIdentity, error)
}

// FeedbackRecorder hands a log record off without waiting for the outcome.
type FeedbackRecorder interface {
	RecordAsync(ctx context.Context, rec model.FeedbackLogRecord)
}

// ConversationService answers thread roots and reacts to the feedback buttons.
// Upstream failures are handled inside: each call ends with a user-visible
// message, and an error is only returned when even that message could not be posted.
type ConversationService interface {
	HandleMessage(ctx context.Context, ev model.MessageEvent) (model.Outcome, error)
	HandleFeedback(ctx context.Context, action model.FeedbackAction) (model.Outcome, error)
}

type ConversationConfig struct {
	ThinkingSteps   []string
	StepDelay       time.Duration
	ProjectKey      string
	RequestTypeName string
	ManualTicketURL string
}

type conversationService struct {
	chat       ChatClient
	filter     EventFilter
	completion CompletionService
	tickets    issue_tracker.TicketService
	feedback   FeedbackRecorder
	cfg        ConversationConfig

	now   func() time.Time
	sleep func(time.Duration)
}

func NewConversationService(
	chat ChatClient,
	filter EventFilter,
	completion CompletionService,
	tickets issue_tracker.TicketService,
	feedback FeedbackRecorder,
	cfg ConversationConfig,
) ConversationService {
	return &conversationService{
		chat:       chat,
		filter:     filter,
		completion: completion,
		tickets:    tickets,
		feedback:   feedback,
		cfg:        cfg,
		now:        time.Now,
		sleep:      time.Sleep,
	}
}

func (s *conversationService) HandleMessage(ctx context.Context, ev model.MessageEvent) (model.Outcome, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ChannelID: logger.Ptr(ev.ChannelID),
		UserID:    logger.Ptr(ev.UserID),
		Component: "supportbot.service.conversation",
	})

	s.transition(ctx, model.StateFiltering)
	if s.filter.ShouldIgnore(ev) {
		slog.DebugContext(ctx, "message filtered",
			"channel_type", ev.ChannelType,
			"subtype", ev.Subtype,
			"is_thread_reply", ev.IsThreadReply())
		return model.OutcomeFiltered, nil
	}

	text := strings.TrimSpace(ev.Text)
	if text == "" {
		slog.WarnContext(ctx, "no text found in message event, skipping")
		return model.OutcomeFiltered, nil
	}

	threadTS := ev.ReplyThread()
	ctx = logger.WithLogFields(ctx, logger.LogFields{ThreadTS: logger.Ptr(threadTS)})

	s.transition(ctx, model.StateAnswering)
	pending, err := s.showThinking(ctx, ev.ChannelID, threadTS)
	if err != nil {
		slog.ErrorContext(ctx, "posting placeholder failed", "step", "post_placeholder", "error", err)
		return s.apologize(ctx, ev.ChannelID, threadTS)
	}

	answer := s.completion.Answer(ctx, text)

	if err := s.chat.UpdateMessage(ctx, pending.ChannelID, pending.MessageTimestamp, AnswerMessage(answer)); err != nil {
		slog.ErrorContext(ctx, "rendering answer failed", "step", "render_answer", "error", err)
		return s.apologize(ctx, ev.ChannelID, threadTS)
	}

	s.transition(ctx, model.StateAwaitingFeedback)
	slog.InfoContext(ctx, "answer posted",
		"message_ts", pending.MessageTimestamp,
		"answer", logger.Truncate(answer, 200))

	return model.OutcomeAnswered, nil
}

// showThinking posts the placeholder and steps through the status texts. The
// animation is cosmetic: failed updates are logged and skipped.
func (s *conversationService) showThinking(ctx context.Context, channelID, threadTS string) (*model.PendingResponse, error) {
	steps := s.cfg.ThinkingSteps
	initial := "⏳ Thinking..."
	if len(steps) > 0 {
		initial = steps[0]
	}

	ts, err := s.chat.PostMessage(ctx, channelID, threadTS, TextMessage(initial))
	if err != nil {
		return nil, err
	}

	for _, step := range steps {
		if err := s.chat.UpdateMessage(ctx, channelID, ts, TextMessage(step)); err != nil {
			slog.WarnContext(ctx, "status update failed", "step", "thinking_animation", "error", err)
		}
		if s.cfg.StepDelay > 0 {
			s.sleep(s.cfg.StepDelay)
		}
	}

	return &model.PendingResponse{ChannelID: channelID, MessageTimestamp: ts}, nil
}

func (s *conversationService) apologize(ctx context.Context, channelID, threadTS string) (model.Outcome, error) {
	if _, err := s.chat.PostMessage(ctx, channelID, threadTS, TextMessage(MsgGenericFailure)); err != nil {
		return model.OutcomeAnswerFailed, err
	}
	return model.OutcomeAnswerFailed, nil
}

func (s *conversationService) HandleFeedback(ctx context.Context, action model.FeedbackAction) (model.Outcome, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ChannelID: logger.Ptr(action.ChannelID),
		UserID:    logger.Ptr(action.ActingUserID),
		ThreadTS:  logger.Ptr(action.ThreadTimestamp),
		Component: "supportbot.service.conversation",
	})

	slog.InfoContext(ctx, "feedback received", "feedback", action.Kind)

	reporter, err := s.chat.UserProfile(ctx, action.ActingUserID)
	if err != nil || reporter == nil || reporter.Email == "" {
		slog.ErrorContext(ctx, "unable to retrieve user's email", "step", "resolve_profile", "error", err)
		if _, postErr := s.chat.PostMessage(ctx, action.ChannelID, action.ThreadTimestamp, TextMessage(MsgEmailUnavailable)); postErr != nil {
			return model.OutcomeProfileUnavailable, postErr
		}
		return model.OutcomeProfileUnavailable, nil
	}

	rerender := FeedbackReceivedMessage(action.OriginalMessageText, action.OriginalMessageBlocks, action.Kind)
	if err := s.chat.UpdateMessage(ctx, action.ChannelID, action.OriginalMessageTimestamp, rerender); err != nil {
		slog.WarnContext(ctx, "removing feedback buttons failed", "step", "rerender_original", "error", err)
	}

	switch action.Kind {
	case model.FeedbackPositive:
		return s.handlePositive(ctx, action, reporter)
	case model.FeedbackNegative:
		return s.handleNegative(ctx, action, reporter)
	default:
		slog.WarnContext(ctx, "unknown feedback kind", "feedback", action.Kind)
		return model.OutcomeIgnored, nil
	}
}

func (s *conversationService) handlePositive(ctx context.Context, action model.FeedbackAction, reporter *model.ReporterIdentity) (model.Outcome, error) {
	s.transition(ctx, model.StateLoggingPositive)
	s.feedback.RecordAsync(ctx, model.NewPositiveFeedbackRecord(reporter.Email, s.now()))

	if _, err := s.chat.PostMessage(ctx, action.ChannelID, action.ThreadTimestamp, TextMessage(MsgPositiveThanks)); err != nil {
		return model.OutcomeFeedbackLogged, err
	}
	return model.OutcomeFeedbackLogged, nil
}

func (s *conversationService) handleNegative(ctx context.Context, action model.FeedbackAction, reporter *model.ReporterIdentity) (model.Outcome, error) {
	s.transition(ctx, model.StateCreatingTicket)

	original := s.originalUserMessage(ctx, action)
	summary := s.completion.Summarize(ctx, original)

	result, err := s.tickets.CreateTicket(ctx, model.TicketRequest{
		Summary:         summary,
		Description:     original,
		ReporterEmail:   reporter.Email,
		ProjectKey:      s.cfg.ProjectKey,
		RequestTypeName: s.cfg.RequestTypeName,
	})

	outcome := model.OutcomeTicketFallback
	reply := TicketFallbackMessage(s.cfg.ManualTicketURL)
	if err == nil && result.Complete() {
		outcome = model.OutcomeTicketCreated
		reply = TicketCreatedMessage(result)
	} else {
		slog.ErrorContext(ctx, "ticket creation failed, offering manual link", "step", "create_ticket", "error", err)
	}

	if _, err := s.chat.PostMessage(ctx, action.ChannelID, action.ThreadTimestamp, reply); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// originalUserMessage returns the text of the first thread message written by
// the acting user.
func (s *conversationService) originalUserMessage(ctx context.Context, action model.FeedbackAction) string {
	replies, err := s.chat.ThreadReplies(ctx, action.ChannelID, action.ThreadTimestamp)
	if err != nil {
		slog.ErrorContext(ctx, "fetching thread history failed", "step", "thread_history", "error", err)
		return MsgUserMessageMissing
	}

	for _, msg := range replies {
		if msg.UserID == action.ActingUserID {
			return msg.Text
		}
	}
	return MsgUserMessageMissing
}

func (s *conversationService) transition(ctx context.Context, state model.ConversationState) {
	slog.DebugContext(ctx, "conversation state", "state", state)
}
