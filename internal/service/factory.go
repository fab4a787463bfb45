package service

import (
	"basegraph.app/supportbot/common/llm"
	"basegraph.app/supportbot/core/config"
	"basegraph.app/supportbot/internal/service/issue_tracker"
)

type Services struct {
	cfg       config.Config
	botUserID string
	chat      ChatClient
	llm       llm.Client
	tickets   issue_tracker.TicketService
	feedback  FeedbackRecorder
}

// NewServices wires the services around already-built clients. A nil tickets
// service means Jira is not configured.
func NewServices(
	cfg config.Config,
	botUserID string,
	chat ChatClient,
	llmClient llm.Client,
	tickets issue_tracker.TicketService,
	feedback FeedbackRecorder,
) *Services {
	if tickets == nil {
		tickets = issue_tracker.NewUnconfiguredTicketService()
	}
	return &Services{
		cfg:       cfg,
		botUserID: botUserID,
		chat:      chat,
		llm:       llmClient,
		tickets:   tickets,
		feedback:  feedback,
	}
}

func (s *Services) Verifier() RequestVerifier {
	return NewRequestVerifier(s.cfg.Slack.SigningSecret)
}

func (s *Services) Filter() EventFilter {
	return NewEventFilter(s.botUserID)
}

func (s *Services) Completion() CompletionService {
	return NewCompletionService(s.llm, s.cfg.Prompts, s.cfg.LLM.MaxTokens)
}

func (s *Services) Conversation() ConversationService {
	return NewConversationService(
		s.chat,
		s.Filter(),
		s.Completion(),
		s.tickets,
		s.feedback,
		ConversationConfig{
			ThinkingSteps:   s.cfg.Prompts.ThinkingSteps,
			StepDelay:       s.cfg.Slack.StepDelay,
			ProjectKey:      s.cfg.Jira.ProjectKey,
			RequestTypeName: s.cfg.Jira.RequestTypeName,
			ManualTicketURL: s.cfg.Jira.ManualTicketURL,
		},
	)
}
