package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"basegraph.app/supportbot/common/llm"
	"basegraph.app/supportbot/core/config"
)

// FallbackSummary is the ticket title used whenever summarization fails.
const FallbackSummary = "Support Request"

// CompletionService wraps the model with the two prompts the bot uses. Neither
// method returns an error: failures are folded into the returned text.
type CompletionService interface {
	Answer(ctx context.Context, text string) string
	Summarize(ctx context.Context, text string) string
}

type completionService struct {
	client    llm.Client
	prompts   config.Prompts
	maxTokens int
}

func NewCompletionService(client llm.Client, prompts config.Prompts, maxTokens int) CompletionService {
	return &completionService{
		client:    client,
		prompts:   prompts,
		maxTokens: maxTokens,
	}
}

func (s *completionService) Answer(ctx context.Context, text string) string {
	resp, err := s.client.Complete(ctx, llm.Request{
		SystemPrompt: s.prompts.AnswerSystem,
		UserPrompt:   text,
		MaxTokens:    s.maxTokens,
	})
	if err != nil {
		slog.ErrorContext(ctx, "completion failed", "step", "answer", "error", err)
		return fmt.Sprintf("Error: %v", err)
	}
	return resp.Content
}

func (s *completionService) Summarize(ctx context.Context, text string) string {
	resp, err := s.client.Complete(ctx, llm.Request{
		SystemPrompt: s.prompts.SummarySystem,
		UserPrompt:   summaryPrompt(text),
		MaxTokens:    s.maxTokens,
		Temperature:  llm.Temp(s.prompts.SummaryTemperature),
	})
	if err != nil {
		slog.ErrorContext(ctx, "completion failed", "step", "summarize", "error", err)
		return FallbackSummary
	}
	summary := strings.TrimSpace(resp.Content)
	if summary == "" {
		return FallbackSummary
	}
	return summary
}

func summaryPrompt(text string) string {
	return "Summarize the following user message into a concise summary suitable for a Jira ticket title. " +
		"The summary should be clear and capture the main issue without losing essential details.\n\n" +
		"User Message:\n" + text + "\n\nSummary:"
}
