package webhook_test

import (
	"context"
	"sync"

	"basegraph.app/supportbot/internal/model"
)

type mockConversationService struct {
	mu sync.Mutex

	HandleMessageFn  func(ctx context.Context, ev model.MessageEvent) (model.Outcome, error)
	HandleFeedbackFn func(ctx context.Context, action model.FeedbackAction) (model.Outcome, error)

	messages []model.MessageEvent
	actions  []model.FeedbackAction
}

func (m *mockConversationService) HandleMessage(ctx context.Context, ev model.MessageEvent) (model.Outcome, error) {
	m.mu.Lock()
	m.messages = append(m.messages, ev)
	m.mu.Unlock()
	if m.HandleMessageFn != nil {
		return m.HandleMessageFn(ctx, ev)
	}
	return model.OutcomeAnswered, nil
}

func (m *mockConversationService) HandleFeedback(ctx context.Context, action model.FeedbackAction) (model.Outcome, error) {
	m.mu.Lock()
	m.actions = append(m.actions, action)
	m.mu.Unlock()
	if m.HandleFeedbackFn != nil {
		return m.HandleFeedbackFn(ctx, action)
	}
	return model.OutcomeFeedbackLogged, nil
}
