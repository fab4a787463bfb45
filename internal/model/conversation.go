package model

// ConversationState names the step the orchestrator is in. It is only used for
// logging; nothing is persisted between calls.
type ConversationState string

const (
	StateIdle             ConversationState = "idle"
	StateAuthenticating   ConversationState = "authenticating"
	StateFiltering        ConversationState = "filtering"
	StateAnswering        ConversationState = "answering"
	StateAwaitingFeedback ConversationState = "awaiting_feedback"
	StateLoggingPositive  ConversationState = "logging_positive"
	StateCreatingTicket   ConversationState = "creating_ticket"
	StateDone             ConversationState = "done"
)

// Outcome is the terminal result of handling one event.
type Outcome string

const (
	OutcomeFiltered           Outcome = "filtered"
	OutcomeAnswered           Outcome = "answered"
	OutcomeAnswerFailed       Outcome = "answer_failed"
	OutcomeProfileUnavailable Outcome = "profile_unavailable"
	OutcomeFeedbackLogged     Outcome = "feedback_logged"
	OutcomeTicketCreated      Outcome = "ticket_created"
	OutcomeTicketFallback     Outcome = "ticket_fallback"
	OutcomeIgnored            Outcome = "ignored"
)
