package service_test

import (
	"context"
	"errors"
	"regexp"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/slack-go/slack"

	"basegraph.app/supportbot/internal/model"
	"basegraph.app/supportbot/internal/service"
	"basegraph.app/supportbot/internal/service/issue_tracker"
)

var _ = Describe("ConversationService", func() {
	var (
		chat       *mockChatClient
		completion *mockCompletionService
		tickets    *mockTicketService
		recorder   *mockFeedbackRecorder
		conv       service.ConversationService
		ctx        context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		chat = &mockChatClient{}
		completion = &mockCompletionService{}
		tickets = &mockTicketService{}
		recorder = &mockFeedbackRecorder{}
		conv = service.NewConversationService(
			chat,
			service.NewEventFilter("UBOT"),
			completion,
			tickets,
			recorder,
			service.ConversationConfig{
				ThinkingSteps:   []string{"⏳ Thinking...", "⌛ Still working...", "⏳ Almost done..."},
				ProjectKey:      "SD",
				RequestTypeName: "Get IT help",
				ManualTicketURL: "https://support.example.com/new",
			},
		)
	})

	Describe("HandleMessage", func() {
		var ev model.MessageEvent

		BeforeEach(func() {
			ev = model.MessageEvent{
				UserID:         "U123",
				ChannelID:      "C123",
				ChannelType:    model.ChannelTypeChannel,
				Text:           "  My MacBook fan is loud  ",
				EventTimestamp: "1700000000.000100",
			}
		})

		It("posts a placeholder, animates it and renders the answer with feedback buttons", func() {
			outcome, err := conv.HandleMessage(ctx, ev)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(model.OutcomeAnswered))

			Expect(chat.posts).To(HaveLen(1))
			Expect(chat.posts[0].ThreadTS).To(Equal("1700000000.000100"))
			Expect(chat.posts[0].Message.Text).To(Equal("⏳ Thinking..."))

			Expect(chat.updatedTexts()).To(Equal([]string{
				"⏳ Thinking...",
				"⌛ Still working...",
				"⏳ Almost done...",
				"Try restarting your Mac.\n\n*Please let me know if this answer is sufficient!*",
			}))
			for _, u := range chat.updates {
				Expect(u.TS).To(Equal("1700000001.000200"))
			}

			final := chat.updates[len(chat.updates)-1].Message
			Expect(final.Blocks[1].(*slack.ActionBlock).BlockID).To(Equal(service.FeedbackBlockID))
			Expect(completion.answerCalls).To(Equal(1))
		})

		It("threads replies under thread_ts when the root carries one", func() {
			ev.ThreadTimestamp = ev.EventTimestamp

			_, err := conv.HandleMessage(ctx, ev)
			Expect(err).NotTo(HaveOccurred())
			Expect(chat.posts[0].ThreadTS).To(Equal(ev.EventTimestamp))
		})

		It("drops filtered events silently", func() {
			ev.ThreadTimestamp = "1699999999.000001"

			outcome, err := conv.HandleMessage(ctx, ev)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(model.OutcomeFiltered))
			Expect(chat.posts).To(BeEmpty())
			Expect(completion.answerCalls).To(Equal(0))
		})

		It("drops blank messages", func() {
			ev.Text = "   "

			outcome, err := conv.HandleMessage(ctx, ev)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(model.OutcomeFiltered))
			Expect(chat.posts).To(BeEmpty())
		})

		It("still answers when an animation step fails", func() {
			calls := 0
			chat.updateMessageFn = func(context.Context, string, string, model.ChatMessage) error {
				calls++
				if calls == 2 {
					return errors.New("ratelimited")
				}
				return nil
			}

			outcome, err := conv.HandleMessage(ctx, ev)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(model.OutcomeAnswered))
			Expect(chat.updates).To(HaveLen(4))
		})

		It("apologizes when the placeholder cannot be posted", func() {
			chat.postMessageFn = func(_ context.Context, _, _ string, msg model.ChatMessage) (string, error) {
				if msg.Text == "⏳ Thinking..." {
					return "", errors.New("channel_not_found")
				}
				return "1", nil
			}

			outcome, err := conv.HandleMessage(ctx, ev)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(model.OutcomeAnswerFailed))
			Expect(chat.postedTexts()).To(Equal([]string{"⏳ Thinking...", service.MsgGenericFailure}))
			Expect(completion.answerCalls).To(Equal(0))
		})

		It("apologizes when the answer cannot be rendered", func() {
			chat.updateMessageFn = func(_ context.Context, _, _ string, msg model.ChatMessage) error {
				if len(msg.Blocks) > 0 {
					return errors.New("invalid_blocks")
				}
				return nil
			}

			outcome, err := conv.HandleMessage(ctx, ev)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(model.OutcomeAnswerFailed))
			Expect(chat.postedTexts()).To(ContainElement(service.MsgGenericFailure))
		})

		It("returns an error only when the apology cannot be posted either", func() {
			chat.postMessageFn = func(context.Context, string, string, model.ChatMessage) (string, error) {
				return "", errors.New("token_revoked")
			}

			_, err := conv.HandleMessage(ctx, ev)
			Expect(err).To(MatchError("token_revoked"))
		})
	})

	Describe("HandleFeedback", func() {
		var action model.FeedbackAction

		BeforeEach(func() {
			answer := service.AnswerMessage("Try restarting your Mac.")
			action = model.FeedbackAction{
				ChannelID:                "C123",
				ThreadTimestamp:          "1700000000.000100",
				OriginalMessageTimestamp: "1700000001.000200",
				ActingUserID:             "U123",
				OriginalMessageText:      answer.Text,
				OriginalMessageBlocks:    answer.Blocks,
			}
			chat.threadRepliesFn = func(context.Context, string, string) ([]model.ThreadMessage, error) {
				return []model.ThreadMessage{
					{UserID: "UOTHER", Text: "unrelated", Timestamp: "1699999999.000001"},
					{UserID: "U123", Text: "My MacBook fan is loud", Timestamp: "1700000000.000100"},
					{UserID: "UBOT", Text: "Try restarting your Mac.", Timestamp: "1700000001.000200"},
					{UserID: "U123", Text: "still loud", Timestamp: "1700000002.000300"},
				}, nil
			}
		})

		Context("positive feedback", func() {
			BeforeEach(func() {
				action.Kind = model.FeedbackPositive
			})

			It("logs the feedback, thanks the user and never opens a ticket", func() {
				outcome, err := conv.HandleFeedback(ctx, action)
				Expect(err).NotTo(HaveOccurred())
				Expect(outcome).To(Equal(model.OutcomeFeedbackLogged))

				Expect(recorder.count()).To(Equal(1))
				rec := recorder.records[0]
				Expect(rec.TicketLabel).To(Equal("AI_Ticket"))
				Expect(rec.Feedback).To(Equal("Positive Feedback"))
				Expect(rec.UserEmail).To(Equal("jane@example.com"))
				Expect(rec.Timestamp).To(MatchRegexp(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`))

				Expect(tickets.calls).To(Equal(0))
				Expect(completion.summarizeCalls).To(Equal(0))
				Expect(chat.postedTexts()).To(Equal([]string{service.MsgPositiveThanks}))
				Expect(chat.posts[0].ThreadTS).To(Equal(action.ThreadTimestamp))
			})

			It("re-renders the original message without the buttons", func() {
				_, err := conv.HandleFeedback(ctx, action)
				Expect(err).NotTo(HaveOccurred())

				Expect(chat.updates).To(HaveLen(1))
				update := chat.updates[0]
				Expect(update.TS).To(Equal(action.OriginalMessageTimestamp))
				Expect(update.Message.Text).To(Equal(action.OriginalMessageText))
				Expect(blockTypes(update.Message.Blocks)).To(Equal([]slack.MessageBlockType{slack.MBTSection, slack.MBTContext}))
			})
		})

		Context("negative feedback", func() {
			BeforeEach(func() {
				action.Kind = model.FeedbackNegative
			})

			It("opens a ticket from the user's first thread message and never logs feedback", func() {
				outcome, err := conv.HandleFeedback(ctx, action)
				Expect(err).NotTo(HaveOccurred())
				Expect(outcome).To(Equal(model.OutcomeTicketCreated))

				Expect(recorder.count()).To(Equal(0))
				Expect(tickets.calls).To(Equal(1))
				Expect(tickets.requests[0]).To(Equal(model.TicketRequest{
					Summary:         "MacBook issue",
					Description:     "My MacBook fan is loud",
					ReporterEmail:   "jane@example.com",
					ProjectKey:      "SD",
					RequestTypeName: "Get IT help",
				}))
				Expect(chat.postedTexts()).To(HaveLen(1))
				Expect(chat.postedTexts()[0]).To(ContainSubstring("<https://portal.example.com/SD-42|SD-42>"))
			})

			It("creates the ticket with the fallback title when summarizing fails", func() {
				client := &mockLLMClient{completeFn: failingCompletion}
				conv = service.NewConversationService(
					chat,
					service.NewEventFilter("UBOT"),
					service.NewCompletionService(client, defaultPrompts(), 256),
					tickets,
					recorder,
					service.ConversationConfig{ProjectKey: "SD", RequestTypeName: "Get IT help"},
				)

				outcome, err := conv.HandleFeedback(ctx, action)
				Expect(err).NotTo(HaveOccurred())
				Expect(outcome).To(Equal(model.OutcomeTicketCreated))
				Expect(tickets.requests[0].Summary).To(Equal("Support Request"))
			})

			It("uses a placeholder when the user has no message in the thread", func() {
				chat.threadRepliesFn = func(context.Context, string, string) ([]model.ThreadMessage, error) {
					return []model.ThreadMessage{{UserID: "UBOT", Text: "hi"}}, nil
				}

				_, err := conv.HandleFeedback(ctx, action)
				Expect(err).NotTo(HaveOccurred())
				Expect(tickets.requests[0].Description).To(Equal(service.MsgUserMessageMissing))
			})

			It("uses a placeholder when the thread history cannot be fetched", func() {
				chat.threadRepliesFn = func(context.Context, string, string) ([]model.ThreadMessage, error) {
					return nil, errors.New("missing_scope")
				}

				_, err := conv.HandleFeedback(ctx, action)
				Expect(err).NotTo(HaveOccurred())
				Expect(tickets.requests[0].Description).To(Equal("User message not found."))
			})

			It("offers the manual ticket link when ticket creation fails", func() {
				tickets.createTicketFn = func(context.Context, model.TicketRequest) (*model.TicketResult, error) {
					return nil, &issue_tracker.StepError{Step: issue_tracker.StepLookupAccount, Err: issue_tracker.ErrNotFound}
				}

				outcome, err := conv.HandleFeedback(ctx, action)
				Expect(err).NotTo(HaveOccurred())
				Expect(outcome).To(Equal(model.OutcomeTicketFallback))

				Expect(chat.posts).To(HaveLen(1))
				reply := chat.posts[0].Message
				Expect(reply.Text).To(Equal(service.MsgTicketFallback))
				button := reply.Blocks[1].(*slack.ActionBlock).Elements.ElementSet[0].(*slack.ButtonBlockElement)
				Expect(button.URL).To(Equal("https://support.example.com/new"))
			})

			It("treats a partial ticket result as a failure", func() {
				tickets.createTicketFn = func(context.Context, model.TicketRequest) (*model.TicketResult, error) {
					return &model.TicketResult{IssueKey: "SD-1"}, nil
				}

				outcome, err := conv.HandleFeedback(ctx, action)
				Expect(err).NotTo(HaveOccurred())
				Expect(outcome).To(Equal(model.OutcomeTicketFallback))
			})

			It("opens a second ticket when the same click is delivered twice", func() {
				_, err := conv.HandleFeedback(ctx, action)
				Expect(err).NotTo(HaveOccurred())
				_, err = conv.HandleFeedback(ctx, action)
				Expect(err).NotTo(HaveOccurred())

				Expect(tickets.calls).To(Equal(2))
			})
		})

		DescribeTable("stops when the reporter's email is unavailable",
			func(kind model.FeedbackKind, profile *model.ReporterIdentity, profileErr error) {
				action.Kind = kind
				chat.userProfileFn = func(context.Context, string) (*model.ReporterIdentity, error) {
					return profile, profileErr
				}

				outcome, err := conv.HandleFeedback(ctx, action)
				Expect(err).NotTo(HaveOccurred())
				Expect(outcome).To(Equal(model.OutcomeProfileUnavailable))
				Expect(chat.postedTexts()).To(Equal([]string{service.MsgEmailUnavailable}))
				Expect(chat.updates).To(BeEmpty())
				Expect(recorder.count()).To(Equal(0))
				Expect(tickets.calls).To(Equal(0))
			},
			Entry("positive, lookup error", model.FeedbackPositive, nil, errors.New("user_not_found")),
			Entry("negative, lookup error", model.FeedbackNegative, nil, errors.New("user_not_found")),
			Entry("negative, profile without email", model.FeedbackNegative, &model.ReporterIdentity{DisplayName: "Jane"}, nil),
		)

		It("continues when the re-render fails", func() {
			action.Kind = model.FeedbackPositive
			chat.updateMessageFn = func(context.Context, string, string, model.ChatMessage) error {
				return errors.New("message_not_found")
			}

			outcome, err := conv.HandleFeedback(ctx, action)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(model.OutcomeFeedbackLogged))
			Expect(recorder.count()).To(Equal(1))
		})
	})
})

var timestampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`)

var _ = Describe("NewPositiveFeedbackRecord", func() {
	It("formats the timestamp as a sheet-friendly string", func() {
		rec := model.NewPositiveFeedbackRecord("jane@example.com", mustParseTime("2024-03-05T14:07:09Z"))
		Expect(rec.Timestamp).To(Equal("2024-03-05 14:07:09"))
		Expect(timestampPattern.MatchString(rec.Timestamp)).To(BeTrue())
		Expect(rec.Row()).To(Equal([]any{"AI_Ticket", "Positive Feedback", "jane@example.com", "2024-03-05 14:07:09"}))
	})
})
