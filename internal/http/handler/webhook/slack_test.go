package webhook_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/slack-go/slack"

	"basegraph.app/supportbot/internal/http/handler/webhook"
	"basegraph.app/supportbot/internal/model"
	"basegraph.app/supportbot/internal/service"
)

const signingSecret = "8f742231b10e8888abcd99yyyzzz85a5"

const messageBody = `{
	"type": "event_callback",
	"team_id": "T1",
	"event": {
		"type": "message",
		"user": "U123",
		"text": "My MacBook will not boot",
		"ts": "1700000000.000100",
		"channel": "C42",
		"channel_type": "channel",
		"event_ts": "1700000000.000100"
	}
}`

const feedbackPayload = `{
	"type": "block_actions",
	"user": {"id": "U123", "username": "jane"},
	"channel": {"id": "C42"},
	"container": {
		"type": "message",
		"message_ts": "1700000001.000200",
		"channel_id": "C42",
		"thread_ts": "1700000000.000100"
	},
	"message": {
		"type": "message",
		"text": "Try restarting your Mac.",
		"ts": "1700000001.000200",
		"thread_ts": "1700000000.000100",
		"blocks": [
			{"type": "section", "block_id": "answer", "text": {"type": "mrkdwn", "text": "Try restarting your Mac."}},
			{"type": "actions", "block_id": "feedback_buttons", "elements": [
				{"type": "button", "action_id": "feedback_positive", "value": "positive", "text": {"type": "plain_text", "text": "👍 Yes"}},
				{"type": "button", "action_id": "feedback_negative", "value": "negative", "text": {"type": "plain_text", "text": "👎 No"}}
			]}
		]
	},
	"actions": [
		{"type": "button", "action_id": "feedback_negative", "block_id": "feedback_buttons", "value": "negative", "action_ts": "1700000002.000300"}
	]
}`

type signedRequest struct {
	body        string
	contentType string
	timestamp   int64
	secret      string
	retryNum    string
}

func (r signedRequest) build() *http.Request {
	ts := r.timestamp
	if ts == 0 {
		ts = time.Now().Unix()
	}
	secret := r.secret
	if secret == "" {
		secret = signingSecret
	}
	contentType := r.contentType
	if contentType == "" {
		contentType = "application/json"
	}

	tsHeader := strconv.FormatInt(ts, 10)
	req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(r.body))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(service.HeaderSlackTimestamp, tsHeader)
	req.Header.Set(service.HeaderSlackSignature, service.Sign([]byte(secret), tsHeader, []byte(r.body)))
	if r.retryNum != "" {
		req.Header.Set(webhook.HeaderRetryNum, r.retryNum)
	}
	return req
}

func formBody(payload string) string {
	return url.Values{"payload": {payload}}.Encode()
}

var _ = Describe("SlackWebhookHandler", func() {
	var (
		conversation *mockConversationService
		router       *gin.Engine
	)

	BeforeEach(func() {
		conversation = &mockConversationService{}

		handler := webhook.NewSlackWebhookHandler(
			service.NewRequestVerifier(signingSecret),
			webhook.Dispatch{
				model.EventKindMessage:           webhook.MessageHandler(conversation),
				model.EventKindInteractionAction: webhook.FeedbackHandler(conversation),
			},
		)
		router = gin.New()
		router.POST("/slack/events", handler.HandleEvent)
	})

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	Describe("authentication", func() {
		It("rejects a request signed with another secret", func() {
			w := serve(signedRequest{body: messageBody, secret: "not-the-secret"}.build())

			Expect(w.Code).To(Equal(http.StatusForbidden))
			Expect(w.Body.String()).To(MatchJSON(`{"error":"invalid request"}`))
			Expect(conversation.messages).To(BeEmpty())
		})

		It("rejects a request older than five minutes", func() {
			w := serve(signedRequest{body: messageBody, timestamp: time.Now().Unix() - 301}.build())

			Expect(w.Code).To(Equal(http.StatusForbidden))
			Expect(conversation.messages).To(BeEmpty())
		})

		It("rejects a request without signature headers", func() {
			req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(messageBody))
			w := serve(req)

			Expect(w.Code).To(Equal(http.StatusForbidden))
		})

		It("authenticates before honoring the retry header", func() {
			w := serve(signedRequest{body: messageBody, secret: "not-the-secret", retryNum: "1"}.build())
			Expect(w.Code).To(Equal(http.StatusForbidden))
		})
	})

	Describe("retries", func() {
		It("acknowledges a Slack retry without dispatching", func() {
			w := serve(signedRequest{body: messageBody, retryNum: "2"}.build())

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(Equal("Ignoring retry"))
			Expect(conversation.messages).To(BeEmpty())
		})

		It("processes a request whose retry number is zero", func() {
			w := serve(signedRequest{body: messageBody, retryNum: "0"}.build())

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(conversation.messages).To(HaveLen(1))
		})
	})

	It("echoes the url verification challenge as plain text", func() {
		body := `{"type":"url_verification","token":"x","challenge":"3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P"}`
		w := serve(signedRequest{body: body}.build())

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Content-Type")).To(HavePrefix("text/plain"))
		Expect(w.Body.String()).To(Equal("3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P"))
	})

	Describe("message events", func() {
		It("hands the parsed message to the conversation service", func() {
			w := serve(signedRequest{body: messageBody}.build())

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(MatchJSON(`{"status":"ok"}`))
			Expect(conversation.messages).To(ConsistOf(model.MessageEvent{
				UserID:         "U123",
				ChannelID:      "C42",
				ChannelType:    model.ChannelTypeChannel,
				Text:           "My MacBook will not boot",
				EventTimestamp: "1700000000.000100",
			}))
		})

		It("acknowledges inner event types without a handler", func() {
			body := `{"type":"event_callback","event":{"type":"app_mention","user":"U1","text":"hi","ts":"1.1","channel":"C1"}}`
			w := serve(signedRequest{body: body}.build())

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(conversation.messages).To(BeEmpty())
		})

		It("returns 400 for a body that is not JSON", func() {
			w := serve(signedRequest{body: "{not json"}.build())

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(conversation.messages).To(BeEmpty())
		})

		It("returns a generic 500 when the handler fails", func() {
			conversation.HandleMessageFn = func(context.Context, model.MessageEvent) (model.Outcome, error) {
				return "", errors.New("chat api down: xoxb-secret")
			}

			w := serve(signedRequest{body: messageBody}.build())

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(w.Body.String()).To(MatchJSON(`{"error":"internal server error"}`))
		})

		It("does not cancel handling when the client goes away", func() {
			var ctxErr error
			conversation.HandleMessageFn = func(ctx context.Context, _ model.MessageEvent) (model.Outcome, error) {
				ctxErr = ctx.Err()
				return model.OutcomeAnswered, nil
			}

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			w := serve(signedRequest{body: messageBody}.build().WithContext(ctx))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(ctxErr).NotTo(HaveOccurred())
		})
	})

	Describe("interactions", func() {
		It("hands a feedback click to the conversation service", func() {
			w := serve(signedRequest{
				body:        formBody(feedbackPayload),
				contentType: "application/x-www-form-urlencoded",
			}.build())

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(conversation.actions).To(HaveLen(1))

			action := conversation.actions[0]
			Expect(action.Kind).To(Equal(model.FeedbackNegative))
			Expect(action.ChannelID).To(Equal("C42"))
			Expect(action.ThreadTimestamp).To(Equal("1700000000.000100"))
			Expect(action.OriginalMessageTimestamp).To(Equal("1700000001.000200"))
			Expect(action.ActingUserID).To(Equal("U123"))
			Expect(action.OriginalMessageText).To(Equal("Try restarting your Mac."))
			Expect(action.OriginalMessageBlocks).To(HaveLen(2))
			Expect(action.OriginalMessageBlocks[1].BlockType()).To(Equal(slack.MBTAction))
		})

		It("acknowledges a click on the manual ticket link", func() {
			payload := strings.Replace(feedbackPayload,
				`"action_id": "feedback_negative", "block_id": "feedback_buttons"`,
				`"action_id": "create_ticket_button", "block_id": "ticket_link"`, 1)

			w := serve(signedRequest{
				body:        formBody(payload),
				contentType: "application/x-www-form-urlencoded",
			}.build())

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(conversation.actions).To(BeEmpty())
		})

		It("acknowledges interaction types other than block actions", func() {
			w := serve(signedRequest{
				body:        formBody(`{"type":"view_submission","user":{"id":"U123"}}`),
				contentType: "application/x-www-form-urlencoded",
			}.build())

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(conversation.actions).To(BeEmpty())
		})

		It("returns 400 when the payload field is missing", func() {
			w := serve(signedRequest{
				body:        "foo=bar",
				contentType: "application/x-www-form-urlencoded",
			}.build())

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 400 when the payload is not JSON", func() {
			w := serve(signedRequest{
				body:        formBody("{broken"),
				contentType: "application/x-www-form-urlencoded",
			}.build())

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})
})

var _ = DescribeTable("ParseMessageEvent channel types",
	func(raw string, expected model.ChannelType) {
		body := strings.Replace(messageBody, `"channel_type": "channel"`, `"channel_type": "`+raw+`"`, 1)

		ev, err := webhook.ParseMessageEvent([]byte(body))
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.ChannelType).To(Equal(expected))
	},
	Entry("im", "im", model.ChannelTypeDirect),
	Entry("mpim", "mpim", model.ChannelTypeGroup),
	Entry("private group", "group", model.ChannelTypeGroup),
	Entry("public channel", "channel", model.ChannelTypeChannel),
)

var _ = Describe("ParseMessageEvent", func() {
	It("keeps the thread and subtype", func() {
		body := `{"type":"event_callback","event":{"type":"message","subtype":"bot_message","user":"U9","text":"hi","ts":"1700000005.1","thread_ts":"1700000000.000100","channel":"C42","channel_type":"channel"}}`

		ev, err := webhook.ParseMessageEvent([]byte(body))
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.ThreadTimestamp).To(Equal("1700000000.000100"))
		Expect(ev.Subtype).To(Equal(model.SubtypeBotMessage))
		Expect(ev.IsThreadReply()).To(BeTrue())
	})
})
