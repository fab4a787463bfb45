package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"basegraph.app/supportbot/common/id"
	"basegraph.app/supportbot/common/logger"
	"basegraph.app/supportbot/internal/http/dto"
	"basegraph.app/supportbot/internal/model"
	"basegraph.app/supportbot/internal/service"
)

const (
	HeaderRetryNum = "X-Slack-Retry-Num"

	formContentType = "application/x-www-form-urlencoded"
	payloadField    = "payload"
)

var errMalformedBody = errors.New("malformed body")

// EventHandlerFunc handles one classified inbound event.
type EventHandlerFunc func(ctx context.Context, ev model.InboundEvent) error

// Dispatch routes event kinds to their handlers. Kinds without an entry are acknowledged and dropped.
type Dispatch map[model.EventKind]EventHandlerFunc

type SlackWebhookHandler struct {
	verifier service.RequestVerifier
	dispatch Dispatch
	now      func() time.Time
}

func NewSlackWebhookHandler(verifier service.RequestVerifier, dispatch Dispatch) *SlackWebhookHandler {
	return &SlackWebhookHandler{
		verifier: verifier,
		dispatch: dispatch,
		now:      time.Now,
	}
}

func (h *SlackWebhookHandler) HandleEvent(c *gin.Context) {
	// Slack gives up after three seconds and retries; work already started must not be cut short.
	ctx := context.WithoutCancel(c.Request.Context())

	requestID := id.New()
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		RequestID: &requestID,
		Component: "supportbot.http.webhook",
	})

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	if !h.verifier.Verify(body, c.Request.Header, h.now().Unix()) {
		slog.WarnContext(ctx, "rejected unauthenticated slack request")
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid request"})
		return
	}

	if retryNum, err := strconv.Atoi(c.GetHeader(HeaderRetryNum)); err == nil && retryNum > 0 {
		slog.InfoContext(ctx, "ignoring slack retry", "retry_num", retryNum)
		c.String(http.StatusOK, "Ignoring retry")
		return
	}

	ev, challenge, err := classify(body, c.Request.Header)
	if err != nil {
		slog.WarnContext(ctx, "malformed slack request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request"})
		return
	}
	ev.Timestamp, _ = strconv.ParseInt(c.GetHeader(service.HeaderSlackTimestamp), 10, 64)

	kind := string(ev.Kind)
	ctx = logger.WithLogFields(ctx, logger.LogFields{EventType: &kind})

	if ev.Kind == model.EventKindURLVerification {
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(challenge))
		return
	}

	handle, ok := h.dispatch[ev.Kind]
	if !ok {
		slog.DebugContext(ctx, "no handler registered for event kind")
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	if err := handle(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "failed to handle slack event", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// classify decides the event kind from the body shape: interactions arrive as a
// form with a JSON "payload" field, Events API calls as a JSON document.
func classify(body []byte, headers http.Header) (model.InboundEvent, string, error) {
	ev := model.InboundEvent{RawBody: body, Headers: headers}

	if isForm(headers.Get("Content-Type")) {
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return ev, "", fmt.Errorf("%w: %v", errMalformedBody, err)
		}
		payload := values.Get(payloadField)
		if payload == "" {
			return ev, "", fmt.Errorf("%w: missing %s field", errMalformedBody, payloadField)
		}

		var envelope dto.InteractionEnvelope
		if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
			return ev, "", fmt.Errorf("%w: %v", errMalformedBody, err)
		}

		ev.Payload = json.RawMessage(payload)
		ev.Kind = model.EventKindUnsupported
		if slack.InteractionType(envelope.Type) == slack.InteractionTypeBlockActions {
			ev.Kind = model.EventKindInteractionAction
		}
		return ev, "", nil
	}

	var envelope dto.SlackEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ev, "", fmt.Errorf("%w: %v", errMalformedBody, err)
	}

	ev.Payload = json.RawMessage(body)
	switch {
	case envelope.Type == slackevents.URLVerification:
		ev.Kind = model.EventKindURLVerification
	case envelope.Type == slackevents.CallbackEvent && envelope.Event != nil && envelope.Event.Type == string(slackevents.Message):
		ev.Kind = model.EventKindMessage
	default:
		ev.Kind = model.EventKindUnsupported
	}
	return ev, envelope.Challenge, nil
}

func isForm(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == formContentType
}
