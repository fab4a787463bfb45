package router_test

import (
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/supportbot/core/config"
	"basegraph.app/supportbot/internal/http/router"
	"basegraph.app/supportbot/internal/service"
)

var _ = Describe("Router", func() {
	var services *service.Services

	BeforeEach(func() {
		cfg := config.Config{
			Slack:   config.SlackConfig{SigningSecret: "signing-secret"},
			Prompts: config.DefaultPrompts(),
		}
		services = service.NewServices(cfg, "UBOT", nil, nil, nil, nil)
	})

	It("serves the health probe", func() {
		engine := router.New(services, router.RouterConfig{})

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"status":"ok"}`))
	})

	It("mounts the slack webhook behind request authentication", func() {
		engine := router.New(services, router.RouterConfig{})

		req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(`{"type":"url_verification","challenge":"abc"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusForbidden))
		Expect(w.Body.String()).To(MatchJSON(`{"error":"invalid request"}`))
	})

	It("rejects other methods on the webhook path", func() {
		engine := router.New(services, router.RouterConfig{})

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slack/events", nil))

		Expect(w.Code).To(Equal(http.StatusNotFound))
	})
})
