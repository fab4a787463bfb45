package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"basegraph.app/supportbot/common/id"
	"basegraph.app/supportbot/common/llm"
	"basegraph.app/supportbot/common/logger"
	"basegraph.app/supportbot/common/otel"
	"basegraph.app/supportbot/core/config"
	"basegraph.app/supportbot/internal/chat"
	"basegraph.app/supportbot/internal/feedback"
	httprouter "basegraph.app/supportbot/internal/http/router"
	"basegraph.app/supportbot/internal/queue"
	"basegraph.app/supportbot/internal/service"
	"basegraph.app/supportbot/internal/service/issue_tracker"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel, config.ServiceTypeServer, cfg.Env)
	if err != nil {
		// Can't use slog yet, the logger depends on the OTel provider
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "supportbot starting",
		"env", cfg.Env,
		"llm_provider", cfg.LLM.Provider,
		"feedback_sink", cfg.FeedbackSink)

	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	llmClient, err := llm.New(llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Model:    cfg.LLM.Model,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create llm client", "error", err)
		os.Exit(1)
	}

	slackClient := chat.NewSlackClient(cfg.Slack.BotToken)

	botUserID := cfg.Slack.BotUserID
	if botUserID == "" {
		// Without it the filter cannot drop the bot's own messages, so log loudly but keep serving.
		if botUserID, err = slackClient.BotUserID(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to resolve bot user id", "error", err)
		} else {
			slog.InfoContext(ctx, "resolved bot user id", "bot_user_id", botUserID)
		}
	}

	var tickets issue_tracker.TicketService
	if cfg.Jira.Enabled() {
		tickets, err = issue_tracker.NewJiraTicketService(cfg.Jira, nil)
		if err != nil {
			slog.ErrorContext(ctx, "failed to create jira client", "error", err)
			os.Exit(1)
		}
	} else {
		slog.WarnContext(ctx, "jira not configured, negative feedback will fall back to the manual ticket link")
	}

	appender, closeAppender, err := newFeedbackAppender(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to set up feedback sink", "error", err)
		os.Exit(1)
	}
	defer closeAppender()

	sink := feedback.NewAsyncSink(appender)

	services := service.NewServices(cfg, botUserID, slackClient, llmClient, tickets, sink)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	routerCfg := httprouter.RouterConfig{}
	if cfg.OTel.Enabled() {
		routerCfg.TracingServiceName = cfg.OTel.ServiceName
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httprouter.New(services, routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// The thinking animation and ticket creation run inside the request.
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	// Let in-flight feedback appends finish.
	_ = sink.Close()

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

// newFeedbackAppender returns the appender behind the async sink: Sheets
// directly in inline mode, the Redis stream in redis mode.
func newFeedbackAppender(ctx context.Context, cfg config.Config) (feedback.Appender, func(), error) {
	if cfg.FeedbackSink == config.FeedbackSinkRedis {
		redisOpts, err := redis.ParseURL(cfg.Pipeline.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing redis url: %w", err)
		}

		redisClient := redis.NewClient(redisOpts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		slog.InfoContext(ctx, "redis connected", "stream", cfg.Pipeline.RedisStream)

		producer := queue.NewRedisProducer(redisClient, cfg.Pipeline.RedisStream, slog.Default())
		return feedback.NewQueueAppender(producer), func() { _ = producer.Close() }, nil
	}

	if !cfg.Sheets.Enabled() {
		slog.WarnContext(ctx, "sheets not configured, positive feedback will not be logged")
	}

	creds := feedback.FileCredentials{
		Path:         cfg.Sheets.CredentialsFile,
		IdentityPath: cfg.Sheets.AgeIdentityFile,
	}
	return feedback.NewSheetsAppender(
		cfg.Sheets.SpreadsheetID,
		cfg.Sheets.Range,
		feedback.CredentialsServiceFactory(creds),
	), func() {}, nil
}

const banner = `
 ___ _   _ _ __  _ __   ___  _ __| |_| |__   ___ | |_
/ __| | | | '_ \| '_ \ / _ \| '__| __| '_ \ / _ \| __|
\__ \ |_| | |_) | |_) | (_) | |  | |_| |_) | (_) | |_
|___/\__,_| .__/| .__/ \___/|_|   \__|_.__/ \___/ \__|
          |_|   |_|
`
