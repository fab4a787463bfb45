package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	OTel     OTelConfig
	Slack    SlackConfig
	LLM      LLMConfig
	Jira     JiraConfig
	Sheets   SheetsConfig
	Pipeline PipelineConfig
	Prompts  Prompts
	Env      string
	Port     string
	// FeedbackSink selects how positive feedback reaches the spreadsheet:
	// "inline" appends from the server process, "redis" hands records to the worker.
	FeedbackSink string
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type SlackConfig struct {
	BotToken      string
	SigningSecret string
	BotUserID     string // Optional: discovered via auth.test when empty
	StepDelay     time.Duration
}

type LLMConfig struct {
	Provider  string // "openai" or "anthropic"
	APIKey    string
	BaseURL   string // Optional: for custom endpoints
	Model     string
	MaxTokens int
}

type JiraConfig struct {
	BaseURL         string
	Email           string
	APIToken        string
	PortalURL       string // Customer portal base, e.g. https://acme.atlassian.net/servicedesk/customer/portal/21
	ProjectKey      string
	RequestTypeName string
	ManualTicketURL string
	CreateTimeout   time.Duration
}

type SheetsConfig struct {
	SpreadsheetID   string
	Range           string
	CredentialsFile string
	// AgeIdentityFile decrypts CredentialsFile when it is age-encrypted.
	AgeIdentityFile string
}

type PipelineConfig struct {
	RedisURL       string
	RedisStream    string
	RedisGroup     string
	RedisDLQStream string
	RedisConsumer  string
}

type ServiceType string

const (
	ServiceTypeServer ServiceType = "server"
	ServiceTypeWorker ServiceType = "worker"
)

const (
	FeedbackSinkInline = "inline"
	FeedbackSinkRedis  = "redis"
)

// Load loads configuration from environment variables.
// In development, it loads from service-specific .env files:
//   - .env.server for the webhook server
//   - .env.worker for the feedback worker
//
// Falls back to .env if service-specific file doesn't exist.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("SUPPORTBOT_ENV", "development") == "development" {
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	cfg := Config{
		Env:          getEnv("SUPPORTBOT_ENV", "development"),
		Port:         getEnv("PORT", "8080"),
		FeedbackSink: getEnv("FEEDBACK_SINK", FeedbackSinkInline),
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "supportbot"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		Slack: SlackConfig{
			BotToken:      getEnv("SLACK_BOT_TOKEN", ""),
			SigningSecret: getEnv("SLACK_SIGNING_SECRET", ""),
			BotUserID:     getEnv("SLACK_BOT_USER_ID", ""),
			StepDelay:     getEnvDuration("THINKING_STEP_DELAY", time.Second),
		},
		LLM: LLMConfig{
			Provider:  getEnv("LLM_PROVIDER", "openai"),
			APIKey:    getEnv("LLM_API_KEY", getEnv("OPENAI_API_KEY", "")),
			BaseURL:   getEnv("LLM_BASE_URL", ""),
			Model:     getEnv("LLM_MODEL", "gpt-4o-mini"),
			MaxTokens: getEnvInt("LLM_MAX_TOKENS", 1024),
		},
		Jira: JiraConfig{
			BaseURL:         getEnv("JIRA_BASE_URL", ""),
			Email:           getEnv("JIRA_EMAIL", ""),
			APIToken:        getEnv("JIRA_API_TOKEN", ""),
			PortalURL:       getEnv("JIRA_PORTAL_URL", ""),
			ProjectKey:      getEnv("JIRA_PROJECT_KEY", "SD"),
			RequestTypeName: getEnv("JIRA_REQUEST_TYPE", "Get IT help"),
			ManualTicketURL: getEnv("TICKET_CREATION_URL", ""),
			CreateTimeout:   getEnvDuration("JIRA_CREATE_TIMEOUT", 10*time.Second),
		},
		Sheets: SheetsConfig{
			SpreadsheetID:   getEnv("SHEETS_SPREADSHEET_ID", ""),
			Range:           getEnv("SHEETS_RANGE", "Sheet1!A1:D"),
			CredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
			AgeIdentityFile: getEnv("GOOGLE_CREDENTIALS_AGE_IDENTITY", ""),
		},
		Pipeline: PipelineConfig{
			RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),
			RedisStream:    getEnv("REDIS_STREAM", "supportbot_feedback"),
			RedisGroup:     getEnv("REDIS_CONSUMER_GROUP", "supportbot_group"),
			RedisDLQStream: getEnv("REDIS_DLQ_STREAM", "supportbot_feedback_dlq"),
			RedisConsumer:  getEnv("REDIS_CONSUMER_NAME", "feedback-worker"),
		},
	}

	prompts, err := LoadPrompts(getEnv("PROMPTS_FILE", ""))
	if err != nil {
		return Config{}, err
	}
	cfg.Prompts = prompts

	if err := cfg.validate(serviceType); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate(serviceType ServiceType) error {
	switch c.FeedbackSink {
	case FeedbackSinkInline, FeedbackSinkRedis:
	default:
		return fmt.Errorf("FEEDBACK_SINK must be %q or %q, got %q", FeedbackSinkInline, FeedbackSinkRedis, c.FeedbackSink)
	}

	if serviceType == ServiceTypeWorker {
		if c.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("SHEETS_SPREADSHEET_ID is required")
		}
		return nil
	}

	if c.Slack.BotToken == "" || c.Slack.SigningSecret == "" {
		return fmt.Errorf("SLACK_BOT_TOKEN and SLACK_SIGNING_SECRET are required")
	}
	if !c.LLM.Enabled() {
		return fmt.Errorf("LLM_API_KEY is required and LLM_PROVIDER must be openai or anthropic")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c LLMConfig) Enabled() bool {
	return c.APIKey != "" && (c.Provider == "openai" || c.Provider == "anthropic")
}

func (c JiraConfig) Enabled() bool {
	return c.BaseURL != "" && c.Email != "" && c.APIToken != ""
}

func (c SheetsConfig) Enabled() bool {
	return c.SpreadsheetID != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
