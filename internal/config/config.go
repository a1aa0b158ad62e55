package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Config struct {
	LineChannelSecret      string
	LineChannelAccessToken string

	Provider          string
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIBaseURL     string
	GeminiAPIKey      string
	GeminiModel       string
	GeminiBaseURL     string
	MaxOutputTokens   int
	CompletionTimeout time.Duration

	ReplyLimit   int
	ReplyBudget  int
	Domain       string
	Topics       string
	RefusalText  string
	FailureReply string

	HistoryWindow   int
	SessionIdleTTL  time.Duration
	PrivilegedUsers []string
	RulesFile       string

	GoogleCredsJSON string
	SheetID         string
	SheetName       string
	WorksheetName   string
	AuditDB         string
	AuditQueueSize  int

	Port      string
	LogLevel  string
	LogFormat string
}

// Load reads the configuration from the environment. It only fails on
// malformed values; use RequireServe or RequireModel to check credentials.
func Load() (*Config, error) {
	// .env is optional; production sets the variables directly
	_ = godotenv.Load()

	cfg := &Config{
		LineChannelSecret:      os.Getenv("LINE_CHANNEL_SECRET"),
		LineChannelAccessToken: os.Getenv("LINE_CHANNEL_ACCESS_TOKEN"),
		Provider:               strings.ToLower(envOr("LLM_PROVIDER", ProviderOpenAI)),
		OpenAIAPIKey:           os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:            envOr("OPENAI_MODEL", "gpt-4o"),
		OpenAIBaseURL:          os.Getenv("OPENAI_BASE_URL"),
		GeminiAPIKey:           os.Getenv("GEMINI_API_KEY"),
		GeminiModel:            envOr("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiBaseURL:          os.Getenv("GEMINI_BASE_URL"),
		Domain:                 os.Getenv("ASSISTANT_DOMAIN"),
		Topics:                 os.Getenv("ASSISTANT_TOPICS"),
		RefusalText:            os.Getenv("REFUSAL_TEXT"),
		FailureReply:           os.Getenv("FAILURE_REPLY"),
		PrivilegedUsers:        splitList(os.Getenv("PRIVILEGED_USER_IDS")),
		RulesFile:              os.Getenv("RULES_FILE"),
		GoogleCredsJSON:        os.Getenv("GOOGLE_CREDS_JSON"),
		SheetID:                os.Getenv("SHEET_ID"),
		SheetName:              envOr("SHEET_NAME", "L101TA"),
		WorksheetName:          envOr("WORKSHEET_NAME", "工作表1"),
		AuditDB:                os.Getenv("AUDIT_DB"),
		Port:                   envOr("PORT", "5000"),
		LogLevel:               envOr("LOG_LEVEL", "info"),
		LogFormat:              envOr("LOG_FORMAT", "json"),
	}

	var err error
	for _, p := range []struct {
		name string
		dst  *int
		def  int
	}{
		{"MAX_OUTPUT_TOKENS", &cfg.MaxOutputTokens, 500},
		{"REPLY_LIMIT", &cfg.ReplyLimit, 200},
		{"REPLY_BUDGET", &cfg.ReplyBudget, 250},
		{"HISTORY_WINDOW", &cfg.HistoryWindow, 5},
		{"AUDIT_QUEUE_SIZE", &cfg.AuditQueueSize, 256},
	} {
		if *p.dst, err = parseIntEnv(p.name, p.def); err != nil {
			return nil, err
		}
	}

	if cfg.CompletionTimeout, err = parseDurationEnv("COMPLETION_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.SessionIdleTTL, err = parseDurationEnv("SESSION_IDLE_TTL", 0); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return nil, fmt.Errorf("LLM_PROVIDER must be %q or %q, got %q", ProviderOpenAI, ProviderGemini, cfg.Provider)
	}

	return cfg, nil
}

// RequireModel checks the credentials of the selected completion provider.
func (c *Config) RequireModel() error {
	if c.Provider == ProviderGemini {
		return requireSet(envVar{"GEMINI_API_KEY", c.GeminiAPIKey})
	}
	return requireSet(envVar{"OPENAI_API_KEY", c.OpenAIAPIKey})
}

// RequireServe checks everything the webhook server needs.
func (c *Config) RequireServe() error {
	if err := requireSet(
		envVar{"LINE_CHANNEL_SECRET", c.LineChannelSecret},
		envVar{"LINE_CHANNEL_ACCESS_TOKEN", c.LineChannelAccessToken},
	); err != nil {
		return err
	}
	return c.RequireModel()
}

type envVar struct{ name, val string }

func requireSet(reqs ...envVar) error {
	for _, req := range reqs {
		if req.val == "" {
			return fmt.Errorf("required env var %s is not set", req.name)
		}
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseIntEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("env var %s must be a non-negative integer, got %q", key, v)
	}
	return n, nil
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("env var %s must be a duration like 30s, got %q", key, v)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
