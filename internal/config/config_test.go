package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"LINE_CHANNEL_SECRET", "LINE_CHANNEL_ACCESS_TOKEN", "LLM_PROVIDER", "OPENAI_API_KEY",
	"OPENAI_MODEL", "OPENAI_BASE_URL", "GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_BASE_URL", "MAX_OUTPUT_TOKENS",
	"COMPLETION_TIMEOUT", "REPLY_LIMIT", "REPLY_BUDGET", "HISTORY_WINDOW", "SESSION_IDLE_TTL",
	"PRIVILEGED_USER_IDS", "RULES_FILE", "GOOGLE_CREDS_JSON", "SHEET_ID", "SHEET_NAME",
	"WORKSHEET_NAME", "AUDIT_DB", "AUDIT_QUEUE_SIZE", "PORT", "LOG_LEVEL", "LOG_FORMAT",
	"ASSISTANT_DOMAIN", "ASSISTANT_TOPICS", "REFUSAL_TEXT", "FAILURE_REPLY",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "gpt-4o", cfg.OpenAIModel)
	assert.Equal(t, 200, cfg.ReplyLimit)
	assert.Equal(t, 250, cfg.ReplyBudget)
	assert.Equal(t, 5, cfg.HistoryWindow)
	assert.Equal(t, 500, cfg.MaxOutputTokens)
	assert.Equal(t, 30*time.Second, cfg.CompletionTimeout)
	assert.Zero(t, cfg.SessionIdleTTL)
	assert.Equal(t, "L101TA", cfg.SheetName)
	assert.Equal(t, "工作表1", cfg.WorksheetName)
	assert.Equal(t, "5000", cfg.Port)
	assert.Empty(t, cfg.PrivilegedUsers)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "Gemini")
	t.Setenv("REPLY_LIMIT", "250")
	t.Setenv("SESSION_IDLE_TTL", "2h")
	t.Setenv("PRIVILEGED_USER_IDS", " Uadmin, ,Ututor ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, cfg.Provider)
	assert.Equal(t, 250, cfg.ReplyLimit)
	assert.Equal(t, 2*time.Hour, cfg.SessionIdleTTL)
	assert.Equal(t, []string{"Uadmin", "Ututor"}, cfg.PrivilegedUsers)
}

func TestLoad_Malformed(t *testing.T) {
	for key, val := range map[string]string{
		"REPLY_LIMIT":        "lots",
		"HISTORY_WINDOW":     "-1",
		"COMPLETION_TIMEOUT": "soon",
		"LLM_PROVIDER":       "claude",
	} {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestRequire(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.RequireServe()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LINE_CHANNEL_SECRET")

	cfg.LineChannelSecret = "s"
	cfg.LineChannelAccessToken = "t"
	err = cfg.RequireServe()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")

	cfg.OpenAIAPIKey = "k"
	require.NoError(t, cfg.RequireServe())

	cfg.Provider = ProviderGemini
	require.ErrorContains(t, cfg.RequireModel(), "GEMINI_API_KEY")
}
