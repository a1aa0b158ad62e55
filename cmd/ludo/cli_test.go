package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRules(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv("RULES_FILE", "")
	t.Setenv("LLM_PROVIDER", "")
	var out bytes.Buffer
	cmd := newRulesCommand()
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	return out.String()
}

func TestRulesCommand_List(t *testing.T) {
	out := runRules(t)
	assert.Contains(t, out, "KEYWORD")
	assert.Contains(t, out, "你好")
	assert.Contains(t, out, "請問你會什麼")
}

func TestRulesCommand_Match(t *testing.T) {
	assert.Contains(t, runRules(t, "嗨", "大家"), "嗨嗨～")
	assert.Contains(t, runRules(t, "什麼是工人放置"), "no rule matches")
}

func TestRulesCommand_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - keyword: 骰子\n    reply: 骰子機制請見講義\n"), 0o600))
	out := runRules(t, "--file", path, "骰子怎麼用")
	assert.Contains(t, out, "骰子機制請見講義")
}

func TestRulesCommand_BadConfigWarnsAndKeepsRulesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - keyword: 骰子\n    reply: 骰子機制請見講義\n"), 0o600))
	t.Setenv("RULES_FILE", path)
	t.Setenv("LLM_PROVIDER", "bogus")

	var logs bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&logs)
	t.Cleanup(func() { log.Logger = prev })

	var out bytes.Buffer
	cmd := newRulesCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"骰子怎麼用"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.Contains(t, out.String(), "骰子機制請見講義")
	assert.Contains(t, logs.String(), `"level":"warn"`)
	assert.Contains(t, logs.String(), "LLM_PROVIDER")
}

func TestAskEvent(t *testing.T) {
	ev := askEvent("U1", []string{"派對", "遊戲"})
	assert.Equal(t, "派對 遊戲", ev.Text)
	assert.Equal(t, "U1", ev.UserID)
}

func TestPrintSender(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printSender{w: &out}.Reply(context.Background(), "tok", "答案"))
	assert.Equal(t, "答案\n", out.String())
}
