package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Greeting(t *testing.T) {
	reply, ok := Default().Match("你好")
	require.True(t, ok)
	assert.Equal(t, "你好！我是你的數位桌遊設計助教，歡迎詢問任何關於桌遊設計的問題！", reply)
}

func TestMatch_SubstringOfTrimmedText(t *testing.T) {
	tbl := Default()

	reply, ok := tbl.Match("  請問你是誰呀？ \n")
	require.True(t, ok)
	assert.Equal(t, "我是專精於數位桌遊設計的助教，請儘管問我設計方面的問題吧！", reply)

	_, ok = tbl.Match("請推薦一個派對遊戲機制")
	assert.False(t, ok)

	_, ok = tbl.Match("")
	assert.False(t, ok)
}

func TestMatch_FirstRuleWins(t *testing.T) {
	tbl, err := New([]Rule{
		{Keyword: "b", Reply: "first"},
		{Keyword: "a", Reply: "second"},
	})
	require.NoError(t, err)

	reply, ok := tbl.Match("ab")
	require.True(t, ok)
	assert.Equal(t, "first", reply)

	// Repeated lookups give the same answer.
	for range 10 {
		got, _ := tbl.Match("ab")
		assert.Equal(t, "first", got)
	}
}

func TestNew_RejectsEmptyFields(t *testing.T) {
	_, err := New([]Rule{{Keyword: " ", Reply: "x"}})
	require.Error(t, err)

	_, err = New([]Rule{{Keyword: "k"}})
	require.Error(t, err)
}

func TestParse_PreservesOrder(t *testing.T) {
	tbl, err := Parse([]byte(`
rules:
  - keyword: 規則
    reply: 規則設計請參考...
  - keyword: 規
    reply: later
`))
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "規則", tbl.Rules()[0].Keyword)

	r, ok := tbl.Find("我想問規則")
	require.True(t, ok)
	assert.Equal(t, "規則設計請參考...", r.Reply)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("rules: ["))
	require.Error(t, err)

	_, err = Parse([]byte("rules: []"))
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	tbl, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Len(), tbl.Len())

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - keyword: hi\n    reply: hello\n"), 0o600))
	tbl, err = Load(path)
	require.NoError(t, err)
	reply, ok := tbl.Match("oh hi")
	require.True(t, ok)
	assert.Equal(t, "hello", reply)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestRules_ReturnsCopy(t *testing.T) {
	tbl := Default()
	rs := tbl.Rules()
	rs[0].Reply = "mutated"
	reply, _ := tbl.Match("你好")
	assert.NotEqual(t, "mutated", reply)
}
