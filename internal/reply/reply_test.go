package reply

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{"under limit", "hello", 10, "hello"},
		{"exact limit", "hello", 5, "hello"},
		{"over limit", "hello world", 8, "hello..."},
		{"empty", "", 5, ""},
		{"zero limit", "hello", 0, ""},
		{"limit smaller than marker", "hello", 2, "he"},
		{"limit equal to marker", "hello", 3, "..."},
		{"cjk counted by rune", "一二三四五六", 5, "一二..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.text, tt.limit))
		})
	}
}

func TestTruncate_NeverExceedsLimit(t *testing.T) {
	text := strings.Repeat("桌遊ab ", 80)
	for limit := 0; limit <= 400; limit += 7 {
		got := Truncate(text, limit)
		assert.LessOrEqual(t, utf8.RuneCountInString(got), limit)
		assert.Equal(t, got, Truncate(got, limit), "truncating twice changes nothing")
	}
}

func TestTruncate_ThreeHundredToTwoHundred(t *testing.T) {
	text := strings.Repeat("機", 300)
	got := Truncate(text, 200)

	assert.Equal(t, 200, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, Ellipsis))
	assert.Equal(t, strings.Repeat("機", 197)+Ellipsis, got)
}

func TestFinish(t *testing.T) {
	got, ok := Finish("  \n回覆內容\n ", 200)
	assert.True(t, ok)
	assert.Equal(t, "回覆內容", got)

	_, ok = Finish(" \t\n", 200)
	assert.False(t, ok)

	got, ok = Finish("  abcdefgh  ", 6)
	assert.True(t, ok)
	assert.Equal(t, "abc...", got)
}
