package rules

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule maps a keyword to a fixed reply.
type Rule struct {
	Keyword string `yaml:"keyword"`
	Reply   string `yaml:"reply"`
}

// Table is an ordered list of rules. The first rule whose keyword occurs in
// the message wins, so order is significant.
type Table struct {
	rules []Rule
}

// New builds a table from rules in the given order.
func New(rules []Rule) (*Table, error) {
	for i, r := range rules {
		if strings.TrimSpace(r.Keyword) == "" {
			return nil, fmt.Errorf("rule %d: empty keyword", i)
		}
		if r.Reply == "" {
			return nil, fmt.Errorf("rule %d (%q): empty reply", i, r.Keyword)
		}
	}
	return &Table{rules: append([]Rule(nil), rules...)}, nil
}

// Default returns the built-in greeting and self-introduction rules.
func Default() *Table {
	return &Table{rules: []Rule{
		{Keyword: "你好", Reply: "你好！我是你的數位桌遊設計助教，歡迎詢問任何關於桌遊設計的問題！"},
		{Keyword: "嗨", Reply: "嗨嗨～需要設計數位桌遊的幫忙嗎？我可以提供主題、機制、規則等建議唷！"},
		{Keyword: "你是誰", Reply: "我是專精於數位桌遊設計的助教，請儘管問我設計方面的問題吧！"},
		{Keyword: "請問你會什麼", Reply: "我擅長提供數位桌遊的主題、機制、遊戲流程與設計建議喔！有什麼想法需要討論嗎？"},
	}}
}

type file struct {
	Rules []Rule `yaml:"rules"`
}

// Load reads a YAML rule file of the form:
//
//	rules:
//	  - keyword: 你好
//	    reply: 你好！
//
// An empty path returns the default table.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML rule document.
func Parse(data []byte) (*Table, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding rules: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, errors.New("rules: no rules defined")
	}
	return New(f.Rules)
}

// Match returns the reply of the first rule whose keyword is a substring of
// the trimmed text.
func (t *Table) Match(text string) (string, bool) {
	r, ok := t.Find(text)
	return r.Reply, ok
}

// Find is Match but returns the whole rule.
func (t *Table) Find(text string) (Rule, bool) {
	text = strings.TrimSpace(text)
	for _, r := range t.rules {
		if strings.Contains(text, r.Keyword) {
			return r, true
		}
	}
	return Rule{}, false
}

// Rules returns a copy of the table in match order.
func (t *Table) Rules() []Rule {
	return append([]Rule(nil), t.rules...)
}

func (t *Table) Len() int { return len(t.rules) }
