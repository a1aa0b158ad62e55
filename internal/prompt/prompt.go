package prompt

import (
	"fmt"
	"strings"

	"github.com/l101ta/ludo/internal/ai"
	"github.com/l101ta/ludo/internal/session"
)

// Class selects which system instruction a user gets.
type Class int

const (
	Standard Class = iota
	Privileged
)

func (c Class) String() string {
	if c == Privileged {
		return "privileged"
	}
	return "standard"
}

// Users is the static set of privileged user IDs.
type Users map[string]struct{}

// NewUsers builds the set, ignoring blank IDs.
func NewUsers(ids ...string) Users {
	u := make(Users, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			u[id] = struct{}{}
		}
	}
	return u
}

func (u Users) Classify(userID string) Class {
	if _, ok := u[userID]; ok {
		return Privileged
	}
	return Standard
}

const (
	DefaultDomain  = "數位桌遊設計"
	DefaultTopics  = "遊戲機制、規則設計、主題創意、數位轉化建議"
	DefaultRefusal = "抱歉這不是我的專業，我專門回答與數位桌遊設計相關的問題喔！"
	DefaultBudget  = 250
)

// Options configures the system instructions.
type Options struct {
	Domain  string // subject the standard assistant is restricted to
	Topics  string // examples of allowed topics, listed in the instruction
	Refusal string // exact reply for out-of-scope questions
	Budget  int    // target reply length in characters
}

// Composer builds the message list sent to the model.
type Composer struct {
	standard   string
	privileged string
}

func NewComposer(opts Options) *Composer {
	if opts.Domain == "" {
		opts.Domain = DefaultDomain
	}
	if opts.Topics == "" {
		opts.Topics = DefaultTopics
	}
	if opts.Refusal == "" {
		opts.Refusal = DefaultRefusal
	}
	if opts.Budget <= 0 {
		opts.Budget = DefaultBudget
	}
	return &Composer{
		standard:   standardInstruction(opts),
		privileged: privilegedInstruction(opts),
	}
}

func standardInstruction(o Options) string {
	return fmt.Sprintf("你是一位專精於%s的顧問。請只回答與%s相關的問題，例如：%s等。"+
		"對於與主題無關的問題，請回覆：『%s』。"+
		"請將回答控制在 %d 字以內。", o.Domain, o.Domain, o.Topics, o.Refusal, o.Budget)
}

func privilegedInstruction(o Options) string {
	return fmt.Sprintf("你是一位知識廣博、樂於助人的助理，可以回答任何領域的問題，"+
		"也擅長%s。請用繁體中文清楚回答，並將回答控制在 %d 字以內。", o.Domain, o.Budget)
}

// Instruction returns the system instruction for class.
func (c *Composer) Instruction(class Class) string {
	if class == Privileged {
		return c.privileged
	}
	return c.standard
}

// Compose returns the system instruction, then history oldest first, then
// the new user text.
func (c *Composer) Compose(class Class, history []session.Turn, text string) []ai.Message {
	msgs := make([]ai.Message, 0, len(history)+2)
	msgs = append(msgs, ai.Message{Role: ai.RoleSystem, Content: c.Instruction(class)})
	for _, t := range history {
		role := ai.RoleUser
		if t.Role == session.RoleAssistant {
			role = ai.RoleAssistant
		}
		msgs = append(msgs, ai.Message{Role: role, Content: t.Content})
	}
	return append(msgs, ai.Message{Role: ai.RoleUser, Content: text})
}
