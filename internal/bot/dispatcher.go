package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/l101ta/ludo/internal/ai"
	"github.com/l101ta/ludo/internal/audit"
	"github.com/l101ta/ludo/internal/prompt"
	"github.com/l101ta/ludo/internal/reply"
	"github.com/l101ta/ludo/internal/session"
)

const (
	DefaultReplyLimit      = 200
	DefaultMaxOutputTokens = 500
)

// Event is one inbound text message.
type Event struct {
	UserID     string
	Text       string
	ReplyToken string
	EventID    string
	Redelivery bool
}

// Sender delivers a reply through a single-use reply token.
type Sender interface {
	Reply(ctx context.Context, replyToken, text string) error
}

// Matcher answers messages from a fixed table.
type Matcher interface {
	Match(text string) (string, bool)
}

// Classifier decides which system instruction a user gets.
type Classifier interface {
	Classify(userID string) prompt.Class
}

// AuditLog accepts rows without blocking.
type AuditLog interface {
	Log(row audit.Row) bool
}

type Options struct {
	// ReplyLimit is the hard cap on reply length in characters.
	ReplyLimit      int
	MaxOutputTokens int
	// HistoryTurns caps how many stored turns go into the prompt; zero sends
	// everything the session store keeps.
	HistoryTurns int
	// FailureReply, when set, is sent instead of staying silent after the
	// model fails.
	FailureReply string
}

type Dispatcher struct {
	rules     Matcher
	sessions  session.Store
	users     Classifier
	composer  *prompt.Composer
	completer ai.Completer
	sender    Sender
	audit     AuditLog
	opts      Options
	now       func() time.Time

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(
	rules Matcher,
	sessions session.Store,
	users Classifier,
	composer *prompt.Composer,
	completer ai.Completer,
	sender Sender,
	auditLog AuditLog,
	opts Options,
) *Dispatcher {
	if opts.ReplyLimit <= 0 {
		opts.ReplyLimit = DefaultReplyLimit
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if opts.HistoryTurns <= 0 {
		opts.HistoryTurns = 2 * session.DefaultWindow
		if m, ok := sessions.(interface{ Capacity() int }); ok {
			opts.HistoryTurns = m.Capacity()
		}
	}
	return &Dispatcher{
		rules:     rules,
		sessions:  sessions,
		users:     users,
		composer:  composer,
		completer: completer,
		sender:    sender,
		audit:     auditLog,
		opts:      opts,
		now:       time.Now,
	}
}

// Submit handles events in the background. Events from the same user are
// handled one after another in the order given; different users run in
// parallel. After Shutdown, events are dropped and Submit reports false.
func (d *Dispatcher) Submit(events ...Event) bool {
	var order []string
	byUser := make(map[string][]Event)
	for _, ev := range events {
		if _, ok := byUser[ev.UserID]; !ok {
			order = append(order, ev.UserID)
		}
		byUser[ev.UserID] = append(byUser[ev.UserID], ev)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		log.Warn().Str("component", "dispatcher").Int("events", len(events)).Msg("dispatcher stopped, dropping events")
		return false
	}

	for _, userID := range order {
		batch := byUser[userID]
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for _, ev := range batch {
				d.Handle(context.Background(), ev)
			}
		}()
	}
	return true
}

// Shutdown stops accepting events and blocks until submitted events are done
// or ctx ends. It may be called again to keep waiting.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handle runs one event to completion and logs the outcome. Failures never
// reach the user unless Options.FailureReply is set.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) Outcome {
	start := d.now()
	logger := log.With().
		Str("component", "dispatcher").
		Str("request_id", uuid.NewString()).
		Str("user_id", ev.UserID).
		Str("event_id", ev.EventID).
		Logger()

	if ev.Redelivery {
		logger.Debug().Msg("handling redelivered event")
	}

	out := d.process(logger.WithContext(ctx), ev)
	report(&logger, out, time.Since(start))
	return out
}

func (d *Dispatcher) process(ctx context.Context, ev Event) Outcome {
	text := strings.TrimSpace(ev.Text)
	r := &replier{sender: d.sender, token: ev.ReplyToken}

	// Fixed replies never touch the session or the model.
	if fixed, ok := d.rules.Match(text); ok {
		if err := r.send(ctx, fixed); err != nil {
			return failed(StateRuleChecked, fmt.Errorf("sending fixed reply: %w", err))
		}
		d.record(ev.UserID, text, fixed)
		return Outcome{State: StateDone, Static: true, Reply: fixed}
	}

	var out Outcome
	err := d.sessions.WithLock(ev.UserID, func() error {
		out = d.answer(ctx, r, ev.UserID, text)
		return out.Err
	})
	if err != nil && out.Err == nil {
		// The store failed before or after the model path ran.
		return failed(StateRuleChecked, fmt.Errorf("locking session: %w", err))
	}
	return out
}

// answer runs the model path while the caller holds the user's lock.
func (d *Dispatcher) answer(ctx context.Context, r *replier, userID, text string) Outcome {
	history := d.sessions.Recent(userID, d.opts.HistoryTurns)
	class := d.users.Classify(userID)
	messages := d.composer.Compose(class, history, text)

	zerolog.Ctx(ctx).Debug().
		Str("class", class.String()).
		Int("history", len(history)).
		Msg("calling model")

	raw, err := d.completer.Complete(ctx, messages, d.opts.MaxOutputTokens)
	if err != nil {
		return d.modelFailed(ctx, r, StateComposed, fmt.Errorf("completion: %w", err))
	}

	answer, ok := reply.Finish(raw, d.opts.ReplyLimit)
	if !ok {
		return d.modelFailed(ctx, r, StateCompleted, fmt.Errorf("completion: %w", ai.ErrEmptyResponse))
	}

	if err := r.send(ctx, answer); err != nil {
		return failed(StatePostProcessed, fmt.Errorf("sending reply: %w", err))
	}

	d.sessions.Append(userID,
		session.Turn{Role: session.RoleUser, Content: text},
		session.Turn{Role: session.RoleAssistant, Content: answer},
	)
	d.record(userID, text, answer)
	return Outcome{State: StateDone, Reply: answer}
}

func (d *Dispatcher) modelFailed(ctx context.Context, r *replier, at State, err error) Outcome {
	out := failed(at, err)
	if d.opts.FailureReply == "" {
		return out
	}
	if sendErr := r.send(ctx, d.opts.FailureReply); sendErr != nil {
		out.Err = errors.Join(err, fmt.Errorf("sending failure reply: %w", sendErr))
		return out
	}
	out.Reply = d.opts.FailureReply
	return out
}

func (d *Dispatcher) record(userID, text, answer string) {
	d.audit.Log(audit.Row{
		Timestamp: d.now(),
		UserID:    userID,
		UserText:  text,
		BotText:   answer,
	})
}

// ErrReplyUsed is returned when a second reply is attempted for one event.
var ErrReplyUsed = errors.New("bot: reply token already used")

type replier struct {
	sender Sender
	token  string
	used   bool
}

func (r *replier) send(ctx context.Context, text string) error {
	if r.used {
		return ErrReplyUsed
	}
	r.used = true
	return r.sender.Reply(ctx, r.token, text)
}
