// Package audit records answered exchanges without slowing down replies.
package audit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultQueueSize    = 256
	DefaultWriteTimeout = 15 * time.Second
)

// Row is one answered exchange.
type Row struct {
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id"`
	UserText  string    `json:"user_text"`
	BotText   string    `json:"bot_text"`
}

// Sink stores rows. Its errors never reach the user-facing path.
type Sink interface {
	AppendRow(ctx context.Context, row Row) error
}

// Multi writes every row to all sinks.
type Multi []Sink

func (m Multi) AppendRow(ctx context.Context, row Row) error {
	var errs []error
	for _, s := range m {
		if err := s.AppendRow(ctx, row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every row.
type Discard struct{}

func (Discard) AppendRow(context.Context, Row) error { return nil }

// Logger feeds a Sink from a bounded queue on its own goroutine.
type Logger struct {
	sink    Sink
	timeout time.Duration
	queue   chan Row
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewLogger starts the writer goroutine. Call Close to stop it.
func NewLogger(sink Sink, queueSize int, writeTimeout time.Duration) *Logger {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	l := &Logger{
		sink:    sink,
		timeout: writeTimeout,
		queue:   make(chan Row, queueSize),
		done:    make(chan struct{}),
	}
	go l.run()
	return l
}

// Log enqueues row and returns immediately. It reports false when the row
// was dropped because the queue is full or the logger is closed.
func (l *Logger) Log(row Row) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return false
	}
	select {
	case l.queue <- row:
		return true
	default:
		log.Warn().Str("component", "audit").Str("user_id", row.UserID).Msg("queue full, dropping row")
		return false
	}
}

func (l *Logger) run() {
	defer close(l.done)
	for row := range l.queue {
		l.write(row)
	}
}

func (l *Logger) write(row Row) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	if err := l.sink.AppendRow(ctx, row); err != nil {
		log.Error().Err(err).Str("component", "audit").Str("user_id", row.UserID).Msg("append failed")
		return
	}
	log.Debug().Str("component", "audit").Str("user_id", row.UserID).Msg("row appended")
}

// Close stops accepting rows and waits for queued rows to be written or for
// ctx to end, whichever comes first.
func (l *Logger) Close(ctx context.Context) error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.queue)
	}
	l.mu.Unlock()

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
