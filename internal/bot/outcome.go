package bot

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/l101ta/ludo/internal/ai"
)

// State is a step of the dispatch pipeline.
type State string

const (
	StateReceived      State = "received"
	StateRuleChecked   State = "rule_checked"
	StateComposed      State = "composed"
	StateCompleted     State = "completed"
	StatePostProcessed State = "post_processed"
	StateDone          State = "done"
	StateError         State = "error"
)

// Outcome is the result of handling one event.
type Outcome struct {
	State State
	// FailedAt is the last state reached before an error.
	FailedAt State
	// Static is set when a fixed rule answered.
	Static bool
	// Reply is what was sent, if anything.
	Reply string
	Err   error
}

func failed(at State, err error) Outcome {
	return Outcome{State: StateError, FailedAt: at, Err: err}
}

func report(logger *zerolog.Logger, out Outcome, elapsed time.Duration) {
	if out.Err == nil {
		logger.Info().
			Bool("static", out.Static).
			Int("reply_len", len([]rune(out.Reply))).
			Dur("elapsed", elapsed).
			Msg("replied")
		return
	}

	e := logger.Error().
		Err(out.Err).
		Str("failed_at", string(out.FailedAt)).
		Bool("user_notified", out.Reply != "").
		Dur("elapsed", elapsed)

	var ue *ai.UpstreamError
	if errors.As(out.Err, &ue) {
		e = e.Str("provider", ue.Provider).Str("kind", string(ue.Kind)).Bool("retryable", ue.Retryable())
	}
	e.Msg("dropped")
}
