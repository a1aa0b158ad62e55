package line

import (
	"errors"
	"net/http"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"github.com/rs/zerolog/log"
)

const (
	SignatureHeader = "X-Line-Signature"
	maxBodyBytes    = 1 << 20
)

// ErrInvalidSignature is returned for a missing or mismatched signature.
var ErrInvalidSignature = webhook.ErrInvalidSignature

// MessageHandler receives the text messages of one webhook delivery, in
// delivery order. It is not called when there are none.
type MessageHandler func(msgs []TextMessage)

type WebhookHandler struct {
	channelSecret string
	onMessage     MessageHandler
}

func NewWebhookHandler(channelSecret string, onMessage MessageHandler) *WebhookHandler {
	return &WebhookHandler{
		channelSecret: channelSecret,
		onMessage:     onMessage,
	}
}

// HandleCallback processes webhook POST notifications. The response is
// written after the message handler returns, so the handler must not block.
// Reference: https://developers.line.biz/en/reference/messaging-api/#signature-validation
func (h *WebhookHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	cb, err := webhook.ParseRequest(h.channelSecret, r)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			log.Warn().Str("component", "webhook").Str("remote", r.RemoteAddr).Msg("invalid signature")
			http.Error(w, "invalid signature", http.StatusBadRequest)
			return
		}
		log.Warn().Err(err).Str("component", "webhook").Msg("failed to parse payload")
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	var msgs []TextMessage
	for _, ev := range cb.Events {
		if msg, ok := textMessage(ev); ok {
			msgs = append(msgs, msg)
		}
	}
	if len(msgs) > 0 {
		h.onMessage(msgs)
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
