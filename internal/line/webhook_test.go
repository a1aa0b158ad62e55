package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "channel-secret"

const samplePayload = `{
  "destination": "Uxxxx",
  "events": [
    {
      "type": "message",
      "mode": "active",
      "timestamp": 1700000000000,
      "source": {"type": "user", "userId": "U1"},
      "webhookEventId": "01HEVENT",
      "deliveryContext": {"isRedelivery": false},
      "replyToken": "tok-1",
      "message": {"id": "m1", "type": "text", "text": "你好"}
    },
    {
      "type": "message",
      "source": {"type": "user", "userId": "U1"},
      "replyToken": "tok-2",
      "message": {"id": "m2", "type": "sticker"}
    },
    {
      "type": "follow",
      "source": {"type": "user", "userId": "U2"},
      "replyToken": "tok-3"
    },
    {
      "type": "message",
      "source": {"type": "user", "userId": "U3"},
      "webhookEventId": "01HEVENT3",
      "deliveryContext": {"isRedelivery": true},
      "replyToken": "tok-4",
      "message": {"id": "m4", "type": "text", "text": "規則怎麼設計"}
    }
  ]
}`

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func post(h *WebhookHandler, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(body))
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	h.HandleCallback(rec, req)
	return rec
}

func TestHandleCallback_DeliversTextMessages(t *testing.T) {
	var got []TextMessage
	h := NewWebhookHandler(testSecret, func(m []TextMessage) { got = append(got, m...) })

	rec := post(h, samplePayload, sign(testSecret, []byte(samplePayload)))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, got, 2)
	assert.Equal(t, TextMessage{UserID: "U1", Text: "你好", ReplyToken: "tok-1", EventID: "01HEVENT"}, got[0])
	assert.Equal(t, "U3", got[1].UserID)
	assert.True(t, got[1].Redelivery)
}

func TestHandleCallback_RejectsBadSignature(t *testing.T) {
	called := false
	h := NewWebhookHandler(testSecret, func([]TextMessage) { called = true })

	rec := post(h, samplePayload, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(h, samplePayload, sign("wrong", []byte(samplePayload)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(h, samplePayload, "not base64!")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	tampered := strings.Replace(samplePayload, "你好", "再見", 1)
	rec = post(h, tampered, sign(testSecret, []byte(samplePayload)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, called)
}

func TestHandleCallback_EmptyEventsIsOK(t *testing.T) {
	// The console's "Verify" button sends a signed payload with no events.
	h := NewWebhookHandler(testSecret, func([]TextMessage) { t.Fatal("unexpected message") })
	body := `{"destination":"U0","events":[]}`
	rec := post(h, body, sign(testSecret, []byte(body)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleCallback_MalformedJSON(t *testing.T) {
	h := NewWebhookHandler(testSecret, func([]TextMessage) {})
	body := `{"events": [`
	rec := post(h, body, sign(testSecret, []byte(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCallback_GroupSourceUsesSenderID(t *testing.T) {
	var got []TextMessage
	h := NewWebhookHandler(testSecret, func(m []TextMessage) { got = append(got, m...) })
	body := `{"destination":"U0","events":[{"type":"message","mode":"active","timestamp":1,` +
		`"source":{"type":"group","groupId":"G1","userId":"U9"},"webhookEventId":"e9",` +
		`"deliveryContext":{"isRedelivery":false},"replyToken":"tok-9",` +
		`"message":{"id":"m9","type":"text","quoteToken":"q","text":"hi"}}]}`

	rec := post(h, body, sign(testSecret, []byte(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, got, 1)
	assert.Equal(t, "U9", got[0].UserID)
}
