package line

import "github.com/line/line-bot-sdk-go/v8/linebot/webhook"

// TextMessage is a text message event reduced to what the bot needs.
type TextMessage struct {
	UserID     string
	Text       string
	ReplyToken string
	EventID    string
	Redelivery bool
}

// textMessage extracts a TextMessage from a decoded webhook event. Events
// that are not text messages, or carry no user or reply token, are skipped.
// Reference: https://developers.line.biz/en/reference/messaging-api/#message-event
func textMessage(event webhook.EventInterface) (TextMessage, bool) {
	e, ok := event.(webhook.MessageEvent)
	if !ok {
		return TextMessage{}, false
	}
	content, ok := e.Message.(webhook.TextMessageContent)
	if !ok {
		return TextMessage{}, false
	}

	userID := sourceUserID(e.Source)
	if userID == "" || e.ReplyToken == "" {
		return TextMessage{}, false
	}

	msg := TextMessage{
		UserID:     userID,
		Text:       content.Text,
		ReplyToken: e.ReplyToken,
		EventID:    e.WebhookEventId,
	}
	if e.DeliveryContext != nil {
		msg.Redelivery = e.DeliveryContext.IsRedelivery
	}
	return msg, true
}

func sourceUserID(src webhook.SourceInterface) string {
	switch s := src.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.UserId
	case webhook.RoomSource:
		return s.UserId
	}
	return ""
}
