package line

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

const apiURL = "https://api.line.me"

// ErrTokenExpired means the reply token was already used or has expired.
// The event cannot be answered any more.
var ErrTokenExpired = errors.New("line: reply token invalid or expired")

type Client struct {
	api *messaging_api.MessagingApiAPI
}

func NewClient(accessToken string) (*Client, error) {
	return NewClientWithBaseURL(apiURL, accessToken)
}

// NewClientWithBaseURL is NewClient against a different API root.
func NewClientWithBaseURL(baseURL, accessToken string) (*Client, error) {
	api, err := messaging_api.NewMessagingApiAPI(accessToken,
		messaging_api.WithEndpoint(strings.TrimRight(baseURL, "/")),
		messaging_api.WithHTTPClient(&http.Client{Timeout: 15 * time.Second}),
	)
	if err != nil {
		return nil, fmt.Errorf("creating LINE client: %w", err)
	}
	return &Client{api: api}, nil
}

// Reply answers an event with one text message. A reply token can be used once.
// Reference: https://developers.line.biz/en/reference/messaging-api/#send-reply-message
func (c *Client) Reply(ctx context.Context, replyToken, text string) error {
	resp, _, err := c.api.WithContext(ctx).ReplyMessageWithHttpInfo(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages: []messaging_api.MessageInterface{
			messaging_api.TextMessage{Text: text},
		},
	})
	if err == nil {
		return nil
	}
	if resp != nil && resp.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(err.Error()), "reply token") {
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	}
	return fmt.Errorf("sending reply: %w", err)
}
