// Package slacksink is the Suggestion Path's fallback post target: when a
// forge's comments_enabled is false, the suggestion message is posted to
// a configured Slack channel instead of back onto the thread.
package slacksink

import (
	"context"

	"github.com/slack-go/slack"
)

// Sink posts a rendered suggestion message to Slack.
type Sink interface {
	Post(ctx context.Context, text string) error
}

// Client wraps slack-go/slack's chat.postMessage to a fixed channel.
type Client struct {
	api     *slack.Client
	channel string
}

// New builds a Slack sink posting to channel with the given bot token.
func New(authToken, channel string) *Client {
	return &Client{api: slack.New(authToken), channel: channel}
}

// NewWithAPIURL is New, pointed at a non-default Slack API base URL --
// used by tests to aim the client at an httptest server.
func NewWithAPIURL(authToken, channel, apiURL string) *Client {
	return &Client{api: slack.New(authToken, slack.OptionAPIURL(apiURL)), channel: channel}
}

// Post sends text as a single chat message to the configured channel.
func (c *Client) Post(ctx context.Context, text string) error {
	_, _, err := c.api.PostMessageContext(ctx, c.channel, slack.MsgOptionText(text, false))
	return err
}

var _ Sink = (*Client)(nil)
