// Package status wraps the Slack Web API for the release status sink. It
// replaces the webhook-notification pattern the rest of the pack uses
// with slack-go's chat.postMessage/chat.update pair, since the status
// renderer needs to keep rewriting one message in place rather than
// posting a new notification on every tick.
package status

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/slack-go/slack"
)

// Message is a rendered status update: a channel/thread coordinate plus
// the text and blocks to show.
type Message struct {
	Channel   string
	ThreadTS  string
	MessageTS string
	Text      string
	Blocks    []slack.Block
}

// Client is the port the status renderer posts and updates through.
type Client interface {
	// Post sends a new message and returns its channel/timestamp
	// coordinates for later updates.
	Post(ctx context.Context, msg Message) (channel, ts string, err error)
	// Update rewrites an already-posted message in place.
	Update(ctx context.Context, msg Message) error
}

// SlackClient is the slack-go-backed implementation.
type SlackClient struct {
	api          *slack.Client
	rateLimitPad time.Duration
}

// NewSlackClient builds a status.Client authenticated with a bot token.
func NewSlackClient(token string) *SlackClient {
	return &SlackClient{
		api:          slack.New(token),
		rateLimitPad: 500 * time.Millisecond,
	}
}

// Post sends a new message, optionally threaded under threadTS.
func (c *SlackClient) Post(ctx context.Context, msg Message) (string, string, error) {
	opts := []slack.MsgOption{
		slack.MsgOptionText(msg.Text, false),
	}
	if len(msg.Blocks) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(msg.Blocks...))
	}
	if msg.ThreadTS != "" {
		opts = append(opts, slack.MsgOptionTS(msg.ThreadTS))
	}

	channel, ts, err := c.withRetry(ctx, func() (string, string, error) {
		return c.api.PostMessageContext(ctx, msg.Channel, opts...)
	})
	if err != nil {
		return "", "", fmt.Errorf("status: post message: %w", err)
	}
	return channel, ts, nil
}

// Update rewrites a previously-posted message in place. A "message not
// changed" API error is swallowed: the renderer diffs before calling
// Update, but a race against another process's identical render is
// harmless, not a failure.
func (c *SlackClient) Update(ctx context.Context, msg Message) error {
	if msg.MessageTS == "" {
		return fmt.Errorf("status: update requires a message timestamp")
	}

	opts := []slack.MsgOption{
		slack.MsgOptionText(msg.Text, false),
	}
	if len(msg.Blocks) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(msg.Blocks...))
	}

	_, _, err := c.withRetry(ctx, func() (string, string, error) {
		_, newTS, _, err := c.api.UpdateMessageContext(ctx, msg.Channel, msg.MessageTS, opts...)
		return "", newTS, err
	})
	if err != nil && !isMessageNotChanged(err) {
		return fmt.Errorf("status: update message: %w", err)
	}
	return nil
}

// withRetry retries once past a rate_limited response, honoring the
// Retry-After delay Slack's SDK surfaces as a *slack.RateLimitedError.
func (c *SlackClient) withRetry(ctx context.Context, op func() (string, string, error)) (string, string, error) {
	channel, ts, err := op()
	var rlErr *slack.RateLimitedError
	if errors.As(err, &rlErr) {
		select {
		case <-time.After(rlErr.RetryAfter + c.rateLimitPad):
		case <-ctx.Done():
			return "", "", ctx.Err()
		}
		return op()
	}
	return channel, ts, err
}

func isMessageNotChanged(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message_not_changed")
}
