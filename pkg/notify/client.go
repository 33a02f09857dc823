package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goslack "github.com/slack-go/slack"
)

// client is a thin wrapper around the slack-go SDK, adapted from the
// teacher's pkg/slack.Client.
type client struct {
	api       *goslack.Client
	channelID string
	logger    *slog.Logger
}

func newClient(token, channelID string) *client {
	return &client{
		api:       goslack.New(token),
		channelID: channelID,
		logger:    slog.Default().With("component", "notify-client"),
	}
}

// postMessage sends a message to the configured channel.
func (c *client) postMessage(ctx context.Context, blocks []goslack.Block, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, _, err := c.api.PostMessageContext(ctx, c.channelID, goslack.MsgOptionBlocks(blocks...))
	if err != nil {
		return fmt.Errorf("chat.postMessage failed: %w", err)
	}
	return nil
}
