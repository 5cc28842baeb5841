package notify

import (
	"context"
	"fmt"

	slacklib "github.com/slack-go/slack"
)

// SlackAPI abstracts the subset of the Slack client used by SlackMessenger.
// This allows testing without real HTTP calls.
type SlackAPI interface {
	PostMessage(channelID string, options ...slacklib.MsgOption) (string, string, error)
}

// SlackMessenger delivers notifications through the Slack Web API.
type SlackMessenger struct {
	api SlackAPI
}

// Compile-time interface check.
var _ Messenger = (*SlackMessenger)(nil) //nolint:gochecknoglobals // compile-time check

// NewSlackMessenger creates a SlackMessenger with the given API client.
func NewSlackMessenger(api SlackAPI) *SlackMessenger {
	return &SlackMessenger{api: api}
}

// NewSlackMessengerFromToken creates a SlackMessenger backed by a real client.
func NewSlackMessengerFromToken(botToken string) *SlackMessenger {
	return NewSlackMessenger(slacklib.New(botToken))
}

// SendDirect posts a message to a Slack user by their user ID. Slack opens
// the DM channel implicitly when a user ID is used as the channel.
func (m *SlackMessenger) SendDirect(_ context.Context, slackUserID, text string) error {
	_, _, err := m.api.PostMessage(slackUserID, slacklib.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("notify.SlackMessenger.SendDirect: %w", err)
	}

	return nil
}

// SendChannel posts a message to a shared channel.
func (m *SlackMessenger) SendChannel(_ context.Context, channel, text string) error {
	_, _, err := m.api.PostMessage(channel, slacklib.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("notify.SlackMessenger.SendChannel: %w", err)
	}

	return nil
}
