// Package notify posts operational alerts to Slack. When no token is
// configured the notifier degrades to a log-only no-op.
package notify

import (
	"fmt"
	"log"

	"github.com/slack-go/slack"
)

// Notifier delivers a short operational message. Implementations must
// be safe for concurrent use.
type Notifier interface {
	Notify(message string) error
}

// NopNotifier logs the message locally and drops it.
type NopNotifier struct{}

func (NopNotifier) Notify(message string) error {
	log.Printf("Notification (no channel configured): %s", message)
	return nil
}

// SlackNotifier posts messages to a fixed channel.
type SlackNotifier struct {
	api     *slack.Client
	channel string
}

// NewSlack returns a Slack-backed notifier, or a NopNotifier when
// token or channel is empty.
func NewSlack(token, channelID string) Notifier {
	if token == "" || channelID == "" {
		return NopNotifier{}
	}
	return &SlackNotifier{api: slack.New(token), channel: channelID}
}

func (n *SlackNotifier) Notify(message string) error {
	_, _, err := n.api.PostMessage(n.channel, slack.MsgOptionText(message, false))
	if err != nil {
		return fmt.Errorf("slack post to %s: %w", n.channel, err)
	}
	return nil
}
