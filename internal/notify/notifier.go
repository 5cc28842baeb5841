package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/opengrc/attest/internal/domain"
)

// Messenger abstracts the delivery transport. SlackMessenger is the only
// implementation today.
type Messenger interface {
	SendDirect(ctx context.Context, externalID, text string) error
	SendChannel(ctx context.Context, channel, text string) error
}

// Notifier pushes audit workflow events to the people involved. A user
// without a Slack mapping degrades to the shared channel; notification
// failures are logged, never surfaced to the caller's request.
type Notifier struct {
	messenger Messenger
	users     domain.UserRepository
	channel   string // shared fallback channel, may be empty
}

func New(messenger Messenger, users domain.UserRepository, channel string) *Notifier {
	return &Notifier{
		messenger: messenger,
		users:     users,
		channel:   channel,
	}
}

// AuditSubmitted tells the reviewer an audit is waiting for their review.
func (n *Notifier) AuditSubmitted(ctx context.Context, audit *domain.Audit) {
	if n == nil || audit.ReviewerID == nil {
		return
	}

	text := fmt.Sprintf("Audit %q was submitted for review.", audit.Title)
	n.deliver(ctx, *audit.ReviewerID, text)
}

// ReviewDecided tells the auditor the reviewer's verdict.
func (n *Notifier) ReviewDecided(ctx context.Context, audit *domain.Audit, approved bool) {
	if n == nil {
		return
	}

	verdict := "approved"
	if !approved {
		verdict = "rejected and returned for rework"
	}
	text := fmt.Sprintf("Audit %q was %s.", audit.Title, verdict)
	n.deliver(ctx, audit.AuditorID, text)
}

func (n *Notifier) deliver(ctx context.Context, userID uuid.UUID, text string) {
	user, err := n.users.GetByID(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("notify: user lookup failed")
		return
	}

	if user.SlackUserID != "" {
		err := n.messenger.SendDirect(ctx, user.SlackUserID, text)
		if err == nil {
			return
		}
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("notify: direct message failed")
	}

	if n.channel == "" {
		log.Info().Str("user_id", userID.String()).Str("text", text).Msg("notify: no delivery route, dropping")
		return
	}

	if err := n.messenger.SendChannel(ctx, n.channel, text); err != nil {
		log.Warn().Err(err).Str("channel", n.channel).Msg("notify: channel message failed")
	}
}
