// Package notification provides core.Notifier implementations that push
// operator-facing alerts (ExitBlocked positions, drawdown-gate trips,
// emergency suspensions) to a human channel.
package notification

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	tb "gopkg.in/tucnak/telebot.v2"

	"github.com/raykavin/backnrun/core"
)

const pollingTimeout = 10 * time.Second

// Telegram implements core.Notifier over a long-polling telegram bot,
// restricted to the configured authorized user IDs.
type Telegram struct {
	settings core.TelegramSettings
	client   *tb.Bot
	log      logrus.FieldLogger
}

// NewTelegram creates and starts a long-polling Telegram bot that only
// pushes alerts; it registers no buy/sell commands.
func NewTelegram(settings core.TelegramSettings, log logrus.FieldLogger) (core.Notifier, error) {
	poller := &tb.LongPoller{Timeout: pollingTimeout}
	middleware := newAuthMiddleware(poller, settings, log)

	client, err := tb.NewBot(tb.Settings{
		ParseMode: tb.ModeMarkdown,
		Token:     settings.Token,
		Poller:    middleware,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	t := &Telegram{settings: settings, client: client, log: log}
	client.Handle("/status", t.statusHandle)
	go client.Start()

	return t, nil
}

// newAuthMiddleware rejects updates from users not in the configured
// authorized list.
func newAuthMiddleware(poller *tb.LongPoller, settings core.TelegramSettings, log logrus.FieldLogger) *tb.MiddlewarePoller {
	return tb.NewMiddlewarePoller(poller, func(u *tb.Update) bool {
		if u.Message == nil || u.Message.Sender == nil {
			log.Error("telegram: update with nil message or sender")
			return false
		}
		if slices.Contains(settings.Users, int(u.Message.Sender.ID)) {
			return true
		}
		log.WithField("sender_id", u.Message.Sender.ID).Error("telegram: unauthorized user")
		return false
	})
}

func (t *Telegram) statusHandle(m *tb.Message) {
	_, err := t.client.Send(m.Sender, "alerting")
	if err != nil {
		t.log.WithError(err).Error("telegram: failed to reply to /status")
	}
}

// Notify implements core.Notifier.
func (t *Telegram) Notify(event core.AlertEvent) {
	text := formatAlert(event)
	for _, userID := range t.settings.Users {
		if _, err := t.client.Send(&tb.User{ID: int64(userID)}, text); err != nil {
			t.log.WithError(err).Error("telegram: failed to send alert")
		}
	}
}

func formatAlert(event core.AlertEvent) string {
	var sb strings.Builder
	switch event.Severity {
	case core.AlertCritical:
		sb.WriteString("🛑 ")
	case core.AlertWarning:
		sb.WriteString("⚠️ ")
	default:
		sb.WriteString("ℹ️ ")
	}
	sb.WriteString(event.Title)
	sb.WriteString("\n-----\n")
	sb.WriteString(event.Detail)
	if event.Ticket != 0 {
		fmt.Fprintf(&sb, "\nticket: `%d`", event.Ticket)
	}
	if event.Regime != "" {
		fmt.Fprintf(&sb, "\nregime: `%s`", event.Regime)
	}
	return sb.String()
}
