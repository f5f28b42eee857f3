package notification

import (
	"fmt"
	"net/smtp"

	"github.com/sirupsen/logrus"

	"github.com/raykavin/backnrun/core"
)

// Mail implements core.Notifier by emailing a fixed operator address.
type Mail struct {
	auth     smtp.Auth
	settings core.MailSettings
	log      logrus.FieldLogger
}

// NewMail creates a new Mail notifier from settings.
func NewMail(settings core.MailSettings, log logrus.FieldLogger) Mail {
	return Mail{
		settings: settings,
		log:      log,
		auth:     smtp.PlainAuth("", settings.From, settings.Password, settings.SMTPServerAddress),
	}
}

// Notify implements core.Notifier.
func (m Mail) Notify(event core.AlertEvent) {
	serverAddress := fmt.Sprintf("%s:%d", m.settings.SMTPServerAddress, m.settings.SMTPServerPort)

	subject := event.Title
	body := event.Detail
	if event.Ticket != 0 {
		body += fmt.Sprintf("\nticket: %d", event.Ticket)
	}
	if event.Regime != "" {
		body += fmt.Sprintf("\nregime: %s", event.Regime)
	}

	message := fmt.Sprintf(
		"To: \"Operator\" <%s>\r\nFrom: \"BackNRun\" <%s>\r\nSubject: %s\r\n\r\n%s",
		m.settings.To, m.settings.From, subject, body,
	)

	err := smtp.SendMail(serverAddress, m.auth, m.settings.From, []string{m.settings.To}, []byte(message))
	if err != nil {
		m.log.WithError(err).Error("notification/mail: failed to send email")
	}
}
