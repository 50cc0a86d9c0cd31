package notification

import (
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Mailer sends notification emails over SMTP.
type Mailer struct {
	addr string
	auth smtp.Auth
	from string
	log  *logrus.Logger
}

// NewMailer creates an SMTP mailer. auth may be nil for servers that do
// not require it.
func NewMailer(host string, port int, username, password, from string, log *logrus.Logger) *Mailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &Mailer{
		addr: fmt.Sprintf("%s:%d", host, port),
		auth: auth,
		from: from,
		log:  log,
	}
}

// Send delivers a plain-text email to a single recipient.
func (m *Mailer) Send(to, subject, body string) error {
	e := email.NewEmail()
	e.From = m.from
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	if err := e.Send(m.addr, m.auth); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	m.log.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
	}).Debug("email sent")
	return nil
}
