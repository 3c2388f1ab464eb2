package service

import (
	"fmt"

	mail "github.com/go-mail/mail/v2"
)

// Mailer sends transactional mail over SMTP. A nil *Mailer is valid and
// reports itself unconfigured, so callers can degrade gracefully.
type Mailer struct {
	host string
	port int
	user string
	pass string
	from string
}

func NewMailer(host string, port int, user, pass, from string) *Mailer {
	if host == "" {
		return nil
	}
	return &Mailer{host: host, port: port, user: user, pass: pass, from: from}
}

func (m *Mailer) Configured() bool { return m != nil }

// SendPasswordReset mails the plaintext reset token to the user. The token
// is only ever transmitted here; the database holds its digest.
func (m *Mailer) SendPasswordReset(to, name, resetURL string) error {
	if m == nil {
		return fmt.Errorf("mailer not configured")
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Your password reset token (valid for 10 minutes)")
	msg.SetBody("text/plain", fmt.Sprintf(
		"Hi %s,\n\nForgot your password? Submit a PATCH request with your new password and passwordConfirm to:\n\n%s\n\nIf you didn't forget your password, please ignore this email.\n",
		name, resetURL))

	d := mail.NewDialer(m.host, m.port, m.user, m.pass)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	return d.DialAndSend(msg)
}
