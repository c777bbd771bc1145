package service

import (
	"fmt"

	mail "github.com/go-mail/mail/v2"
	"github.com/rs/zerolog"
)

// Mailer sends the auth-flow emails over SMTP. All sends are
// fire-and-forget: failures are logged, never surfaced to the HTTP caller.
type Mailer struct {
	host string
	port int
	user string
	pass string
	from string
	log  zerolog.Logger
}

func NewMailer(host string, port int, user, pass, from string, log zerolog.Logger) *Mailer {
	return &Mailer{host: host, port: port, user: user, pass: pass, from: from, log: log}
}

// SendVerification mails the signup OTP.
func (m *Mailer) SendVerification(name, email, otp string) {
	body := fmt.Sprintf(
		"Hi %s, welcome to Pipify! Use the code below to verify your email.\n\n%s\n\nThe code expires in one hour.",
		name, otp)
	m.send(email, "Welcome to Pipify", body)
}

// SendResetLink mails the password reset link.
func (m *Mailer) SendResetLink(email, link string) {
	body := "We received a request to reset your password. Use the link below to create a new one.\n\n" + link
	m.send(email, "Reset Password - Pipify", body)
}

// SendResetSuccess confirms a completed password reset.
func (m *Mailer) SendResetSuccess(name, email, signInURL string) {
	body := fmt.Sprintf(
		"Dear %s, your password has been reset successfully. You can now sign in with your new password.\n\n%s",
		name, signInURL)
	m.send(email, "Alert Reset Password - Pipify", body)
}

func (m *Mailer) send(to, subject, body string) {
	go func() {
		msg := mail.NewMessage()
		msg.SetHeader("From", m.from)
		msg.SetHeader("To", to)
		msg.SetHeader("Subject", subject)
		msg.SetBody("text/plain", body)

		d := mail.NewDialer(m.host, m.port, m.user, m.pass)
		if err := d.DialAndSend(msg); err != nil {
			m.log.Error().Err(err).Str("to", to).Str("subject", subject).Msg("mail send failed")
		}
	}()
}
