package mail

import (
	"context"
	"fmt"

	"github.com/spf13/viper"
	"gopkg.in/gomail.v2"
)

// SMTPMailer renders the embedded templates locally
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTP() *SMTPMailer {
	d := gomail.NewDialer(
		viper.GetString("mail.smtp.host"),
		viper.GetInt("mail.smtp.port"),
		viper.GetString("mail.smtp.user"),
		viper.GetString("mail.smtp.password"),
	)

	return &SMTPMailer{
		dialer: d,
		from:   viper.GetString("mail.from"),
	}
}

func (m *SMTPMailer) message(to, subject, html string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	return msg
}

// Send dials per message. ctx is only checked before dialing since gomail
// has no context support.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := m.dialer.DialAndSend(m.message(to, subject, html)); err != nil {
		return fmt.Errorf("failed to send email, %w", err)
	}

	return nil
}

func (m *SMTPMailer) SendTemplated(ctx context.Context, to, name string, data map[string]string) error {
	subject, html, err := render(name, data)
	if err != nil {
		return err
	}

	return m.Send(ctx, to, subject, html)
}
