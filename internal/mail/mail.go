// Package mail sends transactional email through SES, SMTP or the log
package mail

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"

	"github.com/spf13/viper"
)

const (
	TemplateOTP = "otp-verification"

	otpSubject = "Your OTP Verification Code"
)

var ErrUnknownTemplate = errors.New("unknown mail template")

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// subjects of the embedded templates, keyed by template name
var subjects = map[string]string{
	TemplateOTP: otpSubject,
}

type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
	SendTemplated(ctx context.Context, to, name string, data map[string]string) error
}

// TemplateManager is implemented by providers that keep templates remotely
type TemplateManager interface {
	PutTemplate(ctx context.Context, name, subject, html string) error
	DeleteTemplate(ctx context.Context, name string) error
}

// New returns the mailer selected by mail.provider
func New() (Mailer, error) {
	switch p := viper.GetString("mail.provider"); p {
	case "ses":
		return NewSES()
	case "smtp":
		return NewSMTP(), nil
	case "log":
		return NewLog(), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", p)
	}
}

// SendOTP mails a login code to a user
func SendOTP(ctx context.Context, m Mailer, to, name, code string) error {
	return m.SendTemplated(ctx, to, TemplateOTP, map[string]string{
		"userName": name,
		"otp":      code,
	})
}

// render executes one of the embedded templates
func render(name string, data map[string]string) (subject, html string, err error) {
	t := templates.Lookup(name + ".html")
	if t == nil {
		return "", "", ErrUnknownTemplate
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to render %s template, %w", name, err)
	}

	return subjects[name], buf.String(), nil
}
