package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/aws/aws-sdk-go/service/ses/sesiface"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const charset = "UTF-8"

type SESMailer struct {
	svc  sesiface.SESAPI
	from string
}

func NewSES() (*SESMailer, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(viper.GetString("aws.ses.region")),
		Credentials: credentials.NewStaticCredentials(
			viper.GetString("aws.access_key_id"),
			viper.GetString("aws.secret_access_key"),
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ses session, %w", err)
	}

	return &SESMailer{
		svc:  ses.New(sess),
		from: viper.GetString("mail.from"),
	}, nil
}

func (m *SESMailer) Send(ctx context.Context, to, subject, html string) error {
	out, err := m.svc.SendEmailWithContext(ctx, &ses.SendEmailInput{
		Source: aws.String(m.from),
		Destination: &ses.Destination{
			ToAddresses: []*string{aws.String(to)},
		},
		Message: &ses.Message{
			Subject: &ses.Content{Charset: aws.String(charset), Data: aws.String(subject)},
			Body: &ses.Body{
				Html: &ses.Content{Charset: aws.String(charset), Data: aws.String(html)},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send email, %w", err)
	}

	zap.L().Debug("Email sent", zap.String("messageID", aws.StringValue(out.MessageId)))
	return nil
}

// SendTemplated uses a template stored in SES. When SES doesn't know the
// template, an embedded one with the same name is rendered and sent instead.
func (m *SESMailer) SendTemplated(ctx context.Context, to, name string, data map[string]string) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode template data, %w", err)
	}

	out, err := m.svc.SendTemplatedEmailWithContext(ctx, &ses.SendTemplatedEmailInput{
		Source: aws.String(m.from),
		Destination: &ses.Destination{
			ToAddresses: []*string{aws.String(to)},
		},
		Template:     aws.String(name),
		TemplateData: aws.String(string(raw)),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == ses.ErrCodeTemplateDoesNotExistException {
			subject, html, rerr := render(name, data)
			if rerr != nil {
				return rerr
			}

			zap.L().Debug("SES template missing, sending embedded copy", zap.String("template", name))
			return m.Send(ctx, to, subject, html)
		}

		return fmt.Errorf("failed to send templated email, %w", err)
	}

	zap.L().Debug("Templated email sent", zap.String("template", name), zap.String("messageID", aws.StringValue(out.MessageId)))
	return nil
}

// PutTemplate creates the template or updates it when it already exists
func (m *SESMailer) PutTemplate(ctx context.Context, name, subject, html string) error {
	tmpl := &ses.Template{
		TemplateName: aws.String(name),
		SubjectPart:  aws.String(subject),
		HtmlPart:     aws.String(html),
	}

	_, err := m.svc.CreateTemplateWithContext(ctx, &ses.CreateTemplateInput{Template: tmpl})
	if err == nil {
		return nil
	}

	var aerr awserr.Error
	if !errors.As(err, &aerr) || aerr.Code() != ses.ErrCodeAlreadyExistsException {
		return fmt.Errorf("failed to create template, %w", err)
	}

	if _, err := m.svc.UpdateTemplateWithContext(ctx, &ses.UpdateTemplateInput{Template: tmpl}); err != nil {
		return fmt.Errorf("failed to update template, %w", err)
	}

	return nil
}

func (m *SESMailer) DeleteTemplate(ctx context.Context, name string) error {
	_, err := m.svc.DeleteTemplateWithContext(ctx, &ses.DeleteTemplateInput{
		TemplateName: aws.String(name),
	})
	if err != nil {
		return fmt.Errorf("failed to delete template, %w", err)
	}

	return nil
}
