package internal

import (
	"bitwise74/pulse-api/aws"
	"bitwise74/pulse-api/internal/application"
	"bitwise74/pulse-api/internal/auth"
	"bitwise74/pulse-api/internal/mail"
	"bitwise74/pulse-api/internal/otp"
	"bitwise74/pulse-api/internal/token"
	"bitwise74/pulse-api/internal/user"

	"gorm.io/gorm"
)

type Deps struct {
	DB  *gorm.DB
	S3  *aws.S3Client
	OTP *otp.Service

	Mailer mail.Mailer
	// Templates is nil unless the mail provider stores templates remotely
	Templates mail.TemplateManager

	Auth         *auth.Service
	Users        *user.Service
	Tokens       *token.Service
	Applications *application.Service
}
