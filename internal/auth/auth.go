// Package auth ties the OTP, token and identity flows into login sessions
package auth

import (
	"context"
	"errors"
	"fmt"

	"bitwise74/pulse-api/internal/google"
	"bitwise74/pulse-api/internal/mail"
	"bitwise74/pulse-api/internal/model"
	"bitwise74/pulse-api/internal/token"
	"bitwise74/pulse-api/internal/user"
	"bitwise74/pulse-api/pkg/apperr"

	"go.uber.org/zap"
)

type Users interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
}

type OTPs interface {
	Generate() (string, error)
	TimeUntilResend(ctx context.Context, email string) (int, error)
	Save(ctx context.Context, email, code string) error
	Verify(ctx context.Context, email, code string) (bool, error)
}

type Tokens interface {
	Issue(ctx context.Context, u *model.User) (*token.Pair, error)
	ParseRefresh(tokenStr string) (*token.Claims, error)
	Consume(ctx context.Context, tokenStr string) error
	Revoke(ctx context.Context, tokenStr string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*google.Identity, error)
}

type Service struct {
	users  Users
	otps   OTPs
	tokens Tokens
	mailer mail.Mailer
	google IdentityVerifier

	// ExposeOTP adds the code to responses. Never enabled in production.
	ExposeOTP bool
}

func NewService(users Users, otps OTPs, tokens Tokens, mailer mail.Mailer, g IdentityVerifier) *Service {
	return &Service{
		users:  users,
		otps:   otps,
		tokens: tokens,
		mailer: mailer,
		google: g,
	}
}

type OTPResponse struct {
	Message  string `json:"message"`
	WaitTime int    `json:"waitTime,omitempty"`
	OTP      string `json:"otp,omitempty"`
}

type Session struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         model.Public `json:"user"`
}

func (s *Service) lookup(ctx context.Context, email string) (*model.User, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, apperr.NotFound("User not found")
		}

		return nil, err
	}

	return u, nil
}

// issueOTP enforces the resend cooldown, then stores and mails a new code.
// Mail failures are logged and the code stays valid.
func (s *Service) issueOTP(ctx context.Context, u *model.User, message string) (*OTPResponse, error) {
	wait, err := s.otps.TimeUntilResend(ctx, u.Email)
	if err != nil {
		return nil, err
	}

	if wait > 0 {
		return nil, apperr.RateLimited(wait)
	}

	code, err := s.otps.Generate()
	if err != nil {
		return nil, err
	}

	if err := s.otps.Save(ctx, u.Email, code); err != nil {
		return nil, err
	}

	if err := mail.SendOTP(ctx, s.mailer, u.Email, u.Name, code); err != nil {
		zap.L().Warn("Failed to send OTP email", zap.Error(err), zap.String("userID", u.ID))
	}

	res := &OTPResponse{Message: message}
	if s.ExposeOTP {
		res.OTP = code
	}

	return res, nil
}

// LoginWithEmail starts an OTP login for an approved user
func (s *Service) LoginWithEmail(ctx context.Context, email string) (*OTPResponse, error) {
	u, err := s.lookup(ctx, email)
	if err != nil {
		return nil, err
	}

	if u.ApplicationStatus != model.StatusApproved {
		return nil, apperr.Unauthorized("Account not approved yet")
	}

	return s.issueOTP(ctx, u, "OTP sent to your email")
}

// ResendOTP sends a fresh code once the cooldown passed. It does not check
// the approval status, VerifyOTP does not either.
func (s *Service) ResendOTP(ctx context.Context, email string) (*OTPResponse, error) {
	u, err := s.lookup(ctx, email)
	if err != nil {
		return nil, err
	}

	return s.issueOTP(ctx, u, "OTP resent successfully")
}

func (s *Service) VerifyOTP(ctx context.Context, email, code string) (*Session, error) {
	email = user.NormalizeEmail(email)

	ok, err := s.otps.Verify(ctx, email, code)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, apperr.Unauthorized("Invalid or expired OTP")
	}

	u, err := s.lookup(ctx, email)
	if err != nil {
		return nil, err
	}

	return s.LoginWithVerifiedIdentity(ctx, u)
}

// LoginWithVerifiedIdentity issues a session for a user whose identity was
// already proven
func (s *Service) LoginWithVerifiedIdentity(ctx context.Context, u *model.User) (*Session, error) {
	pair, err := s.tokens.Issue(ctx, u)
	if err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         u.Public(),
	}, nil
}

// LoginWithGoogle accepts a Google ID token of an approved user
func (s *Service) LoginWithGoogle(ctx context.Context, idToken string) (*Session, error) {
	id, err := s.google.Verify(ctx, idToken)
	if err != nil {
		switch {
		case errors.Is(err, google.ErrInvalidToken):
			return nil, apperr.Unauthorized("Invalid or expired Google token")
		case errors.Is(err, google.ErrNotConfigured):
			return nil, apperr.BadRequest("Google sign-in is not enabled")
		}

		return nil, err
	}

	if !id.EmailVerified {
		return nil, apperr.Unauthorized("Invalid or expired Google token")
	}

	u, err := s.users.FindByEmail(ctx, id.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, apperr.Unauthorized("Email not found in applicant database")
		}

		return nil, err
	}

	if u.ApplicationStatus != model.StatusApproved {
		return nil, apperr.Unauthorized("Account not approved yet")
	}

	return s.LoginWithVerifiedIdentity(ctx, u)
}

// Refresh exchanges a refresh token for a new pair. Each refresh token
// works once.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid refresh token")
	}

	if err := s.tokens.Consume(ctx, refreshToken); err != nil {
		if errors.Is(err, token.ErrRevoked) || errors.Is(err, token.ErrUnknown) {
			return nil, apperr.Unauthorized("Invalid refresh token")
		}

		return nil, err
	}

	u, err := s.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, apperr.Unauthorized("Invalid refresh token")
		}

		return nil, err
	}

	if u.ApplicationStatus == model.StatusRejected {
		return nil, apperr.Unauthorized("Account not approved yet")
	}

	return s.LoginWithVerifiedIdentity(ctx, u)
}

// Logout revokes one refresh token of userID
func (s *Service) Logout(ctx context.Context, userID, refreshToken string) error {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil || claims.Subject != userID {
		return apperr.BadRequest("Invalid refresh token")
	}

	if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
		return fmt.Errorf("failed to logout, %w", err)
	}

	return nil
}

func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	return s.tokens.RevokeAllForUser(ctx, userID)
}
