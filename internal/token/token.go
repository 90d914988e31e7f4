// Package token issues the JWT pairs and keeps track of refresh tokens
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitwise74/pulse-api/internal/model"
	"bitwise74/pulse-api/pkg/util"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrInvalid = errors.New("invalid token")
	ErrRevoked = errors.New("token revoked")
	ErrUnknown = errors.New("token not found")
)

type Claims struct {
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
	Type  string     `json:"typ"`
	jwt.RegisteredClaims
}

type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type Service struct {
	db         *gorm.DB
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration

	// Now is swapped in tests
	Now func() time.Time
}

func NewService(db *gorm.DB, secret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		db:         db,
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		Now:        time.Now,
	}
}

// Issue signs a new access and refresh token for u and persists the
// refresh token
func (s *Service) Issue(ctx context.Context, u *model.User) (*Pair, error) {
	now := s.Now()

	access, err := s.sign(&Claims{
		Email: u.Email,
		Role:  u.Role,
		Type:  TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	})
	if err != nil {
		return nil, err
	}

	jti, err := util.GenerateToken(16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token id, %w", err)
	}

	exp := now.Add(s.refreshTTL)

	refresh, err := s.sign(&Claims{
		Email: u.Email,
		Role:  u.Role,
		Type:  TypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	if err != nil {
		return nil, err
	}

	// Stored expiry matches the one inside the token, which is truncated to seconds
	expiry := jwt.NewNumericDate(exp).Time
	row := model.RefreshToken{
		ID:          uuid.NewString(),
		Token:       refresh,
		UserID:      u.ID,
		TokenExpiry: &expiry,
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to save refresh token, %w", err)
	}

	return &Pair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) sign(c *Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token, %w", c.Type, err)
	}

	return signed, nil
}

func (s *Service) parse(tokenStr, typ string) (*Claims, error) {
	var claims Claims

	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}

		return s.secret, nil
	}, jwt.WithTimeFunc(s.Now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, ErrInvalid
	}

	if claims.Type != typ || claims.Subject == "" {
		return nil, ErrInvalid
	}

	return &claims, nil
}

// ParseAccess validates the signature, algorithm and expiry of an access token
func (s *Service) ParseAccess(tokenStr string) (*Claims, error) {
	return s.parse(tokenStr, TypeAccess)
}

func (s *Service) ParseRefresh(tokenStr string) (*Claims, error) {
	return s.parse(tokenStr, TypeRefresh)
}

// IsRevoked reports whether a stored token was revoked. Tokens that were
// never stored, like access tokens, count as not revoked.
func (s *Service) IsRevoked(ctx context.Context, tokenStr string) (bool, error) {
	var row model.RefreshToken

	err := s.db.WithContext(ctx).Select("is_revoked").Where("token = ?", tokenStr).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}

		return false, fmt.Errorf("failed to check token revocation, %w", err)
	}

	return row.IsRevoked, nil
}

// Revoke marks a stored token as revoked. Unknown or already revoked
// tokens are left alone.
func (s *Service) Revoke(ctx context.Context, tokenStr string) error {
	err := s.db.WithContext(ctx).
		Model(&model.RefreshToken{}).
		Where("token = ? AND is_revoked = ?", tokenStr, false).
		Update("is_revoked", true).
		Error
	if err != nil {
		return fmt.Errorf("failed to revoke token, %w", err)
	}

	return nil
}

func (s *Service) RevokeAllForUser(ctx context.Context, userID string) error {
	err := s.db.WithContext(ctx).
		Model(&model.RefreshToken{}).
		Where("user_id = ? AND is_revoked = ?", userID, false).
		Update("is_revoked", true).
		Error
	if err != nil {
		return fmt.Errorf("failed to revoke user tokens, %w", err)
	}

	return nil
}

// Consume revokes a live refresh token so it can be exchanged exactly once.
// Returns ErrUnknown for tokens that were never stored and ErrRevoked
// when someone already used it.
func (s *Service) Consume(ctx context.Context, tokenStr string) error {
	res := s.db.WithContext(ctx).
		Model(&model.RefreshToken{}).
		Where("token = ? AND is_revoked = ?", tokenStr, false).
		Update("is_revoked", true)
	if res.Error != nil {
		return fmt.Errorf("failed to consume refresh token, %w", res.Error)
	}

	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&model.RefreshToken{}).Where("token = ?", tokenStr).Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to look up refresh token, %w", err)
	}

	if count == 0 {
		return ErrUnknown
	}

	return ErrRevoked
}

// SweepExpired deletes tokens whose expiry is set and already in the past
func (s *Service) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("token_expiry IS NOT NULL AND token_expiry < ?", now).
		Delete(&model.RefreshToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete expired tokens, %w", res.Error)
	}

	return res.RowsAffected, nil
}
