// Package google verifies Google Sign-In ID tokens
package google

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/jwk"
	"go.uber.org/zap"
)

const certsURL = "https://www.googleapis.com/oauth2/v3/certs"

var (
	ErrInvalidToken  = errors.New("invalid google token")
	ErrNotConfigured = errors.New("google sign-in is not configured")

	issuers = []string{"accounts.google.com", "https://accounts.google.com"}
)

// KeySource returns the current Google signing keys
type KeySource func(ctx context.Context) (jwk.Set, error)

type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

type claims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	jwt.RegisteredClaims
}

type Verifier struct {
	clientID string
	keys     KeySource

	// Now is swapped in tests
	Now func() time.Time
}

// NewVerifier keeps Google's keys cached in the background for as long as
// ctx lives
func NewVerifier(ctx context.Context, clientID string) *Verifier {
	ar := jwk.NewAutoRefresh(ctx)
	ar.Configure(certsURL)

	return NewVerifierWithKeys(clientID, func(ctx context.Context) (jwk.Set, error) {
		return ar.Fetch(ctx, certsURL)
	})
}

func NewVerifierWithKeys(clientID string, keys KeySource) *Verifier {
	return &Verifier{
		clientID: clientID,
		keys:     keys,
		Now:      time.Now,
	}
}

// Verify checks the signature, audience, issuer and expiry of an ID token
func (v *Verifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	if v.clientID == "" {
		return nil, ErrNotConfigured
	}

	set, err := v.keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch google public keys, %w", err)
	}

	var c claims

	token, err := jwt.ParseWithClaims(idToken, &c, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)

		key, found := set.LookupKeyID(kid)
		if !found {
			return nil, fmt.Errorf("public key %q not found", kid)
		}

		var pubkey interface{}
		if err := key.Raw(&pubkey); err != nil {
			return nil, fmt.Errorf("failed to parse google public key, %w", err)
		}

		return pubkey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.Now),
	)
	if err != nil || !token.Valid {
		zap.L().Debug("Rejected google token", zap.Error(err))
		return nil, ErrInvalidToken
	}

	if !slices.Contains(issuers, c.Issuer) || c.Email == "" || c.Subject == "" {
		return nil, ErrInvalidToken
	}

	// only addresses Google has verified for the account
	if !c.EmailVerified {
		return nil, ErrInvalidToken
	}

	return &Identity{
		Subject:       c.Subject,
		Email:         c.Email,
		EmailVerified: c.EmailVerified,
		Name:          c.Name,
	}, nil
}
