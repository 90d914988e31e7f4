// Package otp issues and verifies the one time login codes
package otp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"bitwise74/pulse-api/pkg/security"
	"bitwise74/pulse-api/pkg/util"
)

const (
	CodeLength = 6
	TTL        = 5 * time.Minute
	Cooldown   = 60 * time.Second

	// MaxAttempts wrong codes lock a record until it expires or is replaced
	MaxAttempts = 5
)

var ErrNotFound = errors.New("otp record not found")

// Record is the live code of one email address
type Record struct {
	Email      string    `json:"email"`
	CodeHash   string    `json:"codeHash"`
	ExpiresAt  time.Time `json:"expiresAt"`
	LastSentAt time.Time `json:"lastSentAt"`
	Attempts   int       `json:"attempts"`
}

// Store keeps at most one record per email. Put overwrites.
// Get returns ErrNotFound when there is no record.
type Store interface {
	Get(ctx context.Context, email string) (*Record, error)
	Put(ctx context.Context, r *Record) error
	Delete(ctx context.Context, email string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type Service struct {
	store  Store
	hasher *security.ArgonHash

	// Now is swapped in tests
	Now func() time.Time
}

func NewService(store Store) *Service {
	return &Service{
		store:  store,
		hasher: security.New(),
		Now:    time.Now,
	}
}

// Generate returns a uniformly random 6 digit code
func (s *Service) Generate() (string, error) {
	code, err := util.RandDigits(CodeLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp, %w", err)
	}

	return code, nil
}

func (s *Service) CanResend(ctx context.Context, email string) (bool, error) {
	wait, err := s.TimeUntilResend(ctx, email)
	if err != nil {
		return false, err
	}

	return wait == 0, nil
}

// TimeUntilResend returns the whole seconds left on the cooldown, rounded up
func (s *Service) TimeUntilResend(ctx context.Context, email string) (int, error) {
	r, err := s.store.Get(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}

		return 0, fmt.Errorf("failed to look up otp, %w", err)
	}

	remaining := r.LastSentAt.Add(Cooldown).Sub(s.Now())
	if remaining <= 0 {
		return 0, nil
	}

	return int(math.Ceil(remaining.Seconds())), nil
}

// Save replaces any previous code of email and restarts both the
// expiry and the resend cooldown
func (s *Service) Save(ctx context.Context, email, code string) error {
	hash, err := s.hasher.Hash(code)
	if err != nil {
		return fmt.Errorf("failed to hash otp, %w", err)
	}

	now := s.Now()

	err = s.store.Put(ctx, &Record{
		Email:      email,
		CodeHash:   hash,
		ExpiresAt:  now.Add(TTL),
		LastSentAt: now,
	})
	if err != nil {
		return fmt.Errorf("failed to save otp, %w", err)
	}

	return nil
}

// Verify consumes the code on success. Expired records are removed
// before the code is even compared. Wrong codes keep the record but count
// against it, a locked record rejects even the right code.
func (s *Service) Verify(ctx context.Context, email, code string) (bool, error) {
	r, err := s.store.Get(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}

		return false, fmt.Errorf("failed to look up otp, %w", err)
	}

	if s.Now().After(r.ExpiresAt) {
		if err := s.store.Delete(ctx, email); err != nil {
			return false, fmt.Errorf("failed to delete expired otp, %w", err)
		}

		return false, nil
	}

	if r.Attempts >= MaxAttempts {
		return false, nil
	}

	ok, err := s.hasher.Verify(code, r.CodeHash)
	if err != nil {
		return false, fmt.Errorf("failed to compare otp, %w", err)
	}

	if !ok {
		r.Attempts++
		if err := s.store.Put(ctx, r); err != nil {
			return false, fmt.Errorf("failed to record otp attempt, %w", err)
		}

		return false, nil
	}

	if err := s.store.Delete(ctx, email); err != nil {
		return false, fmt.Errorf("failed to delete used otp, %w", err)
	}

	return true, nil
}

// SweepExpired removes every record that expired before now
func (s *Service) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.store.DeleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired otps, %w", err)
	}

	return n, nil
}

// backstop is how long a store may keep a record past its own expiry
// before evicting it on its own
func backstop(r *Record) time.Duration {
	return r.ExpiresAt.Sub(r.LastSentAt) + Cooldown
}
