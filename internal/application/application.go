// Package application accepts application forms into object storage and
// turns them into pending applicants
package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"bitwise74/pulse-api/internal/model"
	"bitwise74/pulse-api/internal/user"
	"bitwise74/pulse-api/pkg/apperr"
	"bitwise74/pulse-api/pkg/validators"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

const prefix = "applications/"

var (
	ErrAlreadyProcessed = errors.New("already processed")
	ErrEmailExists      = errors.New("email already exists")
)

type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}

type Users interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, a model.Application) (*model.User, error)
}

type Service struct {
	store ObjectStore
	users Users

	// Now is swapped in tests
	Now func() time.Time
}

func NewService(store ObjectStore, users Users) *Service {
	return &Service{
		store: store,
		users: users,
		Now:   time.Now,
	}
}

type SubmitResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Key     string `json:"s3Key,omitempty"`
}

type ProcessResult struct {
	Processed int      `json:"processed"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors"`
}

func dayPrefix(t time.Time) string {
	return prefix + t.UTC().Format("2006-01-02") + "/"
}

// Submit stores a validated form for the next processing run and returns
// its object key
func (s *Service) Submit(ctx context.Context, a model.Application) (*SubmitResult, error) {
	a.Email = user.NormalizeEmail(a.Email)

	if err := validators.Application(&a); err != nil {
		return nil, apperr.BadRequest(err.Error())
	}

	exists, err := s.users.ExistsByEmail(ctx, a.Email)
	if err != nil {
		return nil, err
	}

	if exists {
		return nil, apperr.BadRequest("An application with this email already exists")
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate application ID, %w", err)
	}

	now := s.Now()
	key := fmt.Sprintf("%sapplicant-%d-%s.json", dayPrefix(now), now.UnixMilli(), id)

	raw, err := json.Marshal(model.Submission{
		Application: a,
		SubmittedAt: now.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode application, %w", err)
	}

	if err := s.store.Put(ctx, key, bytes.NewReader(raw), int64(len(raw)), "application/json"); err != nil {
		return nil, err
	}

	zap.L().Info("Application submitted", zap.String("key", key))

	return &SubmitResult{
		Success: true,
		Message: "Application submitted successfully. It will be reviewed and processed.",
		Key:     key,
	}, nil
}

// ProcessApplicant creates a pending user out of one stored form. The
// object is removed once the email is known to the directory, whether the
// user was created now or already existed.
func (s *Service) ProcessApplicant(ctx context.Context, key string) (*model.User, error) {
	raw, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var sub model.Submission
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("failed to decode %s, %w", key, err)
	}

	if sub.Processed {
		return nil, ErrAlreadyProcessed
	}

	exists, err := s.users.ExistsByEmail(ctx, sub.Email)
	if err != nil {
		return nil, err
	}

	if exists {
		zap.L().Warn("Applicant email already exists, removing submission", zap.String("key", key))

		if err := s.store.Delete(ctx, key); err != nil {
			return nil, err
		}

		return nil, ErrEmailExists
	}

	u, err := s.users.Create(ctx, sub.Application)
	if err != nil {
		return nil, err
	}

	if err := s.store.Delete(ctx, key); err != nil {
		return nil, err
	}

	zap.L().Info("Processed applicant", zap.String("key", key), zap.String("userID", u.ID))
	return u, nil
}

// ProcessDaily handles every form submitted today (UTC). One broken form
// doesn't stop the rest.
func (s *Service) ProcessDaily(ctx context.Context) (*ProcessResult, error) {
	keys, err := s.store.List(ctx, dayPrefix(s.Now()))
	if err != nil {
		return nil, err
	}

	res := &ProcessResult{Errors: []string{}}

	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}

		if err := ctx.Err(); err != nil {
			return res, err
		}

		if _, err := s.ProcessApplicant(ctx, key); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", key, err))
			continue
		}

		res.Processed++
	}

	return res, nil
}
