// Package user is the directory of applicants and users
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bitwise74/pulse-api/internal/model"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrEmailExists   = errors.New("email already exists")
	ErrInvalidStatus = errors.New("invalid application status")
)

// Revoker ends the sessions of a user
type Revoker interface {
	RevokeAllForUser(ctx context.Context, userID string) error
}

type Service struct {
	db     *gorm.DB
	tokens Revoker
}

func NewService(db *gorm.DB, tokens Revoker) *Service {
	return &Service{db: db, tokens: tokens}
}

// NormalizeEmail is the canonical form emails are stored and looked up in
func NormalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

func (s *Service) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.find(ctx, "email = ?", NormalizeEmail(email))
}

func (s *Service) FindByID(ctx context.Context, id string) (*model.User, error) {
	return s.find(ctx, "id = ?", id)
}

func (s *Service) find(ctx context.Context, query string, arg string) (*model.User, error) {
	var u model.User

	err := s.db.WithContext(ctx).Where(query, arg).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to look up user, %w", err)
	}

	return &u, nil
}

func (s *Service) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64

	err := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("email = ?", NormalizeEmail(email)).
		Count(&count).
		Error
	if err != nil {
		return false, fmt.Errorf("failed to check email, %w", err)
	}

	return count > 0, nil
}

// Create stores a new pending applicant from an application form
func (s *Service) Create(ctx context.Context, a model.Application) (*model.User, error) {
	a.Email = NormalizeEmail(a.Email)

	exists, err := s.ExistsByEmail(ctx, a.Email)
	if err != nil {
		return nil, err
	}

	if exists {
		return nil, ErrEmailExists
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user ID, %w", err)
	}

	u := model.User{
		ID:                id,
		Application:       a,
		ApplicationStatus: model.StatusPending,
		Role:              model.RoleApplicant,
	}

	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		return nil, fmt.Errorf("failed to create user, %w", err)
	}

	return &u, nil
}

// SetApplicationStatus moves a user to status. Approval promotes applicants
// to users, rejection ends every session the user still has.
func (s *Service) SetApplicationStatus(ctx context.Context, id string, status model.ApplicationStatus) (*model.User, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	u, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{"application_status": status}
	if status == model.StatusApproved && u.Role == model.RoleApplicant {
		updates["role"] = model.RoleUser
	}

	if err := s.db.WithContext(ctx).Model(u).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update application status, %w", err)
	}

	if status == model.StatusRejected && s.tokens != nil {
		if err := s.tokens.RevokeAllForUser(ctx, u.ID); err != nil {
			return nil, err
		}
	}

	return s.FindByID(ctx, id)
}
