package otp

import (
	"context"
	"errors"
	"time"

	"bitwise74/pulse-api/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Get(ctx context.Context, email string) (*Record, error) {
	var row model.OTP

	err := s.db.WithContext(ctx).Where("email = ?", email).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return &Record{
		Email:      row.Email,
		CodeHash:   row.CodeHash,
		ExpiresAt:  row.ExpiresAt,
		LastSentAt: row.LastSentAt,
		Attempts:   row.Attempts,
	}, nil
}

func (s *GormStore) Put(ctx context.Context, r *Record) error {
	row := model.OTP{
		ID:         uuid.NewString(),
		Email:      r.Email,
		CodeHash:   r.CodeHash,
		ExpiresAt:  r.ExpiresAt,
		LastSentAt: r.LastSentAt,
		Attempts:   r.Attempts,
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"code_hash", "expires_at", "last_sent_at", "attempts", "updated_at"}),
	}).Create(&row).Error
}

func (s *GormStore) Delete(ctx context.Context, email string) error {
	return s.db.WithContext(ctx).Where("email = ?", email).Delete(&model.OTP{}).Error
}

func (s *GormStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&model.OTP{})
	return res.RowsAffected, res.Error
}
