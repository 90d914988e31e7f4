package model

import "time"

// RefreshToken is a persisted refresh credential. Revoked never goes back to false.
type RefreshToken struct {
	ID          string     `gorm:"primaryKey;type:varchar(36)"`
	Token       string     `gorm:"size:500;uniqueIndex;not null"`
	UserID      string     `gorm:"not null;index:idx_refresh_user_revoked,priority:1"`
	IsRevoked   bool       `gorm:"default:false;index:idx_refresh_user_revoked,priority:2"`
	TokenExpiry *time.Time `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
