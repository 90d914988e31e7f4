package model

import "time"

// OTP is the single live login code of an email address. A new issuance
// overwrites the row, verification or expiry removes it.
type OTP struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)"`
	Email      string    `gorm:"size:255;uniqueIndex;not null"`
	CodeHash   string    `gorm:"size:255;not null"`
	ExpiresAt  time.Time `gorm:"not null;index"`
	LastSentAt time.Time `gorm:"not null"`
	Attempts   int       `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (OTP) TableName() string {
	return "otp_codes"
}
