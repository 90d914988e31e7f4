// Package model defines database models
package model

import "time"

type ApplicationStatus string

const (
	StatusPending  ApplicationStatus = "pending"
	StatusApproved ApplicationStatus = "approved"
	StatusRejected ApplicationStatus = "rejected"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}

	return false
}

type Role string

const (
	RoleApplicant    Role = "applicant"
	RoleUser         Role = "user"
	RoleInstructor   Role = "instructor"
	RoleCompanyAdmin Role = "company_admin"
	RoleSuperAdmin   Role = "super_admin"
)

// IsAdmin reports whether the role may use the management endpoints
func (r Role) IsAdmin() bool {
	return r == RoleSuperAdmin || r == RoleCompanyAdmin
}

type User struct {
	ID string `gorm:"primaryKey" json:"id"`

	Application `gorm:"embedded"`

	ApplicationStatus ApplicationStatus `gorm:"size:16;not null;default:pending;index" json:"applicationStatus"`
	Role              Role              `gorm:"size:32;not null;default:applicant" json:"role"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// Public is the subset of a user returned by the auth endpoints
type Public struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Email             string            `json:"email"`
	Role              Role              `json:"role"`
	ApplicationStatus ApplicationStatus `json:"applicationStatus"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

func (u *User) Public() Public {
	return Public{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		Role:              u.Role,
		ApplicationStatus: u.ApplicationStatus,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}
