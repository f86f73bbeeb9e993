package models

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"

	DefaultOrganizationName = "Default Organization"
)

var DefaultOrganizationType = []string{"Other"}

type User struct {
	ID               string    `json:"id"`
	Username         string    `json:"username" validate:"required"`
	Email            string    `json:"email" validate:"required,email"`
	Password         string    `json:"-"`
	Name             string    `json:"name"`
	Surname          string    `json:"surname"`
	ProfileImage     string    `json:"profileImage"`
	OrganizationName string    `json:"organizationName"`
	OrganizationType []string  `json:"organizationType"`
	Role             string    `json:"role"`
	IsApproved       string    `json:"isApproved"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// UserSummary is the public projection used wherever a user is populated
// into another entity. It never carries credentials.
type UserSummary struct {
	ID               string `json:"id"`
	Username         string `json:"username"`
	Name             string `json:"name"`
	Surname          string `json:"surname"`
	ProfileImage     string `json:"profileImage"`
	OrganizationName string `json:"organizationName"`
	IsApproved       string `json:"isApproved"`
}

func (u *User) Summary() *UserSummary {
	return &UserSummary{
		ID:               u.ID,
		Username:         u.Username,
		Name:             u.Name,
		Surname:          u.Surname,
		ProfileImage:     u.ProfileImage,
		OrganizationName: u.OrganizationName,
		IsApproved:       u.IsApproved,
	}
}

// DisplayName is what notification texts call the user.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ApplyDefaults fills the fields a fresh registration leaves empty.
func (u *User) ApplyDefaults() {
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.IsApproved == "" {
		u.IsApproved = ApprovalPending
	}
	if u.OrganizationName == "" {
		u.OrganizationName = DefaultOrganizationName
	}
	if len(u.OrganizationType) == 0 {
		u.OrganizationType = append([]string(nil), DefaultOrganizationType...)
	}
}

// UserUpdate carries a partial update; nil fields are left untouched.
type UserUpdate struct {
	Name             *string   `json:"name"`
	Surname          *string   `json:"surname"`
	ProfileImage     *string   `json:"profileImage"`
	OrganizationName *string   `json:"organizationName"`
	OrganizationType *[]string `json:"organizationType"`
	IsApproved       *string   `json:"-"`
}

func (u UserUpdate) IsEmpty() bool {
	return u.Name == nil && u.Surname == nil && u.ProfileImage == nil &&
		u.OrganizationName == nil && u.OrganizationType == nil && u.IsApproved == nil
}

func (u UserUpdate) apply(user *User) {
	if u.Name != nil {
		user.Name = *u.Name
	}
	if u.Surname != nil {
		user.Surname = *u.Surname
	}
	if u.ProfileImage != nil {
		user.ProfileImage = *u.ProfileImage
	}
	if u.OrganizationName != nil {
		user.OrganizationName = *u.OrganizationName
	}
	if u.OrganizationType != nil {
		user.OrganizationType = append([]string(nil), (*u.OrganizationType)...)
	}
	if u.IsApproved != nil {
		user.IsApproved = *u.IsApproved
	}
}

// UserFilter narrows ListUsers; empty fields match everything.
type UserFilter struct {
	Role          string
	ApprovalState string
}

func (f UserFilter) matches(u *User) bool {
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	if f.ApprovalState != "" && u.IsApproved != f.ApprovalState {
		return false
	}
	return true
}
