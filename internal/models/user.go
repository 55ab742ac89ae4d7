package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleStudent     UserRole = "STUDENT"
	RoleInstitution UserRole = "INSTITUTION"
	RoleAdmin       UserRole = "ADMIN"
)

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleInstitution, RoleAdmin:
		return true
	}
	return false
}

// User represents an account stored in the users table.
type User struct {
	ID                     string     `db:"id" json:"id"`
	Username               string     `db:"username" json:"username"`
	Email                  string     `db:"email" json:"email"`
	PasswordHash           string     `db:"password_hash" json:"-"`
	Role                   UserRole   `db:"role" json:"role"`
	Avatar                 string     `db:"avatar" json:"avatar,omitempty"`
	Phone                  string     `db:"phone" json:"phone,omitempty"`
	Organization           string     `db:"organization" json:"organization,omitempty"`
	Address                string     `db:"address" json:"address,omitempty"`
	EmailVerified          bool       `db:"email_verified" json:"email_verified"`
	VerificationCode       *string    `db:"verification_code" json:"-"`
	VerificationCodeExpiry *time.Time `db:"verification_code_expiry" json:"-"`
	Enabled                bool       `db:"enabled" json:"enabled"`
	Banned                 bool       `db:"banned" json:"banned"`
	CreatedAt              time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures the admin search predicates. Nil pointers and blank
// strings impose no constraint.
type UserFilter struct {
	Username      string
	Email         string
	Organization  string
	Role          *UserRole
	EmailVerified *bool
	Enabled       *bool
	Banned        *bool
	Page          int
	Size          int
	// Malformed names query parameters that could not be parsed. A search
	// with any malformed parameter matches nothing.
	Malformed []string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// NewPagination derives page counts for a 1-indexed page.
func NewPagination(page, size, total int) *Pagination {
	p := &Pagination{Page: page, PageSize: size, TotalCount: total}
	if size > 0 {
		p.TotalPages = (total + size - 1) / size
	}
	return p
}

// UserUpdateRequest carries admin edits. Nil fields are left unchanged. The
// same payload creates accounts, where username and email are required.
type UserUpdateRequest struct {
	Username     *string `json:"username" validate:"omitempty,min=3,max=50"`
	Email        *string `json:"email" validate:"omitempty,email,max=100"`
	Phone        *string `json:"phone" validate:"omitempty,max=20"`
	Organization *string `json:"organization" validate:"omitempty,max=100"`
	Address      *string `json:"address" validate:"omitempty,max=200"`
	Enabled      *bool   `json:"enabled"`
	Banned       *bool   `json:"banned"`
}
