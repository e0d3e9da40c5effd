package models

import "strings"

// Roles known to the booking API
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User is the authenticated user's profile
type User struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role,omitempty"`
	IsActive *bool  `json:"isActive,omitempty"`
}

// HasRole compares roles case-insensitively, ignoring a ROLE_ prefix
func (u *User) HasRole(role string) bool {
	if u == nil {
		return false
	}
	have := strings.TrimPrefix(strings.ToUpper(u.Role), "ROLE_")
	return have == strings.TrimPrefix(strings.ToUpper(role), "ROLE_")
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required"`
	Phone      string `json:"phone"`
	Password   string `json:"password" binding:"required"`
	InviteCode string `json:"inviteCode,omitempty"`
}

// RefreshRequest is the body of POST /auth/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthResponse is returned by login, register and refresh
type AuthResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
	TokenType    string `json:"tokenType,omitempty"`
	ExpiresIn    int64  `json:"expiresIn,omitempty"`
	User         *User  `json:"user,omitempty"`
}
