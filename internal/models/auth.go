package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleScheduler UserRole = "SCHEDULER"
	RoleViewer    UserRole = "VIEWER"
)

// Valid reports whether the role is known.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleScheduler, RoleViewer:
		return true
	}
	return false
}

// JWTClaims represents the JWT payload for access tokens. Tokens are issued
// by the identity provider and only verified here.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	Email  string   `json:"email"`
	jwt.RegisteredClaims
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
