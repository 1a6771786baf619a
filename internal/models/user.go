package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the role claim carried by identity-provider tokens.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
	RoleParent  UserRole = "parent"
)

// Valid reports whether the role is one of the recognized tags.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent, RoleParent:
		return true
	}
	return false
}

// JWTClaims are the session claims extracted from an access token.
type JWTClaims struct {
	UserID string   `json:"sub"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Scope carries the caller identity used for row-level filtering. The
// role restriction is always ANDed with user-supplied filters and can
// never be bypassed by a query parameter.
type Scope struct {
	Role   UserRole
	UserID string
}

// Admin reports whether the scope applies no row restriction.
func (s Scope) Admin() bool {
	return s.Role == RoleAdmin
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// ActionResult is the uniform contract returned by every mutation
// endpoint. Success and Error are mutually exclusive.
type ActionResult struct {
	Success bool   `json:"success"`
	Error   bool   `json:"error"`
	Message string `json:"message"`
}
