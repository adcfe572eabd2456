package models

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// UserRole represents the GenPlan roles carried in upstream access tokens.
type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleLecturer UserRole = "lecturer"
	RoleStudent  UserRole = "student"
)

// NormalizeRole maps upstream role spellings onto the known roles.
func NormalizeRole(raw string) UserRole {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "admin", "superadmin":
		return RoleAdmin
	case "lecturer", "dosen", "teacher":
		return RoleLecturer
	case "student", "mahasiswa":
		return RoleStudent
	default:
		return UserRole(strings.ToLower(strings.TrimSpace(raw)))
	}
}

// JWTClaims represents the payload of an upstream-issued access token.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Session couples validated claims with the raw token forwarded upstream.
type Session struct {
	Claims *JWTClaims
	Token  string
}
