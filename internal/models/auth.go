package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the roles issued by the identity provider.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
	RoleStudent UserRole = "STUDENT"
)

// JWTClaims represents the access token payload minted by the identity provider.
type JWTClaims struct {
	UserID      string   `json:"user_id"`
	Role        UserRole `json:"role"`
	DisplayName string   `json:"display_name"`
	SchoolCode  string   `json:"school_code"`
	ClassLabel  string   `json:"class_label,omitempty"`
	jwt.RegisteredClaims
}

// Actor is the explicit caller identity passed into every service call.
type Actor struct {
	TeacherID   string
	DisplayName string
	SchoolCode  string
	ClassLabel  string
	Role        UserRole
}

// Actor extracts the caller identity from the claims.
func (c *JWTClaims) Actor() Actor {
	if c == nil {
		return Actor{}
	}
	return Actor{
		TeacherID:   c.UserID,
		DisplayName: c.DisplayName,
		SchoolCode:  c.SchoolCode,
		ClassLabel:  c.ClassLabel,
		Role:        c.Role,
	}
}
