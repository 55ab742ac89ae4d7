package models

import "github.com/golang-jwt/jwt/v5"

// SendCodeRequest asks for a registration verification code.
type SendCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// RegisterRequest creates an account after proving control of the email.
type RegisterRequest struct {
	Username         string   `json:"username" validate:"required,min=3,max=50"`
	Password         string   `json:"password" validate:"required,min=6"`
	Email            string   `json:"email" validate:"required,email,max=100"`
	Role             UserRole `json:"role" validate:"required,oneof=STUDENT INSTITUTION ADMIN"`
	Phone            string   `json:"phone" validate:"max=20"`
	Organization     string   `json:"organization" validate:"max=100"`
	Address          string   `json:"address" validate:"max=200"`
	VerificationCode string   `json:"verification_code" validate:"required"`
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token         string   `json:"token"`
	Type          string   `json:"type"`
	UserID        string   `json:"user_id"`
	Username      string   `json:"username"`
	Email         string   `json:"email"`
	Role          UserRole `json:"role"`
	EmailVerified bool     `json:"email_verified"`
}

// JWTClaims represents the JWT payload for session tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Registered exposes the embedded registered claims to the token signer.
func (c *JWTClaims) Registered() *jwt.RegisteredClaims {
	return &c.RegisteredClaims
}
