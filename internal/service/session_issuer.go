package service

import (
	"github.com/noah-isme/learnhub-api/internal/models"
	appErrors "github.com/noah-isme/learnhub-api/pkg/errors"
	"github.com/noah-isme/learnhub-api/pkg/security"
)

// TokenType is the scheme clients put in front of the session token.
const TokenType = "Bearer"

type tokenSigner interface {
	Issue(subject string, claims security.Claims) (string, error)
	Verify(token string, claims security.Claims) error
}

// SessionIssuer mints and checks session tokens for accounts.
type SessionIssuer struct {
	signer tokenSigner
}

// NewSessionIssuer constructs a SessionIssuer.
func NewSessionIssuer(signer tokenSigner) *SessionIssuer {
	return &SessionIssuer{signer: signer}
}

// Issue returns a signed token identifying user.
func (s *SessionIssuer) Issue(user *models.User) (string, error) {
	claims := &models.JWTClaims{UserID: user.ID, Username: user.Username, Role: user.Role}
	token, err := s.signer.Issue(user.ID, claims)
	if err != nil {
		return "", appErrors.Internal(err, "failed to issue session token")
	}
	return token, nil
}

// Validate verifies token and returns its claims.
func (s *SessionIssuer) Validate(token string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	if err := s.signer.Verify(token, claims); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidToken.Code, appErrors.ErrInvalidToken.Status, appErrors.ErrInvalidToken.Message)
	}
	if claims.Subject == "" || claims.UserID != claims.Subject {
		return nil, appErrors.ErrInvalidToken
	}
	return claims, nil
}

// Resolve returns the account id carried by token.
func (s *SessionIssuer) Resolve(token string) (string, error) {
	claims, err := s.Validate(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Respond issues a token for user and packages it with the profile summary.
func (s *SessionIssuer) Respond(user *models.User) (*models.AuthResponse, error) {
	token, err := s.Issue(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{
		Token:         token,
		Type:          TokenType,
		UserID:        user.ID,
		Username:      user.Username,
		Email:         user.Email,
		Role:          user.Role,
		EmailVerified: user.EmailVerified,
	}, nil
}
