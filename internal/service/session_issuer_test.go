package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/learnhub-api/internal/models"
	appErrors "github.com/noah-isme/learnhub-api/pkg/errors"
	"github.com/noah-isme/learnhub-api/pkg/security"
)

func newTestIssuer() *SessionIssuer {
	return NewSessionIssuer(security.NewJWTSigner("test-secret", "learnhub-test", time.Hour))
}

func TestSessionRoundTrip(t *testing.T) {
	issuer := newTestIssuer()
	user := &models.User{ID: "u1", Username: "ana", Email: "ana@example.com", Role: models.RoleInstitution, EmailVerified: true}

	res, err := issuer.Respond(user)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", res.Type)
	assert.Equal(t, "u1", res.UserID)
	assert.True(t, res.EmailVerified)

	claims, err := issuer.Validate(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "ana", claims.Username)
	assert.Equal(t, models.RoleInstitution, claims.Role)
	assert.Equal(t, "learnhub-test", claims.Issuer)

	subject, err := issuer.Resolve(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", subject)
}

func TestSessionRejectsForeignToken(t *testing.T) {
	issuer := newTestIssuer()
	other := NewSessionIssuer(security.NewJWTSigner("other-secret", "learnhub-test", time.Hour))

	token, err := other.Issue(&models.User{ID: "u1", Username: "ana", Role: models.RoleStudent})
	require.NoError(t, err)

	_, err = issuer.Validate(token)
	assert.ErrorIs(t, err, appErrors.ErrInvalidToken)

	_, err = issuer.Resolve("not-a-token")
	assert.ErrorIs(t, err, appErrors.ErrInvalidToken)
}

func TestSessionRejectsMismatchedSubject(t *testing.T) {
	signer := security.NewJWTSigner("test-secret", "learnhub-test", time.Hour)
	issuer := NewSessionIssuer(signer)

	token, err := signer.Issue("someone-else", &models.JWTClaims{UserID: "u1", RegisteredClaims: jwt.RegisteredClaims{}})
	require.NoError(t, err)

	_, err = issuer.Validate(token)
	assert.ErrorIs(t, err, appErrors.ErrInvalidToken)
}

func TestIsOwner(t *testing.T) {
	assert.True(t, isOwner("inst-1", "inst-1"))
	assert.False(t, isOwner("inst-1", "inst-2"))
	assert.False(t, isOwner("", ""))
}
