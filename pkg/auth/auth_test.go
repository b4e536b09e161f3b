package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/diagnosis/taskmanager/pkg/auth"
)

const secret = "test-secret"

func TestSessionRoundTrip(t *testing.T) {
	issuer := auth.NewSessionIssuer(secret, 30*24*time.Hour)

	token, err := issuer.Issue(17)
	require.NoError(t, err)

	id, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, int64(17), id)
}

func TestSessionExpiresAfterTTL(t *testing.T) {
	issuedAt := time.Now().Add(-31 * 24 * time.Hour)
	old := auth.NewSessionIssuer(secret, 30*24*time.Hour, auth.WithClock(func() time.Time { return issuedAt }))

	token, err := old.Issue(1)
	require.NoError(t, err)

	_, err = auth.NewSessionIssuer(secret, 30*24*time.Hour).Validate(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestSessionStillValidJustBeforeExpiry(t *testing.T) {
	issuedAt := time.Now().Add(-29 * 24 * time.Hour)
	old := auth.NewSessionIssuer(secret, 30*24*time.Hour, auth.WithClock(func() time.Time { return issuedAt }))

	token, err := old.Issue(5)
	require.NoError(t, err)

	id, err := auth.NewSessionIssuer(secret, 30*24*time.Hour).Validate(token)
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)
}

func TestSessionRejectsForeignSignature(t *testing.T) {
	token, err := auth.NewSessionIssuer("other-secret", time.Hour).Issue(1)
	require.NoError(t, err)

	_, err = auth.NewSessionIssuer(secret, time.Hour).Validate(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestSessionRejectsOtherAlgorithms(t *testing.T) {
	claims := auth.Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Audience:  []string{"task-manager-api"},
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = auth.NewSessionIssuer(secret, time.Hour).Validate(signed)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestSessionRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "abc", "a.b.c"} {
		_, err := auth.NewSessionIssuer(secret, time.Hour).Validate(raw)
		assert.ErrorIs(t, err, auth.ErrInvalidToken, raw)
	}
}

func TestPasswordArgon2id(t *testing.T) {
	hash, err := auth.HashPassword("secret1")
	require.NoError(t, err)
	assert.NotContains(t, hash, "secret1")

	match, rehash, err := auth.CheckPassword("secret1", hash)
	require.NoError(t, err)
	assert.True(t, match)
	assert.False(t, rehash)

	match, _, err = auth.CheckPassword("wrong", hash)
	require.NoError(t, err)
	assert.False(t, match)
}

func TestPasswordLegacyBcrypt(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)

	match, rehash, err := auth.CheckPassword("secret1", string(legacy))
	require.NoError(t, err)
	assert.True(t, match)
	assert.True(t, rehash)

	match, rehash, err = auth.CheckPassword("nope", string(legacy))
	require.NoError(t, err)
	assert.False(t, match)
	assert.False(t, rehash)
}
