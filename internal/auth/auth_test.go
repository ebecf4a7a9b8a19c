package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rojas-cambio/cambio/internal/model"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestNewTokens(t *testing.T) {
	_, err := NewTokens("short", time.Hour)
	assert.ErrorContains(t, err, "at least 32")
	_, err = NewTokens(secret, 0)
	assert.Error(t, err)
}

func TestIssueVerify(t *testing.T) {
	tokens, err := NewTokens(secret, time.Hour)
	require.NoError(t, err)

	u := model.User{ID: "u-1", Role: model.RoleOperator}
	tok, exp, err := tokens.Issue(u)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := tokens.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, model.RoleOperator, claims.Role)
}

func TestVerify_Expired(t *testing.T) {
	tokens, err := NewTokens(secret, time.Minute)
	require.NoError(t, err)
	tokens.now = func() time.Time { return time.Now().Add(-time.Hour) }

	tok, _, err := tokens.Issue(model.User{ID: "u-1", Role: model.RoleAdmin})
	require.NoError(t, err)

	tokens.now = time.Now
	_, err = tokens.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Rejects(t *testing.T) {
	tokens, err := NewTokens(secret, time.Hour)
	require.NoError(t, err)
	other, err := NewTokens(strings.Repeat("x", 32), time.Hour)
	require.NoError(t, err)

	forged, _, err := other.Issue(model.User{ID: "u-1", Role: model.RoleAdmin})
	require.NoError(t, err)
	_, err = tokens.Verify(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Role:             model.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer, Subject: "u-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tokens.Verify(none)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.Verify("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSub, _, err := tokens.Issue(model.User{Role: model.RoleAdmin})
	require.NoError(t, err)
	_, err = tokens.Verify(noSub)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
