package auth

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "sketch-secret"

func sign(t *testing.T, method jwtlib.SigningMethod, key any, claims jwtlib.MapClaims) string {
	t.Helper()
	tok, err := jwtlib.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return tok
}

func TestVerifyValidToken(t *testing.T) {
	v := NewJWTVerifier(testSecret, "")
	tok, err := v.Issue("u1", time.Hour)
	require.NoError(t, err)

	userID, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
}

func TestVerifyTokenWithoutExpiry(t *testing.T) {
	v := NewJWTVerifier(testSecret, "")
	tok, err := v.Issue("u2", 0)
	require.NoError(t, err)

	userID, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "u2", userID)
}

func TestVerifyNumericClaim(t *testing.T) {
	v := NewJWTVerifier(testSecret, "")
	tok := sign(t, jwtlib.SigningMethodHS256, []byte(testSecret), jwtlib.MapClaims{"userId": 17})

	userID, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "17", userID)
}

func TestVerifyCustomClaim(t *testing.T) {
	v := NewJWTVerifier(testSecret, "sub")
	tok := sign(t, jwtlib.SigningMethodHS256, []byte(testSecret), jwtlib.MapClaims{"sub": "abc"})

	userID, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "abc", userID)
}

func TestVerifyRejects(t *testing.T) {
	v := NewJWTVerifier(testSecret, "")
	expired := sign(t, jwtlib.SigningMethodHS256, []byte(testSecret), jwtlib.MapClaims{
		"userId": "u1",
		"exp":    time.Now().Add(-time.Minute).Unix(),
	})
	wrongKey := sign(t, jwtlib.SigningMethodHS256, []byte("other"), jwtlib.MapClaims{"userId": "u1"})
	noClaim := sign(t, jwtlib.SigningMethodHS256, []byte(testSecret), jwtlib.MapClaims{"name": "x"})
	emptyClaim := sign(t, jwtlib.SigningMethodHS256, []byte(testSecret), jwtlib.MapClaims{"userId": ""})
	unsigned := sign(t, jwtlib.SigningMethodNone, jwtlib.UnsafeAllowNoneSignatureType, jwtlib.MapClaims{"userId": "u1"})

	cases := map[string]string{
		"missing":     "",
		"blank":       "   ",
		"garbage":     "not.a.token",
		"expired":     expired,
		"wrong key":   wrongKey,
		"no claim":    noClaim,
		"empty claim": emptyClaim,
		"alg none":    unsigned,
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			userID, err := v.Verify(tok)
			assert.ErrorIs(t, err, ErrUnauthorized)
			assert.Empty(t, userID)
		})
	}
}
