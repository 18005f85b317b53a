// Package auth verifies the bearer tokens presented on socket upgrade.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// ErrUnauthorized is the single outcome for every rejected token.
var ErrUnauthorized = errors.New("auth: unauthorized")

// DefaultUserClaim is the payload field holding the user identifier.
const DefaultUserClaim = "userId"

// Verifier turns a bearer token into a user identifier.
type Verifier interface {
	Verify(token string) (string, error)
}

// JWTVerifier validates HMAC signed JWTs.
type JWTVerifier struct {
	secret []byte
	claim  string
}

// NewJWTVerifier creates a verifier for tokens signed with secret. An empty
// claim selects DefaultUserClaim.
func NewJWTVerifier(secret, claim string) *JWTVerifier {
	if claim == "" {
		claim = DefaultUserClaim
	}
	return &JWTVerifier{secret: []byte(secret), claim: claim}
}

// Verify returns the user identifier carried by token. Missing, malformed,
// expired or badly signed tokens and tokens without the user claim all
// yield ErrUnauthorized.
func (v *JWTVerifier) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("%w: missing token", ErrUnauthorized)
	}

	parsed, err := jwtlib.Parse(token, func(t *jwtlib.Token) (any, error) {
		return v.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: claims type mismatch", ErrUnauthorized)
	}

	userID := claimString(claims[v.claim])
	if userID == "" {
		return "", fmt.Errorf("%w: no %s claim", ErrUnauthorized, v.claim)
	}
	return userID, nil
}

// Issue signs a token for userID with HS256. A zero ttl yields a token
// without expiry, matching what the signin endpoint hands out.
func (v *JWTVerifier) Issue(userID string, ttl time.Duration) (string, error) {
	claims := jwtlib.MapClaims{v.claim: userID, "iat": time.Now().Unix()}
	if ttl != 0 {
		claims["exp"] = time.Now().Add(ttl).Unix()
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(v.secret)
}

func claimString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}
