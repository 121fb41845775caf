// Package token signs and verifies the bearer credentials used across the
// service: session access/refresh tokens and project API keys. It is
// stateless; revocation is enforced by the callers against stored records,
// never by trusting a token's own expiry claim alone.
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "authwave"

var (
	// ErrTokenInvalid indicates a malformed token or a signature mismatch.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired indicates the token's embedded expiry has passed.
	ErrTokenExpired = errors.New("token expired")
)

// Token usage discriminators carried in the token_use claim.
const (
	UseAccess  = "access"
	UseRefresh = "refresh"
	UseKey     = "key"
)

// Claims is the payload encoded into every signed token.
type Claims struct {
	Kind      string `json:"kind,omitempty"`
	Owner     string `json:"owner,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	TokenUse  string `json:"token_use,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs claims with HS256. A zero ttl produces a token without an
// expiry claim, which is how project keys are minted: their lifetime is
// governed entirely by the stored key on the project record.
func Issue(claims Claims, secret []byte, ttl time.Duration) (string, error) {
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("subject is required")
	}
	if len(secret) == 0 {
		return "", errors.New("signing secret is not configured")
	}
	now := time.Now().UTC()
	claims.Issuer = issuer
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ID = uuid.NewString()
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Verify checks the signature and, when present, the embedded expiry.
// Expiry failures are reported distinctly so callers can map them to the
// refresh flow.
func Verify(tokenString string, secret []byte) (*Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrTokenInvalid
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenInvalid
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Issuer != issuer || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// DecodeUnsafe extracts claims without verifying the signature. It exists
// only to recover an identity hint (which session a refresh token claims to
// belong to) before the authoritative check against stored state.
func DecodeUnsafe(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrTokenInvalid
	}
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return nil, ErrTokenInvalid
	}
	return &claims, nil
}
