package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/startblog/apiserver/types"
)

// Verification failures are reported as exactly one of these sentinels.
// Callers at the HTTP boundary collapse all three into a single opaque
// 401 so the response never reveals which check failed.
var (
	// ErrExpired is returned when the token's expiry has passed.
	ErrExpired = errors.New("token expired")

	// ErrSignature is returned when the signature does not verify
	// against the active signing secret.
	ErrSignature = errors.New("token signature invalid")

	// ErrMalformed is returned for structurally invalid input.
	ErrMalformed = errors.New("token malformed")

	// ErrEncoding is returned when signing fails. It should be
	// unreachable for well-formed input and is treated as fatal.
	ErrEncoding = errors.New("token encoding failed")
)

// AccessClaims are the claims carried by a short-lived access token.
// Validity is determined purely by signature and expiry; access tokens
// are never looked up against any store.
type AccessClaims struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// HasRole reports whether the claims include the given role.
// Membership is exact: no role implies another.
func (c *AccessClaims) HasRole(role types.Role) bool {
	for _, r := range c.Roles {
		if r == string(role) {
			return true
		}
	}
	return false
}

// RefreshClaims are the claims carried by a longer-lived refresh token.
// The ID (jti) is tracked server-side so the token can be revoked and
// rotated on use.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// Codec issues and verifies signed, time-bounded tokens with a single
// process-wide HMAC secret. The secret is set at construction and never
// mutated, so a Codec is safe for concurrent use.
type Codec struct {
	secret []byte
}

func NewCodec(secret string) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("signing secret is required")
	}
	return &Codec{secret: []byte(secret)}, nil
}

// IssueAccess builds a signed access token for the subject carrying the
// given role claims.
func (c *Codec) IssueAccess(subject, username string, roles []types.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	roleNames := make([]string, len(roles))
	for i, r := range roles {
		roleNames[i] = string(r)
	}

	claims := AccessClaims{
		Username: username,
		Roles:    roleNames,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return signed, nil
}

// IssueRefresh builds a signed refresh token for the subject with a
// unique identifier. The returned claims expose the identifier and
// expiry so the caller can record them in the revocation store.
func (c *Codec) IssueRefresh(subject string, ttl time.Duration) (string, *RefreshClaims, error) {
	now := time.Now()
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return signed, &claims, nil
}

// VerifyAccess decodes and validates an access token string.
func (c *Codec) VerifyAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := c.verify(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefresh decodes and validates a refresh token string.
func (c *Codec) VerifyRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.verify(tokenString, claims); err != nil {
		return nil, err
	}
	if strings.TrimSpace(claims.ID) == "" {
		return nil, ErrMalformed
	}
	return claims, nil
}

func (c *Codec) verify(tokenString string, claims jwt.Claims) error {
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrSignature
		}
		return c.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, ErrSignature):
			return ErrSignature
		default:
			return ErrMalformed
		}
	}
	if !parsed.Valid {
		return ErrMalformed
	}
	return nil
}
