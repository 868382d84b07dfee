package services

import (
	"errors"
	"strings"

	"github.com/startblog/apiserver/internal/token"
	"github.com/startblog/apiserver/types"
)

var (
	// ErrMissingCredential is returned when no bearer token is present.
	ErrMissingCredential = errors.New("missing credential")

	// ErrUnauthenticated is returned when the presented token does not
	// verify. Expired, bad signature and malformed all collapse here so
	// the caller cannot tell which check failed.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is returned when a valid token lacks the required
	// role.
	ErrForbidden = errors.New("forbidden")
)

// Authorizer validates access tokens from the Authorization header and
// checks role claims. It is stateless: token validity is decided purely
// by signature and expiry, never by a store lookup, which keeps the hot
// path free of storage round-trips.
type Authorizer struct {
	codec *token.Codec
}

func NewAuthorizer(codec *token.Codec) *Authorizer {
	return &Authorizer{codec: codec}
}

// Authorize extracts and verifies the bearer token, then checks the
// required role against the token's role claims. Role matching is exact
// membership: admin does not implicitly satisfy other roles. Pass an
// empty role to only authenticate.
func (a *Authorizer) Authorize(authorizationHeader string, required types.Role) (*token.AccessClaims, error) {
	raw, err := bearerToken(authorizationHeader)
	if err != nil {
		return nil, ErrMissingCredential
	}

	claims, err := a.codec.VerifyAccess(raw)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	if required != "" && !claims.HasRole(required) {
		return nil, ErrForbidden
	}

	return claims, nil
}

func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	raw := strings.TrimSpace(parts[1])
	if raw == "" {
		return "", errors.New("invalid authorization")
	}
	return raw, nil
}
