// Package revocation tracks the identifiers of outstanding refresh
// tokens so they can be invalidated on logout, rotation and password
// change. Access tokens are stateless and never pass through here.
package revocation

import (
	"context"
	"errors"
	"time"
)

// ErrNotActive is returned by Rotate when the identifier being consumed
// is not in the active set. Under concurrent rotation of the same
// identifier exactly one caller wins; every other caller receives this
// error.
var ErrNotActive = errors.New("identifier not active")

// Store is the active set of refresh-token identifiers.
//
// Implementations must be safe for concurrent use and linearizable per
// identifier: a Revoke must be visible to a concurrent IsActive check.
// Expired entries are treated as absent regardless of purge timing.
type Store interface {
	// Record adds an identifier to the active set until expiresAt.
	Record(ctx context.Context, id, subject string, expiresAt time.Time) error

	// IsActive reports whether the identifier is present and unexpired.
	IsActive(ctx context.Context, id string) (bool, error)

	// Revoke removes an identifier. Revoking an unknown or already
	// revoked identifier is not an error.
	Revoke(ctx context.Context, id string) error

	// RevokeAll removes every identifier recorded for the subject.
	RevokeAll(ctx context.Context, subject string) error

	// Rotate atomically consumes oldID and records newID. It fails
	// with ErrNotActive when oldID is absent, expired or already
	// consumed, without recording newID.
	Rotate(ctx context.Context, oldID, newID, subject string, expiresAt time.Time) error
}
