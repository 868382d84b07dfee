package store

import "errors"

// ErrNotFound is returned when the requested row does not exist.
// Repositories map sql.ErrNoRows onto it so callers never depend on
// database/sql directly.
var ErrNotFound = errors.New("not found")
