// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// registration service and handlers to distinguish between different
// failure scenarios without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a group, member or event does not exist.
// Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrPreconditionFailed is returned by guarded updates when the row exists
// but is no longer in the expected state (e.g. approving a group that has
// already been reviewed).
var ErrPreconditionFailed = errors.New("precondition failed")

// ErrConflict is returned when an insert collides with an existing key,
// such as a generated group id already in use.
var ErrConflict = errors.New("conflict")
