package access

import "errors"

var (
	// ErrUnauthenticated means no identity is present. Terminal for any
	// privileged operation.
	ErrUnauthenticated = errors.New("access: unauthenticated")

	// ErrInvalidSelection means a persisted or submitted selection does not
	// match any currently resolvable role option.
	ErrInvalidSelection = errors.New("access: invalid role selection")

	// ErrCollaborator wraps failures of the membership or delegation
	// collaborators. Resolution degrades to an empty option set and
	// delegation checks degrade to deny; callers never retry automatically.
	ErrCollaborator = errors.New("access: collaborator unavailable")

	// ErrNotFound is returned by collaborators for missing records.
	ErrNotFound = errors.New("access: not found")
)
