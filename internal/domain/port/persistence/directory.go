package persistence

import "context"

// DisplayName is a resolved staff member name
type DisplayName struct {
	FirstName string
	LastName  string
}

// DirectoryStore resolves identity references to human-readable names.
// A miss is not an error condition; callers fall back to a heuristic
// derived from the identity string.
type DirectoryStore interface {
	// LookupDisplayName returns the display name for an identity, or nil
	// when the directory has no entry
	//
	// Possible errors:
	// - ErrStoreUnavailable: if the store cannot be reached
	LookupDisplayName(ctx context.Context, identity string) (*DisplayName, error)
}
