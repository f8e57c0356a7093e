package ports

import "context"

// SessionStore is the persistence boundary for session and pairing records.
// Keys are protocol-defined strings, values opaque serialized records. The
// backing implementation may be volatile or durable; callers never assume
// either. A missing key is reported with found=false, not an error.
type SessionStore interface {
	// Get retrieves a value by key.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores a value under a key.
	Set(ctx context.Context, key, value string) error

	// Remove deletes a key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// Keys lists every stored key.
	Keys(ctx context.Context) ([]string, error)
}
