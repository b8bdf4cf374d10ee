// Package blob is the persistence substrate: named, opaque JSON blobs.
// The game state lives in three kinds of blobs: per-user saves, the shared
// global marketplace, and payment collaborator state.
package blob

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Load when no blob exists under the key.
var ErrNotFound = errors.New("blob not found")

// PersistError wraps a failed save. Callers treat it as recoverable: the
// in-memory state stays authoritative for the rest of the session.
type PersistError struct {
	Key string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist blob %q: %v", e.Key, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// Store is the load/save collaborator contract.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}
