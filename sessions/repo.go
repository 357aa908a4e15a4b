package sessions

import (
	"context"
	"time"
)

// Repo is a named blob store. Drivers must tolerate concurrent readers; writes are
// last writer wins.
type Repo interface {
	// Get returns the blob stored under name, or an error wrapping errors.ErrNotFound
	Get(ctx context.Context, name string) ([]byte, error)

	// Set stores data under name. A ttl of zero keeps the blob forever
	Set(ctx context.Context, name string, data []byte, ttl time.Duration) error

	// Delete removes name. Deleting a missing blob is not an error
	Delete(ctx context.Context, name string) error

	// Close releases any resources held by the driver
	Close() error
}
