// Package blob defines the storage adapter contract for document content.
//
// Blobs are addressed by opaque slash-delimited keys following the
// convention key = ownerID + path, where path always begins with "/".
// The key convention is part of the stored data format and must not change.
//
// Two production backends implement the contract — local filesystem
// (pkg/blob/fs) and S3-compatible object storage (pkg/blob/s3) — plus an
// in-memory implementation for tests (pkg/blob/memory). The active backend
// is an injected dependency of the coordinator, selected once from
// configuration, so multiple backends can coexist in one process.
package blob

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Read when no blob exists at the key.
// Absence is an expected condition, not a backend failure; callers that
// treat missing content as empty check for this sentinel.
var ErrKeyNotFound = errors.New("blob key not found")

// ErrStoreClosed is returned by operations on a closed adapter.
var ErrStoreClosed = errors.New("blob store is closed")

// Adapter is the uniform interface over a blob backend.
//
// Thread safety: implementations must be safe for concurrent use.
type Adapter interface {
	// Save writes or overwrites the full content at key, creating any
	// intermediate structure the backend needs.
	Save(ctx context.Context, key string, data []byte) error

	// Read returns the full content at key.
	// Returns ErrKeyNotFound when the key does not exist.
	Read(ctx context.Context, key string) ([]byte, error)

	// Delete removes the key and everything nested under it as a prefix.
	// Idempotent: deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Rename moves the content at oldKey — and everything nested under it
	// as a prefix — to newKey, creating intermediate structure at the
	// destination. When oldKey does not exist it succeeds as a no-op, so
	// a retried rename after partial progress does not fail.
	Rename(ctx context.Context, oldKey, newKey string) error

	// Provider returns the backend tag recorded on items stored through
	// this adapter ("local", "s3", "memory").
	Provider() string

	// HealthCheck verifies the backend is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
