// Package objectstore is a content-addressed store for uploaded documents.
//
// Objects are keyed by the SHA-256 hex digest of their raw bytes, so
// storing the same content twice is a no-op. The ingestion pipeline uses
// Exists/Put to skip duplicate uploads, and List plus Get to rebuild a
// session's document set.
package objectstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// ErrNotFound is returned by Get for an unknown hash.
var ErrNotFound = errors.New("object not found")

// Object is one stored upload.
type Object struct {
	Hash        string    `json:"hash"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type,omitempty"`
	Size        int64     `json:"size"`
	Data        []byte    `json:"-"`
	StoredAt    time.Time `json:"stored_at"`
}

// Store is the object store contract.
type Store interface {
	// Exists reports whether content with hash is stored.
	Exists(ctx context.Context, hash string) (bool, error)
	// Put stores obj unless its content is already present. It reports
	// whether anything was written. Hash, Size and StoredAt are derived
	// from Data.
	Put(ctx context.Context, obj Object) (bool, error)
	// Get returns the object stored under hash.
	Get(ctx context.Context, hash string) (Object, error)
	// List returns the metadata of every stored object ordered by
	// StoredAt, then hash. Data is left nil; use Get for content.
	List(ctx context.Context) ([]Object, error)
	// Delete removes hash; unknown hashes are ignored.
	Delete(ctx context.Context, hash string) error
	Close() error
}

// ContentHash returns the SHA-256 hex digest of data.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
