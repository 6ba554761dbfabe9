// Package cache provides content-addressed caching for fetched archives.
//
// Keys are OCI digests of the raw blob bytes as fetched, before any
// decompression. A hit can therefore be verified by rehashing the value,
// and archives shared between repositories are stored once.
package cache

import "github.com/opencontainers/go-digest"

// Cache provides content-addressed blob storage.
//
// Implementations handle their own size limits and eviction policies and
// must be safe for concurrent use.
type Cache interface {
	// Get returns the cached content for dgst.
	// Returns nil, false if the content is not cached.
	Get(dgst digest.Digest) ([]byte, bool)

	// Put stores content under dgst.
	Put(dgst digest.Digest, content []byte) error

	// Delete removes cached content for dgst.
	// Missing entries are a no-op.
	Delete(dgst digest.Digest) error

	// MaxBytes returns the configured cache size limit (0 = unlimited).
	MaxBytes() int64

	// SizeBytes returns the current cache size in bytes.
	SizeBytes() int64

	// Prune removes cached entries until the cache is at or below targetBytes.
	// Returns the number of bytes freed.
	Prune(targetBytes int64) (int64, error)
}
