// Package testutil holds archive builders and fakes shared by tests.
package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/opencontainers/go-digest"
)

// MockSource is an in-memory byte source that counts fetches.
type MockSource struct {
	data     []byte
	sourceID string
	err      error
	gate     chan struct{}
	fetches  atomic.Int32
}

// NewMockSource returns a source serving data.
func NewMockSource(data []byte) *MockSource {
	return &MockSource{
		data:     data,
		sourceID: "mock:" + digest.FromBytes(data).Encoded(),
	}
}

// NewFailingSource returns a source whose Fetch always fails with err.
func NewFailingSource(id string, err error) *MockSource {
	return &MockSource{sourceID: id, err: err}
}

// Gate makes Fetch block until Release is called.
func (m *MockSource) Gate() *MockSource {
	m.gate = make(chan struct{})
	return m
}

// Release unblocks gated fetches.
func (m *MockSource) Release() {
	close(m.gate)
}

// SourceID returns a stable identifier for the source data.
func (m *MockSource) SourceID() string {
	return m.sourceID
}

// Fetch returns a copy of the backing data.
func (m *MockSource) Fetch(ctx context.Context) ([]byte, error) {
	m.fetches.Add(1)
	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return append([]byte(nil), m.data...), nil
}

// Fetches reports how many times Fetch was called.
func (m *MockSource) Fetches() int {
	return int(m.fetches.Load())
}

// MockCache implements a basic concurrency-safe blob cache for tests.
type MockCache struct {
	mu   sync.RWMutex
	data map[digest.Digest][]byte
	gets atomic.Int32
	hits atomic.Int32
}

// NewMockCache constructs an empty in-memory cache.
func NewMockCache() *MockCache {
	return &MockCache{data: make(map[digest.Digest][]byte)}
}

// Get returns cached content for dgst.
func (c *MockCache) Get(dgst digest.Digest) ([]byte, bool) {
	c.gets.Add(1)
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.data[dgst]
	if ok {
		c.hits.Add(1)
	}
	return data, ok
}

// Put stores data under dgst.
func (c *MockCache) Put(dgst digest.Digest, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[dgst] = append([]byte(nil), data...)
	return nil
}

// Delete removes cached content for dgst.
func (c *MockCache) Delete(dgst digest.Digest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, dgst)
	return nil
}

// MaxBytes returns 0 (unlimited).
func (c *MockCache) MaxBytes() int64 {
	return 0
}

// SizeBytes returns the current cache size in bytes.
func (c *MockCache) SizeBytes() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var total int64
	for _, data := range c.data {
		total += int64(len(data))
	}
	return total
}

// Prune drops everything when the cache is above targetBytes.
func (c *MockCache) Prune(targetBytes int64) (int64, error) {
	size := c.SizeBytes()
	if size <= targetBytes {
		return 0, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.data)
	return size, nil
}

// Hits reports the number of Get calls that found an entry.
func (c *MockCache) Hits() int {
	return int(c.hits.Load())
}

// Gets reports the total number of Get calls.
func (c *MockCache) Gets() int {
	return int(c.gets.Load())
}
