package service

import (
	"context"
	"sync"

	"github.com/afftrack/afftrack/internal/app/repository"
	"github.com/bits-and-blooms/bloom/v3"
)

// HashFilter is a bloom filter over known link hashes sitting in front of the
// redirect lookup. Unknown hashes (bots probing random tokens make up a large
// share of redirect traffic) are rejected without a database round-trip; a
// false positive just falls through to the normal lookup.
type HashFilter struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

const (
	hashFilterCapacity = 1_000_000
	hashFilterFPRate   = 0.01
)

// NewHashFilter returns an empty filter sized for the expected link volume.
func NewHashFilter() *HashFilter {
	return &HashFilter{
		filter: bloom.NewWithEstimates(hashFilterCapacity, hashFilterFPRate),
	}
}

// Warm loads every stored hash into the filter. Called once at startup.
func (f *HashFilter) Warm(ctx context.Context, links repository.LinkRepository) error {
	hashes, err := links.ListHashes(ctx)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range hashes {
		f.filter.AddString(h)
	}
	return nil
}

// Add registers a freshly created hash.
func (f *HashFilter) Add(hash string) {
	f.mu.Lock()
	f.filter.AddString(hash)
	f.mu.Unlock()
}

// MayExist reports whether the hash could be a known link. False means
// definitely unknown.
func (f *HashFilter) MayExist(hash string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.filter.TestString(hash)
}
