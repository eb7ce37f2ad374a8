package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// EtagTable remembers tree listing validators per branch so repeat listings
// can be made conditional. It lives in process memory on purpose: validators
// are tied to responses this process saw, cost nothing to rebuild, and must
// not outlive a deploy.
type EtagTable struct {
	entries *lru.Cache[string, etagEntry]
}

type etagEntry struct {
	etag    string
	payload string
}

// NewEtagTable creates a table bounded to size entries.
func NewEtagTable(size int) (*EtagTable, error) {
	entries, err := lru.New[string, etagEntry](size)
	if err != nil {
		return nil, err
	}
	return &EtagTable{entries: entries}, nil
}

// Get returns the stored validator and the payload it validated.
func (t *EtagTable) Get(key string) (etag, payload string, ok bool) {
	entry, ok := t.entries.Get(key)
	if !ok {
		return "", "", false
	}
	return entry.etag, entry.payload, true
}

// Put stores a validator with the payload it covers.
func (t *EtagTable) Put(key, etag, payload string) {
	t.entries.Add(key, etagEntry{etag: etag, payload: payload})
}

// Invalidate drops the entry for key.
func (t *EtagTable) Invalidate(key string) {
	t.entries.Remove(key)
}
