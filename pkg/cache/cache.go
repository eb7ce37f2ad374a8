// Package cache wraps the optional read cache in front of the remote store.
// Every operation degrades to a miss on failure so the system keeps working,
// just slower, when the cache is unreachable or not configured at all.
package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	// FileTTL bounds how long guide bodies and rendered text live. Short
	// because edits land through the remote and the cache is only checked
	// first.
	FileTTL = 8 * time.Minute

	// SlowTTL is for data that changes rarely and costs API requests to
	// rebuild, like user profiles and per-status listings.
	SlowTTL = 30 * time.Minute

	// NoExpire marks entries that are only replaced, never aged out.
	NoExpire time.Duration = 0
)

// Cache is the read-through store. Get returning false means a miss, whether
// because the entry is absent, expired, or the backend errored.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// FileKey addresses a cached file by its guide directory and branch. The
// filename is deliberately left out; it is always the same and would only
// spend key space.
func FileKey(path, branch string) string {
	return fmt.Sprintf("file:%s:%s", branch, path)
}

// ListingKey addresses the cached article collection for one publish status.
func ListingKey(status string) string {
	return "listing:" + status
}

// UserKey addresses a cached user profile.
func UserKey(login string) string {
	return "user:" + login
}

// FeaturedKey addresses the featured guide pointer. There is exactly one.
func FeaturedKey() string {
	return "featured"
}
