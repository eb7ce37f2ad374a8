package guides

import (
	"context"
	"fmt"

	"github.com/hackguides/guides/pkg/cache"
)

// SetFeatured marks the guide at path as the site's featured guide. The
// pointer lives in the cache without a TTL; it is cleared only by being
// replaced.
func (s *Service) SetFeatured(ctx context.Context, path string) error {
	info, err := ParsePath(path)
	if err != nil {
		return err
	}
	// Only a real guide can be featured.
	if _, err := s.Read(ctx, info.Dir(), DefaultBranch, false); err != nil {
		return fmt.Errorf("reading guide to feature: %w", err)
	}
	s.cache.Set(ctx, cache.FeaturedKey(), info.Dir(), cache.NoExpire)
	return nil
}

// Featured returns the currently featured guide, or ErrNotFound when none is
// set or the pointed-at guide no longer exists.
func (s *Service) Featured(ctx context.Context) (*Article, error) {
	path, ok := s.cache.Get(ctx, cache.FeaturedKey())
	if !ok {
		return nil, fmt.Errorf("%w: no featured guide", ErrNotFound)
	}
	return s.Read(ctx, path, DefaultBranch, false)
}
