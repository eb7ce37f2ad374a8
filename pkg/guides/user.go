package guides

import (
	"context"
	"encoding/json"

	"github.com/hackguides/guides/pkg/cache"
	"github.com/hackguides/guides/pkg/remote"
)

// FindUser looks up a hosting service profile. Profiles change rarely and
// cost an API request each, so hits are served from cache for a while.
func (s *Service) FindUser(ctx context.Context, login string) (*remote.UserProfile, error) {
	key := cache.UserKey(login)
	if raw, ok := s.cache.Get(ctx, key); ok {
		var user remote.UserProfile
		if err := json.Unmarshal([]byte(raw), &user); err == nil {
			return &user, nil
		}
		s.cache.Delete(ctx, key)
	}

	user, err := s.store.GetUser(ctx, login)
	if err != nil {
		return nil, err
	}
	if raw, jerr := json.Marshal(user); jerr == nil {
		s.cache.Set(ctx, key, string(raw), cache.SlowTTL)
	}
	return user, nil
}
