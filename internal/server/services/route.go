package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ostrval/carpooling/internal/common"
	"github.com/ostrval/carpooling/internal/logging"
	"github.com/ostrval/carpooling/internal/server/cache"
	"github.com/ostrval/carpooling/internal/server/models"
	"github.com/ostrval/carpooling/internal/server/repositories/routes"
)

// RouteService serves a user's route list, consulting the cache before the
// durable store and keeping the two consistent on writes. The durable store
// is always the source of truth; the cache holds derived copies only.
type RouteService struct {
	repo   routes.Repository
	cache  cache.Cache
	logger logging.Logger

	// locks serializes the re-read + cache-overwrite step per user so
	// concurrent inserts cannot publish a cached view drawn from a
	// partial read.
	locks sync.Map
}

func NewRouteService(repo routes.Repository, c cache.Cache, logger logging.Logger) *RouteService {
	return &RouteService{repo: repo, cache: c, logger: logger}
}

func routeCacheKey(userID int64) string {
	return fmt.Sprintf("routes:user_id:%d", userID)
}

func (s *RouteService) userLock(userID int64) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// GetRoutes returns the routes owned by userID in ascending id order. A
// cache hit never touches the durable store; a miss reads the store and
// fills the cache when the result is non-empty. An empty result is returned
// without caching so that a user's first route becomes visible immediately.
// Cache failures degrade to store reads, never to errors.
func (s *RouteService) GetRoutes(ctx context.Context, userID int64) ([]models.Route, error) {
	key := routeCacheKey(userID)

	data, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		var cached []models.Route
		if uerr := json.Unmarshal(data, &cached); uerr == nil {
			return cached, nil
		}
		s.logger.Warn(ctx, "discarding undecodable cache entry", "key", key)
	case !errors.Is(err, common.ErrCacheMiss):
		s.logger.Warn(ctx, "cache read failed, falling back to store", "key", key, "error", err)
	}

	list, err := s.repo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing routes: %w", err)
	}

	if len(list) > 0 {
		s.refreshCache(ctx, key, list)
	}

	return list, nil
}

// CreateRoute inserts a new route and refreshes the owner's cache entry from
// a full store re-read before returning (write-through). A failed insert
// surfaces to the caller; a failed refresh is logged as a warning and the
// committed insert stands, with the store remaining authoritative.
func (s *RouteService) CreateRoute(ctx context.Context, userID int64, startPoint, endPoint string) (*models.Route, error) {
	if startPoint == "" || endPoint == "" {
		return nil, fmt.Errorf("%w: start and end points must be non-empty", common.ErrValidation)
	}

	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	route, err := s.repo.Create(ctx, &models.Route{
		UserID:     userID,
		StartPoint: startPoint,
		EndPoint:   endPoint,
	})
	if err != nil {
		return nil, fmt.Errorf("creating route: %w", err)
	}

	// Full re-read rather than an in-memory append, so routes inserted by
	// other callers are neither lost nor duplicated in the cached view.
	list, err := s.repo.ListByOwner(ctx, userID)
	if err != nil {
		key := routeCacheKey(userID)
		if derr := s.cache.Del(ctx, key); derr != nil {
			s.logger.Warn(ctx, "cache invalidation failed after re-read error", "key", key, "error", derr)
		}
		s.logger.Warn(ctx, "route re-read failed after insert, cache entry invalidated", "key", key, "error", err)
		return route, nil
	}

	s.refreshCache(ctx, routeCacheKey(userID), list)

	return route, nil
}

func (s *RouteService) refreshCache(ctx context.Context, key string, list []models.Route) {
	data, err := json.Marshal(list)
	if err != nil {
		s.logger.Error(ctx, "encoding route list for cache", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, data); err != nil {
		s.logger.Warn(ctx, "cache refresh failed, store remains authoritative", "key", key, "error", err)
	}
}
