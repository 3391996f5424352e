package movie

import (
	"context"
	"encoding/json"
	"time"

	"movie_api/internal/cache"
	"movie_api/internal/models"
	"movie_api/internal/observability"

	"github.com/sirupsen/logrus"
)

// Cache is the read-through store in front of the catalog tables.
// Get returns nil, nil on a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data interface{}) error
	Delete(ctx context.Context, keys ...string) error
}

type MovieServiceInterface interface {
	GetMovies(ctx context.Context) ([]*models.Movie, error)
	GetMovie(ctx context.Context, title string) (*models.Movie, error)
	GetGenre(ctx context.Context, name string) (*models.Genre, error)
	GetDirector(ctx context.Context, name string) (*models.Director, error)
}

type MovieService struct {
	repo         MovieRepositoryInterface
	cache        Cache
	metrics      *observability.Metrics
	queryTimeout time.Duration
}

// NewMovieService builds the catalog service. cache may be nil.
func NewMovieService(repo MovieRepositoryInterface, c Cache, metrics *observability.Metrics, queryTimeout time.Duration) *MovieService {
	return &MovieService{
		repo:         repo,
		cache:        c,
		metrics:      metrics,
		queryTimeout: queryTimeout,
	}
}

func (s *MovieService) GetMovies(ctx context.Context) ([]*models.Movie, error) {
	return readThrough(ctx, s, cache.MoviesKey(), "movies", s.repo.List)
}

func (s *MovieService) GetMovie(ctx context.Context, title string) (*models.Movie, error) {
	return readThrough(ctx, s, cache.MovieKey(title), "movie", func(ctx context.Context) (*models.Movie, error) {
		return s.repo.GetByTitle(ctx, title)
	})
}

func (s *MovieService) GetGenre(ctx context.Context, name string) (*models.Genre, error) {
	return readThrough(ctx, s, cache.GenreKey(name), "genre", func(ctx context.Context) (*models.Genre, error) {
		return s.repo.GetGenre(ctx, name)
	})
}

func (s *MovieService) GetDirector(ctx context.Context, name string) (*models.Director, error) {
	return readThrough(ctx, s, cache.DirectorKey(name), "director", func(ctx context.Context) (*models.Director, error) {
		return s.repo.GetDirector(ctx, name)
	})
}

// readThrough serves key from the cache, falling back to load and filling
// the cache on a miss. Cache failures degrade to a database read.
func readThrough[T any](ctx context.Context, s *MovieService, key, keyType string, load func(context.Context) (T, error)) (T, error) {
	if s.cache != nil {
		cachedData, err := s.cache.Get(ctx, key)
		if err != nil {
			logrus.WithError(err).WithField("key", key).Warn("Failed to read catalog cache")
		} else if cachedData != nil {
			var value T
			if json.Unmarshal(cachedData, &value) == nil {
				s.metrics.CacheHit(keyType)
				logrus.WithField("key", key).Debug("cache hit")
				return value, nil
			}
		}
	}
	s.metrics.CacheMiss(keyType)

	dbCtx := ctx
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		dbCtx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}

	value, err := load(dbCtx)
	if err != nil {
		return value, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, value); err != nil {
			logrus.WithError(err).WithField("key", key).Warn("Failed to set catalog cache")
		}
	}
	return value, nil
}

// InvalidateMovie drops the cached entries that embed the movie's favorite count.
func InvalidateMovie(ctx context.Context, c Cache, title string) error {
	if c == nil {
		return nil
	}
	return c.Delete(ctx, cache.MoviesKey(), cache.MovieKey(title))
}
