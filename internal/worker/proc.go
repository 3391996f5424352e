package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"movie_api/internal/models"
	"movie_api/internal/movie"
	"movie_api/internal/utils"

	"github.com/sirupsen/logrus"
)

// ErrPermanent marks events that will never succeed and must not be retried.
var ErrPermanent = errors.New("permanent event failure")

// Processor applies favorite events to the movies table.
type Processor struct {
	db     *sql.DB
	movies movie.MovieRepositoryInterface
	cache  movie.Cache
}

// NewProcessor builds the processor. cache may be nil.
func NewProcessor(db *sql.DB, movies movie.MovieRepositoryInterface, cache movie.Cache) *Processor {
	return &Processor{
		db:     db,
		movies: movies,
		cache:  cache,
	}
}

// Process adjusts the movie's favorite count by the event's delta and drops
// the cached catalog entries that include it.
func (p *Processor) Process(ctx context.Context, event models.FavoriteEvent, workerID int) error {
	delta := event.Delta()
	if delta == 0 {
		return fmt.Errorf("%w: unknown action %q", ErrPermanent, event.Action)
	}

	var title string
	err := utils.WithTransaction(ctx, p.db, func(tx *sql.Tx) error {
		var err error
		title, err = p.movies.AdjustFavoriteCount(ctx, tx, event.MovieID, delta)
		return err
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("%w: movie %s not found", ErrPermanent, event.MovieID)
		}
		return err
	}

	if err := movie.InvalidateMovie(ctx, p.cache, title); err != nil {
		logrus.WithError(err).WithField("title", title).Warn("Failed to invalidate catalog cache")
	}

	logrus.Infof("Worker %d applied %s for movie=%q (delta %+d)", workerID, event.Action, title, delta)
	return nil
}
