package movie

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"movie_api/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const movieColumns = `
	id, title, description,
	genre_name, genre_description,
	director_name, director_bio, director_birth,
	actors, image_path, featured, favorite_count
`

type MovieRepository struct {
	db *sql.DB
}

type MovieRepositoryInterface interface {
	List(ctx context.Context) ([]*models.Movie, error)
	GetByTitle(ctx context.Context, title string) (*models.Movie, error)
	GetGenre(ctx context.Context, name string) (*models.Genre, error)
	GetDirector(ctx context.Context, name string) (*models.Director, error)
	AdjustFavoriteCount(ctx context.Context, tx *sql.Tx, id uuid.UUID, delta int) (string, error)
}

func NewMovieRepository(db *sql.DB) MovieRepositoryInterface {
	return &MovieRepository{db: db}
}

// List returns the whole catalog ordered by title.
func (r *MovieRepository) List(ctx context.Context) ([]*models.Movie, error) {
	query := `SELECT ` + movieColumns + ` FROM movies ORDER BY title`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logrus.WithError(err).Error("Failed to list movies")
		return nil, err
	}
	defer rows.Close()

	movies := []*models.Movie{}
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			logrus.WithError(err).Error("Failed to scan movie")
			return nil, err
		}
		movies = append(movies, movie)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return movies, nil
}

// GetByTitle retrieves a movie by title, ignoring case
func (r *MovieRepository) GetByTitle(ctx context.Context, title string) (*models.Movie, error) {
	query := `SELECT ` + movieColumns + ` FROM movies WHERE LOWER(title) = LOWER($1)`

	movie, err := scanMovie(r.db.QueryRowContext(ctx, query, title))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		logrus.WithError(err).Error("Failed to get movie by title")
		return nil, err
	}
	return movie, nil
}

func (r *MovieRepository) GetGenre(ctx context.Context, name string) (*models.Genre, error) {
	query := `
		SELECT genre_name, genre_description
		FROM movies
		WHERE LOWER(genre_name) = LOWER($1)
		LIMIT 1
	`

	genre := &models.Genre{}
	err := r.db.QueryRowContext(ctx, query, name).Scan(&genre.Name, &genre.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		logrus.WithError(err).Error("Failed to get genre")
		return nil, err
	}
	return genre, nil
}

func (r *MovieRepository) GetDirector(ctx context.Context, name string) (*models.Director, error) {
	query := `
		SELECT director_name, director_bio, director_birth
		FROM movies
		WHERE LOWER(director_name) = LOWER($1)
		LIMIT 1
	`

	director := &models.Director{}
	var birth sql.NullInt32
	err := r.db.QueryRowContext(ctx, query, name).Scan(&director.Name, &director.Bio, &birth)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		logrus.WithError(err).Error("Failed to get director")
		return nil, err
	}

	if birth.Valid {
		b := int(birth.Int32)
		director.Birth = &b
	}
	return director, nil
}

// AdjustFavoriteCount adds delta to the movie's favorite count, never going
// below zero, and returns the movie title.
func (r *MovieRepository) AdjustFavoriteCount(ctx context.Context, tx *sql.Tx, id uuid.UUID, delta int) (string, error) {
	query := `
		UPDATE movies
		SET favorite_count = GREATEST(favorite_count + $1, 0)
		WHERE id = $2
		RETURNING title
	`

	var title string
	err := tx.QueryRowContext(ctx, query, delta, id).Scan(&title)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", models.ErrNotFound
		}
		logrus.WithError(err).Error("Failed to adjust favorite count")
		return "", err
	}
	return title, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMovie(row rowScanner) (*models.Movie, error) {
	movie := &models.Movie{}
	var birth sql.NullInt32
	var actors string

	err := row.Scan(
		&movie.ID,
		&movie.Title,
		&movie.Description,
		&movie.Genre.Name,
		&movie.Genre.Description,
		&movie.Director.Name,
		&movie.Director.Bio,
		&birth,
		&actors,
		&movie.ImagePath,
		&movie.Featured,
		&movie.FavoriteCount,
	)
	if err != nil {
		return nil, err
	}

	if birth.Valid {
		b := int(birth.Int32)
		movie.Director.Birth = &b
	}
	movie.Actors = splitActors(actors)
	return movie, nil
}

func splitActors(value string) []string {
	actors := []string{}
	for _, a := range strings.Split(value, ",") {
		if a = strings.TrimSpace(a); a != "" {
			actors = append(actors, a)
		}
	}
	return actors
}
