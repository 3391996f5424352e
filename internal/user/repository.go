package user

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"movie_api/internal/models"
	"movie_api/internal/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type UserRepository struct {
	db *sql.DB
}

type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
	AddFavorite(ctx context.Context, userID, movieID uuid.UUID) (bool, error)
	RemoveFavorite(ctx context.Context, userID, movieID uuid.UUID) (bool, error)
}

func NewUserRepository(db *sql.DB) UserRepositoryInterface {
	return &UserRepository{db: db}
}

// Create inserts user and assigns its ID.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (
			id, username, password_hash, email, birthday, created_at
		)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`

	id := uuid.New()
	err := r.db.QueryRowContext(ctx, query,
		id,
		user.Username,
		user.PasswordHash,
		user.Email,
		nullTime(user.Birthday),
	).Scan(&user.CreatedAt)

	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return models.ErrAlreadyExists
		}
		logrus.WithError(err).Error("Failed to create user")
		return err
	}

	user.ID = id
	if user.FavoriteMovies == nil {
		user.FavoriteMovies = []uuid.UUID{}
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  id,
		"username": user.Username,
	}).Info("User created successfully")

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `
		SELECT id, username, password_hash, email, birthday, created_at
		FROM users
		WHERE id = $1
	`

	user, err := r.scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			logrus.WithField("user_id", id).Debug("User not found")
		} else {
			logrus.WithError(err).Error("Failed to get user by ID")
		}
		return nil, err
	}

	return r.withFavorites(ctx, user)
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT id, username, password_hash, email, birthday, created_at
		FROM users
		WHERE username = $1
	`

	user, err := r.scanUser(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			logrus.WithField("username", username).Debug("User not found")
		} else {
			logrus.WithError(err).Error("Failed to get user by username")
		}
		return nil, err
	}

	return r.withFavorites(ctx, user)
}

// Update overwrites the profile and password hash of an existing user.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET username = $1, password_hash = $2, email = $3, birthday = $4
		WHERE id = $5
	`

	result, err := r.db.ExecContext(ctx, query,
		user.Username,
		user.PasswordHash,
		user.Email,
		nullTime(user.Birthday),
		user.ID,
	)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return models.ErrAlreadyExists
		}
		logrus.WithError(err).Error("Failed to update user")
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return models.ErrNotFound
	}

	logrus.WithField("user_id", user.ID).Info("User updated successfully")
	return nil
}

// Delete removes the user and returns the favorites that were dropped with it.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	var favorites []uuid.UUID

	err := utils.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT movie_id FROM user_favorites WHERE user_id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var movieID uuid.UUID
			if err := rows.Scan(&movieID); err != nil {
				return err
			}
			favorites = append(favorites, movieID)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return err
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rowsAffected == 0 {
			return models.ErrNotFound
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			logrus.WithError(err).Error("Failed to delete user")
		}
		return nil, err
	}

	logrus.WithField("user_id", id).Info("User deleted successfully")
	return favorites, nil
}

// AddFavorite reports whether the movie was newly added.
func (r *UserRepository) AddFavorite(ctx context.Context, userID, movieID uuid.UUID) (bool, error) {
	query := `
		INSERT INTO user_favorites (user_id, movie_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, movie_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query, userID, movieID)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return false, models.ErrNotFound
		}
		logrus.WithError(err).Error("Failed to add favorite")
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

// RemoveFavorite reports whether the movie was in the user's favorites.
func (r *UserRepository) RemoveFavorite(ctx context.Context, userID, movieID uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM user_favorites WHERE user_id = $1 AND movie_id = $2`,
		userID, movieID,
	)
	if err != nil {
		logrus.WithError(err).Error("Failed to remove favorite")
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

func (r *UserRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var birthday sql.NullTime

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Email,
		&birthday,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}

	if birthday.Valid {
		b := birthday.Time
		user.Birthday = &b
	}
	return user, nil
}

func (r *UserRepository) withFavorites(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		SELECT movie_id
		FROM user_favorites
		WHERE user_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, user.ID)
	if err != nil {
		logrus.WithError(err).Error("Failed to list favorites")
		return nil, err
	}
	defer rows.Close()

	user.FavoriteMovies = []uuid.UUID{}
	for rows.Next() {
		var movieID uuid.UUID
		if err := rows.Scan(&movieID); err != nil {
			return nil, err
		}
		user.FavoriteMovies = append(user.FavoriteMovies, movieID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return user, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
