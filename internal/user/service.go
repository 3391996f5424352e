package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"movie_api/internal/auth"
	"movie_api/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const birthdayLayout = "2006-01-02"

// EventPublisher delivers favorite changes to the favorite-count worker.
type EventPublisher interface {
	PublishFavoriteEvent(ctx context.Context, event models.FavoriteEvent) error
}

type UserService struct {
	repo         UserRepositoryInterface
	hasher       auth.PasswordHasher
	publisher    EventPublisher
	queryTimeout time.Duration
}

type UserServiceInterface interface {
	CreateUser(ctx context.Context, req RegisterRequest) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateUser(ctx context.Context, current *models.User, req UpdateRequest) (*models.User, error)
	DeleteUser(ctx context.Context, current *models.User) error
	AddFavorite(ctx context.Context, current *models.User, movieID uuid.UUID) (*models.User, error)
	RemoveFavorite(ctx context.Context, current *models.User, movieID uuid.UUID) (*models.User, error)
}

// NewUserService wires the repository, the hasher for new passwords and the
// favorite event publisher. publisher may be nil, in which case no events
// are sent.
func NewUserService(repo UserRepositoryInterface, hasher auth.PasswordHasher, publisher EventPublisher, queryTimeout time.Duration) *UserService {
	return &UserService{
		repo:         repo,
		hasher:       hasher,
		publisher:    publisher,
		queryTimeout: queryTimeout,
	}
}

func (s *UserService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

// CreateUser creates a new user with hashed password
func (s *UserService) CreateUser(ctx context.Context, req RegisterRequest) (*models.User, error) {
	birthday, err := parseBirthday(req.Birthday)
	if err != nil {
		return nil, err
	}

	hashedPassword, err := s.hasher.Hash(req.Password)
	if err != nil {
		logrus.WithError(err).Error("Failed to hash password")
		return nil, errors.New("failed to hash password")
	}

	user := &models.User{
		Username:     req.Username,
		PasswordHash: hashedPassword,
		Email:        req.Email,
		Birthday:     birthday,
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves user by ID
func (s *UserService) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.repo.GetByID(ctx, id)
}

// GetUserByUsername retrieves user by username
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.repo.GetByUsername(ctx, username)
}

// UpdateUser applies the non-nil fields of req to current. A new password
// is hashed before it is stored.
func (s *UserService) UpdateUser(ctx context.Context, current *models.User, req UpdateRequest) (*models.User, error) {
	updated := *current

	if req.Username != nil {
		updated.Username = *req.Username
	}
	if req.Email != nil {
		updated.Email = *req.Email
	}
	if req.Birthday != nil {
		birthday, err := parseBirthday(*req.Birthday)
		if err != nil {
			return nil, err
		}
		updated.Birthday = birthday
	}
	if req.Password != nil {
		hashedPassword, err := s.hasher.Hash(*req.Password)
		if err != nil {
			logrus.WithError(err).Error("Failed to hash password")
			return nil, errors.New("failed to hash password")
		}
		updated.PasswordHash = hashedPassword
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteUser removes the account and emits a removal for every favorite it held.
func (s *UserService) DeleteUser(ctx context.Context, current *models.User) error {
	dbCtx, cancel := s.withTimeout(ctx)
	favorites, err := s.repo.Delete(dbCtx, current.ID)
	cancel()
	if err != nil {
		return err
	}

	for _, movieID := range favorites {
		s.publish(ctx, models.FavoriteEvent{
			UserID:  current.ID,
			MovieID: movieID,
			Action:  models.FavoriteRemoved,
		})
	}

	logrus.WithFields(logrus.Fields{
		"user_id":   current.ID,
		"favorites": len(favorites),
	}).Info("User deregistered")
	return nil
}

// AddFavorite returns the refreshed user. Adding a movie twice is a no-op.
func (s *UserService) AddFavorite(ctx context.Context, current *models.User, movieID uuid.UUID) (*models.User, error) {
	dbCtx, cancel := s.withTimeout(ctx)
	added, err := s.repo.AddFavorite(dbCtx, current.ID, movieID)
	cancel()
	if err != nil {
		return nil, err
	}

	if added {
		s.publish(ctx, models.FavoriteEvent{
			UserID:  current.ID,
			MovieID: movieID,
			Action:  models.FavoriteAdded,
		})
	}

	return s.GetUserByID(ctx, current.ID)
}

// RemoveFavorite returns the refreshed user, or models.ErrNotFound when the
// movie was not a favorite.
func (s *UserService) RemoveFavorite(ctx context.Context, current *models.User, movieID uuid.UUID) (*models.User, error) {
	dbCtx, cancel := s.withTimeout(ctx)
	removed, err := s.repo.RemoveFavorite(dbCtx, current.ID, movieID)
	cancel()
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, models.ErrNotFound
	}

	s.publish(ctx, models.FavoriteEvent{
		UserID:  current.ID,
		MovieID: movieID,
		Action:  models.FavoriteRemoved,
	})

	return s.GetUserByID(ctx, current.ID)
}

// publish logs delivery failures and returns; the favorite row is already stored.
func (s *UserService) publish(ctx context.Context, event models.FavoriteEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishFavoriteEvent(ctx, event); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"movie_id": event.MovieID,
			"action":   event.Action,
		}).Warn("Failed to publish favorite event")
	}
}

// ErrInvalidBirthday is returned for a birthday not in YYYY-MM-DD form.
var ErrInvalidBirthday = errors.New("invalid birthday")

func parseBirthday(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(birthdayLayout, value)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBirthday, value)
	}
	return &t, nil
}
