package user

import (
	"errors"
	"net/http"

	"movie_api/internal/auth"
	"movie_api/internal/models"
	"movie_api/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type UserController struct {
	userService   UserServiceInterface
	authenticator *auth.Authenticator
	metrics       *observability.Metrics
}

func NewUserController(userService UserServiceInterface, authenticator *auth.Authenticator, metrics *observability.Metrics) *UserController {
	return &UserController{
		userService:   userService,
		authenticator: authenticator,
		metrics:       metrics,
	}
}

// SetupRoutes registers login and registration on public and the
// self-service routes on protected. loginMiddleware runs in front of /login.
func (a *UserController) SetupRoutes(public, protected gin.IRoutes, loginMiddleware ...gin.HandlerFunc) {
	public.POST("/login", append(loginMiddleware, a.Login)...)
	public.POST("/users", a.Register)

	protected.GET("/users/:username", a.GetUser)
	protected.PUT("/users/:username", a.UpdateUser)
	protected.DELETE("/users/:username", a.DeleteUser)
	protected.POST("/users/:username/movies/:movieID", a.AddFavorite)
	protected.DELETE("/users/:username/movies/:movieID", a.RemoveFavorite)
}

// Login handles user login and returns the user with a signed token
func (a *UserController) Login(c *gin.Context) {
	var creds auth.Credentials
	if err := c.ShouldBind(&creds); err != nil {
		a.metrics.ObserveAuth("local", auth.Kind(auth.ErrInvalidCredentials))
		a.loginFailed(c)
		return
	}

	user, err := a.authenticator.AuthenticateLocal(c.Request.Context(), creds)
	if err != nil {
		kind := auth.Kind(err)
		a.metrics.ObserveAuth("local", kind)

		if errors.Is(err, auth.ErrStoreUnavailable) {
			logrus.WithError(err).Error("Login failed: user store unavailable")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		logrus.WithField("kind", kind).Info("Login rejected")
		a.loginFailed(c)
		return
	}

	token, err := a.authenticator.Issue(user)
	if err != nil {
		a.metrics.ObserveAuth("local", auth.Kind(err))
		logrus.WithError(err).WithField("user_id", user.ID).Error("Failed to issue token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	a.metrics.ObserveAuth("local", auth.Kind(nil))
	a.metrics.TokenIssued()

	c.JSON(http.StatusOK, gin.H{
		"user":  user,
		"token": token,
	})
}

func (a *UserController) loginFailed(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{
		"message": "Something is not right",
		"user":    nil,
	})
}

// Register handles user registration
func (a *UserController) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := a.userService.CreateUser(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrAlreadyExists):
			c.JSON(http.StatusConflict, gin.H{"error": req.Username + " already exists"})
		case errors.Is(err, ErrInvalidBirthday):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		}
		return
	}

	c.JSON(http.StatusCreated, user)
}

// GetUser returns the authenticated user's own profile.
func (a *UserController) GetUser(c *gin.Context) {
	current, ok := a.self(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, current)
}

func (a *UserController) UpdateUser(c *gin.Context) {
	current, ok := a.self(c)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := a.userService.UpdateUser(c.Request.Context(), current, req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrAlreadyExists):
			c.JSON(http.StatusConflict, gin.H{"error": "Username already exists"})
		case errors.Is(err, models.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		case errors.Is(err, ErrInvalidBirthday):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		}
		return
	}

	c.JSON(http.StatusOK, user)
}

func (a *UserController) DeleteUser(c *gin.Context) {
	current, ok := a.self(c)
	if !ok {
		return
	}

	if err := a.userService.DeleteUser(c.Request.Context(), current); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": current.Username + " was deregistered"})
}

func (a *UserController) AddFavorite(c *gin.Context) {
	current, ok := a.self(c)
	if !ok {
		return
	}

	movieID, err := uuid.Parse(c.Param("movieID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid movie ID"})
		return
	}

	user, err := a.userService.AddFavorite(c.Request.Context(), current, movieID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Movie not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add favorite"})
		return
	}

	c.JSON(http.StatusOK, user)
}

func (a *UserController) RemoveFavorite(c *gin.Context) {
	current, ok := a.self(c)
	if !ok {
		return
	}

	movieID, err := uuid.Parse(c.Param("movieID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid movie ID"})
		return
	}

	user, err := a.userService.RemoveFavorite(c.Request.Context(), current, movieID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Movie is not in favorites"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove favorite"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// self returns the authenticated user if it owns the :username path segment,
// otherwise writes the error response.
func (a *UserController) self(c *gin.Context) (*models.User, bool) {
	current, err := auth.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}

	if current.Username != c.Param("username") {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return nil, false
	}

	return current, true
}
