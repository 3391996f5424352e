package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"movie_api/internal/auth"
	"movie_api/internal/models"
	"movie_api/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockUserService is a mock implementation of UserServiceInterface. It also
// serves as the auth.UserStore behind the login route.
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) CreateUser(ctx context.Context, req RegisterRequest) (*models.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) UpdateUser(ctx context.Context, current *models.User, req UpdateRequest) (*models.User, error) {
	args := m.Called(ctx, current, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) DeleteUser(ctx context.Context, current *models.User) error {
	args := m.Called(ctx, current)
	return args.Error(0)
}

func (m *MockUserService) AddFavorite(ctx context.Context, current *models.User, movieID uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, current, movieID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) RemoveFavorite(ctx context.Context, current *models.User, movieID uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, current, movieID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type testEnv struct {
	router  *gin.Engine
	service *MockUserService
	metrics *observability.Metrics
	tokens  *auth.TokenService
}

// setupTestRouter mounts the controller with a fake auth middleware that
// authenticates every protected request as current.
func setupTestRouter(t *testing.T, current *models.User) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, RegisterValidators(40))

	service := new(MockUserService)
	verifier, err := auth.NewCredentialVerifier(service, nil)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(auth.TokenConfig{Secret: []byte("test-secret"), TTL: time.Hour}, service)
	require.NoError(t, err)
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	controller := NewUserController(service, auth.NewAuthenticator(verifier, tokens), metrics)

	router := gin.New()
	protected := router.Group("/", func(c *gin.Context) {
		c.Set(auth.UserKey, current)
		c.Next()
	})
	controller.SetupRoutes(router, protected)

	return &testEnv{router: router, service: service, metrics: metrics, tokens: tokens}
}

func (e *testEnv) do(method, path, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func storedUser(t *testing.T, username, password string) *models.User {
	t.Helper()
	hash, err := auth.GeneratePasswordHash(password, bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:             uuid.New(),
		Username:       username,
		PasswordHash:   hash,
		Email:          username + "@example.com",
		FavoriteMovies: []uuid.UUID{},
	}
}

func TestLogin_Success_JSON(t *testing.T) {
	alice := storedUser(t, "alice", "S3cret!")
	env := setupTestRouter(t, nil)
	env.service.On("GetUserByUsername", mock.Anything, "alice").Return(alice, nil)
	env.service.On("GetUserByID", mock.Anything, alice.ID).Return(alice, nil)

	w := env.do(http.MethodPost, "/login", "application/json", `{"Username":"alice","Password":"S3cret!"}`)

	require.Equal(t, http.StatusOK, w.Code)
	response := decode(t, w)

	token, ok := response["token"].(string)
	require.True(t, ok)
	resolved, err := env.tokens.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, resolved.ID)

	user := response["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["Username"])
	assert.Equal(t, alice.ID.String(), user["_id"])
	assert.NotContains(t, w.Body.String(), alice.PasswordHash)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.AuthAttemptsTotal.WithLabelValues("local", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.TokensIssuedTotal))
}

func TestLogin_Success_Form(t *testing.T) {
	alice := storedUser(t, "alice", "S3cret!")
	env := setupTestRouter(t, nil)
	env.service.On("GetUserByUsername", mock.Anything, "alice").Return(alice, nil)

	form := url.Values{"Username": {"alice"}, "Password": {"S3cret!"}}
	w := env.do(http.MethodPost, "/login", "application/x-www-form-urlencoded", form.Encode())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["token"])
}

func TestLogin_Rejected(t *testing.T) {
	alice := storedUser(t, "alice", "S3cret!")

	tests := []struct {
		name string
		body string
	}{
		{"wrong password", `{"Username":"alice","Password":"wrong"}`},
		{"unknown user", `{"Username":"mallory","Password":"S3cret!"}`},
		{"missing password", `{"Username":"alice"}`},
		{"invalid json", `{"Username":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestRouter(t, nil)
			env.service.On("GetUserByUsername", mock.Anything, "alice").Return(alice, nil).Maybe()
			env.service.On("GetUserByUsername", mock.Anything, "mallory").Return(nil, models.ErrNotFound).Maybe()

			w := env.do(http.MethodPost, "/login", "application/json", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			response := decode(t, w)
			assert.Equal(t, "Something is not right", response["message"])
			assert.Contains(t, response, "user")
			assert.Nil(t, response["user"])
			assert.NotContains(t, response, "token")
			assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.AuthAttemptsTotal.WithLabelValues("local", "invalid_credentials")))
		})
	}
}

func TestLogin_StoreUnavailable(t *testing.T) {
	env := setupTestRouter(t, nil)
	env.service.On("GetUserByUsername", mock.Anything, "alice").Return(nil, errors.New("connection refused"))

	w := env.do(http.MethodPost, "/login", "application/json", `{"Username":"alice","Password":"S3cret!"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.AuthAttemptsTotal.WithLabelValues("local", "store_unavailable")))
}

func TestRegister_Success(t *testing.T) {
	env := setupTestRouter(t, nil)
	created := &models.User{ID: uuid.New(), Username: "alice", Email: "alice@example.com", FavoriteMovies: []uuid.UUID{}}

	env.service.On("CreateUser", mock.Anything, RegisterRequest{
		Username: "alice",
		Password: "S3cret!",
		Email:    "alice@example.com",
		Birthday: "1990-02-03",
	}).Return(created, nil)

	w := env.do(http.MethodPost, "/users", "application/json",
		`{"Username":"alice","Password":"S3cret!","Email":"alice@example.com","Birthday":"1990-02-03"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "alice", decode(t, w)["Username"])
	env.service.AssertExpectations(t)
}

func TestRegister_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"username too short", `{"Username":"bob","Password":"S3cret!","Email":"bob@example.com"}`},
		{"username not alphanumeric", `{"Username":"bob_smith","Password":"S3cret!","Email":"bob@example.com"}`},
		{"weak password", `{"Username":"alice","Password":"aaaa","Email":"alice@example.com"}`},
		{"missing password", `{"Username":"alice","Email":"alice@example.com"}`},
		{"invalid email", `{"Username":"alice","Password":"S3cret!","Email":"not-an-email"}`},
		{"invalid birthday", `{"Username":"alice","Password":"S3cret!","Email":"alice@example.com","Birthday":"1990/02/03"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestRouter(t, nil)

			w := env.do(http.MethodPost, "/users", "application/json", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			env.service.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	env := setupTestRouter(t, nil)
	env.service.On("CreateUser", mock.Anything, mock.Anything).Return(nil, models.ErrAlreadyExists)

	w := env.do(http.MethodPost, "/users", "application/json",
		`{"Username":"alice","Password":"S3cret!","Email":"alice@example.com"}`)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, decode(t, w)["error"], "already exists")
}

func TestGetUser_Self(t *testing.T) {
	alice := storedUser(t, "alice", "S3cret!")
	env := setupTestRouter(t, alice)

	w := env.do(http.MethodGet, "/users/alice", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", decode(t, w)["Username"])
}

func TestSelfRoutes_ForbiddenForOtherUser(t *testing.T) {
	alice := storedUser(t, "alice", "S3cret!")
	movieID := uuid.NewString()

	routes := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/users/bobby", ""},
		{http.MethodPut, "/users/bobby", `{"Email":"x@example.com"}`},
		{http.MethodDelete, "/users/bobby", ""},
		{http.MethodPost, "/users/bobby/movies/" + movieID, ""},
		{http.MethodDelete, "/users/bobby/movies/" + movieID, ""},
	}

	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			env := setupTestRouter(t, alice)

			w := env.do(r.method, r.path, "application/json", r.body)

			assert.Equal(t, http.StatusForbidden, w.Code)
			assert.Equal(t, "Permission denied", decode(t, w)["error"])
			env.service.AssertExpectations(t)
		})
	}
}

func TestUpdateUser(t *testing.T) {
	alice := storedUser(t, "alice", "S3cret!")

	t.Run("success", func(t *testing.T) {
		env := setupTestRouter(t, alice)
		updated := *alice
		updated.Email = "new@example.com"
		env.service.On("UpdateUser", mock.Anything, alice, mock.AnythingOfType("user.UpdateRequest")).Return(&updated, nil)

		w := env.do(http.MethodPut, "/users/alice", "application/json", `{"Email":"new@example.com"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "new@example.com", decode(t, w)["Email"])
	})

	t.Run("form body", func(t *testing.T) {
		env := setupTestRouter(t, alice)
		updated := *alice
		updated.Email = "form@example.com"
		env.service.On("UpdateUser", mock.Anything, alice, mock.MatchedBy(func(req UpdateRequest) bool {
			return req.Email != nil && *req.Email == "form@example.com" &&
				req.Username == nil && req.Password == nil && req.Birthday == nil
		})).Return(&updated, nil)

		form := url.Values{"Email": {"form@example.com"}}
		w := env.do(http.MethodPut, "/users/alice", "application/x-www-form-urlencoded", form.Encode())

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "form@example.com", decode(t, w)["Email"])
		env.service.AssertExpectations(t)
	})

	t.Run("invalid form email", func(t *testing.T) {
		env := setupTestRouter(t, alice)

		form := url.Values{"Email": {"not-an-email"}}
		w := env.do(http.MethodPut, "/users/alice", "application/x-www-form-urlencoded", form.Encode())

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env.service.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("username taken", func(t *testing.T) {
		env := setupTestRouter(t, alice)
		env.service.On("UpdateUser", mock.Anything, alice, mock.Anything).Return(nil, models.ErrAlreadyExists)

		w := env.do(http.MethodPut, "/users/alice", "application/json", `{"Username":"bobby"}`)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("weak password", func(t *testing.T) {
		env := setupTestRouter(t, alice)

		w := env.do(http.MethodPut, "/users/alice", "application/json", `{"Password":"abc"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env.service.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDeleteUser(t *testing.T) {
	alice := storedUser(t, "alice", "S3cret!")
	env := setupTestRouter(t, alice)
	env.service.On("DeleteUser", mock.Anything, alice).Return(nil)

	w := env.do(http.MethodDelete, "/users/alice", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice was deregistered", decode(t, w)["message"])
	env.service.AssertExpectations(t)
}

func TestAddFavorite(t *testing.T) {
	alice := storedUser(t, "alice", "S3cret!")
	movieID := uuid.New()

	t.Run("success", func(t *testing.T) {
		env := setupTestRouter(t, alice)
		refreshed := *alice
		refreshed.FavoriteMovies = []uuid.UUID{movieID}
		env.service.On("AddFavorite", mock.Anything, alice, movieID).Return(&refreshed, nil)

		w := env.do(http.MethodPost, "/users/alice/movies/"+movieID.String(), "", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []interface{}{movieID.String()}, decode(t, w)["FavoriteMovies"])
	})

	t.Run("invalid movie id", func(t *testing.T) {
		env := setupTestRouter(t, alice)

		w := env.do(http.MethodPost, "/users/alice/movies/not-a-uuid", "", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown movie", func(t *testing.T) {
		env := setupTestRouter(t, alice)
		env.service.On("AddFavorite", mock.Anything, alice, movieID).Return(nil, models.ErrNotFound)

		w := env.do(http.MethodPost, "/users/alice/movies/"+movieID.String(), "", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestRemoveFavorite_NotInFavorites(t *testing.T) {
	alice := storedUser(t, "alice", "S3cret!")
	movieID := uuid.New()
	env := setupTestRouter(t, alice)
	env.service.On("RemoveFavorite", mock.Anything, alice, movieID).Return(nil, models.ErrNotFound)

	w := env.do(http.MethodDelete, "/users/alice/movies/"+movieID.String(), "", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}
