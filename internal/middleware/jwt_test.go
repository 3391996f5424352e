package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"movie_api/internal/auth"
	"movie_api/internal/models"
	"movie_api/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-test-secret"

type userMap struct {
	users map[uuid.UUID]*models.User
	err   error
}

func (m *userMap) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *userMap) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, models.ErrNotFound
}

type authFixture struct {
	router  *gin.Engine
	users   *userMap
	tokens  *auth.TokenService
	metrics *observability.Metrics
	alice   *models.User
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	alice := &models.User{ID: uuid.New(), Username: "alice"}
	users := &userMap{users: map[uuid.UUID]*models.User{alice.ID: alice}}

	verifier, err := auth.NewCredentialVerifier(users, nil)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(auth.TokenConfig{Secret: []byte(testSecret), TTL: time.Hour}, users)
	require.NoError(t, err)
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	router := gin.New()
	router.Use(AuthMiddleware(auth.NewAuthenticator(verifier, tokens), metrics))
	router.GET("/movies", func(c *gin.Context) {
		fromGin, err := auth.GetUserFromContext(c)
		require.NoError(t, err)
		fromCtx, ok := auth.UserFromContext(c.Request.Context())
		require.True(t, ok)
		assert.Same(t, fromGin, fromCtx)
		c.JSON(http.StatusOK, gin.H{"username": fromGin.Username})
	})

	return &authFixture{router: router, users: users, tokens: tokens, metrics: metrics, alice: alice}
}

func (f *authFixture) get(authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/movies", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	f := newAuthFixture(t)
	token, err := f.tokens.Issue(f.alice)
	require.NoError(t, err)

	w := f.get("Bearer " + token)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"username":"alice"}`, w.Body.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AuthAttemptsTotal.WithLabelValues("bearer", "ok")))
}

func TestAuthMiddleware_RejectionsAreGeneric(t *testing.T) {
	f := newAuthFixture(t)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		UserID: f.alice.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		UserID: f.alice.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("someone-elses-secret"))
	require.NoError(t, err)

	ghost := &models.User{ID: uuid.New(), Username: "ghost"}
	orphan, err := f.tokens.Issue(ghost)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		kind   string
	}{
		{"missing header", "", "missing_token"},
		{"wrong scheme", "Basic YWxpY2U6cw==", "missing_token"},
		{"garbage", "Bearer garbage", "malformed_token"},
		{"bad signature", "Bearer " + forged, "invalid_signature"},
		{"expired", "Bearer " + expired, "expired"},
		{"deleted user", "Bearer " + orphan, "user_not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := f.metrics.AuthAttemptsTotal.WithLabelValues("bearer", tt.kind)
			before := testutil.ToFloat64(counter)

			w := f.get(tt.header)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
			assert.Equal(t, before+1, testutil.ToFloat64(counter))
		})
	}
}

func TestAuthMiddleware_StoreUnavailable(t *testing.T) {
	f := newAuthFixture(t)
	token, err := f.tokens.Issue(f.alice)
	require.NoError(t, err)
	f.users.err = errors.New("connection refused")

	w := f.get("Bearer " + token)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}
