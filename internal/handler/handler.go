package handler

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"movie_api/internal/auth"
	"movie_api/internal/cache"
	"movie_api/internal/config"
	"movie_api/internal/middleware"
	"movie_api/internal/movie"
	"movie_api/internal/observability"
	"movie_api/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const welcomeText = "Welcome to the movie API!"

// Deps are the stores and clients the router is built on. Redis, Cache and
// Publisher are optional: without Redis the per-user rate limit is off,
// without Cache catalog reads go straight to the repository and without
// Publisher favorite changes emit no events.
type Deps struct {
	Users     user.UserRepositoryInterface
	Movies    movie.MovieRepositoryInterface
	Cache     movie.Cache
	Redis     *redis.Client
	Publisher user.EventPublisher
	Metrics   *observability.Metrics
	Gatherer  prometheus.Gatherer
}

// SetupHandler initializes all dependencies and routes
func SetupHandler(db *sql.DB, publisher user.EventPublisher, redisClient *redis.Client, cfg *config.Config, metrics *observability.Metrics) (*gin.Engine, error) {
	deps := Deps{
		Users:     user.NewUserRepository(db),
		Movies:    movie.NewMovieRepository(db),
		Redis:     redisClient,
		Publisher: publisher,
		Metrics:   metrics,
	}
	// a nil *CatalogCache must not end up inside the interface
	if redisClient != nil {
		deps.Cache = cache.NewCatalogCache(redisClient)
	}

	return NewRouter(cfg, deps)
}

// NewRouter wires services, the auth core and controllers onto a gin engine.
func NewRouter(cfg *config.Config, deps Deps) (*gin.Engine, error) {
	if err := user.RegisterValidators(cfg.Password.MinEntropy); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}

	hasher, err := auth.NewPasswordHasher(cfg.Password.HashAlgo)
	if err != nil {
		return nil, err
	}

	// Initialize services
	userService := user.NewUserService(deps.Users, hasher, deps.Publisher, cfg.DB.QueryTimeout)
	movieService := movie.NewMovieService(deps.Movies, deps.Cache, deps.Metrics, cfg.DB.QueryTimeout)

	verifier, err := auth.NewCredentialVerifier(userService, hasher)
	if err != nil {
		return nil, err
	}
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret: []byte(cfg.JWT.Secret),
		TTL:    cfg.JWT.TokenTTL,
		Issuer: cfg.JWT.Issuer,
	}, userService)
	if err != nil {
		return nil, fmt.Errorf("token service: %w", err)
	}
	authenticator := auth.NewAuthenticator(verifier, tokens)

	// Initialize controllers
	userController := user.NewUserController(userService, authenticator, deps.Metrics)
	movieController := movie.NewMovieController(movieService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.PrometheusMiddleware(deps.Metrics))
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	// Public routes
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, welcomeText)
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// Protected routes
	protected := r.Group("/")
	protected.Use(middleware.AuthMiddleware(authenticator, deps.Metrics))
	if deps.Redis != nil {
		protected.Use(middleware.RateLimiterMiddleware(deps.Redis, middleware.DefaultRateLimiterConfig(), deps.Metrics))
	}

	loginLimiter := middleware.NewLoginLimiter(cfg.Login.RatePerSecond, cfg.Login.Burst, deps.Metrics)

	userController.SetupRoutes(r, protected, loginLimiter.Middleware())
	movieController.SetupRoutes(protected)

	return r, nil
}
