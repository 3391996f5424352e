package movie

import (
	"errors"
	"net/http"

	"movie_api/internal/models"

	"github.com/gin-gonic/gin"
)

type MovieController struct {
	service MovieServiceInterface
}

func NewMovieController(service MovieServiceInterface) *MovieController {
	return &MovieController{
		service: service,
	}
}

// SetupRoutes registers the catalog read routes. r is expected to carry the
// bearer authentication middleware.
func (mc *MovieController) SetupRoutes(r gin.IRoutes) {
	r.GET("/movies", mc.GetMovies)
	r.GET("/movies/:title", mc.GetMovie)
	r.GET("/movies/genre/:genreName", mc.GetGenre)
	r.GET("/movies/directors/:directorName", mc.GetDirector)
}

func (mc *MovieController) GetMovies(c *gin.Context) {
	movies, err := mc.service.GetMovies(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get movies"})
		return
	}

	c.JSON(http.StatusOK, movies)
}

func (mc *MovieController) GetMovie(c *gin.Context) {
	movie, err := mc.service.GetMovie(c.Request.Context(), c.Param("title"))
	if err != nil {
		respondLookupError(c, err, "Movie not found")
		return
	}

	c.JSON(http.StatusOK, movie)
}

func (mc *MovieController) GetGenre(c *gin.Context) {
	genre, err := mc.service.GetGenre(c.Request.Context(), c.Param("genreName"))
	if err != nil {
		respondLookupError(c, err, "Genre not found")
		return
	}

	c.JSON(http.StatusOK, genre)
}

func (mc *MovieController) GetDirector(c *gin.Context) {
	director, err := mc.service.GetDirector(c.Request.Context(), c.Param("directorName"))
	if err != nil {
		respondLookupError(c, err, "Director not found")
		return
	}

	c.JSON(http.StatusOK, director)
}

func respondLookupError(c *gin.Context, err error, notFound string) {
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read catalog"})
}
