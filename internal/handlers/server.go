package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ArowuTest/rng-engine/internal/config"
	"github.com/ArowuTest/rng-engine/internal/models"
	"github.com/ArowuTest/rng-engine/internal/rng"
	"github.com/ArowuTest/rng-engine/internal/store"
	"github.com/ArowuTest/rng-engine/internal/streams"
)

// Server carries the dependencies of every handler.
type Server struct {
	Store   store.Store
	Streams *streams.Service
}

// NewRouter wires all routes.
func NewRouter(s *Server, frontendURL string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(config.CORSMiddleware(frontendURL))

	writers := RequireAuth(models.RoleAdmin, models.RoleOperator)

	api := r.Group("/api/v1")
	{
		api.POST("/admin/login", s.Login)

		ops := api.Group("/admin/operators", RequireAuth(models.RoleAdmin))
		{
			ops.POST("", s.CreateOperator)
			ops.GET("", s.ListOperators)
		}

		st := api.Group("/streams", RequireAuth())
		{
			st.GET("", s.ListStreams)
			st.GET("/:id", s.GetStream)
			st.GET("/:id/draws", s.ListDraws)

			st.POST("", writers, s.CreateStream)
			st.POST("/:id/draw", writers, s.DrawStream)
			st.POST("/:id/bytes", writers, s.StreamBytes)
			st.POST("/:id/discard", writers, s.DiscardStream)
			st.POST("/:id/jump", writers, s.JumpStream)
			st.POST("/:id/split", writers, s.SplitStream)
			st.POST("/:id/pick", writers, s.PickFromStream)
		}
	}
	return r
}

// respondError maps service errors to HTTP status codes.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Stream not found"})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, streams.ErrInvalid),
		errors.Is(err, rng.ErrUnknownEngine),
		errors.Is(err, rng.ErrUnsupportedSeeding):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, rng.ErrCounterOverflow),
		errors.Is(err, rng.ErrExhausted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("request %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
