package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ArowuTest/rng-engine/internal/models"
	"github.com/ArowuTest/rng-engine/internal/streams"
)

func streamID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid UUID format"})
		return uuid.Nil, false
	}
	return id, true
}

func streamView(st *models.Stream) gin.H {
	return gin.H{
		"stream_id":   st.ID,
		"fingerprint": st.Fingerprint,
		"revision":    st.Revision,
	}
}

// CreateStream handles POST /api/v1/streams
func (s *Server) CreateStream(c *gin.Context) {
	var req struct {
		Engine string  `json:"engine" binding:"required"`
		Seed   *uint64 `json:"seed,omitempty"`
		Label  string  `json:"label,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload: " + err.Error()})
		return
	}
	st, err := s.Streams.Create(c.Request.Context(), streams.CreateParams{
		Engine:    req.Engine,
		Seed:      req.Seed,
		Label:     req.Label,
		CreatedBy: operatorID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

// ListStreams handles GET /api/v1/streams
func (s *Server) ListStreams(c *gin.Context) {
	list, err := s.Streams.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetStream handles GET /api/v1/streams/:id
func (s *Server) GetStream(c *gin.Context) {
	id, ok := streamID(c)
	if !ok {
		return
	}
	st, err := s.Streams.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// DrawStream handles POST /api/v1/streams/:id/draw
func (s *Server) DrawStream(c *gin.Context) {
	id, ok := streamID(c)
	if !ok {
		return
	}
	var req struct {
		Count int     `json:"count" binding:"required"`
		Lo    *uint64 `json:"lo,omitempty"`
		Hi    *uint64 `json:"hi,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload: " + err.Error()})
		return
	}
	values, st, err := s.Streams.Draw(c.Request.Context(), id, streams.DrawParams{Count: req.Count, Lo: req.Lo, Hi: req.Hi})
	if err != nil {
		respondError(c, err)
		return
	}
	resp := streamView(st)
	resp["values"] = values
	c.JSON(http.StatusOK, resp)
}

// StreamBytes handles POST /api/v1/streams/:id/bytes. With ?format=raw the
// bytes are sent as the body instead of base64 JSON.
func (s *Server) StreamBytes(c *gin.Context) {
	id, ok := streamID(c)
	if !ok {
		return
	}
	var req struct {
		Length int `json:"length" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload: " + err.Error()})
		return
	}
	buf, st, err := s.Streams.Bytes(c.Request.Context(), id, req.Length)
	if err != nil {
		respondError(c, err)
		return
	}
	if c.Query("format") == "raw" {
		c.Header("X-Stream-Fingerprint", st.Fingerprint)
		c.Data(http.StatusOK, "application/octet-stream", buf)
		return
	}
	resp := streamView(st)
	resp["bytes"] = buf
	c.JSON(http.StatusOK, resp)
}

// DiscardStream handles POST /api/v1/streams/:id/discard
func (s *Server) DiscardStream(c *gin.Context) {
	id, ok := streamID(c)
	if !ok {
		return
	}
	var req struct {
		N uint64 `json:"n"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload: " + err.Error()})
		return
	}
	st, err := s.Streams.Discard(c.Request.Context(), id, req.N)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, streamView(st))
}

// JumpStream handles POST /api/v1/streams/:id/jump
func (s *Server) JumpStream(c *gin.Context) {
	id, ok := streamID(c)
	if !ok {
		return
	}
	var req struct {
		Kind string `json:"kind"` // "jump" (default) or "long"
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload: " + err.Error()})
		return
	}
	var long bool
	switch req.Kind {
	case "", "jump":
	case "long":
		long = true
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be jump or long"})
		return
	}
	st, err := s.Streams.Jump(c.Request.Context(), id, long)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, streamView(st))
}

// SplitStream handles POST /api/v1/streams/:id/split
func (s *Server) SplitStream(c *gin.Context) {
	id, ok := streamID(c)
	if !ok {
		return
	}
	var req struct {
		N int `json:"n" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload: " + err.Error()})
		return
	}
	children, err := s.Streams.Split(c.Request.Context(), id, req.N, operatorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, children)
}
