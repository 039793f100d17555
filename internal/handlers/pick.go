package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ArowuTest/rng-engine/internal/streams"
)

// pickRequest is the JSON payload for a weighted draw.
type pickRequest struct {
	Count      int                 `json:"count" binding:"required,gte=1"`
	Candidates []streams.Candidate `json:"candidates" binding:"required,min=1"`
}

// PickFromStream handles POST /api/v1/streams/:id/pick
func (s *Server) PickFromStream(c *gin.Context) {
	id, ok := streamID(c)
	if !ok {
		return
	}
	var req pickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload: " + err.Error()})
		return
	}

	res, err := s.Streams.Pick(c.Request.Context(), id, req.Candidates, req.Count, operatorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"draw":    res.Draw,
		"winners": res.Winners,
	})
}

// ListDraws handles GET /api/v1/streams/:id/draws
func (s *Server) ListDraws(c *gin.Context) {
	id, ok := streamID(c)
	if !ok {
		return
	}
	draws, err := s.Streams.Draws(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(draws))
	for i := range draws {
		var winners []string
		if err := json.Unmarshal([]byte(draws[i].Winners), &winners); err != nil {
			respondError(c, err)
			return
		}
		out = append(out, gin.H{"draw": draws[i], "winners": winners})
	}
	c.JSON(http.StatusOK, out)
}
