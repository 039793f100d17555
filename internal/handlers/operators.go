package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ArowuTest/rng-engine/internal/auth"
	"github.com/ArowuTest/rng-engine/internal/models"
	"github.com/ArowuTest/rng-engine/internal/store"
)

// CreateOperator creates a new operator account.
func (s *Server) CreateOperator(c *gin.Context) {
	var input struct {
		Username string                `json:"username" binding:"required"`
		Email    string                `json:"email" binding:"required,email"`
		Password string                `json:"password" binding:"required,min=8"`
		Role     models.OperatorRole   `json:"role" binding:"required"`
		Status   models.OperatorStatus `json:"status,omitempty"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload: " + err.Error()})
		return
	}
	if !input.Role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}

	op := models.Operator{
		ID:       uuid.New(),
		Username: input.Username,
		Email:    input.Email,
		Role:     input.Role,
		Status:   models.StatusActive,
	}
	switch input.Status {
	case "":
	case models.StatusActive, models.StatusInactive, models.StatusLocked:
		op.Status = input.Status
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	hashed, err := auth.HashPassword(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}
	op.PasswordHash = hashed

	if err := s.Store.CreateOperator(c.Request.Context(), &op); err != nil {
		if errors.Is(err, store.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "Username or email already in use"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create operator: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, op)
}

// ListOperators returns all operators. Password hashes are never serialized.
func (s *Server) ListOperators(c *gin.Context) {
	ops, err := s.Store.ListOperators(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list operators: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, ops)
}
