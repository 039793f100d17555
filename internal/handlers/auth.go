// internal/handlers/auth.go

package handlers

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ArowuTest/rng-engine/internal/auth"
	"github.com/ArowuTest/rng-engine/internal/models"
	"github.com/ArowuTest/rng-engine/internal/store"
)

// loginRequest defines JSON payload for login.
type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates an operator and returns a JWT.
func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid login payload: " + err.Error()})
		return
	}

	op, err := s.Store.OperatorByUsername(c.Request.Context(), req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		}
		return
	}
	if !auth.CheckPassword(op.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}
	if op.Status != models.StatusActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is " + string(op.Status)})
		return
	}

	token, err := auth.GenerateJWT(op.ID.String(), op.Username, string(op.Role))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":       token,
		"operator_id": op.ID.String(),
		"username":    op.Username,
		"role":        op.Role,
	})
}

// RequireAuth is a middleware that checks for a valid "Bearer" JWT.
// With allowedRoles it also guards by role.
func RequireAuth(allowedRoles ...models.OperatorRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" || !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		claims, err := auth.ParseAndVerify(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token: " + err.Error()})
			return
		}
		id, err := uuid.Parse(claims.OperatorID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token subject"})
			return
		}
		if len(allowedRoles) > 0 && !slices.Contains(allowedRoles, models.OperatorRole(claims.Role)) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden for role: " + claims.Role})
			return
		}
		c.Set("operator_id", id)
		c.Set("operator_role", claims.Role)
		c.Next()
	}
}

// operatorID returns the authenticated operator set by RequireAuth.
func operatorID(c *gin.Context) uuid.UUID {
	id, _ := c.Get("operator_id")
	uid, _ := id.(uuid.UUID)
	return uid
}
