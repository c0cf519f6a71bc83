package server

import (
	"errors"
	"net/http"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"bugspot/backend/auth"
	"bugspot/backend/db"
	"bugspot/backend/middleware"
	"bugspot/backend/server/api"
)

// RotateProjectKey replaces a project's API key. The old key stops working
// immediately, so widgets embedding it must be redeployed.
func (h *Handlers) RotateProjectKey(c *gin.Context) {
	newKey := auth.NewAPIKey()
	err := h.store.RotateProjectKey(c.Request.Context(), middleware.UserID(c), c.Param("id"), newKey)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Project not found"})
			return
		}
		log.Errorf("Failed to rotate project key: %v", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"apiKey": newKey})
}
