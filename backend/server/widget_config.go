package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"bugspot/backend/db"
	"bugspot/backend/server/api"
)

// WidgetConfig returns the public widget settings for a project key. The
// endpoint is unauthenticated: the key itself is the credential and nothing
// private is exposed.
func (h *Handlers) WidgetConfig(c *gin.Context) {
	project, err := h.store.GetProjectByAPIKey(c.Request.Context(), c.Param("apiKey"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Project not found"})
			return
		}
		log.Errorf("Failed to load widget config: %v", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Internal server error"})
		return
	}

	settings := api.WidgetSettings{
		Position:         "bottom-right",
		PrimaryColor:     "#3B82F6",
		EnableScreenshot: true,
		ShowPreview:      true,
	}
	if project.Settings != "" {
		if err := json.Unmarshal([]byte(project.Settings), &settings); err != nil {
			log.Warnf("Undecodable settings for project %s: %v", project.ID, err)
		}
	}

	c.JSON(http.StatusOK, api.WidgetConfig{
		ProjectID:   project.ID,
		ProjectName: project.Name,
		Settings:    settings,
	})
}
