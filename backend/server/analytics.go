package server

import (
	"net/http"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"bugspot/backend/db"
	"bugspot/backend/middleware"
	"bugspot/backend/server/api"
)

func (h *Handlers) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.UserID(c)
	projectID := c.Query("projectId")
	days := intQuery(c, "days", 30)

	stats, err := h.store.GetStats(ctx, userID, projectID)
	if err != nil {
		log.Errorf("Failed to compute dashboard stats: %v", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Internal server error"})
		return
	}

	overTime, err := h.store.ReportsOverTime(ctx, userID, projectID, days)
	if err != nil {
		log.Errorf("Failed to compute reports over time: %v", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Internal server error"})
		return
	}
	if overTime == nil {
		overTime = []db.DayCount{}
	}

	recent, err := h.store.GetReports(ctx, userID, db.ReportFilter{ProjectID: projectID, Limit: 10})
	if err != nil {
		log.Errorf("Failed to list recent reports: %v", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Internal server error"})
		return
	}
	if recent == nil {
		recent = []db.BugReport{}
	}

	c.JSON(http.StatusOK, api.DashboardResponse{
		TotalReports:      stats.Total,
		ReportsByStatus:   stats.ByStatus,
		ReportsBySeverity: stats.BySeverity,
		ReportsOverTime:   overTime,
		RecentReports:     recent,
	})
}

func (h *Handlers) GetProjects(c *gin.Context) {
	projects, err := h.store.ProjectsForUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		log.Errorf("Failed to list projects: %v", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Internal server error"})
		return
	}
	if projects == nil {
		projects = []db.Project{}
	}
	c.JSON(http.StatusOK, projects)
}
