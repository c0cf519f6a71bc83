package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"bugspot/backend/db"
	"bugspot/backend/middleware"
	"bugspot/backend/server/api"
)

func (h *Handlers) GetReports(c *gin.Context) {
	filter := db.ReportFilter{
		ProjectID: c.Query("projectId"),
		Status:    c.Query("status"),
		Severity:  c.Query("severity"),
		Limit:     intQuery(c, "limit", 50),
		Offset:    intQuery(c, "offset", 0),
	}

	reports, err := h.store.GetReports(c.Request.Context(), middleware.UserID(c), filter)
	if err != nil {
		log.Errorf("Failed to list reports: %v", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Internal server error"})
		return
	}
	if reports == nil {
		reports = []db.BugReport{}
	}
	c.JSON(http.StatusOK, reports)
}

func (h *Handlers) GetReport(c *gin.Context) {
	report, err := h.store.GetReport(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Bug report not found"})
			return
		}
		log.Errorf("Failed to read report: %v", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handlers) UpdateReportStatus(c *gin.Context) {
	var args api.StatusUpdateArgs
	if err := c.BindJSON(&args); err != nil {
		log.Errorf("Failed to get the argument in %s call: %v", EndPointReportStatus, err)
		return
	}

	if !db.ValidStatus(args.Status) {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid status"})
		return
	}

	err := h.store.UpdateReportStatus(c.Request.Context(), middleware.UserID(c), c.Param("id"), args.Status)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Bug report not found"})
			return
		}
		log.Errorf("Failed to update report status: %v", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, api.MessageResponse{Message: "Status updated successfully"})
}

func (h *Handlers) DeleteReport(c *gin.Context) {
	err := h.store.DeleteReport(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Bug report not found"})
			return
		}
		log.Errorf("Failed to delete report: %v", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, api.MessageResponse{Message: "Bug report deleted successfully"})
}

func (h *Handlers) GetReportStats(c *gin.Context) {
	stats, err := h.store.GetStats(c.Request.Context(), middleware.UserID(c), c.Query("projectId"))
	if err != nil {
		log.Errorf("Failed to compute report stats: %v", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
