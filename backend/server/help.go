package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) Help(c *gin.Context) {
	c.String(http.StatusOK, `
	BugSpot API:
	bug report collection server, version 1.0.
	`)
}
