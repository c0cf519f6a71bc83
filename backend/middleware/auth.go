// Package middleware carries the gin middleware shared by the API routes.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bugspot/backend/auth"
	"bugspot/backend/db"
)

// Context keys populated by the middleware below.
const (
	UserIDKey  = "user_id"
	ProjectKey = "project"
)

// APIKeyHeader carries the widget's project key.
const APIKeyHeader = "X-API-Key"

// RequireToken validates a Bearer token and stores the user id in the
// request context.
func RequireToken(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := tokenUser(c, svc)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}
		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// RequireAPIKey resolves the X-API-Key header to a project and stores it in
// the request context.
func RequireAPIKey(store db.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		project, err := keyProject(c, store)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}
		c.Set(ProjectKey, project)
		c.Next()
	}
}

// RequireKeyOrToken accepts either a project API key or a user token. Report
// submission uses it so both the embedded widget and the dashboard can post.
func RequireKeyOrToken(svc *auth.Service, store db.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(APIKeyHeader) != "" {
			project, err := keyProject(c, store)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
				c.Abort()
				return
			}
			c.Set(ProjectKey, project)
			c.Next()
			return
		}

		userID, err := tokenUser(c, svc)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "API key or authentication token required"})
			c.Abort()
			return
		}
		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated user id set by RequireToken.
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// Project returns the project resolved by RequireAPIKey, or nil.
func Project(c *gin.Context) *db.Project {
	v, ok := c.Get(ProjectKey)
	if !ok {
		return nil
	}
	project, _ := v.(*db.Project)
	return project
}

func tokenUser(c *gin.Context, svc *auth.Service) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("invalid authorization format")
	}
	userID, err := svc.ValidateToken(parts[1])
	if err != nil {
		return "", errors.New("invalid or expired token")
	}
	return userID, nil
}

func keyProject(c *gin.Context, store db.Service) (*db.Project, error) {
	key := c.GetHeader(APIKeyHeader)
	if key == "" {
		return nil, errors.New("missing API key")
	}
	project, err := store.GetProjectByAPIKey(c.Request.Context(), key)
	if err != nil {
		return nil, errors.New("invalid API key")
	}
	return project, nil
}

// SecurityHeaders adds security headers to responses.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		c.Writer.Header().Set("X-Frame-Options", "DENY")
		c.Writer.Header().Set("X-XSS-Protection", "1; mode=block")
		c.Next()
	}
}
