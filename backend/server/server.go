// Package server wires the HTTP API: report intake from the widget, the
// dashboard endpoints and the live report stream.
package server

import (
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"bugspot/backend/analysis"
	"bugspot/backend/auth"
	"bugspot/backend/config"
	"bugspot/backend/db"
	"bugspot/backend/email"
	"bugspot/backend/middleware"
	"bugspot/backend/rabbitmq"
	"bugspot/backend/websocket"
)

const (
	EndPointHelp = "/help"

	EndPointRegister = "/api/auth/register"
	EndPointLogin    = "/api/auth/login"
	EndPointMe       = "/api/auth/me"

	EndPointSubmitReport = "/api/bug-reports/submit"
	EndPointReports      = "/api/bug-reports"
	EndPointReport       = "/api/bug-reports/:id"
	EndPointReportStatus = "/api/bug-reports/:id/status"
	EndPointReportStats  = "/api/bug-reports/stats"

	EndPointDashboard = "/api/analytics/dashboard"
	EndPointProjects  = "/api/analytics/projects"

	EndPointWidgetConfig = "/api/widget/config/:apiKey"
	EndPointRotateKey    = "/api/projects/:id/rotate-key"

	EndPointListenReports = "/ws/reports"
)

// Handlers carries every dependency the endpoints need.
type Handlers struct {
	cfg      *config.Config
	store    db.Service
	auth     *auth.Service
	analyzer analysis.Analyzer
	hub      *websocket.Hub
	// Optional, nil when not configured.
	publisher *rabbitmq.Publisher
	notifier  *email.Notifier
}

func NewHandlers(cfg *config.Config, store db.Service, authSvc *auth.Service, analyzer analysis.Analyzer,
	hub *websocket.Hub, publisher *rabbitmq.Publisher, notifier *email.Notifier) *Handlers {
	return &Handlers{
		cfg:       cfg,
		store:     store,
		auth:      authSvc,
		analyzer:  analyzer,
		hub:       hub,
		publisher: publisher,
		notifier:  notifier,
	}
}

// NewRouter builds the gin engine with all routes and middleware attached.
func (h *Handlers) NewRouter() *gin.Engine {
	router := gin.Default()
	if len(h.cfg.TrustedProxies) > 0 {
		if err := router.SetTrustedProxies(h.cfg.TrustedProxies); err != nil {
			log.Warnf("Failed to set trusted proxies: %v", err)
		}
	}

	router.Use(middleware.SecurityHeaders())
	router.Use(cors.New(cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", middleware.APIKeyHeader},
		AllowOrigins:     []string{"*"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET(EndPointHelp, h.Help)

	router.POST(EndPointRegister, h.Register)
	router.POST(EndPointLogin, h.Login)
	router.GET(EndPointMe, middleware.RequireToken(h.auth), h.Me)

	router.POST(EndPointSubmitReport, middleware.RequireKeyOrToken(h.auth, h.store), h.SubmitReport)

	authed := router.Group("", middleware.RequireToken(h.auth))
	authed.GET(EndPointReports, h.GetReports)
	authed.GET(EndPointReportStats, h.GetReportStats)
	authed.GET(EndPointReport, h.GetReport)
	authed.PUT(EndPointReportStatus, h.UpdateReportStatus)
	authed.DELETE(EndPointReport, h.DeleteReport)
	authed.GET(EndPointDashboard, h.Dashboard)
	authed.GET(EndPointProjects, h.GetProjects)
	authed.POST(EndPointRotateKey, h.RotateProjectKey)
	authed.GET(EndPointListenReports, h.ListenReports)

	router.GET(EndPointWidgetConfig, h.WidgetConfig)

	return router
}

// StartService runs the HTTP server. It blocks until the server exits.
func (h *Handlers) StartService() error {
	log.Info("Starting the service...")
	router := h.NewRouter()
	if err := router.Run(fmt.Sprintf(":%s", h.cfg.Port)); err != nil {
		return fmt.Errorf("run server: %w", err)
	}
	log.Info("Finished the service. Should not ever being seen.")
	return nil
}
