package http

import (
	"github.com/gin-gonic/gin"

	"github.com/keepsake-app/keepsake/internal/audit"
	"github.com/keepsake-app/keepsake/internal/database"
	"github.com/keepsake-app/keepsake/internal/database/imports"
	"github.com/keepsake-app/keepsake/internal/importers"
	"github.com/keepsake-app/keepsake/internal/uploads"
)

// RouterConfig contains all dependencies and configuration needed to create
// the HTTP router. This replaces a long parameter list in NewRouter.
type RouterConfig struct {
	// Core dependencies
	Database     *database.Database
	Orchestrator *importers.Orchestrator
	UploadStore  *uploads.Store
	Sessions     *imports.Repository

	// Audit
	AuditService *audit.Service
	Archiver     *audit.Archiver

	// Upload limits
	MaxFileSize int64

	// Application info
	Version string
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	health := NewHealthController(cfg.Database, cfg.Version)
	importController := NewImportController(cfg.Orchestrator, cfg.AuditService, cfg.Archiver, cfg.MaxFileSize)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Two-step import endpoints
	router.POST("/api/import/:format/parse", importController.Parse)
	router.POST("/api/import/:format/import", importController.Import)

	// Bulk upload endpoints
	if cfg.UploadStore != nil {
		uploadsController := NewUploadsController(cfg.UploadStore, cfg.Orchestrator, cfg.AuditService, cfg.MaxFileSize)
		router.POST("/api/uploads/bulk", uploadsController.BulkUpload)
		router.POST("/api/uploads/import", uploadsController.Import)
	}

	// Import session endpoints
	if cfg.Sessions != nil {
		sessionsController := NewSessionsController(cfg.Sessions)
		router.GET("/api/import/sessions", sessionsController.ListSessions)
		router.GET("/api/import/sessions/:id", sessionsController.GetSession)
	}

	return router
}
