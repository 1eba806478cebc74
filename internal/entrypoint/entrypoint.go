package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/keepsake-app/keepsake/internal/audit"
	"github.com/keepsake-app/keepsake/internal/config"
	"github.com/keepsake-app/keepsake/internal/database"
	"github.com/keepsake-app/keepsake/internal/database/artifacts"
	auditdb "github.com/keepsake-app/keepsake/internal/database/audit"
	"github.com/keepsake-app/keepsake/internal/database/events"
	"github.com/keepsake-app/keepsake/internal/database/imports"
	"github.com/keepsake-app/keepsake/internal/database/people"
	uploadsdb "github.com/keepsake-app/keepsake/internal/database/uploads"
	http_controllers "github.com/keepsake-app/keepsake/internal/http"
	"github.com/keepsake-app/keepsake/internal/importers"
	"github.com/keepsake-app/keepsake/internal/scheduler"
	"github.com/keepsake-app/keepsake/internal/tasks"
	"github.com/keepsake-app/keepsake/internal/uploads"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		// service connections
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM. SIGKILL cannot be caught.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop task queue)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Keepsake v%s", version)

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	// Domain repositories
	peopleRepo := people.NewRepository(db.DB)
	artifactsRepo := artifacts.NewRepository(db.DB)
	eventsRepo := events.NewRepository(db.DB)
	sessionsRepo := imports.NewRepository(db.DB)
	uploadsRepo := uploadsdb.NewRepository(db.DB)

	// Audit trail plus raw archive for payloads that failed to parse
	auditRepo := auditdb.NewRepository(db.DB)
	auditService := audit.NewService(auditRepo)
	archiver := audit.NewArchiver(cfg.Audit.Dir)

	// Upload staging area and artifact blob store
	uploadStore, err := uploads.NewStore(cfg.Uploads.Dir, uploadsRepo, cfg.Uploads.TTL)
	if err != nil {
		log.Fatalf("Failed to initialize upload store: %v", err)
	}

	orchestrator := importers.NewOrchestrator(importers.Stores{
		People:    peopleRepo,
		Artifacts: artifactsRepo,
		Events:    eventsRepo,
		Sources:   db,
		Sessions:  sessionsRepo,
		Blobs:     uploadStore,
	}, cfg.Import.ParseWorkers)

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	var cleanupScheduler *scheduler.CleanupScheduler
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		// Register task queues
		taskClient.Register(
			tasks.NewCleanupExpiredUploadsQueue(uploadStore),
			tasks.NewCleanupAuditEventsQueue(auditRepo),
		)

		// Start task workers in background
		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		cleanupScheduler = scheduler.NewCleanupScheduler(taskClient, scheduler.Config{
			Schedule:           cfg.Cleanup.Schedule,
			AuditRetentionDays: cfg.Audit.RetentionDays,
		})
		if err := cleanupScheduler.Start(taskCtx); err != nil {
			log.Fatalf("Failed to start cleanup scheduler: %v", err)
		}
	}

	// Build router configuration with all dependencies
	routerCfg := http_controllers.RouterConfig{
		Database:     db,
		Orchestrator: orchestrator,
		UploadStore:  uploadStore,
		Sessions:     sessionsRepo,
		AuditService: auditService,
		Archiver:     archiver,
		MaxFileSize:  cfg.Uploads.MaxFileSize,
		Version:      version,
	}

	router := http_controllers.NewRouter(routerCfg)

	// Shutdown callback for graceful cleanup
	onShutdown := func(ctx context.Context) {
		if cleanupScheduler != nil {
			cleanupScheduler.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
