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
	"gorm.io/gorm/logger"

	"github.com/mrlokans/shelfport/internal/audit"
	"github.com/mrlokans/shelfport/internal/auth"
	"github.com/mrlokans/shelfport/internal/config"
	"github.com/mrlokans/shelfport/internal/database"
	auditRepo "github.com/mrlokans/shelfport/internal/database/audit"
	"github.com/mrlokans/shelfport/internal/database/imports"
	"github.com/mrlokans/shelfport/internal/database/library"
	"github.com/mrlokans/shelfport/internal/database/users"
	"github.com/mrlokans/shelfport/internal/exporters"
	"github.com/mrlokans/shelfport/internal/formats"
	http_controllers "github.com/mrlokans/shelfport/internal/http"
	"github.com/mrlokans/shelfport/internal/importers"
	"github.com/mrlokans/shelfport/internal/scheduler"
	"github.com/mrlokans/shelfport/internal/services"
	"github.com/mrlokans/shelfport/internal/tasks"
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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work before the listener goes away
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Shelfport v%s", version)

	var dbOpts []database.Option
	if cfg.Database.Debug {
		dbOpts = append(dbOpts, database.WithLogLevel(logger.Info))
	}
	db, err := database.NewDatabase(cfg.Database.Path, dbOpts...)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	userRepo := users.NewRepository(db.DB)
	libraryRepo := library.NewRepository(db.DB)
	history := imports.NewRepository(db.DB)
	auditService := audit.NewService(auditRepo.NewRepository(db.DB))
	defer auditService.Wait()

	transfer := services.NewTransferService(
		formats.DefaultRegistry(),
		exporters.NewSelector(libraryRepo),
		importers.NewPipeline(libraryRepo, importers.Options{FuzzyThreshold: cfg.Import.FuzzyThreshold}),
	).WithHistory(history).WithAuditLogger(auditService)

	if cfg.Import.ArchiveDir != "" {
		transfer = transfer.WithArchiver(audit.NewArchiver(cfg.Import.ArchiveDir))
		log.Printf("Archiving import payloads to %s", cfg.Import.ArchiveDir)
	}

	// Sessions left pending by a previous process will never finish
	staleCutoff := time.Now().Add(-cfg.Tasks.ReleaseAfter)
	if n, err := history.FailStale(context.Background(), staleCutoff); err != nil {
		log.Printf("WARNING: Failed to close stale import sessions: %v", err)
	} else if n > 0 {
		log.Printf("Marked %d stale import sessions as failed", n)
	}

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	var maintenance *scheduler.MaintenanceScheduler
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		}

		tasksDBPath := cfg.Tasks.DatabasePath
		if tasksDBPath == "" {
			tasksDBPath = tasks.DatabasePathFor(cfg.Database.Path)
		}
		taskClient, err = tasks.NewClient(tasksDBPath, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewImportUploadQueue(transfer),
			tasks.NewMaintenanceQueue(auditService, history),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		maintenance = scheduler.NewMaintenanceScheduler(taskClient, scheduler.MaintenanceConfig{
			AuditRetentionDays: cfg.Audit.RetentionDays,
			// A queued import older than this has outlived both its
			// release window and its timeout
			StaleImportAfter: cfg.Tasks.ReleaseAfter + tasks.ImportTimeout,
		})
		if err := maintenance.Start(taskCtx); err != nil {
			log.Printf("WARNING: Failed to start maintenance scheduler: %v", err)
		}
	} else {
		log.Printf("Task queue disabled; background imports and maintenance are unavailable")
	}

	var backups *scheduler.BackupScheduler
	if cfg.Backup.Enabled {
		backups = scheduler.NewBackupScheduler(transfer, userRepo, auditService, scheduler.BackupConfig{
			Schedule: cfg.Backup.Schedule,
			Dir:      cfg.Backup.Dir,
			Keep:     cfg.Backup.Keep,
		})
		if err := backups.Start(context.Background()); err != nil {
			log.Fatalf("Failed to start backup scheduler: %v", err)
		}
	}

	var limiter *auth.RateLimiter
	if cfg.Auth.Mode == config.AuthModeToken {
		log.Printf("Authentication mode: token")
		limiter = auth.NewRateLimiter(auth.RateLimitConfig{
			MaxAttempts:     cfg.Auth.MaxFailedAttempts,
			WindowDuration:  cfg.Auth.RateLimitWindow,
			LockoutDuration: cfg.Auth.LockoutDuration,
		})
	} else {
		log.Printf("Authentication mode: none (every request acts as user %d)", cfg.Auth.DefaultUserID)
	}
	authMiddleware := auth.NewMiddleware(userRepo, limiter, cfg.Auth)

	routerCfg := http_controllers.RouterConfig{
		Transfer:            transfer,
		Database:            db,
		History:             history,
		Audit:               auditService,
		Stats:               libraryRepo,
		AuthMiddleware:      authMiddleware,
		DefaultExportFormat: cfg.Export.DefaultFormat,
		MaxUploadBytes:      cfg.Import.MaxUploadBytes,
		Version:             version,
	}
	if taskClient != nil {
		routerCfg.Jobs = taskClient
		routerCfg.TaskQueue = taskClient
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if backups != nil {
			backups.Stop()
		}
		if maintenance != nil {
			maintenance.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
		if limiter != nil {
			limiter.Stop()
		}
	}

	Serve(router, cfg, onShutdown)
}
