package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelfport/internal/auth"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())

	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	}

	// Uploads are read through MaxBytesReader; keep multipart parsing in
	// memory up to the same limit.
	if cfg.MaxUploadBytes > 0 {
		router.MaxMultipartMemory = cfg.MaxUploadBytes
	}

	formats := make([]string, 0)
	for _, f := range cfg.Transfer.Formats() {
		formats = append(formats, string(f))
	}
	health := NewHealthController(cfg.Database, cfg.Version).WithFormats(formats)
	if cfg.TaskQueue != nil {
		health.WithTaskQueue(cfg.TaskQueue)
	}
	transfer := NewTransferController(cfg.Transfer, cfg.DefaultExportFormat, cfg.MaxUploadBytes)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	api := router.Group("/api")

	// Transfer endpoints
	api.GET("/formats", transfer.Formats)
	api.GET("/export", transfer.Export)
	api.POST("/import", transfer.Import)

	if cfg.History != nil {
		history := NewHistoryController(cfg.History)
		api.GET("/import/history", history.List)
		api.GET("/import/history/:id", history.Get)

		// Background imports need both the queue and session tracking
		if cfg.Jobs != nil {
			jobs := NewImportJobsController(cfg.Transfer, cfg.History, cfg.Jobs, cfg.MaxUploadBytes)
			api.POST("/import/jobs", jobs.Enqueue)
			api.GET("/import/jobs/:id", jobs.Status)
		}
	}

	if cfg.Stats != nil {
		library := NewLibraryController(cfg.Stats)
		api.GET("/library/stats", library.Stats)
	}

	if cfg.Audit != nil {
		audit := NewAuditController(cfg.Audit)
		api.GET("/audit", audit.GetAuditEvents)
	}

	return router
}
