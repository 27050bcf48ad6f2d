package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelfport/internal/database"
)

const healthProbeTimeout = 2 * time.Second

// Pinger is a dependency the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
	Formats []string          `json:"formats,omitempty"`
}

// HealthController reports whether the library database and, when
// configured, the task queue are reachable.
type HealthController struct {
	db      *database.Database
	queue   Pinger
	formats []string
	version string
}

func NewHealthController(db *database.Database, version string) *HealthController {
	return &HealthController{
		db:      db,
		version: version,
	}
}

// WithTaskQueue adds the background queue to the checks.
func (h *HealthController) WithTaskQueue(queue Pinger) *HealthController {
	h.queue = queue
	return h
}

// WithFormats lists the accepted transfer formats in the response.
func (h *HealthController) WithFormats(formats []string) *HealthController {
	h.formats = formats
	return h
}

func (h *HealthController) Status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthProbeTimeout)
	defer cancel()

	checks := map[string]string{"database": "not configured"}
	healthy := true

	if h.db != nil {
		if err := pingDatabase(ctx, h.db); err != nil {
			checks["database"] = "error: " + err.Error()
			healthy = false
		} else {
			checks["database"] = "ok"
		}
	}

	if h.queue != nil {
		if err := h.queue.Ping(ctx); err != nil {
			checks["tasks"] = "error: " + err.Error()
			healthy = false
		} else {
			checks["tasks"] = "ok"
		}
	} else {
		checks["tasks"] = "disabled"
	}

	health := HealthResponse{
		Status:  "healthy",
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
		Formats: h.formats,
	}
	statusCode := http.StatusOK
	if !healthy {
		health.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}

func pingDatabase(ctx context.Context, db *database.Database) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
