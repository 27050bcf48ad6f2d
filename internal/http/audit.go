package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelfport/internal/database/audit"
	"github.com/mrlokans/shelfport/internal/entities"
	"github.com/mrlokans/shelfport/internal/snapshot"
)

const (
	defaultAuditPageSize = 25
	maxAuditPageSize     = 100
)

type AuditController struct {
	audit AuditReader
}

func NewAuditController(audit AuditReader) *AuditController {
	return &AuditController{audit: audit}
}

// GetAuditEvents lists the caller's transfers, newest first.
// GET /api/audit?type=import&format=csv&page=1&limit=25
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	filter, err := auditFilter(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	filter.UserID = GetUserID(c)

	events, total, err := ac.audit.GetEvents(c.Request.Context(), filter)
	if err != nil {
		respondInternalError(c, err, "list audit events")
		return
	}

	totalPages := (int(total) + filter.Limit - 1) / filter.Limit
	if totalPages < 1 {
		totalPages = 1
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:       events,
		Total:      total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
		HasMore:    int64(filter.Offset+len(events)) < total,
		TotalPages: totalPages,
	})
}

// auditFilter reads the query string. Unknown event types and formats are
// rejected instead of silently matching nothing.
func auditFilter(c *gin.Context) (audit.Filter, error) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultAuditPageSize)))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxAuditPageSize {
		limit = defaultAuditPageSize
	}

	f := audit.Filter{Limit: limit, Offset: (page - 1) * limit}

	switch t := entities.AuditEventType(c.Query("type")); t {
	case "":
	case entities.AuditEventImport, entities.AuditEventExport, entities.AuditEventBackup:
		f.EventType = t
	default:
		return f, fmt.Errorf("unknown audit event type %q", t)
	}

	if raw := c.Query("format"); raw != "" {
		switch format := snapshot.ParseFormat(raw); format {
		case snapshot.FormatNative, snapshot.FormatCSV, snapshot.FormatGoodreads:
			f.Format = string(format)
		default:
			return f, fmt.Errorf("unknown format %q", raw)
		}
	}
	return f, nil
}
