package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelfport/internal/auth"
	"github.com/mrlokans/shelfport/internal/exporters"
	"github.com/mrlokans/shelfport/internal/services"
	"github.com/mrlokans/shelfport/internal/snapshot"
	"github.com/mrlokans/shelfport/internal/utils"
)

// TransferController serves synchronous exports and imports.
type TransferController struct {
	transfer       Transfer
	defaultFormat  snapshot.Format
	maxUploadBytes int64
	now            func() time.Time
}

// NewTransferController creates a TransferController. An empty
// defaultFormat exports the native format.
func NewTransferController(transfer Transfer, defaultFormat string, maxUploadBytes int64) *TransferController {
	return &TransferController{
		transfer:       transfer,
		defaultFormat:  snapshot.ParseFormat(defaultFormat),
		maxUploadBytes: maxUploadBytes,
		now:            time.Now,
	}
}

// Export handles GET /api/export
//
// Query: format, categories (comma separated), from, to (YYYY-MM-DD).
func (tc *TransferController) Export(c *gin.Context) {
	format := tc.defaultFormat
	if raw := c.Query("format"); raw != "" {
		format = snapshot.ParseFormat(raw)
	}

	categories, err := exporters.ParseSelection(c.Query("categories"))
	if err != nil {
		respondTransferError(c, err, nil)
		return
	}
	dateRange, err := exporters.ParseDateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		respondTransferError(c, err, nil)
		return
	}

	codec, err := tc.transfer.Codec(format)
	if err != nil {
		respondTransferError(c, err, nil)
		return
	}

	ownerID := GetUserID(c)
	data, err := tc.transfer.PrepareExport(c.Request.Context(), ownerID, services.ExportOptions{
		Format:     format,
		Categories: categories,
		DateRange:  dateRange,
	})
	if err != nil {
		respondTransferError(c, err, nil)
		return
	}

	owner := auth.GetUsername(c)
	if owner == "" {
		owner = fmt.Sprintf("owner%d", ownerID)
	}
	filename := utils.SnapshotFilename(owner, codec.Extension(), tc.now())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, codec.ContentType(), data)
}

// Import handles POST /api/import
//
// Query: format, dry_run. Body: the file, raw or as the "file" field of a
// multipart form. Responds with the import summary.
func (tc *TransferController) Import(c *gin.Context) {
	format := snapshot.ParseFormat(c.Query("format"))
	dryRun, ok := parseBoolQuery(c, "dry_run")
	if !ok {
		return
	}
	data, ok := readUpload(c, tc.maxUploadBytes)
	if !ok {
		return
	}

	snap, err := tc.transfer.DecodeUpload(data, format)
	if err != nil {
		respondTransferError(c, err, nil)
		return
	}

	ownerID := GetUserID(c)
	var summary snapshot.ImportSummary
	if dryRun {
		summary, err = tc.transfer.DryRunImport(c.Request.Context(), ownerID, snap)
	} else {
		summary, err = tc.transfer.RunImport(c.Request.Context(), ownerID, snap)
	}
	if err != nil {
		var details any
		if summary.Phase != "" {
			details = summary
		}
		respondTransferError(c, err, details)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// FormatInfo describes one supported format.
type FormatInfo struct {
	Format      snapshot.Format `json:"format"`
	ContentType string          `json:"content_type"`
	Extension   string          `json:"extension"`
}

// Formats handles GET /api/formats
func (tc *TransferController) Formats(c *gin.Context) {
	var out []FormatInfo
	for _, f := range tc.transfer.Formats() {
		codec, err := tc.transfer.Codec(f)
		if err != nil {
			continue
		}
		out = append(out, FormatInfo{Format: f, ContentType: codec.ContentType(), Extension: codec.Extension()})
	}
	c.JSON(http.StatusOK, gin.H{"formats": out, "default": tc.defaultFormat})
}
