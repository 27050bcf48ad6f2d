package http

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelfport/internal/auth"
	"github.com/mrlokans/shelfport/internal/snapshot"
)

// GetUserID extracts the owner of the request from the Gin context.
func GetUserID(c *gin.Context) uint {
	return auth.GetUserID(c)
}

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context (validation errors, etc.)
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// PaginatedResponse wraps paginated data with metadata.
type PaginatedResponse struct {
	Data       any   `json:"data"`
	Total      int64 `json:"total"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
	HasMore    bool  `json:"has_more"`
	TotalPages int   `json:"total_pages,omitempty"`
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// respondAccepted sends a 202 Accepted response (for async operations).
func respondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, SuccessResponse{Message: message, Data: data})
}

// statusForKind maps a transfer failure onto an HTTP status.
func statusForKind(kind snapshot.ErrorKind) int {
	switch kind {
	case snapshot.KindUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case snapshot.KindMalformedInput, snapshot.KindSchemaMismatch, snapshot.KindValidation:
		return http.StatusBadRequest
	case snapshot.KindOwnerNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondTransferError reports an export or import failure. Persistence
// failures are logged and their cause is hidden. details, when non-nil,
// is returned alongside (usually the import summary).
func respondTransferError(c *gin.Context, err error, details any) {
	var snapErr *snapshot.Error
	if !errors.As(err, &snapErr) {
		respondInternalError(c, err, "transfer")
		return
	}

	status := statusForKind(snapErr.Kind)
	message := snapErr.Error()
	if status == http.StatusInternalServerError {
		log.Printf("Internal error (transfer): %v", err)
		message = "import could not be saved"
	}
	c.JSON(status, ErrorResponse{Error: message, Code: string(snapErr.Kind), Details: details})
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	idStr := c.Param(paramName)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// parseBoolQuery reads a boolean query flag; absent means false.
func parseBoolQuery(c *gin.Context, name string) (bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return false, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		respondBadRequest(c, "invalid "+name)
		return false, false
	}
	return v, true
}

// readUpload returns the uploaded file: the "file" field of a multipart form,
// or the raw request body otherwise. On failure it responds and returns
// false.
func readUpload(c *gin.Context, maxBytes int64) ([]byte, bool) {
	if maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	}

	var data []byte
	var err error
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		data, err = readFormFile(c)
	} else {
		data, err = io.ReadAll(c.Request.Body)
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error: "upload exceeds " + strconv.FormatInt(tooLarge.Limit, 10) + " bytes",
		})
		return nil, false
	case err != nil:
		respondBadRequest(c, "could not read upload: "+err.Error())
		return nil, false
	case len(data) == 0:
		respondBadRequest(c, "upload is empty")
		return nil, false
	}
	return data, true
}

func readFormFile(c *gin.Context) ([]byte, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
