package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelfport/internal/database/imports"
)

type HistoryController struct {
	history ImportHistoryStore
}

func NewHistoryController(history ImportHistoryStore) *HistoryController {
	return &HistoryController{history: history}
}

// List handles GET /api/import/history?limit=20
func (hc *HistoryController) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	sessions, err := hc.history.ListForUser(c.Request.Context(), GetUserID(c), limit)
	if err != nil {
		respondInternalError(c, err, "list import history")
		return
	}
	c.JSON(http.StatusOK, gin.H{"imports": sessions})
}

// Get handles GET /api/import/history/:id
func (hc *HistoryController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	session, err := hc.history.Get(c.Request.Context(), GetUserID(c), id)
	if err != nil {
		if imports.IsNotFound(err) {
			respondNotFound(c, "import")
			return
		}
		respondInternalError(c, err, "get import")
		return
	}
	c.JSON(http.StatusOK, session)
}
