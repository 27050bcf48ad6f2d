package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type LibraryController struct {
	stats LibraryStats
}

func NewLibraryController(stats LibraryStats) *LibraryController {
	return &LibraryController{stats: stats}
}

// Stats handles GET /api/library/stats
func (lc *LibraryController) Stats(c *gin.Context) {
	stats, err := lc.stats.Stats(c.Request.Context(), GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "library stats")
		return
	}
	c.JSON(http.StatusOK, gin.H{"counts": stats})
}
