package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/recipebox/internal/logger"
	"github.com/timmy/recipebox/internal/service"
)

// ImportHandler handles import endpoints.
type ImportHandler struct {
	imports *service.ImportService
}

// NewImportHandler creates a new import handler.
// Parameters:
//   - imports: import service instance.
// Returns:
//   - *ImportHandler: initialized handler.
func NewImportHandler(imports *service.ImportService) *ImportHandler {
	return &ImportHandler{imports: imports}
}

// ImportRequest is the body of a single-URL import.
type ImportRequest struct {
	URL string `json:"url"`
}

// BulkImportRequest is the body of a bookmarks import.
type BulkImportRequest struct {
	HTML string `json:"html"`
}

// ImportURL handles POST /api/v1/recipes/import.
// The request blocks until the recipe is stored or the import fails.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ImportHandler) ImportURL(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	ctx := logger.SetURL(c.Request.Context(), req.URL)
	result, err := h.imports.ImportURL(ctx, req.URL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ImportBulk handles POST /api/v1/recipes/import/bulk.
// Jobs are queued and processed in the background.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ImportHandler) ImportBulk(c *gin.Context) {
	var req BulkImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	result, err := h.imports.ImportBookmarks(c.Request.Context(), req.HTML)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListJobs handles GET /api/v1/recipes/import/jobs.
// With stats=true it returns counts per status instead of the job list.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ImportHandler) ListJobs(c *gin.Context) {
	ctx := c.Request.Context()
	if c.Query("stats") == "true" {
		stats, err := h.imports.Stats(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"pending":    stats.Pending,
			"processing": stats.Processing,
			"completed":  stats.Completed,
			"failed":     stats.Failed,
			"total":      stats.Total(),
			"running":    h.imports.Processing(),
		})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	jobs, err := h.imports.Jobs(ctx, c.Query("status"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"total": len(jobs),
	})
}

// ProcessJobs handles POST /api/v1/recipes/import/jobs/process.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes 202 once a drain is requested).
func (h *ImportHandler) ProcessJobs(c *gin.Context) {
	h.imports.ProcessPending()
	c.JSON(http.StatusAccepted, gin.H{"message": "processing started"})
}
