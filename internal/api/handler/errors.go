package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/recipebox/internal/api/middleware"
	"github.com/timmy/recipebox/internal/service"
)

// respondError maps a service error to a status code and writes {"error": ...}.
func respondError(c *gin.Context, err error) {
	var (
		inputErr  *service.InputError
		importErr *service.ImportFailure
	)
	switch {
	case errors.As(err, &inputErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": inputErr.Message})
	case errors.As(err, &importErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": importErr.Message, "jobId": importErr.JobID})
	case errors.Is(err, service.ErrNoURLs), errors.Is(err, service.ErrSemanticDisabled):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrRecipeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "request timed out"})
	default:
		_ = c.Error(err)
		middleware.GetLogger(c).WithError(err).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
