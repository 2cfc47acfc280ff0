package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/3grands/habitflow/internal/errors"
	"github.com/3grands/habitflow/internal/logger"
)

// writeError maps an application error onto its HTTP status.
func writeError(c *gin.Context, err error) {
	switch {
	case apperrors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Habit not found"})
	case apperrors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
