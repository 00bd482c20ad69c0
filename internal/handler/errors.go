package handler

import (
	"errors"
	"net/http"

	"storefront/internal/apperr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps an operation error onto its HTTP status and client body.
func statusFor(err error) (int, gin.H) {
	var stock *apperr.InsufficientStockError
	switch {
	case apperr.IsNotFound(err):
		return http.StatusNotFound, gin.H{"error": err.Error()}
	case apperr.IsForbidden(err):
		return http.StatusForbidden, gin.H{"error": err.Error()}
	case apperr.IsValidation(err):
		return http.StatusBadRequest, gin.H{"error": err.Error()}
	case errors.As(err, &stock):
		return http.StatusConflict, gin.H{
			"error":     err.Error(),
			"requested": stock.Requested,
			"available": stock.Available,
		}
	case apperr.IsConflict(err):
		return http.StatusConflict, gin.H{"error": err.Error()}
	case apperr.IsTransient(err):
		return http.StatusServiceUnavailable, gin.H{"error": "temporary conflict, please retry"}
	default:
		return http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred"}
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, body := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request error", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}
