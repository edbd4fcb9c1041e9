package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/assessly/assessment-api/internal/pkg/errors"
)

// handleServiceError переводит ошибки таксономии сервисов в HTTP-статусы.
// Неопознанная ошибка логируется и отдаётся как 500 без деталей.
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrUnresolvedGoto),
		errors.Is(err, apperrors.ErrUnreachableNode),
		errors.Is(err, apperrors.ErrMissingQuestionRef),
		errors.Is(err, apperrors.ErrCyclicPath):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict),
		errors.Is(err, apperrors.ErrInvalidState),
		errors.Is(err, apperrors.ErrCapacity),
		errors.Is(err, apperrors.ErrNoMatchingBranch):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrExternalService):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		log.Printf("ERROR: Internal server error in handler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
