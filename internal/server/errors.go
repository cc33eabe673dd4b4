package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/histograph/internal/core"
	"github.com/agenthands/histograph/internal/diff"
	"github.com/agenthands/histograph/internal/ingest"
	"github.com/agenthands/histograph/internal/validate"
)

// respondError maps domain errors to status codes. Store failures answer
// 500 with the failing store named in the message.
func respondError(c *gin.Context, err error) {
	var (
		validationErr *validate.Error
		linesErr      *diff.InvalidLinesError
		unreadableErr *ingest.UnreadableError
		storeErr      *core.StoreError
	)

	switch {
	case errors.Is(err, core.ErrConflict), errors.Is(err, core.ErrReserved):
		c.JSON(http.StatusConflict, gin.H{"message": err.Error()})
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
	case errors.As(err, &linesErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error(), "errors": linesErr.Lines})
	case errors.As(err, &validationErr), errors.Is(err, core.ErrUnknownField):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
	case errors.As(err, &unreadableErr):
		c.JSON(http.StatusConflict, gin.H{"message": err.Error()})
	case errors.As(err, &storeErr):
		slog.ErrorContext(c.Request.Context(), "Store failure", "source", storeErr.Source, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
	default:
		slog.ErrorContext(c.Request.Context(), "Request failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
	}
}
