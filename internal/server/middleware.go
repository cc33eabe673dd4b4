package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/agenthands/histograph/internal/core/model"
)

const (
	kindKey    = "kind"
	datasetKey = "dataset"
)

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

// corsHandler answers preflight requests itself and decorates every other
// response with the allow headers.
func corsHandler() gin.HandlerFunc {
	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:       []string{"Origin", "Content-Type", "Accept", "Authorization", ForceHeader},
		OptionsSuccessStatus: http.StatusNoContent,
	})

	return func(c *gin.Context) {
		handler.HandlerFunc(c.Writer, c.Request)
		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requireKind() gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, err := model.ParseFileKind(c.Param("kind"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": fmt.Sprintf("Not found: %s", c.Param("kind"))})
			return
		}
		c.Set(kindKey, kind)
		c.Next()
	}
}

func (s *Server) datasetExists() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("dataset")
		ds, err := s.Datasets.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}
		if ds == nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": fmt.Sprintf("Dataset '%s' not found", id)})
			return
		}
		c.Set(datasetKey, ds)
		c.Next()
	}
}

func kindOf(c *gin.Context) model.FileKind {
	kind, _ := c.Get(kindKey)
	k, _ := kind.(model.FileKind)
	return k
}

func datasetOf(c *gin.Context) *model.Dataset {
	ds, _ := c.Get(datasetKey)
	d, _ := ds.(*model.Dataset)
	return d
}
