package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/histograph/internal/ingest"
)

// ForceHeader switches an upload to force mode when set to "true".
const ForceHeader = "x-histograph-force"

// GetFile streams the current snapshot. A dataset without one answers with
// an empty body.
func (s *Server) GetFile(c *gin.Context) {
	path := s.Files.Filename(c.Param("dataset"), kindOf(c))

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		c.Data(http.StatusOK, "text/plain", nil)
		return
	}
	if err != nil {
		respondError(c, fmt.Errorf("failed to open snapshot: %w", err))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		respondError(c, fmt.Errorf("failed to stat snapshot: %w", err))
		return
	}
	c.DataFromReader(http.StatusOK, info.Size(), "text/plain", f, nil)
}

func (s *Server) PutFile(c *gin.Context) {
	dataset := c.Param("dataset")
	kind := kindOf(c)

	out, err := s.Ingester.Ingest(c.Request.Context(), ingest.Request{
		Dataset:     dataset,
		Kind:        kind,
		Force:       c.GetHeader(ForceHeader) == "true",
		ContentType: c.GetHeader("Content-Type"),
		Body:        c.Request.Body,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	switch out := out.(type) {
	case ingest.Responded:
		status := http.StatusOK
		if out.Result.Created {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{
			"message": fmt.Sprintf("File '%s' of dataset '%s' processed successfully", kind, dataset),
			"result":  out.Result,
		})
	case *ingest.Dispatched:
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("File '%s' of dataset '%s' received, processing in background", kind, dataset),
		})
		c.Writer.Flush()
		out.Start()
	}
}

// PutCorrections always answers 201; rejected bodies are only logged.
func (s *Server) PutCorrections(c *gin.Context) {
	kind := kindOf(c)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		slog.WarnContext(c.Request.Context(), "Failed to read corrections", "type", string(kind), "err", err)
	} else if n, err := s.Corrections.Accept(c.Request.Context(), kind, body); err != nil {
		slog.WarnContext(c.Request.Context(), "Failed to accept corrections", "type", string(kind), "err", err)
	} else {
		slog.InfoContext(c.Request.Context(), "Corrections accepted", "type", string(kind), "forwarded", n)
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Corrections received"})
}
