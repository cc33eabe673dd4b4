// Package diff reconciles uploaded NDJSON files against the current snapshot
// of a dataset and publishes the resulting changes.
package diff

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agenthands/histograph/internal/core/model"
)

// Job is one uploaded file handed over by the ingestion pipeline. The engine
// owns Path from then on and removes it when done.
type Job struct {
	Dataset string
	Kind    model.FileKind
	Path    string
	Force   bool
}

type Result struct {
	Created bool `json:"created"`
	Forced  bool `json:"forced"`
	Added   int  `json:"added"`
	Removed int  `json:"removed"`
}

type Engine interface {
	Process(ctx context.Context, job Job) (Result, error)
	// FileChanged confirms a snapshot that was emptied outside the engine.
	FileChanged(ctx context.Context, dataset string, kind model.FileKind) error
}

type Action string

const (
	ActionAdd    Action = "add"
	ActionDelete Action = "delete"
	ActionClear  Action = "clear"
)

type Change struct {
	Dataset string          `json:"dataset"`
	Kind    model.FileKind  `json:"type"`
	Action  Action          `json:"action"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Sink receives the changes produced by the engine.
type Sink interface {
	Publish(ctx context.Context, change Change) error
}

type LineError struct {
	Line int    `json:"line"`
	Err  string `json:"error"`
}

// InvalidLinesError rejects an upload that contains lines failing the
// schema of its file kind.
type InvalidLinesError struct {
	Kind  model.FileKind
	Lines []LineError
}

func (e *InvalidLinesError) Error() string {
	parts := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		parts = append(parts, fmt.Sprintf("line %d: %s", l.Line, l.Err))
	}
	return fmt.Sprintf("invalid %s: %s", e.Kind, strings.Join(parts, "; "))
}
