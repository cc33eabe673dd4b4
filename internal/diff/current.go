package diff

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/agenthands/histograph/internal/core/model"
)

// Current resolves and maintains the current snapshot files of each
// dataset under <root>/datasets/<id>/<kind>.ndjson.
type Current struct {
	Root string
}

func NewCurrent(root string) *Current {
	return &Current{Root: root}
}

func (c *Current) DatasetsDir() string {
	return filepath.Join(c.Root, "datasets")
}

func (c *Current) DatasetDir(dataset string) string {
	return filepath.Join(c.DatasetsDir(), dataset)
}

func (c *Current) Filename(dataset string, kind model.FileKind) string {
	return filepath.Join(c.DatasetDir(dataset), string(kind)+".ndjson")
}

func (c *Current) CreateDir(dataset string) error {
	if err := os.MkdirAll(c.DatasetDir(dataset), 0o755); err != nil {
		return fmt.Errorf("failed to create dataset dir: %w", err)
	}
	return nil
}

// Truncate empties the snapshot file, creating it when missing.
func (c *Current) Truncate(dataset string, kind model.FileKind) error {
	if err := c.CreateDir(dataset); err != nil {
		return err
	}
	f, err := os.OpenFile(c.Filename(dataset, kind), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to truncate %s snapshot: %w", kind, err)
	}
	return f.Close()
}

func (c *Current) RemoveDir(dataset string) error {
	if err := os.RemoveAll(c.DatasetDir(dataset)); err != nil {
		return fmt.Errorf("failed to remove dataset dir: %w", err)
	}
	return nil
}
