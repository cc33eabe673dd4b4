package diff

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/histograph/internal/core/model"
)

func TestCurrent_Paths(t *testing.T) {
	c := NewCurrent("/data")
	assert.Equal(t, filepath.Join("/data", "datasets", "tgn", "pits.ndjson"), c.Filename("tgn", model.Pits))
	assert.Equal(t, filepath.Join("/data", "datasets", "tgn", "relations.ndjson"), c.Filename("tgn", model.Relations))
}

func TestCurrent_TruncateAndRemove(t *testing.T) {
	c := NewCurrent(t.TempDir())
	require.NoError(t, c.CreateDir("tgn"))
	require.NoError(t, os.WriteFile(c.Filename("tgn", model.Pits), []byte("x\n"), 0o644))

	require.NoError(t, c.Truncate("tgn", model.Pits))
	require.NoError(t, c.Truncate("tgn", model.Relations))

	for _, kind := range model.FileKinds {
		info, err := os.Stat(c.Filename("tgn", kind))
		require.NoError(t, err)
		assert.Zero(t, info.Size(), kind)
	}

	require.NoError(t, c.RemoveDir("tgn"))
	_, err := os.Stat(c.DatasetDir("tgn"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
