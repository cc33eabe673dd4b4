package diff

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/histograph/internal/core/model"
	"github.com/agenthands/histograph/internal/validate"
)

type recordingSink struct {
	mu      sync.Mutex
	changes []Change
	err     error
}

func (s *recordingSink) Publish(ctx context.Context, c Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.changes = append(s.changes, c)
	return nil
}

func (s *recordingSink) actions() map[Action][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[Action][]string{}
	for _, c := range s.changes {
		out[c.Action] = append(out[c.Action], string(c.Data))
	}
	return out
}

func writeUpload(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "upload.ndjson")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newEngine(t *testing.T) (*LocalEngine, *recordingSink, string) {
	t.Helper()
	root := t.TempDir()
	sink := &recordingSink{}
	schemas, err := validate.Load()
	require.NoError(t, err)
	return NewLocalEngine(NewCurrent(root), sink, schemas), sink, root
}

const (
	pitA = `{"id":"a","type":"hg:Place","name":"A"}`
	pitB = `{"id":"b","type":"hg:Place","name":"B"}`
	pitC = `{"id":"c","type":"hg:Place","name":"C"}`
)

func TestProcess_FirstUploadCreatesSnapshot(t *testing.T) {
	e, sink, root := newEngine(t)
	path := writeUpload(t, root, pitA+"\n"+pitB+"\n")

	res, err := e.Process(context.Background(), Job{Dataset: "tgn", Kind: model.Pits, Path: path})
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 0, res.Removed)
	assert.Len(t, sink.actions()[ActionAdd], 2)

	data, err := os.ReadFile(e.Current.Filename("tgn", model.Pits))
	require.NoError(t, err)
	assert.Equal(t, pitA+"\n"+pitB+"\n", string(data))

	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist), "upload is consumed")
}

func TestProcess_Diff(t *testing.T) {
	e, sink, root := newEngine(t)
	require.NoError(t, e.Current.CreateDir("tgn"))
	require.NoError(t, os.WriteFile(e.Current.Filename("tgn", model.Pits), []byte(pitA+"\n"+pitB+"\n"), 0o644))

	path := writeUpload(t, root, pitB+"\n"+pitC+"\n")
	res, err := e.Process(context.Background(), Job{Dataset: "tgn", Kind: model.Pits, Path: path})
	require.NoError(t, err)

	assert.False(t, res.Created)
	assert.False(t, res.Forced)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 1, res.Removed)
	assert.Equal(t, []string{pitA}, sink.actions()[ActionDelete])
	assert.Equal(t, []string{pitC}, sink.actions()[ActionAdd])
}

func TestProcess_ForceSkipsComparison(t *testing.T) {
	e, sink, root := newEngine(t)
	require.NoError(t, e.Current.CreateDir("tgn"))
	require.NoError(t, os.WriteFile(e.Current.Filename("tgn", model.Pits), []byte(pitA+"\n"), 0o644))

	path := writeUpload(t, root, pitA+"\n"+pitB+"\n")
	res, err := e.Process(context.Background(), Job{Dataset: "tgn", Kind: model.Pits, Path: path, Force: true})
	require.NoError(t, err)

	assert.True(t, res.Forced)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 0, res.Removed)
	assert.Empty(t, sink.actions()[ActionDelete])
	assert.Equal(t, []string{pitA, pitB}, sink.actions()[ActionAdd])
}

func TestProcess_InvalidLines(t *testing.T) {
	e, sink, root := newEngine(t)
	path := writeUpload(t, root, pitA+"\n{not json}\n"+`{"name":"no type"}`+"\n")

	_, err := e.Process(context.Background(), Job{Dataset: "tgn", Kind: model.Pits, Path: path})

	var invalid *InvalidLinesError
	require.True(t, errors.As(err, &invalid))
	require.Len(t, invalid.Lines, 2)
	assert.Equal(t, 2, invalid.Lines[0].Line)
	assert.Equal(t, 3, invalid.Lines[1].Line)
	assert.Empty(t, sink.actions())

	_, err = os.Stat(e.Current.Filename("tgn", model.Pits))
	assert.True(t, errors.Is(err, os.ErrNotExist), "snapshot untouched")
	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist), "rejected upload is removed")
}

func TestProcess_SinkError(t *testing.T) {
	e, sink, root := newEngine(t)
	sink.err = errors.New("queue down")
	path := writeUpload(t, root, pitA+"\n")

	_, err := e.Process(context.Background(), Job{Dataset: "tgn", Kind: model.Pits, Path: path})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "queue down")
}

func TestFileChanged(t *testing.T) {
	e, sink, _ := newEngine(t)
	ctx := context.Background()

	// Missing snapshot counts as empty.
	require.NoError(t, e.FileChanged(ctx, "tgn", model.Pits))

	require.NoError(t, e.Current.CreateDir("tgn"))
	require.NoError(t, os.WriteFile(e.Current.Filename("tgn", model.Relations), []byte(`{"from":"a","to":"b","type":"x"}`), 0o644))
	assert.Error(t, e.FileChanged(ctx, "tgn", model.Relations))

	require.NoError(t, e.Current.Truncate("tgn", model.Relations))
	require.NoError(t, e.FileChanged(ctx, "tgn", model.Relations))

	assert.Len(t, sink.actions()[ActionClear], 2)
}
