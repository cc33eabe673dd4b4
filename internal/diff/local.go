package diff

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/agenthands/histograph/internal/core/model"
	"github.com/agenthands/histograph/internal/validate"
)

const (
	defaultMaxLineErrors = 10
	maxLineSize          = 64 << 20
)

// LocalEngine diffs uploads line by line against the snapshot on disk and
// then promotes the upload to be the new snapshot. Lines are compared by
// their xxhash, so only hashes are held in memory.
type LocalEngine struct {
	Current       *Current
	Sink          Sink
	Validator     validate.Validator
	MaxLineErrors int
}

func NewLocalEngine(current *Current, sink Sink, validator validate.Validator) *LocalEngine {
	return &LocalEngine{
		Current:       current,
		Sink:          sink,
		Validator:     validator,
		MaxLineErrors: defaultMaxLineErrors,
	}
}

func (e *LocalEngine) Process(ctx context.Context, job Job) (Result, error) {
	// Removes the upload on every path except a successful promotion.
	defer os.Remove(job.Path)

	if e.Validator != nil {
		if err := e.validateLines(job); err != nil {
			return Result{}, err
		}
	}

	target := e.Current.Filename(job.Dataset, job.Kind)
	_, statErr := os.Stat(target)
	res := Result{Created: errors.Is(statErr, os.ErrNotExist), Forced: job.Force}

	var err error
	if job.Force {
		res.Added, err = e.publishAll(ctx, job)
	} else {
		res.Added, res.Removed, err = e.compare(ctx, job, target)
	}
	if err != nil {
		return Result{}, err
	}

	if err := e.Current.CreateDir(job.Dataset); err != nil {
		return Result{}, err
	}
	if err := os.Rename(job.Path, target); err != nil {
		return Result{}, fmt.Errorf("failed to replace %s snapshot: %w", job.Kind, err)
	}
	return res, nil
}

// FileChanged succeeds once the snapshot is empty or gone.
func (e *LocalEngine) FileChanged(ctx context.Context, dataset string, kind model.FileKind) error {
	info, err := os.Stat(e.Current.Filename(dataset, kind))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("failed to stat %s snapshot: %w", kind, err)
	case info.Size() != 0:
		return fmt.Errorf("%s snapshot of %s is not empty (%d bytes)", kind, dataset, info.Size())
	}
	return e.publish(ctx, Change{Dataset: dataset, Kind: kind, Action: ActionClear})
}

func (e *LocalEngine) validateLines(job Job) error {
	limit := e.MaxLineErrors
	if limit <= 0 {
		limit = defaultMaxLineErrors
	}

	invalid := &InvalidLinesError{Kind: job.Kind}
	errFull := errors.New("enough")
	err := eachLine(job.Path, func(n int, line []byte) error {
		var v interface{}
		if err := json.Unmarshal(line, &v); err != nil {
			invalid.Lines = append(invalid.Lines, LineError{Line: n, Err: err.Error()})
		} else if err := e.Validator.Validate(string(job.Kind), v); err != nil {
			invalid.Lines = append(invalid.Lines, LineError{Line: n, Err: err.Error()})
		}
		if len(invalid.Lines) >= limit {
			return errFull
		}
		return nil
	})
	if err != nil && !errors.Is(err, errFull) {
		return err
	}
	if len(invalid.Lines) > 0 {
		return invalid
	}
	return nil
}

func (e *LocalEngine) publishAll(ctx context.Context, job Job) (int, error) {
	added := 0
	err := eachLine(job.Path, func(_ int, line []byte) error {
		added++
		return e.publish(ctx, change(job, ActionAdd, line))
	})
	return added, err
}

func (e *LocalEngine) compare(ctx context.Context, job Job, target string) (added, removed int, err error) {
	uploaded := make(map[uint64]struct{})
	err = eachLine(job.Path, func(_ int, line []byte) error {
		uploaded[xxhash.Sum64(line)] = struct{}{}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	previous := make(map[uint64]struct{})
	err = eachLine(target, func(_ int, line []byte) error {
		h := xxhash.Sum64(line)
		previous[h] = struct{}{}
		if _, ok := uploaded[h]; ok {
			return nil
		}
		removed++
		return e.publish(ctx, change(job, ActionDelete, line))
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, 0, err
	}

	err = eachLine(job.Path, func(_ int, line []byte) error {
		h := xxhash.Sum64(line)
		if _, ok := previous[h]; ok {
			return nil
		}
		previous[h] = struct{}{}
		added++
		return e.publish(ctx, change(job, ActionAdd, line))
	})
	if err != nil {
		return 0, 0, err
	}
	return added, removed, nil
}

func (e *LocalEngine) publish(ctx context.Context, c Change) error {
	if e.Sink == nil {
		return nil
	}
	if err := e.Sink.Publish(ctx, c); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

func change(job Job, action Action, line []byte) Change {
	return Change{
		Dataset: job.Dataset,
		Kind:    job.Kind,
		Action:  action,
		Data:    json.RawMessage(bytes.Clone(line)),
	}
}

// eachLine calls fn with every non-blank line of path and its 1-based line
// number. The slice passed to fn is only valid during the call.
func eachLine(path string, fn func(n int, line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	n := 0
	for sc.Scan() {
		n++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := fn(n, line); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}
