// Package ingest turns uploaded file bodies into diff jobs, either answered
// inline or handed off to the background depending on their size.
package ingest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agenthands/histograph/internal/config"
	"github.com/agenthands/histograph/internal/core/model"
	"github.com/agenthands/histograph/internal/diff"
)

type Request struct {
	Dataset     string
	Kind        model.FileKind
	Force       bool
	ContentType string
	Body        io.Reader
}

// Outcome is either Responded, when the engine already ran, or *Dispatched,
// when the caller must acknowledge the upload before calling Start.
type Outcome interface {
	outcome()
}

type Responded struct {
	Result diff.Result
}

func (Responded) outcome() {}

type Dispatched struct {
	Path string
	Size int64

	ctx   context.Context
	job   diff.Job
	start func(ctx context.Context, job diff.Job)
	once  sync.Once
}

func (*Dispatched) outcome() {}

// Start hands the upload to the engine in the background. Calls after the
// first are no-ops.
func (d *Dispatched) Start() {
	d.once.Do(func() {
		d.start(d.ctx, d.job)
	})
}

// UnreadableError means the upload could not be stored or measured; the
// engine never sees it.
type UnreadableError struct {
	Err error
}

func (e *UnreadableError) Error() string {
	return fmt.Sprintf("Error reading uploaded file: %v", e.Err)
}

func (e *UnreadableError) Unwrap() error { return e.Err }

var errNoFilePart = errors.New("no file part in multipart body")

type Pipeline struct {
	UploadsDir string
	Threshold  int64
	Engine     diff.Engine

	// Now and Random feed upload file names.
	Now    func() time.Time
	Random func() string

	background sync.WaitGroup
}

func NewPipeline(uploadsDir string, threshold int64, engine diff.Engine) *Pipeline {
	if threshold <= 0 {
		threshold = config.DefaultRealtimeThreshold
	}
	return &Pipeline{
		UploadsDir: uploadsDir,
		Threshold:  threshold,
		Engine:     engine,
		Now:        time.Now,
		Random:     uuid.NewString,
	}
}

// TempName returns a fresh upload file name, the hex SHA-1 of the current
// time in milliseconds and a random string.
func (p *Pipeline) TempName() string {
	sum := sha1.Sum([]byte(strconv.FormatInt(p.Now().UnixMilli(), 10) + p.Random()))
	return hex.EncodeToString(sum[:]) + ".ndjson"
}

func (p *Pipeline) Ingest(ctx context.Context, req Request) (Outcome, error) {
	path := filepath.Join(p.UploadsDir, p.TempName())
	if err := p.store(path, req); err != nil {
		os.Remove(path)
		return nil, &UnreadableError{Err: err}
	}

	info, err := os.Stat(path)
	if err != nil {
		os.Remove(path)
		return nil, &UnreadableError{Err: err}
	}

	job := diff.Job{
		Dataset: req.Dataset,
		Kind:    req.Kind,
		Path:    path,
		Force:   req.Force,
	}

	if info.Size() > p.Threshold {
		slog.InfoContext(ctx, "Dispatching large upload",
			"dataset", req.Dataset, "type", string(req.Kind), "size", info.Size())
		return &Dispatched{
			Path:  path,
			Size:  info.Size(),
			ctx:   context.WithoutCancel(ctx),
			job:   job,
			start: p.runBackground,
		}, nil
	}

	res, err := p.Engine.Process(ctx, job)
	if err != nil {
		return nil, err
	}
	return Responded{Result: res}, nil
}

func (p *Pipeline) runBackground(ctx context.Context, job diff.Job) {
	p.background.Add(1)
	go func() {
		defer p.background.Done()

		res, err := p.Engine.Process(ctx, job)
		if err != nil {
			slog.ErrorContext(ctx, "Background diff failed",
				"dataset", job.Dataset, "type", string(job.Kind), "err", err)
			return
		}
		slog.InfoContext(ctx, "Background diff done",
			"dataset", job.Dataset, "type", string(job.Kind),
			"added", res.Added, "removed", res.Removed, "forced", res.Forced)
	}()
}

// Wait blocks until every started background job has finished.
func (p *Pipeline) Wait() {
	p.background.Wait()
}

func (p *Pipeline) store(path string, req Request) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create upload file: %w", err)
	}
	defer f.Close()

	src, err := source(req)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		return fmt.Errorf("failed to write upload file: %w", err)
	}
	return f.Close()
}

// source picks the bytes to store: the first file part of a multipart body,
// nothing for an empty JSON body, otherwise the body itself.
func source(req Request) (io.Reader, error) {
	mediaType, params, _ := mime.ParseMediaType(req.ContentType)

	switch mediaType {
	case "multipart/form-data":
		mr := multipart.NewReader(req.Body, params["boundary"])
		for {
			part, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				return nil, errNoFilePart
			}
			if err != nil {
				return nil, fmt.Errorf("failed to read multipart body: %w", err)
			}
			if part.FileName() != "" {
				return part, nil
			}
		}
	case "application/json":
		data, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read body: %w", err)
		}
		trimmed := strings.TrimSpace(string(data))
		if trimmed == "" || trimmed == "{}" {
			return strings.NewReader(""), nil
		}
		return strings.NewReader(string(data)), nil
	default:
		if req.Body == nil {
			return strings.NewReader(""), nil
		}
		return req.Body, nil
	}
}
