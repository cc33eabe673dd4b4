package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/agenthands/histograph/internal/auth"
	"github.com/agenthands/histograph/internal/config"
	"github.com/agenthands/histograph/internal/core"
	"github.com/agenthands/histograph/internal/diff"
	"github.com/agenthands/histograph/internal/driver"
	"github.com/agenthands/histograph/internal/ingest"
	"github.com/agenthands/histograph/internal/search"
	"github.com/agenthands/histograph/internal/server"
	"github.com/agenthands/histograph/internal/validate"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "histograph: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, using environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	setupLogger(os.Getenv("LOG_LEVEL"))

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
		if _, err := os.Stat(cfgPath); err != nil {
			slog.WarnContext(ctx, "No config file, using defaults and environment", "path", cfgPath)
			cfgPath = ""
		}
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	d, err := driver.NewNeo4jDriver(ctx, cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, cfg.Neo4j.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to Neo4j: %w", err)
	}
	defer d.Close(context.Background())

	if err := d.BuildIndices(ctx); err != nil {
		return fmt.Errorf("failed to build indices: %w", err)
	}

	index, err := search.NewWeaviateIndex(cfg.Weaviate.Scheme, cfg.Weaviate.Host, cfg.Weaviate.APIKey, cfg.Weaviate.ClassPrefix)
	if err != nil {
		return fmt.Errorf("failed to create Weaviate client: %w", err)
	}

	schemas, err := validate.Load()
	if err != nil {
		return fmt.Errorf("failed to load schemas: %w", err)
	}

	current := diff.NewCurrent(cfg.API.DataDir)
	uploadsDir := filepath.Join(cfg.API.DataDir, "uploads")
	for _, dir := range []string{current.DatasetsDir(), uploadsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	engine := diff.NewLocalEngine(current, &diff.LogSink{}, schemas)
	pipeline := ingest.NewPipeline(uploadsDir, cfg.Upload.RealtimeThreshold, engine)
	corrections := ingest.NewCorrections(schemas, &ingest.LogCorrectionSink{})

	params := core.NewDatasetParams(schemas.Fields(validate.KindDataset))
	datasets := core.NewDatasets(d, index, current, engine, params, cfg.API.CorrectionsDataset)

	hash, err := auth.HashPassword(cfg.API.Admin.Password)
	if err != nil {
		return err
	}
	if err := datasets.InitAdmin(ctx, cfg.API.Admin.Name, hash); err != nil {
		return fmt.Errorf("failed to initialize admin owner: %w", err)
	}

	srv := server.NewServer(datasets, pipeline, corrections, schemas, current, auth.NewGuard(datasets))

	httpServer := newHTTPServer(ctx, ":"+strconv.Itoa(cfg.API.BindPort), srv.SetupRouter())

	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting server", "addr", httpServer.Addr, "data_dir", cfg.API.DataDir)
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.InfoContext(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	pipeline.Wait()
	datasets.Wait()
	slog.Info("Server stopped")
	return nil
}

// newHTTPServer keeps request contexts alive through shutdown so that
// in-flight store sequences finish while Shutdown drains.
func newHTTPServer(ctx context.Context, addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		BaseContext:       func(_ net.Listener) context.Context { return context.WithoutCancel(ctx) },
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func setupLogger(level string) {
	ll := &slog.LevelVar{}
	ll.Set(slog.LevelInfo)
	if level != "" {
		if err := ll.UnmarshalText([]byte(level)); err != nil {
			fmt.Fprintf(os.Stderr, "invalid LOG_LEVEL %q, using info\n", level)
		}
	}

	slog.SetDefault(slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})))
}
