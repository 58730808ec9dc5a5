package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dossier/internal/analyst"
	"dossier/internal/catalog"
	"dossier/internal/storage"
	"dossier/internal/upload"
)

// Server exposes the upload pipeline, the company analyst and the web UI
// over HTTP.
type Server struct {
	Config   Config
	Catalog  *catalog.Catalog
	uploader *upload.Uploader
	analyst  *analyst.Analyst
	metrics  *metrics
}

// NewServer prepares storage and the catalog and returns a new Server. The
// storage engine is initialized here, once, so request handling never has to
// create directories or buckets.
func NewServer(ctx context.Context, cfg Config) (*Server, error) {

	if cfg.DataDir == "" {
		return nil, errors.New("DataDir must not be empty")
	}

	if cfg.Completer == nil {
		return nil, errors.New("Completer must not be nil")
	}

	if cfg.Engine == nil {
		if cfg.UploadDir == "" {
			return nil, errors.New("UploadDir must not be empty without a storage engine")
		}
		cfg.Engine = storage.NewLocalFileStorage(cfg.UploadDir)
	}

	if cfg.StaticDir != "" {
		abs, err := filepath.Abs(cfg.StaticDir)
		if err != nil {
			return nil, fmt.Errorf("resolve static dir: %w", err)
		}
		if info, err := os.Stat(abs); err != nil || !info.IsDir() {
			slog.Warn("Static directory is not available, only built-in pages will be served", "dir", abs)
		}
		cfg.StaticDir = abs
	}

	if err := cfg.Engine.Init(ctx); err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	cat, err := catalog.Open(ctx, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	uploader := upload.NewUploader(cfg.Engine, upload.Config{
		MaxBodyBytes:      cfg.MaxUploadBytes,
		MaxParallelWrites: cfg.MaxParallelWrites,
		Names:             cfg.Names,
		Parser:            cfg.Parser,
	})

	return &Server{
		Config:   cfg,
		Catalog:  cat,
		uploader: uploader,
		analyst:  analyst.New(cfg.Completer),
		metrics:  newMetrics(cfg.Registry),
	}, nil
}

// Close closes any resources held by the Server.
func (s *Server) Close() error {
	return s.Catalog.Close()
}
