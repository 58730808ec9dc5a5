package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"dossier/internal/auth"
	"dossier/internal/core"
	"dossier/internal/llm"
	"dossier/internal/storage"
	"dossier/internal/watcher"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type options struct {
	port              string
	uploadDir         string
	dataDir           string
	staticDir         string
	maxUploadBytes    int64
	maxParallelWrites int
	rateLimit         float64
	logLevel          string

	openAIKey     string
	openAIBaseURL string
	openAIModel   string

	adminUser string
	adminPass string

	s3 storage.MinioConfig
}

func envOr(key string, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt64Or(key string, fallback int64) int64 {
	if n, err := strconv.ParseInt(os.Getenv(key), 10, 64); err == nil {
		return n
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return fallback
}

func rootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "dossier",
		Short: "Company research assistant with file uploads",
		Long: `Serve the company research UI, answer company questions through an
OpenAI-compatible API, and store files uploaded as multipart/form-data.

Flags default to environment variables, which may also be set in a .env
file in the working directory.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.port, "listen", envOr("PORT", "3000"), "HTTP listen port ($PORT)")
	f.StringVar(&opts.uploadDir, "upload-dir", envOr("UPLOAD_DIR", "./uploads"), "directory uploaded files are stored in ($UPLOAD_DIR)")
	f.StringVar(&opts.dataDir, "data-dir", envOr("DATA_DIR", "./data"), "directory holding the upload catalog ($DATA_DIR)")
	f.StringVar(&opts.staticDir, "static-dir", envOr("STATIC_DIR", "./public"), "directory served for other GET requests ($STATIC_DIR)")
	f.Int64Var(&opts.maxUploadBytes, "max-upload-bytes", envInt64Or("MAX_UPLOAD_BYTES", core.DefaultMaxUploadBytes), "largest accepted upload request body ($MAX_UPLOAD_BYTES)")
	f.IntVar(&opts.maxParallelWrites, "max-parallel-writes", int(envInt64Or("MAX_PARALLEL_WRITES", 8)), "concurrent file writes per upload request, 0 for unbounded ($MAX_PARALLEL_WRITES)")
	f.Float64Var(&opts.rateLimit, "rate-limit", envFloatOr("RATE_LIMIT", 2), "API POST requests per second per client IP, 0 to disable ($RATE_LIMIT)")
	f.StringVar(&opts.logLevel, "log-level", envOr("LOG_LEVEL", "info"), "debug, info, warn or error ($LOG_LEVEL)")

	f.StringVar(&opts.openAIKey, "openai-api-key", envOr("OPENAI_API_KEY", ""), "OpenAI API key ($OPENAI_API_KEY)")
	f.StringVar(&opts.openAIBaseURL, "openai-base-url", envOr("OPENAI_BASE_URL", llm.DefaultBaseURL), "OpenAI-compatible API base URL ($OPENAI_BASE_URL)")
	f.StringVar(&opts.openAIModel, "openai-model", envOr("OPENAI_MODEL", llm.DefaultModel), "chat model ($OPENAI_MODEL)")

	f.StringVar(&opts.adminUser, "admin-user", envOr("ADMIN_USER", ""), "username guarding the upload catalog ($ADMIN_USER)")
	f.StringVar(&opts.adminPass, "admin-pass", envOr("ADMIN_PASS", ""), "password guarding the upload catalog ($ADMIN_PASS)")

	f.StringVar(&opts.s3.Endpoint, "s3-endpoint", envOr("S3_ENDPOINT", ""), "store uploads in this S3-compatible endpoint instead of --upload-dir ($S3_ENDPOINT)")
	f.StringVar(&opts.s3.AccessKey, "s3-access-key", envOr("S3_ACCESS_KEY", ""), "S3 access key ($S3_ACCESS_KEY)")
	f.StringVar(&opts.s3.SecretKey, "s3-secret-key", envOr("S3_SECRET_KEY", ""), "S3 secret key ($S3_SECRET_KEY)")
	f.StringVar(&opts.s3.Bucket, "s3-bucket", envOr("S3_BUCKET", "uploads"), "S3 bucket ($S3_BUCKET)")
	f.StringVar(&opts.s3.Region, "s3-region", envOr("S3_REGION", ""), "S3 region ($S3_REGION)")
	f.BoolVar(&opts.s3.UseSSL, "s3-use-ssl", envOr("S3_USE_SSL", "") == "true", "use TLS for the S3 endpoint ($S3_USE_SSL)")

	return cmd
}

func setupLogging(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	handler := log.NewWithOptions(os.Stdout, log.Options{
		Level:           lvl,
		TimeFormat:      time.RFC3339,
		ReportTimestamp: true,
		TimeFunction:    log.NowUTC,
		ReportCaller:    true,
	})

	slog.SetDefault(slog.New(handler))
	return nil
}

func Run(ctx context.Context, opts options) error {

	if err := setupLogging(opts.logLevel); err != nil {
		return err
	}

	if opts.maxUploadBytes < 0 {
		return fmt.Errorf("invalid --max-upload-bytes %d, use 0 for no limit", opts.maxUploadBytes)
	}

	if opts.maxParallelWrites < 0 {
		return fmt.Errorf("invalid --max-parallel-writes %d", opts.maxParallelWrites)
	}

	if opts.openAIKey == "" {
		return errors.New("OpenAI API key is missing, set OPENAI_API_KEY or --openai-api-key")
	}

	completer, err := llm.NewOpenAIClient(opts.openAIKey,
		llm.WithBaseURL(opts.openAIBaseURL),
		llm.WithModel(opts.openAIModel),
	)
	if err != nil {
		return fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	// Ensure directories are absolute for easier debugging.
	absUploadDir, err := filepath.Abs(opts.uploadDir)
	if err != nil {
		return fmt.Errorf("failed to resolve upload directory: %w", err)
	}

	absDataDir, err := filepath.Abs(opts.dataDir)
	if err != nil {
		return fmt.Errorf("failed to resolve data directory: %w", err)
	}

	cfgOpts := []core.ConfigOption{
		core.WithUploadDir(absUploadDir),
		core.WithDataDir(absDataDir),
		core.WithStaticDir(opts.staticDir),
		core.WithMaxUploadBytes(opts.maxUploadBytes),
		core.WithMaxParallelWrites(opts.maxParallelWrites),
		core.WithRateLimit(opts.rateLimit),
		core.WithCompleter(completer),
	}

	local := opts.s3.Endpoint == ""
	if !local {
		engine, err := storage.NewMinioStorage(opts.s3)
		if err != nil {
			return fmt.Errorf("failed to create S3 storage: %w", err)
		}
		slog.Info("Storing uploads in S3", "endpoint", opts.s3.Endpoint, "bucket", engine.Bucket())
		cfgOpts = append(cfgOpts, core.WithStorageEngine(engine))
	}

	if opts.adminUser != "" || opts.adminPass != "" {
		authenticator, err := auth.NewBasicAuthEngine(opts.adminUser, opts.adminPass)
		if err != nil {
			return err
		}
		cfgOpts = append(cfgOpts, core.WithAuthEngine(authenticator))
	}

	server, err := core.NewServer(ctx, core.NewConfig(cfgOpts...))
	if err != nil {
		return fmt.Errorf("failed to create dossier server: %w", err)
	}

	defer server.Close()

	// Files deleted from the upload directory by hand drop out of the catalog.
	var uploadWatcher *watcher.Watcher
	if local {
		uploadWatcher, err = watcher.New(absUploadDir, server.Catalog)
		if err != nil {
			return fmt.Errorf("failed to watch upload directory: %w", err)
		}
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", opts.port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 20 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if uploadWatcher != nil {
		eg.Go(func() error {
			return uploadWatcher.Run(ctx)
		})
	}

	eg.Go(func() error {
		slog.Info("Starting dossier HTTP server", "port", opts.port, "upload_dir", absUploadDir)
		err := httpServer.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	slog.Info("Dossier started")
	return eg.Wait()
}

func main() {
	// A missing .env file is fine; the environment may be set directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("Dossier exited with error", "error", err)
		os.Exit(1)
	}
}
