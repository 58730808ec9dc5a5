package core

import (
	"dossier/internal/auth"
	"dossier/internal/llm"
	"dossier/internal/storage"
	"dossier/internal/upload"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultMaxUploadBytes = 100 << 20
	DefaultListLimit      = 50
)

type Config struct {
	// UploadDir backs the default local storage engine when Engine is nil.
	UploadDir string
	// DataDir holds the upload catalog database.
	DataDir string
	// StaticDir is served for GET requests no other route claims. Empty
	// disables static serving.
	StaticDir string

	MaxUploadBytes    int64
	MaxParallelWrites int

	// RateLimit is the number of API POSTs allowed per second and client IP.
	// Zero disables rate limiting.
	RateLimit float64

	Engine        storage.StorageEngine
	Completer     llm.Completer
	Authenticator auth.AuthEngine
	Registry      *prometheus.Registry
	Names         upload.NameGenerator
	Parser        upload.ParseFunc
}

type ConfigOption func(*Config)

func WithUploadDir(dir string) ConfigOption {
	return func(cfg *Config) {
		cfg.UploadDir = dir
	}
}

func WithDataDir(dataDir string) ConfigOption {
	return func(cfg *Config) {
		cfg.DataDir = dataDir
	}
}

func WithStaticDir(dir string) ConfigOption {
	return func(cfg *Config) {
		cfg.StaticDir = dir
	}
}

func WithMaxUploadBytes(n int64) ConfigOption {
	return func(cfg *Config) {
		cfg.MaxUploadBytes = n
	}
}

func WithMaxParallelWrites(n int) ConfigOption {
	return func(cfg *Config) {
		cfg.MaxParallelWrites = n
	}
}

func WithRateLimit(perSecond float64) ConfigOption {
	return func(cfg *Config) {
		cfg.RateLimit = perSecond
	}
}

func WithStorageEngine(engine storage.StorageEngine) ConfigOption {
	return func(cfg *Config) {
		cfg.Engine = engine
	}
}

func WithCompleter(completer llm.Completer) ConfigOption {
	return func(cfg *Config) {
		cfg.Completer = completer
	}
}

func WithAuthEngine(authenticator auth.AuthEngine) ConfigOption {
	return func(cfg *Config) {
		cfg.Authenticator = authenticator
	}
}

func WithRegistry(registry *prometheus.Registry) ConfigOption {
	return func(cfg *Config) {
		cfg.Registry = registry
	}
}

func WithNameGenerator(names upload.NameGenerator) ConfigOption {
	return func(cfg *Config) {
		cfg.Names = names
	}
}

func WithUploadParser(parse upload.ParseFunc) ConfigOption {
	return func(cfg *Config) {
		cfg.Parser = parse
	}
}

func NewConfig(opts ...ConfigOption) Config {
	cfg := Config{
		MaxUploadBytes: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
