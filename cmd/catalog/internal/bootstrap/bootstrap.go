package bootstrap

import (
	"context"
	"fmt"
	"os"
	"strings"

	agrocms "github.com/goliatone/go-agrocms"
	"github.com/goliatone/go-agrocms/internal/di"
	"github.com/goliatone/go-agrocms/internal/logging"
	"github.com/goliatone/go-agrocms/pkg/interfaces"
)

// Options captures configuration shared by the catalog CLIs.
type Options struct {
	// ConfigPath points at a YAML or TOML file loaded before the other
	// options are applied.
	ConfigPath string
	// Root is the directory catalog paths are resolved against.
	Root           string
	Pattern        string
	Recursive      bool
	Driver         string
	DSN            string
	LogLevel       string
	LogFormat      string
	SQLDebug       bool
	LoggerProvider interfaces.LoggerProvider
}

// Module wraps the catalog module with the CLI logger.
type Module struct {
	Catalog *agrocms.Module
	Logger  interfaces.Logger
}

// Close releases the module database.
func (m *Module) Close() error {
	if m == nil || m.Catalog == nil {
		return nil
	}
	return m.Catalog.Close()
}

// BuildModule opens the configured database and builds a catalog module with
// imports enabled.
func BuildModule(ctx context.Context, opts Options) (*Module, error) {
	cfg := agrocms.DefaultConfig()
	if path := strings.TrimSpace(opts.ConfigPath); path != "" {
		loaded, err := agrocms.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if driver := strings.TrimSpace(opts.Driver); driver != "" {
		cfg.Storage.Driver = driver
	}
	if dsn := strings.TrimSpace(opts.DSN); dsn != "" {
		cfg.Storage.DSN = dsn
	}
	cfg.Storage.Debug = opts.SQLDebug
	cfg.Features.Import = true
	if pattern := strings.TrimSpace(opts.Pattern); pattern != "" {
		cfg.Import.Pattern = pattern
	}
	cfg.Import.Recursive = opts.Recursive

	cfg.Features.Logger = true
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.Logging.Level = level
	}
	if format := strings.TrimSpace(opts.LogFormat); format != "" {
		cfg.Logging.Provider = "gologger"
		cfg.Logging.Format = format
	}

	root := strings.TrimSpace(opts.Root)
	if root == "" {
		root = "."
	}
	diOpts := []di.Option{di.WithImportFS(os.DirFS(root))}
	if opts.LoggerProvider != nil {
		diOpts = append(diOpts, di.WithLoggerProvider(opts.LoggerProvider))
	}

	module, err := agrocms.Open(ctx, cfg, diOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise catalog module: %w", err)
	}

	return &Module{
		Catalog: module,
		Logger:  logging.ImportLogger(module.Container().LoggerProvider()),
	}, nil
}
