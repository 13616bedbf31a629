package runtimeconfig

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

var ErrStorageDriverRequired = errors.New("agrocms config: storage driver is required")
var ErrStorageDriverUnknown = errors.New("agrocms config: storage driver is invalid")
var ErrStorageDSNRequired = errors.New("agrocms config: storage dsn is required")
var ErrCacheTTLInvalid = errors.New("agrocms config: cache ttl must be zero or positive")
var ErrDefaultLocaleUnsupported = errors.New("agrocms config: default locale must be en or ar")
var ErrLocaleUnsupported = errors.New("agrocms config: locale is not supported")
var ErrUnknownIDPolicyInvalid = errors.New("agrocms config: reconcile unknown id policy is invalid")
var ErrCommandTimeoutInvalid = errors.New("agrocms config: command timeout must be zero or positive")
var ErrImportDirRequired = errors.New("agrocms config: import directory is required when import is enabled")
var ErrLoggingProviderRequired = errors.New("agrocms config: logging provider is required when logging feature is enabled")
var ErrLoggingProviderUnknown = errors.New("agrocms config: logging provider is invalid")
var ErrLoggingLevelInvalid = errors.New("agrocms config: logging level is invalid")
var ErrLoggingFormatInvalid = errors.New("agrocms config: logging format is invalid")
var ErrLoggingRotationInvalid = errors.New("agrocms config: log rotation limits must be zero or positive")

// Unknown id policies accepted by ReconcileConfig.UnknownIDs.
const (
	UnknownIDsReject     = "reject"
	UnknownIDsTreatAsNew = "treat_as_new"
)

// Storage drivers accepted by StorageConfig.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config aggregates the runtime settings of the catalog module. Field tags
// name the keys read by Load.
type Config struct {
	Storage   StorageConfig   `yaml:"storage" toml:"storage"`
	Cache     CacheConfig     `yaml:"cache" toml:"cache"`
	I18N      I18NConfig      `yaml:"i18n" toml:"i18n"`
	Reconcile ReconcileConfig `yaml:"reconcile" toml:"reconcile"`
	Commands  CommandsConfig  `yaml:"commands" toml:"commands"`
	Markdown  MarkdownConfig  `yaml:"markdown" toml:"markdown"`
	Import    ImportConfig    `yaml:"import" toml:"import"`
	Features  Features        `yaml:"features" toml:"features"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// StorageConfig selects the database.
type StorageConfig struct {
	Driver       string `yaml:"driver" toml:"driver"`
	DSN          string `yaml:"dsn" toml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns" toml:"max_open_conns"`
	// Debug logs every query through bundebug.
	Debug bool `yaml:"debug" toml:"debug"`
}

// CacheConfig captures cache behaviour toggles.
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled" toml:"enabled"`
	DefaultTTL time.Duration `yaml:"default_ttl" toml:"default_ttl"`
}

// I18NConfig lists the content locales. English is the source locale.
type I18NConfig struct {
	DefaultLocale string   `yaml:"default_locale" toml:"default_locale"`
	Locales       []string `yaml:"locales" toml:"locales"`
}

// ReconcileConfig tunes how edit submissions are reconciled.
type ReconcileConfig struct {
	// UnknownIDs decides what happens to submitted ids the parent does not own.
	UnknownIDs string `yaml:"unknown_ids" toml:"unknown_ids"`
	// RequireVersion rejects updates without an expected version.
	RequireVersion bool `yaml:"require_version" toml:"require_version"`
}

// CommandsConfig captures command-layer behaviour.
type CommandsConfig struct {
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`
}

// MarkdownConfig configures tab body rendering.
type MarkdownConfig struct {
	Extensions []string `yaml:"extensions" toml:"extensions"`
	HardWraps  bool     `yaml:"hard_wraps" toml:"hard_wraps"`
	SafeMode   bool     `yaml:"safe_mode" toml:"safe_mode"`
}

// ImportConfig configures catalog discovery for the importer.
type ImportConfig struct {
	Dir       string `yaml:"dir" toml:"dir"`
	Pattern   string `yaml:"pattern" toml:"pattern"`
	Recursive bool   `yaml:"recursive" toml:"recursive"`
}

// Features toggles module functionality.
type Features struct {
	Import bool `yaml:"import" toml:"import"`
	Logger bool `yaml:"logger" toml:"logger"`
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string   `yaml:"provider" toml:"provider"`
	Level     string   `yaml:"level" toml:"level"`
	Format    string   `yaml:"format" toml:"format"`
	AddSource bool     `yaml:"add_source" toml:"add_source"`
	Focus     []string `yaml:"focus" toml:"focus"`
	// File, when set, sends console output to a size-rotated file.
	File       string `yaml:"file" toml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
}

// DefaultConfig returns defaults suited to a local sqlite database.
func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			Driver: DriverSQLite,
			DSN:    "file:agrocms.db?cache=shared",
		},
		Cache: CacheConfig{
			Enabled:    true,
			DefaultTTL: time.Minute,
		},
		I18N: I18NConfig{
			DefaultLocale: "en",
			Locales:       []string{"en", "ar"},
		},
		Reconcile: ReconcileConfig{
			UnknownIDs: UnknownIDsReject,
		},
		Commands: CommandsConfig{
			Timeout: 30 * time.Second,
		},
		Markdown: MarkdownConfig{},
		Import: ImportConfig{
			Dir:       "catalog",
			Pattern:   "*.md",
			Recursive: true,
		},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
		},
	}
}

// Validate performs high-level consistency checks.
func (cfg Config) Validate() error {
	driver := NormalizeDriver(cfg.Storage.Driver)
	if driver == "" {
		return ErrStorageDriverRequired
	}
	if driver != DriverSQLite && driver != DriverPostgres {
		return fmt.Errorf("%w: %s", ErrStorageDriverUnknown, cfg.Storage.Driver)
	}
	if strings.TrimSpace(cfg.Storage.DSN) == "" {
		return ErrStorageDSNRequired
	}
	if cfg.Cache.DefaultTTL < 0 {
		return ErrCacheTTLInvalid
	}
	if locale := strings.ToLower(strings.TrimSpace(cfg.I18N.DefaultLocale)); locale != "" && !isSupportedLocale(locale) {
		return fmt.Errorf("%w: %s", ErrDefaultLocaleUnsupported, locale)
	}
	for _, locale := range cfg.I18N.Locales {
		if !isSupportedLocale(strings.ToLower(strings.TrimSpace(locale))) {
			return fmt.Errorf("%w: %s", ErrLocaleUnsupported, locale)
		}
	}
	switch NormalizeUnknownIDs(cfg.Reconcile.UnknownIDs) {
	case UnknownIDsReject, UnknownIDsTreatAsNew:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownIDPolicyInvalid, cfg.Reconcile.UnknownIDs)
	}
	if cfg.Commands.Timeout < 0 {
		return ErrCommandTimeoutInvalid
	}
	if cfg.Features.Import && strings.TrimSpace(cfg.Import.Dir) == "" {
		return ErrImportDirRequired
	}
	if cfg.Features.Logger {
		provider := normalizeProvider(cfg.Logging.Provider)
		if provider == "" {
			return ErrLoggingProviderRequired
		}
		if !isSupportedProvider(provider) {
			return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
		}
		if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
			return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
		}
		if cfg.Logging.MaxSizeMB < 0 || cfg.Logging.MaxBackups < 0 {
			return ErrLoggingRotationInvalid
		}
		if provider == "gologger" {
			if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
				return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
			}
		}
	}
	return nil
}

// NormalizeUnknownIDs lower-cases policy and maps an empty value to
// UnknownIDsReject.
func NormalizeUnknownIDs(policy string) string {
	value := strings.ToLower(strings.TrimSpace(policy))
	if value == "" {
		return UnknownIDsReject
	}
	return value
}

// NormalizeDriver maps driver aliases to DriverSQLite or DriverPostgres.
// Unknown names are returned lower-cased.
func NormalizeDriver(driver string) string {
	switch value := strings.ToLower(strings.TrimSpace(driver)); value {
	case "sqlite", "sqlite3":
		return DriverSQLite
	case "postgres", "postgresql", "pg":
		return DriverPostgres
	default:
		return value
	}
}

func isSupportedLocale(locale string) bool {
	return slices.Contains([]string{"en", "ar"}, locale)
}

func normalizeProvider(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "console", "gologger":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
