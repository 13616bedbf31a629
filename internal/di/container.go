package di

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/goliatone/go-agrocms/internal/animals"
	"github.com/goliatone/go-agrocms/internal/commands"
	animalscmd "github.com/goliatone/go-agrocms/internal/commands/animals"
	markdowncmd "github.com/goliatone/go-agrocms/internal/commands/markdown"
	"github.com/goliatone/go-agrocms/internal/forms"
	"github.com/goliatone/go-agrocms/internal/logging"
	"github.com/goliatone/go-agrocms/internal/logging/console"
	"github.com/goliatone/go-agrocms/internal/logging/gologger"
	"github.com/goliatone/go-agrocms/internal/markdown"
	"github.com/goliatone/go-agrocms/internal/reconcile"
	"github.com/goliatone/go-agrocms/internal/runtimeconfig"
	"github.com/goliatone/go-agrocms/pkg/interfaces"
	command "github.com/goliatone/go-command"
	repocache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"
	"gopkg.in/natefinch/lumberjack.v2"
)

// CommandRegistry receives every command handler built by the container.
type CommandRegistry interface {
	RegisterCommand(handler any) error
}

// CronRegistrar matches the function signature used by go-command registries.
type CronRegistrar func(command.HandlerConfig, any) error

// Container wires the catalog modules from a runtime configuration.
type Container struct {
	Config runtimeconfig.Config

	loggerProvider interfaces.LoggerProvider

	bunDB         *bun.DB
	cacheService  repocache.CacheService
	keySerializer repocache.KeySerializer

	importFS fs.FS

	registry     CommandRegistry
	cron         CronRegistrar
	cronConfig   command.HandlerConfig
	cronSchedule bool

	repo      animals.Repository
	animalSvc animals.Service
	renderer  *markdown.GoldmarkRenderer
	decoder   *forms.AnimalTypeDecoder
	importer  *markdown.Importer

	animalCommands  *animalscmd.HandlerSet
	catalogCommands *markdowncmd.HandlerSet
}

// Option mutates the container before it is finalised.
type Option func(*Container)

// WithBunDB stores animal types in db instead of memory.
func WithBunDB(db *bun.DB) Option {
	return func(c *Container) {
		c.bunDB = db
	}
}

// WithCache overrides the default cache service used by bun repositories.
func WithCache(service repocache.CacheService, serializer repocache.KeySerializer) Option {
	return func(c *Container) {
		c.cacheService = service
		c.keySerializer = serializer
	}
}

// WithLoggerProvider overrides the provider derived from Config.Logging.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		c.loggerProvider = provider
	}
}

// WithAnimalRepository overrides the repository selection.
func WithAnimalRepository(repo animals.Repository) Option {
	return func(c *Container) {
		c.repo = repo
	}
}

// WithImportFS sets the filesystem catalog directories are read from. The
// default is the working directory.
func WithImportFS(fsys fs.FS) Option {
	return func(c *Container) {
		c.importFS = fsys
	}
}

// WithCommandRegistry registers every command handler with reg.
func WithCommandRegistry(reg CommandRegistry) Option {
	return func(c *Container) {
		c.registry = reg
	}
}

// WithImportSchedule schedules a catalog import of Config.Import.Dir on reg.
func WithImportSchedule(reg CronRegistrar, cfg command.HandlerConfig) Option {
	return func(c *Container) {
		c.cron = reg
		c.cronConfig = cfg
		c.cronSchedule = true
	}
}

// NewContainer validates cfg and builds every catalog module.
func NewContainer(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{Config: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if err := c.configureLoggerProvider(); err != nil {
		return nil, err
	}
	c.configureCacheDefaults()
	c.configureRepositories()
	c.configureServices()
	if err := c.configureCommands(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) configureLoggerProvider() error {
	if c.loggerProvider != nil || !c.Config.Features.Logger {
		return nil
	}

	logCfg := c.Config.Logging
	switch strings.ToLower(strings.TrimSpace(logCfg.Provider)) {
	case "gologger":
		provider, err := gologger.NewProvider(gologger.Config{
			Level:     logCfg.Level,
			Format:    logCfg.Format,
			AddSource: logCfg.AddSource,
			Focus:     logCfg.Focus,
		})
		if err != nil {
			return fmt.Errorf("di: configure logger: %w", err)
		}
		c.loggerProvider = provider
	default:
		level := console.ParseLevel(logCfg.Level)
		opts := console.Options{MinLevel: &level}
		if file := strings.TrimSpace(logCfg.File); file != "" {
			opts.Writer = &lumberjack.Logger{
				Filename:   file,
				MaxSize:    logCfg.MaxSizeMB,
				MaxBackups: logCfg.MaxBackups,
			}
		}
		c.loggerProvider = console.NewProvider(opts)
	}
	return nil
}

func (c *Container) configureCacheDefaults() {
	if !c.Config.Cache.Enabled || c.bunDB == nil {
		return
	}

	if c.cacheService == nil {
		cfg := repocache.DefaultConfig()
		if ttl := c.Config.Cache.DefaultTTL; ttl > 0 {
			cfg.TTL = ttl
		}
		service, err := repocache.NewCacheService(cfg)
		if err != nil {
			logging.AnimalsLogger(c.loggerProvider).Warn("cache.disabled", "error", err)
			return
		}
		c.cacheService = service
	}

	if c.cacheService != nil && c.keySerializer == nil {
		c.keySerializer = repocache.NewDefaultKeySerializer()
	}
}

func (c *Container) configureRepositories() {
	if c.repo != nil {
		return
	}
	switch {
	case c.bunDB != nil && c.cacheService != nil:
		c.repo = animals.NewBunRepositoryWithCache(c.bunDB, c.cacheService, c.keySerializer)
	case c.bunDB != nil:
		c.repo = animals.NewBunRepository(c.bunDB)
	default:
		c.repo = animals.NewMemoryRepository()
	}
}

func (c *Container) configureServices() {
	c.renderer = markdown.NewGoldmarkRenderer(markdown.RenderOptions{
		Extensions: c.Config.Markdown.Extensions,
		HardWraps:  c.Config.Markdown.HardWraps,
		SafeMode:   c.Config.Markdown.SafeMode,
	})

	diffOpts := []reconcile.Option{}
	if runtimeconfig.NormalizeUnknownIDs(c.Config.Reconcile.UnknownIDs) == runtimeconfig.UnknownIDsTreatAsNew {
		diffOpts = append(diffOpts, reconcile.WithUnknownIDPolicy(reconcile.TreatAsNew))
	}

	serviceOpts := []animals.ServiceOption{
		animals.WithLogger(logging.AnimalsLogger(c.loggerProvider)),
		animals.WithRenderer(c.renderer),
		animals.WithReconcilerOptions(
			reconcile.WithLogger(logging.ReconcileLogger(c.loggerProvider)),
			reconcile.WithDiffOptions(diffOpts...),
		),
	}
	if c.Config.Reconcile.RequireVersion {
		serviceOpts = append(serviceOpts, animals.WithVersionRequired())
	}
	c.animalSvc = animals.NewService(c.repo, serviceOpts...)

	c.decoder = forms.NewAnimalTypeDecoder(forms.WithLogger(logging.FormsLogger(c.loggerProvider)))

	importFS := c.importFS
	if importFS == nil {
		importFS = os.DirFS(".")
	}
	c.importer = markdown.NewImporter(markdown.ImporterConfig{
		Service: c.animalSvc,
		Loader: markdown.NewLoader(importFS, markdown.LoaderConfig{
			Pattern:   c.Config.Import.Pattern,
			Recursive: c.Config.Import.Recursive,
		}),
		Logger: logging.ImportLogger(c.loggerProvider),
	})
}

func (c *Container) configureCommands() error {
	timeout := c.Config.Commands.Timeout

	animalSet, err := animalscmd.RegisterAnimalCommands(c.registry, c.animalSvc, c.loggerProvider,
		animalscmd.WithCreateHandlerOptions(commands.WithTimeout[animalscmd.CreateAnimalTypeCommand](timeout)),
		animalscmd.WithUpdateHandlerOptions(commands.WithTimeout[animalscmd.UpdateAnimalTypeCommand](timeout)),
		animalscmd.WithDeleteHandlerOptions(commands.WithTimeout[animalscmd.DeleteAnimalTypeCommand](timeout)),
	)
	if err != nil {
		return fmt.Errorf("di: register animal commands: %w", err)
	}
	c.animalCommands = animalSet

	catalogSet, err := markdowncmd.RegisterCatalogCommands(c.registry, c.importer, c.loggerProvider,
		markdowncmd.FeatureGates{ImportEnabled: func() bool { return c.Config.Features.Import }},
		markdowncmd.WithImportHandlerOptions(commands.WithTimeout[markdowncmd.ImportCatalogCommand](timeout)),
	)
	if err != nil {
		return fmt.Errorf("di: register catalog commands: %w", err)
	}
	c.catalogCommands = catalogSet

	if c.cronSchedule {
		if !c.Config.Features.Import {
			return ErrImportScheduleDisabled
		}
		msg := markdowncmd.ImportCatalogCommand{Directory: c.Config.Import.Dir}
		if err := markdowncmd.RegisterCatalogCron(markdowncmd.CronRegistrar(c.cron), catalogSet.Import, c.cronConfig, msg); err != nil {
			return fmt.Errorf("di: schedule catalog import: %w", err)
		}
	}
	return nil
}

// ErrImportScheduleDisabled is returned when an import schedule is requested
// while Features.Import is off.
var ErrImportScheduleDisabled = errors.New("di: import schedule requires Features.Import")

// LoggerProvider returns the configured provider, nil when logging is off.
func (c *Container) LoggerProvider() interfaces.LoggerProvider {
	return c.loggerProvider
}

// AnimalRepository returns the selected repository.
func (c *Container) AnimalRepository() animals.Repository {
	return c.repo
}

// AnimalService returns the animal type service.
func (c *Container) AnimalService() animals.Service {
	return c.animalSvc
}

// MarkdownRenderer returns the goldmark renderer used for tab bodies.
func (c *Container) MarkdownRenderer() *markdown.GoldmarkRenderer {
	return c.renderer
}

// FormDecoder returns the admin form decoder.
func (c *Container) FormDecoder() *forms.AnimalTypeDecoder {
	return c.decoder
}

// Importer returns the catalog importer.
func (c *Container) Importer() *markdown.Importer {
	return c.importer
}

// AnimalCommands returns the animal type command handlers.
func (c *Container) AnimalCommands() *animalscmd.HandlerSet {
	return c.animalCommands
}

// CatalogCommands returns the catalog import command handlers.
func (c *Container) CatalogCommands() *markdowncmd.HandlerSet {
	return c.catalogCommands
}

// InvalidateCache drops cached reads when the repository caches them.
func (c *Container) InvalidateCache(ctx context.Context) error {
	if invalidator, ok := c.repo.(animals.CacheInvalidator); ok {
		return invalidator.InvalidateCache(ctx)
	}
	return nil
}

// CacheTTL reports the effective cache lifetime, zero when caching is off.
func (c *Container) CacheTTL() time.Duration {
	if c.cacheService == nil {
		return 0
	}
	if ttl := c.Config.Cache.DefaultTTL; ttl > 0 {
		return ttl
	}
	return time.Minute
}
