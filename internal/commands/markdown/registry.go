package markdowncmd

import (
	"context"
	"errors"

	"github.com/goliatone/go-agrocms/internal/commands"
	"github.com/goliatone/go-agrocms/pkg/interfaces"
	command "github.com/goliatone/go-command"
)

// CommandRegistry is the minimal registration contract expected when wiring command handlers.
type CommandRegistry interface {
	RegisterCommand(handler any) error
}

// CronRegistrar matches the function signature used by go-command registries.
type CronRegistrar func(command.HandlerConfig, any) error

// HandlerSet groups the catalog command handlers produced by RegisterCatalogCommands.
type HandlerSet struct {
	Import *ImportCatalogHandler
}

// Option customises handler wiring during registration.
type Option func(*options)

type options struct {
	importHandlerOpts []commands.HandlerOption[ImportCatalogCommand]
}

// WithImportHandlerOptions forwards options to the ImportCatalogHandler constructor.
func WithImportHandlerOptions(opts ...commands.HandlerOption[ImportCatalogCommand]) Option {
	return func(cfg *options) {
		cfg.importHandlerOpts = append(cfg.importHandlerOpts, opts...)
	}
}

// RegisterCatalogCommands builds the catalog import handler and registers it
// with reg. The handler set is returned so callers can wire cron schedules.
func RegisterCatalogCommands(reg CommandRegistry, importer DirectoryImporter, provider interfaces.LoggerProvider, gates FeatureGates, opts ...Option) (*HandlerSet, error) {
	if importer == nil {
		return nil, errors.New("catalog command registration: importer is nil")
	}

	cfg := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	handler := NewImportCatalogHandler(importer, commands.CommandLogger(provider, "catalog"), gates, cfg.importHandlerOpts...)
	if reg != nil {
		if err := reg.RegisterCommand(handler); err != nil {
			return nil, err
		}
	}
	return &HandlerSet{Import: handler}, nil
}

// RegisterCatalogCron schedules handler with msg on reg. Runs use a
// background context.
func RegisterCatalogCron(reg CronRegistrar, handler *ImportCatalogHandler, cfg command.HandlerConfig, msg ImportCatalogCommand) error {
	if reg == nil || handler == nil {
		return nil
	}
	return reg(cfg, func() error {
		return handler.Execute(context.Background(), msg)
	})
}
