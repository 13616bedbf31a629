package markdowncmd

import (
	"context"
	"errors"

	"github.com/goliatone/go-agrocms/internal/commands"
	"github.com/goliatone/go-agrocms/internal/logging"
	"github.com/goliatone/go-agrocms/internal/markdown"
	"github.com/goliatone/go-agrocms/pkg/interfaces"
	command "github.com/goliatone/go-command"
)

const importOperation = "catalog.import_directory"

var (
	// ErrImportFeatureDisabled is returned when catalog imports are switched off at runtime.
	ErrImportFeatureDisabled = errors.New("catalog import command: feature disabled")
	// ErrImporterRequired is returned when the handler is built without an importer.
	ErrImporterRequired = errors.New("catalog import command: importer is required")
)

var _ command.Commander[ImportCatalogCommand] = (*ImportCatalogHandler)(nil)

// DirectoryImporter is the part of markdown.Importer the handler needs.
type DirectoryImporter interface {
	ImportDirectory(ctx context.Context, dir string, opts markdown.ImportOptions) (*markdown.Result, error)
}

// ImportCatalogHandler runs catalog imports through the shared command handler.
type ImportCatalogHandler struct {
	inner *commands.Handler[ImportCatalogCommand]
}

// NewImportCatalogHandler creates a handler bound to importer.
func NewImportCatalogHandler(importer DirectoryImporter, logger interfaces.Logger, gates FeatureGates, opts ...commands.HandlerOption[ImportCatalogCommand]) *ImportCatalogHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg ImportCatalogCommand) error {
		if !gates.importEnabled() {
			return ErrImportFeatureDisabled
		}
		if importer == nil {
			return ErrImporterRequired
		}

		result, err := importer.ImportDirectory(ctx, msg.Directory, markdown.ImportOptions{DryRun: msg.DryRun})
		if result != nil {
			logging.WithFields(baseLogger, map[string]any{
				"created_count":   result.Count(markdown.ActionCreate),
				"updated_count":   result.Count(markdown.ActionUpdate),
				"unchanged_count": result.Count(markdown.ActionUnchanged),
				"error_count":     len(result.Errors),
				"dry_run":         msg.DryRun,
			}).Info("catalog.command.import_directory.completed")
			if msg.Result != nil {
				msg.Result(result)
			}
		}
		return err
	}

	handlerOpts := []commands.HandlerOption[ImportCatalogCommand]{
		commands.WithLogger[ImportCatalogCommand](baseLogger),
		commands.WithOperation[ImportCatalogCommand](importOperation),
		commands.WithMessageFields(func(msg ImportCatalogCommand) map[string]any {
			fields := map[string]any{"directory": msg.Directory}
			if msg.DryRun {
				fields["dry_run"] = true
			}
			return fields
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[ImportCatalogCommand]()),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &ImportCatalogHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[ImportCatalogCommand].
func (h *ImportCatalogHandler) Execute(ctx context.Context, msg ImportCatalogCommand) error {
	return h.inner.Execute(ctx, msg)
}
