// Package agrocms is the runtime façade of the bilingual animal catalog: animal
// types own issues, and issues own tabs and images. Every edit to a tree is
// reconciled and applied in a single transaction.
package agrocms

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-agrocms/internal/animals"
	animalscmd "github.com/goliatone/go-agrocms/internal/commands/animals"
	markdowncmd "github.com/goliatone/go-agrocms/internal/commands/markdown"
	"github.com/goliatone/go-agrocms/internal/di"
	"github.com/goliatone/go-agrocms/internal/forms"
	"github.com/goliatone/go-agrocms/internal/markdown"
	"github.com/goliatone/go-agrocms/internal/storage"
	"github.com/uptrace/bun"
)

// AnimalService exports the animal type service contract.
type AnimalService = animals.Service

// AnimalType exports the stored tree root.
type AnimalType = animals.AnimalType

// FormDecoder exports the admin form decoder.
type FormDecoder = *forms.AnimalTypeDecoder

// Importer exports the catalog importer.
type Importer = *markdown.Importer

// Module represents the top level catalog runtime façade.
type Module struct {
	container *di.Container
	db        *bun.DB
}

// New constructs a module using the provided configuration and optional DI
// overrides. Without di.WithBunDB the catalog lives in memory.
func New(cfg Config, opts ...di.Option) (*Module, error) {
	container, err := di.NewContainer(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Open connects to cfg.Storage, creates missing tables and builds a module on
// top of the connection. Close releases it.
func Open(ctx context.Context, cfg Config, opts ...di.Option) (*Module, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	db, err := storage.Open(cfg.Storage)
	if err != nil {
		return nil, err
	}
	if err := storage.Migrate(ctx, db); err != nil {
		return nil, errors.Join(err, db.Close())
	}

	module, err := New(cfg, append([]di.Option{di.WithBunDB(db)}, opts...)...)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	module.db = db
	return module, nil
}

// Close releases the database opened by Open. It is a no-op otherwise.
func (m *Module) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	if err := m.db.Close(); err != nil {
		return fmt.Errorf("agrocms: close database: %w", err)
	}
	return nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// Animals returns the animal type service.
func (m *Module) Animals() AnimalService {
	return m.container.AnimalService()
}

// Forms returns the admin form decoder.
func (m *Module) Forms() FormDecoder {
	return m.container.FormDecoder()
}

// Importer returns the catalog importer.
func (m *Module) Importer() Importer {
	return m.container.Importer()
}

// AnimalCommands returns the create, update and delete command handlers.
func (m *Module) AnimalCommands() *animalscmd.HandlerSet {
	return m.container.AnimalCommands()
}

// CatalogCommands returns the catalog import command handlers.
func (m *Module) CatalogCommands() *markdowncmd.HandlerSet {
	return m.container.CatalogCommands()
}
