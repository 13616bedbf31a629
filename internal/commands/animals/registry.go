package animalscmd

import (
	"errors"

	"github.com/goliatone/go-agrocms/internal/animals"
	"github.com/goliatone/go-agrocms/internal/commands"
	"github.com/goliatone/go-agrocms/pkg/interfaces"
)

// CommandRegistry is the minimal registration contract expected when wiring command handlers.
type CommandRegistry interface {
	RegisterCommand(handler any) error
}

// HandlerSet groups the animal type handlers built by RegisterAnimalCommands.
type HandlerSet struct {
	Create *CreateAnimalTypeHandler
	Update *UpdateAnimalTypeHandler
	Delete *DeleteAnimalTypeHandler
}

// Option customises handler wiring during registration.
type Option func(*options)

type options struct {
	createOpts []commands.HandlerOption[CreateAnimalTypeCommand]
	updateOpts []commands.HandlerOption[UpdateAnimalTypeCommand]
	deleteOpts []commands.HandlerOption[DeleteAnimalTypeCommand]
}

// WithCreateHandlerOptions forwards options to the create handler.
func WithCreateHandlerOptions(opts ...commands.HandlerOption[CreateAnimalTypeCommand]) Option {
	return func(cfg *options) { cfg.createOpts = append(cfg.createOpts, opts...) }
}

// WithUpdateHandlerOptions forwards options to the update handler.
func WithUpdateHandlerOptions(opts ...commands.HandlerOption[UpdateAnimalTypeCommand]) Option {
	return func(cfg *options) { cfg.updateOpts = append(cfg.updateOpts, opts...) }
}

// WithDeleteHandlerOptions forwards options to the delete handler.
func WithDeleteHandlerOptions(opts ...commands.HandlerOption[DeleteAnimalTypeCommand]) Option {
	return func(cfg *options) { cfg.deleteOpts = append(cfg.deleteOpts, opts...) }
}

// RegisterAnimalCommands builds the animal type handlers and registers them
// with reg in create, update, delete order. A nil reg only builds them.
func RegisterAnimalCommands(reg CommandRegistry, service animals.Service, provider interfaces.LoggerProvider, opts ...Option) (*HandlerSet, error) {
	if service == nil {
		return nil, errors.New("animal command registration: service is nil")
	}

	cfg := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	logger := commands.CommandLogger(provider, "animals")
	set := &HandlerSet{
		Create: NewCreateAnimalTypeHandler(service, logger, cfg.createOpts...),
		Update: NewUpdateAnimalTypeHandler(service, logger, cfg.updateOpts...),
		Delete: NewDeleteAnimalTypeHandler(service, logger, cfg.deleteOpts...),
	}
	if reg != nil {
		for _, handler := range []any{set.Create, set.Update, set.Delete} {
			if err := reg.RegisterCommand(handler); err != nil {
				return nil, err
			}
		}
	}
	return set, nil
}
