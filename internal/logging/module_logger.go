package logging

import (
	"context"

	"github.com/goliatone/go-agrocms/pkg/interfaces"
)

const (
	rootModule      = "agrocms"
	animalsModule   = "agrocms.animals"
	reconcileModule = "agrocms.reconcile"
	formsModule     = "agrocms.forms"
	importModule    = "agrocms.import"
)

// ModuleLogger returns the provider's logger for module tagged with a
// "module" field. A nil provider yields a no-op logger.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	return WithFields(logger, map[string]any{"module": module})
}

// AnimalsLogger returns the logger used by the animal type service.
func AnimalsLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, animalsModule)
}

// ReconcileLogger returns the logger used by the collection reconciler.
func ReconcileLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, reconcileModule)
}

// FormsLogger returns the logger used at the form submission boundary.
func FormsLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, formsModule)
}

// ImportLogger returns the logger used by the markdown catalog importer.
func ImportLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, importModule)
}

// NoOp returns a logger that discards every entry.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger { return n }

func (n noopLogger) WithContext(context.Context) interfaces.Logger { return n }
