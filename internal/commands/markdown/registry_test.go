package markdowncmd

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-agrocms/internal/commands"
	"github.com/goliatone/go-agrocms/internal/commands/fixtures"
	command "github.com/goliatone/go-command"
)

func TestRegisterCatalogCommandsRegistersHandler(t *testing.T) {
	reg := fixtures.NewRecordingRegistry()
	importer, _ := newImporter(t)
	applied := false

	set, err := RegisterCatalogCommands(reg, importer, nil, FeatureGates{},
		WithImportHandlerOptions(func(h *commands.Handler[ImportCatalogCommand]) {
			applied = true
		}),
	)
	if err != nil {
		t.Fatalf("register catalog commands: %v", err)
	}
	if set == nil || set.Import == nil {
		t.Fatalf("expected import handler, got %#v", set)
	}
	if !applied {
		t.Fatal("expected handler options applied")
	}
	if len(reg.Handlers) != 1 || reg.Handlers[0] != set.Import {
		t.Fatalf("expected import handler registered, got %#v", reg.Handlers)
	}
}

func TestRegisterCatalogCommandsErrors(t *testing.T) {
	if _, err := RegisterCatalogCommands(nil, nil, nil, FeatureGates{}); err == nil {
		t.Fatal("expected error when importer is nil")
	}

	importer, _ := newImporter(t)
	reg := fixtures.NewRecordingRegistry()
	reg.Err = errors.New("registry closed")
	if _, err := RegisterCatalogCommands(reg, importer, nil, FeatureGates{}); !errors.Is(err, reg.Err) {
		t.Fatalf("expected registry error, got %v", err)
	}
}

func TestRegisterCatalogCron(t *testing.T) {
	importer, svc := newImporter(t)
	set, err := RegisterCatalogCommands(nil, importer, nil, FeatureGates{})
	if err != nil {
		t.Fatalf("register catalog commands: %v", err)
	}

	recorder := fixtures.NewCronRecorder()
	cfg := command.HandlerConfig{Expression: "@hourly"}
	if err := RegisterCatalogCron(recorder.Registrar(), set.Import, cfg, ImportCatalogCommand{Directory: "catalog"}); err != nil {
		t.Fatalf("register cron: %v", err)
	}
	if len(recorder.Registrations) != 1 || recorder.Registrations[0].Config.Expression != "@hourly" {
		t.Fatalf("unexpected registrations: %+v", recorder.Registrations)
	}

	job, ok := recorder.Registrations[0].Handler.(func() error)
	if !ok {
		t.Fatalf("expected func() error job, got %T", recorder.Registrations[0].Handler)
	}
	if err := job(); err != nil {
		t.Fatalf("cron job: %v", err)
	}
	if _, err := svc.GetBySlug(context.Background(), "goats"); err != nil {
		t.Fatalf("expected cron run to import goats: %v", err)
	}

	recorder.Fail(errors.New("scheduler down"))
	if err := RegisterCatalogCron(recorder.Registrar(), set.Import, cfg, ImportCatalogCommand{Directory: "catalog"}); err == nil {
		t.Fatal("expected registrar failure surfaced")
	}
	if err := RegisterCatalogCron(nil, set.Import, cfg, ImportCatalogCommand{}); err != nil {
		t.Fatalf("nil registrar should be a no-op, got %v", err)
	}
}
