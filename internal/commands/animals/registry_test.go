package animalscmd

import (
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-agrocms/internal/commands"
	"github.com/goliatone/go-agrocms/internal/commands/fixtures"
)

func TestRegisterAnimalCommands(t *testing.T) {
	reg := fixtures.NewRecordingRegistry()
	set, err := RegisterAnimalCommands(reg, newService(), nil,
		WithUpdateHandlerOptions(commands.WithTimeout[UpdateAnimalTypeCommand](time.Second)),
	)
	if err != nil {
		t.Fatalf("register animal commands: %v", err)
	}
	if set.Create == nil || set.Update == nil || set.Delete == nil {
		t.Fatalf("expected all handlers, got %#v", set)
	}
	if len(reg.Handlers) != 3 || reg.Handlers[0] != set.Create || reg.Handlers[2] != set.Delete {
		t.Fatalf("unexpected registrations: %#v", reg.Handlers)
	}
}

func TestRegisterAnimalCommandsErrors(t *testing.T) {
	if _, err := RegisterAnimalCommands(nil, nil, nil); err == nil {
		t.Fatal("expected error for nil service")
	}

	reg := fixtures.NewRecordingRegistry()
	reg.Err = errors.New("closed")
	if _, err := RegisterAnimalCommands(reg, newService(), nil); !errors.Is(err, reg.Err) {
		t.Fatalf("expected registry error, got %v", err)
	}
}
