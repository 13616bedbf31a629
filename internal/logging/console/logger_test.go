package console_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-agrocms/internal/logging"
	"github.com/goliatone/go-agrocms/internal/logging/console"
)

func TestConsoleLogger_WritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2026, 3, 14, 15, 9, 26, 535897000, time.UTC)

	provider := console.NewProvider(console.Options{
		Writer:   &buf,
		TimeFunc: func() time.Time { return now },
	})

	logger := logging.WithFields(provider.GetLogger("agrocms.animals"), map[string]any{"module": "agrocms.animals"})
	ctx := logging.ContextWithFields(context.Background(), map[string]any{"correlation_id": "req-1234"})
	logger = logger.WithContext(ctx)

	parentID := uuid.MustParse("8a51a9b1-2d30-4b2c-8ecd-2c0b87dfa999")
	logger.Info("animal_type.updated", "animal_type_id", parentID, "creates", 2)

	got := strings.TrimSpace(buf.String())
	want := "2026-03-14T15:09:26.535897Z INFO animal_type.updated animal_type_id=8a51a9b1-2d30-4b2c-8ecd-2c0b87dfa999 correlation_id=req-1234 creates=2 logger=agrocms.animals module=agrocms.animals"
	if got != want {
		t.Fatalf("unexpected log entry\nwant: %s\ngot:  %s", want, got)
	}
}

func TestConsoleLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	minLevel := console.ParseLevel("info")
	provider := console.NewProvider(console.Options{Writer: &buf, MinLevel: &minLevel})

	logger := provider.GetLogger("agrocms.test")
	logger.Debug("ignored.debug")
	logger.Error("included.error", "error", errors.New("boom now"), "dangling")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected single log line, got %d: %q", len(lines), lines)
	}
	if !strings.Contains(lines[0], `error="boom now"`) {
		t.Fatalf("expected quoted error value, got %s", lines[0])
	}
	if !strings.Contains(lines[0], "field_1=dangling") {
		t.Fatalf("expected dangling arg kept positionally, got %s", lines[0])
	}
}
