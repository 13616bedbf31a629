package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-agrocms/cmd/catalog/internal/bootstrap"
)

const pigsDocument = `---
name_en: Pigs
name_ar: خنازير
issues:
  - title_en: Swine fever
    images:
      - url: https://cdn.example.com/fever.jpg
---
`

var dbSeq atomic.Int64

func memoryBuilder(t *testing.T, dsn string) func(context.Context, bootstrap.Options) (*bootstrap.Module, error) {
	t.Helper()
	return func(ctx context.Context, opts bootstrap.Options) (*bootstrap.Module, error) {
		opts.Driver = "sqlite"
		opts.DSN = dsn
		opts.LogLevel = "error"
		return bootstrap.BuildModule(ctx, opts)
	}
}

func TestRunImportUsesCommandHandler(t *testing.T) {
	original := moduleBuilder
	defer func() { moduleBuilder = original }()

	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "docs"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "docs", "pigs.md"), []byte(pigsDocument), 0o644); err != nil {
		t.Fatal(err)
	}
	dsn := fmt.Sprintf("file:import-cli-%d?mode=memory&cache=shared", dbSeq.Add(1))
	moduleBuilder = memoryBuilder(t, dsn)

	ctx := context.Background()
	var dry bytes.Buffer
	if err := runImport(ctx, []string{"-root", root, "-dir", "docs", "-dry-run"}, &dry); err != nil {
		t.Fatalf("dry run returned error: %v", err)
	}
	if !strings.Contains(dry.String(), "create") || !strings.Contains(dry.String(), "dry run") {
		t.Fatalf("unexpected dry run output:\n%s", dry.String())
	}

	var out bytes.Buffer
	if err := runImport(ctx, []string{"-root", root, "-dir", "docs"}, &out); err != nil {
		t.Fatalf("runImport returned error: %v", err)
	}
	if !strings.Contains(out.String(), "pigs") || strings.Contains(out.String(), "dry run") {
		t.Fatalf("unexpected import output:\n%s", out.String())
	}
}

func TestRunImportReportsFailures(t *testing.T) {
	original := moduleBuilder
	defer func() { moduleBuilder = original }()

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "broken.md"), []byte("---\nname_ar: مجهول\n---\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	moduleBuilder = memoryBuilder(t, fmt.Sprintf("file:import-cli-%d?mode=memory&cache=shared", dbSeq.Add(1)))

	err := runImport(context.Background(), []string{"-root", root, "-dir", "."}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected import failure for a document without slug")
	}
}

func TestRunImportLoadsConfigFile(t *testing.T) {
	original := moduleBuilder
	defer func() { moduleBuilder = original }()

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "pigs.md"), []byte(pigsDocument), 0o644); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(root, "agrocms.yaml")
	dsn := fmt.Sprintf("file:import-cli-%d?mode=memory&cache=shared", dbSeq.Add(1))
	config := "storage:\n  driver: sqlite\n  dsn: \"" + dsn + "\"\nimport:\n  pattern: \"*.md\"\n"
	if err := os.WriteFile(configPath, []byte(config), 0o644); err != nil {
		t.Fatal(err)
	}

	var seen bootstrap.Options
	moduleBuilder = func(ctx context.Context, opts bootstrap.Options) (*bootstrap.Module, error) {
		seen = opts
		opts.LogLevel = "error"
		return bootstrap.BuildModule(ctx, opts)
	}

	var out bytes.Buffer
	if err := runImport(context.Background(), []string{"-config", configPath, "-root", root, "-dir", ".", "-pattern", ""}, &out); err != nil {
		t.Fatalf("runImport returned error: %v", err)
	}
	if seen.ConfigPath != configPath {
		t.Fatalf("expected config path passed to bootstrap, got %q", seen.ConfigPath)
	}
	if !strings.Contains(out.String(), "pigs") {
		t.Fatalf("unexpected import output:\n%s", out.String())
	}

	missing := filepath.Join(root, "missing.toml")
	if err := runImport(context.Background(), []string{"-config", missing, "-root", root}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for a missing config file")
	}
}

func TestRunImportWatchReimportsChanges(t *testing.T) {
	original := moduleBuilder
	defer func() { moduleBuilder = original }()

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "pigs.md"), []byte(pigsDocument), 0o644); err != nil {
		t.Fatal(err)
	}
	moduleBuilder = memoryBuilder(t, fmt.Sprintf("file:import-cli-%d?mode=memory&cache=shared", dbSeq.Add(1)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &lockedBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- runImport(ctx, []string{"-root", root, "-dir", ".", "-watch", "-debounce", "50ms"}, out)
	}()

	waitFor(t, out, "pigs")
	// let the watcher register before the catalog changes.
	time.Sleep(150 * time.Millisecond)
	goats := "---\nname_en: Goats\n---\n"
	if err := os.WriteFile(filepath.Join(root, "goats.md"), []byte(goats), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, out, "goats")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, out *lockedBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(out.String(), want) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %q in output:\n%s", want, out.String())
}
