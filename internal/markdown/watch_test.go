package markdown

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchDirectoryDebouncesChanges(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- WatchDirectory(ctx, root, WatchOptions{Debounce: 50 * time.Millisecond, Recursive: true}, func(context.Context) {
			changes <- struct{}{}
		})
	}()

	// give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	nested := filepath.Join(root, "drafts")
	if err := os.Mkdir(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	select {
	case <-changes:
	case <-time.After(3 * time.Second):
		t.Fatal("expected a change notification for the new directory")
	}

	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(filepath.Join(nested, "goats.md"), []byte(goatsSource(i)), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	select {
	case <-changes:
	case <-time.After(3 * time.Second):
		t.Fatal("expected a change notification for writes in a new subdirectory")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("WatchDirectory returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestWatchDirectoryRequiresCallback(t *testing.T) {
	if err := WatchDirectory(context.Background(), t.TempDir(), WatchOptions{}, nil); err == nil {
		t.Fatal("expected error without callback")
	}
}

func goatsSource(revision int) string {
	return fmt.Sprintf("---\nname_en: Goats\nposition: %d\n---\n", revision)
}
