package configwatcher

import (
	"os"
	"path/filepath"
	"skillplan_backend/internal/config"
	"testing"
	"time"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(file, []byte("ai:\n  rate_limit:\n    max_calls: 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *config.Config, 4)
	w, err := New(file, func(cfg *config.Config) { reloaded <- cfg })
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.debounce = 20 * time.Millisecond
	go w.Run()
	defer w.Close()

	if err := os.WriteFile(file, []byte("ai:\n  rate_limit:\n    max_calls: 9\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.AI.RateLimit.MaxCalls != 9 {
			t.Fatalf("max_calls = %d, want 9", cfg.AI.RateLimit.MaxCalls)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(file, []byte("server:\n  port: \"8080\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *config.Config, 1)
	w, err := New(file, func(cfg *config.Config) { reloaded <- cfg })
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.debounce = 20 * time.Millisecond
	go w.Run()
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-reloaded:
		t.Fatal("unexpected reload for unrelated file")
	case <-time.After(300 * time.Millisecond):
	}
}
