package config

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vango-dev/nativebridge/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Sync.Mode != DefaultSyncMode {
		t.Errorf("Sync.Mode = %q, want %q", cfg.Sync.Mode, DefaultSyncMode)
	}
	if cfg.Sync.ResyncInterval != DefaultResyncInterval {
		t.Errorf("Sync.ResyncInterval = %d, want %d", cfg.Sync.ResyncInterval, DefaultResyncInterval)
	}
	if cfg.Encoder.MaxCommands != DefaultMaxCommands {
		t.Errorf("Encoder.MaxCommands = %d, want %d", cfg.Encoder.MaxCommands, DefaultMaxCommands)
	}
	if cfg.Encoder.MaxPayloadBytes != DefaultMaxPayloadBytes {
		t.Errorf("Encoder.MaxPayloadBytes = %d, want %d", cfg.Encoder.MaxPayloadBytes, DefaultMaxPayloadBytes)
	}
	if cfg.FrameInterval() != 16*time.Millisecond {
		t.Errorf("FrameInterval() = %v, want 16ms", cfg.FrameInterval())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFormats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "json",
			file: "nativebridge.json",
			content: `{
  "sync": {"mode": "mutations_only"},
  "encoder": {"maxCommands": 512},
  "log": {"level": "debug", "format": "json"}
}
`,
		},
		{
			name: "toml",
			file: "nativebridge.toml",
			content: `[sync]
mode = "mutations_only"

[encoder]
maxCommands = 512

[log]
level = "debug"
format = "json"
`,
		},
		{
			name: "yaml",
			file: "nativebridge.yaml",
			content: `sync:
  mode: mutations_only
encoder:
  maxCommands: 512
log:
  level: debug
  format: json
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}

			cfg, err := Load(dir)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.Sync.Mode != "mutations_only" {
				t.Errorf("Sync.Mode = %q, want mutations_only", cfg.Sync.Mode)
			}
			if cfg.Encoder.MaxCommands != 512 {
				t.Errorf("Encoder.MaxCommands = %d, want 512", cfg.Encoder.MaxCommands)
			}
			if cfg.Encoder.MaxPayloadBytes != DefaultMaxPayloadBytes {
				t.Errorf("Encoder.MaxPayloadBytes = %d, want default", cfg.Encoder.MaxPayloadBytes)
			}
			if cfg.Log.Format != "json" {
				t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
			}
			if cfg.Path() != path {
				t.Errorf("Path() = %q, want %q", cfg.Path(), path)
			}
			if cfg.Dir() != dir {
				t.Errorf("Dir() = %q, want %q", cfg.Dir(), dir)
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing config")
	}
	if !stderrors.Is(err, errors.New("B051")) {
		t.Errorf("error = %v, want B051", err)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"bad json", "nativebridge.json", `{"sync": `},
		{"bad mode", "nativebridge.json", `{"sync": {"mode": "sometimes"}}`},
		{"bad interval", "nativebridge.yaml", "loop:\n  frameInterval: soon\n"},
		{"bad level", "nativebridge.toml", "[log]\nlevel = \"loud\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadFile(path)
			if !stderrors.Is(err, errors.New("B050")) {
				t.Errorf("LoadFile() error = %v, want B050", err)
			}
		})
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	for _, ext := range []string{".json", ".toml", ".yaml"} {
		t.Run(ext, func(t *testing.T) {
			cfg := New()
			cfg.Recording.S3Bucket = "frames"
			cfg.Native.Library = "libdvui.so"

			path := filepath.Join(t.TempDir(), ConfigBaseName+ext)
			if err := cfg.SaveTo(path); err != nil {
				t.Fatalf("SaveTo() error = %v", err)
			}

			loaded, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile() error = %v", err)
			}
			if loaded.Recording.S3Bucket != "frames" {
				t.Errorf("Recording.S3Bucket = %q, want frames", loaded.Recording.S3Bucket)
			}
			if got, want := loaded.LibraryPath(), filepath.Join(filepath.Dir(path), "libdvui.so"); got != want {
				t.Errorf("LibraryPath() = %q, want %q", got, want)
			}
		})
	}
}

func TestSaveWithoutPath(t *testing.T) {
	if err := New().Save(); err == nil {
		t.Error("Save() without a path should fail")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"nonsense", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nativebridge.json")
	if err := os.WriteFile(path, []byte(`{"log": {"level": "info"}}`), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reloaded := make(chan *Config, 1)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(cfg *Config, err error) {
			if err == nil {
				select {
				case reloaded <- cfg:
				default:
				}
			}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte(`{"log": {"level": "debug"}}`), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Log.Level != "debug" {
			t.Errorf("reloaded Log.Level = %q, want debug", cfg.Log.Level)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for reload")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch() error = %v", err)
	}
}

func TestWatchLogsWatcherErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan fsnotify.Event)
	errs := make(chan error)
	done := make(chan struct{})
	go func() {
		defer close(done)
		watchLoop(ctx, "nativebridge.json", events, errs, func(*Config, error) {
			t.Error("reload callback ran without an event")
		}, logger)
	}()

	errs <- stderrors.New("queue overflow")
	cancel()
	<-done

	out := buf.String()
	if !strings.Contains(out, "config watcher error") || !strings.Contains(out, "queue overflow") {
		t.Errorf("log output = %q, want the watcher error", out)
	}
}

func TestWithWatchLoggerIgnoresNil(t *testing.T) {
	o := watchOptions{logger: slog.Default()}
	WithWatchLogger(nil)(&o)
	if o.logger != slog.Default() {
		t.Error("WithWatchLogger(nil) replaced the default logger")
	}
}
