package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestHotReloader_ReloadOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(path, []byte("env: dev\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	reloaded := make(chan AppConfig, 1)
	hr, err := NewHotReloader(path, 10*time.Millisecond, func(cfg AppConfig) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	if err != nil {
		t.Fatalf("new reloader: %v", err)
	}
	if err := hr.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer hr.Stop()

	if hr.Current().Env != "dev" {
		t.Fatalf("unexpected initial env: %s", hr.Current().Env)
	}

	// 等待冷却窗口过去再写入
	time.Sleep(20 * time.Millisecond)
	if err := os.WriteFile(path, []byte("env: prod\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Env != "prod" {
			t.Fatalf("expected env prod after reload, got %s", cfg.Env)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestHotReloader_KeepsOldConfigOnInvalidWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(path, []byte("env: dev\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	hr, err := NewHotReloader(path, 10*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("new reloader: %v", err)
	}
	if err := hr.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer hr.Stop()

	time.Sleep(20 * time.Millisecond)
	// 写入非法配置：env 为空
	if err := os.WriteFile(path, []byte("env: \"\"\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	if hr.Current().Env != "dev" {
		t.Fatalf("invalid write must not replace config, got env %q", hr.Current().Env)
	}
}
