package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Governor.DailyBudget = 3.25
	cfg.Learning.Store = "badger"
	cfg.Source.ItemsFile = "/data/items.json"

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600 permissions, got %04o", info.Mode().Perm())
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}

	if loaded.Governor.DailyBudget != 3.25 {
		t.Errorf("expected budget 3.25, got %f", loaded.Governor.DailyBudget)
	}
	if loaded.Learning.Store != "badger" {
		t.Errorf("expected badger store, got %q", loaded.Learning.Store)
	}
	if loaded.Source.ItemsFile != "/data/items.json" {
		t.Errorf("expected items file, got %q", loaded.Source.ItemsFile)
	}
	if loaded.Cache.BioTTL != cfg.Cache.BioTTL {
		t.Errorf("expected bio TTL to round-trip, got %s", loaded.Cache.BioTTL)
	}
}

func TestSave_CreatesBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	if err := Save(Default(), path); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	original, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	cfg := Default()
	cfg.Batch.ChunkSize = 4
	if err := Save(cfg, path); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	backup, err := os.ReadFile(path + ".bak")
	if err != nil {
		t.Fatalf("backup not created: %v", err)
	}
	if string(backup) != string(original) {
		t.Error("backup should hold the previous config")
	}
}

func TestSave_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.Cache.Backend = "nope"

	err := Save(cfg, path)
	var invalid *InvalidConfigError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidConfigError, got %v", err)
	}
	if invalid.Path != path {
		t.Errorf("expected error path %q, got %q", path, invalid.Path)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("invalid config must not be written")
	}
}

func TestSave_ReadOnlyDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := t.TempDir()
	if err := os.Chmod(dir, 0500); err != nil {
		t.Fatalf("chmod failed: %v", err)
	}
	t.Cleanup(func() { os.Chmod(dir, 0755) })

	err := Save(Default(), filepath.Join(dir, "config.yaml"))
	var perm *PermissionError
	if !errors.As(err, &perm) {
		t.Fatalf("expected PermissionError, got %v", err)
	}
	if !errors.Is(err, fs.ErrPermission) {
		t.Error("expected error to match fs.ErrPermission")
	}
	if !strings.Contains(err.Error(), "fix: ") {
		t.Errorf("error should carry a fix, got: %v", err)
	}
}
