package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestExportAndLoad(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "databridge.hcl")

	cfg := DefaultConfig()
	cfg.ListenAddr = ":9090"
	cfg.PreviewLimit = 50
	cfg.SessionTTL = "2h"
	cfg.ArtifactTTL = "0s"
	cfg.DataDir = "/var/lib/databridge"
	if err := Export(configPath, cfg); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.ListenAddr != ":9090" || loaded.PreviewLimit != 50 {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.SessionTTLDuration() != 2*time.Hour {
		t.Errorf("session ttl = %v", loaded.SessionTTLDuration())
	}
	if loaded.ArtifactTTLDuration() != 0 {
		t.Errorf("artifact ttl = %v, want disabled", loaded.ArtifactTTLDuration())
	}
	if loaded.DBPath() != filepath.Join("/var/lib/databridge", "databridge.db") {
		t.Errorf("db path = %s", loaded.DBPath())
	}
}

func TestLoadDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "empty.hcl")
	if err := os.WriteFile(configPath, []byte(""), 0644); err != nil {
		t.Fatalf("failed to write empty config: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.PreviewLimit != 20 {
		t.Errorf("expected default preview_limit 20, got %d", loaded.PreviewLimit)
	}
	if loaded.ConnectTimeoutDuration() != 5*time.Second {
		t.Errorf("connect timeout = %v", loaded.ConnectTimeoutDuration())
	}
	if loaded.ArtifactTTLDuration() != 7*24*time.Hour {
		t.Errorf("artifact ttl = %v", loaded.ArtifactTTLDuration())
	}
	if loaded.MaxUploadBytes() != 10<<20 {
		t.Errorf("max upload = %d", loaded.MaxUploadBytes())
	}
}

func TestLoad_PartialOverride(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "partial.hcl")
	content := "preview_limit = 5\nconnect_timeout = \"2s\"\n"
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.PreviewLimit != 5 || loaded.ConnectTimeoutDuration() != 2*time.Second {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.SessionTTL != "30m" {
		t.Errorf("untouched key lost its default: %q", loaded.SessionTTL)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.hcl")
	content := "preview_limit = 0\nsession_ttl = \"forever\"\n"
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(configPath)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "preview_limit") || !strings.Contains(err.Error(), "session_ttl") {
		t.Errorf("error should name both bad keys: %v", err)
	}
}

func TestLoad_UnknownAttribute(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "unknown.hcl")
	if err := os.WriteFile(configPath, []byte("colour = \"blue\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(configPath); err == nil {
		t.Fatal("expected error for unknown attribute")
	}
}
