package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plugins.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestBuildPluginsDefaultsToAllCollectors(t *testing.T) {
	cfg := appConfig{ManifestPath: filepath.Join(t.TempDir(), "missing.yml")}

	plugins, err := buildPlugins(cfg, nil)
	if err != nil {
		t.Fatalf("buildPlugins: %v", err)
	}
	if len(plugins) != 4 {
		t.Fatalf("got %d plugins, want 4", len(plugins))
	}
}

func TestBuildPluginsHonorsManifestSelection(t *testing.T) {
	cfg := appConfig{ManifestPath: writeManifest(t, `
plugins:
  - name: disk
    every: 5
`)}

	plugins, err := buildPlugins(cfg, nil)
	if err != nil {
		t.Fatalf("buildPlugins: %v", err)
	}
	if len(plugins) != 1 {
		t.Fatalf("got %d plugins, want 1", len(plugins))
	}
	props, err := plugins[0].Properties()
	if err != nil {
		t.Fatalf("Properties: %v", err)
	}
	if props.Name != "disk" {
		t.Errorf("Name = %q, want disk", props.Name)
	}
	if props.Every != 5*time.Minute {
		t.Errorf("Every = %v, want 5m", props.Every)
	}
}

func TestBuildPluginsSkipsUnknownEntries(t *testing.T) {
	cfg := appConfig{ManifestPath: writeManifest(t, `
plugins:
  - name: ghost
  - name: memory
`)}

	plugins, err := buildPlugins(cfg, nil)
	if err != nil {
		t.Fatalf("buildPlugins: %v", err)
	}
	if len(plugins) != 1 {
		t.Fatalf("got %d plugins, want 1", len(plugins))
	}
	if plugins[0].Name() != "memory" {
		t.Errorf("Name = %q, want memory", plugins[0].Name())
	}
}

func TestBuildPluginsRejectsBrokenManifest(t *testing.T) {
	cfg := appConfig{ManifestPath: writeManifest(t, `
plugins:
  - name: disk
  - name: disk
`)}

	if _, err := buildPlugins(cfg, nil); err == nil {
		t.Fatal("expected error for duplicate manifest entries")
	}
}
