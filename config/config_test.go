package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/armvmm/vgic/gic"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(gic.DefaultConfig(), got); diff != "" {
		t.Errorf("Load(missing) mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadOverlaysPartialDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gic.yaml")
	if err := os.WriteFile(path, []byte("num_vcpus: 2\nmax_virqs: 64\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := gic.DefaultConfig()
	want.NumVcpus = 2
	want.MaxVirqs = 64
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load(partial) mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gic.yaml")
	if err := os.WriteFile(path, []byte("num_vcpus: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load with num_vcpus: 0 should fail Validate")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gic.yaml")
	if err := os.WriteFile(path, []byte("num_vcpus: [this is not an int\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load with malformed YAML should fail")
	}
}
