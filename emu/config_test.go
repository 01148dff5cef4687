package emu

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "emvdp.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
region = "pal"
frames = 120
log = ["vdp", "dma"]

[dma]
fast_source = [[0x300000, 0x320000], [0x400000, 0x401000]]

[trace]
path = "trace.jsonl"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	want := Config{
		Region: "pal",
		Frames: 120,
		Log:    []string{"vdp", "dma"},
		DMA: DMAConfig{FastSource: [][2]uint32{
			{0x300000, 0x320000},
			{0x400000, 0x401000},
		}},
		Trace: TraceConfig{Path: "trace.jsonl"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}

	windows := cfg.FastDMAWindows()
	wantWindows := []AddressRange{{0x300000, 0x320000}, {0x400000, 0x401000}}
	if diff := cmp.Diff(wantWindows, windows); diff != "" {
		t.Errorf("windows mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.toml")} {
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Errorf("%q: unexpected error %v", path, err)
			continue
		}
		if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
			t.Errorf("%q: defaults mismatch (-want +got):\n%s", path, diff)
		}
		if cfg.FastDMAWindows() != nil {
			t.Errorf("%q: expected nil windows when unset", path)
		}
	}
}

func TestLoadConfig_PartialKeepsDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `region = "ntsc"`))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Frames != 60 {
		t.Errorf("expected default frames 60, got %d", cfg.Frames)
	}
}

func TestLoadConfig_EmptyWindowList(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "[dma]\nfast_source = []\n"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	windows := cfg.FastDMAWindows()
	if windows == nil || len(windows) != 0 {
		t.Errorf("expected an empty, non-nil window list, got %#v", windows)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown key", `colour = "red"`},
		{"bad region", `region = "secam"`},
		{"negative frames", `frames = -1`},
		{"empty window", "[dma]\nfast_source = [[0x10, 0x10]]\n"},
		{"syntax", `region = `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tt.body)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
