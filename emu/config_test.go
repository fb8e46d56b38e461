package emu

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, `
[emulation]
dual_core = true
gpu_budget = 4
unknown_key = 12

[workload]
fifo_base = 0x1000
fifo_end = 0x2000
bursts = 10
opcode = 0x90
`)

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	want := DefaultConfig()
	want.Emulation.DualCore = true
	want.Emulation.GPUBudget = 4
	want.Workload.FifoBase = 0x1000
	want.Workload.FifoEnd = 0x2000
	want.Workload.Bursts = 10
	want.Workload.Opcode = 0x90

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadConfig() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Errorf("LoadConfig(missing) succeeded")
	}

	path := writeFile(t, "[emulation\n")
	if _, err := LoadConfig(path); err == nil {
		t.Errorf("LoadConfig(invalid) succeeded")
	}
}

func TestLoadConfigOrDefault(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(t.TempDir(), "missing.toml")},
		{"invalid", writeFile(t, "bursts = = 3")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LoadConfigOrDefault(tt.path)
			if diff := cmp.Diff(DefaultConfig(), got); diff != "" {
				t.Errorf("LoadConfigOrDefault() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConfigCheck(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Emulation.RAMSize = 3 << 20
	cfg.Workload.FifoBase = 0x8000
	cfg.Workload.FifoEnd = 0x8000
	cfg.Check()

	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("Check() mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Emulation.Wii = true
	cfg.Emulation.DeterministicGPU = true
	cfg.Workload.Breakpoint = 0x00200400
	cfg.Workload.CyclesPerBurst = 12

	path := filepath.Join(t.TempDir(), "saved.toml")
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatal(err)
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("config mismatch after save/load (-want +got):\n%s", diff)
	}
}
