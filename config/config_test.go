package config

import (
	goerrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/wippyai/nanocore-host/device"
	"github.com/wippyai/nanocore-host/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "machine.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
memory_size = 0x200000
program = "boot.bin"
load_address = 0x10000
max_instructions = 5000
breakpoints = [0x10008, 0x10020]

[[devices]]
kind = "timer"
start = 0x7100
end = 0x7118
id = 3
period = 1000

[[devices]]
kind = "console"
start = 0x7000
end = 0x7010
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MemorySize != 0x200000 || cfg.Program != "boot.bin" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if len(cfg.Breakpoints) != 2 || cfg.Breakpoints[1] != 0x10020 {
		t.Fatalf("breakpoints = %v", cfg.Breakpoints)
	}
	if len(cfg.Devices) != 2 {
		t.Fatalf("devices = %v", cfg.Devices)
	}

	dev, err := cfg.Devices[0].New()
	if err != nil {
		t.Fatalf("device build failed: %v", err)
	}
	timer, ok := dev.(*device.Timer)
	if !ok {
		t.Fatalf("device = %T, want timer", dev)
	}
	if timer.Read(device.TimerRegPeriod) != 1000 || timer.Read(device.TimerRegCtrl) != 1 {
		t.Fatal("timer not armed from config")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `program = "a.bin"`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	def := Default()
	if cfg.MemorySize != def.MemorySize || cfg.LoadAddress != def.LoadAddress {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"zero memory", "memory_size = 0"},
		{"load outside memory", "memory_size = 0x1000\nload_address = 0x2000"},
		{"empty device range", "[[devices]]\nkind = \"console\"\nstart = 0x10\nend = 0x10"},
		{"unknown device", "[[devices]]\nkind = \"gpu\"\nstart = 0x0\nend = 0x10"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.body)
			if _, err := Load(path); !goerrors.Is(err, errors.ErrInvalidParameter) {
				t.Fatalf("err = %v, want invalid parameter", err)
			}
		})
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := writeConfig(t, "memory_size = [not toml")
	_, err := Load(path)
	if !goerrors.Is(err, &errors.Error{Kind: errors.KindInvalidData}) {
		t.Fatalf("err = %v, want invalid data", err)
	}
}
