// Package config loads machine configuration from TOML files.
package config

import (
	"github.com/BurntSushi/toml"

	"github.com/wippyai/nanocore-host/device"
	"github.com/wippyai/nanocore-host/errors"
)

// Config describes one machine: its memory, program image, execution
// limits, and MMIO devices.
type Config struct {
	MemorySize      uint64   `toml:"memory_size"`
	Program         string   `toml:"program"`
	LoadAddress     uint64   `toml:"load_address"`
	MaxInstructions uint64   `toml:"max_instructions"`
	Breakpoints     []uint64 `toml:"breakpoints"`

	Devices []DeviceConfig `toml:"devices"`
}

// DeviceConfig maps one device onto the MMIO bus.
type DeviceConfig struct {
	Kind   string `toml:"kind"` // "timer" or "console"
	Start  uint64 `toml:"start"`
	End    uint64 `toml:"end"`
	ID     uint32 `toml:"id"`     // timer interrupt id
	Period uint64 `toml:"period"` // timer period in cycles
}

// Default returns a 1 MiB machine loading at the reset vector.
func Default() Config {
	return Config{
		MemorySize:  1 << 20,
		LoadAddress: 0x10000,
	}
}

// Load reads path and validates the result. Fields absent from the
// file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, errors.InvalidData(errors.PhaseConfig, "parse "+path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the bridge would refuse anyway, with
// better messages.
func (c *Config) Validate() error {
	if c.MemorySize == 0 {
		return errors.InvalidParameter(errors.PhaseConfig, "memory_size must be positive")
	}
	if c.LoadAddress >= c.MemorySize {
		return errors.InvalidParameter(errors.PhaseConfig,
			"load_address 0x%x outside memory of size 0x%x", c.LoadAddress, c.MemorySize)
	}
	for _, d := range c.Devices {
		if d.End <= d.Start {
			return errors.InvalidParameter(errors.PhaseConfig,
				"device %q has empty range [0x%x, 0x%x)", d.Kind, d.Start, d.End)
		}
		if _, err := d.New(); err != nil {
			return err
		}
	}
	return nil
}

// New instantiates the configured device.
func (d DeviceConfig) New() (device.Device, error) {
	switch d.Kind {
	case "timer":
		t := device.NewTimer(d.ID)
		if d.Period > 0 {
			t.Write(device.TimerRegPeriod, d.Period)
			t.Write(device.TimerRegCtrl, 1)
		}
		return t, nil
	case "console":
		return device.NewConsole(), nil
	default:
		return nil, errors.InvalidParameter(errors.PhaseConfig, "unknown device kind %q", d.Kind)
	}
}
