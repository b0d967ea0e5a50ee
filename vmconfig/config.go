// Package vmconfig loads the engine's tunables from a YAML file: call
// stack depth ceiling, operand stack size, log level, and which
// syscall-backed devices are enabled. gvm hard-codes all of this as
// package constants (stackByteSize, maxCallDepth in vm/vm.go); this
// port exposes them as a loadable config so cmd/snowvm doesn't require
// a rebuild to change them.
package vmconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the engine's full set of runtime tunables.
type Config struct {
	// CallStackDepth caps the number of live frames (spec.md §3's call
	// stack bound). Zero means "use the engine's built-in default."
	CallStackDepth int `yaml:"call_stack_depth"`

	// OperandStackSize caps each frame's own operand stack. Zero means
	// "use the engine's built-in default."
	OperandStackSize int `yaml:"operand_stack_size"`

	// LogLevel is parsed by go-hclog.LevelFromString: "trace", "debug",
	// "info", "warn", "error". Defaults to "info".
	LogLevel string `yaml:"log_level"`

	// Devices holds one enable toggle per syscall subsystem. It is loaded
	// from the file, but neither cmd/snowvm nor the syscall table reads
	// it: every call id runs regardless of these toggles.
	Devices DeviceToggles `yaml:"devices"`
}

// DeviceToggles enables or disables each syscall resource registry
// independently, mirroring gvm/vm/devices.go's per-device enable bit
// (gvm's HardwareDeviceInfo carries an Enabled field per slot).
type DeviceToggles struct {
	Filesystem bool `yaml:"filesystem"`
	Network    bool `yaml:"network"`
	Threads    bool `yaml:"threads"`
	Sync       bool `yaml:"sync"`
}

// Default returns the configuration the engine runs with when no file
// is supplied.
func Default() Config {
	return Config{
		CallStackDepth:   4096,
		OperandStackSize: 1 << 16,
		LogLevel:         "info",
		Devices: DeviceToggles{
			Filesystem: true,
			Network:    true,
			Threads:    true,
			Sync:       true,
		},
	}
}

// Load reads and parses a YAML config file at path, filling in any
// zero-valued field from Default() so a partial file only overrides
// what it actually mentions.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("vmconfig: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("vmconfig: parsing %s: %w", path, err)
	}
	if cfg.CallStackDepth <= 0 {
		cfg.CallStackDepth = Default().CallStackDepth
	}
	if cfg.OperandStackSize <= 0 {
		cfg.OperandStackSize = Default().OperandStackSize
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = Default().LogLevel
	}
	return cfg, nil
}
