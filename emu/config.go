package emu

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/go-faster/errors"
	"github.com/kirsle/configdir"

	"cpemu/emu/log"
)

type Config struct {
	Emulation EmulationConfig `toml:"emulation"`
	Workload  WorkloadConfig  `toml:"workload"`
}

type EmulationConfig struct {
	DualCore         bool `toml:"dual_core"`
	DeterministicGPU bool `toml:"deterministic_gpu"`
	Wii              bool `toml:"wii"`
	GPUBudget        int  `toml:"gpu_budget"` // blocks per GPU run on single core, 0 for no limit
	RAMSize          int  `toml:"ram_size"`
}

// WorkloadConfig describes a synthetic command stream: the FIFO the CPU sets
// up, and the bursts it then writes through the gather pipe.
type WorkloadConfig struct {
	FifoBase       uint32 `toml:"fifo_base"`
	FifoEnd        uint32 `toml:"fifo_end"`
	HiWatermark    uint32 `toml:"hi_watermark"`
	LoWatermark    uint32 `toml:"lo_watermark"`
	Breakpoint     uint32 `toml:"breakpoint"` // 0: disabled
	Bursts         int    `toml:"bursts"`
	Drain          bool   `toml:"drain"` // let the GPU read the FIFO
	Opcode         uint8  `toml:"opcode"`
	CyclesPerBurst int64  `toml:"cycles_per_burst"`
}

func DefaultConfig() Config {
	return Config{
		Emulation: EmulationConfig{
			RAMSize: 32 << 20,
		},
		Workload: WorkloadConfig{
			FifoBase:       0x00200000,
			FifoEnd:        0x00210000,
			HiWatermark:    0x0000C000,
			LoWatermark:    0x00004000,
			Bursts:         1024,
			Drain:          true,
			CyclesPerBurst: 40,
		},
	}
}

// Check fixes invalid settings, falling back to defaults.
func (cfg *Config) Check() {
	def := DefaultConfig()
	if size := cfg.Emulation.RAMSize; size <= 0 || size&(size-1) != 0 {
		log.ModEmu.Warnf("Invalid RAM size %#x, fallback to %#x", size, def.Emulation.RAMSize)
		cfg.Emulation.RAMSize = def.Emulation.RAMSize
	}
	if w := &cfg.Workload; w.FifoEnd <= w.FifoBase {
		log.ModEmu.Warnf("Invalid FIFO [%#x, %#x), fallback to [%#x, %#x)",
			w.FifoBase, w.FifoEnd, def.Workload.FifoBase, def.Workload.FifoEnd)
		w.FifoBase = def.Workload.FifoBase
		w.FifoEnd = def.Workload.FifoEnd
	}
}

var configDir = sync.OnceValues(func() (string, error) {
	dir := configdir.LocalConfig("cpemu")
	if err := configdir.MakePath(dir); err != nil {
		return "", errors.Wrapf(err, "create directory %s", dir)
	}
	return dir, nil
})

const cfgFilename = "config.toml"

// DefaultConfigPath returns the path of the config file in the cpemu config
// directory.
func DefaultConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, cfgFilename), nil
}

// LoadConfig loads the configuration at path. Settings missing from the file
// keep their default value.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, errors.Wrap(err, "load config")
	}
	for _, key := range md.Undecoded() {
		log.ModEmu.WarnZ("Unknown config key").String("key", key.String()).String("path", path).End()
	}
	cfg.Check()
	return cfg, nil
}

// LoadConfigOrDefault loads the configuration at path, or from the cpemu
// config directory if path is empty. It provides a default configuration if
// there is none.
func LoadConfigOrDefault(path string) Config {
	if path == "" {
		var err error
		if path, err = DefaultConfigPath(); err != nil {
			log.ModEmu.WarnZ("No config directory").Error("err", err).End()
			return DefaultConfig()
		}
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.ModEmu.WarnZ("Using default config").Error("err", err).End()
		}
		return DefaultConfig()
	}
	return cfg
}

// SaveConfig writes cfg at path.
func SaveConfig(cfg Config, path string) error {
	buf, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}
