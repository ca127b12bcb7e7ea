// Package config loads a gic.Config from a YAML file on disk, the way a
// vgicdemo invocation or a larger VMM's own config layer would supply
// distributor tunables instead of hard-coding gic.DefaultConfig().
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/armvmm/vgic/gic"
)

// file mirrors gic.Config's fields with yaml tags; kept distinct from
// gic.Config itself so a malformed or partial document can't leave the
// caller with a half-populated Config that happens to pass Validate.
type file struct {
	NumVcpus       *int `yaml:"num_vcpus"`
	NumListRegs    *int `yaml:"num_list_regs"`
	MaxIrqQueueLen *int `yaml:"max_irq_queue_len"`
	MaxVirqs       *int `yaml:"max_virqs"`
}

// Load reads path, overlays any fields it sets onto gic.DefaultConfig(),
// and validates the result. A missing file is not an error: it yields
// gic.DefaultConfig() unchanged.
func Load(path string) (gic.Config, error) {
	cfg := gic.DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return gic.Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return gic.Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if f.NumVcpus != nil {
		cfg.NumVcpus = *f.NumVcpus
	}
	if f.NumListRegs != nil {
		cfg.NumListRegs = *f.NumListRegs
	}
	if f.MaxIrqQueueLen != nil {
		cfg.MaxIrqQueueLen = *f.MaxIrqQueueLen
	}
	if f.MaxVirqs != nil {
		cfg.MaxVirqs = *f.MaxVirqs
	}

	if err := cfg.Validate(); err != nil {
		return gic.Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}
