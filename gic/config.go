package gic

// Config carries the platform tunables spec.md §6 calls out as "Constants
// exposed": the number of hardware list registers, the overflow queue
// capacity, and the size of the global SPI handler table. NumVcpus is not
// named directly in spec.md's constant list but is required to size the
// per-vCPU banks (DistState, VcpuInject) described in §3.
//
// The zero value is not valid; use DefaultConfig or config.Load.
type Config struct {
	NumVcpus       int `yaml:"num_vcpus"`
	NumListRegs    int `yaml:"num_list_regs"`
	MaxIrqQueueLen int `yaml:"max_irq_queue_len"`
	MaxVirqs       int `yaml:"max_virqs"`
}

// DefaultConfig matches the values novm-style callers get for free: four
// list registers, a 64-entry ring buffer, and a 200-entry SPI table, all
// taken directly from spec.md §3/§6.
func DefaultConfig() Config {
	return Config{
		NumVcpus:       DefaultNumVcpus,
		NumListRegs:    NumListRegs,
		MaxIrqQueueLen: MaxIrqQueueLen,
		MaxVirqs:       DefaultMaxVirqs,
	}
}

// Validate checks the invariants the rest of the package assumes:
// MaxIrqQueueLen must be a power of two (spec.md §4.C ring buffer
// discipline) and the vCPU count must fit the banked arrays.
func (c Config) Validate() error {
	if c.NumVcpus <= 0 || c.NumVcpus > MaxSupportedVcpu {
		return ErrInvalidVcpuCount
	}
	if c.NumListRegs <= 0 {
		return ErrInvalidListRegCount
	}
	if c.MaxIrqQueueLen <= 0 || c.MaxIrqQueueLen&(c.MaxIrqQueueLen-1) != 0 {
		return ErrQueueLenNotPow2
	}
	if c.MaxVirqs <= 0 {
		return ErrInvalidMaxVirqs
	}
	return nil
}
