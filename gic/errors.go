package gic

import (
	"errors"
	"fmt"
)

// Configuration errors.
var ErrInvalidVcpuCount = errors.New("gic: invalid vcpu count")
var ErrInvalidListRegCount = errors.New("gic: invalid list register count")
var ErrQueueLenNotPow2 = errors.New("gic: irq queue length must be a power of two")
var ErrInvalidMaxVirqs = errors.New("gic: invalid max virqs")

// VIRQ handler table errors (spec.md §4.B, §7 "AlreadyRegistered / NoSpace").
var ErrAlreadyRegistered = errors.New("gic: virq already registered")
var ErrNoSpace = errors.New("gic: no free virq handler slot")

// Injection pipeline errors (spec.md §4.C, §4.E, §7).
var ErrQueueFull = errors.New("gic: irq overflow queue full")
var ErrNotDeliverable = errors.New("gic: irq not deliverable")

// MMIO fault handling errors (spec.md §7).
var ErrUnimplementedSGIPendingWrite = errors.New("gic: cpendsgir/spendsgir write not implemented")

// InvalidVirq reports an out-of-range or unsupported virq number.
func InvalidVirq(virq int) error {
	return fmt.Errorf("gic: virq %d out of range [0, %d)", virq, MaxVirqLimit)
}
