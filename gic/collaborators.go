package gic

// The types in this file are the external collaborators spec.md §1 and §6
// name as out of scope: the fault-delivery mechanism, the vCPU/VM model,
// and the hypercall that programs a physical list register. The core only
// consumes these through the interfaces below; it never constructs a
// concrete Vcpu, Vm, or Fault itself. Mirrors how novmm's machine package
// only ever touches platform.Vm/platform.Vcpu through their exported
// methods, never platform-specific ioctl details.

// Fault is the MMIO trap the surrounding VMM decoded for a distributor
// access: an address, a read/write direction, a data register, and the
// byte-lane mask for the access width. See spec.md §6.
type Fault interface {
	// Address returns the guest-physical fault address.
	Address() uint64

	// Data returns the value the guest wrote (undefined for a read fault).
	Data() uint32

	// DataMask returns the byte-lane mask implied by the access width.
	DataMask() uint32

	// SetData stores a value into the fault's data register, for reads.
	SetData(value uint32)

	// IsRead reports whether this fault is a load from the guest.
	IsRead() bool

	// Advance resumes the guest at the next instruction (used after a
	// read has populated the data register).
	Advance() error

	// Ignore resumes the guest without touching the data register (used
	// after a write, or when an access is rejected as a no-op).
	Ignore() error

	// Emulate computes the read-modify-write result of applying this
	// fault's (mask, data) onto a previous register value:
	// (prev &^ mask) | (data & mask).
	Emulate(prev uint32) uint32
}

// Vcpu identifies a single virtual CPU within a Vm.
type Vcpu interface {
	ID() int
}

// Vm exposes the handful of VM-wide facts the SGI dispatcher and the
// per-vCPU bank sizing need: how many vCPUs exist, how to address them,
// and whether a given one is currently online.
type Vm interface {
	NumVcpus() int
	VcpuAt(i int) Vcpu
	IsOnline(vcpu Vcpu) bool
}

// AckFunc is invoked on a VirqHandler when its virq has been effectively
// retired and the backend may re-raise it (spec.md §3, "Ack").
type AckFunc func(vcpu Vcpu, virq int, token interface{})

// LRLoader is the hypercall boundary: "program hardware list register
// lrIdx on vcpu with this handler's virq." The core records the handler
// in its own lr_shadow only after this succeeds. Kept as an interface so
// tests and cmd/vgicdemo can supply an in-memory fake instead of a real
// hypercall (spec.md §1, "Out of scope").
type LRLoader interface {
	LoadListReg(vcpu Vcpu, lrIdx int, handler *VirqHandler) error
}
