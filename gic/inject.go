package gic

// VcpuInject is the per-vCPU injection pipeline (component C, spec.md
// §3/§4.C): a shadow of the hardware list registers plus a power-of-two
// ring buffer holding handlers that overflowed the list registers.
type VcpuInject struct {
	lrShadow []*VirqHandler // len == cfg.NumListRegs

	queue []*VirqHandler // len == cfg.MaxIrqQueueLen, circular buffer
	head  int
	tail  int
}

func newVcpuInject(cfg Config) *VcpuInject {
	return &VcpuInject{
		lrShadow: make([]*VirqHandler, cfg.NumListRegs),
		queue:    make([]*VirqHandler, cfg.MaxIrqQueueLen),
	}
}

func (v *VcpuInject) next(i int) int {
	return (i + 1) & (len(v.queue) - 1)
}

// FindEmptyLR returns the lowest-indexed free list register, or -1 if all
// are occupied (spec.md §4.C).
func (v *VcpuInject) FindEmptyLR() int {
	for i, h := range v.lrShadow {
		if h == nil {
			return i
		}
	}
	return -1
}

// ShadowLR records that hardware list register idx now holds handler. The
// caller is responsible for having already programmed the physical LR via
// LRLoader (spec.md §4.C).
func (v *VcpuInject) ShadowLR(idx int, handler *VirqHandler) {
	v.lrShadow[idx] = handler
}

// ClearLR frees list register idx, e.g. once the maintenance handler
// reports the hardware LR retired.
func (v *VcpuInject) ClearLR(idx int) {
	v.lrShadow[idx] = nil
}

// Enqueue pushes handler onto the overflow ring buffer. Returns ErrQueueFull
// if the buffer has no room, which spec.md §7 treats as a fatal
// configuration error (the queue size is a tunable; a full queue means it
// is undersized for the workload).
func (v *VcpuInject) Enqueue(handler *VirqHandler) error {
	if v.next(v.tail) == v.head {
		return ErrQueueFull
	}
	v.queue[v.tail] = handler
	v.tail = v.next(v.tail)
	return nil
}

// Dequeue pops the oldest queued handler, or returns nil if the queue is
// empty.
func (v *VcpuInject) Dequeue() *VirqHandler {
	if v.head == v.tail {
		return nil
	}
	h := v.queue[v.head]
	v.queue[v.head] = nil
	v.head = v.next(v.head)
	return h
}

// Len reports the number of handlers currently queued (for tests/metrics;
// spec.md §8 invariant 3).
func (v *VcpuInject) Len() int {
	return (v.tail - v.head) & (len(v.queue) - 1)
}
