package gic

// VirqHandler is a registered interrupt source (component B, spec.md §3
// "VIRQ handler"): the virq it owns, the callback invoked when that virq
// is retired, and an opaque token threaded through to the callback.
// Long-lived for the VM's lifetime; never destroyed by this package.
type VirqHandler struct {
	Virq  int
	Ack   AckFunc
	Token interface{}
}

func (h *VirqHandler) ack(vcpu Vcpu) {
	if h.Ack != nil {
		h.Ack(vcpu, h.Virq, h.Token)
	}
}

// HandlerTable is the registry of VirqHandlers: an O(1) per-vCPU slot for
// SGI/PPI virqs and a linearly-scanned global table for SPI virqs
// (component B, spec.md §4.B).
type HandlerTable struct {
	sgiPpi [][]*VirqHandler // [vcpuID][virq], virq < GicSpiIrqMin
	spi    []*VirqHandler    // len == cfg.MaxVirqs, linear scan by Virq
}

func newHandlerTable(cfg Config) *HandlerTable {
	t := &HandlerTable{
		sgiPpi: make([][]*VirqHandler, cfg.NumVcpus),
		spi:    make([]*VirqHandler, cfg.MaxVirqs),
	}
	for i := range t.sgiPpi {
		t.sgiPpi[i] = make([]*VirqHandler, GicSpiIrqMin)
	}
	return t
}

// Register installs ack/token as the handler for virq (spec.md §4.B).
// SGI/PPI registration fails with ErrAlreadyRegistered if the per-vCPU
// slot is occupied; SPI registration fails with ErrAlreadyRegistered if the
// global table already holds a handler for virq, and with ErrNoSpace if it
// has no free entry.
func (t *HandlerTable) Register(vcpu Vcpu, virq int, ack AckFunc, token interface{}) (*VirqHandler, error) {
	h := &VirqHandler{Virq: virq, Ack: ack, Token: token}

	if virq < GicSpiIrqMin {
		slot := t.sgiPpi[vcpu.ID()]
		if slot[virq] != nil {
			return nil, ErrAlreadyRegistered
		}
		slot[virq] = h
		return h, nil
	}

	free := -1
	for i, existing := range t.spi {
		if existing == nil {
			if free < 0 {
				free = i
			}
			continue
		}
		if existing.Virq == virq {
			return nil, ErrAlreadyRegistered
		}
	}
	if free < 0 {
		return nil, ErrNoSpace
	}
	t.spi[free] = h
	return h, nil
}

// Find looks up the handler for virq on vcpu: O(1) for SGI/PPI, O(len(spi))
// for SPI (spec.md §4.B, §9 "Linear SPI handler lookup").
func (t *HandlerTable) Find(vcpu Vcpu, virq int) *VirqHandler {
	if virq < GicSpiIrqMin {
		return t.sgiPpi[vcpu.ID()][virq]
	}
	for _, h := range t.spi {
		if h != nil && h.Virq == virq {
			return h
		}
	}
	return nil
}

// Ack invokes h's callback with (vcpu, h.Virq, h.Token).
func (t *HandlerTable) Ack(vcpu Vcpu, h *VirqHandler) {
	h.ack(vcpu)
}
