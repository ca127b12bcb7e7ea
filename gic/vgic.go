package gic

import "log"

// Vgic is the aggregate owning the distributor shadow state, the VIRQ
// handler table, and every vCPU's injection pipeline — the single object
// whose lifetime equals the VM's (spec.md §3, "Ownership"). External
// sources only ever touch it through RegisterIRQ, InjectIRQ, OnLRFreed, and
// HandleDistFault (spec.md §6, "Exposed to collaborators").
type Vgic struct {
	Config Config

	Dist     *DistState
	Handlers *HandlerTable
	Inject   []*VcpuInject // [vcpuID]

	Loader LRLoader
	Vm     Vm

	// Logger receives IgnoredGuestAccess-class diagnostics, matching how
	// novmm's IoHandler gates log.Printf on a per-device debug flag
	// (novmm/machine/io.go). Defaults to log.Default() if nil.
	Logger *log.Logger
}

// NewVgic builds an empty distributor for cfg.NumVcpus vCPUs, backed by
// loader for LR programming and vm for cross-vCPU SGI dispatch.
func NewVgic(cfg Config, loader LRLoader, vm Vm) (*Vgic, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g := &Vgic{
		Config:   cfg,
		Dist:     NewDistState(cfg),
		Handlers: newHandlerTable(cfg),
		Inject:   make([]*VcpuInject, cfg.NumVcpus),
		Loader:   loader,
		Vm:       vm,
	}
	for i := range g.Inject {
		g.Inject[i] = newVcpuInject(cfg)
	}
	return g, nil
}

func (g *Vgic) logger() *log.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return log.Default()
}

// RegisterIRQ installs ack/token as the handler for virq, scoped to vcpu
// for SGI/PPI or globally for SPI (spec.md §6, §4.B).
func (g *Vgic) RegisterIRQ(vcpu Vcpu, virq int, ack AckFunc, token interface{}) (*VirqHandler, error) {
	if virq < 0 || virq >= MaxVirqLimit {
		return nil, InvalidVirq(virq)
	}
	return g.Handlers.Register(vcpu, virq, ack, token)
}

// InjectIRQ is the public injection API (component F, spec.md §4.F): the
// entry point external IRQ sources and SGI dispatch use to mark virq
// pending on vcpu. It is a synonym for setPendingIRQ.
func (g *Vgic) InjectIRQ(vcpu Vcpu, virq int) error {
	return g.setPendingIRQ(vcpu, virq)
}

// OnLRFreed is the maintenance hook (spec.md §4.C, §6): the physical
// maintenance handler calls this when it observes list register lrIdx
// become free, so the core can promote one queued handler into it.
//
// spec.md §4.F writes this as on_lr_freed(vcpu) with no index, but nothing
// short of reading physical LR state (itself a hypercall the core doesn't
// have) can tell it which shadow slot the maintenance interrupt is
// reporting; lrIdx is the one addition this implementation makes to that
// signature.
func (g *Vgic) OnLRFreed(vcpu Vcpu, lrIdx int) error {
	inj := g.Inject[vcpu.ID()]
	inj.ClearLR(lrIdx)

	handler := inj.Dequeue()
	if handler == nil {
		return nil
	}
	if err := g.Loader.LoadListReg(vcpu, lrIdx, handler); err != nil {
		return err
	}
	inj.ShadowLR(lrIdx, handler)
	return nil
}
