package gic

// This file holds the write-side semantic operations (component E,
// spec.md §4.E): the per-IRQ effects of a guest's ISENABLER/ICENABLER/
// ISPENDR/ICPENDR write, plus the SGIR cross-vCPU dispatch. fault.go's bit
// iteration calls straight into these; they never touch the Fault object
// themselves.

// enableIRQ implements spec.md's vgic_dist_enable_irq / "STATE b": set the
// enable bit, and if the irq has a handler that isn't currently pending,
// ack it so the backend knows it may re-raise.
func (g *Vgic) enableIRQ(vcpu Vcpu, irq int) {
	handler := g.Handlers.Find(vcpu, irq)
	g.Dist.SetEnable(irq, true, vcpu.ID())

	if handler == nil {
		g.logger().Printf("gic: enabled irq %d has no handler", irq)
		return
	}
	if !g.Dist.IsPending(handler.Virq, vcpu.ID()) {
		g.Handlers.Ack(vcpu, handler)
	}
}

// disableIRQ implements vgic_dist_disable_irq / "STATE g": SGIs cannot be
// disabled (guests routinely try during boot; silently ignored rather than
// logged, per spec.md §4.E).
func (g *Vgic) disableIRQ(vcpu Vcpu, irq int) {
	if irq < NumSGIVirqs {
		return
	}
	g.Dist.SetEnable(irq, false, vcpu.ID())
}

// setPendingIRQ implements vgic_dist_set_pending_irq / "STATE c": the
// enqueue-then-maybe-load pipeline described in spec.md §4.E and §4.F.
// Returns ErrNotDeliverable if there's no handler, the distributor is
// disabled, or the irq isn't enabled on vcpu.
func (g *Vgic) setPendingIRQ(vcpu Vcpu, irq int) error {
	handler := g.Handlers.Find(vcpu, irq)
	if handler == nil || !g.Dist.IsDistEnabled() || !g.Dist.IsEnabled(irq, vcpu.ID()) {
		return ErrNotDeliverable
	}

	if g.Dist.IsPending(handler.Virq, vcpu.ID()) {
		return nil
	}

	g.Dist.SetPending(handler.Virq, true, vcpu.ID())

	inj := g.Inject[vcpu.ID()]
	if err := inj.Enqueue(handler); err != nil {
		return err
	}

	idx := inj.FindEmptyLR()
	if idx < 0 {
		// No free list register: the maintenance path (OnLRFreed) will
		// promote it later. Not an error.
		return nil
	}

	loaded := inj.Dequeue()
	if err := g.Loader.LoadListReg(vcpu, idx, loaded); err != nil {
		return err
	}
	inj.ShadowLR(idx, loaded)
	return nil
}

// clrPendingIRQ implements vgic_dist_clr_pending_irq. Removing an
// already-loaded LR or dequeued entry is a known gap carried over from the
// source (spec.md §4.E: "not required by this spec").
func (g *Vgic) clrPendingIRQ(vcpu Vcpu, irq int) {
	g.Dist.SetPending(irq, false, vcpu.ID())
}

// dispatchSGIR decodes an SGIR write and fans InjectIRQ out to the target
// vCPUs (component E "SGI dispatch", spec.md §4.E).
func (g *Vgic) dispatchSGIR(vcpu Vcpu, data uint32) {
	g.Dist.SgiControl = data

	mode := (data & sgirTargetListFilterMask) >> sgirTargetListFilterShift
	virq := int(data & sgirIntIDMask)

	numVcpus := g.Vm.NumVcpus()
	var targetMask uint32

	switch mode {
	case SgiTargetListSpec:
		targetMask = (data & sgirCPUTargetListMask) >> sgirCPUTargetListShift
	case SgiTargetListOthers:
		targetMask = (uint32(1)<<uint(numVcpus) - 1) &^ (1 << uint(vcpu.ID()))
	case SgiTargetListSelf:
		targetMask = 1 << uint(vcpu.ID())
	default:
		g.logger().Printf("gic: unknown SGIR target list filter mode %d", mode)
		return
	}

	for i := 0; i < numVcpus; i++ {
		if targetMask&(1<<uint(i)) == 0 {
			continue
		}
		target := g.Vm.VcpuAt(i)
		if !g.Vm.IsOnline(target) {
			continue
		}
		// Errors from cross-vCPU delivery are dropped exactly like any
		// other InjectIRQ caller drops ErrNotDeliverable (spec.md §7).
		_ = g.InjectIRQ(target, virq)
	}
}
