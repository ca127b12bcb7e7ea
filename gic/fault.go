package gic

import "math/bits"

// This file is the MMIO fault dispatcher (component D, spec.md §4.D): a
// lookup table over offset ranges, decoding a distributor access into a
// read of the shadow state or a call into one of ops.go's write-side
// operations.

type distRegister struct {
	lo, hi int
	read   func(g *Vgic, vcpu Vcpu, offset int) uint32
	write  func(g *Vgic, vcpu Vcpu, offset int, fault Fault)
}

// HandleDistFault is the MMIO trap entry point (spec.md §6,
// "handle_dist_fault"). distBase is the guest-physical address the
// distributor window was mapped at; fault.Address() is absolute.
func (g *Vgic) HandleDistFault(vcpu Vcpu, distBase uint64, fault Fault) error {
	offset := int(fault.Address() - distBase)

	if fault.IsRead() {
		return g.handleDistRead(vcpu, offset, fault)
	}
	return g.handleDistWrite(vcpu, offset, fault)
}

func (g *Vgic) handleDistRead(vcpu Vcpu, offset int, fault Fault) error {
	reg := findRegister(offset)
	if reg == nil || reg.read == nil {
		g.logger().Printf("gic: unknown register offset 0x%x (read)", offset)
		return fault.Ignore()
	}
	value := reg.read(g, vcpu, offset)
	fault.SetData(value & fault.DataMask())
	return fault.Advance()
}

func (g *Vgic) handleDistWrite(vcpu Vcpu, offset int, fault Fault) error {
	reg := findRegister(offset)
	switch {
	case reg == nil:
		g.logger().Printf("gic: unknown register offset 0x%x (write)", offset)
	case reg.write == nil:
		// Read-only region: the write is logged and dropped
		// (IgnoredGuestAccess).
		g.logger().Printf("gic: write to read-only register offset 0x%x ignored", offset)
	default:
		reg.write(g, vcpu, offset, fault)
	}
	return fault.Ignore()
}

func findRegister(offset int) *distRegister {
	for i := range distRegisters {
		r := &distRegisters[i]
		if offset >= r.lo && offset <= r.hi {
			return r
		}
	}
	return nil
}

// bitIterate walks the set bits of a masked write, translating each bit
// position into a virq via spec.md §4.D's "irq = bit + (offset-base)*8"
// formula, and invokes fn once per irq.
func bitIterate(fault Fault, offset, base int, fn func(irq int)) {
	data := fault.Data() & fault.DataMask()
	for data != 0 {
		bit := bits.TrailingZeros32(data)
		data &^= 1 << uint(bit)
		irq := bit + (offset-base)*8
		fn(irq)
	}
}

var distRegisters = []distRegister{
	{RegCtlr, RegCtlr,
		func(g *Vgic, _ Vcpu, _ int) uint32 { return g.Dist.Ctlr },
		func(g *Vgic, _ Vcpu, _ int, fault Fault) {
			data := fault.Data()
			switch data {
			case CtlrEnabled:
				g.Dist.EnableDist()
			case CtlrDisabled:
				g.Dist.DisableDist()
			default:
				g.logger().Printf("gic: unknown CTLR encoding 0x%x", data)
			}
		}},
	{RegTyper, RegTyper,
		func(g *Vgic, _ Vcpu, _ int) uint32 { return g.Dist.Typer }, nil},
	{RegIidr, RegIidr,
		func(g *Vgic, _ Vcpu, _ int) uint32 { return g.Dist.Iidr }, nil},

	{RegIgroupr0, RegIgroupr0,
		func(g *Vgic, vcpu Vcpu, _ int) uint32 { return g.Dist.IrqGroup0[vcpu.ID()] },
		func(g *Vgic, vcpu Vcpu, _ int, fault Fault) {
			g.Dist.IrqGroup0[vcpu.ID()] = fault.Emulate(g.Dist.IrqGroup0[vcpu.ID()])
		}},
	{RegIgroupr1, RegIgrouprN,
		func(g *Vgic, _ Vcpu, offset int) uint32 { return g.Dist.IrqGroup[regN(offset, RegIgroupr1)] },
		func(g *Vgic, _ Vcpu, offset int, fault Fault) {
			idx := regN(offset, RegIgroupr1)
			g.Dist.IrqGroup[idx] = fault.Emulate(g.Dist.IrqGroup[idx])
		}},

	{RegIsenabler0, RegIsenabler0,
		func(g *Vgic, vcpu Vcpu, _ int) uint32 { return g.Dist.EnableSet0[vcpu.ID()] },
		func(g *Vgic, vcpu Vcpu, offset int, fault Fault) {
			bitIterate(fault, offset, RegIsenabler0, func(irq int) { g.enableIRQ(vcpu, irq) })
		}},
	{RegIsenabler1, RegIsenablerN,
		func(g *Vgic, _ Vcpu, offset int) uint32 { return g.Dist.EnableSet[regN(offset, RegIsenabler1)] },
		func(g *Vgic, vcpu Vcpu, offset int, fault Fault) {
			bitIterate(fault, offset, RegIsenabler0, func(irq int) { g.enableIRQ(vcpu, irq) })
		}},

	{RegIcenabler0, RegIcenabler0,
		func(g *Vgic, vcpu Vcpu, _ int) uint32 { return g.Dist.EnableClr0[vcpu.ID()] },
		func(g *Vgic, vcpu Vcpu, offset int, fault Fault) {
			bitIterate(fault, offset, RegIcenabler0, func(irq int) { g.disableIRQ(vcpu, irq) })
		}},
	{RegIcenabler1, RegIcenablerN,
		func(g *Vgic, _ Vcpu, offset int) uint32 { return g.Dist.EnableClr[regN(offset, RegIcenabler1)] },
		func(g *Vgic, vcpu Vcpu, offset int, fault Fault) {
			bitIterate(fault, offset, RegIcenabler0, func(irq int) { g.disableIRQ(vcpu, irq) })
		}},

	{RegIspendr0, RegIspendr0,
		func(g *Vgic, vcpu Vcpu, _ int) uint32 { return g.Dist.PendingSet0[vcpu.ID()] },
		func(g *Vgic, vcpu Vcpu, offset int, fault Fault) {
			bitIterate(fault, offset, RegIspendr0, func(irq int) { _ = g.setPendingIRQ(vcpu, irq) })
		}},
	{RegIspendr1, RegIspendrN,
		func(g *Vgic, _ Vcpu, offset int) uint32 { return g.Dist.PendingSet[regN(offset, RegIspendr1)] },
		func(g *Vgic, vcpu Vcpu, offset int, fault Fault) {
			bitIterate(fault, offset, RegIspendr0, func(irq int) { _ = g.setPendingIRQ(vcpu, irq) })
		}},

	{RegIcpendr0, RegIcpendr0,
		func(g *Vgic, vcpu Vcpu, _ int) uint32 { return g.Dist.PendingClr0[vcpu.ID()] },
		func(g *Vgic, vcpu Vcpu, offset int, fault Fault) {
			bitIterate(fault, offset, RegIcpendr0, func(irq int) { g.clrPendingIRQ(vcpu, irq) })
		}},
	{RegIcpendr1, RegIcpendrN,
		func(g *Vgic, _ Vcpu, offset int) uint32 { return g.Dist.PendingClr[regN(offset, RegIcpendr1)] },
		func(g *Vgic, vcpu Vcpu, offset int, fault Fault) {
			bitIterate(fault, offset, RegIcpendr0, func(irq int) { g.clrPendingIRQ(vcpu, irq) })
		}},

	{RegIsactiver0, RegIsactiver0,
		func(g *Vgic, vcpu Vcpu, _ int) uint32 { return g.Dist.Active0[vcpu.ID()] },
		func(g *Vgic, vcpu Vcpu, _ int, fault Fault) {
			word := fault.Emulate(g.Dist.Active0[vcpu.ID()])
			g.Dist.SetActiveFromSet(word, vcpu.ID(), false, 0)
		}},
	{RegIsactiver1, RegIsactiverN,
		func(g *Vgic, _ Vcpu, offset int) uint32 { return g.Dist.Active[regN(offset, RegIsactiver1)] },
		func(g *Vgic, _ Vcpu, offset int, fault Fault) {
			idx := regN(offset, RegIsactiver1)
			word := fault.Emulate(g.Dist.Active[idx])
			g.Dist.SetActiveFromSet(word, 0, true, idx)
		}},

	{RegIcactiver0, RegIcactiver0,
		func(g *Vgic, vcpu Vcpu, _ int) uint32 { return g.Dist.ActiveClr0[vcpu.ID()] },
		func(g *Vgic, vcpu Vcpu, _ int, fault Fault) {
			// spec.md §9: read/write active_clr0 on both sides, unlike
			// the source's active0-read typo.
			word := fault.Emulate(g.Dist.ActiveClr0[vcpu.ID()])
			g.Dist.SetActiveFromClr(word, vcpu.ID(), false, 0)
		}},
	{RegIcactiver1, RegIcactiverN,
		func(g *Vgic, _ Vcpu, offset int) uint32 { return g.Dist.ActiveClr[regN(offset, RegIcactiver1)] },
		func(g *Vgic, _ Vcpu, offset int, fault Fault) {
			idx := regN(offset, RegIcactiver1)
			word := fault.Emulate(g.Dist.ActiveClr[idx])
			g.Dist.SetActiveFromClr(word, 0, true, idx)
		}},

	{RegIpriorityr0, RegIpriorityr7,
		func(g *Vgic, vcpu Vcpu, offset int) uint32 {
			return readPriorityWord(g.Dist.Priority0[vcpu.ID()][:], regN(offset, RegIpriorityr0))
		}, nil},
	{RegIpriorityr8, RegIpriorityrN,
		func(g *Vgic, _ Vcpu, offset int) uint32 {
			return readPriorityWord(g.Dist.Priority[:], regN(offset, RegIpriorityr8))
		}, nil},

	{RegItargetsr0, RegItargetsr7,
		func(g *Vgic, vcpu Vcpu, offset int) uint32 {
			return readPriorityWord(g.Dist.Targets0[vcpu.ID()][:], regN(offset, RegItargetsr0))
		}, nil},
	{RegItargetsr8, RegItargetsrN,
		func(g *Vgic, _ Vcpu, offset int) uint32 {
			return readPriorityWord(g.Dist.Targets[:], regN(offset, RegItargetsr8))
		}, nil},

	{RegIcfgr0, RegIcfgrN,
		func(g *Vgic, _ Vcpu, offset int) uint32 { return g.Dist.Config[regN(offset, RegIcfgr0)] }, nil},

	{RegSpiExtStart, RegSpiExtEnd,
		func(g *Vgic, _ Vcpu, offset int) uint32 { return g.Dist.Spi[regN(offset, RegSpiExtStart)] }, nil},

	{RegSgir, RegSgir,
		func(g *Vgic, _ Vcpu, _ int) uint32 { return g.Dist.SgiControl },
		func(g *Vgic, vcpu Vcpu, _ int, fault Fault) {
			g.dispatchSGIR(vcpu, fault.Data())
		}},

	{RegCpendsgir0, RegCpendsgirN,
		func(g *Vgic, vcpu Vcpu, offset int) uint32 {
			return g.Dist.SgiPendingClr[vcpu.ID()][regN(offset, RegCpendsgir0)]
		},
		func(g *Vgic, _ Vcpu, _ int, _ Fault) {
			// spec.md §7/§9: the source asserts here. Per the redesign
			// guidance, log-and-ignore like any other unimplemented
			// write rather than aborting the VM.
			g.logger().Printf("gic: %v", ErrUnimplementedSGIPendingWrite)
		}},
	{RegSpendsgir0, RegSpendsgirN,
		func(g *Vgic, vcpu Vcpu, offset int) uint32 {
			return g.Dist.SgiPendingSet[vcpu.ID()][regN(offset, RegSpendsgir0)]
		},
		func(g *Vgic, _ Vcpu, _ int, _ Fault) {
			g.logger().Printf("gic: %v", ErrUnimplementedSGIPendingWrite)
		}},

	{RegPeriphIDStart, RegPeriphIDEnd,
		func(g *Vgic, _ Vcpu, offset int) uint32 {
			return readPriorityWord(g.Dist.PeriphID[:], regN(offset, RegPeriphIDStart))
		}, nil},
}

// readPriorityWord assembles the little-endian word at wordIdx from a
// byte-granular bank (priority, targets, periph_id).
func readPriorityWord(bytes []byte, wordIdx int) uint32 {
	var word uint32
	for i := 0; i < 4; i++ {
		idx := wordIdx*4 + i
		if idx >= len(bytes) {
			break
		}
		word |= uint32(bytes[idx]) << uint(8*i)
	}
	return word
}
