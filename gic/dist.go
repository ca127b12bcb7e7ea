package gic

// Sizing of the global (SPI) banks. The architected virq space tops out at
// MaxVirqLimit regardless of how large a caller's Config.MaxVirqs (the SPI
// *handler table*) is — see spec.md §3, which keeps "virq range" and
// "MAX_VIRQS handler table capacity" as two independent numbers.
const (
	spiCount         = MaxVirqLimit - GicSpiIrqMin // 988
	globalWordCount  = (spiCount + 31) / 32         // 31
	globalByteCount  = spiCount                     // 988, one priority/targets byte per irq
	configWordCount  = (MaxVirqLimit + 15) / 16      // 64, 2 bits per irq
	spiExtWordCount  = (RegSpiExtEnd-RegSpiExtStart)/4 + 1
	periphIDByteLen  = RegPeriphIDEnd - RegPeriphIDStart + 1
)

// DistState is the distributor shadow image (component A, spec.md §4.A):
// every enable/pending/active/priority/target/group bit the emulated GICv2
// distributor holds, banked per vCPU for SGI/PPI and shared for SPI.
//
// The paired set/clear invariant (spec.md §3) is enforced by construction:
// every mutator below writes both the "_set"/plain and "_clr" copy of a bit
// together, so ISxxxR and ICxxxR read back the same pattern.
type DistState struct {
	Ctlr  uint32
	Typer uint32
	Iidr  uint32

	// Per-vCPU banked (SGI+PPI, irq 0-31).
	EnableSet0  []uint32
	EnableClr0  []uint32
	PendingSet0 []uint32
	PendingClr0 []uint32
	Active0     []uint32
	ActiveClr0  []uint32
	IrqGroup0   []uint32
	Priority0   [][32]byte
	Targets0    [][32]byte

	SgiControl    uint32
	SgiPendingSet [][4]uint32 // SPENDSGIR0-3, per vCPU
	SgiPendingClr [][4]uint32 // CPENDSGIR0-3, per vCPU

	// Global (SPI, irq 32-1019).
	EnableSet  [globalWordCount]uint32
	EnableClr  [globalWordCount]uint32
	PendingSet [globalWordCount]uint32
	PendingClr [globalWordCount]uint32
	Active     [globalWordCount]uint32
	ActiveClr  [globalWordCount]uint32
	IrqGroup   [globalWordCount]uint32
	Priority   [globalByteCount]byte
	Targets    [globalByteCount]byte
	Config     [configWordCount]uint32
	Spi        [spiExtWordCount]uint32
	PeriphID   [periphIDByteLen]byte
}

// NewDistState allocates a shadow distributor sized for cfg.NumVcpus and
// seeds its read-only identification registers.
func NewDistState(cfg Config) *DistState {
	d := &DistState{}
	d.EnableSet0 = make([]uint32, cfg.NumVcpus)
	d.EnableClr0 = make([]uint32, cfg.NumVcpus)
	d.PendingSet0 = make([]uint32, cfg.NumVcpus)
	d.PendingClr0 = make([]uint32, cfg.NumVcpus)
	d.Active0 = make([]uint32, cfg.NumVcpus)
	d.ActiveClr0 = make([]uint32, cfg.NumVcpus)
	d.IrqGroup0 = make([]uint32, cfg.NumVcpus)
	d.Priority0 = make([][32]byte, cfg.NumVcpus)
	d.Targets0 = make([][32]byte, cfg.NumVcpus)
	d.SgiPendingSet = make([][4]uint32, cfg.NumVcpus)
	d.SgiPendingClr = make([][4]uint32, cfg.NumVcpus)

	// TYPER: bits[4:0] ITLinesNumber, bits[7:5] CPUNumber.
	itLinesNumber := uint32((MaxVirqLimit+31)/32 - 1)
	cpuNumber := uint32(cfg.NumVcpus - 1)
	d.Typer = itLinesNumber | (cpuNumber << 5)

	// IIDR: Implementer field [11:0] = 0x43B (ARM's JEP106 code); the
	// revision, variant and product ID fields are zero.
	d.Iidr = 0x0000043b

	// Standard GICv2 distributor PrimeCell component/peripheral ID bytes
	// at the tail of the periph_id window (original_source/vdist.h treats
	// this region as a flat byte-addressable readback with no dedicated
	// reset routine of its own; SPEC_FULL seeds it so a guest probing the
	// GIC's identity gets the real answer instead of all zeroes).
	seedPeriphID(d.PeriphID[:])

	return d
}

func seedPeriphID(b []byte) {
	// PID2 sits 8 words into the periph_id window (0xFC0 + 0x20 = 0xFE0);
	// CID0-3 are packed into the four consecutive bytes 0x30 into the
	// window (0xFF0-0xFF3 of our 60-byte window ending at 0xFFB).
	const pid2Off = 0x20
	const cidOff = 0x30
	if pid2Off < len(b) {
		b[pid2Off] = 0x90
	}
	cid := [4]byte{0x0D, 0xF0, 0x05, 0xB1}
	for i, v := range cid {
		if cidOff+i < len(b) {
			b[cidOff+i] = v
		}
	}
}

// EnableDist / DisableDist toggle CTLR (component A, spec.md §4.A).
func (d *DistState) EnableDist()  { d.Ctlr = CtlrEnabled }
func (d *DistState) DisableDist() { d.Ctlr = CtlrDisabled }
func (d *DistState) IsDistEnabled() bool { return d.Ctlr == CtlrEnabled }

// SetPending mutates both the set and clear mirror of the pending bit for
// virq on the given vCPU (vcpuID is ignored for SPI).
func (d *DistState) SetPending(virq int, value bool, vcpuID int) {
	if virq < GicSpiIrqMin {
		setBit(&d.PendingSet0[vcpuID], virq, value)
		setBit(&d.PendingClr0[vcpuID], virq, value)
		return
	}
	idx := globalIdx(virq)
	setBit(&d.PendingSet[idx], virq, value)
	setBit(&d.PendingClr[idx], virq, value)
}

// IsPending tests the pending bit (the set-copy; both copies agree).
func (d *DistState) IsPending(virq int, vcpuID int) bool {
	if virq < GicSpiIrqMin {
		return testBit(d.PendingSet0[vcpuID], virq)
	}
	return testBit(d.PendingSet[globalIdx(virq)], virq)
}

// SetEnable mutates both the set and clear mirror of the enable bit.
func (d *DistState) SetEnable(virq int, value bool, vcpuID int) {
	if virq < GicSpiIrqMin {
		setBit(&d.EnableSet0[vcpuID], virq, value)
		setBit(&d.EnableClr0[vcpuID], virq, value)
		return
	}
	idx := globalIdx(virq)
	setBit(&d.EnableSet[idx], virq, value)
	setBit(&d.EnableClr[idx], virq, value)
}

// IsEnabled tests the enable bit.
func (d *DistState) IsEnabled(virq int, vcpuID int) bool {
	if virq < GicSpiIrqMin {
		return testBit(d.EnableSet0[vcpuID], virq)
	}
	return testBit(d.EnableSet[globalIdx(virq)], virq)
}

// IsActive tests the active bit (the set-copy).
func (d *DistState) IsActive(virq int, vcpuID int) bool {
	if virq < GicSpiIrqMin {
		return testBit(d.Active0[vcpuID], virq)
	}
	return testBit(d.Active[globalIdx(virq)], virq)
}

// SetActiveFromSet applies fault-emulated write-through to the "IS" active
// view (ISACTIVER0/1..N) and mirrors the result into the "IC" view, keeping
// the paired-bank invariant even though the register itself is emulated as
// a plain write-through rather than a bit-iterated set operation.
func (d *DistState) SetActiveFromSet(word uint32, vcpuID int, global bool, idx int) {
	if global {
		d.Active[idx] = word
		d.ActiveClr[idx] = word
		return
	}
	d.Active0[vcpuID] = word
	d.ActiveClr0[vcpuID] = word
}

// SetActiveFromClr is the same for the "IC" active view (ICACTIVER0/1..N).
// spec.md §9 flags the source's ICACTIVER0 handler for reading gic_dist's
// active0 while writing active_clr0 — a paired-bank violation. This method
// reads and writes the clr-view consistently, then mirrors into the set
// view, implementing the invariant rather than the source's bug.
func (d *DistState) SetActiveFromClr(word uint32, vcpuID int, global bool, idx int) {
	if global {
		d.ActiveClr[idx] = word
		d.Active[idx] = word
		return
	}
	d.ActiveClr0[vcpuID] = word
	d.Active0[vcpuID] = word
}

func globalIdx(virq int) int { return irqIdx(virq) - 1 }

func setBit(word *uint32, virq int, value bool) {
	if value {
		*word |= irqBit(virq)
	} else {
		*word &^= irqBit(virq)
	}
}

func testBit(word uint32, virq int) bool {
	return word&irqBit(virq) != 0
}
