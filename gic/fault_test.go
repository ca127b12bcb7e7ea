package gic

import "testing"

// testFault is an in-memory Fault used only by this package's tests.
type testFault struct {
	addr   uint64
	data   uint32
	mask   uint32
	isRead bool

	advanced bool
	ignored  bool
}

func (f *testFault) Address() uint64  { return f.addr }
func (f *testFault) Data() uint32     { return f.data }
func (f *testFault) DataMask() uint32 { return f.mask }
func (f *testFault) SetData(v uint32) { f.data = v }
func (f *testFault) IsRead() bool     { return f.isRead }
func (f *testFault) Advance() error   { f.advanced = true; return nil }
func (f *testFault) Ignore() error    { f.ignored = true; return nil }
func (f *testFault) Emulate(prev uint32) uint32 {
	return (prev &^ f.mask) | (f.data & f.mask)
}

const testDistBase = 0x2C001000

func write32(offset int, data uint32) *testFault {
	return &testFault{addr: testDistBase + uint64(offset), data: data, mask: 0xFFFFFFFF}
}

func read32(offset int) *testFault {
	return &testFault{addr: testDistBase + uint64(offset), mask: 0xFFFFFFFF, isRead: true}
}

// TestScenarioS1EnableAndInjectSPI is spec.md §8 scenario S1: enable virq
// 42 for vcpu 0 via a bit-iterated ISENABLER1 write, enable the
// distributor, then inject through the public API and confirm the LR load.
func TestScenarioS1EnableAndInjectSPI(t *testing.T) {
	g, _, loader := newTestVgic(t, DefaultConfig())
	vcpu := testVcpu(0)

	if _, err := g.RegisterIRQ(vcpu, 42, nil, nil); err != nil {
		t.Fatal(err)
	}

	// ISENABLER1 covers virq 32-63; bit 10 is virq 42.
	if err := g.HandleDistFault(vcpu, testDistBase, write32(RegIsenabler1, 1<<10)); err != nil {
		t.Fatalf("ISENABLER1 write: %v", err)
	}
	if !g.Dist.IsEnabled(42, vcpu.ID()) {
		t.Fatal("virq 42 not enabled after ISENABLER1 write")
	}

	if err := g.HandleDistFault(vcpu, testDistBase, write32(RegCtlr, CtlrEnabled)); err != nil {
		t.Fatalf("CTLR write: %v", err)
	}
	if !g.Dist.IsDistEnabled() {
		t.Fatal("distributor not enabled after CTLR write")
	}

	if err := g.InjectIRQ(vcpu, 42); err != nil {
		t.Fatalf("InjectIRQ: %v", err)
	}
	if len(loader.loads) != 1 || loader.loads[0].virq != 42 {
		t.Fatalf("expected virq 42 loaded into an LR, got %+v", loader.loads)
	}
}

func TestFaultReadWritesDataAndAdvances(t *testing.T) {
	g, _, _ := newTestVgic(t, DefaultConfig())
	vcpu := testVcpu(0)

	g.Dist.EnableDist()
	f := read32(RegCtlr)
	if err := g.HandleDistFault(vcpu, testDistBase, f); err != nil {
		t.Fatal(err)
	}
	if f.data != CtlrEnabled {
		t.Fatalf("CTLR read returned %#x, want %#x", f.data, CtlrEnabled)
	}
	if !f.advanced || f.ignored {
		t.Fatal("read fault should Advance, not Ignore")
	}
}

func TestFaultWriteAlwaysIgnores(t *testing.T) {
	g, _, _ := newTestVgic(t, DefaultConfig())
	vcpu := testVcpu(0)

	f := write32(RegTyper, 0xFFFFFFFF) // TYPER is read-only
	if err := g.HandleDistFault(vcpu, testDistBase, f); err != nil {
		t.Fatal(err)
	}
	if !f.ignored || f.advanced {
		t.Fatal("write fault should Ignore, not Advance")
	}
	if g.Dist.Typer == 0xFFFFFFFF {
		t.Fatal("write to read-only TYPER was applied")
	}
}

func TestFaultUnknownOffsetIsIgnored(t *testing.T) {
	g, _, _ := newTestVgic(t, DefaultConfig())
	vcpu := testVcpu(0)

	f := read32(RegReservedLoStart)
	if err := g.HandleDistFault(vcpu, testDistBase, f); err != nil {
		t.Fatal(err)
	}
	if !f.ignored {
		t.Fatal("unknown offset read should Ignore, per spec.md §7 IgnoredGuestAccess")
	}
}

func TestFaultIgroupr0WriteThrough(t *testing.T) {
	g, _, _ := newTestVgic(t, DefaultConfig())
	vcpu := testVcpu(0)

	if err := g.HandleDistFault(vcpu, testDistBase, write32(RegIgroupr0, 0x0000FFFF)); err != nil {
		t.Fatal(err)
	}
	if g.Dist.IrqGroup0[vcpu.ID()] != 0x0000FFFF {
		t.Fatalf("IGROUPR0 not written through: got %#x", g.Dist.IrqGroup0[vcpu.ID()])
	}

	f := read32(RegIgroupr0)
	if err := g.HandleDistFault(vcpu, testDistBase, f); err != nil {
		t.Fatal(err)
	}
	if f.data != 0x0000FFFF {
		t.Fatalf("IGROUPR0 read returned %#x, want 0xFFFF", f.data)
	}
}

func TestFaultSgirWriteDispatches(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumVcpus = 2
	g, _, loader := newTestVgic(t, cfg)
	g.Dist.EnableDist()

	for i := 0; i < cfg.NumVcpus; i++ {
		if _, err := g.RegisterIRQ(testVcpu(i), 3, nil, nil); err != nil {
			t.Fatal(err)
		}
		g.enableIRQ(testVcpu(i), 3)
	}

	data := uint32(SgiTargetListOthers)<<sgirTargetListFilterShift | 3
	if err := g.HandleDistFault(testVcpu(0), testDistBase, write32(RegSgir, data)); err != nil {
		t.Fatal(err)
	}
	if len(loader.loads) != 1 || loader.loads[0].vcpuID != 1 {
		t.Fatalf("SGIR write did not dispatch to the other vcpu: %+v", loader.loads)
	}
	if g.Dist.SgiControl != data {
		t.Fatalf("SgiControl not recorded: got %#x", g.Dist.SgiControl)
	}
}

func TestFaultCpendsgirWriteIgnoredNotFatal(t *testing.T) {
	g, _, _ := newTestVgic(t, DefaultConfig())
	vcpu := testVcpu(0)

	f := write32(RegCpendsgir0, 0xFF)
	if err := g.HandleDistFault(vcpu, testDistBase, f); err != nil {
		t.Fatalf("CPENDSGIR0 write returned an error instead of being ignored: %v", err)
	}
	if !f.ignored {
		t.Fatal("CPENDSGIR0 write should Ignore, not abort")
	}
}

func TestFaultPeriphIDReadback(t *testing.T) {
	g, _, _ := newTestVgic(t, DefaultConfig())
	vcpu := testVcpu(0)

	// CID0-3 sit 0x30 bytes into the periph_id window (seedPeriphID).
	f := read32(RegPeriphIDStart + 0x30)
	if err := g.HandleDistFault(vcpu, testDistBase, f); err != nil {
		t.Fatal(err)
	}
	want := uint32(0x0D) | uint32(0xF0)<<8 | uint32(0x05)<<16 | uint32(0xB1)<<24
	if f.data != want {
		t.Fatalf("CID readback = %#x, want %#x", f.data, want)
	}
}
