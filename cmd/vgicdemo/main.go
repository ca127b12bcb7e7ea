// Command vgicdemo drives a gic.Vgic through a single end-to-end SPI
// injection with in-memory stand-ins for the vCPU model and list-register
// hypercall, the way novmm's main.go wires machine.Model up to a real
// platform.Vm before handing control to the guest.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/armvmm/vgic/config"
	"github.com/armvmm/vgic/gic"
)

var configPath = flag.String("config", "", "distributor config YAML (optional)")
var demoVirq = flag.Int("virq", 42, "SPI virq to enable and inject")
var debug = flag.Bool("debug", false, "send distributor diagnostics to the demo logger on stdout")

// fakeVcpu is the minimal Vcpu a standalone demo needs.
type fakeVcpu struct{ id int }

func (v *fakeVcpu) ID() int { return v.id }

// fakeVm is a fixed-size, always-online VM: enough to exercise SGI fan-out
// and per-vCPU banking without a real hypervisor underneath.
type fakeVm struct{ vcpus []gic.Vcpu }

func newFakeVm(n int) *fakeVm {
	vm := &fakeVm{vcpus: make([]gic.Vcpu, n)}
	for i := range vm.vcpus {
		vm.vcpus[i] = &fakeVcpu{id: i}
	}
	return vm
}

func (vm *fakeVm) NumVcpus() int             { return len(vm.vcpus) }
func (vm *fakeVm) VcpuAt(i int) gic.Vcpu     { return vm.vcpus[i] }
func (vm *fakeVm) IsOnline(gic.Vcpu) bool    { return true }

// fakeLoader stands in for the hypercall that programs a physical list
// register; it just logs each (vcpu, lrIdx, virq) it is asked to load.
type fakeLoader struct {
	logger *log.Logger
}

func (l *fakeLoader) LoadListReg(vcpu gic.Vcpu, lrIdx int, handler *gic.VirqHandler) error {
	l.logger.Printf("lr: vcpu=%d lr=%d virq=%d", vcpu.ID(), lrIdx, handler.Virq)
	return nil
}

// fakeFault is an in-memory Fault, standing in for a real MMIO trap
// decoded by the VMM's exit-handling loop.
type fakeFault struct {
	addr    uint64
	data    uint32
	mask    uint32
	isRead  bool
	advance bool // set once Advance or Ignore is called
}

func (f *fakeFault) Address() uint64   { return f.addr }
func (f *fakeFault) Data() uint32      { return f.data }
func (f *fakeFault) DataMask() uint32  { return f.mask }
func (f *fakeFault) SetData(v uint32)  { f.data = v }
func (f *fakeFault) IsRead() bool      { return f.isRead }
func (f *fakeFault) Advance() error    { f.advance = true; return nil }
func (f *fakeFault) Ignore() error     { f.advance = true; return nil }
func (f *fakeFault) Emulate(prev uint32) uint32 {
	return (prev &^ f.mask) | (f.data & f.mask)
}

func writeFault(distBase uint64, offset int, data uint32) *fakeFault {
	return &fakeFault{addr: distBase + uint64(offset), data: data, mask: 0xFFFFFFFF}
}

const distBase = 0x08000000

func main() {
	flag.Parse()
	logger := log.New(os.Stdout, "vgicdemo: ", 0)

	cfg := gic.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Fatalf("loading config: %v", err)
		}
		cfg = loaded
	}

	vm := newFakeVm(cfg.NumVcpus)
	loader := &fakeLoader{logger: logger}

	vg, err := gic.NewVgic(cfg, loader, vm)
	if err != nil {
		logger.Fatalf("building vgic: %v", err)
	}
	if *debug {
		vg.Logger = logger
	}

	vcpu0 := vm.VcpuAt(0)
	virq := *demoVirq

	acked := false
	_, err = vg.RegisterIRQ(vcpu0, virq, func(_ gic.Vcpu, virq int, _ interface{}) {
		acked = true
		logger.Printf("ack: virq=%d", virq)
	}, nil)
	if err != nil {
		logger.Fatalf("registering virq %d: %v", virq, err)
	}

	// Guest enables the irq: ISENABLERn write, bit-iterated by fault.go.
	enableOffset := gic.RegIsenabler1 + (virq/32-1)*4
	if err := vg.HandleDistFault(vcpu0, distBase, writeFault(distBase, enableOffset, uint32(1)<<uint(virq%32))); err != nil {
		logger.Fatalf("enabling virq %d: %v", virq, err)
	}

	// Guest enables the distributor: CTLR write.
	if err := vg.HandleDistFault(vcpu0, distBase, writeFault(distBase, gic.RegCtlr, gic.CtlrEnabled)); err != nil {
		logger.Fatalf("enabling distributor: %v", err)
	}

	// External source injects the irq directly through the public API.
	if err := vg.InjectIRQ(vcpu0, virq); err != nil {
		logger.Fatalf("injecting virq %d: %v", virq, err)
	}

	logger.Printf("pending=%v active=%v acked-on-enable=%v",
		vg.Dist.IsPending(virq, vcpu0.ID()), vg.Dist.IsActive(virq, vcpu0.ID()), acked)
}
