package gic

import "testing"

func TestRingBufferFIFO(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxIrqQueueLen = 4
	inj := newVcpuInject(cfg)

	h1 := &VirqHandler{Virq: 1}
	h2 := &VirqHandler{Virq: 2}
	h3 := &VirqHandler{Virq: 3}

	for _, h := range []*VirqHandler{h1, h2, h3} {
		if err := inj.Enqueue(h); err != nil {
			t.Fatalf("enqueue %d: %v", h.Virq, err)
		}
	}
	if inj.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", inj.Len())
	}
	for _, want := range []*VirqHandler{h1, h2, h3} {
		if got := inj.Dequeue(); got != want {
			t.Fatalf("Dequeue() = %v, want %v", got, want)
		}
	}
	if got := inj.Dequeue(); got != nil {
		t.Fatalf("Dequeue() on empty queue = %v, want nil", got)
	}
}

func TestRingBufferFull(t *testing.T) {
	// Power-of-two capacity 4 holds 3 live entries: the ring always keeps
	// one slot empty to disambiguate full from empty.
	cfg := DefaultConfig()
	cfg.MaxIrqQueueLen = 4
	inj := newVcpuInject(cfg)

	for i := 0; i < 3; i++ {
		if err := inj.Enqueue(&VirqHandler{Virq: i}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	if err := inj.Enqueue(&VirqHandler{Virq: 99}); err != ErrQueueFull {
		t.Fatalf("enqueue on full ring: got %v, want ErrQueueFull", err)
	}
}

func TestFindEmptyLR(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumListRegs = 2
	inj := newVcpuInject(cfg)

	if idx := inj.FindEmptyLR(); idx != 0 {
		t.Fatalf("FindEmptyLR() on fresh state = %d, want 0", idx)
	}

	inj.ShadowLR(0, &VirqHandler{Virq: 1})
	if idx := inj.FindEmptyLR(); idx != 1 {
		t.Fatalf("FindEmptyLR() with lr0 occupied = %d, want 1", idx)
	}

	inj.ShadowLR(1, &VirqHandler{Virq: 2})
	if idx := inj.FindEmptyLR(); idx != -1 {
		t.Fatalf("FindEmptyLR() with all lrs occupied = %d, want -1", idx)
	}

	inj.ClearLR(0)
	if idx := inj.FindEmptyLR(); idx != 0 {
		t.Fatalf("FindEmptyLR() after ClearLR(0) = %d, want 0", idx)
	}
}
