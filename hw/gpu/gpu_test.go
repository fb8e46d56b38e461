package gpu

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/google/go-cmp/cmp"

	"cpemu/hw/cp"
	"cpemu/hw/hwdefs"
	"cpemu/hw/hwio"
	"cpemu/hw/pi"
	"cpemu/hw/timing"
)

type testSystem struct {
	t     testing.TB
	cp    *cp.CommandProcessor
	gpu   *Runner
	sched *timing.Scheduler
	pi    *pi.Interface
	bus   *hwio.Table
}

func newTestSystem(tb testing.TB, cfg Config) *testSystem {
	tb.Helper()
	s := &testSystem{
		t:     tb,
		sched: timing.NewScheduler(),
		pi:    pi.New(),
		bus:   hwio.NewTable("test"),
	}
	s.cp = cp.New(cp.Config{DualCore: cfg.DualCore}, s.sched, s.pi, s.pi)
	s.gpu = NewRunner(s.cp, cfg)
	s.cp.SetGPU(s.gpu)
	s.cp.RegisterMMIO(s.bus, cp.DefaultBase)
	return s
}

func (s *testSystem) write32(lo uint32, val uint32) {
	s.bus.Write16(cp.DefaultBase+lo, hwio.Lo16(val))
	s.bus.Write16(cp.DefaultBase+lo+2, hwio.Hi16(val))
}

func (s *testSystem) setup(base, end uint32, ctrl cp.Ctrl) {
	s.write32(cp.FifoBaseLo, base)
	s.write32(cp.FifoEndLo, end)
	s.write32(cp.FifoWritePointerLo, base)
	s.write32(cp.FifoReadPointerLo, base)
	s.pi.Publish(base, end, base)
	s.bus.Write16(cp.DefaultBase+cp.CtrlRegister, uint16(ctrl))
}

// bursts sends n gather pipe bursts, moving the CPU-side write pointer along
// like the gather pipe does.
func (s *testSystem) bursts(n int) {
	s.t.Helper()
	for i := range n {
		wp := s.pi.WritePointer.Load() + cp.GatherPipeSize
		if wp >= s.pi.End.Load() {
			wp = s.pi.Base.Load()
		}
		s.pi.WritePointer.Store(wp)
		if err := s.cp.GatherPipeBursted(); err != nil {
			s.t.Fatalf("burst %d: %v", i, err)
		}
	}
}

type fifoPos struct {
	Read, Write, Distance uint32
	Processed             uint64
}

func (s *testSystem) wantPos(want fifoPos) {
	s.t.Helper()
	f := &s.cp.Fifo
	got := fifoPos{f.ReadPointer.Load(), f.WritePointer.Load(), f.Distance.Load(), s.gpu.Processed()}
	if diff := cmp.Diff(want, got); diff != "" {
		s.t.Errorf("fifo position mismatch (-want +got):\n%s", diff)
	}
}

// startGPU runs the GPU goroutine until the test ends.
func (s *testSystem) startGPU() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- s.gpu.Run(ctx) }()
	s.t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			s.t.Errorf("Run() = %v", err)
		}
	})
}

func TestSingleCoreDrain(t *testing.T) {
	s := newTestSystem(t, Config{})
	s.setup(0x1000, 0x2000, cp.CtrlGPLinkEnable|cp.CtrlGPReadEnable)

	s.bursts(4)
	s.wantPos(fifoPos{Read: 0x1080, Write: 0x1080, Distance: 0, Processed: 4})
	if s.cp.Fifo.SafeReadPointer.Load() != 0x1080 {
		t.Errorf("safe read pointer = %x, want 1080", s.cp.Fifo.SafeReadPointer.Load())
	}
}

func TestSingleCoreWrap(t *testing.T) {
	s := newTestSystem(t, Config{})
	s.setup(0x1000, 0x1080, cp.CtrlGPLinkEnable|cp.CtrlGPReadEnable)

	s.bursts(6)
	s.wantPos(fifoPos{Read: 0x1040, Write: 0x1040, Distance: 0, Processed: 6})
}

func TestBreakpointStop(t *testing.T) {
	s := newTestSystem(t, Config{})
	s.setup(0x1000, 0x2000, cp.CtrlGPLinkEnable|cp.CtrlGPReadEnable|cp.CtrlBPEnable|cp.CtrlBPInt)
	s.write32(cp.FifoBPLo, 0x1040)

	s.bursts(4)
	s.wantPos(fifoPos{Read: 0x1040, Write: 0x1080, Distance: 0x40, Processed: 2})
	if !s.gpu.AtBreakpoint() {
		t.Error("gpu should be parked at the breakpoint")
	}
	if !s.pi.IsSet(hwdefs.IntCauseCP) {
		t.Error("breakpoint interrupt not raised")
	}
	if !s.cp.Status().CommandIdle() {
		t.Error("command processor should be idle at breakpoint")
	}

	s.write32(cp.FifoBPLo, 0x1FE0)
	s.gpu.RunGpu()
	s.wantPos(fifoPos{Read: 0x1080, Write: 0x1080, Distance: 0, Processed: 4})
	if s.pi.IsSet(hwdefs.IntCauseCP) {
		t.Error("breakpoint interrupt still raised")
	}
}

func TestBudget(t *testing.T) {
	s := newTestSystem(t, Config{Budget: 1})
	s.setup(0x1000, 0x2000, cp.CtrlGPLinkEnable)

	s.bursts(3)
	s.wantPos(fifoPos{Read: 0x1000, Write: 0x1060, Distance: 0x60, Processed: 0})

	s.bus.Write16(cp.DefaultBase+cp.CtrlRegister, uint16(cp.CtrlGPLinkEnable|cp.CtrlGPReadEnable))
	s.wantPos(fifoPos{Read: 0x1020, Write: 0x1060, Distance: 0x40, Processed: 1})

	s.gpu.RunGpu()
	s.wantPos(fifoPos{Read: 0x1040, Write: 0x1060, Distance: 0x20, Processed: 2})

	s.gpu.FlushGpu()
	s.wantPos(fifoPos{Read: 0x1060, Write: 0x1060, Distance: 0, Processed: 3})
}

func TestHandler(t *testing.T) {
	s := newTestSystem(t, Config{Budget: 8})
	ram := hwio.NewMem("ram", 0x4000)
	for i := range 0x40 {
		ram.Write8(0x1000+uint32(i), uint8(i))
	}

	type block struct {
		Addr  uint32
		First byte
	}
	var got []block
	errBad := errors.New("bad block")
	s.gpu.SetHandler(ram, func(addr uint32, b []byte) error {
		got = append(got, block{addr, b[0]})
		if addr == 0x1000 {
			return errBad
		}
		return nil
	})

	s.setup(0x1000, 0x2000, cp.CtrlGPLinkEnable|cp.CtrlGPReadEnable)
	s.bursts(2)

	want := []block{{0x1000, 0x00}, {0x1020, 0x20}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}
	s.wantPos(fifoPos{Read: 0x1040, Write: 0x1040, Distance: 0, Processed: 2})
}

func TestSyncGPU(t *testing.T) {
	s := newTestSystem(t, Config{DualCore: true})
	s.setup(0x1000, 0x2000, cp.CtrlGPLinkEnable|cp.CtrlGPReadEnable)
	s.bursts(2)

	// GPU goroutine isn't running: nothing is consumed.
	s.gpu.SyncGPU(hwdefs.SyncOther)
	s.wantPos(fifoPos{Read: 0x1000, Write: 0x1040, Distance: 0x40, Processed: 0})

	s.gpu.cfg.Deterministic = true
	s.gpu.SyncGPU(hwdefs.SyncOther)
	s.wantPos(fifoPos{Read: 0x1040, Write: 0x1040, Distance: 0, Processed: 2})
}

func TestDualCoreDrain(t *testing.T) {
	s := newTestSystem(t, Config{DualCore: true})
	s.setup(0x1000, 0x2000, cp.CtrlGPLinkEnable|cp.CtrlGPReadEnable)
	s.startGPU()

	s.bursts(64)
	s.gpu.FlushGpu()
	s.wantPos(fifoPos{Read: 0x1800, Write: 0x1800, Distance: 0, Processed: 64})
	if s.cp.Fifo.SafeReadPointer.Load() != 0x1800 {
		t.Errorf("safe read pointer = %x, want 1800", s.cp.Fifo.SafeReadPointer.Load())
	}
}

func TestDualCoreBreakpoint(t *testing.T) {
	s := newTestSystem(t, Config{DualCore: true})
	s.setup(0x1000, 0x2000, cp.CtrlGPLinkEnable|cp.CtrlGPReadEnable|cp.CtrlBPEnable|cp.CtrlBPInt)
	s.write32(cp.FifoBPLo, 0x1100)
	s.startGPU()

	s.bursts(16)
	s.gpu.FlushGpu()
	s.wantPos(fifoPos{Read: 0x1100, Write: 0x1200, Distance: 0x100, Processed: 8})

	// The GPU thread either posted the interrupt, or the CPU side noticed
	// the breakpoint first. Either way it is set once pending events ran.
	s.sched.Advance(0)
	if !s.pi.IsSet(hwdefs.IntCauseCP) {
		t.Error("breakpoint interrupt not raised")
	}
	if s.cp.IsInterruptWaiting() {
		t.Error("interrupt change still in flight")
	}
}

func TestDualCoreCtrlFlush(t *testing.T) {
	s := newTestSystem(t, Config{DualCore: true})
	s.setup(0x1000, 0x2000, cp.CtrlGPLinkEnable|cp.CtrlGPReadEnable)
	s.startGPU()

	s.bursts(32)
	s.bus.Write16(cp.DefaultBase+cp.CtrlRegister, uint16(cp.CtrlGPLinkEnable))
	s.wantPos(fifoPos{Read: 0x1400, Write: 0x1400, Distance: 0, Processed: 32})
}

func TestRunSingleCore(t *testing.T) {
	s := newTestSystem(t, Config{})
	if err := s.gpu.Run(context.Background()); err != nil {
		t.Errorf("Run() = %v", err)
	}
}
