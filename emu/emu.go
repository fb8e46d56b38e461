package emu

import (
	"context"
	"fmt"
	"sync/atomic"

	"cpemu/emu/log"
	"cpemu/hw/cp"
	"cpemu/hw/hwdefs"
	"cpemu/hw/hwio"
	"cpemu/hw/pi"
)

// Emulator drives a Machine with a synthetic workload: the CPU sets up a
// command FIFO, then writes bursts through the gather pipe while the GPU
// drains them, handling the command processor interrupts the way a game
// does.
type Emulator struct {
	M   *Machine
	cfg Config

	// accessed concurrently by the emulation loop and the caller.
	quit atomic.Bool

	// CPU interrupt line, and number of times it was asserted. The GPU
	// goroutine may raise it.
	line       atomic.Bool
	interrupts atomic.Int64
}

// Report summarizes a workload run.
type Report struct {
	Bursts          int
	Processed       uint64
	Interrupts      int64
	ExceptionChecks uint64
	UnknownOpcodes  uint64
	Status          cp.Status
	Distance        uint32
	Halted          bool
}

func (r Report) String() string {
	return fmt.Sprintf("bursts=%d processed=%d interrupts=%d exception_checks=%d unknown_opcodes=%d status=%v distance=%d halted=%t",
		r.Bursts, r.Processed, r.Interrupts, r.ExceptionChecks, r.UnknownOpcodes, r.Status, r.Distance, r.Halted)
}

func NewEmulator(cfg Config) *Emulator {
	cfg.Check()
	e := &Emulator{
		M:   NewMachine(cfg.Emulation),
		cfg: cfg,
	}
	e.M.PI.OnChange = func(pending bool) {
		if e.line.Swap(pending) != pending && pending {
			e.interrupts.Add(1)
		}
	}
	return e
}

// Stop makes Run return after the current burst.
func (e *Emulator) Stop() {
	e.quit.Store(true)
}

// SetupFifo configures the FIFO through MMIO, on both the command processor
// and the processor interface, and enables the CP interrupt.
func (e *Emulator) SetupFifo() {
	w := e.cfg.Workload
	m := e.M

	m.SetFifoReg(cp.FifoBaseLo, w.FifoBase)
	m.SetFifoReg(cp.FifoEndLo, w.FifoEnd)
	m.SetFifoReg(cp.FifoHiWatermarkLo, w.HiWatermark)
	m.SetFifoReg(cp.FifoLoWatermarkLo, w.LoWatermark)
	m.SetFifoReg(cp.FifoWritePointerLo, w.FifoBase)
	m.SetFifoReg(cp.FifoReadPointerLo, w.FifoBase)
	m.SetFifoReg(cp.FifoBPLo, w.Breakpoint)

	hwio.Write32(m.Bus, pi.DefaultBase|pi.FifoBase, w.FifoBase)
	hwio.Write32(m.Bus, pi.DefaultBase|pi.FifoEnd, w.FifoEnd)
	hwio.Write32(m.Bus, pi.DefaultBase|pi.FifoWritePtr, w.FifoBase)
	hwio.Write32(m.Bus, pi.DefaultBase|pi.IntMask, uint32(hwdefs.IntCauseCP))

	m.Write16(cp.DefaultBase+cp.CtrlRegister, uint16(e.ctrl()))

	log.ModEmu.InfoZ("fifo setup").
		Hex32("base", w.FifoBase).
		Hex32("end", w.FifoEnd).
		Hex32("hi", w.HiWatermark).
		Hex32("lo", w.LoWatermark).
		Hex32("bp", w.Breakpoint).
		Bool("drain", w.Drain).
		End()
}

func (e *Emulator) ctrl() cp.Ctrl {
	w := e.cfg.Workload
	ctrl := cp.CtrlGPLinkEnable
	if w.Drain {
		ctrl |= cp.CtrlGPReadEnable
	}
	if w.HiWatermark != 0 {
		ctrl |= cp.CtrlOverflowIntEnable
	}
	if w.Breakpoint != 0 {
		ctrl |= cp.CtrlBPEnable | cp.CtrlBPInt
	}
	return ctrl
}

// Run runs the workload until all bursts are written, ctx is done, Stop is
// called or the machine halts.
func (e *Emulator) Run(ctx context.Context) (Report, error) {
	var rep Report
	err := e.M.Run(ctx, func(ctx context.Context) error {
		return e.loop(ctx, &rep)
	})

	e.M.GPU.FlushGpu()
	e.M.Timing.Advance(0)

	rep.Processed = e.M.GPU.Processed()
	rep.Interrupts = e.interrupts.Load()
	rep.ExceptionChecks = e.M.Timing.ExceptionChecks()
	rep.UnknownOpcodes = e.M.UnknownOpcodes()
	rep.Status = e.M.CP.Status()
	rep.Distance = e.M.CP.Fifo.Distance.Load()
	rep.Halted = e.M.Halted()

	log.ModEmu.InfoZ("workload done").Stringer("report", rep).End()
	return rep, err
}

func (e *Emulator) loop(ctx context.Context, rep *Report) error {
	w := e.cfg.Workload
	for i := range w.Bursts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.quit.Load() {
			return nil
		}

		word := uint32(w.Opcode)<<24 | uint32(i)&0xFFFFFF
		for range cp.GatherPipeSize / 4 {
			if err := e.M.GatherPipe.Write32(word); err != nil {
				return err
			}
		}
		rep.Bursts++

		e.M.Timing.Advance(w.CyclesPerBurst)
		if e.M.Timing.TakeExceptionCheck() && e.M.PI.Pending() {
			e.handleInterrupt()
		}
	}
	return nil
}

// handleInterrupt is the CP interrupt handler of the workload. On overflow it
// waits for the GPU to catch up, on breakpoint it disables the breakpoint so
// that the GPU can go on.
func (e *Emulator) handleInterrupt() {
	m := e.M
	status := cp.Status(m.Read16(cp.DefaultBase + cp.StatusRegister))
	log.ModEmu.DebugZ("cp interrupt").Stringer("status", status).End()

	if status.Breakpoint() {
		ctrl := cp.Ctrl(m.Read16(cp.DefaultBase + cp.CtrlRegister))
		ctrl &^= cp.CtrlBPEnable | cp.CtrlBPInt
		m.Write16(cp.DefaultBase+cp.CtrlRegister, uint16(ctrl))
	}
	if status.OverflowHiWatermark() {
		m.GPU.FlushGpu()
	}
	m.CP.SetStatusFromCPU()
}
