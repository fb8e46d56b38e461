package emu

import (
	"context"
	"sync/atomic"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"cpemu/emu/log"
	"cpemu/hw/cp"
	"cpemu/hw/gpu"
	"cpemu/hw/hwdefs"
	"cpemu/hw/hwio"
	"cpemu/hw/pi"
	"cpemu/hw/snapshot"
	"cpemu/hw/timing"
)

// ErrHalted is returned by bursts issued after a fatal FIFO error.
var ErrHalted = errors.New("machine halted")

// Machine is the emulated hardware around the command processor: memory, the
// MMIO bus, the scheduler, the processor interface and the GPU.
type Machine struct {
	Bus        *hwio.Table
	RAM        *hwio.Mem
	Timing     *timing.Scheduler
	PI         *pi.Interface
	CP         *cp.CommandProcessor
	GPU        *gpu.Runner
	GatherPipe *GatherPipe

	cfg EmulationConfig

	halted         atomic.Bool
	unknownOpcodes atomic.Uint64
}

func NewMachine(cfg EmulationConfig) *Machine {
	m := &Machine{
		Bus:    hwio.NewTable("mmio"),
		RAM:    hwio.NewMem("ram", cfg.RAMSize),
		Timing: timing.NewScheduler(),
		PI:     pi.New(),
		cfg:    cfg,
	}

	m.CP = cp.New(cp.Config{DualCore: cfg.DualCore, Wii: cfg.Wii}, m.Timing, m.PI, m.PI)
	m.GPU = gpu.NewRunner(m.CP, gpu.Config{
		DualCore:      cfg.DualCore,
		Deterministic: cfg.DeterministicGPU,
		Budget:        cfg.GPUBudget,
	})
	m.CP.SetGPU(m.GPU)
	m.GPU.SetHandler(m.RAM, m.checkBlock)

	m.CP.RegisterMMIO(m.Bus, cp.DefaultBase)
	m.PI.RegisterMMIO(m.Bus, pi.DefaultBase)

	m.GatherPipe = &GatherPipe{ram: m.RAM, pi: m.PI, room: m.room, burst: m.burst}

	log.ResetContexts()
	log.AddContext(m.Timing)
	log.AddContext(m.CP)

	m.Reset(hwdefs.HardReset)
	return m
}

func (m *Machine) Reset(soft bool) {
	log.ModEmu.InfoZ("reset").Bool("soft", soft).End()
	m.GPU.FlushGpu()
	if !soft {
		m.Timing.Reset()
		m.RAM.WriteBlock(0, make([]byte, m.RAM.Size()))
	}
	m.PI.Reset()
	m.CP.Reset()
	m.GatherPipe.Reset()
	m.halted.Store(false)
	m.unknownOpcodes.Store(0)
}

// Run runs cpu, the CPU thread, until it returns. On dual core the GPU
// goroutine runs alongside and is stopped when cpu returns.
func (m *Machine) Run(ctx context.Context, cpu func(ctx context.Context) error) error {
	if !m.cfg.DualCore {
		return cpu(ctx)
	}

	g, ctx := errgroup.WithContext(ctx)
	gpuCtx, stopGPU := context.WithCancel(ctx)
	g.Go(func() error {
		return m.GPU.Run(gpuCtx)
	})
	g.Go(func() error {
		defer stopGPU()
		return cpu(ctx)
	})
	return g.Wait()
}

// room checks that the next gather pipe burst fits in the FIFO. An overflow
// halts the machine before the burst reaches memory.
func (m *Machine) room() error {
	if m.halted.Load() {
		return ErrHalted
	}
	if err := m.CP.CheckRoom(cp.GatherPipeSize); err != nil {
		return m.halt(err)
	}
	return nil
}

// burst reports a full gather pipe burst to the command processor. A FIFO
// error halts the machine.
func (m *Machine) burst() error {
	if m.halted.Load() {
		return ErrHalted
	}
	if err := m.CP.GatherPipeBursted(); err != nil {
		return m.halt(err)
	}
	return nil
}

func (m *Machine) halt(err error) error {
	m.halted.Store(true)
	log.ModEmu.ErrorZ("fatal command FIFO error, halting").Error("err", err).End()
	log.ModEmu.Errorf("command processor state:\n%s", m.CP.Dump())
	return err
}

// Halted reports whether a fatal FIFO error stopped the machine.
func (m *Machine) Halted() bool {
	return m.halted.Load()
}

// checkBlock is the GPU block handler: it only checks the opcode of the
// first command of each block.
func (m *Machine) checkBlock(_ uint32, block []byte) error {
	op := block[0]
	if isKnownOpcode(op) {
		return nil
	}
	m.unknownOpcodes.Add(1)
	return m.CP.HandleUnknownOpcode(op, false)
}

// UnknownOpcodes returns the number of blocks the GPU couldn't recognize.
func (m *Machine) UnknownOpcodes() uint64 {
	return m.unknownOpcodes.Load()
}

func (m *Machine) Read16(addr uint32) uint16 {
	return m.Bus.Read16(addr)
}

func (m *Machine) Write16(addr uint32, val uint16) {
	m.Bus.Write16(addr, val)
}

// SetFifoReg writes a 32-bit command processor FIFO register, low half first.
func (m *Machine) SetFifoReg(lo uint32, val uint32) {
	m.Bus.Write16(cp.DefaultBase+lo, hwio.Lo16(val))
	m.Bus.Write16(cp.DefaultBase+lo+2, hwio.Hi16(val))
}

// FifoReg reads a 32-bit command processor FIFO register.
func (m *Machine) FifoReg(lo uint32) uint32 {
	return uint32(m.Bus.Read16(cp.DefaultBase+lo+2))<<16 | uint32(m.Bus.Read16(cp.DefaultBase+lo))
}

// SaveSnapshot returns a snapshot of the machine. The GPU is flushed first.
func (m *Machine) SaveSnapshot() []byte {
	m.GPU.FlushGpu()
	return snapshot.Marshal(&snapshot.Machine{
		Version: snapshot.Version,
		CP:      *m.CP.State(),
		PI:      *m.PI.State(),
	})
}

// LoadSnapshot restores a snapshot taken with SaveSnapshot.
func (m *Machine) LoadSnapshot(buf []byte) error {
	var state snapshot.Machine
	if err := snapshot.Unmarshal(buf, &state); err != nil {
		return errors.Wrap(err, "load snapshot")
	}

	m.GPU.FlushGpu()
	m.PI.SetState(&state.PI)
	m.CP.SetState(&state.CP)
	m.GatherPipe.Reset()
	m.halted.Store(false)

	log.ModEmu.InfoZ("snapshot loaded").Int("size", len(buf)).End()
	return nil
}
