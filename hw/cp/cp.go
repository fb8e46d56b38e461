// Package cp emulates the command processor: the register file through which
// the CPU configures the command FIFO, the gather pipe producer that appends
// bursts to it, and the interrupt logic driven by its breakpoint and
// watermarks.
//
// The CommandProcessor is shared between the CPU thread (MMIO accesses,
// bursts) and the GPU thread (read pointer updates, status evaluation). Every
// field the GPU thread touches is atomic.
package cp

import (
	"sync/atomic"

	"cpemu/emu/log"
	"cpemu/hw/hwdefs"
	"cpemu/hw/hwio"
	"cpemu/hw/timing"
)

// GatherPipeSize is the size in bytes of a gather pipe burst.
const GatherPipeSize = 32

// Scheduler is the event facility through which interrupt changes detected
// on the GPU thread are delivered to the CPU thread.
type Scheduler interface {
	RegisterEvent(name string, cb timing.Callback) *timing.EventType
	ScheduleEvent(cyclesIntoFuture int64, ev *timing.EventType, userdata uint64, from timing.FromThread)
	ForceExceptionCheck(cycles int64)
}

// InterruptSink receives the level of the command processor interrupt line.
type InterruptSink interface {
	SetInterrupt(cause hwdefs.InterruptCause, set bool)
}

// Link holds the CPU-side FIFO pointers the gather pipe writes through.
type Link interface {
	Publish(base, end, wp uint32)
	Published() (base, end, wp uint32)
}

// GPU is the FIFO consumer.
type GPU interface {
	// RunGpu wakes the consumer so it processes whatever is queued.
	RunGpu()
	// FlushGpu blocks until the consumer is idle.
	FlushGpu()
	// SyncGPU makes the consumer catch up with the CPU thread.
	SyncGPU(reason hwdefs.SyncReason)
	// AtBreakpoint reports whether the consumer is parked at the FIFO
	// breakpoint.
	AtBreakpoint() bool
	// UseDeterministicGPUThread reports whether the consumer runs in
	// deterministic mode, where interrupt changes from the GPU thread are
	// applied by the CPU thread only.
	UseDeterministicGPUThread() bool
}

type Config struct {
	DualCore bool // CPU and GPU run on different threads
	Wii      bool // extended physical address space
}

// Bounding box edges, in register order.
const (
	BBoxLeft = iota
	BBoxRight
	BBoxTop
	BBoxBottom
)

type CommandProcessor struct {
	STATUS hwio.Reg16 `hwio:"offset=0x00,readonly,rcb"`
	CTRL   hwio.Reg16 `hwio:"offset=0x02,wcb"`
	CLEAR  hwio.Reg16 `hwio:"offset=0x04,wcb"`
	TOKEN  hwio.Reg16 `hwio:"offset=0x0e"`

	Fifo Fifo

	bbox [4]atomic.Uint32

	cfg   Config
	sched Scheduler
	irq   InterruptSink
	link  Link
	gpu   GPU

	evInterrupt *timing.EventType

	interruptSet     atomic.Bool // level of the interrupt line
	interruptWaiting atomic.Bool // a level change has been posted but not applied
}

// New creates a command processor. The GPU must be attached with SetGPU
// before any register access or burst.
func New(cfg Config, sched Scheduler, irq InterruptSink, link Link) *CommandProcessor {
	cp := &CommandProcessor{
		cfg:   cfg,
		sched: sched,
		irq:   irq,
		link:  link,
	}
	hwio.MustInitRegs(cp)
	cp.evInterrupt = sched.RegisterEvent("CPInterrupt", func(userdata uint64, _ int64) {
		cp.UpdateInterrupts(userdata != 0)
	})
	cp.Reset()
	return cp
}

func (cp *CommandProcessor) SetGPU(gpu GPU) {
	cp.gpu = gpu
}

func (cp *CommandProcessor) Config() Config {
	return cp.cfg
}

// Reset brings the command processor back to its power-on state.
func (cp *CommandProcessor) Reset() {
	cp.STATUS.Value = 1<<statusReadIdle | 1<<statusCommandIdle
	cp.CTRL.Value = 0
	cp.CLEAR.Value = 0
	cp.TOKEN.Value = 0

	cp.SetBoundingBox(0, 640, 0, 480)

	cp.Fifo.reset()
	cp.interruptSet.Store(false)
	cp.interruptWaiting.Store(false)

	log.ModCP.DebugZ("reset").Bool("dual", cp.cfg.DualCore).Bool("wii", cp.cfg.Wii).End()
}

// SetBoundingBox updates the bounding box registers. It may be called from
// the GPU thread.
func (cp *CommandProcessor) SetBoundingBox(left, right, top, bottom uint16) {
	cp.bbox[BBoxLeft].Store(uint32(left))
	cp.bbox[BBoxRight].Store(uint32(right))
	cp.bbox[BBoxTop].Store(uint32(top))
	cp.bbox[BBoxBottom].Store(uint32(bottom))
}

// BoundingBox returns the given bounding box edge.
func (cp *CommandProcessor) BoundingBox(edge int) uint16 {
	return uint16(cp.bbox[edge].Load())
}

// AddLogContext adds the FIFO pointers to log entries.
func (cp *CommandProcessor) AddLogContext(z *log.EntryZ) {
	z.Hex32("cp.wp", cp.Fifo.WritePointer.Load())
	z.Hex32("cp.rp", cp.Fifo.ReadPointer.Load())
	z.Uint32("cp.dist", cp.Fifo.Distance.Load())
}
