// Package pi emulates the parts of the processor interface the command
// processor talks to: the interrupt cause/mask registers, and the CPU-side
// FIFO pointers the gather pipe writes through.
package pi

import (
	"sync/atomic"

	"cpemu/emu/log"
	"cpemu/hw/hwdefs"
	"cpemu/hw/hwio"
	"cpemu/hw/snapshot"
)

// Register offsets, relative to the processor interface base.
const (
	IntCause       = 0x00
	IntMask        = 0x04
	FifoBase       = 0x0C
	FifoEnd        = 0x10
	FifoWritePtr   = 0x14
	DefaultBase    = 0x0C003000
	physicalAddrLo = 0xFFE0
)

// Interface holds the processor interface state. It is shared between the
// CPU thread and the GPU thread: all fields are accessed atomically.
type Interface struct {
	cause atomic.Uint32
	mask  atomic.Uint32

	// CPU-side view of the FIFO, published by the gather pipe when the
	// command processor FIFO is linked.
	Base, End, WritePointer hwio.Reg32

	// OnChange, if set, is called on each cause or mask change with the new
	// state of the CPU external interrupt line.
	OnChange func(pending bool)
}

func New() *Interface {
	return &Interface{}
}

func (pi *Interface) Reset() {
	pi.cause.Store(0)
	pi.mask.Store(0)
	pi.Base.Store(0)
	pi.End.Store(0)
	pi.WritePointer.Store(0)
}

// SetInterrupt raises or lowers one interrupt cause.
func (pi *Interface) SetInterrupt(cause hwdefs.InterruptCause, set bool) {
	for {
		old := pi.cause.Load()
		val := old &^ uint32(cause)
		if set {
			val |= uint32(cause)
		}
		if pi.cause.CompareAndSwap(old, val) {
			break
		}
	}

	log.ModPI.DebugZ("set interrupt").
		Stringer("cause", cause).
		Bool("set", set).
		Stringer("pending", hwdefs.InterruptCause(pi.cause.Load())).
		End()

	pi.notify()
}

func (pi *Interface) notify() {
	if pi.OnChange != nil {
		pi.OnChange(pi.Pending())
	}
}

// Cause returns the raw interrupt cause register.
func (pi *Interface) Cause() hwdefs.InterruptCause {
	return hwdefs.InterruptCause(pi.cause.Load())
}

// IsSet reports whether cause is currently raised (regardless of the mask).
func (pi *Interface) IsSet(cause hwdefs.InterruptCause) bool {
	return pi.cause.Load()&uint32(cause) != 0
}

func (pi *Interface) SetMask(mask uint32) {
	pi.mask.Store(mask)
	pi.notify()
}

func (pi *Interface) Mask() uint32 { return pi.mask.Load() }

// Pending reports whether the CPU external interrupt line is asserted.
func (pi *Interface) Pending() bool {
	return pi.cause.Load()&pi.mask.Load() != 0
}

// Publish stores the CPU-side FIFO pointers.
func (pi *Interface) Publish(base, end, wp uint32) {
	pi.Base.Store(base)
	pi.End.Store(end)
	pi.WritePointer.Store(wp)
}

// Published returns the CPU-side FIFO pointers.
func (pi *Interface) Published() (base, end, wp uint32) {
	return pi.Base.Load(), pi.End.Load(), pi.WritePointer.Load()
}

// RegisterMMIO maps the processor interface registers at base. Registers are
// 32-bit wide, high half at the lower address.
func (pi *Interface) RegisterMMIO(t *hwio.Table, base uint32) {
	t.Register(base|IntCause, "PI_INTCAUSE_HI",
		hwio.ComplexRead(func(uint32) uint16 { return hwio.Hi16(pi.cause.Load()) }),
		hwio.InvalidWrite())
	t.Register(base|IntCause+2, "PI_INTCAUSE_LO",
		hwio.ComplexRead(func(uint32) uint16 { return hwio.Lo16(pi.cause.Load()) }),
		hwio.InvalidWrite())

	t.Register(base|IntMask, "PI_INTMASK_HI",
		hwio.ComplexRead(func(uint32) uint16 { return hwio.Hi16(pi.mask.Load()) }),
		hwio.ComplexWrite(func(_ uint32, val uint16) {
			pi.SetMask(uint32(val)<<16 | pi.mask.Load()&0xFFFF)
		}))
	t.Register(base|IntMask+2, "PI_INTMASK_LO",
		hwio.ComplexRead(func(uint32) uint16 { return hwio.Lo16(pi.mask.Load()) }),
		hwio.ComplexWrite(func(_ uint32, val uint16) {
			pi.SetMask(pi.mask.Load()&0xFFFF0000 | uint32(val))
		}))

	regs := []struct {
		off  uint32
		name string
		reg  *hwio.Reg32
	}{
		{FifoBase, "PI_FIFO_BASE", &pi.Base},
		{FifoEnd, "PI_FIFO_END", &pi.End},
		{FifoWritePtr, "PI_FIFO_WPTR", &pi.WritePointer},
	}
	for _, r := range regs {
		t.Register(base|r.off, r.name+"_HI", hwio.DirectRead(r.reg.Hi()), hwio.DirectWrite(r.reg.Hi(), 0xFFFF))
		t.Register(base|r.off+2, r.name+"_LO", hwio.DirectRead(r.reg.Lo()), hwio.DirectWrite(r.reg.Lo(), physicalAddrLo))
	}
}

func (pi *Interface) State() *snapshot.PI {
	return &snapshot.PI{
		Cause:            pi.cause.Load(),
		Mask:             pi.mask.Load(),
		FifoBase:         pi.Base.Load(),
		FifoEnd:          pi.End.Load(),
		FifoWritePointer: pi.WritePointer.Load(),
	}
}

func (pi *Interface) SetState(state *snapshot.PI) {
	pi.cause.Store(state.Cause)
	pi.mask.Store(state.Mask)
	pi.Base.Store(state.FifoBase)
	pi.End.Store(state.FifoEnd)
	pi.WritePointer.Store(state.FifoWritePointer)
}
