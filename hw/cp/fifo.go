package cp

import (
	"fmt"
	"strings"
	"sync/atomic"

	"cpemu/hw/hwio"
)

// Fifo is the command FIFO descriptor: a circular buffer [Base, End) in
// emulated memory, filled by the gather pipe on the CPU thread and drained by
// the GPU thread.
//
// Every field may be accessed by both threads and is therefore atomic.
// Distance is only ever updated with read-modify-write operations.
type Fifo struct {
	Base            hwio.Reg32
	End             hwio.Reg32
	HiWatermark     hwio.Reg32
	LoWatermark     hwio.Reg32
	Distance        hwio.Reg32 // bytes queued between read and write pointers
	WritePointer    hwio.Reg32
	ReadPointer     hwio.Reg32
	Breakpoint      hwio.Reg32
	SafeReadPointer hwio.Reg32 // read pointer as last published by the GPU thread

	LinkEnable atomic.Bool // gather pipe writes into this FIFO
	ReadEnable atomic.Bool // GPU reads from this FIFO
	BPEnable   atomic.Bool
	BPInt      atomic.Bool
	BPHit      atomic.Bool

	HiWatermarkInt atomic.Bool
	LoWatermarkInt atomic.Bool
	HiWatermarkHit atomic.Bool
	LoWatermarkHit atomic.Bool
}

func (f *Fifo) reset() {
	for _, r := range f.regs() {
		r.reg.Store(0)
	}
	for _, b := range f.flags() {
		b.flag.Store(false)
	}
}

// Capacity returns the size in bytes of the FIFO.
func (f *Fifo) Capacity() uint32 {
	return f.End.Load() - f.Base.Load()
}

// AtBreakpoint reports whether the read pointer sits at the enabled
// breakpoint, in which case the GPU must not read further.
func (f *Fifo) AtBreakpoint() bool {
	return f.BPEnable.Load() && f.ReadPointer.Load() == f.Breakpoint.Load()
}

// AdvanceReadPointer moves the read pointer by n bytes, wrapping at End, and
// publishes it as the safe read pointer. Only the GPU thread moves the read
// pointer.
func (f *Fifo) AdvanceReadPointer(n uint32) uint32 {
	rp := f.ReadPointer.Load() + n
	if rp >= f.End.Load() {
		rp = f.Base.Load()
	}
	f.ReadPointer.Store(rp)
	f.SafeReadPointer.Store(rp)
	return rp
}

// Consume removes up to n bytes from Distance, without going below zero, and
// returns the new distance.
func (f *Fifo) Consume(n uint32) uint32 {
	for {
		old := f.Distance.Load()
		val := uint32(0)
		if old > n {
			val = old - n
		}
		if f.Distance.CompareAndSwap(old, val) {
			return val
		}
	}
}

type namedReg struct {
	name string
	reg  *hwio.Reg32
}

type namedFlag struct {
	name string
	flag *atomic.Bool
}

func (f *Fifo) regs() []namedReg {
	return []namedReg{
		{"CPBase", &f.Base},
		{"CPEnd", &f.End},
		{"CPHiWatermark", &f.HiWatermark},
		{"CPLoWatermark", &f.LoWatermark},
		{"CPReadWriteDistance", &f.Distance},
		{"CPWritePointer", &f.WritePointer},
		{"CPReadPointer", &f.ReadPointer},
		{"CPBreakpoint", &f.Breakpoint},
		{"SafeCPReadPointer", &f.SafeReadPointer},
	}
}

func (f *Fifo) flags() []namedFlag {
	return []namedFlag{
		{"GPReadEnable", &f.ReadEnable},
		{"BPEnable", &f.BPEnable},
		{"BPInt", &f.BPInt},
		{"Breakpoint", &f.BPHit},
		{"GPLinkEnable", &f.LinkEnable},
		{"HiWatermarkInt", &f.HiWatermarkInt},
		{"LoWatermarkInt", &f.LoWatermarkInt},
		{"HiWatermark", &f.HiWatermarkHit},
		{"LoWatermark", &f.LoWatermarkHit},
	}
}

// String dumps the whole descriptor, one field per line.
func (f *Fifo) String() string {
	var sb strings.Builder
	for _, r := range f.regs() {
		fmt.Fprintf(&sb, "%s: 0x%08x\n", r.name, r.reg.Load())
	}
	for _, b := range f.flags() {
		fmt.Fprintf(&sb, "%s: %t\n", b.name, b.flag.Load())
	}
	return sb.String()
}
