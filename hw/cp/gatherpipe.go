package cp

import (
	"github.com/go-faster/errors"

	"cpemu/emu/log"
)

var (
	// ErrOverflow reports that a burst would make the FIFO hold more than its
	// capacity: the GPU is not keeping up with the CPU.
	ErrOverflow = errors.New("command FIFO overflow")

	// ErrDesync reports that the CPU-side FIFO pointers diverged from the
	// command processor ones while linked.
	ErrDesync = errors.New("command FIFO link desync")
)

// GatherPipeBursted appends a full gather pipe burst to the FIFO.
func (cp *CommandProcessor) GatherPipeBursted() error {
	return cp.Burst(GatherPipeSize)
}

// Burst accounts for size bytes written by the gather pipe. The bytes
// themselves are written to memory by the caller. Errors are fatal: the
// emulation must not go on.
func (cp *CommandProcessor) Burst(size uint32) error {
	f := &cp.Fifo

	cp.SetStatusFromCPU()

	if !f.LinkEnable.Load() {
		// The gather pipe writes into a FIFO the GPU isn't reading from. If
		// the GPU still has data queued in that very region, let it finish
		// first.
		if cp.cfg.DualCore && !cp.gpu.UseDeterministicGPUThread() {
			base, end, _ := cp.link.Published()
			if base == f.Base.Load() && end == f.End.Load() && f.Distance.Load() > 0 {
				cp.gpu.FlushGpu()
			}
		}
		cp.gpu.RunGpu()
		return nil
	}

	// Nothing moves on overflow: the FIFO contents and pointers stay as the
	// GPU left them.
	if err := cp.CheckRoom(size); err != nil {
		cp.gpu.RunGpu()
		return err
	}

	wp := f.WritePointer.Load() + size
	if wp >= f.End.Load() {
		wp = f.Base.Load()
	}
	f.WritePointer.Store(wp)

	if f.ReadEnable.Load() {
		cp.link.Publish(f.Base.Load(), f.End.Load(), wp)
	}

	// Overflow is near: make the CPU check for the interrupt sooner.
	if f.HiWatermarkHit.Load() {
		cp.sched.ForceExceptionCheck(0)
	}

	// Only the CPU thread adds to the distance, so the room checked above is
	// still there.
	f.Distance.Add(size)

	log.ModCP.DebugZ("burst").
		Uint32("size", size).
		Hex32("wp", wp).
		Uint32("dist", f.Distance.Load()).
		End()

	cp.gpu.RunGpu()

	base, end, pwp := cp.link.Published()
	if base != f.Base.Load() || end != f.End.Load() || pwp != f.WritePointer.Load() {
		return errors.Wrapf(ErrDesync, "cpu fifo base=%08x end=%08x wp=%08x", base, end, pwp)
	}
	return nil
}

// CheckRoom returns ErrOverflow if size more bytes don't fit in the linked
// FIFO. The gather pipe calls it before writing a burst to memory, so that an
// overflowing burst never overwrites data the GPU has yet to read.
func (cp *CommandProcessor) CheckRoom(size uint32) error {
	f := &cp.Fifo
	if !f.LinkEnable.Load() {
		return nil
	}
	dist, capacity := f.Distance.Load(), f.Capacity()
	if dist+size > capacity {
		return errors.Wrapf(ErrOverflow, "distance %d + burst %d > capacity %d", dist, size, capacity)
	}
	return nil
}
