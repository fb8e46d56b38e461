package cp

import (
	"cpemu/emu/log"
	"cpemu/hw/hwdefs"
	"cpemu/hw/timing"
)

// condInput is a snapshot of the state the interrupt conditions depend on.
type condInput struct {
	distance    uint32
	hiWatermark uint32
	loWatermark uint32
	readPointer uint32
	breakpoint  uint32

	readEnable bool
	bpEnable   bool
	bpInt      bool
	hiInt      bool
	loInt      bool
	bpHit      bool // latch state before evaluation
}

type condOutput struct {
	bpHit     bool
	hiHit     bool
	loHit     bool
	interrupt bool
}

// evaluate computes the interrupt conditions. The breakpoint latch goes from
// clear to hit when the read pointer reaches the enabled breakpoint, and back
// to clear as soon as it leaves it or the breakpoint is disabled.
func evaluate(in condInput) condOutput {
	var out condOutput

	atBP := in.bpEnable && in.readPointer == in.breakpoint
	switch {
	case atBP && !in.bpHit:
		out.bpHit = true
	case !atBP && in.bpHit:
		out.bpHit = false
	default:
		out.bpHit = in.bpHit
	}

	out.hiHit = in.distance > in.hiWatermark
	out.loHit = in.distance < in.loWatermark

	bpInt := out.bpHit && in.bpInt
	ovfInt := out.hiHit && in.hiInt
	undfInt := out.loHit && in.loInt
	out.interrupt = (bpInt || ovfInt || undfInt) && in.readEnable
	return out
}

func (cp *CommandProcessor) condInput() condInput {
	f := &cp.Fifo
	return condInput{
		distance:    f.Distance.Load(),
		hiWatermark: f.HiWatermark.Load(),
		loWatermark: f.LoWatermark.Load(),
		readPointer: f.ReadPointer.Load(),
		breakpoint:  f.Breakpoint.Load(),
		readEnable:  f.ReadEnable.Load(),
		bpEnable:    f.BPEnable.Load(),
		bpInt:       f.BPInt.Load(),
		hiInt:       f.HiWatermarkInt.Load(),
		loInt:       f.LoWatermarkInt.Load(),
		bpHit:       f.BPHit.Load(),
	}
}

// updateConditions evaluates the interrupt conditions, stores the resulting
// flags and returns the desired level of the interrupt line.
func (cp *CommandProcessor) updateConditions() bool {
	f := &cp.Fifo
	in := cp.condInput()
	out := evaluate(in)

	if out.bpHit != in.bpHit {
		if out.bpHit {
			log.ModCP.DebugZ("hit breakpoint").Hex32("rp", in.readPointer).End()
		} else {
			log.ModCP.DebugZ("leave breakpoint").Hex32("rp", in.readPointer).End()
		}
	}

	f.BPHit.Store(out.bpHit)
	f.HiWatermarkHit.Store(out.hiHit)
	f.LoWatermarkHit.Store(out.loHit)
	return out.interrupt
}

// SetStatusFromGPU evaluates the interrupt conditions on the GPU thread.
//
// On dual core a level change is not applied here: it is posted to the CPU
// thread through the scheduler, at most one at a time.
func (cp *CommandProcessor) SetStatusFromGPU() {
	interrupt := cp.updateConditions()
	if interrupt == cp.interruptSet.Load() || cp.interruptWaiting.Load() {
		return
	}

	if !cp.cfg.DualCore {
		cp.UpdateInterrupts(interrupt)
		return
	}
	if cp.gpu.UseDeterministicGPUThread() {
		return
	}
	if !cp.interruptWaiting.CompareAndSwap(false, true) {
		return
	}

	log.ModCP.DebugZ("post interrupt").Bool("level", interrupt).End()
	var userdata uint64
	if interrupt {
		userdata = 1
	}
	cp.sched.ScheduleEvent(0, cp.evInterrupt, userdata, timing.FromNonCPU)
}

// SetStatusFromCPU evaluates the interrupt conditions on the CPU thread. A
// level change is forwarded to the interrupt sink immediately.
func (cp *CommandProcessor) SetStatusFromCPU() {
	interrupt := cp.updateConditions()
	if interrupt == cp.interruptSet.Load() || cp.interruptWaiting.Load() {
		return
	}

	if !cp.cfg.DualCore {
		cp.UpdateInterrupts(interrupt)
		return
	}

	log.ModCP.DebugZ("set interrupt").Bool("level", interrupt).End()
	cp.interruptSet.Store(interrupt)
	cp.irq.SetInterrupt(hwdefs.IntCauseCP, interrupt)
}

// UpdateInterrupts applies a new level of the interrupt line. It runs on the
// CPU thread.
func (cp *CommandProcessor) UpdateInterrupts(level bool) {
	if level {
		log.ModCP.DebugZ("interrupt set").End()
	} else {
		log.ModCP.DebugZ("interrupt cleared").End()
	}
	cp.interruptSet.Store(level)
	cp.irq.SetInterrupt(hwdefs.IntCauseCP, level)
	cp.sched.ForceExceptionCheck(0)
	cp.interruptWaiting.Store(false)
	cp.gpu.RunGpu()
}

// InterruptSet reports the level of the interrupt line.
func (cp *CommandProcessor) InterruptSet() bool {
	return cp.interruptSet.Load()
}

// IsInterruptWaiting reports whether a level change has been posted and not
// yet applied.
func (cp *CommandProcessor) IsInterruptWaiting() bool {
	return cp.interruptWaiting.Load()
}
