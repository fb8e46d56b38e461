package cp

import (
	"cpemu/emu/log"
	"cpemu/hw/snapshot"
	"cpemu/hw/timing"
)

func (cp *CommandProcessor) State() *snapshot.CP {
	f := &cp.Fifo
	return &snapshot.CP{
		Status:     cp.STATUS.Value,
		Ctrl:       cp.CTRL.Value,
		Clear:      cp.CLEAR.Value,
		BBoxLeft:   cp.BoundingBox(BBoxLeft),
		BBoxTop:    cp.BoundingBox(BBoxTop),
		BBoxRight:  cp.BoundingBox(BBoxRight),
		BBoxBottom: cp.BoundingBox(BBoxBottom),
		Token:      cp.TOKEN.Value,
		Fifo: snapshot.Fifo{
			Base:            f.Base.Load(),
			End:             f.End.Load(),
			HiWatermark:     f.HiWatermark.Load(),
			LoWatermark:     f.LoWatermark.Load(),
			Distance:        f.Distance.Load(),
			WritePointer:    f.WritePointer.Load(),
			ReadPointer:     f.ReadPointer.Load(),
			Breakpoint:      f.Breakpoint.Load(),
			SafeReadPointer: f.SafeReadPointer.Load(),
			LinkEnable:      f.LinkEnable.Load(),
			ReadEnable:      f.ReadEnable.Load(),
			BPEnable:        f.BPEnable.Load(),
			BPInt:           f.BPInt.Load(),
			BPHit:           f.BPHit.Load(),
			LoWatermarkInt:  f.LoWatermarkInt.Load(),
			HiWatermarkInt:  f.HiWatermarkInt.Load(),
			LoWatermarkHit:  f.LoWatermarkHit.Load(),
			HiWatermarkHit:  f.HiWatermarkHit.Load(),
		},
		InterruptSet:     cp.interruptSet.Load(),
		InterruptWaiting: cp.interruptWaiting.Load(),
	}
}

// SetState restores a snapshot, in the order fields are saved. The GPU must
// be idle.
func (cp *CommandProcessor) SetState(state *snapshot.CP) {
	cp.STATUS.Value = state.Status
	cp.CTRL.Value = state.Ctrl
	cp.CLEAR.Value = state.Clear
	cp.bbox[BBoxLeft].Store(uint32(state.BBoxLeft))
	cp.bbox[BBoxTop].Store(uint32(state.BBoxTop))
	cp.bbox[BBoxRight].Store(uint32(state.BBoxRight))
	cp.bbox[BBoxBottom].Store(uint32(state.BBoxBottom))
	cp.TOKEN.Value = state.Token

	f := &cp.Fifo
	sf := &state.Fifo
	f.Base.Store(sf.Base)
	f.End.Store(sf.End)
	f.HiWatermark.Store(sf.HiWatermark)
	f.LoWatermark.Store(sf.LoWatermark)
	f.Distance.Store(sf.Distance)
	f.WritePointer.Store(sf.WritePointer)
	f.ReadPointer.Store(sf.ReadPointer)
	f.Breakpoint.Store(sf.Breakpoint)
	f.SafeReadPointer.Store(sf.SafeReadPointer)
	f.LinkEnable.Store(sf.LinkEnable)
	f.ReadEnable.Store(sf.ReadEnable)
	f.BPEnable.Store(sf.BPEnable)
	f.BPInt.Store(sf.BPInt)
	f.BPHit.Store(sf.BPHit)
	f.LoWatermarkInt.Store(sf.LoWatermarkInt)
	f.HiWatermarkInt.Store(sf.HiWatermarkInt)
	f.LoWatermarkHit.Store(sf.LoWatermarkHit)
	f.HiWatermarkHit.Store(sf.HiWatermarkHit)

	cp.interruptSet.Store(state.InterruptSet)
	cp.interruptWaiting.Store(state.InterruptWaiting)

	// Pending scheduler events are not part of the snapshot: post again the
	// level change that was in flight.
	if state.InterruptWaiting {
		var userdata uint64
		if !state.InterruptSet {
			userdata = 1
		}
		cp.sched.ScheduleEvent(0, cp.evInterrupt, userdata, timing.FromNonCPU)
	}

	log.ModCP.DebugZ("state restored").
		Hex32("wp", sf.WritePointer).
		Hex32("rp", sf.ReadPointer).
		Uint32("dist", sf.Distance).
		End()
}
