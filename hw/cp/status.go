package cp

import (
	"cpemu/emu/log"
	"cpemu/hw/hwio"
)

// Status computes the status register from the FIFO state.
func (cp *CommandProcessor) Status() Status {
	f := &cp.Fifo
	dist := f.Distance.Load()

	var s uint16
	hwio.SetBitTo16(&s, statusOverflowHiWatermark, f.HiWatermarkHit.Load())
	hwio.SetBitTo16(&s, statusUnderflowLoWatermark, f.LoWatermarkHit.Load())
	hwio.SetBitTo16(&s, statusReadIdle, dist == 0 || f.ReadPointer.Load() == f.WritePointer.Load())
	hwio.SetBitTo16(&s, statusCommandIdle, dist == 0 || cp.gpu.AtBreakpoint() || !f.ReadEnable.Load())
	hwio.SetBitTo16(&s, statusBreakpoint, f.BPHit.Load())
	return Status(s)
}

func (cp *CommandProcessor) ReadSTATUS(_ uint16) uint16 {
	s := cp.Status()
	cp.STATUS.Value = uint16(s)
	log.ModCP.DebugZ("read status").Stringer("status", s).End()
	return uint16(s)
}

// Ctrl returns the control register, rebuilt from the FIFO flags so that it
// can be read from the GPU thread.
func (cp *CommandProcessor) Ctrl() Ctrl {
	f := &cp.Fifo
	var c Ctrl
	for _, b := range []struct {
		on  bool
		bit Ctrl
	}{
		{f.ReadEnable.Load(), CtrlGPReadEnable},
		{f.BPEnable.Load(), CtrlBPEnable},
		{f.HiWatermarkInt.Load(), CtrlOverflowIntEnable},
		{f.LoWatermarkInt.Load(), CtrlUnderflowIntEnable},
		{f.LinkEnable.Load(), CtrlGPLinkEnable},
		{f.BPInt.Load(), CtrlBPInt},
	} {
		if b.on {
			c |= b.bit
		}
	}
	return c
}

func (cp *CommandProcessor) WriteCTRL(old, val uint16) {
	ctrl := Ctrl(val)
	f := &cp.Fifo

	// Disabling reads while the GPU is in the middle of a command would leave
	// it half consumed.
	if f.ReadEnable.Load() && !ctrl.GPReadEnable() {
		cp.gpu.FlushGpu()
	}

	f.ReadEnable.Store(ctrl.GPReadEnable())
	f.BPEnable.Store(ctrl.BPEnable())
	f.HiWatermarkInt.Store(ctrl.OverflowIntEnable())
	f.LoWatermarkInt.Store(ctrl.UnderflowIntEnable())
	f.LinkEnable.Store(ctrl.GPLinkEnable())
	f.BPInt.Store(ctrl.BPInt())

	log.ModCP.DebugZ("write ctrl").
		Stringer("old", Ctrl(old)).
		Stringer("new", ctrl).
		End()

	cp.gpu.RunGpu()
}

// WriteCLEAR only stores the value: the overflow and underflow conditions are
// levels recomputed on each evaluation, and metrics are not emulated.
func (cp *CommandProcessor) WriteCLEAR(_, val uint16) {
	log.ModCP.DebugZ("write clear").Hex16("val", val).End()
	cp.gpu.RunGpu()
}
