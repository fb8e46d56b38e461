package cp

import (
	"cpemu/emu/log"
	"cpemu/hw/hwdefs"
	"cpemu/hw/hwio"
)

// RegisterMMIO maps the command processor registers at base.
//
// The FIFO registers are 32-bit values exposed as two 16-bit halves, low half
// at the lower address. Both halves write into the same Reg32.
func (cp *CommandProcessor) RegisterMMIO(t *hwio.Table, base uint32) {
	t.MapBank(base, cp, 0)

	t.Register(base+PerfSelect, "PERF_SELECT", hwio.InvalidRead(), hwio.Nop())

	bboxNames := [4]string{"BBOX_LEFT", "BBOX_RIGHT", "BBOX_TOP", "BBOX_BOTTOM"}
	for i, name := range bboxNames {
		t.Register(base+FifoBoundingBoxLeft+uint32(2*i), name,
			hwio.ComplexRead(func(uint32) uint16 { return cp.BoundingBox(i) }),
			hwio.InvalidWrite())
	}

	himask := uint16(PhysicalAddressMask(cp.cfg.Wii) >> 16)

	direct := []struct {
		off  uint32
		name string
		reg  *hwio.Reg32
	}{
		{FifoBaseLo, "FIFO_BASE", &cp.Fifo.Base},
		{FifoEndLo, "FIFO_END", &cp.Fifo.End},
		{FifoHiWatermarkLo, "FIFO_HI_WATERMARK", &cp.Fifo.HiWatermark},
		{FifoLoWatermarkLo, "FIFO_LO_WATERMARK", &cp.Fifo.LoWatermark},
		{FifoWritePointerLo, "FIFO_WRITE_POINTER", &cp.Fifo.WritePointer},
	}
	for _, r := range direct {
		t.Register(base+r.off, r.name+"_LO", hwio.DirectRead(r.reg.Lo()), hwio.DirectWrite(r.reg.Lo(), WMaskLoAlign32))
		t.Register(base+r.off+2, r.name+"_HI", hwio.DirectRead(r.reg.Hi()), hwio.DirectWrite(r.reg.Hi(), himask))
	}

	// Distance. On dual core the GPU thread owns the read pointer, so the
	// distance seen by the CPU is computed from the last published one.
	dist := &cp.Fifo.Distance
	distLo, distHi := hwio.DirectRead(dist.Lo()), hwio.DirectRead(dist.Hi())
	if cp.cfg.DualCore {
		distLo = hwio.ComplexRead(func(uint32) uint16 { return hwio.Lo16(cp.computedDistance()) })
		distHi = hwio.ComplexRead(func(uint32) uint16 { return hwio.Hi16(cp.computedDistance()) })
	}
	t.Register(base+FifoRWDistanceLo, "FIFO_RW_DISTANCE_LO", distLo, hwio.DirectWrite(dist.Lo(), WMaskLoAlign32))
	t.Register(base+FifoRWDistanceHi, "FIFO_RW_DISTANCE_HI", distHi,
		hwio.ComplexWrite(func(_ uint32, val uint16) {
			dist.Hi().WriteMasked(val, himask)
			cp.gpu.SyncGPU(hwdefs.SyncOther)
			log.ModCP.DebugZ("write distance").Uint32("dist", dist.Load()).End()
			cp.gpu.RunGpu()
		}))

	// Read pointer.
	rp := &cp.Fifo.ReadPointer
	if cp.cfg.DualCore {
		safe := &cp.Fifo.SafeReadPointer
		t.Register(base+FifoReadPointerLo, "FIFO_READ_POINTER_LO",
			hwio.DirectRead(safe.Lo()), hwio.DirectWrite(rp.Lo(), WMaskLoAlign32))
		t.Register(base+FifoReadPointerHi, "FIFO_READ_POINTER_HI",
			hwio.DirectRead(safe.Hi()),
			hwio.ComplexWrite(func(_ uint32, val uint16) {
				rp.Hi().WriteMasked(val, himask)
				safe.Store(rp.Load())
			}))
	} else {
		t.Register(base+FifoReadPointerLo, "FIFO_READ_POINTER_LO",
			hwio.DirectRead(rp.Lo()), hwio.DirectWrite(rp.Lo(), WMaskLoAlign32))
		t.Register(base+FifoReadPointerHi, "FIFO_READ_POINTER_HI",
			hwio.DirectRead(rp.Hi()), hwio.DirectWrite(rp.Hi(), himask))
	}

	// Breakpoint.
	bp := &cp.Fifo.Breakpoint
	t.Register(base+FifoBPLo, "FIFO_BP_LO", hwio.DirectRead(bp.Lo()),
		hwio.ComplexWrite(func(_ uint32, val uint16) { bp.Lo().WriteMasked(val, WMaskLoAlign32) }))
	t.Register(base+FifoBPHi, "FIFO_BP_HI", hwio.DirectRead(bp.Hi()),
		hwio.ComplexWrite(func(_ uint32, val uint16) { bp.Hi().WriteMasked(val, himask) }))

	// Performance metrics are not emulated.
	for off := uint32(XFRasBusyL); off <= VCacheMetricStallH; off += 2 {
		t.Register(base+off, metricName(off), hwio.Constant(0), hwio.InvalidWrite())
	}
	t.Register(base+ClksPerVtxOut, "CLKS_PER_VTX_OUT", hwio.Constant(4), hwio.InvalidWrite())
}

var metricNames = [...]string{
	"XF_RASBUSY", "XF_CLKS", "XF_WAIT_IN", "XF_WAIT_OUT",
	"VCACHE_METRIC_CHECK", "VCACHE_METRIC_MISS", "VCACHE_METRIC_STALL",
}

func metricName(off uint32) string {
	idx := (off - XFRasBusyL) / 2
	name := metricNames[idx/2]
	if idx&1 == 0 {
		return name + "_L"
	}
	return name + "_H"
}

// computedDistance is the distance as seen by the CPU thread on dual core:
// the amount of data between the safe read pointer and the write pointer.
func (cp *CommandProcessor) computedDistance() uint32 {
	f := &cp.Fifo
	wp, safe := f.WritePointer.Load(), f.SafeReadPointer.Load()
	switch {
	case wp == safe:
		// Empty or full: only the distance itself tells them apart.
		return f.Distance.Load()
	case wp > safe:
		return wp - safe
	}
	return f.End.Load() - safe + wp - f.Base.Load()
}
