package cp

import (
	"strings"

	"cpemu/hw/hwio"
)

// DefaultBase is the address of the command processor registers.
const DefaultBase = 0x0C000000

// Register offsets, relative to the command processor base.
const (
	StatusRegister        = 0x00
	CtrlRegister          = 0x02
	ClearRegister         = 0x04
	PerfSelect            = 0x06
	FifoTokenRegister     = 0x0E
	FifoBoundingBoxLeft   = 0x10
	FifoBoundingBoxRight  = 0x12
	FifoBoundingBoxTop    = 0x14
	FifoBoundingBoxBottom = 0x16
	FifoBaseLo            = 0x20
	FifoBaseHi            = 0x22
	FifoEndLo             = 0x24
	FifoEndHi             = 0x26
	FifoHiWatermarkLo     = 0x28
	FifoHiWatermarkHi     = 0x2A
	FifoLoWatermarkLo     = 0x2C
	FifoLoWatermarkHi     = 0x2E
	FifoRWDistanceLo      = 0x30
	FifoRWDistanceHi      = 0x32
	FifoWritePointerLo    = 0x34
	FifoWritePointerHi    = 0x36
	FifoReadPointerLo     = 0x38
	FifoReadPointerHi     = 0x3A
	FifoBPLo              = 0x3C
	FifoBPHi              = 0x3E
	XFRasBusyL            = 0x40
	XFRasBusyH            = 0x42
	XFClksL               = 0x44
	XFClksH               = 0x46
	XFWaitInL             = 0x48
	XFWaitInH             = 0x4A
	XFWaitOutL            = 0x4C
	XFWaitOutH            = 0x4E
	VCacheMetricCheckL    = 0x50
	VCacheMetricCheckH    = 0x52
	VCacheMetricMissL     = 0x54
	VCacheMetricMissH     = 0x56
	VCacheMetricStallL    = 0x58
	VCacheMetricStallH    = 0x5A
	ClksPerVtxOut         = 0x64
)

// Write masks of the FIFO registers in [0x20, 0x3E]. Low halves are 32-byte
// aligned; high halves are restricted to the physical address space.
const (
	WMaskAll         = 0xFFFF
	WMaskLoAlign32   = 0xFFE0
	physMaskBase     = 0x03FFFFFF
	physMaskExtended = 0x1FFFFFFF
)

// PhysicalAddressMask returns the mask the FIFO registers apply to
// addresses, depending on the platform address space.
func PhysicalAddressMask(extended bool) uint32 {
	if extended {
		return physMaskExtended
	}
	return physMaskBase
}

// Status register bits.
const (
	statusOverflowHiWatermark  = 0
	statusUnderflowLoWatermark = 1
	statusReadIdle             = 2
	statusCommandIdle          = 3
	statusBreakpoint           = 4
)

// Status is the value of the status register.
type Status uint16

func (s Status) OverflowHiWatermark() bool {
	return hwio.GetBit16(uint16(s), statusOverflowHiWatermark)
}
func (s Status) UnderflowLoWatermark() bool {
	return hwio.GetBit16(uint16(s), statusUnderflowLoWatermark)
}
func (s Status) ReadIdle() bool    { return hwio.GetBit16(uint16(s), statusReadIdle) }
func (s Status) CommandIdle() bool { return hwio.GetBit16(uint16(s), statusCommandIdle) }
func (s Status) Breakpoint() bool  { return hwio.GetBit16(uint16(s), statusBreakpoint) }

func (s Status) String() string {
	return bitsString(uint16(s), []string{"ovf", "undf", "ridle", "cidle", "bp"})
}

// Control register bits.
const (
	ctrlGPReadEnable       = 0
	ctrlBPEnable           = 1
	ctrlOverflowIntEnable  = 2
	ctrlUnderflowIntEnable = 3
	ctrlGPLinkEnable       = 4
	ctrlBPInt              = 5
)

// Ctrl is the value of the control register.
type Ctrl uint16

const (
	CtrlGPReadEnable       Ctrl = 1 << ctrlGPReadEnable
	CtrlBPEnable           Ctrl = 1 << ctrlBPEnable
	CtrlOverflowIntEnable  Ctrl = 1 << ctrlOverflowIntEnable
	CtrlUnderflowIntEnable Ctrl = 1 << ctrlUnderflowIntEnable
	CtrlGPLinkEnable       Ctrl = 1 << ctrlGPLinkEnable
	CtrlBPInt              Ctrl = 1 << ctrlBPInt
)

func (c Ctrl) GPReadEnable() bool       { return hwio.GetBit16(uint16(c), ctrlGPReadEnable) }
func (c Ctrl) BPEnable() bool           { return hwio.GetBit16(uint16(c), ctrlBPEnable) }
func (c Ctrl) OverflowIntEnable() bool  { return hwio.GetBit16(uint16(c), ctrlOverflowIntEnable) }
func (c Ctrl) UnderflowIntEnable() bool { return hwio.GetBit16(uint16(c), ctrlUnderflowIntEnable) }
func (c Ctrl) GPLinkEnable() bool       { return hwio.GetBit16(uint16(c), ctrlGPLinkEnable) }
func (c Ctrl) BPInt() bool              { return hwio.GetBit16(uint16(c), ctrlBPInt) }

func (c Ctrl) String() string {
	return bitsString(uint16(c), []string{"gpread", "bp", "ovfint", "undfint", "link", "bpint"})
}

// Clear register bits. Writes are accepted but have no effect.
const (
	ClearFifoOverflow  = 1 << 0
	ClearFifoUnderflow = 1 << 1
	ClearMetrics       = 1 << 2
)

// bitsString renders bits as names: upper case when set, lower case when
// clear.
func bitsString(v uint16, names []string) string {
	s := make([]string, len(names))
	for i, n := range names {
		if hwio.GetBit16(v, uint(i)) {
			n = strings.ToUpper(n)
		}
		s[i] = n
	}
	return strings.Join(s, "|")
}
