package hwio

import (
	"fmt"
	"sync/atomic"
)

// Reg32 is a 32-bit register exposed on a 16-bit bus as two halves. There is
// a single backing word: both halves read and write the same atomic value, so
// they can't drift apart, and the full register can be updated atomically by
// code that doesn't go through the bus.
type Reg32 struct {
	v atomic.Uint32
}

func (r *Reg32) Load() uint32            { return r.v.Load() }
func (r *Reg32) Store(val uint32)        { r.v.Store(val) }
func (r *Reg32) Add(delta uint32) uint32 { return r.v.Add(delta) }

func (r *Reg32) CompareAndSwap(old, new uint32) bool {
	return r.v.CompareAndSwap(old, new)
}

func (r *Reg32) String() string { return fmt.Sprintf("%08x", r.v.Load()) }

// Lo returns the accessor for bits 0-15.
func (r *Reg32) Lo() Half { return Half{reg: r, shift: 0} }

// Hi returns the accessor for bits 16-31.
func (r *Reg32) Hi() Half { return Half{reg: r, shift: 16} }

// Half is a 16-bit view over a Reg32.
type Half struct {
	reg   *Reg32
	shift uint
}

func (h Half) Load() uint16 {
	return uint16(h.reg.v.Load() >> h.shift)
}

// WriteMasked stores (old & ^mask) | (val & mask) into the half, leaving the
// other half untouched.
func (h Half) WriteMasked(val, mask uint16) {
	clr := uint32(mask) << h.shift
	set := uint32(val&mask) << h.shift
	for {
		old := h.reg.v.Load()
		if h.reg.v.CompareAndSwap(old, old&^clr|set) {
			return
		}
	}
}
