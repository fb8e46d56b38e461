package pi

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"cpemu/hw/hwdefs"
	"cpemu/hw/hwio"
)

func TestSetInterrupt(t *testing.T) {
	pi := New()
	var lines []bool
	pi.OnChange = func(pending bool) { lines = append(lines, pending) }

	pi.SetInterrupt(hwdefs.IntCauseCP, true)
	if !pi.IsSet(hwdefs.IntCauseCP) {
		t.Fatal("cp cause should be set")
	}
	if pi.Pending() {
		t.Fatal("line shouldn't be asserted while masked")
	}

	pi.SetMask(uint32(hwdefs.IntCauseCP))
	pi.SetInterrupt(hwdefs.IntCausePEToken, true)
	pi.SetInterrupt(hwdefs.IntCauseCP, false)
	if got := pi.Cause(); got != hwdefs.IntCausePEToken {
		t.Errorf("Cause() = %v, want %v", got, hwdefs.IntCausePEToken)
	}

	want := []bool{false, true, true, false}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("line changes mismatch (-want +got):\n%s", diff)
	}
}

func TestMMIO(t *testing.T) {
	pi := New()
	bus := hwio.NewTable("pi")
	pi.RegisterMMIO(bus, DefaultBase)

	hwio.Write32(bus, DefaultBase|IntMask, 0x00000800)
	if pi.Mask() != 0x800 {
		t.Errorf("mask = %x, want 0x800", pi.Mask())
	}

	hwio.Write32(bus, DefaultBase|FifoBase, 0x00100010)
	hwio.Write32(bus, DefaultBase|FifoEnd, 0x00200000)
	hwio.Write32(bus, DefaultBase|FifoWritePtr, 0x00100040)
	base, end, wp := pi.Published()
	if base != 0x00100000 || end != 0x00200000 || wp != 0x00100040 {
		t.Errorf("Published() = %x %x %x", base, end, wp)
	}

	// Cause is read-only through MMIO.
	pi.SetInterrupt(hwdefs.IntCauseCP, true)
	hwio.Write32(bus, DefaultBase|IntCause, 0)
	if got := hwio.Read32(bus, DefaultBase|IntCause); got != 0x800 {
		t.Errorf("cause = %x, want 0x800", got)
	}
}

func TestState(t *testing.T) {
	pi := New()
	pi.SetMask(0xFFFF)
	pi.SetInterrupt(hwdefs.IntCauseCP, true)
	pi.Publish(0x1000, 0x2000, 0x1020)

	other := New()
	other.SetState(pi.State())
	if diff := cmp.Diff(pi.State(), other.State()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}
