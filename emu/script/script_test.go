package script

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cpemu/emu"
)

// setupFifo programs a 4KB FIFO at 0x1000, on the command processor and on
// the processor interface, and unmasks the CP interrupt.
const setupFifo = `
fifo_write(CP.FIFO_BASE_LO, 0x1000)
fifo_write(CP.FIFO_END_LO, 0x2000)
fifo_write(CP.FIFO_WRITE_POINTER_LO, 0x1000)
fifo_write(CP.FIFO_READ_POINTER_LO, 0x1000)
write32(PI.FIFO_BASE_HI, 0x1000)
write32(PI.FIFO_END_HI, 0x2000)
write32(PI.FIFO_WPTR_HI, 0x1000)
write32(PI.INTMASK_HI, 0x800)
`

func newRunner(t *testing.T, dualCore bool) (*Runner, *emu.Machine) {
	t.Helper()
	cfg := emu.DefaultConfig().Emulation
	cfg.RAMSize = 1 << 16
	cfg.DualCore = dualCore
	m := emu.NewMachine(cfg)
	r := New(m)
	t.Cleanup(r.Close)
	return r, m
}

func runScenario(t *testing.T, dualCore bool, src string) *emu.Machine {
	t.Helper()
	r, m := newRunner(t, dualCore)
	if err := r.RunString(context.Background(), setupFifo+src); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestRegisterTables(t *testing.T) {
	runScenario(t, false, `
assert(CP.STATUS == 0x0C000000, "CP.STATUS")
assert(CP.CTRL == 0x0C000002, "CP.CTRL")
assert(CP.FIFO_BASE_LO == 0x0C000020, "CP.FIFO_BASE_LO")
assert(CP.FIFO_BP_HI == 0x0C00003E, "CP.FIFO_BP_HI")
assert(PI.INTMASK_HI == 0x0C003004, "PI.INTMASK_HI")
assert(fifo_read(CP.FIFO_END_LO) == 0x2000)
assert(read32(PI.FIFO_END_HI) == 0x2000)
assert(read16(CP.FIFO_END_HI) == 0)
`)
}

func TestBreakpointScenario(t *testing.T) {
	m := runScenario(t, false, `
write16(CP.CTRL, 0x33) -- read, link, breakpoint and its interrupt
fifo_write(CP.FIFO_BP_LO, 0x1040)
assert(not interrupt())

burst(2)
assert(interrupt(), "no breakpoint interrupt")
assert(exception_check())
local s = status()
assert(s.breakpoint and s.command_idle, "status")
assert(fifo_read(CP.FIFO_READ_POINTER_LO) == 0x1040)

write16(CP.CTRL, 0x11) -- breakpoint off
burst(1)
assert(not interrupt(), "interrupt still set")
assert(fifo_read(CP.FIFO_READ_POINTER_LO) == 0x1060)
log("breakpoint scenario done")
`)
	if m.Halted() {
		t.Errorf("machine halted")
	}
}

func TestOverflowScenario(t *testing.T) {
	m := runScenario(t, false, `
write16(CP.CTRL, 0x10) -- link only, the GPU doesn't read
local ok, err = pcall(burst, 200)
assert(not ok, "overflow not reported")
assert(halted())
assert(fifo_read(CP.FIFO_RW_DISTANCE_LO) == 0x1000)
`)
	if !m.Halted() {
		t.Errorf("machine not halted")
	}
}

func TestOverflowFailsScenario(t *testing.T) {
	r, _ := newRunner(t, false)
	err := r.RunString(context.Background(), setupFifo+`
write16(CP.CTRL, 0x10)
burst(200)
`)
	if err == nil {
		t.Fatalf("RunString() succeeded")
	}
}

func TestSaveLoadScenario(t *testing.T) {
	runScenario(t, false, `
write16(CP.CTRL, 0x10)
burst(3)
local s = save()
burst(2)
assert(fifo_read(CP.FIFO_WRITE_POINTER_LO) == 0x10A0)
load(s)
assert(fifo_read(CP.FIFO_WRITE_POINTER_LO) == 0x1060)
assert(fifo_read(CP.FIFO_RW_DISTANCE_LO) == 0x60)
assert(not pcall(load, "garbage"))
`)
}

func TestGatherPipeScenario(t *testing.T) {
	m := runScenario(t, false, `
write16(CP.CTRL, 0x10)
for i = 1, 7 do gp_write32(0x61000000 + i) end
assert(fifo_read(CP.FIFO_RW_DISTANCE_LO) == 0)
gp_write32(0)
assert(fifo_read(CP.FIFO_RW_DISTANCE_LO) == 0x20)
assert(read32(PI.FIFO_WPTR_HI) == 0x1020)
`)
	if got := m.RAM.Read32(0x1000); got != 0x61000001 {
		t.Errorf("ram[0x1000] = %08x, want 61000001", got)
	}
}

func TestDualCoreScenario(t *testing.T) {
	runScenario(t, true, `
write16(CP.CTRL, 0x11)
burst(16)
drain()
assert(fifo_read(CP.FIFO_RW_DISTANCE_LO) == 0, "fifo not drained")
assert(fifo_read(CP.FIFO_READ_POINTER_LO) == 0x1200)
advance(100)
`)
}

func TestRunFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.lua")
	if err := os.WriteFile(path, []byte(setupFifo+"burst(1)\n"), 0644); err != nil {
		t.Fatal(err)
	}
	r, m := newRunner(t, false)
	if err := r.RunFile(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	// Link is off: the burst doesn't reach the FIFO.
	if got := m.CP.Fifo.Distance.Load(); got != 0 {
		t.Errorf("distance = %d, want 0", got)
	}
}

func TestScenarioErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax", "write16(("},
		{"assert", "assert(false, 'boom')"},
		{"bad argument", "write16('x', 1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newRunner(t, false)
			if err := r.RunString(context.Background(), tt.src); err == nil {
				t.Errorf("RunString(%q) succeeded", tt.src)
			}
		})
	}
}

func TestScenarioCanceled(t *testing.T) {
	r, _ := newRunner(t, false)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := r.RunString(ctx, "while true do end"); err == nil {
		t.Errorf("RunString() succeeded")
	}
}
