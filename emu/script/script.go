// Package script runs Lua scenarios against an emulated machine. A scenario
// plays the role of the CPU: it programs registers through MMIO, writes to
// the gather pipe and advances time, and checks what the hardware reports.
package script

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	lua "github.com/yuin/gopher-lua"

	"cpemu/emu"
	"cpemu/emu/log"
	"cpemu/hw/cp"
	"cpemu/hw/hwdefs"
	"cpemu/hw/hwio"
	"cpemu/hw/pi"
)

// Runner holds a Lua state bound to a machine.
type Runner struct {
	L *lua.LState
	m *emu.Machine
}

func New(m *emu.Machine) *Runner {
	r := &Runner{L: lua.NewState(), m: m}
	r.register()
	return r
}

func (r *Runner) Close() {
	r.L.Close()
}

// RunFile runs the scenario at path until it ends, fails or ctx is done.
func (r *Runner) RunFile(ctx context.Context, path string) error {
	return r.run(ctx, path, func() error { return r.L.DoFile(path) })
}

// RunString runs a scenario given as source code.
func (r *Runner) RunString(ctx context.Context, src string) error {
	return r.run(ctx, "<string>", func() error { return r.L.DoString(src) })
}

func (r *Runner) run(ctx context.Context, name string, do func() error) error {
	log.ModScript.InfoZ("running scenario").String("name", name).End()
	err := r.m.Run(ctx, func(ctx context.Context) error {
		r.L.SetContext(ctx)
		defer r.L.RemoveContext()
		return do()
	})
	if err != nil {
		return errors.Wrapf(err, "scenario %s", name)
	}
	return nil
}

func (r *Runner) register() {
	funcs := map[string]lua.LGFunction{
		"write16":         r.write16,
		"read16":          r.read16,
		"write32":         r.write32,
		"read32":          r.read32,
		"fifo_write":      r.fifoWrite,
		"fifo_read":       r.fifoRead,
		"burst":           r.burst,
		"gp_write32":      r.gpWrite32,
		"advance":         r.advance,
		"exception_check": r.exceptionCheck,
		"drain":           r.drain,
		"interrupt":       r.interrupt,
		"status":          r.status,
		"halted":          r.halted,
		"save":            r.save,
		"load":            r.load,
		"log":             r.log,
	}
	for name, fn := range funcs {
		r.L.SetGlobal(name, r.L.NewFunction(fn))
	}

	r.L.SetGlobal("CP", r.regTable(cp.DefaultBase, ""))
	r.L.SetGlobal("PI", r.regTable(pi.DefaultBase, "PI_"))
}

// regTable returns a table of the register addresses mapped in the 4KB page
// at base, indexed by register name.
func (r *Runner) regTable(base uint32, prefix string) *lua.LTable {
	tbl := r.L.NewTable()
	for _, m := range r.m.Bus.Mappings() {
		if m.Addr&^0xFFF != base {
			continue
		}
		r.L.SetField(tbl, strings.TrimPrefix(m.Name, prefix), lua.LNumber(m.Addr))
	}
	return tbl
}

func checkU32(L *lua.LState, n int) uint32 {
	return uint32(L.CheckInt64(n))
}

func (r *Runner) write16(L *lua.LState) int {
	r.m.Write16(checkU32(L, 1), uint16(L.CheckInt64(2)))
	return 0
}

func (r *Runner) read16(L *lua.LState) int {
	L.Push(lua.LNumber(r.m.Read16(checkU32(L, 1))))
	return 1
}

// write32 and read32 access a 32-bit register as two halves, high half at
// the lower address.
func (r *Runner) write32(L *lua.LState) int {
	hwio.Write32(r.m.Bus, checkU32(L, 1), checkU32(L, 2))
	return 0
}

func (r *Runner) read32(L *lua.LState) int {
	L.Push(lua.LNumber(hwio.Read32(r.m.Bus, checkU32(L, 1))))
	return 1
}

// fifo_write and fifo_read access a command processor FIFO register given the
// address of its low half.
func (r *Runner) fifoWrite(L *lua.LState) int {
	r.m.SetFifoReg(checkU32(L, 1)-cp.DefaultBase, checkU32(L, 2))
	return 0
}

func (r *Runner) fifoRead(L *lua.LState) int {
	L.Push(lua.LNumber(r.m.FifoReg(checkU32(L, 1) - cp.DefaultBase)))
	return 1
}

func (r *Runner) burst(L *lua.LState) int {
	n := L.OptInt(1, 1)
	for range n * cp.GatherPipeSize / 4 {
		if err := r.m.GatherPipe.Write32(0); err != nil {
			L.RaiseError("burst: %v", err)
		}
	}
	return 0
}

func (r *Runner) gpWrite32(L *lua.LState) int {
	if err := r.m.GatherPipe.Write32(checkU32(L, 1)); err != nil {
		L.RaiseError("gather pipe: %v", err)
	}
	return 0
}

func (r *Runner) advance(L *lua.LState) int {
	r.m.Timing.Advance(L.CheckInt64(1))
	return 0
}

func (r *Runner) exceptionCheck(L *lua.LState) int {
	L.Push(lua.LBool(r.m.Timing.TakeExceptionCheck()))
	return 1
}

func (r *Runner) drain(L *lua.LState) int {
	r.m.GPU.FlushGpu()
	return 0
}

func (r *Runner) interrupt(L *lua.LState) int {
	L.Push(lua.LBool(r.m.PI.IsSet(hwdefs.IntCauseCP)))
	return 1
}

func (r *Runner) status(L *lua.LState) int {
	s := cp.Status(r.m.Read16(cp.DefaultBase + cp.StatusRegister))
	tbl := L.NewTable()
	L.SetField(tbl, "overflow", lua.LBool(s.OverflowHiWatermark()))
	L.SetField(tbl, "underflow", lua.LBool(s.UnderflowLoWatermark()))
	L.SetField(tbl, "read_idle", lua.LBool(s.ReadIdle()))
	L.SetField(tbl, "command_idle", lua.LBool(s.CommandIdle()))
	L.SetField(tbl, "breakpoint", lua.LBool(s.Breakpoint()))
	L.Push(tbl)
	return 1
}

func (r *Runner) halted(L *lua.LState) int {
	L.Push(lua.LBool(r.m.Halted()))
	return 1
}

func (r *Runner) save(L *lua.LState) int {
	L.Push(lua.LString(r.m.SaveSnapshot()))
	return 1
}

func (r *Runner) load(L *lua.LState) int {
	if err := r.m.LoadSnapshot([]byte(L.CheckString(1))); err != nil {
		L.RaiseError("%v", err)
	}
	return 0
}

func (r *Runner) log(L *lua.LState) int {
	log.ModScript.InfoZ(L.CheckString(1)).End()
	return 0
}
