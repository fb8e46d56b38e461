package hwio

import (
	"fmt"
	"slices"

	"cpemu/emu/log"
)

// log unmapped accesses (useful for debugging but verbose, since some
// titles poke at registers that aren't emulated)
const logUnmapped = false

// Bus16 is a 16-bit wide bus.
type Bus16 interface {
	Read16(addr uint32) uint16
	Write16(addr uint32, val uint16)
}

// Write32 writes a 32-bit value as two 16-bit accesses, high half first at
// the lower address (big-endian bus).
func Write32(b Bus16, addr uint32, val uint32) {
	b.Write16(addr, Hi16(val))
	b.Write16(addr+2, Lo16(val))
}

// Read32 reads a 32-bit value as two 16-bit accesses, high half first.
func Read32(b Bus16, addr uint32) uint32 {
	hi := b.Read16(addr)
	lo := b.Read16(addr + 2)
	return uint32(hi)<<16 | uint32(lo)
}

// Mapping describes a mapped address.
type Mapping struct {
	Addr  uint32
	Name  string
	Read  ReadKind
	Write WriteKind
	Mask  uint16
}

func (m Mapping) String() string {
	s := fmt.Sprintf("%08x %-20s r:%-8s w:%s", m.Addr, m.Name, m.Read, m.Write)
	if m.Write == WriteDirect {
		s += fmt.Sprintf(" mask=%04x", m.Mask)
	}
	return s
}

type entry struct {
	name string
	r    Reader
	w    Writer
}

// Table maps 16-bit registers at fixed addresses to their read and write
// policies. It is built once at initialization and then only looked up.
type Table struct {
	Name string

	regs map[uint32]*entry
}

func NewTable(name string) *Table {
	t := new(Table)
	t.Name = name
	t.Reset()
	return t
}

func (t *Table) Reset() {
	t.regs = make(map[uint32]*entry)
}

// Register maps the register at addr. Registers are 16-bit wide so addr must
// be even. It panics if addr is already mapped.
func (t *Table) Register(addr uint32, name string, r Reader, w Writer) {
	if addr&1 != 0 {
		panic(fmt.Errorf("%s: unaligned register %s at %08x", t.Name, name, addr))
	}
	if old, ok := t.regs[addr]; ok {
		panic(fmt.Errorf("%s: %s at %08x already mapped to %s", t.Name, name, addr, old.name))
	}

	log.ModHwIo.DebugZ("mapping reg").
		Hex32("addr", addr).
		String("name", name).
		Stringer("r", r.Kind).
		Stringer("w", w.Kind).
		String("bus", t.Name).
		End()

	t.regs[addr] = &entry{name: name, r: r, w: w}
}

func (t *Table) Unregister(addr uint32) {
	delete(t.regs, addr)
}

// MapBank maps a register bank, that is, a structure containing multiple Reg16
// fields tagged with "hwio" (see InitRegs). Only the registers with the given
// bank number are mapped, at addr plus their offset.
func (t *Table) MapBank(addr uint32, bank any, bankNum int) {
	regs, err := bankGetRegs(bank, bankNum)
	if err != nil {
		panic(err)
	}

	for _, reg := range regs {
		r := reg.regPtr
		t.Register(addr+reg.offset, r.Name, reg16Reader(r), reg16Writer(r))
	}
}

func (t *Table) UnmapBank(addr uint32, bank any, bankNum int) {
	regs, err := bankGetRegs(bank, bankNum)
	if err != nil {
		panic(err)
	}
	for _, reg := range regs {
		t.Unregister(addr + reg.offset)
	}
}

func reg16Reader(r *Reg16) Reader {
	switch {
	case r.Flags&WriteOnlyFlag != 0:
		return InvalidRead()
	case r.ReadCb != nil:
		return ComplexRead(r.Read16)
	}
	return Reader{Kind: ReadDirect, fn: r.Read16}
}

func reg16Writer(r *Reg16) Writer {
	switch {
	case r.Flags&ReadOnlyFlag != 0:
		return InvalidWrite()
	case r.WriteCb != nil:
		return ComplexWrite(r.Write16)
	}
	return Writer{Kind: WriteDirect, Mask: ^r.RoMask, fn: r.Write16}
}

// Read16 forwards the read to the register mapped at addr. Reads from
// unmapped or write-only addresses return 0.
func (t *Table) Read16(addr uint32) uint16 {
	e, ok := t.regs[addr]
	if !ok {
		if logUnmapped {
			log.ModHwIo.ErrorZ("unmapped Read16").
				String("bus", t.Name).
				Hex32("addr", addr).
				End()
		}
		return 0
	}
	if e.r.Kind == ReadInvalid {
		log.ModHwIo.ErrorZ("invalid Read16").
			String("bus", t.Name).
			String("name", e.name).
			Hex32("addr", addr).
			End()
		return 0
	}
	return e.r.read(addr)
}

// Write16 forwards the write to the register mapped at addr. Writes to
// unmapped, read-only or ignored addresses are dropped.
func (t *Table) Write16(addr uint32, val uint16) {
	e, ok := t.regs[addr]
	if !ok {
		if logUnmapped {
			log.ModHwIo.ErrorZ("unmapped Write16").
				String("bus", t.Name).
				Hex32("addr", addr).
				Hex16("val", val).
				End()
		}
		return
	}
	if e.w.Kind == WriteInvalid {
		log.ModHwIo.ErrorZ("invalid Write16").
			String("bus", t.Name).
			String("name", e.name).
			Hex32("addr", addr).
			Hex16("val", val).
			End()
		return
	}
	e.w.write(addr, val)
}

// Lookup returns the mapping at addr.
func (t *Table) Lookup(addr uint32) (Mapping, bool) {
	e, ok := t.regs[addr]
	if !ok {
		return Mapping{}, false
	}
	return e.mapping(addr), true
}

// Mappings returns all mappings, sorted by address.
func (t *Table) Mappings() []Mapping {
	maps := make([]Mapping, 0, len(t.regs))
	for addr, e := range t.regs {
		maps = append(maps, e.mapping(addr))
	}
	slices.SortFunc(maps, func(a, b Mapping) int {
		return int(int64(a.Addr) - int64(b.Addr))
	})
	return maps
}

func (e *entry) mapping(addr uint32) Mapping {
	return Mapping{
		Addr:  addr,
		Name:  e.name,
		Read:  e.r.Kind,
		Write: e.w.Kind,
		Mask:  e.w.Mask,
	}
}
