package hwio

import "fmt"

// Mem is a linear memory area, addressed through a power-of-two mask so that
// any 32-bit address maps (and mirrors) into it.
type Mem struct {
	Name string // name of the memory area (for debugging)
	Data []byte // actual memory buffer
	mask uint32
}

func NewMem(name string, size int) *Mem {
	if size <= 0 || size&(size-1) != 0 {
		panic(fmt.Sprintf("memory buffer size is not pow2: %#x", size))
	}
	return &Mem{
		Name: name,
		Data: make([]byte, size),
		mask: uint32(size - 1),
	}
}

func (m *Mem) Read8(addr uint32) uint8 {
	return m.Data[addr&m.mask]
}

func (m *Mem) Write8(addr uint32, val uint8) {
	m.Data[addr&m.mask] = val
}

// ReadBlock copies len(dst) bytes starting at addr into dst, wrapping around
// the end of the memory area.
func (m *Mem) ReadBlock(addr uint32, dst []byte) {
	for i := range dst {
		dst[i] = m.Data[(addr+uint32(i))&m.mask]
	}
}

// WriteBlock copies src into memory starting at addr, wrapping around the end
// of the memory area.
func (m *Mem) WriteBlock(addr uint32, src []byte) {
	for i, b := range src {
		m.Data[(addr+uint32(i))&m.mask] = b
	}
}

// Read32 reads a big-endian word.
func (m *Mem) Read32(addr uint32) uint32 {
	return uint32(m.Read8(addr))<<24 | uint32(m.Read8(addr+1))<<16 |
		uint32(m.Read8(addr+2))<<8 | uint32(m.Read8(addr+3))
}

func (m *Mem) Size() int { return len(m.Data) }
