package hwio

// ReadKind describes how a mapped address produces a value.
type ReadKind uint8

const (
	ReadDirect   ReadKind = iota // value stored in a register
	ReadComplex                  // computed on each access
	ReadConstant                 // fixed value
	ReadInvalid                  // read rejected, returns 0
)

func (k ReadKind) String() string {
	switch k {
	case ReadDirect:
		return "direct"
	case ReadComplex:
		return "complex"
	case ReadConstant:
		return "constant"
	case ReadInvalid:
		return "invalid"
	}
	return "?"
}

// WriteKind describes what a mapped address does with a written value.
type WriteKind uint8

const (
	WriteDirect  WriteKind = iota // masked store into a register
	WriteComplex                  // arbitrary side effects
	WriteInvalid                  // write rejected (logged), value dropped
	WriteNop                      // write silently ignored
)

func (k WriteKind) String() string {
	switch k {
	case WriteDirect:
		return "direct"
	case WriteComplex:
		return "complex"
	case WriteInvalid:
		return "invalid"
	case WriteNop:
		return "nop"
	}
	return "?"
}

// Word16 is a 16-bit storage cell, either a standalone register or a Half of
// a Reg32.
type Word16 interface {
	Load() uint16
	WriteMasked(val, mask uint16)
}

// Reader is the read policy of a mapped address.
type Reader struct {
	Kind ReadKind
	fn   func(addr uint32) uint16
}

func (r Reader) read(addr uint32) uint16 {
	if r.fn == nil {
		return 0
	}
	return r.fn(addr)
}

// Writer is the write policy of a mapped address. Mask is only meaningful for
// direct writes.
type Writer struct {
	Kind WriteKind
	Mask uint16
	fn   func(addr uint32, val uint16)
}

func (w Writer) write(addr uint32, val uint16) {
	if w.fn != nil {
		w.fn(addr, val)
	}
}

func DirectRead(w Word16) Reader {
	return Reader{Kind: ReadDirect, fn: func(uint32) uint16 { return w.Load() }}
}

func ComplexRead(fn func(addr uint32) uint16) Reader {
	return Reader{Kind: ReadComplex, fn: fn}
}

func Constant(val uint16) Reader {
	return Reader{Kind: ReadConstant, fn: func(uint32) uint16 { return val }}
}

func InvalidRead() Reader {
	return Reader{Kind: ReadInvalid}
}

func DirectWrite(w Word16, mask uint16) Writer {
	return Writer{
		Kind: WriteDirect,
		Mask: mask,
		fn:   func(_ uint32, val uint16) { w.WriteMasked(val, mask) },
	}
}

func ComplexWrite(fn func(addr uint32, val uint16)) Writer {
	return Writer{Kind: WriteComplex, fn: fn}
}

func InvalidWrite() Writer {
	return Writer{Kind: WriteInvalid}
}

func Nop() Writer {
	return Writer{Kind: WriteNop}
}
