package snapshot

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

var (
	ErrVersion    = errors.New("unsupported snapshot version")
	ErrFieldOrder = errors.New("snapshot field out of order")
)

// field describes how to encode and decode one field of T. Fields are always
// written, and must be read back, in declaration order.
type field[T any] struct {
	name string
	enc  func(e *jx.Encoder, v *T)
	dec  func(d *jx.Decoder, v *T) error
}

func u16[T any](name string, p func(*T) *uint16) field[T] {
	return field[T]{
		name: name,
		enc:  func(e *jx.Encoder, v *T) { e.UInt16(*p(v)) },
		dec: func(d *jx.Decoder, v *T) (err error) {
			*p(v), err = d.UInt16()
			return err
		},
	}
}

func u32[T any](name string, p func(*T) *uint32) field[T] {
	return field[T]{
		name: name,
		enc:  func(e *jx.Encoder, v *T) { e.UInt32(*p(v)) },
		dec: func(d *jx.Decoder, v *T) (err error) {
			*p(v), err = d.UInt32()
			return err
		},
	}
}

func boolean[T any](name string, p func(*T) *bool) field[T] {
	return field[T]{
		name: name,
		enc:  func(e *jx.Encoder, v *T) { e.Bool(*p(v)) },
		dec: func(d *jx.Decoder, v *T) (err error) {
			*p(v), err = d.Bool()
			return err
		},
	}
}

func object[T, U any](name string, fields []field[U], p func(*T) *U) field[T] {
	return field[T]{
		name: name,
		enc:  func(e *jx.Encoder, v *T) { encodeObj(e, fields, p(v)) },
		dec:  func(d *jx.Decoder, v *T) error { return decodeObj(d, fields, p(v)) },
	}
}

func encodeObj[T any](e *jx.Encoder, fields []field[T], v *T) {
	e.ObjStart()
	for _, f := range fields {
		e.FieldStart(f.name)
		f.enc(e, v)
	}
	e.ObjEnd()
}

func decodeObj[T any](d *jx.Decoder, fields []field[T], v *T) error {
	idx := 0
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if idx >= len(fields) {
			return errors.Wrapf(ErrFieldOrder, "unexpected field %q", key)
		}
		f := fields[idx]
		if key != f.name {
			return errors.Wrapf(ErrFieldOrder, "got %q, want %q", key, f.name)
		}
		idx++
		if err := f.dec(d, v); err != nil {
			return errors.Wrap(err, f.name)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if idx != len(fields) {
		return errors.Wrapf(ErrFieldOrder, "missing field %q", fields[idx].name)
	}
	return nil
}

var fifoFields = []field[Fifo]{
	u32("base", func(f *Fifo) *uint32 { return &f.Base }),
	u32("end", func(f *Fifo) *uint32 { return &f.End }),
	u32("hi_watermark", func(f *Fifo) *uint32 { return &f.HiWatermark }),
	u32("lo_watermark", func(f *Fifo) *uint32 { return &f.LoWatermark }),
	u32("distance", func(f *Fifo) *uint32 { return &f.Distance }),
	u32("write_pointer", func(f *Fifo) *uint32 { return &f.WritePointer }),
	u32("read_pointer", func(f *Fifo) *uint32 { return &f.ReadPointer }),
	u32("breakpoint", func(f *Fifo) *uint32 { return &f.Breakpoint }),
	u32("safe_read_pointer", func(f *Fifo) *uint32 { return &f.SafeReadPointer }),
	boolean("link_enable", func(f *Fifo) *bool { return &f.LinkEnable }),
	boolean("read_enable", func(f *Fifo) *bool { return &f.ReadEnable }),
	boolean("bp_enable", func(f *Fifo) *bool { return &f.BPEnable }),
	boolean("bp_int", func(f *Fifo) *bool { return &f.BPInt }),
	boolean("bp_hit", func(f *Fifo) *bool { return &f.BPHit }),
	boolean("lo_watermark_int", func(f *Fifo) *bool { return &f.LoWatermarkInt }),
	boolean("hi_watermark_int", func(f *Fifo) *bool { return &f.HiWatermarkInt }),
	boolean("lo_watermark_hit", func(f *Fifo) *bool { return &f.LoWatermarkHit }),
	boolean("hi_watermark_hit", func(f *Fifo) *bool { return &f.HiWatermarkHit }),
}

var cpFields = []field[CP]{
	u16("status", func(c *CP) *uint16 { return &c.Status }),
	u16("ctrl", func(c *CP) *uint16 { return &c.Ctrl }),
	u16("clear", func(c *CP) *uint16 { return &c.Clear }),
	u16("bbox_left", func(c *CP) *uint16 { return &c.BBoxLeft }),
	u16("bbox_top", func(c *CP) *uint16 { return &c.BBoxTop }),
	u16("bbox_right", func(c *CP) *uint16 { return &c.BBoxRight }),
	u16("bbox_bottom", func(c *CP) *uint16 { return &c.BBoxBottom }),
	u16("token", func(c *CP) *uint16 { return &c.Token }),
	object("fifo", fifoFields, func(c *CP) *Fifo { return &c.Fifo }),
	boolean("interrupt_set", func(c *CP) *bool { return &c.InterruptSet }),
	boolean("interrupt_waiting", func(c *CP) *bool { return &c.InterruptWaiting }),
}

var piFields = []field[PI]{
	u32("cause", func(p *PI) *uint32 { return &p.Cause }),
	u32("mask", func(p *PI) *uint32 { return &p.Mask }),
	u32("fifo_base", func(p *PI) *uint32 { return &p.FifoBase }),
	u32("fifo_end", func(p *PI) *uint32 { return &p.FifoEnd }),
	u32("fifo_write_pointer", func(p *PI) *uint32 { return &p.FifoWritePointer }),
}

var machineFields = []field[Machine]{
	{
		name: "version",
		enc:  func(e *jx.Encoder, m *Machine) { e.Int(m.Version) },
		dec: func(d *jx.Decoder, m *Machine) (err error) {
			if m.Version, err = d.Int(); err != nil {
				return err
			}
			if m.Version != Version {
				return errors.Wrapf(ErrVersion, "got %d, want %d", m.Version, Version)
			}
			return nil
		},
	},
	object("cp", cpFields, func(m *Machine) *CP { return &m.CP }),
	object("pi", piFields, func(m *Machine) *PI { return &m.PI }),
}

// Marshal encodes a machine snapshot. The version field is always set to the
// current Version.
func Marshal(m *Machine) []byte {
	cpy := *m
	cpy.Version = Version

	var e jx.Encoder
	encodeObj(&e, machineFields, &cpy)
	return e.Bytes()
}

// Unmarshal decodes a machine snapshot.
func Unmarshal(buf []byte, m *Machine) error {
	var tmp Machine
	if err := decodeObj(jx.DecodeBytes(buf), machineFields, &tmp); err != nil {
		return errors.Wrap(err, "decode snapshot")
	}
	*m = tmp
	return nil
}

// MarshalCP encodes the command processor state alone.
func MarshalCP(c *CP) []byte {
	var e jx.Encoder
	encodeObj(&e, cpFields, c)
	return e.Bytes()
}

// UnmarshalCP decodes the command processor state alone.
func UnmarshalCP(buf []byte, c *CP) error {
	var tmp CP
	if err := decodeObj(jx.DecodeBytes(buf), cpFields, &tmp); err != nil {
		return errors.Wrap(err, "decode cp snapshot")
	}
	*c = tmp
	return nil
}
