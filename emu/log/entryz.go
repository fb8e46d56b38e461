package log

import (
	"fmt"
	"sync"

	"gopkg.in/Sirupsen/logrus.v0"
)

const maxZFields = 24

// EntryZ is a log entry builder. A nil *EntryZ is valid and every method is a
// no-op on it, so disabled log statements only cost a nil check.
type EntryZ struct {
	lvl   Level
	mod   Module
	msg   string
	zfbuf [maxZFields]ZField
	zfidx int
}

var entryPool = sync.Pool{
	New: func() any { return new(EntryZ) },
}

func NewEntryZ() *EntryZ {
	z := entryPool.Get().(*EntryZ)
	z.zfidx = 0
	return z
}

func (z *EntryZ) add() *ZField {
	if z.zfidx == maxZFields {
		return nil
	}
	f := &z.zfbuf[z.zfidx]
	z.zfidx++
	*f = ZField{}
	return f
}

func (z *EntryZ) Bool(key string, val bool) *EntryZ {
	if z != nil {
		if f := z.add(); f != nil {
			f.Type, f.Key, f.Boolean = FieldTypeBool, key, val
		}
	}
	return z
}

func (z *EntryZ) String(key, val string) *EntryZ {
	if z != nil {
		if f := z.add(); f != nil {
			f.Type, f.Key, f.String = FieldTypeString, key, val
		}
	}
	return z
}

func (z *EntryZ) Hex16(key string, val uint16) *EntryZ {
	if z != nil {
		if f := z.add(); f != nil {
			f.Type, f.Key, f.Integer = FieldTypeHex16, key, uint64(val)
		}
	}
	return z
}

func (z *EntryZ) Hex32(key string, val uint32) *EntryZ {
	if z != nil {
		if f := z.add(); f != nil {
			f.Type, f.Key, f.Integer = FieldTypeHex32, key, uint64(val)
		}
	}
	return z
}

func (z *EntryZ) Int(key string, val int) *EntryZ {
	if z != nil {
		if f := z.add(); f != nil {
			f.Type, f.Key, f.Integer = FieldTypeInt, key, uint64(val)
		}
	}
	return z
}

func (z *EntryZ) Int64(key string, val int64) *EntryZ {
	if z != nil {
		if f := z.add(); f != nil {
			f.Type, f.Key, f.Integer = FieldTypeInt, key, uint64(val)
		}
	}
	return z
}

func (z *EntryZ) Uint32(key string, val uint32) *EntryZ {
	if z != nil {
		if f := z.add(); f != nil {
			f.Type, f.Key, f.Integer = FieldTypeUint, key, uint64(val)
		}
	}
	return z
}

func (z *EntryZ) Error(key string, err error) *EntryZ {
	if z != nil {
		if f := z.add(); f != nil {
			f.Type, f.Key, f.Error = FieldTypeError, key, err
		}
	}
	return z
}

func (z *EntryZ) Stringer(key string, val fmt.Stringer) *EntryZ {
	if z != nil {
		if f := z.add(); f != nil {
			f.Type, f.Key, f.Interface = FieldTypeStringer, key, val
		}
	}
	return z
}

// End emits the entry. The entry must not be used afterwards.
func (z *EntryZ) End() {
	if z == nil {
		return
	}

	fields := make(logrus.Fields, z.zfidx+1)
	fields["_mod"] = z.mod.String()
	for i := range z.zfbuf[:z.zfidx] {
		fields[z.zfbuf[i].Key] = z.zfbuf[i].Value()
	}

	// Contexts append to z, so snapshot the fields added by the caller first.
	n := z.zfidx
	for _, c := range contexts {
		c.AddLogContext(z)
	}
	for i := n; i < z.zfidx; i++ {
		fields[z.zfbuf[i].Key] = z.zfbuf[i].Value()
	}

	entry := logrus.StandardLogger().WithFields(fields)
	lvl, msg := z.lvl, z.msg
	entryPool.Put(z)

	switch lvl {
	case DebugLevel:
		entry.Debug(msg)
	case InfoLevel:
		entry.Info(msg)
	case WarnLevel:
		entry.Warn(msg)
	case ErrorLevel:
		entry.Error(msg)
	case FatalLevel:
		entry.Fatal(msg)
	case PanicLevel:
		entry.Panic(msg)
	}
}
