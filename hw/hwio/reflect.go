package hwio

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

var typReg16 = reflect.TypeOf(Reg16{})

// InitRegs initializes the Reg16 fields of the structure pointed to by data,
// according to their "hwio" struct tag, a comma-separated list of options:
//
//	offset=0x12   byte offset of the register within its bank. Registers
//	              without offset are not part of any bank.
//	bank=N        bank number (default 0).
//	reset=0x1234  initial value.
//	rwmask=0xFF00 read-only bits: writes never modify them.
//	readonly      writes are rejected.
//	writeonly     reads are rejected.
//	rcb[=Name]    bind the read callback to method Name, by default
//	              "Read" followed by the upper-cased field name.
//	wcb[=Name]    bind the write callback to method Name, by default
//	              "Write" followed by the upper-cased field name.
func InitRegs(data any) error {
	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("hwio: InitRegs expects a pointer to struct, got %T", data)
	}
	sv := v.Elem()
	st := sv.Type()

	for i := range st.NumField() {
		f := st.Field(i)
		if f.Type != typReg16 {
			continue
		}
		tag, err := parseTag(f.Tag.Get("hwio"))
		if err != nil {
			return fmt.Errorf("hwio: %s.%s: %w", st.Name(), f.Name, err)
		}

		reg := sv.Field(i).Addr().Interface().(*Reg16)
		reg.Name = f.Name

		if s, ok := tag["reset"]; ok {
			val, err := strconv.ParseUint(s, 0, 16)
			if err != nil {
				return fmt.Errorf("hwio: %s.%s: invalid reset value: %w", st.Name(), f.Name, err)
			}
			reg.Value = uint16(val)
		}
		if s, ok := tag["rwmask"]; ok {
			val, err := strconv.ParseUint(s, 0, 16)
			if err != nil {
				return fmt.Errorf("hwio: %s.%s: invalid rwmask: %w", st.Name(), f.Name, err)
			}
			reg.RoMask = uint16(val)
		}
		if _, ok := tag["readonly"]; ok {
			reg.Flags |= ReadOnlyFlag
		}
		if _, ok := tag["writeonly"]; ok {
			reg.Flags |= WriteOnlyFlag
		}

		if name, ok := tag["rcb"]; ok {
			if name == "" {
				name = "Read" + strings.ToUpper(f.Name)
			}
			m := v.MethodByName(name)
			if !m.IsValid() {
				return fmt.Errorf("hwio: %s.%s: missing read callback %s", st.Name(), f.Name, name)
			}
			cb, ok := m.Interface().(func(uint16) uint16)
			if !ok {
				return fmt.Errorf("hwio: %s.%s: invalid signature for %s: %s", st.Name(), f.Name, name, m.Type())
			}
			reg.ReadCb = cb
		}
		if name, ok := tag["wcb"]; ok {
			if name == "" {
				name = "Write" + strings.ToUpper(f.Name)
			}
			m := v.MethodByName(name)
			if !m.IsValid() {
				return fmt.Errorf("hwio: %s.%s: missing write callback %s", st.Name(), f.Name, name)
			}
			cb, ok := m.Interface().(func(uint16, uint16))
			if !ok {
				return fmt.Errorf("hwio: %s.%s: invalid signature for %s: %s", st.Name(), f.Name, name, m.Type())
			}
			reg.WriteCb = cb
		}
	}
	return nil
}

// MustInitRegs is like InitRegs but panics on error.
func MustInitRegs(data any) {
	if err := InitRegs(data); err != nil {
		panic(err)
	}
}

type bankReg struct {
	offset uint32
	regPtr *Reg16
}

func bankGetRegs(bank any, bankNum int) ([]bankReg, error) {
	v := reflect.ValueOf(bank)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("hwio: bank must be a pointer to struct, got %T", bank)
	}
	sv := v.Elem()
	st := sv.Type()

	var regs []bankReg
	for i := range st.NumField() {
		f := st.Field(i)
		if f.Type != typReg16 {
			continue
		}
		tag, err := parseTag(f.Tag.Get("hwio"))
		if err != nil {
			return nil, fmt.Errorf("hwio: %s.%s: %w", st.Name(), f.Name, err)
		}
		s, ok := tag["offset"]
		if !ok {
			continue
		}
		num := 0
		if b, ok := tag["bank"]; ok {
			n, err := strconv.Atoi(b)
			if err != nil {
				return nil, fmt.Errorf("hwio: %s.%s: invalid bank: %w", st.Name(), f.Name, err)
			}
			num = n
		}
		if num != bankNum {
			continue
		}
		off, err := strconv.ParseUint(s, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("hwio: %s.%s: invalid offset: %w", st.Name(), f.Name, err)
		}
		regs = append(regs, bankReg{
			offset: uint32(off),
			regPtr: sv.Field(i).Addr().Interface().(*Reg16),
		})
	}
	return regs, nil
}

func parseTag(tag string) (map[string]string, error) {
	opts := make(map[string]string)
	for _, opt := range strings.Split(tag, ",") {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			continue
		}
		key, val, _ := strings.Cut(opt, "=")
		switch key {
		case "offset", "bank", "reset", "rwmask":
			if val == "" {
				return nil, fmt.Errorf("option %q requires a value", key)
			}
		case "readonly", "writeonly", "rcb", "wcb":
		default:
			return nil, fmt.Errorf("unknown option %q", key)
		}
		opts[key] = val
	}
	return opts, nil
}
