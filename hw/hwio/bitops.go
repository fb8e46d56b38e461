package hwio

// 16-bit operations
func GetBit16(v uint16, n uint) bool {
	return GetBiti16(v, n) != 0
}

func GetBiti16(v uint16, n uint) uint16 {
	return v >> (n) & 0x01
}

func SetBit16(v *uint16, n uint) {
	*v |= (1 << n)
}

func ClearBit16(v *uint16, n uint) {
	*v &= ^(1 << n)
}

// SetBitTo16 sets or clears bit n of v.
func SetBitTo16(v *uint16, n uint, set bool) {
	if set {
		SetBit16(v, n)
	} else {
		ClearBit16(v, n)
	}
}

// Lo16 and Hi16 split a 32-bit word.
func Lo16(v uint32) uint16 { return uint16(v) }
func Hi16(v uint32) uint16 { return uint16(v >> 16) }
