package hwio

func GetBit8(v uint8, n uint) bool {
	return GetBiti8(v, n) != 0
}

func GetBiti8(v uint8, n uint) uint8 {
	return v >> (n) & 0x01
}

func SetBit8(v *uint8, n uint) {
	*v |= (1 << n)
}

// Field8 extracts the width-bit field starting at bit lo.
func Field8(v uint8, lo, width uint) uint8 {
	return (v >> lo) & (1<<width - 1)
}

// SetField8 replaces the width-bit field starting at bit lo with f.
func SetField8(v *uint8, lo, width uint, f uint8) {
	mask := uint8(1<<width-1) << lo
	*v = (*v &^ mask) | (f << lo & mask)
}
