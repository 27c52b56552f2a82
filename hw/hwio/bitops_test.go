package hwio

import "testing"

func TestField8(t *testing.T) {
	tests := []struct {
		v         uint8
		lo, width uint
		want      uint8
	}{
		{0x15, 0, 2, 0b01},
		{0x15, 2, 3, 0b101},
		{0x15, 5, 2, 0b00},
		{0x95, 7, 1, 1},
		{0xFF, 0, 8, 0xFF},
	}

	for _, tt := range tests {
		if got := Field8(tt.v, tt.lo, tt.width); got != tt.want {
			t.Errorf("Field8(%02x, %d, %d) = %b, want %b", tt.v, tt.lo, tt.width, got, tt.want)
		}
	}
}

func TestSetField8(t *testing.T) {
	var v uint8
	SetField8(&v, 0, 2, 0b01)
	SetField8(&v, 2, 3, 0b101)
	if v != 0x15 {
		t.Fatalf("v = %02x, want 15", v)
	}

	// extra bits of f beyond width are ignored.
	SetField8(&v, 5, 2, 0xFF)
	if v != 0x75 {
		t.Fatalf("v = %02x, want 75", v)
	}
}

func TestBits(t *testing.T) {
	var v uint8
	SetBit8(&v, 3)
	if !GetBit8(v, 3) || v != 0x08 {
		t.Fatalf("SetBit8: %02x", v)
	}
	if GetBit8(v, 2) || GetBiti8(v, 3) != 1 {
		t.Fatalf("GetBit8: %02x", v)
	}
}
