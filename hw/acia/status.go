package acia

// Status is the read-only status register.
type Status uint8

const (
	RDRF Status = 1 << iota // receive data register full
	TDRE                    // transmit data register empty
	DCD                     // data carrier detect (input level)
	CTS                     // clear to send (input level)
	FE                      // framing error
	OVRN                    // receiver overrun
	PE                      // parity error
	IRQ                     // interrupt request
)

// String renders flags from bit 7 to bit 0, uppercase when set.
func (s Status) String() string {
	const bits = "ipofcdtrIPOFCDTR"

	b := make([]byte, 8)
	for i := range 8 {
		ibit := (uint8(s) >> (7 - i)) & 1
		b[i] = bits[i+int(8*ibit)]
	}
	return string(b)
}

func (s Status) Has(flags Status) bool {
	return s&flags == flags
}

// TxReady reports whether a new character can be written to the transmit
// data register. A high CTS input inhibits TDRE on the chip itself, so TDRE
// alone is authoritative.
func (s Status) TxReady() bool {
	return s.Has(TDRE)
}
