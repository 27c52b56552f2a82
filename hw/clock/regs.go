package clock

import "fmt"

// Timer control bits of an AVR-style 16-bit timer (Timer1 on ATmega328).
const (
	COMA0 = 1 << 6 // TCCRA: toggle OCA on compare match
	WGM2  = 1 << 3 // TCCRB: CTC mode, TOP = OCRA
	CS0   = 1 << 0 // TCCRB: clock select, no prescaling
)

// Registers is the timer register image programming a plan.
type Registers struct {
	TCCRA uint8
	TCCRB uint8
	OCRA  uint16
}

// Registers returns the register image for p: CTC mode, toggle on compare,
// no prescaling. Plans wider than 16 bits have no such image; OCRA is then
// truncated, which the caller can detect with CounterBits.
func (p Plan) Registers() Registers {
	return Registers{
		TCCRA: COMA0,
		TCCRB: WGM2 | CS0,
		OCRA:  uint16(p.Top),
	}
}

func (r Registers) String() string {
	return fmt.Sprintf("TCCRA=%02X TCCRB=%02X OCRA=%04X", r.TCCRA, r.TCCRB, r.OCRA)
}
