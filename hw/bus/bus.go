// Package bus defines the parallel bus between the host and the ACIA: the
// logical line roles, their levels and the capability used to drive them.
package bus

//go:generate go tool stringer -type=Role

// Role is the logical function of a bus line.
type Role uint8

const (
	D0 Role = iota
	D1
	D2
	D3
	D4
	D5
	D6
	D7
	CS  // chip select
	RW  // read/write
	RS  // register select
	E   // enable
	CLK // 16x bit-rate clock output
	LED // status led (optional)

	NumRoles = int(iota)
)

// DataLine returns the role of data bus line i.
func DataLine(i int) Role { return D0 + Role(i) }

// IsData reports whether r is one of D0-D7.
func (r Role) IsData() bool { return r <= D7 }

type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "High"
	}
	return "Low"
}

// Not returns the opposite level.
func (l Level) Not() Level { return !l }

// Bit returns the level corresponding to bit n of v.
func Bit(v uint8, n uint) Level { return Level(v>>n&1 != 0) }

type Direction uint8

const (
	Output Direction = iota
	Input
)

func (d Direction) String() string {
	if d == Input {
		return "in"
	}
	return "out"
}

// Lines is the capability to drive and sample bus lines. Implementations
// own the physical pins for the whole lifetime of the process; every line is
// configured as an output once, before the first call.
type Lines interface {
	SetLine(r Role, l Level)
	ReadLine(r Role) Level
}

// DataDirectioner is implemented by Lines that can turn the data bus around
// so that the chip can drive it. Only register reads need it.
type DataDirectioner interface {
	SetDataDir(d Direction)
}
