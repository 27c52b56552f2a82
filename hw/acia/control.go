// Package acia drives a 6850 asynchronous communications interface adapter
// over a bit-banged parallel bus.
package acia

import (
	"fmt"
	"strings"

	"aciatx/hw/hwio"
)

// Control is the write-only control register.
//
//	bit 7    receive interrupt enable
//	bits 6-5 transmit control (RTS, transmit interrupt, break)
//	bits 4-2 word select
//	bits 1-0 counter divide select (11 = master reset)
type Control uint8

type Divisor uint8

const (
	DivideBy1  Divisor = 0b00
	DivideBy16 Divisor = 0b01
	DivideBy64 Divisor = 0b10
	divReset   Divisor = 0b11
)

// Ratio is the clock division factor, 0 for the master reset code.
func (d Divisor) Ratio() int {
	switch d {
	case DivideBy1:
		return 1
	case DivideBy16:
		return 16
	case DivideBy64:
		return 64
	}
	return 0
}

type WordSelect uint8

const (
	Word7E2 WordSelect = iota
	Word7O2
	Word7E1
	Word7O1
	Word8N2
	Word8N1
	Word8E1
	Word8O1
)

var wordFormats = [8]Format{
	{7, ParityEven, 2},
	{7, ParityOdd, 2},
	{7, ParityEven, 1},
	{7, ParityOdd, 1},
	{8, ParityNone, 2},
	{8, ParityNone, 1},
	{8, ParityEven, 1},
	{8, ParityOdd, 1},
}

func (w WordSelect) Format() Format { return wordFormats[w&7] }

type TxControl uint8

const (
	TxRTSLow       TxControl = iota // RTS asserted, transmit interrupt disabled
	TxRTSLowIRQ                     // RTS asserted, transmit interrupt enabled
	TxRTSHigh                       // RTS released, transmit interrupt disabled
	TxRTSLowBreak                   // RTS asserted, transmit interrupt disabled, break level on TxD
)

var txControlNames = [4]string{"rts", "rts+txirq", "nrts", "rts+break"}

func (t TxControl) String() string { return txControlNames[t&3] }

const (
	// DefaultControl selects /16, 8 data bits, no parity, 1 stop bit, RTS
	// asserted and all interrupts disabled.
	DefaultControl = Control(uint8(DivideBy16) | uint8(Word8N1)<<2 | uint8(TxRTSLow)<<5)

	// MasterReset resets the transmitter and receiver.
	MasterReset = Control(divReset)
)

func NewControl(div Divisor, ws WordSelect, tx TxControl, rxIRQ bool) Control {
	var v uint8
	hwio.SetField8(&v, 0, 2, uint8(div))
	hwio.SetField8(&v, 2, 3, uint8(ws))
	hwio.SetField8(&v, 5, 2, uint8(tx))
	if rxIRQ {
		hwio.SetBit8(&v, 7)
	}
	return Control(v)
}

func (c Control) Divisor() Divisor      { return Divisor(hwio.Field8(uint8(c), 0, 2)) }
func (c Control) WordSelect() WordSelect { return WordSelect(hwio.Field8(uint8(c), 2, 3)) }
func (c Control) TxControl() TxControl   { return TxControl(hwio.Field8(uint8(c), 5, 2)) }
func (c Control) RxIRQ() bool            { return hwio.GetBit8(uint8(c), 7) }
func (c Control) Format() Format         { return c.WordSelect().Format() }
func (c Control) IsMasterReset() bool    { return c.Divisor() == divReset }

func (c Control) String() string {
	if c.IsMasterReset() {
		return "master-reset"
	}
	s := fmt.Sprintf("/%d %s %s", c.Divisor().Ratio(), c.Format(), c.TxControl())
	if c.RxIRQ() {
		s += " rxirq"
	}
	return s
}

type Parity uint8

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

var parityLetters = [3]byte{'N', 'E', 'O'}

// Format describes an asynchronous character frame.
type Format struct {
	DataBits int
	Parity   Parity
	StopBits int
}

func (f Format) String() string {
	return fmt.Sprintf("%d%c%d", f.DataBits, parityLetters[f.Parity], f.StopBits)
}

// FrameBits is the number of bit times of a whole frame, start bit included.
func (f Format) FrameBits() int {
	n := 1 + f.DataBits + f.StopBits
	if f.Parity != ParityNone {
		n++
	}
	return n
}

// ParityBit returns the parity bit for v under f (false when f has no
// parity).
func (f Format) ParityBit(v uint8) bool {
	ones := 0
	for i := range f.DataBits {
		ones += int(v >> i & 1)
	}
	switch f.Parity {
	case ParityEven:
		return ones%2 == 1
	case ParityOdd:
		return ones%2 == 0
	}
	return false
}

// ParseFormat parses the usual 3-character notation ("8N1", "7E2", ...).
func ParseFormat(s string) (Format, error) {
	for _, f := range wordFormats {
		if strings.EqualFold(f.String(), s) {
			return f, nil
		}
	}
	return Format{}, fmt.Errorf("unsupported format %q", s)
}

// WordSelectFor returns the word select code for f.
func WordSelectFor(f Format) (WordSelect, bool) {
	for i, wf := range wordFormats {
		if wf == f {
			return WordSelect(i), true
		}
	}
	return 0, false
}
