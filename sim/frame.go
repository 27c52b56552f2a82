package sim

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"aciatx/hw/acia"
	"aciatx/hw/bus"
	"aciatx/log"
)

// Frame is one character as it appears on the TxD line: start bit, data
// bits LSB first, optional parity bit, stop bits. The line idles high
// outside the frame.
type Frame struct {
	Value   uint8
	Format  acia.Format
	Start   time.Duration
	BitTime time.Duration
	Bits    []bus.Level
}

func NewFrame(v uint8, f acia.Format, start, bitTime time.Duration) Frame {
	bits := make([]bus.Level, 0, f.FrameBits())
	bits = append(bits, bus.Low)
	for i := range f.DataBits {
		bits = append(bits, bus.Bit(v, uint(i)))
	}
	if f.Parity != acia.ParityNone {
		bits = append(bits, bus.Level(f.ParityBit(v)))
	}
	for range f.StopBits {
		bits = append(bits, bus.High)
	}
	return Frame{Value: v, Format: f, Start: start, BitTime: bitTime, Bits: bits}
}

// LevelAt returns the TxD level at offset d from the start of the frame.
func (f Frame) LevelAt(d time.Duration) bus.Level {
	if d < 0 || f.BitTime <= 0 {
		return bus.High
	}
	idx := int(d / f.BitTime)
	if idx >= len(f.Bits) {
		return bus.High
	}
	return f.Bits[idx]
}

var (
	ErrNoStartBit = errors.New("no start bit")
	ErrFraming    = errors.New("framing error")
	ErrParity     = errors.New("parity error")
)

// Terminal is an asynchronous receiver running at a nominal bit rate,
// independent from the transmitter clock. It synchronizes on the start bit
// edge and samples every bit in its middle, like a 16x oversampling UART.
type Terminal struct {
	Baud   uint32
	Format acia.Format
	Out    io.Writer

	Received int
	Errors   int
}

// Decode samples f and returns the received character.
func (t *Terminal) Decode(f Frame) (uint8, error) {
	nominal := float64(time.Second) / float64(t.Baud)
	sample := func(bit int) bus.Level {
		return f.LevelAt(time.Duration(math.Round((float64(bit) + 0.5) * nominal)))
	}

	if sample(0) != bus.Low {
		return 0, ErrNoStartBit
	}

	var v uint8
	bit := 1
	for i := range t.Format.DataBits {
		if sample(bit) == bus.High {
			v |= 1 << i
		}
		bit++
	}

	var err error
	if t.Format.Parity != acia.ParityNone {
		if bool(sample(bit)) != t.Format.ParityBit(v) {
			err = ErrParity
		}
		bit++
	}
	for range t.Format.StopBits {
		if sample(bit) != bus.High {
			err = ErrFraming
		}
		bit++
	}
	return v, err
}

// Receive decodes f and writes the character to Out.
func (t *Terminal) Receive(f Frame) error {
	v, err := t.Decode(f)
	if err != nil {
		t.Errors++
		log.ModSim.WarnZ("receive error").
			Hex8("sent", f.Value).
			Hex8("got", v).
			Error("err", err).
			End()
		return fmt.Errorf("frame at %v: %w", f.Start, err)
	}

	t.Received++
	if t.Out != nil {
		if _, err := t.Out.Write([]byte{v}); err != nil {
			return err
		}
	}
	return nil
}
