package acia

import (
	"fmt"
	"time"

	"aciatx/hw/bus"
	"aciatx/log"
)

// Register is the register-select value of a transfer.
type Register uint8

const (
	ControlRegister Register = iota // control (write) / status (read)
	DataRegister                    // transmit data (write) / receive data (read)
)

func (r Register) String() string {
	if r == DataRegister {
		return "data"
	}
	return "ctrl"
}

// DefaultSettle is the delay between line transitions. The chip needs a few
// hundred nanoseconds; a millisecond works whatever the host speed.
const DefaultSettle = time.Millisecond

// Sequencer performs single register transfers over the parallel bus. It
// keeps no state between transfers.
type Sequencer struct {
	Lines    bus.Lines
	Delay    func(time.Duration)
	Settle   time.Duration
	Polarity bus.Polarity
}

func NewSequencer(lines bus.Lines, delay func(time.Duration), settle time.Duration, pol bus.Polarity) *Sequencer {
	return &Sequencer{
		Lines:    lines,
		Delay:    delay,
		Settle:   settle,
		Polarity: pol,
	}
}

func (s *Sequencer) settle() { s.Delay(s.Settle) }

func (s *Sequencer) rsLevel(r Register) bus.Level {
	if r == DataRegister {
		return s.Polarity.DataSelect
	}
	return !s.Polarity.DataSelect
}

// WriteRegister latches v into the register addressed by r. The transfer is
// open loop: nothing is read back.
func (s *Sequencer) WriteRegister(r Register, v uint8) {
	p := &s.Polarity

	s.Lines.SetLine(bus.E, !p.EActive)
	s.Lines.SetLine(bus.RW, p.Write)
	s.Lines.SetLine(bus.RS, s.rsLevel(r))
	s.Lines.SetLine(bus.CS, p.CSActive)
	s.settle()

	// One line at a time, LSB on D0. The chip ignores the skew since
	// enable has not been asserted yet.
	for i := range 8 {
		s.Lines.SetLine(bus.DataLine(i), bus.Bit(v, uint(i)))
	}

	s.Lines.SetLine(bus.CS, !p.CSActive)
	s.settle()

	// The chip latches the data bus on this edge.
	s.Lines.SetLine(bus.E, p.EActive)
	s.settle()

	log.ModACIA.DebugZ("write").
		Stringer("reg", r).
		Hex8("val", v).
		End()
}

// ReadRegister reads the register addressed by r (status or receive data).
// The Lines must implement bus.DataDirectioner.
func (s *Sequencer) ReadRegister(r Register) uint8 {
	dd, ok := s.Lines.(bus.DataDirectioner)
	if !ok {
		panic(fmt.Sprintf("acia: register read needs a bus.DataDirectioner, have %T", s.Lines))
	}
	p := &s.Polarity

	s.Lines.SetLine(bus.E, !p.EActive)
	s.Lines.SetLine(bus.RW, !p.Write)
	s.Lines.SetLine(bus.RS, s.rsLevel(r))
	dd.SetDataDir(bus.Input)
	s.Lines.SetLine(bus.CS, p.CSActive)
	s.settle()

	s.Lines.SetLine(bus.E, p.EActive)
	s.settle()

	var v uint8
	for i := range 8 {
		if s.Lines.ReadLine(bus.DataLine(i)) == bus.High {
			v |= 1 << i
		}
	}

	s.Lines.SetLine(bus.E, !p.EActive)
	s.Lines.SetLine(bus.CS, !p.CSActive)
	dd.SetDataDir(bus.Output)
	s.Lines.SetLine(bus.RW, p.Write)
	s.settle()

	log.ModACIA.DebugZ("read").
		Stringer("reg", r).
		Hex8("val", v).
		End()
	return v
}

// ConfigureChip writes the control register.
func (s *Sequencer) ConfigureChip(c Control) {
	log.ModACIA.InfoZ("configure").
		Hex8("ctrl", uint8(c)).
		Stringer("mode", c).
		End()
	s.WriteRegister(ControlRegister, uint8(c))
}

// TransmitByte writes v to the transmit data register.
func (s *Sequencer) TransmitByte(v uint8) {
	s.WriteRegister(DataRegister, v)
}

// ReadStatus reads the status register.
func (s *Sequencer) ReadStatus() Status {
	return Status(s.ReadRegister(ControlRegister))
}
