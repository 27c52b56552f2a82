package sim

import (
	"errors"
	"fmt"
	"time"

	"aciatx/hw/acia"
	"aciatx/hw/bus"
)

// Transfer is a register access decoded from a recorded trace.
type Transfer struct {
	Index    int // index of the enable event in the trace
	At       time.Duration
	Register acia.Register
	Read     bool
	Value    uint8
}

func (t Transfer) String() string {
	dir := "W"
	if t.Read {
		dir = "R"
	}
	return fmt.Sprintf("%s %s %02X", dir, t.Register, t.Value)
}

// Transfers replays the host side of a trace the way the chip decodes it and
// returns the register accesses, in order. Write values are taken from the
// data lines at the enable edge, read values from the samples that follow it.
func Transfers(events []Event, pol bus.Polarity) []Transfer {
	var levels [bus.NumRoles]bus.Level
	for r := range levels {
		levels[r] = pol.Idle(bus.Role(r))
	}

	var (
		out      []Transfer
		selected bool
		selReg   acia.Register
		selRead  bool
		reading  = -1
	)

	for i, ev := range events {
		switch ev.Kind {
		case LineEvent:
			prev := levels[ev.Role]
			levels[ev.Role] = ev.Level
			if prev == ev.Level {
				continue
			}

			switch ev.Role {
			case bus.CS:
				if ev.Level == pol.CSActive {
					selected = true
					selReg = acia.ControlRegister
					if levels[bus.RS] == pol.DataSelect {
						selReg = acia.DataRegister
					}
					selRead = levels[bus.RW] != pol.Write
				}
			case bus.E:
				if ev.Level != pol.EActive {
					reading = -1
					continue
				}
				if !selected {
					continue
				}
				selected = false

				tr := Transfer{Index: i, At: ev.At, Register: selReg, Read: selRead}
				if !selRead {
					for b := range 8 {
						if levels[bus.DataLine(b)] == bus.High {
							tr.Value |= 1 << b
						}
					}
				}
				out = append(out, tr)
				if selRead {
					reading = len(out) - 1
				}
			}

		case SampleEvent:
			if reading >= 0 && ev.Role.IsData() && ev.Level == bus.High {
				out[reading].Value |= 1 << (ev.Role - bus.D0)
			}
		}
	}
	return out
}

// Phase classifies a line event within a write cycle.
type Phase uint8

const (
	PhaseSelect Phase = iota // enable released, R/W and RS set
	PhaseCSOn                // chip select asserted
	PhaseData                // data bus driven
	PhaseCSOff               // chip select released
	PhaseEnable              // enable asserted
)

var phaseNames = [...]string{"select", "cs-on", "data", "cs-off", "enable"}

func (p Phase) String() string { return phaseNames[p] }

// WritePhases is the phase sequence of every register write.
var WritePhases = []Phase{PhaseSelect, PhaseCSOn, PhaseData, PhaseCSOff, PhaseEnable}

// Cycles splits the line events of a trace into bus cycles, each one ending
// with an enable assertion. Trailing events not followed by an enable
// assertion form the last cycle.
func Cycles(events []Event, pol bus.Polarity) [][]Event {
	var (
		cycles [][]Event
		cur    []Event
	)
	for _, ev := range events {
		if ev.Kind != LineEvent || ev.Role == bus.LED || ev.Role == bus.CLK {
			continue
		}
		cur = append(cur, ev)
		if ev.Role == bus.E && ev.Level == pol.EActive {
			cycles = append(cycles, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		cycles = append(cycles, cur)
	}
	return cycles
}

// Phases returns the phase sequence of a cycle, consecutive identical
// phases merged.
func Phases(cycle []Event, pol bus.Polarity) []Phase {
	var phases []Phase
	for _, ev := range cycle {
		if ev.Kind != LineEvent {
			continue
		}

		var p Phase
		switch {
		case ev.Role.IsData():
			p = PhaseData
		case ev.Role == bus.RW, ev.Role == bus.RS:
			p = PhaseSelect
		case ev.Role == bus.CS && ev.Level == pol.CSActive:
			p = PhaseCSOn
		case ev.Role == bus.CS:
			p = PhaseCSOff
		case ev.Role == bus.E && ev.Level == pol.EActive:
			p = PhaseEnable
		case ev.Role == bus.E:
			p = PhaseSelect
		default:
			continue
		}

		if n := len(phases); n == 0 || phases[n-1] != p {
			phases = append(phases, p)
		}
	}
	return phases
}

var ErrBringUp = errors.New("bring-up order violated")

// CheckBringUp verifies that the clock was started before the chip was
// configured, that the chip was configured exactly once (master resets
// aside), and that no control write follows a data write.
func CheckBringUp(events []Event, pol bus.Polarity) error {
	clockAt := -1
	for i, ev := range events {
		if ev.Kind == ClockEvent {
			clockAt = i
			break
		}
	}

	configs, data := 0, 0
	for _, tr := range Transfers(events, pol) {
		if tr.Read {
			continue
		}

		switch tr.Register {
		case acia.ControlRegister:
			ctrl := acia.Control(tr.Value)
			switch {
			case ctrl.IsMasterReset() && (configs > 0 || data > 0):
				return fmt.Errorf("%w: master reset after configuration (event %d)", ErrBringUp, tr.Index)
			case ctrl.IsMasterReset():
				continue
			case clockAt < 0 || tr.Index < clockAt:
				return fmt.Errorf("%w: chip configured before clock started (event %d)", ErrBringUp, tr.Index)
			case data > 0:
				return fmt.Errorf("%w: control write after data (event %d)", ErrBringUp, tr.Index)
			case configs > 0:
				return fmt.Errorf("%w: chip configured more than once (event %d)", ErrBringUp, tr.Index)
			}
			configs++

		case acia.DataRegister:
			if configs == 0 {
				return fmt.Errorf("%w: data write before configuration (event %d)", ErrBringUp, tr.Index)
			}
			data++
		}
	}

	if configs == 0 {
		return fmt.Errorf("%w: chip never configured", ErrBringUp)
	}
	return nil
}
