// Package gpio drives the ACIA bus and clock over host GPIO pins, through
// periph.io.
package gpio

import (
	"errors"
	"fmt"
	"math"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"aciatx/hw/bus"
	"aciatx/hw/clock"
	"aciatx/log"
)

var ErrNoPin = errors.New("no such pin")

// Lookup resolves a pin name to a pin.
type Lookup func(name string) gpio.PinIO

// Bus implements bus.Lines, bus.DataDirectioner and clock.Timer over GPIO
// pins. Pin errors don't interrupt the caller: the first one is logged and
// kept, see Err.
type Bus struct {
	pins [bus.NumRoles]gpio.PinIO
	pol  bus.Polarity
	dir  bus.Direction
	err  error
}

// Open initializes the host drivers and opens the bus on the pins named by
// pinout.
func Open(pinout bus.Pinout, pol bus.Polarity) (*Bus, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	for _, f := range state.Failed {
		log.ModGPIO.Debugf("driver %s failed: %v", f.D, f.Err)
	}
	return New(pinout, pol, gpioreg.ByName)
}

// New opens the bus on the pins resolved by lookup. Every bound line is
// configured as an output at its idle level, once.
func New(pinout bus.Pinout, pol bus.Polarity, lookup Lookup) (*Bus, error) {
	if err := pinout.Validate(); err != nil {
		return nil, err
	}

	b := &Bus{pol: pol}
	for _, r := range pinout.Roles() {
		name := pinout.Pin(r)
		p := lookup(name)
		if p == nil {
			return nil, fmt.Errorf("%v: %w: %s", r, ErrNoPin, name)
		}

		if r != bus.CLK {
			if err := p.Out(gpio.Level(pol.Idle(r))); err != nil {
				return nil, fmt.Errorf("%v on %s: %w", r, name, err)
			}
		}
		b.pins[r] = p

		log.ModGPIO.DebugZ("pin bound").
			Stringer("role", r).
			String("pin", p.Name()).
			Stringer("idle", pol.Idle(r)).
			End()
	}
	return b, nil
}

func (b *Bus) fail(op string, r bus.Role, err error) {
	if err == nil || b.err != nil {
		return
	}
	b.err = fmt.Errorf("%s %v: %w", op, r, err)
	log.ModGPIO.ErrorZ("pin error").
		String("op", op).
		Stringer("role", r).
		Error("err", err).
		End()
}

// Err returns the first pin error, if any.
func (b *Bus) Err() error { return b.err }

// SetLine drives r to l. Unbound lines (LED) are ignored.
func (b *Bus) SetLine(r bus.Role, l bus.Level) {
	p := b.pins[r]
	if p == nil {
		return
	}
	log.ModBus.DebugZ("set").
		Stringer("line", r).
		Stringer("level", l).
		End()
	b.fail("set", r, p.Out(gpio.Level(l)))
}

func (b *Bus) ReadLine(r bus.Role) bus.Level {
	p := b.pins[r]
	if p == nil {
		return bus.Low
	}
	return bus.Level(p.Read())
}

// SetDataDir turns the data bus around. Back to output, the lines are
// driven low.
func (b *Bus) SetDataDir(d bus.Direction) {
	if d == b.dir {
		return
	}
	b.dir = d
	for i := range 8 {
		r := bus.DataLine(i)
		p := b.pins[r]
		if d == bus.Input {
			b.fail("input", r, p.In(gpio.PullNoChange, gpio.NoEdge))
		} else {
			b.fail("output", r, p.Out(gpio.Low))
		}
	}
}

// Frequency converts a frequency in Hertz to a periph frequency.
func Frequency(hz float64) physic.Frequency {
	return physic.Frequency(math.Round(hz * float64(physic.Hertz)))
}

// StartToggle outputs a square wave at the plan output frequency on the
// clock pin. The pin driver picks the hardware timer.
func (b *Bus) StartToggle(p clock.Plan) {
	f := Frequency(p.OutputHz())
	log.ModGPIO.InfoZ("clock output").
		Stringer("freq", f).
		End()
	b.fail("pwm", bus.CLK, b.pins[bus.CLK].PWM(gpio.DutyHalf, f))
}

// Close halts every pin.
func (b *Bus) Close() error {
	var errs []error
	for r, p := range b.pins {
		if p == nil {
			continue
		}
		if err := p.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("%v: %w", bus.Role(r), err))
		}
	}
	return errors.Join(errs...)
}
