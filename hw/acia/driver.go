package acia

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aciatx/hw/bus"
	"aciatx/hw/clock"
	"aciatx/log"
)

var (
	ErrNotStarted = errors.New("driver not started")
	ErrTxTimeout  = errors.New("transmitter not ready")
)

// TimeoutError reports that the transmit data register never emptied while
// waiting to send the byte at Index.
type TimeoutError struct {
	Index  int
	Byte   uint8
	Polls  int
	Status Status
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("byte %d (%02x): %v after %d polls (status %v)", e.Index, e.Byte, ErrTxTimeout, e.Polls, e.Status)
}

func (e *TimeoutError) Unwrap() error { return ErrTxTimeout }

const DefaultMaxPolls = 100

type Config struct {
	Control   Control
	CharDelay time.Duration // delay after each character

	// MasterReset writes the master reset code before the configuration.
	MasterReset bool

	// Strict polls the status register before each character and gives up
	// after MaxPolls reads without TDRE. The default, open-loop mode relies
	// on CharDelay exceeding the character time instead.
	Strict   bool
	MaxPolls int

	// LED toggles the status LED line after each message sent by Run.
	LED bool
}

// Driver brings the chip up and transmits messages.
type Driver struct {
	seq   *Sequencer
	timer clock.Timer
	plan  clock.Plan
	cfg   Config

	started bool
	led     bus.Level
}

func NewDriver(seq *Sequencer, timer clock.Timer, plan clock.Plan, cfg Config) *Driver {
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = DefaultMaxPolls
	}
	return &Driver{
		seq:   seq,
		timer: timer,
		plan:  plan,
		cfg:   cfg,
	}
}

// Start starts the clock then configures the chip, which needs a running
// clock to accept the configuration. Only the first call has an effect.
func (d *Driver) Start() {
	if d.started {
		log.ModACIA.WarnZ("driver already started").End()
		return
	}

	clock.Start(d.timer, d.plan)
	if d.cfg.MasterReset {
		d.seq.ConfigureChip(MasterReset)
	}
	d.seq.ConfigureChip(d.cfg.Control)
	d.started = true
}

func (d *Driver) Started() bool { return d.started }

// CharTime is the time the chip needs to shift one character out.
func (d *Driver) CharTime() time.Duration {
	bits := d.cfg.Control.Format().FrameBits()
	return time.Duration(bits) * d.plan.BitTime() * time.Duration(d.cfg.Control.Divisor().Ratio()) / clock.Oversample
}

// Send transmits msg, one data register write per byte. In open-loop mode
// the only possible error is ErrNotStarted.
func (d *Driver) Send(msg []byte) error {
	if !d.started {
		return ErrNotStarted
	}

	for i, b := range msg {
		if d.cfg.Strict {
			if err := d.waitTxReady(i, b); err != nil {
				return err
			}
		}
		d.seq.TransmitByte(b)
		d.seq.Delay(d.cfg.CharDelay)
	}

	log.ModACIA.DebugZ("message sent").
		Int("len", len(msg)).
		End()
	return nil
}

func (d *Driver) waitTxReady(idx int, b uint8) error {
	var st Status
	for polls := 1; polls <= d.cfg.MaxPolls; polls++ {
		st = d.seq.ReadStatus()
		if st.TxReady() {
			return nil
		}
	}

	err := &TimeoutError{Index: idx, Byte: b, Polls: d.cfg.MaxPolls, Status: st}
	log.ModACIA.ErrorZ("transmitter stuck").
		Error("err", err).
		End()
	return err
}

func (d *Driver) toggleLED() {
	d.led = !d.led
	d.seq.Lines.SetLine(bus.LED, d.led)
}

// Run starts the driver if needed, then sends msg every period until ctx is
// done. sent, when not nil, is called after each message with the number of
// messages sent so far; a non-nil error from it stops the loop.
func (d *Driver) Run(ctx context.Context, msg []byte, every time.Duration, sent func(n int) error) error {
	if !d.started {
		d.Start()
	}

	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := d.Send(msg); err != nil {
			return err
		}
		if d.cfg.LED {
			d.toggleLED()
		}
		if sent != nil {
			if err := sent(n); err != nil {
				return err
			}
		}
		d.seq.Delay(every)
	}
}
