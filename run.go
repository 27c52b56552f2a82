package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	"aciatx/hw/acia"
	"aciatx/hw/clock"
	"aciatx/hw/gpio"
	"aciatx/log"
	"aciatx/sim"
)

func message(arg string, cfg Config) []byte {
	if arg != "" {
		return []byte(arg)
	}
	return []byte(cfg.Driver.Message)
}

// sendMain drives the real chip: start the clock, configure the chip, then
// send the message forever (or once).
func sendMain(args Send, cfg Config) error {
	if args.Strict {
		cfg.Driver.Strict = true
	}
	setup, err := cfg.Validate()
	if err != nil {
		return err
	}

	b, err := gpio.Open(cfg.Pins, cfg.Polarity)
	if err != nil {
		return err
	}
	defer b.Close()

	seq := acia.NewSequencer(b, time.Sleep, cfg.Timing.Settle.Duration, cfg.Polarity)
	drv := acia.NewDriver(seq, b, setup.Plan, setup.Driver)
	msg := message(args.Message, cfg)

	if args.Once {
		drv.Start()
		if err := drv.Send(msg); err != nil {
			return err
		}
		return b.Err()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return drv.Run(ctx, msg, cfg.Timing.Repeat.Duration, func(n int) error {
		log.ModDrv.DebugZ("message sent").
			Int("count", n).
			End()
		return b.Err()
	})
}

// simReport summarizes a simulation run.
type simReport struct {
	Written  int           // data register writes
	Sent     int           // characters shifted out by the chip
	Lost     int           // characters overwritten before being sent
	Received int           // characters decoded by the terminal
	Errors   int           // frames the terminal could not decode
	Elapsed  time.Duration // virtual time
}

func (r simReport) String() string {
	return fmt.Sprintf("%d written, %d sent, %d lost, %d received, %d errors in %v",
		r.Written, r.Sent, r.Lost, r.Received, r.Errors, r.Elapsed)
}

var errLost = errors.New("characters lost")

// runSim runs the driver against a simulated chip in virtual time. The
// driver and the terminal run in their own goroutines, connected by the
// frames the chip emits, like the two ends of a serial line.
func runSim(args Sim, cfg Config, out io.Writer) (simReport, error) {
	if args.Strict {
		cfg.Driver.Strict = true
	}
	setup, err := cfg.Validate()
	if err != nil {
		return simReport{}, err
	}
	repeat := max(args.Repeat, 1)

	chip := sim.NewChip(cfg.Polarity)
	rec := sim.NewRecorder(cfg.Polarity, chip)
	if args.Trace != nil {
		rec.Trace(args.Trace)
		defer args.Trace.Close()
	}

	seq := acia.NewSequencer(rec, rec.Delay, cfg.Timing.Settle.Duration, cfg.Polarity)
	drv := acia.NewDriver(seq, rec, setup.Plan, setup.Driver)
	msg := message(args.Message, cfg)

	g, ctx := errgroup.WithContext(context.Background())
	frames := make(chan sim.Frame, 64)

	chip.OnFrame = func(f sim.Frame) {
		select {
		case frames <- f:
		case <-ctx.Done():
		}
	}

	g.Go(func() error {
		defer close(frames)

		runctx, cancel := context.WithCancel(ctx)
		defer cancel()

		err := drv.Run(runctx, msg, cfg.Timing.Repeat.Duration, func(n int) error {
			if n == repeat {
				cancel()
			}
			return nil
		})
		// Let the last characters shift out.
		rec.Delay(2 * drv.CharTime())
		return err
	})

	term := &sim.Terminal{Baud: cfg.Serial.Baud, Format: setup.Control.Format(), Out: out}
	g.Go(func() error {
		for f := range frames {
			err := term.Receive(f)
			if err != nil && !errors.Is(err, sim.ErrFraming) && !errors.Is(err, sim.ErrParity) && !errors.Is(err, sim.ErrNoStartBit) {
				return err
			}
		}
		return nil
	})

	err = g.Wait()

	events := rec.Events()
	if args.JSON != nil {
		defer args.JSON.Close()
		if jerr := sim.WriteJSON(args.JSON, events); jerr != nil {
			log.ModSim.ErrorZ("failed to save trace").
				Error("err", jerr).
				End()
		}
	}
	rep := simReport{
		Sent:     len(chip.Sent()),
		Lost:     chip.Lost,
		Received: term.Received,
		Errors:   term.Errors,
		Elapsed:  rec.Now(),
	}
	for _, tr := range sim.Transfers(events, cfg.Polarity) {
		if !tr.Read && tr.Register == acia.DataRegister {
			rep.Written++
		}
	}
	if err != nil {
		return rep, err
	}
	if err := sim.CheckBringUp(events, cfg.Polarity); err != nil {
		return rep, err
	}
	if rep.Lost > 0 {
		return rep, fmt.Errorf("%w: %v", errLost, rep)
	}
	return rep, nil
}

func simMain(args Sim, cfg Config, out *os.File) error {
	rep, err := runSim(args, cfg, out)
	log.ModSim.InfoZ("simulation done").
		Int("written", rep.Written).
		Int("sent", rep.Sent).
		Int("lost", rep.Lost).
		Int("received", rep.Received).
		Int("errors", rep.Errors).
		Duration("elapsed", rep.Elapsed).
		End()

	// Only add to the received characters when a human reads them.
	if isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd()) {
		fmt.Fprintf(out, "\n-- %v\n", rep)
	}
	return err
}

var commonBauds = []uint32{300, 1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200}

// clockMain prints the timer plan of each common bit rate.
func clockMain(args Clock, cfg Config, w io.Writer) error {
	timerHz := cfg.Serial.TimerHz
	if args.TimerHz != 0 {
		timerHz = args.TimerHz
	}
	bits := cfg.Serial.CounterBits
	if args.Bits != 0 {
		bits = args.Bits
	}

	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed)

	fmt.Fprintf(w, "timer %d Hz, %d-bit counter, x%d clock\n\n", timerHz, bits, clock.Oversample)
	fmt.Fprintf(w, "%7s  %6s  %12s  %9s  %s\n", "baud", "top", "output Hz", "error", "registers")
	for _, baud := range commonBauds {
		p, err := clock.NewPlan(timerHz, baud, bits)
		if err != nil {
			bad.Fprintf(w, "%7d  %v\n", baud, err)
			continue
		}
		c := ok
		if baud == cfg.Serial.Baud {
			c = color.New(color.FgGreen, color.Bold)
		}
		c.Fprintf(w, "%7d  %6d  %12.1f  %+8.3f%%  %v\n", baud, p.Top, p.OutputHz(), p.Error()*100, p.Registers())
	}
	return nil
}

// configMain prints the effective configuration, and saves it if asked to.
func configMain(args ConfigCmd, path string, cfg Config, w io.Writer) error {
	if _, err := cfg.Validate(); err != nil {
		log.ModDrv.WarnZ("invalid configuration").
			Error("err", err).
			End()
	}
	if err := WriteConfig(w, cfg); err != nil {
		return err
	}
	if args.Save {
		if err := SaveConfig(path, cfg); err != nil {
			return err
		}
		log.ModDrv.InfoZ("configuration saved").
			String("path", path).
			End()
	}
	return nil
}

// checkMain prints the register transfers of a saved trace and checks the
// chip bring-up order.
func checkMain(args Check, cfg Config, w io.Writer) error {
	f, err := os.Open(args.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	events, err := sim.ReadJSON(f)
	if err != nil {
		return err
	}

	for _, tr := range sim.Transfers(events, cfg.Polarity) {
		fmt.Fprintf(w, "%12v  %v\n", tr.At, tr)
	}
	if err := sim.CheckBringUp(events, cfg.Polarity); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d events, bring-up ok\n", len(events))
	return nil
}

var version = "(devel)"

func printVersion(w io.Writer) {
	v := version
	if bi, ok := debug.ReadBuildInfo(); ok && v == "(devel)" && bi.Main.Version != "" {
		v = bi.Main.Version
	}
	fmt.Fprintf(w, "aciatx %s\n", v)
}
