// Package sim provides a simulated 6850 and the tooling to record and
// analyze bus traffic without hardware.
package sim

import (
	"io"
	"time"

	"aciatx/hw/bus"
	"aciatx/hw/clock"
	"aciatx/log"
)

type EventKind uint8

const (
	LineEvent   EventKind = iota // host drove a line
	SampleEvent                  // host sampled a line
	DirEvent                     // data bus direction change
	WaitEvent                    // host delay
	ClockEvent                   // timer programmed
)

var eventKindNames = [...]string{"set", "get", "dir", "wait", "clock"}

func (k EventKind) String() string { return eventKindNames[k] }

// Event is one host action on the bus, timestamped in virtual time.
type Event struct {
	Kind  EventKind
	At    time.Duration
	Role  bus.Role
	Level bus.Level
	Dir   bus.Direction
	Wait  time.Duration
	Plan  clock.Plan
}

// Recorder is a simulated bus. It records every host action and forwards
// line activity to an optional Chip. Time is virtual: Delay advances it
// without sleeping.
type Recorder struct {
	chip   *Chip
	pol    bus.Polarity
	trace  *Tracer
	events []Event
	now    time.Duration
	levels [bus.NumRoles]bus.Level
	dir    bus.Direction
}

// NewRecorder returns a Recorder with every line at its idle level. chip
// may be nil.
func NewRecorder(pol bus.Polarity, chip *Chip) *Recorder {
	r := &Recorder{chip: chip, pol: pol}
	for role := range r.levels {
		r.levels[role] = pol.Idle(bus.Role(role))
	}
	if chip != nil {
		chip.reset(r.levels)
	}
	return r
}

// Trace writes each event to w as it is recorded.
func (r *Recorder) Trace(w io.Writer) {
	if w == nil {
		r.trace = nil
		return
	}
	r.trace = NewTracer(w)
}

func (r *Recorder) record(ev Event) {
	ev.At = r.now
	r.events = append(r.events, ev)
	if r.trace != nil {
		r.trace.Write(ev)
	}
}

func (r *Recorder) SetLine(role bus.Role, l bus.Level) {
	log.ModBus.DebugZ("set").
		Stringer("line", role).
		Stringer("level", l).
		Duration("at", r.now).
		End()
	r.record(Event{Kind: LineEvent, Role: role, Level: l})
	r.levels[role] = l
	if r.chip != nil {
		r.chip.lineChanged(role, l, r.now)
	}
}

func (r *Recorder) ReadLine(role bus.Role) bus.Level {
	l := r.levels[role]
	if r.chip != nil && role.IsData() && r.dir == bus.Input {
		if v, ok := r.chip.dataOut(); ok {
			l = bus.Bit(v, uint(role-bus.D0))
		}
	}
	r.record(Event{Kind: SampleEvent, Role: role, Level: l})
	return l
}

func (r *Recorder) SetDataDir(d bus.Direction) {
	r.record(Event{Kind: DirEvent, Dir: d})
	r.dir = d
}

// Delay advances virtual time by d.
func (r *Recorder) Delay(d time.Duration) {
	r.record(Event{Kind: WaitEvent, Wait: d})
	r.now += d
	if r.chip != nil {
		r.chip.advance(r.now)
	}
}

// StartToggle implements clock.Timer.
func (r *Recorder) StartToggle(p clock.Plan) {
	r.record(Event{Kind: ClockEvent, Plan: p})
	if r.chip != nil {
		r.chip.clockStarted(p.OutputHz(), r.now)
	}
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	return append([]Event(nil), r.events...)
}

// Reset forgets the recorded events. Line levels and time are kept.
func (r *Recorder) Reset() {
	r.events = r.events[:0]
}

func (r *Recorder) Now() time.Duration { return r.now }

// Level returns the level the host last drove on role.
func (r *Recorder) Level(role bus.Role) bus.Level { return r.levels[role] }
