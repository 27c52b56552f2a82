package sim

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/go-faster/jx"

	"aciatx/hw/bus"
)

// WriteJSON writes events as JSON lines, one object per event. Traces
// written this way can be analyzed later with ReadJSON.
func WriteJSON(w io.Writer, events []Event) error {
	var e jx.Encoder
	for _, ev := range events {
		e.Reset()
		encodeEvent(&e, ev)
		e.RawStr("\n")
		if _, err := e.WriteTo(w); err != nil {
			return err
		}
	}
	return nil
}

func encodeEvent(e *jx.Encoder, ev Event) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("at", func(e *jx.Encoder) { e.Int64(int64(ev.At)) })
		e.Field("kind", func(e *jx.Encoder) { e.Str(ev.Kind.String()) })

		switch ev.Kind {
		case LineEvent, SampleEvent:
			e.Field("role", func(e *jx.Encoder) { e.Str(ev.Role.String()) })
			e.Field("level", func(e *jx.Encoder) { e.Bool(bool(ev.Level)) })
		case DirEvent:
			e.Field("dir", func(e *jx.Encoder) { e.Str(ev.Dir.String()) })
		case WaitEvent:
			e.Field("wait", func(e *jx.Encoder) { e.Int64(int64(ev.Wait)) })
		case ClockEvent:
			e.Field("timer_hz", func(e *jx.Encoder) { e.UInt64(ev.Plan.TimerHz) })
			e.Field("baud", func(e *jx.Encoder) { e.UInt32(ev.Plan.Baud) })
			e.Field("counter_bits", func(e *jx.Encoder) { e.UInt(ev.Plan.CounterBits) })
			e.Field("top", func(e *jx.Encoder) { e.UInt32(ev.Plan.Top) })
		}
	})
}

// ReadJSON reads a trace written by WriteJSON.
func ReadJSON(r io.Reader) ([]Event, error) {
	var events []Event

	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		ev, err := decodeEvent(jx.DecodeBytes(sc.Bytes()))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func decodeEvent(d *jx.Decoder) (Event, error) {
	var ev Event
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "at":
			var v int64
			v, err = d.Int64()
			ev.At = time.Duration(v)
		case "kind":
			var s string
			if s, err = d.Str(); err == nil {
				ev.Kind, err = parseEventKind(s)
			}
		case "role":
			var s string
			if s, err = d.Str(); err == nil {
				ev.Role, err = parseRole(s)
			}
		case "level":
			var v bool
			v, err = d.Bool()
			ev.Level = bus.Level(v)
		case "dir":
			var s string
			if s, err = d.Str(); err == nil && s == bus.Input.String() {
				ev.Dir = bus.Input
			}
		case "wait":
			var v int64
			v, err = d.Int64()
			ev.Wait = time.Duration(v)
		case "timer_hz":
			ev.Plan.TimerHz, err = d.UInt64()
		case "baud":
			ev.Plan.Baud, err = d.UInt32()
		case "counter_bits":
			ev.Plan.CounterBits, err = d.UInt()
		case "top":
			ev.Plan.Top, err = d.UInt32()
		default:
			err = d.Skip()
		}
		return err
	})
	return ev, err
}

func parseEventKind(s string) (EventKind, error) {
	for k, name := range eventKindNames {
		if name == s {
			return EventKind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", s)
}

func parseRole(s string) (bus.Role, error) {
	for r := bus.Role(0); int(r) < bus.NumRoles; r++ {
		if r.String() == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}
