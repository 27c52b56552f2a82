package sim

import (
	"fmt"
	"io"
)

// Tracer writes recorded events as fixed-width text lines, one per event.
type Tracer struct {
	w   io.Writer
	buf []byte
}

func NewTracer(w io.Writer) *Tracer {
	return &Tracer{w: w, buf: make([]byte, 0, 80)}
}

// Write writes the trace line of ev.
func (t *Tracer) Write(ev Event) {
	buf := fmt.Appendf(t.buf[:0], "%8dus %-5s ", ev.At.Microseconds(), ev.Kind)

	switch ev.Kind {
	case LineEvent, SampleEvent:
		buf = fmt.Appendf(buf, "%-3s %s", ev.Role, ev.Level)
	case DirEvent:
		buf = fmt.Appendf(buf, "data %s", ev.Dir)
	case WaitEvent:
		buf = fmt.Append(buf, ev.Wait)
	case ClockEvent:
		buf = fmt.Appendf(buf, "%s %s", ev.Plan.Registers(), ev.Plan)
	}

	buf = append(buf, '\n')
	t.w.Write(buf)
	t.buf = buf
}
