package sim

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"aciatx/hw/acia"
	"aciatx/hw/bus"
	"aciatx/hw/clock"
)

func TestTraceFormat(t *testing.T) {
	want := []string{
		`       0us clock TCCRA=40 TCCRB=09 OCRA=0033 top=51 out=153846.2Hz target=153600Hz err=+0.160%`,
		`       0us set   E   Low`,
		`       0us set   RW  Low`,
		`       0us set   RS  Low`,
		`       0us set   CS  Low`,
		`       0us wait  1ms`,
		`    1000us set   D0  High`,
		`    1000us set   D1  Low`,
		`    1000us set   D2  High`,
		`    1000us set   D3  Low`,
		`    1000us set   D4  High`,
		`    1000us set   D5  Low`,
		`    1000us set   D6  Low`,
		`    1000us set   D7  Low`,
		`    1000us set   CS  High`,
		`    1000us wait  1ms`,
		`    2000us set   E   High`,
		`    2000us wait  1ms`,
		`    3000us dir   data in`,
		`    3000us get   D0  High`,
	}

	var out bytes.Buffer

	rec := NewRecorder(bus.DefaultPolarity, nil)
	rec.Trace(&out)

	rec.StartToggle(clock.MustPlan(16_000_000, 9600, 16))
	seq := acia.NewSequencer(rec, rec.Delay, time.Millisecond, bus.DefaultPolarity)
	seq.WriteRegister(acia.ControlRegister, 0x15)
	rec.SetDataDir(bus.Input)
	rec.ReadLine(bus.D0)

	wantstr := strings.Join(want, "\n") + "\n"
	if out.String() != wantstr {
		t.Fatalf("trace differs\ngot:\n%s\nwant:\n%s\n", out.String(), wantstr)
	}

	if n := len(rec.Events()); n != len(want) {
		t.Errorf("recorded %d events, want %d", n, len(want))
	}
}
