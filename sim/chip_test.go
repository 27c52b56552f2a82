package sim

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"aciatx/hw/acia"
	"aciatx/hw/bus"
	"aciatx/hw/clock"
)

var defaultPlan = clock.MustPlan(16_000_000, 9600, 16)

type bench struct {
	rec  *Recorder
	chip *Chip
	seq  *acia.Sequencer
}

func newBench(settle time.Duration) *bench {
	pol := bus.DefaultPolarity
	chip := NewChip(pol)
	rec := NewRecorder(pol, chip)
	return &bench{
		rec:  rec,
		chip: chip,
		seq:  acia.NewSequencer(rec, rec.Delay, settle, pol),
	}
}

func TestChipTransmit(t *testing.T) {
	b := newBench(time.Millisecond)

	var frames []Frame
	b.chip.OnFrame = func(f Frame) { frames = append(frames, f) }

	b.rec.StartToggle(defaultPlan)
	b.seq.ConfigureChip(acia.DefaultControl)
	if !b.chip.Configured() || b.chip.Config() != acia.DefaultControl {
		t.Fatalf("chip not configured: %v", b.chip.Config())
	}

	// The data write latches at t=5ms (two settles per write).
	b.seq.TransmitByte('A')
	b.rec.Delay(time.Millisecond)

	if diff := cmp.Diff([]byte("A"), b.chip.Sent()); diff != "" {
		t.Fatalf("sent mismatch (-want +got):\n%s", diff)
	}
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}

	f := frames[0]
	if f.Start != 5*time.Millisecond {
		t.Errorf("frame start = %v, want 5ms", f.Start)
	}
	if f.BitTime != 104*time.Microsecond {
		t.Errorf("bit time = %v, want 104µs", f.BitTime)
	}
	// Start bit, 0x41 LSB first, stop bit.
	want := []bus.Level{
		bus.Low,
		bus.High, bus.Low, bus.Low, bus.Low, bus.Low, bus.Low, bus.High, bus.Low,
		bus.High,
	}
	if diff := cmp.Diff(want, f.Bits); diff != "" {
		t.Errorf("frame bits mismatch (-want +got):\n%s", diff)
	}
	if b.chip.Lost != 0 {
		t.Errorf("Lost = %d, want 0", b.chip.Lost)
	}
}

func TestChipOverrun(t *testing.T) {
	b := newBench(0)
	b.rec.StartToggle(defaultPlan)
	b.seq.ConfigureChip(acia.DefaultControl)

	// A goes straight to the shift register, B waits in the data register
	// and C overwrites it.
	for _, c := range []byte("ABC") {
		b.seq.TransmitByte(c)
	}
	b.rec.Delay(10 * time.Millisecond)

	if b.chip.Lost != 1 {
		t.Errorf("Lost = %d, want 1", b.chip.Lost)
	}
	if diff := cmp.Diff([]byte("AC"), b.chip.Sent()); diff != "" {
		t.Errorf("sent mismatch (-want +got):\n%s", diff)
	}
}

func TestChipNeedsConfigAndClock(t *testing.T) {
	t.Run("unconfigured", func(t *testing.T) {
		b := newBench(0)
		b.rec.StartToggle(defaultPlan)
		b.seq.TransmitByte('X')
		b.rec.Delay(10 * time.Millisecond)

		if b.chip.Lost != 1 || len(b.chip.Sent()) != 0 {
			t.Errorf("Lost = %d, sent %q", b.chip.Lost, b.chip.Sent())
		}
	})

	t.Run("no clock", func(t *testing.T) {
		b := newBench(0)
		b.seq.ConfigureChip(acia.DefaultControl)
		b.seq.TransmitByte('X')
		b.rec.Delay(10 * time.Millisecond)
		if len(b.chip.Sent()) != 0 {
			t.Fatalf("sent %q without clock", b.chip.Sent())
		}

		// The pending character goes out once the clock runs.
		b.rec.StartToggle(defaultPlan)
		b.rec.Delay(10 * time.Millisecond)
		if diff := cmp.Diff([]byte("X"), b.chip.Sent()); diff != "" {
			t.Errorf("sent mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestChipStatus(t *testing.T) {
	b := newBench(0)
	b.rec.StartToggle(defaultPlan)

	if st := b.seq.ReadStatus(); st.TxReady() {
		t.Errorf("status before configuration = %v, want TDRE clear", st)
	}

	b.seq.ConfigureChip(acia.DefaultControl)
	if st := b.seq.ReadStatus(); st != acia.TDRE {
		t.Errorf("status after configuration = %v, want %v", st, acia.TDRE)
	}

	b.seq.TransmitByte('A') // shifting
	if st := b.seq.ReadStatus(); !st.TxReady() {
		t.Errorf("status while shifting = %v, want TDRE set", st)
	}
	b.seq.TransmitByte('B') // waiting in the data register
	if st := b.seq.ReadStatus(); st.TxReady() {
		t.Errorf("status with full data register = %v, want TDRE clear", st)
	}

	b.rec.Delay(2 * time.Millisecond)
	if st := b.seq.ReadStatus(); !st.TxReady() {
		t.Errorf("status after shift = %v, want TDRE set", st)
	}

	// Transmit interrupt enabled: IRQ follows TDRE.
	b.seq.ConfigureChip(acia.NewControl(acia.DivideBy16, acia.Word8N1, acia.TxRTSLowIRQ, false))
	if st := b.seq.ReadStatus(); st != acia.TDRE|acia.IRQ {
		t.Errorf("status with tx irq = %v, want %v", st, acia.TDRE|acia.IRQ)
	}
}

func TestChipMasterReset(t *testing.T) {
	b := newBench(0)
	b.rec.StartToggle(defaultPlan)
	b.seq.ConfigureChip(acia.DefaultControl)
	b.seq.ConfigureChip(acia.MasterReset)

	if b.chip.Configured() {
		t.Fatal("chip still configured after master reset")
	}
	b.seq.TransmitByte('A')
	b.rec.Delay(10 * time.Millisecond)
	if len(b.chip.Sent()) != 0 || b.chip.Lost != 1 {
		t.Errorf("sent %q, Lost = %d after master reset", b.chip.Sent(), b.chip.Lost)
	}
}

func TestChipDivisor(t *testing.T) {
	b := newBench(0)

	var frames []Frame
	b.chip.OnFrame = func(f Frame) { frames = append(frames, f) }

	b.rec.StartToggle(defaultPlan)
	b.seq.ConfigureChip(acia.NewControl(acia.DivideBy64, acia.Word7E1, acia.TxRTSLow, false))
	b.seq.TransmitByte('T')
	b.rec.Delay(10 * time.Millisecond)

	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if frames[0].BitTime != 416*time.Microsecond {
		t.Errorf("bit time = %v, want 416µs", frames[0].BitTime)
	}
	if n := len(frames[0].Bits); n != 10 {
		t.Errorf("7E1 frame has %d bits, want 10", n)
	}
}
