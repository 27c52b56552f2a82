package sim

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"aciatx/hw/acia"
	"aciatx/hw/bus"
)

var format8N1 = acia.Format{DataBits: 8, Parity: acia.ParityNone, StopBits: 1}

func TestFrameLevelAt(t *testing.T) {
	f := NewFrame('T', format8N1, time.Second, 100*time.Microsecond)

	tests := []struct {
		at   time.Duration
		want bus.Level
	}{
		{-time.Microsecond, bus.High},
		{0, bus.Low},                       // start
		{150 * time.Microsecond, bus.Low},  // bit 0 of 0x54
		{350 * time.Microsecond, bus.High}, // bit 2
		{850 * time.Microsecond, bus.Low},  // bit 7
		{950 * time.Microsecond, bus.High}, // stop
		{2 * time.Millisecond, bus.High},   // idle
	}
	for _, tt := range tests {
		if got := f.LevelAt(tt.at); got != tt.want {
			t.Errorf("LevelAt(%v) = %v, want %v", tt.at, got, tt.want)
		}
	}
}

func TestTerminalTolerance(t *testing.T) {
	const nominal = 104166 * time.Nanosecond // 9600 baud

	tests := []struct {
		name    string
		bitTime time.Duration
		format  acia.Format
		wantErr error
	}{
		{"exact", nominal, format8N1, nil},
		{"16MHz timer", 104 * time.Microsecond, format8N1, nil},
		{"2% fast", nominal * 98 / 100, format8N1, nil},
		{"2% slow", nominal * 102 / 100, format8N1, nil},
		{"even parity", nominal, acia.Format{DataBits: 7, Parity: acia.ParityEven, StopBits: 1}, nil},
		// The stop bit sample lands on data bit 7.
		{"10% slow", nominal * 110 / 100, format8N1, ErrFraming},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			term := Terminal{Baud: 9600, Format: tt.format, Out: &out}

			for _, c := range []byte("TESTACIA") {
				err := term.Receive(NewFrame(c, tt.format, 0, tt.bitTime))
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Receive(%q) = %v, want %v", c, err, tt.wantErr)
				}
			}
			if tt.wantErr == nil && out.String() != "TESTACIA" {
				t.Errorf("received %q", out.String())
			}
		})
	}
}

func TestTerminalParityError(t *testing.T) {
	f7e1 := acia.Format{DataBits: 7, Parity: acia.ParityEven, StopBits: 1}
	term := Terminal{Baud: 9600, Format: f7e1}

	// Sent with odd parity, received with even.
	f := NewFrame('T', acia.Format{DataBits: 7, Parity: acia.ParityOdd, StopBits: 1}, 0, 104*time.Microsecond)
	if _, err := term.Decode(f); !errors.Is(err, ErrParity) {
		t.Errorf("Decode = %v, want %v", err, ErrParity)
	}
	if err := term.Receive(f); err == nil || term.Errors != 1 || term.Received != 0 {
		t.Errorf("Receive = %v, errors %d, received %d", err, term.Errors, term.Received)
	}
}
