package bus

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPinoutRoles(t *testing.T) {
	p := DefaultPinout
	want := []Role{D0, D1, D2, D3, D4, D5, D6, D7, CS, RW, RS, E, CLK}
	if diff := cmp.Diff(want, p.Roles()); diff != "" {
		t.Fatalf("Roles() mismatch (-want +got):\n%s", diff)
	}

	p.LED = "GPIO24"
	if got := p.Roles(); got[len(got)-1] != LED {
		t.Fatalf("LED not bound: %v", got)
	}
}

func TestPinoutValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Pinout)
		wantErr bool
	}{
		{"default", func(*Pinout) {}, false},
		{"with led", func(p *Pinout) { p.LED = "GPIO24" }, false},
		{"missing cs", func(p *Pinout) { p.CS = "" }, true},
		{"missing data", func(p *Pinout) { p.Data[3] = "" }, true},
		{"shared pin", func(p *Pinout) { p.E = p.Data[0] }, true},
		{"shared pin case", func(p *Pinout) { p.LED = "gpio17" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPinout
			tt.modify(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %t", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrPinout) {
				t.Fatalf("Validate() = %v, should wrap ErrPinout", err)
			}
		})
	}
}

func TestLevelText(t *testing.T) {
	for _, s := range []string{"low", "HIGH", "0", "1"} {
		var l Level
		if err := l.UnmarshalText([]byte(s)); err != nil {
			t.Errorf("UnmarshalText(%q) error: %v", s, err)
		}
	}

	var l Level
	if err := l.UnmarshalText([]byte("floating")); err == nil {
		t.Error("UnmarshalText(floating) should fail")
	}

	text, _ := High.MarshalText()
	if string(text) != "high" {
		t.Errorf("MarshalText(High) = %q", text)
	}
}

func TestBit(t *testing.T) {
	for v := range 256 {
		for n := range uint(8) {
			want := Level(v&(1<<n) != 0)
			if got := Bit(uint8(v), n); got != want {
				t.Fatalf("Bit(%02x, %d) = %v, want %v", v, n, got, want)
			}
		}
	}
}

func TestRoleString(t *testing.T) {
	if DataLine(7).String() != "D7" || CLK.String() != "CLK" || Role(99).String() != "Role(99)" {
		t.Fatalf("unexpected role names: %v %v %v", DataLine(7), CLK, Role(99))
	}
}
