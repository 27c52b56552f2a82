package bus

import (
	"errors"
	"fmt"
	"strings"
)

// Pinout binds every bus role to a physical pin name, once and for all. Pin
// names are those of the GPIO backend (e.g. "GPIO17" on a Raspberry Pi).
type Pinout struct {
	Data [8]string `toml:"data"`
	CS   string    `toml:"cs"`
	RW   string    `toml:"rw"`
	RS   string    `toml:"rs"`
	E    string    `toml:"e"`
	CLK  string    `toml:"clk"`
	LED  string    `toml:"led,omitempty"` // optional
}

var DefaultPinout = Pinout{
	Data: [8]string{"GPIO5", "GPIO6", "GPIO13", "GPIO19", "GPIO26", "GPIO16", "GPIO20", "GPIO21"},
	CS:   "GPIO17",
	RW:   "GPIO27",
	RS:   "GPIO22",
	E:    "GPIO23",
	CLK:  "GPIO18",
}

// Pin returns the pin name bound to r, or the empty string if r is unbound.
func (p *Pinout) Pin(r Role) string {
	switch {
	case r.IsData():
		return p.Data[r-D0]
	case r == CS:
		return p.CS
	case r == RW:
		return p.RW
	case r == RS:
		return p.RS
	case r == E:
		return p.E
	case r == CLK:
		return p.CLK
	case r == LED:
		return p.LED
	}
	return ""
}

// Roles returns the roles bound to a pin, in Role order.
func (p *Pinout) Roles() []Role {
	roles := make([]Role, 0, NumRoles)
	for r := Role(0); int(r) < NumRoles; r++ {
		if p.Pin(r) != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

var ErrPinout = errors.New("invalid pinout")

// Validate checks that every mandatory role is bound and that no pin is
// shared between two roles.
func (p *Pinout) Validate() error {
	used := make(map[string]Role)
	var errs []error
	for r := Role(0); int(r) < NumRoles; r++ {
		pin := p.Pin(r)
		if pin == "" {
			if r != LED {
				errs = append(errs, fmt.Errorf("%w: %v is not bound", ErrPinout, r))
			}
			continue
		}
		key := strings.ToUpper(pin)
		if other, ok := used[key]; ok {
			errs = append(errs, fmt.Errorf("%w: %v and %v share pin %s", ErrPinout, other, r, pin))
			continue
		}
		used[key] = r
	}
	return errors.Join(errs...)
}

// Polarity gives the electrical level of each logical bus state.
type Polarity struct {
	CSActive   Level `toml:"cs_active"` // chip addressed
	EActive    Level `toml:"e_active"`  // enable asserted
	Write      Level `toml:"rw_write"`  // R/W level for a write cycle
	DataSelect Level `toml:"rs_data"`   // RS level addressing the data registers
}

// DefaultPolarity matches a 6850 with CS0/CS1 tied high and /CS2 driven.
var DefaultPolarity = Polarity{
	CSActive:   Low,
	EActive:    High,
	Write:      Low,
	DataSelect: High,
}

// Idle returns the level a line rests at between transfers: chip not
// addressed, enable released, write cycle selected, everything else low.
func (p Polarity) Idle(r Role) Level {
	switch r {
	case CS:
		return !p.CSActive
	case E:
		return !p.EActive
	case RW:
		return p.Write
	}
	return Low
}

func (l Level) MarshalText() ([]byte, error) {
	if l {
		return []byte("high"), nil
	}
	return []byte("low"), nil
}

func (l *Level) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "high", "1":
		*l = High
	case "low", "0":
		*l = Low
	default:
		return fmt.Errorf("invalid level %q, must be low|high", text)
	}
	return nil
}
