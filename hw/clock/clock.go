// Package clock synthesizes the ACIA transmit/receive clock with a hardware
// timer running in clear-timer-on-compare mode, toggling its output pin on
// every compare match.
//
// With a prescaler of 1 the output frequency is:
//
//	f = timerHz / (2 * (top + 1))
//
// The ACIA divides it by 16, so f must be as close as possible to 16 times
// the bit rate. Integer timer math makes an exact match rare; the resulting
// error is a property of the plan, checked when the plan is made.
package clock

import (
	"errors"
	"fmt"
	"math"
	"time"

	"aciatx/log"
)

// Oversample is the ACIA clock divisor the plans are computed for.
const Oversample = 16

// MaxError is the largest relative clock error accepted for 16x oversampled
// asynchronous recovery. The receiver samples mid-bit, so over a 10-bit
// frame the accumulated drift must stay well below half a bit.
const MaxError = 0.02

var (
	ErrUnachievable   = errors.New("clock frequency unachievable")
	ErrOutOfTolerance = errors.New("clock error out of tolerance")
)

// Plan is a timer configuration producing the 16x clock for a bit rate.
type Plan struct {
	TimerHz     uint64 // timer input clock (no prescaling)
	Baud        uint32 // target bit rate
	CounterBits uint   // timer counter width
	Top         uint32 // compare match value, the toggle count
}

// NewPlan computes the toggle count giving the closest output frequency to
// Oversample*baud. It fails when the count does not fit the counter or the
// achieved error exceeds MaxError: both are design-time problems, a Plan
// that exists can always be started.
func NewPlan(timerHz uint64, baud uint32, counterBits uint) (Plan, error) {
	if timerHz == 0 || baud == 0 || counterBits == 0 || counterBits > 32 {
		return Plan{}, fmt.Errorf("%w: timer %d Hz, %d baud, %d-bit counter", ErrUnachievable, timerHz, baud, counterBits)
	}

	target := uint64(baud) * Oversample
	if float64(timerHz)/2 < float64(target)*(1-MaxError) {
		return Plan{}, fmt.Errorf("%w: %d Hz timer too slow for %d Hz", ErrUnachievable, timerHz, target)
	}
	div := bestDivider(timerHz, target)

	maxTop := uint64(1)<<counterBits - 1
	if div-1 > maxTop {
		return Plan{}, fmt.Errorf("%w: toggle count %d exceeds %d-bit counter", ErrUnachievable, div-1, counterBits)
	}

	p := Plan{
		TimerHz:     timerHz,
		Baud:        baud,
		CounterBits: counterBits,
		Top:         uint32(div - 1),
	}
	if math.Abs(p.Error()) > MaxError {
		return Plan{}, fmt.Errorf("%w: %s", ErrOutOfTolerance, p)
	}
	return p, nil
}

// bestDivider returns the half-period divider d, among the two integers
// around timerHz/(2*target), minimizing |timerHz/(2d) - target| / target.
func bestDivider(timerHz, target uint64) uint64 {
	lo := timerHz / (2 * target)
	hi := lo + 1
	if lo == 0 {
		return hi
	}

	errOf := func(d uint64) float64 {
		return math.Abs(float64(timerHz)/(2*float64(d)) - float64(target))
	}
	if errOf(hi) < errOf(lo) {
		return hi
	}
	return lo
}

// MustPlan is like NewPlan but panics on error. It is meant for plans built
// from constants.
func MustPlan(timerHz uint64, baud uint32, counterBits uint) Plan {
	p, err := NewPlan(timerHz, baud, counterBits)
	if err != nil {
		panic(err)
	}
	return p
}

// TargetHz is the ideal clock frequency.
func (p Plan) TargetHz() float64 {
	return float64(p.Baud) * Oversample
}

// OutputHz is the frequency actually produced by the timer.
func (p Plan) OutputHz() float64 {
	return float64(p.TimerHz) / (2 * float64(uint64(p.Top)+1))
}

// Error is the signed relative error of the output frequency.
func (p Plan) Error() float64 {
	return (p.OutputHz() - p.TargetHz()) / p.TargetHz()
}

// ErrorPPM is the absolute error in parts per million.
func (p Plan) ErrorPPM() uint64 {
	return uint64(math.Round(math.Abs(p.Error()) * 1e6))
}

// BaudRate is the bit rate actually achieved.
func (p Plan) BaudRate() float64 {
	return p.OutputHz() / Oversample
}

// BitTime is the duration of one bit at the achieved rate.
func (p Plan) BitTime() time.Duration {
	return time.Duration(math.Round(float64(time.Second) / p.BaudRate()))
}

func (p Plan) String() string {
	return fmt.Sprintf("top=%d out=%.1fHz target=%.0fHz err=%+.3f%%",
		p.Top, p.OutputHz(), p.TargetHz(), p.Error()*100)
}

// Timer is a hardware timer able to toggle an output pin on compare match.
// Once started it runs on its own; it is never read back.
type Timer interface {
	StartToggle(p Plan)
}

// Start programs t with p. The clock then runs autonomously for the rest of
// the process lifetime.
func Start(t Timer, p Plan) {
	log.ModClock.InfoZ("starting clock").
		Uint("top", uint64(p.Top)).
		String("out", fmt.Sprintf("%.1fHz", p.OutputHz())).
		String("err", fmt.Sprintf("%+.3f%%", p.Error()*100)).
		Stringer("regs", p.Registers()).
		End()
	t.StartToggle(p)
}
