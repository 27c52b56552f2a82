package sim

import (
	"math"
	"time"

	"aciatx/hw/acia"
	"aciatx/hw/bus"
	"aciatx/hw/hwio"
	"aciatx/log"
)

// Register addresses as decoded by the chip from RS and R/W.
const (
	addrControl uint8 = 0b00
	addrTxData  uint8 = 0b01
	addrStatus  uint8 = 0b10
	addrRxData  uint8 = 0b11
)

// Chip is a behavioral 6850 transmitter.
//
// The register address (RS, R/W) is captured when chip select becomes
// active and the transfer happens on the next enable assertion: a write
// latches the data bus into the addressed register, a read makes the chip
// drive the data bus until enable is released.
//
// The transmitter has a data register and a shift register. A character
// written while the data register is still full replaces the previous one,
// which is counted in Lost. Nothing shifts out before the chip has been
// configured and its clock started.
type Chip struct {
	Control hwio.Reg8
	Status  hwio.Reg8
	TxData  hwio.Reg8
	RxData  hwio.Reg8

	// OnFrame, if set, is called for each character shifted out.
	OnFrame func(Frame)

	// Lost counts characters overwritten in the transmit data register or
	// written before configuration.
	Lost int

	bank *hwio.Bank
	pol  bus.Polarity

	lines    [bus.NumRoles]bus.Level
	selected bool
	selAddr  uint8
	driving  bool
	dout     uint8

	now        time.Duration
	clockHz    float64
	clockAt    time.Duration
	configured bool
	ctrl       acia.Control

	tdr      uint8
	tdrFull  bool
	tdrAt    time.Duration
	shifting bool
	shiftReg uint8
	shiftAt  time.Duration
	shiftEnd time.Duration
	idleAt   time.Duration

	sent []byte
}

func NewChip(pol bus.Polarity) *Chip {
	c := &Chip{pol: pol}
	c.Control = hwio.Reg8{Name: "CR", Flags: hwio.WriteOnlyFlag, WriteCb: c.writeControl}
	c.Status = hwio.Reg8{Name: "SR", Flags: hwio.ReadOnlyFlag, ReadCb: c.readStatus, PeekCb: c.readStatus}
	c.TxData = hwio.Reg8{Name: "TDR", Flags: hwio.WriteOnlyFlag, WriteCb: c.writeTxData}
	c.RxData = hwio.Reg8{Name: "RDR", Flags: hwio.ReadOnlyFlag}

	c.bank = hwio.NewBank("acia", 4)
	c.bank.Map(addrControl, &c.Control)
	c.bank.Map(addrTxData, &c.TxData)
	c.bank.Map(addrStatus, &c.Status)
	c.bank.Map(addrRxData, &c.RxData)

	for r := range c.lines {
		c.lines[r] = pol.Idle(bus.Role(r))
	}
	return c
}

func (c *Chip) reset(levels [bus.NumRoles]bus.Level) {
	c.lines = levels
}

// Configured reports whether a configuration has been latched since the last
// master reset.
func (c *Chip) Configured() bool { return c.configured }

// Config returns the last configuration written.
func (c *Chip) Config() acia.Control { return c.ctrl }

// Sent returns the characters shifted out so far.
func (c *Chip) Sent() []byte { return append([]byte(nil), c.sent...) }

// ClockHz is the frequency seen on the clock input, 0 if not running.
func (c *Chip) ClockHz() float64 { return c.clockHz }

func (c *Chip) addr() uint8 {
	var a uint8
	if c.lines[bus.RS] == c.pol.DataSelect {
		a |= 0b01
	}
	if c.lines[bus.RW] != c.pol.Write {
		a |= 0b10
	}
	return a
}

func (c *Chip) dataBus() uint8 {
	var v uint8
	for i := range 8 {
		if c.lines[bus.DataLine(i)] == bus.High {
			v |= 1 << i
		}
	}
	return v
}

func (c *Chip) lineChanged(r bus.Role, l bus.Level, now time.Duration) {
	c.advance(now)

	prev := c.lines[r]
	c.lines[r] = l
	if prev == l {
		return
	}

	switch r {
	case bus.CS:
		if l == c.pol.CSActive {
			c.selected = true
			c.selAddr = c.addr()
		}
	case bus.E:
		if l != c.pol.EActive {
			c.driving = false
			return
		}
		if !c.selected {
			return
		}
		c.selected = false
		if c.selAddr&0b10 == 0 {
			c.bank.Write8(c.selAddr, c.dataBus())
		} else {
			c.dout = c.bank.Read8(c.selAddr, false)
			c.driving = true
		}
	}
}

func (c *Chip) dataOut() (uint8, bool) {
	return c.dout, c.driving
}

func (c *Chip) clockStarted(hz float64, now time.Duration) {
	c.advance(now)
	c.clockHz = hz
	c.clockAt = now
	c.advance(now)
}

func (c *Chip) writeControl(_, val uint8) {
	ctrl := acia.Control(val)
	if ctrl.IsMasterReset() {
		log.ModSim.DebugZ("master reset").End()
		c.configured = false
		c.tdrFull = false
		c.shifting = false
		c.idleAt = c.now
		return
	}

	if c.clockHz == 0 {
		log.ModSim.WarnZ("control write without clock").
			Hex8("val", val).
			End()
	}
	c.ctrl = ctrl
	c.configured = true
	log.ModSim.DebugZ("configured").
		Stringer("mode", ctrl).
		End()
	c.advance(c.now)
}

func (c *Chip) writeTxData(_, val uint8) {
	if !c.configured {
		c.Lost++
		log.ModSim.WarnZ("tx write before configuration").
			Hex8("val", val).
			End()
		return
	}
	if c.tdrFull {
		c.Lost++
		log.ModSim.WarnZ("tx data register overwritten").
			Hex8("lost", c.tdr).
			Hex8("val", val).
			End()
	}
	c.tdr = val
	c.tdrFull = true
	c.tdrAt = c.now
	c.advance(c.now)
}

func (c *Chip) readStatus(uint8) uint8 {
	var st acia.Status
	if c.configured && !c.tdrFull {
		st |= acia.TDRE
	}
	// DCD and CTS are tied low: carrier present, clear to send.
	if c.configured && c.ctrl.TxControl() == acia.TxRTSLowIRQ && st.Has(acia.TDRE) {
		st |= acia.IRQ
	}
	return uint8(st)
}

func (c *Chip) canShift() bool {
	return c.configured && c.clockHz > 0 && c.ctrl.Divisor().Ratio() > 0
}

func (c *Chip) bitTime() time.Duration {
	return time.Duration(math.Round(float64(c.ctrl.Divisor().Ratio()) / c.clockHz * float64(time.Second)))
}

func (c *Chip) advance(now time.Duration) {
	for {
		if c.shifting {
			if c.shiftEnd > now {
				break
			}
			c.finishShift()
			continue
		}
		if !c.tdrFull || !c.canShift() {
			break
		}
		c.startShift(max(c.idleAt, c.tdrAt, c.clockAt))
	}
	c.now = now
}

func (c *Chip) startShift(at time.Duration) {
	c.shiftReg = c.tdr
	c.tdrFull = false
	c.shifting = true
	c.shiftAt = at
	c.shiftEnd = at + time.Duration(c.ctrl.Format().FrameBits())*c.bitTime()
}

func (c *Chip) finishShift() {
	c.shifting = false
	c.idleAt = c.shiftEnd
	c.sent = append(c.sent, c.shiftReg)

	f := NewFrame(c.shiftReg, c.ctrl.Format(), c.shiftAt, c.bitTime())
	log.ModSim.DebugZ("frame").
		Hex8("val", c.shiftReg).
		Duration("at", c.shiftAt).
		End()
	if c.OnFrame != nil {
		c.OnFrame(f)
	}
}
