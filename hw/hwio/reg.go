package hwio

import (
	"fmt"

	"aciatx/log"
)

type RWFlags uint8

const (
	ReadWriteFlag RWFlags = 0
	ReadOnlyFlag  RWFlags = (1 << iota)
	WriteOnlyFlag
)

// BankIO8 is an 8-bit register seen from the bus. If peek is true, the read
// must not have side effects (tracing, debugging).
type BankIO8 interface {
	Read8(peek bool) uint8
	Write8(val uint8)
}

type Reg8 struct {
	Name   string
	Value  uint8
	RoMask uint8

	Flags   RWFlags
	ReadCb  func(val uint8) uint8
	PeekCb  func(val uint8) uint8
	WriteCb func(old uint8, val uint8)
}

func (reg Reg8) String() string {
	s := fmt.Sprintf("%s{%02x", reg.Name, reg.Value)
	if reg.ReadCb != nil {
		s += ",r!"
	}
	if reg.PeekCb != nil {
		s += ",p!"
	}
	if reg.WriteCb != nil {
		s += ",w!"
	}
	return s + "}"
}

func (reg *Reg8) write(val uint8) {
	old := reg.Value
	reg.Value = (reg.Value & reg.RoMask) | (val &^ reg.RoMask)
	if reg.WriteCb != nil {
		reg.WriteCb(old, reg.Value)
	}
}

func (reg *Reg8) Write8(val uint8) {
	if reg.Flags&ReadOnlyFlag != 0 {
		log.ModHwIo.ErrorZ("invalid Write8 to readonly reg").
			String("name", reg.Name).
			Hex8("val", val).
			End()
		return
	}
	reg.write(val)
}

func (reg *Reg8) Read8(peek bool) uint8 {
	if reg.Flags&WriteOnlyFlag != 0 {
		if !peek {
			log.ModHwIo.ErrorZ("invalid Read8 from writeonly reg").
				String("name", reg.Name).
				End()
		}
		return 0
	}
	if peek {
		if reg.PeekCb != nil {
			return reg.PeekCb(reg.Value)
		}
		return reg.Value
	}
	if reg.ReadCb != nil {
		return reg.ReadCb(reg.Value)
	}
	return reg.Value
}

// Bank is a tiny register file indexed by a small address, the way a
// peripheral decodes its register-select pins.
type Bank struct {
	Name string

	slots []BankIO8
}

func NewBank(name string, size int) *Bank {
	return &Bank{Name: name, slots: make([]BankIO8, size)}
}

// Map maps io at addr. Mapping twice at the same address is a wiring error.
func (b *Bank) Map(addr uint8, io BankIO8) {
	if int(addr) >= len(b.slots) {
		panic(fmt.Errorf("%s: address %d out of bank (size %d)", b.Name, addr, len(b.slots)))
	}
	if b.slots[addr] != nil {
		panic(fmt.Errorf("%s: address %d already mapped", b.Name, addr))
	}
	b.slots[addr] = io
}

func (b *Bank) io(addr uint8) BankIO8 {
	if int(addr) >= len(b.slots) {
		return nil
	}
	return b.slots[addr]
}

func (b *Bank) Read8(addr uint8, peek bool) uint8 {
	io := b.io(addr)
	if io == nil {
		if !peek {
			log.ModHwIo.ErrorZ("unmapped Read8").
				String("bank", b.Name).
				Hex8("addr", addr).
				End()
		}
		return 0
	}
	return io.Read8(peek)
}

func (b *Bank) Write8(addr uint8, val uint8) {
	io := b.io(addr)
	if io == nil {
		log.ModHwIo.ErrorZ("unmapped Write8").
			String("bank", b.Name).
			Hex8("addr", addr).
			Hex8("val", val).
			End()
		return
	}
	io.Write8(val)
}
