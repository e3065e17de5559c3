//go:build tinygo

package nrf24

import (
	"device"
	"errors"
	"machine"
)

// SPIbb is a bit-banged SPI bus fixed to mode 0 (CPOL=0, CPHA=0), MSB first,
// which is the only mode the nRF24L01 supports. It is useful on boards whose
// hardware SPI is taken or routed to other pins.
type SPIbb struct {
	SCK machine.Pin
	SDO machine.Pin // MOSI.
	SDI machine.Pin // MISO.
	// Busy loop iterations per quarter clock cycle.
	Delay uint32
}

// Configure sets SCK and SDO as outputs driven low and SDI as input.
func (s *SPIbb) Configure() {
	s.SCK.Configure(machine.PinConfig{Mode: machine.PinOutput})
	s.SDO.Configure(machine.PinConfig{Mode: machine.PinOutput})
	s.SDI.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	s.SCK.Low()
	s.SDO.Low()
	if s.Delay == 0 {
		s.Delay = 1
	}
}

// Tx matches the signature of machine.SPI.Tx. Either buffer may be nil;
// zeros are shifted out when w is nil.
func (s *SPIbb) Tx(w, r []byte) error {
	switch {
	case len(w) == len(r):
		for i, b := range w {
			r[i] = s.transfer(b)
		}
	case r == nil:
		for _, b := range w {
			s.transfer(b)
		}
	case w == nil:
		for i := range r {
			r[i] = s.transfer(0)
		}
	default:
		return errors.New("nrf24: SPI buffer length mismatch")
	}
	return nil
}

// Transfer matches the signature of machine.SPI.Transfer.
func (s *SPIbb) Transfer(b byte) (out byte, _ error) {
	return s.transfer(b), nil
}

//go:inline
func (s *SPIbb) transfer(b byte) (out byte) {
	out |= b2u8(s.bitTransfer(b&(1<<7) != 0)) << 7
	out |= b2u8(s.bitTransfer(b&(1<<6) != 0)) << 6
	out |= b2u8(s.bitTransfer(b&(1<<5) != 0)) << 5
	out |= b2u8(s.bitTransfer(b&(1<<4) != 0)) << 4
	out |= b2u8(s.bitTransfer(b&(1<<3) != 0)) << 3
	out |= b2u8(s.bitTransfer(b&(1<<2) != 0)) << 2
	out |= b2u8(s.bitTransfer(b&(1<<1) != 0)) << 1
	out |= b2u8(s.bitTransfer(b&1 != 0))
	return out
}

// bitTransfer sets SDO while SCK is low and samples SDI on the rising edge.
//
//go:inline
func (s *SPIbb) bitTransfer(b bool) bool {
	s.SDO.Set(b)
	s.delay()
	s.delay()
	s.SCK.High()
	s.delay()
	in := s.SDI.Get()
	s.delay()
	s.SCK.Low()
	return in
}

// delay is a quarter clock cycle.
//
//go:inline
func (s *SPIbb) delay() {
	for i := uint32(0); i < s.Delay; i++ {
		device.Asm("nop")
	}
}

//go:inline
func b2u8(b bool) byte {
	if b {
		return 1
	}
	return 0
}
