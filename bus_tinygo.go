//go:build tinygo

package nrf24

import (
	"machine"
)

// NewMachine returns an uninitialized Device on a configured hardware SPI
// bus. ce and csn are configured as outputs; CSN starts high.
func NewMachine(spi *machine.SPI, ce, csn machine.Pin) *Device {
	ce.Configure(machine.PinConfig{Mode: machine.PinOutput})
	csn.Configure(machine.PinConfig{Mode: machine.PinOutput})
	ce.Low()
	csn.High()
	return New(spi, ce.Set, csn.Set)
}

// NewBitbang returns an uninitialized Device on a bit-banged bus.
func NewBitbang(sck, sdo, sdi, ce, csn machine.Pin) *Device {
	bb := &SPIbb{SCK: sck, SDO: sdo, SDI: sdi}
	bb.Configure()
	ce.Configure(machine.PinConfig{Mode: machine.PinOutput})
	csn.Configure(machine.PinConfig{Mode: machine.PinOutput})
	ce.Low()
	csn.High()
	return New(bb, ce.Set, csn.Set)
}
