//go:build pico && !nrfnopio

package nrf24

import (
	"machine"

	pio "github.com/tinygo-org/pio/rp2-pio"
	"github.com/tinygo-org/pio/rp2-pio/piolib"
)

// NewPicoPIO returns an uninitialized Device on an SPI bus implemented by a
// PIO0 state machine, leaving both hardware SPI peripherals free. Any GPIO
// can serve as sck, sdo and sdi. baud is the SPI clock in Hz.
func NewPicoPIO(sck, sdo, sdi, ce, csn machine.Pin, baud uint32) (*Device, error) {
	ce.Configure(machine.PinConfig{Mode: machine.PinOutput})
	csn.Configure(machine.PinConfig{Mode: machine.PinOutput})
	ce.Low()
	csn.High()
	sm, err := pio.PIO0.ClaimStateMachine()
	if err != nil {
		return nil, err
	}
	spi, err := piolib.NewSPI(sm, machine.SPIConfig{
		Frequency: baud,
		SCK:       sck,
		SDO:       sdo,
		SDI:       sdi,
		Mode:      0,
	})
	if err != nil {
		return nil, err
	}
	return New(spi, ce.Set, csn.Set), nil
}
