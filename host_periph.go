//go:build !tinygo

package nrf24

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// PeriphConfig selects the Linux SPI port and CE pin used by OpenPeriph.
type PeriphConfig struct {
	// SPI port name as known to spireg, e.g. "/dev/spidev0.0" or "SPI0.0".
	// Empty selects the first port found.
	Port string
	// CE pin name as known to gpioreg, e.g. "GPIO25".
	CE string
	// SPI clock. Zero selects 1MHz. The chip accepts up to 10MHz.
	Clock physic.Frequency
}

// DefaultPeriphConfig returns the wiring commonly used on Raspberry Pi
// boards: spidev0.0 with CE on GPIO25.
func DefaultPeriphConfig() PeriphConfig {
	return PeriphConfig{
		Port:  "/dev/spidev0.0",
		CE:    "GPIO25",
		Clock: physic.MegaHertz,
	}
}

// OpenPeriph opens the SPI port and CE pin through periph.io and returns an
// uninitialized Device on them. Chip select is driven by the spidev driver.
// The returned closer releases the SPI port.
func OpenPeriph(cfg PeriphConfig) (*Device, spi.PortCloser, error) {
	_, err := host.Init()
	if err != nil {
		return nil, nil, fmt.Errorf("nrf24: periph host init: %w", err)
	}
	port, err := spireg.Open(cfg.Port)
	if err != nil {
		return nil, nil, fmt.Errorf("nrf24: open SPI port %q: %w", cfg.Port, err)
	}
	clk := cfg.Clock
	if clk == 0 {
		clk = physic.MegaHertz
	}
	c, err := port.Connect(clk, spi.Mode0, 8)
	if err != nil {
		return nil, nil, errjoin(fmt.Errorf("nrf24: SPI connect: %w", err), port.Close())
	}
	ce := gpioreg.ByName(cfg.CE)
	if ce == nil {
		return nil, nil, errjoin(fmt.Errorf("nrf24: CE pin %q not found", cfg.CE), port.Close())
	}
	err = ce.Out(gpio.Low)
	if err != nil {
		return nil, nil, errjoin(fmt.Errorf("nrf24: CE pin: %w", err), port.Close())
	}
	dev := New(periphSPI{conn: c}, func(b bool) { ce.Out(gpio.Level(b)) }, nil)
	return dev, port, nil
}

// periphSPI adapts a periph.io connection to drivers.SPI.
type periphSPI struct {
	conn conn.Conn
}

func (p periphSPI) Tx(w, r []byte) error {
	if w == nil {
		w = make([]byte, len(r))
	}
	if r != nil && len(r) != len(w) {
		return errors.New("nrf24: SPI buffers of differing length")
	}
	return p.conn.Tx(w, r)
}

func (p periphSPI) Transfer(b byte) (byte, error) {
	var r [1]byte
	err := p.conn.Tx([]byte{b}, r[:])
	return r[0], err
}
