package nrf24

import (
	"time"

	"github.com/soypat/nrf24/reg"
	"tinygo.org/x/drivers"
)

type outputPin func(bool)

// spibus frames nRF24L01 SPI transactions. Every transaction is a single
// full-duplex Tx so buses that drive chip select in hardware (Linux spidev)
// frame it on their own; csn is nil in that case.
type spibus struct {
	spi    drivers.SPI
	csn    outputPin
	settle time.Duration
	sleep  func(time.Duration)
	// Command byte plus largest data phase.
	wbuf [1 + reg.MaxPayload]byte
	rbuf [1 + reg.MaxPayload]byte
}

// transact sends cmd followed by w and receives into r. The data phase is
// max(len(w), len(r)) bytes long and is padded with NOPs past len(w).
// The first byte shifted out by the chip on any transaction is STATUS,
// which is returned.
func (b *spibus) transact(cmd uint8, w, r []byte) (Status, error) {
	n := max(len(w), len(r))
	if n > reg.MaxPayload {
		return 0, errBusOverflow
	}
	b.wbuf[0] = cmd
	copy(b.wbuf[1:], w)
	for i := 1 + len(w); i <= n; i++ {
		b.wbuf[i] = reg.NOP
	}
	b.csEnable(true)
	err := b.spi.Tx(b.wbuf[:1+n], b.rbuf[:1+n])
	b.csEnable(false)
	if r != nil {
		copy(r, b.rbuf[1:1+n])
	}
	return Status(b.rbuf[0]), err
}

// csEnable asserts (drives low) chip select when b is true.
func (b *spibus) csEnable(enable bool) {
	if b.csn != nil {
		b.csn(!enable)
	}
	if b.settle > 0 {
		b.sleep(b.settle)
	}
}
