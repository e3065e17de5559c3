package nrf24

import (
	"github.com/soypat/nrf24/reg"
)

// PowerUpRx puts the chip in PRX mode and starts listening. The RX FIFO is
// flushed and latched interrupts are cleared first.
func (d *Device) PowerUpRx() error {
	err := d.acquire()
	defer d.release()
	if err != nil {
		return err
	}
	d.ce(false)
	err = d.flushRx()
	if err != nil {
		return err
	}
	err = d.clearInterrupts()
	if err != nil {
		return err
	}
	err = d.write8(reg.CONFIG, baseConfig|1<<reg.PWR_UP|1<<reg.PRIM_RX)
	if err != nil {
		return err
	}
	d.ce(true)
	return nil
}

// DataReady reports whether a payload is waiting. RX_DR is checked first and
// the RX FIFO second, which catches payloads queued behind one already read.
func (d *Device) DataReady() (bool, error) {
	err := d.acquire()
	defer d.release()
	if err != nil {
		return false, err
	}
	status, err := d.status()
	if err != nil {
		return false, err
	} else if status.DataReady() {
		return true, nil
	}
	empty, err := d.readBit(reg.FIFO_STATUS, reg.RX_EMPTY)
	return !empty, err
}

// ReadPayload pops one payload from the RX FIFO into buf and clears RX_DR.
// Exactly PayloadSize bytes are clocked out regardless of what the peer sent;
// buf must hold at least that many.
func (d *Device) ReadPayload(buf []byte) error {
	err := d.acquire()
	defer d.release()
	if err != nil {
		return err
	}
	size := int(d.state.payloadSize)
	if len(buf) < size {
		return ErrShortBuffer
	}
	_, err = d.tx(reg.R_RX_PAYLOAD, nil, buf[:size])
	if err != nil {
		return err
	}
	return d.write8(reg.STATUS, 1<<reg.RX_DR)
}

// PowerDown drops CE and clears PWR_UP. Register contents are retained.
func (d *Device) PowerDown() error {
	err := d.acquire()
	defer d.release()
	if err != nil {
		return err
	}
	d.ce(false)
	return d.writeBit(reg.CONFIG, reg.PWR_UP, false)
}
