package nrf24

import (
	"errors"
	"log/slog"
	"time"

	"github.com/soypat/nrf24/reg"
)

// SetChannel writes RF_CH. The channel is accepted only if it is at most 125
// and differs from the current channel. Otherwise RF_CH is set to 1, the
// cached channel is left as is and ErrBadChannel is returned. Note this means
// setting the current channel again moves the chip to channel 1.
func (d *Device) SetChannel(channel uint8) error {
	err := d.acquire()
	defer d.release()
	if err != nil {
		return err
	}
	return d.setChannel(channel)
}

func (d *Device) setChannel(channel uint8) error {
	if channel <= reg.MaxChannel && channel != d.state.channel {
		err := d.write8(reg.RF_CH, channel)
		if err != nil {
			return err
		}
		d.state.channel = channel
		return nil
	}
	d.debug("SetChannel:fallback", slog.Int("requested", int(channel)), slog.Int("current", int(d.state.channel)))
	err := d.write8(reg.RF_CH, 1)
	if err != nil {
		return err
	}
	return ErrBadChannel
}

// SetRF rewrites RF_SETUP with a new data rate and output power.
// Both ends of a link must use the same data rate.
func (d *Device) SetRF(rate DataRate, pwr Power) error {
	err := d.acquire()
	defer d.release()
	if err != nil {
		return err
	}
	return d.setRF(rate, pwr)
}

func (d *Device) setRF(rate DataRate, pwr Power) error {
	v, err := rfSetup(rate, pwr)
	if err != nil {
		return err
	}
	err = d.write8(reg.RF_SETUP, v)
	if err != nil {
		return err
	}
	d.state.rate = rate
	d.state.power = pwr
	return nil
}

// SetRetransmit programs automatic retransmission. delay is rounded up to a
// multiple of 250µs within 250µs..4000µs and count is at most 15; zero
// disables retransmission. The derived TX dwell follows these values.
func (d *Device) SetRetransmit(delay time.Duration, count uint8) error {
	err := d.acquire()
	defer d.release()
	if err != nil {
		return err
	}
	if count > 15 {
		return errors.New("nrf24: retransmit count above 15")
	}
	const step = 250 * time.Microsecond
	ard := ceilTo(clamp(delay, step, 16*step), step)/step - 1
	v := uint8(ard)<<reg.ARD | count<<reg.ARC
	err = d.write8(reg.SETUP_RETR, v)
	if err != nil {
		return err
	}
	d.retr = v
	return nil
}

// SetMyAddress sets the pipe 0 receive address. CE is pulsed low during
// the write and left high.
func (d *Device) SetMyAddress(addr Address) error {
	err := d.acquire()
	defer d.release()
	if err != nil {
		return err
	}
	d.ce(false)
	err = d.writen(reg.RX_ADDR_P0, addr[:])
	d.ce(true)
	return err
}

// SetTxAddress sets the destination address. RX_ADDR_P0 receives the same
// address since auto-acknowledgement packets come back to it.
func (d *Device) SetTxAddress(addr Address) error {
	err := d.acquire()
	defer d.release()
	if err != nil {
		return err
	}
	err = d.writen(reg.RX_ADDR_P0, addr[:])
	if err != nil {
		return err
	}
	return d.writen(reg.TX_ADDR, addr[:])
}

// RxAddress reads back RX_ADDR_P0.
func (d *Device) RxAddress() (addr Address, err error) {
	err = d.acquire()
	defer d.release()
	if err != nil {
		return addr, err
	}
	err = d.readn(reg.RX_ADDR_P0, addr[:])
	return addr, err
}

// TxAddress reads back TX_ADDR.
func (d *Device) TxAddress() (addr Address, err error) {
	err = d.acquire()
	defer d.release()
	if err != nil {
		return addr, err
	}
	err = d.readn(reg.TX_ADDR, addr[:])
	return addr, err
}

// SoftwareReset writes the power-on value to every writable register.
// The payload widths become zero, so Init must be called afterwards
// before any payload is exchanged.
func (d *Device) SoftwareReset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.debug("SoftwareReset")
	for addr := uint8(0); addr < reg.NumRegisters; addr++ {
		switch addr {
		case reg.OBSERVE_TX, reg.RPD, reg.FIFO_STATUS, 0x18, 0x19, 0x1a, 0x1b:
			continue // Read only or reserved.
		case reg.RX_ADDR_P0:
			err := d.writen(addr, reg.DefaultRxAddrP0[:])
			if err != nil {
				return err
			}
		case reg.RX_ADDR_P1:
			err := d.writen(addr, reg.DefaultRxAddrP1[:])
			if err != nil {
				return err
			}
		case reg.TX_ADDR:
			err := d.writen(addr, reg.DefaultTxAddr[:])
			if err != nil {
				return err
			}
		default:
			v := reg.Defaults[addr]
			if addr == reg.STATUS {
				v = irqMask
			}
			err := d.write8(addr, v)
			if err != nil {
				return err
			}
		}
	}
	d.retr = reg.Defaults[reg.SETUP_RETR]
	d.state = deviceState{
		channel: reg.Defaults[reg.RF_CH],
		rate:    DataRate2Mbps,
		power:   Power0dBm,
	}
	return nil
}
