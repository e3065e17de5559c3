package nrf24

import (
	"bytes"
	"log/slog"

	"github.com/soypat/nrf24/reg"
)

// ReadRegister returns the value of a single byte register.
func (d *Device) ReadRegister(addr uint8) (uint8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.read8(addr)
}

// WriteRegister writes a single byte register. Cached state is not updated,
// so prefer the dedicated setters for RF_CH and RF_SETUP.
func (d *Device) WriteRegister(addr, value uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write8(addr, value)
}

// tx performs a bus transaction and traces it.
func (d *Device) tx(cmd uint8, w, r []byte) (Status, error) {
	status, err := d.bus.transact(cmd, w, r)
	if d._traceenabled {
		d.trace("bus",
			slog.String("cmd", reg.Decode(cmd).String()),
			slog.String("status", status.String()),
			slog.String("w", hexstr(w)),
			slog.String("r", hexstr(r)),
		)
	}
	if err != nil {
		d.logerr("bus", slog.String("cmd", reg.Decode(cmd).String()), slog.String("err", err.Error()))
	}
	return status, err
}

func (d *Device) read8(addr uint8) (uint8, error) {
	var buf [1]byte
	_, err := d.tx(reg.R_REGISTER|addr&reg.AddrMask, nil, buf[:])
	return buf[0], err
}

func (d *Device) write8(addr, value uint8) error {
	buf := [1]byte{value}
	_, err := d.tx(reg.W_REGISTER|addr&reg.AddrMask, buf[:], nil)
	if err != nil || !d.verify || addr == reg.STATUS {
		return err // STATUS is write-one-to-clear, can't be read back.
	}
	got, err := d.read8(addr)
	if err != nil {
		return err
	}
	if got != value {
		return &WriteVerifyError{Reg: addr, Want: buf[:], Got: []byte{got}}
	}
	return nil
}

// readn reads len(buf) bytes starting at register addr.
func (d *Device) readn(addr uint8, buf []byte) error {
	_, err := d.tx(reg.R_REGISTER|addr&reg.AddrMask, nil, buf)
	return err
}

// writen writes buf to register addr.
func (d *Device) writen(addr uint8, buf []byte) error {
	_, err := d.tx(reg.W_REGISTER|addr&reg.AddrMask, buf, nil)
	if err != nil || !d.verify {
		return err
	}
	var got [reg.AddrWidth]byte
	err = d.readn(addr, got[:len(buf)])
	if err != nil {
		return err
	}
	if !bytes.Equal(got[:len(buf)], buf) {
		return &WriteVerifyError{Reg: addr, Want: append([]byte{}, buf...), Got: got[:len(buf)]}
	}
	return nil
}

// writeBit sets or clears a single register bit. Not atomic with respect
// to the chip: the register is read, modified and written back.
func (d *Device) writeBit(addr, bit uint8, value bool) error {
	v, err := d.read8(addr)
	if err != nil {
		return err
	}
	if value {
		v |= 1 << bit
	} else {
		v &^= 1 << bit
	}
	return d.write8(addr, v)
}

func (d *Device) readBit(addr, bit uint8) (bool, error) {
	v, err := d.read8(addr)
	return v&(1<<bit) != 0, err
}

func (d *Device) flushTx() error {
	_, err := d.tx(reg.FLUSH_TX, nil, nil)
	return err
}

func (d *Device) flushRx() error {
	_, err := d.tx(reg.FLUSH_RX, nil, nil)
	return err
}
