package nrf24

import (
	"context"
	"log/slog"
	"time"

	"github.com/soypat/nrf24/reg"
)

// PowerUpTx clears latched interrupts and powers the chip up in PTX mode.
func (d *Device) PowerUpTx() error {
	err := d.acquire()
	defer d.release()
	if err != nil {
		return err
	}
	return d.powerUpTx()
}

func (d *Device) powerUpTx() error {
	err := d.clearInterrupts()
	if err != nil {
		return err
	}
	return d.write8(reg.CONFIG, baseConfig|1<<reg.PWR_UP)
}

// Transmit sends exactly PayloadSize bytes: payload followed by zero padding.
// CE is held high for the TX dwell, after which the outcome can be queried
// with TransmissionStatus. Transmit does not wait for an acknowledgement.
func (d *Device) Transmit(payload []byte) error {
	err := d.acquire()
	defer d.release()
	if err != nil {
		return err
	}
	size := int(d.state.payloadSize)
	if len(payload) > size {
		return ErrPayloadTooLong
	}
	var buf [reg.MaxPayload]byte
	copy(buf[:], payload)

	d.ce(false)
	err = d.powerUpTx()
	if err != nil {
		return err
	}
	err = d.flushTx()
	if err != nil {
		return err
	}
	_, err = d.tx(reg.W_TX_PAYLOAD, buf[:size], nil)
	if err != nil {
		return err
	}
	dwell := d.txDwell()
	d.debug("Transmit", slog.Int("len", len(payload)), slog.Duration("dwell", dwell))
	d.ce(true)
	d.sleep(dwell)
	d.ce(false)
	return nil
}

// txDwell returns how long CE is held high during Transmit. Unless fixed by
// configuration it covers twice the worst case of every retransmit
// timing out: PLL settle then ARC+1 rounds of payload airtime, ACK airtime
// and auto retransmit delay.
func (d *Device) txDwell() time.Duration {
	if d.dwell > 0 {
		return d.dwell
	}
	return retrDwell(d.retr, d.state.rate, d.state.payloadSize)
}

func retrDwell(retr uint8, rate DataRate, payloadSize uint8) time.Duration {
	const (
		// Preamble, address and 2 byte CRC.
		overhead = 1 + reg.AddrWidth + 2
		// Packet control field bits.
		pcf = 9
	)
	ard := time.Duration(retr>>reg.ARD+1) * 250 * time.Microsecond
	arc := time.Duration(retr & 0xf)
	bt := rate.bitTime()
	pkt := time.Duration((overhead+int(payloadSize))*8+pcf) * bt
	ack := time.Duration(overhead*8+pcf) * bt
	worst := pllSettle + (arc+1)*(ard+pkt+ack)
	return ceilTo(2*worst, time.Millisecond)
}

// PollTransmission reads STATUS every millisecond until the last
// transmission is acknowledged or lost, or until ctx is done. The device is
// not held between polls.
func (d *Device) PollTransmission(ctx context.Context) (TxStatus, error) {
	for {
		st, sleep, err := d.pollStatus()
		if err != nil || st != TxSending {
			return st, err
		}
		select {
		case <-ctx.Done():
			return TxSending, ctx.Err()
		default:
		}
		sleep(time.Millisecond)
	}
}

// pollStatus reads STATUS and the sleep function in one hold of the device
// so a concurrent Init cannot swap either mid-read.
func (d *Device) pollStatus() (TxStatus, func(time.Duration), error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sleep := d.sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	s, err := d.status()
	if err != nil {
		return TxSending, sleep, err
	}
	return s.TxStatus(), sleep, nil
}
