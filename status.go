package nrf24

import (
	"strconv"

	"github.com/soypat/nrf24/reg"
)

// Status is the STATUS register, shifted out by the chip as the first byte
// of every transaction.
type Status uint8

// DataReady reports RX_DR: a payload arrived in the RX FIFO.
func (s Status) DataReady() bool { return s&(1<<reg.RX_DR) != 0 }

// DataSent reports TX_DS: a payload was sent, and acknowledged when
// auto-acknowledgement is enabled.
func (s Status) DataSent() bool { return s&(1<<reg.TX_DS) != 0 }

// MaxRetransmits reports MAX_RT: retransmits were exhausted. Must be cleared
// before any further transmission.
func (s Status) MaxRetransmits() bool { return s&(1<<reg.MAX_RT) != 0 }

// TxFull reports the TX FIFO has no free slots.
func (s Status) TxFull() bool { return s&(1<<reg.TX_FULL) != 0 }

// RxPipe returns the pipe of the payload at the head of the RX FIFO, or -1
// when the FIFO is empty.
func (s Status) RxPipe() int {
	n := int(s&reg.RX_P_NO_MASK) >> reg.RX_P_NO
	if n > reg.NumPipes-1 {
		return -1
	}
	return n
}

// TxStatus decodes the transmission outcome. TX_DS takes precedence over
// MAX_RT; the chip never latches both for the same payload.
func (s Status) TxStatus() TxStatus {
	switch {
	case s.DataSent():
		return TxOk
	case s.MaxRetransmits():
		return TxLost
	}
	return TxSending
}

func (s Status) String() string {
	b := make([]byte, 0, 40)
	b = append(b, "status("...)
	n := len(b)
	for _, f := range [...]struct {
		set  bool
		name string
	}{
		{s.DataReady(), "RX_DR"},
		{s.DataSent(), "TX_DS"},
		{s.MaxRetransmits(), "MAX_RT"},
		{s.TxFull(), "TX_FULL"},
	} {
		if !f.set {
			continue
		}
		if len(b) > n {
			b = append(b, '|')
		}
		b = append(b, f.name...)
	}
	if len(b) > n {
		b = append(b, ' ')
	}
	if pipe := s.RxPipe(); pipe >= 0 {
		b = append(b, "pipe="...)
		b = strconv.AppendInt(b, int64(pipe), 10)
	} else {
		b = append(b, "rx=empty"...)
	}
	b = append(b, ')')
	return string(b)
}

// Status returns the STATUS register using a one byte NOP transaction.
func (d *Device) Status() (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status()
}

func (d *Device) status() (Status, error) {
	return d.tx(reg.NOP, nil, nil)
}

// TransmissionStatus returns the outcome of the last transmission.
func (d *Device) TransmissionStatus() (TxStatus, error) {
	s, err := d.Status()
	if err != nil {
		return TxSending, err
	}
	return s.TxStatus(), nil
}

// RetransmissionCount returns the retransmits spent on the last packet, 0..15.
func (d *Device) RetransmissionCount() (uint8, error) {
	_, retr, err := d.ObserveTX()
	return retr, err
}

// ObserveTX returns the lost packet count (PLOS_CNT, saturates at 15 and
// is reset by writing RF_CH) and the retransmit count of the last packet
// (ARC_CNT).
func (d *Device) ObserveTX() (lost, retr uint8, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, err := d.read8(reg.OBSERVE_TX)
	return v >> reg.PLOS_CNT, v & 0xf, err
}

// ReadInterrupts returns the latched interrupt bits of STATUS without
// clearing them.
func (d *Device) ReadInterrupts() (Status, error) {
	s, err := d.Status()
	return s & irqMask, err
}

// ClearInterrupts clears RX_DR, TX_DS and MAX_RT.
func (d *Device) ClearInterrupts() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clearInterrupts()
}

func (d *Device) clearInterrupts() error {
	return d.write8(reg.STATUS, irqMask)
}
