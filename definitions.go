package nrf24

import (
	"errors"
	"strconv"
	"time"

	"github.com/soypat/nrf24/reg"
	"golang.org/x/exp/constraints"
)

var (
	// ErrBadChannel is returned when a channel is out of range or equal
	// to the currently configured channel. RF_CH is set to 1 in both cases.
	ErrBadChannel     = errors.New("nrf24: channel rejected")
	ErrPayloadTooLong = errors.New("nrf24: payload longer than configured size")
	ErrShortBuffer    = errors.New("nrf24: buffer shorter than configured payload size")
	errUninitialized  = errors.New("nrf24: device uninitialized")
	errBadRF          = errors.New("nrf24: invalid data rate or output power")
	errBusOverflow    = errors.New("nrf24: transaction longer than FIFO slot")
)

// WriteVerifyError is returned by register writes when Config.VerifyWrites
// is set and the register reads back a different value.
type WriteVerifyError struct {
	Reg  uint8
	Want []byte
	Got  []byte
}

func (e *WriteVerifyError) Error() string {
	return "nrf24: write verify failed for " + reg.Name(e.Reg) + ": wrote " + hexstr(e.Want) + " read " + hexstr(e.Got)
}

// Address identifies a data pipe. Bytes are in bus order, LSByte first.
type Address [reg.AddrWidth]byte

func (a Address) String() string { return hexstr(a[:]) }

// DataRate is the over the air data rate.
type DataRate uint8

const (
	DataRate1Mbps DataRate = iota
	DataRate2Mbps
	DataRate250kbps
)

func (r DataRate) String() string {
	switch r {
	case DataRate1Mbps:
		return "1Mbps"
	case DataRate2Mbps:
		return "2Mbps"
	case DataRate250kbps:
		return "250kbps"
	}
	return "DataRate(" + strconv.Itoa(int(r)) + ")"
}

// bitTime returns the time it takes to put one bit on air.
func (r DataRate) bitTime() time.Duration {
	switch r {
	case DataRate2Mbps:
		return 500 * time.Nanosecond
	case DataRate250kbps:
		return 4 * time.Microsecond
	}
	return time.Microsecond
}

// Power is the TX output power. Values match the RF_PWR field.
type Power uint8

const (
	PowerM18dBm Power = iota
	PowerM12dBm
	PowerM6dBm
	Power0dBm
)

func (p Power) String() string {
	switch p {
	case PowerM18dBm:
		return "-18dBm"
	case PowerM12dBm:
		return "-12dBm"
	case PowerM6dBm:
		return "-6dBm"
	case Power0dBm:
		return "0dBm"
	}
	return "Power(" + strconv.Itoa(int(p)) + ")"
}

// rfSetup returns the RF_SETUP register value for a data rate and power.
func rfSetup(rate DataRate, pwr Power) (uint8, error) {
	var v uint8
	switch rate {
	case DataRate1Mbps:
	case DataRate2Mbps:
		v |= 1 << reg.RF_DR_HIGH
	case DataRate250kbps:
		v |= 1 << reg.RF_DR_LOW
	default:
		return 0, errBadRF
	}
	if pwr > Power0dBm {
		return 0, errBadRF
	}
	v |= uint8(pwr) << reg.RF_PWR
	return v, nil
}

// TxStatus is the outcome of the last transmission as seen by the chip.
type TxStatus uint8

const (
	TxSending TxStatus = iota // No outcome latched yet.
	TxOk                      // TX_DS: payload sent (and acknowledged if auto-ack is on).
	TxLost                    // MAX_RT: retransmits exhausted.
)

func (s TxStatus) String() string {
	switch s {
	case TxSending:
		return "sending"
	case TxOk:
		return "ok"
	case TxLost:
		return "lost"
	}
	return "TxStatus(" + strconv.Itoa(int(s)) + ")"
}

const (
	// CONFIG with 16 bit CRC, powered down, PTX.
	baseConfig = 1<<reg.EN_CRC | 1<<reg.CRCO
	// 1500µs retransmit delay, 15 retransmits. 1500µs is the minimum that fits
	// a 32 byte payload ACK at 250kbps; lowering it breaks auto-ack with large
	// payloads at that rate.
	defaultRetr = 5<<reg.ARD | 15<<reg.ARC
	// Latched STATUS interrupt bits, cleared by writing ones.
	irqMask = 1<<reg.RX_DR | 1<<reg.TX_DS | 1<<reg.MAX_RT

	defaultPowerOnDelay = 50 * time.Millisecond
	// TX/RX settling after CE goes high (Tstby2a).
	pllSettle = 130 * time.Microsecond
)

// clamp limits v to the closed interval [lo, hi].
func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	} else if v > hi {
		return hi
	}
	return v
}

// ceilTo rounds v up to the nearest multiple of to.
func ceilTo[T constraints.Integer](v, to T) T {
	return (v + to - 1) / to * to
}

func hexstr(b []byte) string {
	const hextable = "0123456789abcdef"
	buf := make([]byte, 2*len(b))
	for i, c := range b {
		buf[2*i] = hextable[c>>4]
		buf[2*i+1] = hextable[c&0xf]
	}
	return string(buf)
}
