// Package reg contains the nRF24L01(+) register map, SPI command set and
// register reset values as found in the nRF24L01+ Product Specification v1.0.
package reg

// Register addresses.
const (
	CONFIG      = 0x00
	EN_AA       = 0x01 // Enable auto acknowledgement.
	EN_RXADDR   = 0x02 // Enabled RX addresses.
	SETUP_AW    = 0x03 // Address width.
	SETUP_RETR  = 0x04 // Automatic retransmission.
	RF_CH       = 0x05
	RF_SETUP    = 0x06
	STATUS      = 0x07
	OBSERVE_TX  = 0x08
	RPD         = 0x09 // Received power detector (CD on nRF24L01).
	RX_ADDR_P0  = 0x0A // 5 bytes.
	RX_ADDR_P1  = 0x0B // 5 bytes.
	RX_ADDR_P2  = 0x0C
	RX_ADDR_P3  = 0x0D
	RX_ADDR_P4  = 0x0E
	RX_ADDR_P5  = 0x0F
	TX_ADDR     = 0x10 // 5 bytes.
	RX_PW_P0    = 0x11
	RX_PW_P1    = 0x12
	RX_PW_P2    = 0x13
	RX_PW_P3    = 0x14
	RX_PW_P4    = 0x15
	RX_PW_P5    = 0x16
	FIFO_STATUS = 0x17
	DYNPD       = 0x1C
	FEATURE     = 0x1D

	// NumRegisters is one past the last addressable register.
	NumRegisters = FEATURE + 1
	// AddrMask selects the register address bits of R_REGISTER and W_REGISTER.
	AddrMask = 0x1F
)

// SPI commands. R_REGISTER and W_REGISTER are OR-ed with a register address.
const (
	R_REGISTER         = 0x00
	W_REGISTER         = 0x20
	ACTIVATE           = 0x50 // Followed by ActivateKey. nRF24L01 only.
	R_RX_PL_WID        = 0x60
	R_RX_PAYLOAD       = 0x61
	W_TX_PAYLOAD       = 0xA0
	W_ACK_PAYLOAD      = 0xA8 // OR-ed with pipe number.
	W_TX_PAYLOAD_NOACK = 0xB0
	FLUSH_TX           = 0xE1
	FLUSH_RX           = 0xE2
	REUSE_TX_PL        = 0xE3
	NOP                = 0xFF

	ActivateKey = 0x73
)

// CONFIG bits.
const (
	PRIM_RX     = 0
	PWR_UP      = 1
	CRCO        = 2
	EN_CRC      = 3
	MASK_MAX_RT = 4
	MASK_TX_DS  = 5
	MASK_RX_DR  = 6
)

// STATUS bits.
const (
	TX_FULL = 0
	RX_P_NO = 1 // 3 bit field. 0b111 means RX FIFO empty.
	MAX_RT  = 4
	TX_DS   = 5
	RX_DR   = 6

	RX_P_NO_MASK = 0x0E
)

// FIFO_STATUS bits.
const (
	RX_EMPTY    = 0
	RX_FULL     = 1
	TX_EMPTY    = 4
	TX_FIFOFULL = 5
	TX_REUSE    = 6
)

// RF_SETUP bits.
const (
	LNA_HCURR  = 0 // nRF24L01 only.
	RF_PWR     = 1 // 2 bit field.
	RF_DR_HIGH = 3
	PLL_LOCK   = 4
	RF_DR_LOW  = 5
	CONT_WAVE  = 7

	RF_PWR_MASK = 0x06
)

// SETUP_RETR fields.
const (
	ARC = 0 // Auto retransmit count, 4 bit field.
	ARD = 4 // Auto retransmit delay, 4 bit field, (ARD+1)*250µs.
)

// OBSERVE_TX fields.
const (
	ARC_CNT  = 0 // 4 bit field.
	PLOS_CNT = 4 // 4 bit field.
)

// FEATURE bits.
const (
	EN_DYN_ACK = 0
	EN_ACK_PAY = 1
	EN_DPL     = 2
)

const (
	// MaxPayload is the size of a payload FIFO slot.
	MaxPayload = 32
	// AddrWidth is the address width the driver programs and expects.
	AddrWidth = 5
	// MaxChannel is the highest usable RF channel (2525MHz).
	MaxChannel = 125
	// NumPipes is the number of receive data pipes.
	NumPipes = 6
)

// Reset values of single byte registers after power on.
var Defaults = [NumRegisters]uint8{
	CONFIG:      0x08,
	EN_AA:       0x3F,
	EN_RXADDR:   0x03,
	SETUP_AW:    0x03,
	SETUP_RETR:  0x03,
	RF_CH:       0x02,
	RF_SETUP:    0x0E,
	STATUS:      0x0E,
	RX_ADDR_P2:  0xC3,
	RX_ADDR_P3:  0xC4,
	RX_ADDR_P4:  0xC5,
	RX_ADDR_P5:  0xC6,
	FIFO_STATUS: 0x11,
}

// Reset values of the 5 byte address registers, LSByte first.
var (
	DefaultRxAddrP0 = [AddrWidth]uint8{0xE7, 0xE7, 0xE7, 0xE7, 0xE7}
	DefaultRxAddrP1 = [AddrWidth]uint8{0xC2, 0xC2, 0xC2, 0xC2, 0xC2}
	DefaultTxAddr   = [AddrWidth]uint8{0xE7, 0xE7, 0xE7, 0xE7, 0xE7}
)

// IsWide reports whether register addr holds a multi-byte address.
func IsWide(addr uint8) bool {
	return addr == RX_ADDR_P0 || addr == RX_ADDR_P1 || addr == TX_ADDR
}

// RxAddr returns the RX_ADDR_Pn register of pipe.
func RxAddr(pipe uint8) uint8 { return RX_ADDR_P0 + pipe }

// RxPW returns the RX_PW_Pn register of pipe.
func RxPW(pipe uint8) uint8 { return RX_PW_P0 + pipe }

// Name returns the datasheet name of a register or "" when addr is not a register.
func Name(addr uint8) string {
	if int(addr) < len(names) {
		return names[addr]
	}
	return ""
}

var names = [NumRegisters]string{
	CONFIG:      "CONFIG",
	EN_AA:       "EN_AA",
	EN_RXADDR:   "EN_RXADDR",
	SETUP_AW:    "SETUP_AW",
	SETUP_RETR:  "SETUP_RETR",
	RF_CH:       "RF_CH",
	RF_SETUP:    "RF_SETUP",
	STATUS:      "STATUS",
	OBSERVE_TX:  "OBSERVE_TX",
	RPD:         "RPD",
	RX_ADDR_P0:  "RX_ADDR_P0",
	RX_ADDR_P1:  "RX_ADDR_P1",
	RX_ADDR_P2:  "RX_ADDR_P2",
	RX_ADDR_P3:  "RX_ADDR_P3",
	RX_ADDR_P4:  "RX_ADDR_P4",
	RX_ADDR_P5:  "RX_ADDR_P5",
	TX_ADDR:     "TX_ADDR",
	RX_PW_P0:    "RX_PW_P0",
	RX_PW_P1:    "RX_PW_P1",
	RX_PW_P2:    "RX_PW_P2",
	RX_PW_P3:    "RX_PW_P3",
	RX_PW_P4:    "RX_PW_P4",
	RX_PW_P5:    "RX_PW_P5",
	FIFO_STATUS: "FIFO_STATUS",
	DYNPD:       "DYNPD",
	FEATURE:     "FEATURE",
}

// Command describes a decoded SPI command byte.
type Command struct {
	Op   uint8 // Command with the register or pipe bits cleared.
	Addr uint8 // Register address for R_REGISTER/W_REGISTER, pipe for W_ACK_PAYLOAD.
}

// Decode splits a command byte into opcode and address.
func Decode(cmd uint8) Command {
	switch {
	case cmd&0xE0 == R_REGISTER:
		return Command{Op: R_REGISTER, Addr: cmd & AddrMask}
	case cmd&0xE0 == W_REGISTER:
		return Command{Op: W_REGISTER, Addr: cmd & AddrMask}
	case cmd&0xF8 == W_ACK_PAYLOAD:
		return Command{Op: W_ACK_PAYLOAD, Addr: cmd & 0x07}
	}
	return Command{Op: cmd}
}

// String returns the datasheet mnemonic of the command.
func (c Command) String() string {
	switch c.Op {
	case R_REGISTER:
		return "R_REGISTER(" + regname(c.Addr) + ")"
	case W_REGISTER:
		return "W_REGISTER(" + regname(c.Addr) + ")"
	case W_ACK_PAYLOAD:
		return "W_ACK_PAYLOAD(P" + string('0'+rune(c.Addr)) + ")"
	case ACTIVATE:
		return "ACTIVATE"
	case R_RX_PL_WID:
		return "R_RX_PL_WID"
	case R_RX_PAYLOAD:
		return "R_RX_PAYLOAD"
	case W_TX_PAYLOAD:
		return "W_TX_PAYLOAD"
	case W_TX_PAYLOAD_NOACK:
		return "W_TX_PAYLOAD_NOACK"
	case FLUSH_TX:
		return "FLUSH_TX"
	case FLUSH_RX:
		return "FLUSH_RX"
	case REUSE_TX_PL:
		return "REUSE_TX_PL"
	case NOP:
		return "NOP"
	}
	return "UNKNOWN"
}

func regname(addr uint8) string {
	if n := Name(addr); n != "" {
		return n
	}
	const hextable = "0123456789abcdef"
	return "0x" + string(hextable[addr>>4]) + string(hextable[addr&0xf])
}
