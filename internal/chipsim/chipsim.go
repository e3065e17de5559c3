// Package chipsim models the SPI interface and packet engine of an
// nRF24L01+ closely enough to drive the nrf24 package without hardware.
//
// A Chip implements drivers.SPI and exposes its CE and CSN lines as plain
// methods. Chips attached to the same Air exchange payloads whenever a PTX
// chip has a payload queued and CE high. Timing is not modelled: a
// transmission completes the moment it becomes possible.
package chipsim

import (
	"errors"
	"sync"

	"github.com/soypat/nrf24/reg"
)

const fifoDepth = 3

// Transaction is one CSN framed exchange as seen on the bus.
type Transaction struct {
	MOSI []byte // Command byte first.
	MISO []byte // STATUS first.
}

// Command returns the command byte of the transaction.
func (t Transaction) Command() reg.Command {
	if len(t.MOSI) == 0 {
		return reg.Command{Op: reg.NOP}
	}
	return reg.Decode(t.MOSI[0])
}

type rxEntry struct {
	pipe    uint8
	payload []byte
}

// Chip is a simulated nRF24L01+.
type Chip struct {
	mu  *sync.Mutex
	air *Air
	// Stuck registers accept writes on the bus but keep their value.
	Stuck map[uint8]bool

	regs  [reg.NumRegisters]uint8
	addrs [3][reg.AddrWidth]byte // RX_ADDR_P0, RX_ADDR_P1, TX_ADDR.
	ce    bool
	cs    bool // Selected, CSN low.

	tx  [][]byte
	rx  []rxEntry
	cur Transaction
	log []Transaction
	// Number of payloads put on air, including failed attempts.
	sent int
}

// New returns a chip in its power on reset state.
func New() *Chip {
	c := &Chip{mu: new(sync.Mutex)}
	c.reset()
	return c
}

func (c *Chip) reset() {
	c.regs = reg.Defaults
	c.regs[reg.STATUS] = 0 // Only latched interrupt bits are stored.
	c.addrs = [3][reg.AddrWidth]byte{reg.DefaultRxAddrP0, reg.DefaultRxAddrP1, reg.DefaultTxAddr}
	c.tx = c.tx[:0]
	c.rx = c.rx[:0]
}

// SetCS drives CSN. A low level starts a transaction, a high level ends it.
func (c *Chip) SetCS(level bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setCS(level)
}

func (c *Chip) setCS(level bool) {
	selected := !level
	switch {
	case selected && !c.cs:
		c.cur = Transaction{}
	case !selected && c.cs:
		c.commit()
	}
	c.cs = selected
}

// SetCE drives the chip enable line.
func (c *Chip) SetCE(level bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ce = level
	c.pump()
}

// Transfer shifts one byte. Out of a transaction it is framed on its own.
func (c *Chip) Transfer(b byte) (byte, error) {
	var r [1]byte
	err := c.Tx([]byte{b}, r[:])
	return r[0], err
}

// Tx shifts w out and the chip's response into r. Either may be nil. When
// CSN is not held low by the caller the exchange is framed as a single
// transaction, the way hardware chip select buses behave.
func (c *Chip) Tx(w, r []byte) error {
	n := len(w)
	if w == nil {
		n = len(r)
	} else if r != nil && len(r) != len(w) {
		return errors.New("chipsim: Tx buffers of different length")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	framed := !c.cs
	if framed {
		c.setCS(false)
	}
	for i := 0; i < n; i++ {
		b := byte(0)
		if w != nil {
			b = w[i]
		}
		out := c.shift(b)
		if r != nil {
			r[i] = out
		}
	}
	if framed {
		c.setCS(true)
	}
	return nil
}

// shift handles a single byte of the current transaction.
func (c *Chip) shift(b byte) (out byte) {
	i := len(c.cur.MOSI)
	if i == 0 {
		out = c.status()
	} else {
		out = c.dataOut(i - 1)
	}
	c.cur.MOSI = append(c.cur.MOSI, b)
	c.cur.MISO = append(c.cur.MISO, out)
	return out
}

// dataOut returns the byte the chip shifts out at data phase offset i.
func (c *Chip) dataOut(i int) byte {
	cmd := c.cur.Command()
	switch cmd.Op {
	case reg.R_REGISTER:
		if reg.IsWide(cmd.Addr) {
			if i < reg.AddrWidth {
				return c.wide(cmd.Addr)[i]
			}
			return 0
		}
		if i == 0 {
			return c.register(cmd.Addr)
		}
	case reg.R_RX_PAYLOAD:
		if len(c.rx) > 0 && i < len(c.rx[0].payload) {
			return c.rx[0].payload[i]
		}
	case reg.R_RX_PL_WID:
		if len(c.rx) > 0 && i == 0 {
			return byte(len(c.rx[0].payload))
		}
	}
	return 0
}

// commit applies the effects of a finished transaction.
func (c *Chip) commit() {
	t := c.cur
	c.log = append(c.log, t)
	if len(t.MOSI) == 0 {
		return
	}
	data := t.MOSI[1:]
	cmd := t.Command()
	switch cmd.Op {
	case reg.W_REGISTER:
		if len(data) > 0 {
			c.writeRegister(cmd.Addr, data)
		}
	case reg.R_RX_PAYLOAD:
		if len(data) > 0 && len(c.rx) > 0 {
			c.rx = c.rx[1:]
		}
	case reg.W_TX_PAYLOAD, reg.W_TX_PAYLOAD_NOACK:
		if len(data) > 0 && len(c.tx) < fifoDepth {
			c.tx = append(c.tx, append([]byte{}, data...))
		}
	case reg.FLUSH_TX:
		c.tx = c.tx[:0]
	case reg.FLUSH_RX:
		c.rx = c.rx[:0]
	}
	c.pump()
}

func (c *Chip) writeRegister(addr uint8, data []byte) {
	if c.Stuck[addr] {
		return
	}
	switch addr {
	case reg.STATUS:
		c.regs[addr] &^= data[0] & (1<<reg.RX_DR | 1<<reg.TX_DS | 1<<reg.MAX_RT)
	case reg.OBSERVE_TX, reg.RPD, reg.FIFO_STATUS:
		// Read only.
	case reg.RX_ADDR_P0, reg.RX_ADDR_P1, reg.TX_ADDR:
		dst := c.wide(addr)
		copy(dst[:], data)
	case reg.RF_CH:
		c.regs[addr] = data[0] & 0x7f
		c.regs[reg.OBSERVE_TX] &= 0x0f // Writing RF_CH resets PLOS_CNT.
	default:
		if addr < reg.NumRegisters {
			c.regs[addr] = data[0]
		}
	}
}

func (c *Chip) wide(addr uint8) *[reg.AddrWidth]byte {
	switch addr {
	case reg.RX_ADDR_P0:
		return &c.addrs[0]
	case reg.RX_ADDR_P1:
		return &c.addrs[1]
	}
	return &c.addrs[2]
}

// status computes STATUS from the latched bits and FIFO state.
func (c *Chip) status() byte {
	s := c.regs[reg.STATUS]
	pipe := byte(7)
	if len(c.rx) > 0 {
		pipe = c.rx[0].pipe
	}
	s |= pipe << reg.RX_P_NO
	if len(c.tx) == fifoDepth {
		s |= 1 << reg.TX_FULL
	}
	return s
}

func (c *Chip) register(addr uint8) byte {
	switch addr {
	case reg.STATUS:
		return c.status()
	case reg.FIFO_STATUS:
		var v byte
		if len(c.rx) == 0 {
			v |= 1 << reg.RX_EMPTY
		}
		if len(c.rx) == fifoDepth {
			v |= 1 << reg.RX_FULL
		}
		if len(c.tx) == 0 {
			v |= 1 << reg.TX_EMPTY
		}
		if len(c.tx) == fifoDepth {
			v |= 1 << reg.TX_FIFOFULL
		}
		return v
	}
	if addr < reg.NumRegisters {
		return c.regs[addr]
	}
	return 0
}

func (c *Chip) bit(addr, bit uint8) bool { return c.regs[addr]&(1<<bit) != 0 }

func (c *Chip) isPTX() bool {
	return c.ce && c.bit(reg.CONFIG, reg.PWR_UP) && !c.bit(reg.CONFIG, reg.PRIM_RX)
}

func (c *Chip) isPRX() bool {
	return c.ce && c.bit(reg.CONFIG, reg.PWR_UP) && c.bit(reg.CONFIG, reg.PRIM_RX)
}

// pump sends queued payloads while the chip is an active PTX. A MAX_RT
// interrupt halts the TX FIFO until it is cleared.
func (c *Chip) pump() {
	for c.isPTX() && len(c.tx) > 0 && !c.bit(reg.STATUS, reg.MAX_RT) {
		c.send()
	}
}

func (c *Chip) send() {
	payload := c.tx[0]
	c.sent++
	accepted := c.air != nil && c.air.deliver(c, payload)
	if !c.bit(reg.EN_AA, 0) {
		c.tx = c.tx[1:]
		c.regs[reg.STATUS] |= 1 << reg.TX_DS
		return
	}
	// The ACK is addressed to TX_ADDR and is only seen on pipe 0.
	if accepted && c.addrs[0] == c.addrs[2] {
		c.tx = c.tx[1:]
		c.regs[reg.STATUS] |= 1 << reg.TX_DS
		c.regs[reg.OBSERVE_TX] &= 0xf0
		return
	}
	arc := c.regs[reg.SETUP_RETR] & 0x0f
	plos := c.regs[reg.OBSERVE_TX] >> reg.PLOS_CNT
	if plos < 15 {
		plos++
	}
	c.regs[reg.OBSERVE_TX] = plos<<reg.PLOS_CNT | arc
	c.regs[reg.STATUS] |= 1 << reg.MAX_RT
}

// pipeAddr returns the address of a data pipe. Pipes 2 to 5 share the
// upper bytes of pipe 1.
func (c *Chip) pipeAddr(pipe uint8) (a [reg.AddrWidth]byte) {
	switch pipe {
	case 0, 1:
		return c.addrs[pipe]
	}
	a = c.addrs[1]
	a[0] = c.regs[reg.RxAddr(pipe)]
	return a
}

// receive accepts payload if the chip is listening on the sender's channel,
// data rate and TX address with a matching payload width.
func (c *Chip) receive(from *Chip, payload []byte) bool {
	const rateMask = 1<<reg.RF_DR_LOW | 1<<reg.RF_DR_HIGH
	if !c.isPRX() || c.regs[reg.RF_CH] != from.regs[reg.RF_CH] ||
		c.regs[reg.RF_SETUP]&rateMask != from.regs[reg.RF_SETUP]&rateMask {
		return false
	}
	for pipe := uint8(0); pipe < reg.NumPipes; pipe++ {
		if !c.bit(reg.EN_RXADDR, pipe) || c.pipeAddr(pipe) != from.addrs[2] {
			continue
		}
		if int(c.regs[reg.RxPW(pipe)]) != len(payload) || len(c.rx) == fifoDepth {
			return false
		}
		c.rx = append(c.rx, rxEntry{pipe: pipe, payload: append([]byte{}, payload...)})
		c.regs[reg.STATUS] |= 1 << reg.RX_DR
		return true
	}
	return false
}

// Register returns the value the chip would shift out for a single byte
// register read, without logging a transaction.
func (c *Chip) Register(addr uint8) uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.register(addr)
}

// Address returns one of the 5 byte address registers.
func (c *Chip) Address(addr uint8) [reg.AddrWidth]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.wide(addr)
}

// Inject places payload in the RX FIFO as if received on pipe.
func (c *Chip) Inject(pipe uint8, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pipe >= reg.NumPipes {
		return errors.New("chipsim: bad pipe")
	} else if len(c.rx) == fifoDepth {
		return errors.New("chipsim: RX FIFO full")
	}
	c.rx = append(c.rx, rxEntry{pipe: pipe, payload: append([]byte{}, payload...)})
	c.regs[reg.STATUS] |= 1 << reg.RX_DR
	return nil
}

// Transactions returns the transactions completed since the last ResetLog.
func (c *Chip) Transactions() []Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Transaction{}, c.log...)
}

// ResetLog discards recorded transactions.
func (c *Chip) ResetLog() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = c.log[:0]
}

// Sent returns the number of transmission attempts.
func (c *Chip) Sent() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent
}

// CE returns the level of the chip enable line.
func (c *Chip) CE() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ce
}

// Air links chips so that payloads sent by one can be received by others.
type Air struct {
	mu    sync.Mutex
	chips []*Chip
}

// NewAir returns an empty Air.
func NewAir() *Air { return &Air{} }

// Attach adds chips to the air. It must be called before the chips are used.
func (a *Air) Attach(chips ...*Chip) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range chips {
		c.mu = &a.mu
		c.air = a
		a.chips = append(a.chips, c)
	}
}

// deliver offers payload to every chip but the sender. Called with a.mu held.
func (a *Air) deliver(from *Chip, payload []byte) bool {
	for _, c := range a.chips {
		if c != from && c.receive(from, payload) {
			return true
		}
	}
	return false
}
