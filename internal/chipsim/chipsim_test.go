package chipsim

import (
	"bytes"
	"testing"

	"github.com/soypat/nrf24/reg"
)

func write(t *testing.T, c *Chip, addr uint8, data ...byte) {
	t.Helper()
	err := c.Tx(append([]byte{reg.W_REGISTER | addr}, data...), nil)
	if err != nil {
		t.Fatal(err)
	}
}

func TestResetState(t *testing.T) {
	c := New()
	if got := c.Register(reg.CONFIG); got != 0x08 {
		t.Errorf("CONFIG=%#x", got)
	}
	if got := c.Register(reg.STATUS); got != 0x0e {
		t.Errorf("STATUS=%#x want 0x0e", got)
	}
	if got := c.Register(reg.FIFO_STATUS); got != 0x11 {
		t.Errorf("FIFO_STATUS=%#x want 0x11", got)
	}
	if c.Address(reg.RX_ADDR_P1) != reg.DefaultRxAddrP1 {
		t.Error("bad RX_ADDR_P1 reset value")
	}
}

func TestStatusFirstByte(t *testing.T) {
	c := New()
	w := []byte{reg.R_REGISTER | reg.RF_CH, reg.NOP}
	r := make([]byte, 2)
	err := c.Tx(w, r)
	if err != nil {
		t.Fatal(err)
	}
	if r[0] != 0x0e {
		t.Errorf("status byte %#x", r[0])
	}
	if r[1] != 0x02 {
		t.Errorf("RF_CH %#x", r[1])
	}
	log := c.Transactions()
	if len(log) != 1 || !bytes.Equal(log[0].MOSI, w) {
		t.Fatalf("bad transaction log %v", log)
	}
}

func TestManualFraming(t *testing.T) {
	c := New()
	c.SetCS(false)
	c.Transfer(reg.W_REGISTER | reg.TX_ADDR)
	for i := byte(1); i <= 5; i++ {
		c.Transfer(i)
	}
	if len(c.Transactions()) != 0 {
		t.Fatal("transaction committed before CSN high")
	}
	c.SetCS(true)
	if got := c.Address(reg.TX_ADDR); got != [5]byte{1, 2, 3, 4, 5} {
		t.Errorf("TX_ADDR %x", got)
	}
}

func TestStatusWriteOneToClear(t *testing.T) {
	c := New()
	c.Inject(1, make([]byte, 4))
	if c.Register(reg.STATUS)&(1<<reg.RX_DR) == 0 {
		t.Fatal("RX_DR not set after inject")
	}
	if pipe := (c.Register(reg.STATUS)&reg.RX_P_NO_MASK)>>reg.RX_P_NO; pipe != 1 {
		t.Errorf("RX_P_NO=%d want 1", pipe)
	}
	write(t, c, reg.STATUS, 0)
	if c.Register(reg.STATUS)&(1<<reg.RX_DR) == 0 {
		t.Error("writing zero cleared RX_DR")
	}
	write(t, c, reg.STATUS, 1<<reg.RX_DR)
	if c.Register(reg.STATUS)&(1<<reg.RX_DR) != 0 {
		t.Error("RX_DR not cleared")
	}
	if c.Register(reg.FIFO_STATUS)&(1<<reg.RX_EMPTY) != 0 {
		t.Error("clearing RX_DR emptied FIFO")
	}
}

func TestStuck(t *testing.T) {
	c := New()
	c.Stuck = map[uint8]bool{reg.EN_AA: true}
	write(t, c, reg.EN_AA, 0)
	if c.Register(reg.EN_AA) != 0x3f {
		t.Error("stuck register changed")
	}
}

func TestAirDelivery(t *testing.T) {
	ptx, prx := New(), New()
	NewAir().Attach(ptx, prx)
	addr := []byte{1, 2, 3, 4, 5}
	for _, c := range []*Chip{ptx, prx} {
		write(t, c, reg.RF_CH, 40)
		write(t, c, reg.RX_ADDR_P0, addr...)
		write(t, c, reg.RX_PW_P0, 4)
	}
	write(t, ptx, reg.TX_ADDR, addr...)
	write(t, ptx, reg.CONFIG, 1<<reg.PWR_UP)
	write(t, prx, reg.CONFIG, 1<<reg.PWR_UP|1<<reg.PRIM_RX)
	prx.SetCE(true)

	ptx.Tx([]byte{reg.W_TX_PAYLOAD, 9, 8, 7, 6}, nil)
	if ptx.Sent() != 0 {
		t.Fatal("sent with CE low")
	}
	ptx.SetCE(true)
	if ptx.Sent() != 1 {
		t.Fatalf("sent %d payloads", ptx.Sent())
	}
	if ptx.Register(reg.STATUS)&(1<<reg.TX_DS) == 0 {
		t.Error("TX_DS not set")
	}
	if prx.Register(reg.STATUS)&(1<<reg.RX_DR) == 0 {
		t.Fatal("RX_DR not set on receiver")
	}
	r := make([]byte, 5)
	prx.Tx([]byte{reg.R_RX_PAYLOAD, 0, 0, 0, 0}, r)
	if !bytes.Equal(r[1:], []byte{9, 8, 7, 6}) {
		t.Errorf("received %x", r[1:])
	}
	if prx.Register(reg.FIFO_STATUS)&(1<<reg.RX_EMPTY) == 0 {
		t.Error("RX FIFO not empty after read")
	}
}

func TestAirNoPeer(t *testing.T) {
	ptx := New()
	NewAir().Attach(ptx)
	write(t, ptx, reg.SETUP_RETR, 0x2a)
	write(t, ptx, reg.CONFIG, 1<<reg.PWR_UP)
	ptx.Tx([]byte{reg.W_TX_PAYLOAD, 1}, nil)
	ptx.SetCE(true)
	st := ptx.Register(reg.STATUS)
	if st&(1<<reg.MAX_RT) == 0 || st&(1<<reg.TX_DS) != 0 {
		t.Errorf("status %#x want MAX_RT only", st)
	}
	if obs := ptx.Register(reg.OBSERVE_TX); obs != 0x1a {
		t.Errorf("OBSERVE_TX=%#x want 0x1a", obs)
	}
	if ptx.Register(reg.FIFO_STATUS)&(1<<reg.TX_EMPTY) != 0 {
		t.Error("lost payload removed from TX FIFO")
	}
	// RF_CH write resets the lost packet counter.
	write(t, ptx, reg.RF_CH, 3)
	if obs := ptx.Register(reg.OBSERVE_TX); obs>>4 != 0 {
		t.Errorf("PLOS_CNT=%d after RF_CH write", obs>>4)
	}
}
