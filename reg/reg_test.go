package reg

import "testing"

func TestDecode(t *testing.T) {
	for _, tc := range []struct {
		cmd  uint8
		want string
	}{
		{R_REGISTER | CONFIG, "R_REGISTER(CONFIG)"},
		{W_REGISTER | RX_PW_P3, "W_REGISTER(RX_PW_P3)"},
		{W_REGISTER | 0x1A, "W_REGISTER(0x1a)"},
		{R_RX_PAYLOAD, "R_RX_PAYLOAD"},
		{R_RX_PL_WID, "R_RX_PL_WID"},
		{W_TX_PAYLOAD, "W_TX_PAYLOAD"},
		{W_ACK_PAYLOAD | 4, "W_ACK_PAYLOAD(P4)"},
		{W_TX_PAYLOAD_NOACK, "W_TX_PAYLOAD_NOACK"},
		{FLUSH_TX, "FLUSH_TX"},
		{FLUSH_RX, "FLUSH_RX"},
		{REUSE_TX_PL, "REUSE_TX_PL"},
		{ACTIVATE, "ACTIVATE"},
		{NOP, "NOP"},
		{0xF0, "UNKNOWN"},
	} {
		got := Decode(tc.cmd).String()
		if got != tc.want {
			t.Errorf("%#x: got %q want %q", tc.cmd, got, tc.want)
		}
	}
	c := Decode(W_REGISTER | TX_ADDR)
	if c.Op != W_REGISTER || c.Addr != TX_ADDR {
		t.Errorf("bad decode %+v", c)
	}
}

func TestPipeRegisters(t *testing.T) {
	for pipe := uint8(0); pipe < NumPipes; pipe++ {
		if RxPW(pipe) != RX_PW_P0+pipe || RxAddr(pipe) != RX_ADDR_P0+pipe {
			t.Errorf("pipe %d registers", pipe)
		}
	}
	if Name(RxPW(5)) != "RX_PW_P5" {
		t.Error("bad name", Name(RxPW(5)))
	}
	if !IsWide(TX_ADDR) || IsWide(RX_ADDR_P2) {
		t.Error("IsWide")
	}
}
