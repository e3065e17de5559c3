package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/soypat/nrf24"
	"github.com/soypat/nrf24/reg"
	"github.com/soypat/saleae"
	"github.com/soypat/saleae/analyzers"
)

// Filter selects which transactions are written out.
type Filter struct {
	OmitNOP   bool // Status polls.
	OmitRead  bool // R_REGISTER and R_RX_PAYLOAD.
	OmitWrite bool // W_REGISTER and W_TX_PAYLOAD.
	// Do not merge consecutive identical transactions.
	NoCollapse bool
}

func main() {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(handler)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "nrfanalyze - Process binary Saleae digital data files of nRF24L01 SPI transactions.\n\tUsage:\n")
		flag.PrintDefaults()
	}
	enable := flag.String("f-cs", "digital_0.bin", "Input filename: SPI CSN data.")
	clk := flag.String("f-clk", "digital_1.bin", "Input filename: SPI SCK data.")
	mosi := flag.String("f-mosi", "digital_2.bin", "Input filename: SPI MOSI data.")
	miso := flag.String("f-miso", "digital_3.bin", "Input filename: SPI MISO data.")
	output := flag.String("o-cmd", "", "Output filename of decoded transactions. Empty for stdout.")
	var f Filter
	flag.BoolVar(&f.OmitNOP, "omit-nop", false, "Omit NOP status polls.")
	flag.BoolVar(&f.OmitRead, "omit-read", false, "Omit read commands.")
	flag.BoolVar(&f.OmitWrite, "omit-write", false, "Omit write commands.")
	flag.BoolVar(&f.NoCollapse, "no-collapse", false, "Print repeated identical transactions one by one.")
	flag.Parse()
	if f.OmitRead && f.OmitWrite {
		logger.Error("cannot omit both read and write commands")
		os.Exit(1)
	}
	start := time.Now()
	txs, err := scanFiles(*clk, *enable, *mosi, *miso)
	if err != nil {
		logger.Error("scan", slog.String("err", err.Error()))
		os.Exit(1)
	}
	out := io.Writer(os.Stdout)
	if *output != "" {
		fp, err := os.Create(*output)
		if err != nil {
			logger.Error("create output", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer fp.Close()
		out = fp
	}
	n, err := f.write(out, decodeAll(txs))
	if err != nil {
		logger.Error("write", slog.String("err", err.Error()))
		os.Exit(1)
	}
	logger.Info("finished", slog.Int("transactions", len(txs)), slog.Int("lines", n), slog.Duration("took", time.Since(start)))
}

func scanFiles(fclk, fenable, fmosi, fmiso string) ([]analyzers.TxSPI, error) {
	var files [4]*saleae.DigitalFile
	for i, name := range [4]string{fclk, fenable, fmosi, fmiso} {
		df, err := opendigital(name)
		if err != nil {
			return nil, err
		}
		files[i] = df
	}
	spi := analyzers.SPI{}
	txs, _ := spi.Scan(files[0], files[1], files[2], files[3])
	return txs, nil
}

func opendigital(filename string) (*saleae.DigitalFile, error) {
	fp, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	return saleae.ReadDigitalFile(fp)
}

// nrftx is a decoded nRF24L01 transaction.
type nrftx struct {
	Num    int // Consecutive identical occurrences.
	Cmd    reg.Command
	Status nrf24.Status
	Data   []byte // Written data for writes, read data otherwise.
	Start  float64
}

func (t nrftx) isWrite() bool {
	switch t.Cmd.Op {
	case reg.W_REGISTER, reg.W_TX_PAYLOAD, reg.W_TX_PAYLOAD_NOACK, reg.W_ACK_PAYLOAD, reg.ACTIVATE:
		return true
	}
	return false
}

func (t nrftx) isRead() bool {
	switch t.Cmd.Op {
	case reg.R_REGISTER, reg.R_RX_PAYLOAD, reg.R_RX_PL_WID:
		return true
	}
	return false
}

func (t nrftx) String() string {
	s := fmt.Sprintf("cmd×%-3d %-24s %-32s", t.Num, t.Cmd.String(), t.Status.String())
	if len(t.Data) > 0 {
		s += fmt.Sprintf(" data=%#x", t.Data)
	}
	return s
}

// decode interprets one CSN framed exchange. The first MISO byte is STATUS.
func decode(mosi, miso []byte, start float64) nrftx {
	tx := nrftx{Num: 1, Start: start, Cmd: reg.Command{Op: reg.NOP}}
	if len(mosi) == 0 {
		return tx
	}
	tx.Cmd = reg.Decode(mosi[0])
	if len(miso) > 0 {
		tx.Status = nrf24.Status(miso[0])
	}
	if tx.isRead() {
		if len(miso) > 1 {
			tx.Data = miso[1:]
		}
	} else {
		tx.Data = mosi[1:]
	}
	return tx
}

func decodeAll(txs []analyzers.TxSPI) []nrftx {
	out := make([]nrftx, 0, len(txs))
	for _, tx := range txs {
		out = append(out, decode(tx.SDO, tx.SDI, tx.StartTime()))
	}
	return out
}

func (f *Filter) keep(tx nrftx) bool {
	switch {
	case f.OmitNOP && tx.Cmd.Op == reg.NOP:
		return false
	case f.OmitRead && tx.isRead():
		return false
	case f.OmitWrite && tx.isWrite():
		return false
	}
	return true
}

// write filters and collapses txs and writes one line per result.
func (f *Filter) write(w io.Writer, txs []nrftx) (lines int, err error) {
	var kept []nrftx
	for _, tx := range txs {
		if !f.keep(tx) {
			continue
		}
		if n := len(kept); !f.NoCollapse && n > 0 && same(kept[n-1], tx) {
			kept[n-1].Num++
			continue
		}
		kept = append(kept, tx)
	}
	for _, tx := range kept {
		_, err = fmt.Fprintf(w, "t=%.6f %s\n", tx.Start, tx.String())
		if err != nil {
			return lines, err
		}
		lines++
	}
	return lines, nil
}

func same(a, b nrftx) bool {
	return a.Cmd == b.Cmd && a.Status == b.Status && bytes.Equal(a.Data, b.Data)
}
