package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/soypat/nrf24"
)

// bridge moves payloads from the radio to a publisher.
type bridge struct {
	dev     *nrf24.Device
	publish publishFunc
	logger  *slog.Logger
	poll    time.Duration
	buf     [32]byte
	// Counters for the periodic report.
	received, failed int
}

// start configures the radio and puts it in receive mode on own.
func (b *bridge) start(cfg nrf24.Config, own nrf24.Address) error {
	err := b.dev.Init(cfg)
	if err != nil {
		return err
	}
	err = b.dev.SetMyAddress(own)
	if err != nil {
		return err
	}
	b.logger.Info("bridge:listening", slog.String("dev", b.dev.String()), slog.String("addr", own.String()))
	return b.dev.PowerUpRx()
}

// loop polls the radio until ctx is done.
func (b *bridge) loop(ctx context.Context) error {
	if b.poll <= 0 {
		b.poll = 5 * time.Millisecond
	}
	tick := time.NewTicker(b.poll)
	defer tick.Stop()
	defer b.dev.PowerDown()
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("bridge:stop", slog.Int("received", b.received), slog.Int("failed", b.failed))
			return ctx.Err()
		case <-tick.C:
		}
		_, err := b.drain()
		if err != nil {
			return err
		}
	}
}

// drain reads and publishes every payload waiting in the radio. Publish
// failures are logged and counted; radio errors are returned.
func (b *bridge) drain() (n int, err error) {
	for {
		ready, err := b.dev.DataReady()
		if err != nil || !ready {
			return n, err
		}
		status, err := b.dev.Status()
		if err != nil {
			return n, err
		}
		size := b.dev.PayloadSize()
		err = b.dev.ReadPayload(b.buf[:size])
		if err != nil {
			return n, err
		}
		n++
		b.received++
		err = b.publish(status.RxPipe(), b.buf[:size])
		if err != nil {
			b.failed++
			b.logger.Error("bridge:publish", slog.String("err", err.Error()))
		}
	}
}
