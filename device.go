// Package nrf24 drives the Nordic nRF24L01(+) 2.4GHz transceiver over SPI
// in fixed payload length mode.
//
// The host supplies the SPI bus, the CE (chip enable) and CSN (chip select)
// output lines and optionally a sleep function. A Device is then configured
// once with Init and alternates between Transmit and the receive path
// (PowerUpRx, DataReady, ReadPayload).
//
//	dev := nrf24.New(spi, ce.Set, csn.Set)
//	err := dev.Init(nrf24.DefaultConfig(76, 32))
package nrf24

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/soypat/nrf24/reg"
	"tinygo.org/x/drivers"
)

// Device is an nRF24L01(+) transceiver. Methods are safe for concurrent use;
// each one holds the bus for its entire duration.
type Device struct {
	mu            sync.Mutex
	bus           spibus
	ce            outputPin
	sleep         func(time.Duration)
	logger        *slog.Logger
	_traceenabled bool
	verify        bool
	dwell         time.Duration // Fixed TX dwell. Zero derives it from retr.
	retr          uint8         // Last value written to SETUP_RETR.
	state         deviceState
}

// deviceState mirrors the configuration the driver does not read back.
type deviceState struct {
	payloadSize uint8 // 1..32. Zero until Init.
	channel     uint8
	rate        DataRate
	power       Power
}

// Config is the one-time configuration applied by Init.
type Config struct {
	// RF channel, 0..125. Frequency is 2400+Channel MHz.
	Channel uint8
	// Fixed payload size. Values above 32 are clamped to 32, zero to 1.
	PayloadSize uint8
	DataRate    DataRate
	Power       Power
	// Wait after driving CE low before the first register write.
	// Values below 50ms, zero included, are raised to 50ms.
	PowerOnDelay time.Duration
	// How long CE is held high in Transmit. Zero derives the dwell from the
	// retransmit setup, data rate and payload size.
	TxDwell time.Duration
	// Delay applied after every chip select edge. Zero for none.
	BusSettle time.Duration
	// Read back every register write and fail on mismatch.
	VerifyWrites bool
	// Blocking delay. Nil selects time.Sleep.
	Sleep  func(time.Duration)
	Logger *slog.Logger
}

// DefaultConfig returns a 1Mbps, -6dBm configuration.
func DefaultConfig(channel, payloadSize uint8) Config {
	return Config{
		Channel:      channel,
		PayloadSize:  payloadSize,
		DataRate:     DataRate1Mbps,
		Power:        PowerM6dBm,
		PowerOnDelay: defaultPowerOnDelay,
		BusSettle:    time.Microsecond,
	}
}

// New returns a Device on spi. ce drives the chip enable line (true=high).
// csn drives chip select (true=high, inactive) and may be nil when the bus
// asserts chip select by itself for the duration of each Tx call.
func New(spi drivers.SPI, ce, csn func(bool)) *Device {
	if ce == nil {
		ce = func(bool) {}
	}
	d := &Device{
		ce:    ce,
		sleep: time.Sleep,
	}
	d.bus = spibus{spi: spi, csn: csn, sleep: d.sleep}
	return d
}

// Init configures the chip for fixed length payloads and leaves it powered
// up in PTX mode. A rejected channel does not abort the sequence: the chip
// ends up on channel 1 and ErrBadChannel is returned. Any other error leaves
// the device uninitialized.
func (d *Device) Init(cfg Config) (err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	defer func() {
		if err != nil && err != ErrBadChannel {
			d.state = deviceState{}
		}
	}()
	d.logger = cfg.Logger
	d._traceenabled = d.logger != nil && d.logger.Handler().Enabled(context.Background(), levelTrace)
	d.sleep = time.Sleep
	if cfg.Sleep != nil {
		d.sleep = cfg.Sleep
	}
	d.bus.sleep = d.sleep
	d.bus.settle = cfg.BusSettle
	d.verify = cfg.VerifyWrites
	d.dwell = cfg.TxDwell
	powerOn := max(cfg.PowerOnDelay, defaultPowerOnDelay)

	d.info("Init:start", slog.Int("channel", int(cfg.Channel)), slog.Int("payload", int(cfg.PayloadSize)))
	start := time.Now()
	d.state = deviceState{
		payloadSize: clamp(cfg.PayloadSize, 1, reg.MaxPayload),
		// Guarantees setChannel below writes RF_CH.
		channel: ^cfg.Channel,
	}

	d.ce(false)
	d.bus.csEnable(false)
	d.sleep(powerOn)

	err = d.write8(reg.CONFIG, baseConfig)
	if err != nil {
		return err
	}
	err = d.write8(reg.SETUP_RETR, defaultRetr)
	if err != nil {
		return err
	}
	d.retr = defaultRetr
	err = d.setRF(cfg.DataRate, cfg.Power)
	if err != nil {
		return err
	}

	d.debug("Init:fixed-payload")
	err = d.write8(reg.FEATURE, 0)
	if err != nil {
		return err
	}
	err = d.write8(reg.DYNPD, 0)
	if err != nil {
		return err
	}
	err = d.clearInterrupts()
	if err != nil {
		return err
	}

	chErr := d.setChannel(cfg.Channel)
	if chErr != nil && chErr != ErrBadChannel {
		return chErr
	} else if chErr != nil {
		d.warn("Init:channel-rejected", slog.Int("channel", int(cfg.Channel)))
	}

	err = d.flushTx()
	if err != nil {
		return err
	}
	err = d.flushRx()
	if err != nil {
		return err
	}
	for pipe := uint8(0); pipe < reg.NumPipes; pipe++ {
		err = d.write8(reg.RxPW(pipe), d.state.payloadSize)
		if err != nil {
			return err
		}
	}
	err = d.powerUpTx()
	if err != nil {
		return err
	}
	d.info("Init:done", slog.Duration("took", time.Since(start)), slog.String("dev", d.string()))
	return chErr
}

// PayloadSize returns the configured fixed payload size, or 0 before Init.
func (d *Device) PayloadSize() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int(d.state.payloadSize)
}

// Channel returns the last channel accepted by SetChannel. After Init
// rejected its channel the cache holds the bitwise complement of the
// rejected value while the chip sits on channel 1, so SetChannel with that
// complement is rejected as a repeat.
func (d *Device) Channel() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.channel
}

// RF returns the last data rate and output power written.
func (d *Device) RF() (DataRate, Power) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.rate, d.state.power
}

func (d *Device) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.string()
}

func (d *Device) string() string {
	return "nrf24{ch=" + strconv.Itoa(int(d.state.channel)) +
		" payload=" + strconv.Itoa(int(d.state.payloadSize)) +
		" rate=" + d.state.rate.String() +
		" pwr=" + d.state.power.String() + "}"
}

// acquire locks the device and checks Init has run.
func (d *Device) acquire() error {
	d.mu.Lock()
	if d.state.payloadSize == 0 {
		return errUninitialized
	}
	return nil
}

func (d *Device) release() {
	d.mu.Unlock()
}
