// nrfbridge listens on an nRF24L01 attached to a Linux SPI port and
// publishes every received payload to an MQTT broker.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"time"

	mqtt "github.com/soypat/natiu-mqtt"
	"github.com/soypat/nrf24"
	"periph.io/x/conn/v3/physic"
)

func main() {
	var (
		cfg    = nrf24.DefaultPeriphConfig()
		clkMHz = flag.Int("clk", 1, "SPI clock in MHz.")
		ch     = flag.Uint("ch", 76, "RF channel, 0..125.")
		size   = flag.Uint("size", 32, "Fixed payload size, 1..32.")
		addr   = flag.String("addr", "e7e7e7e7e7", "Own address, 10 hex digits in bus order.")
		broker = flag.String("broker", "localhost:1883", "MQTT broker address.")
		topic  = flag.String("topic", "nrf24", "MQTT topic payloads are published to.")
		client = flag.String("client-id", "nrfbridge", "MQTT client identifier.")
		poll   = flag.Duration("poll", 5*time.Millisecond, "Radio poll period.")
		level  = flag.Int("v", int(slog.LevelInfo), "Log level. -5 traces every SPI transaction.")
	)
	flag.StringVar(&cfg.Port, "port", cfg.Port, "SPI port.")
	flag.StringVar(&cfg.CE, "ce", cfg.CE, "CE GPIO pin.")
	flag.Parse()
	cfg.Clock = physic.Frequency(*clkMHz) * physic.MegaHertz

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.Level(*level)}))
	own, err := parseAddress(*addr)
	if err != nil {
		logger.Error("bad address", slog.String("err", err.Error()))
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err = run(ctx, logger, cfg, bridgeConfig{
		Radio:    radioConfig(uint8(*ch), uint8(*size), logger),
		Address:  own,
		Broker:   *broker,
		Topic:    *topic,
		ClientID: *client,
		Poll:     *poll,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("nrfbridge", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func radioConfig(ch, size uint8, logger *slog.Logger) nrf24.Config {
	cfg := nrf24.DefaultConfig(ch, size)
	cfg.Logger = logger
	return cfg
}

type bridgeConfig struct {
	Radio    nrf24.Config
	Address  nrf24.Address
	Broker   string
	Topic    string
	ClientID string
	Poll     time.Duration
}

func run(ctx context.Context, logger *slog.Logger, pcfg nrf24.PeriphConfig, cfg bridgeConfig) error {
	dev, port, err := nrf24.OpenPeriph(pcfg)
	if err != nil {
		return err
	}
	defer port.Close()
	conn, err := net.Dial("tcp", cfg.Broker)
	if err != nil {
		return err
	}
	defer conn.Close()
	pub, err := connectMQTT(conn, cfg, logger)
	if err != nil {
		return err
	}
	b := &bridge{dev: dev, publish: pub, logger: logger, poll: cfg.Poll}
	err = b.start(cfg.Radio, cfg.Address)
	if err != nil {
		return err
	}
	return b.loop(ctx)
}

// publishFunc sends payload received on pipe to the broker.
type publishFunc func(pipe int, payload []byte) error

func connectMQTT(conn net.Conn, cfg bridgeConfig, logger *slog.Logger) (publishFunc, error) {
	client := mqtt.NewClient(mqtt.ClientConfig{
		Decoder: mqtt.DecoderNoAlloc{UserBuffer: make([]byte, 1024)},
		OnPub: func(pubHead mqtt.Header, varPub mqtt.VariablesPublish, r io.Reader) error {
			logger.Debug("mqtt:ignored-message", slog.String("topic", string(varPub.TopicName)))
			return nil
		},
	})
	var varconn mqtt.VariablesConnect
	varconn.SetDefaultMQTT([]byte(cfg.ClientID))
	conn.SetDeadline(time.Now().Add(5 * time.Second))
	logger.Info("mqtt:start-connecting", slog.String("broker", cfg.Broker))
	err := client.StartConnect(conn, &varconn)
	if err != nil {
		return nil, err
	}
	for !client.IsConnected() {
		err = client.HandleNext()
		if err != nil {
			return nil, fmt.Errorf("mqtt connect: %w", err)
		}
	}
	conn.SetDeadline(time.Time{})
	logger.Info("mqtt:connected")

	flags, err := mqtt.NewPublishFlags(mqtt.QoS0, false, false)
	if err != nil {
		return nil, err
	}
	vp := mqtt.VariablesPublish{PacketIdentifier: 1}
	return func(pipe int, payload []byte) error {
		if !client.IsConnected() {
			return fmt.Errorf("mqtt disconnected: %w", client.Err())
		}
		vp.TopicName = []byte(cfg.Topic + "/p" + strconv.Itoa(pipe))
		vp.PacketIdentifier++
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		return client.PublishPayload(flags, vp, payload)
	}, nil
}

func parseAddress(s string) (a nrf24.Address, err error) {
	if len(s) != 2*len(a) {
		return a, errors.New("address must be 10 hex digits")
	}
	_, err = fmt.Sscanf(s, "%02x%02x%02x%02x%02x", &a[0], &a[1], &a[2], &a[3], &a[4])
	return a, err
}
