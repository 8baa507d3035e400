// Command sx127x sends or receives raw LoRa packets on an SX127x radio.
//
// With -send it transmits "<text> <n>" every send.interval; with -cad it runs
// one channel activity detection; otherwise it listens and logs every packet.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/charles-d-burton/sx127x"
)

func main() {
	var (
		configFile string
		text       string
		cad        bool
	)
	flag.StringVar(&configFile, "config", "", "config file path")
	flag.StringVar(&text, "send", "", "send this text periodically instead of receiving")
	flag.BoolVar(&cad, "cad", false, "run channel activity detection once and exit")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := Load(configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	opts, err := cfg.Radio.Options()
	if err != nil {
		log.Fatal().Err(err).Msg("radio config")
	}
	logger := log.With().Str("component", "sx127x").Logger()
	opts.Logger = &logger

	dev, err := sx127x.Open(opts)
	if err != nil {
		log.Fatal().Err(err).Msg("open")
	}
	log.Info().Str("frequency", dev.Frequency().String()).Msg("open success")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch {
	case cad:
		err = detect(ctx, dev, cfg.Send.Timeout)
	case text != "":
		err = send(ctx, dev, text, cfg.Send)
	default:
		err = receive(ctx, dev)
	}
	if err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("run")
	}

	if err := dev.Close(); err != nil {
		log.Error().Err(err).Msg("close")
	}
	st := dev.Stats()
	log.Info().
		Uint64("interrupts", st.Interrupts).
		Uint64("packets", st.Packets).
		Uint64("crc_errors", st.CRCErrors).
		Uint64("transmissions", st.Transmissions).
		Msg("close success")
}

func receive(ctx context.Context, dev *sx127x.Device) error {
	dev.Handle(func(p sx127x.Packet) {
		log.Info().
			Str("data", string(p.Data)).
			Int("length", len(p.Data)).
			Int("rssi", p.RSSI).
			Float64("snr", p.SNR).
			Msg("data")
	})
	if err := dev.Receive(); err != nil {
		return err
	}
	log.Info().Msg("receive success")
	<-ctx.Done()
	return ctx.Err()
}

func send(ctx context.Context, dev *sx127x.Device, text string, sc SendConfig) error {
	ticker := time.NewTicker(sc.Interval)
	defer ticker.Stop()
	for count := 0; ; count++ {
		data := fmt.Sprintf("%s %d", text, count)
		tctx, tcancel := context.WithTimeout(ctx, sc.Timeout)
		err := dev.Send(tctx, []byte(data))
		tcancel()
		if err != nil {
			log.Warn().Err(err).Str("data", data).Msg("send")
		} else {
			log.Info().Str("data", data).Int("length", len(data)).Msg("sent")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func detect(ctx context.Context, dev *sx127x.Device, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	busy, err := dev.DetectActivity(ctx)
	if err != nil {
		return err
	}
	log.Info().Bool("activity", busy).Msg("cad")
	return nil
}
