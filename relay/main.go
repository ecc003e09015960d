// Command relay bridges the plant guard board to web browsers. It reads
// telemetry from the serial port (or a simulated board), keeps a monitor
// window and optional history, and serves the dashboard and websocket API.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/itohio/plantguard/pkg/bridge"
	"github.com/itohio/plantguard/pkg/config"
	"github.com/itohio/plantguard/pkg/device"
	"github.com/itohio/plantguard/pkg/history"
	"github.com/itohio/plantguard/pkg/monitor"
	"github.com/itohio/plantguard/pkg/telemetry"
)

const pruneInterval = time.Hour

func main() {
	var (
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		portFlag   = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		mockFlag   = flag.Bool("mock", false, "Use a simulated board instead of the serial port")
		listenFlag = flag.String("listen", "", "HTTP listen address override (e.g., :3000)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	cfg.Log.Setup()

	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
		cfg.Serial.AutoDetect = false
	}
	if *listenFlag != "" {
		cfg.Bridge.Listen = *listenFlag
	}

	ctx := signalContext()

	dev, err := device.Open(cfg, *mockFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open device")
	}
	if err := dev.Connect(); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to device")
	}

	bcfg := bridge.Config{
		Addr:            cfg.Bridge.Listen,
		ShutdownTimeout: cfg.Bridge.ShutdownTimeout,
		HistoryLimit:    cfg.Bridge.HistoryLimit,
		Device:          dev,
	}

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.History.Path).Msg("Failed to open history")
		}
		bcfg.History = store
		if cfg.History.Retention > 0 {
			go pruneLoop(ctx, store, cfg.History.Retention)
		}
	}

	mon := monitor.New(cfg)
	bcfg.State = mon
	srv := bridge.New(bcfg)

	// readings -> classifier -> [smoother] -> history + websocket -> monitor
	stream := telemetry.NewClassifier(500)(dev.Readings())
	if cfg.Monitor.Smoothing > 1 {
		stream = telemetry.NewSmoother(cfg.Monitor.Smoothing, 500)(stream)
	}
	stream = telemetry.NewTap(func(s telemetry.Sample) {
		if store != nil {
			if err := store.RecordSample(s); err != nil {
				log.Warn().Err(err).Msg("Failed to record sample")
			}
		}
		srv.Publish(s)
	}, 500)(stream)

	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		mon.ProcessSamples(stream)
		log.Info().Msg("Telemetry stream ended")
	}()

	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Bridge server failed")
	}

	shutdown(dev, monitorDone, store)
}

// shutdown closes the device, waits for the pipeline to drain and closes
// the history.
func shutdown(dev device.Device, monitorDone <-chan struct{}, store *history.Store) {
	if err := dev.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close device")
	}

	select {
	case <-monitorDone:
	case <-time.After(5 * time.Second):
		log.Warn().Msg("Timed out waiting for the telemetry pipeline")
	}

	if store != nil {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close history")
		}
	}
	log.Info().Msg("Relay stopped")
}

// pruneLoop drops history rows older than retention, once at start and then
// every pruneInterval.
func pruneLoop(ctx context.Context, store *history.Store, retention time.Duration) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		n, err := store.Prune(retention, time.Now())
		if err != nil {
			log.Warn().Err(err).Msg("Failed to prune history")
		} else if n > 0 {
			log.Info().Int64("rows", n).Msg("Pruned history")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// signalContext creates a context that is cancelled when SIGINT or SIGTERM is received.
func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	return ctx
}
