package main

import (
	"flag"
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog/log"

	"github.com/itohio/plantguard/pkg/config"
	"github.com/itohio/plantguard/pkg/device"
	"github.com/itohio/plantguard/pkg/guard"
	"github.com/itohio/plantguard/pkg/history"
	"github.com/itohio/plantguard/pkg/monitor"
	"github.com/itohio/plantguard/pkg/scope"
	"github.com/itohio/plantguard/pkg/telemetry"
)

func main() {
	var (
		portFlag      = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag    = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag      = flag.Bool("mock", false, "Use a simulated board instead of the serial port")
		smoothingFlag = flag.Int("smoothing", -1, "Moving average length (0 = disabled, overrides config)")
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
	if *smoothingFlag >= 0 {
		cfg.Monitor.Smoothing = *smoothingFlag
	}

	application := app.NewWithID("com.itohio.plantguard")

	window := application.NewWindow("Plant Guard")
	window.Resize(fyne.NewSize(1000, 600))
	window.CenterOnScreen()

	state := &appState{
		cfg:     cfg,
		cfgPath: *configFlag,
		window:  window,
		useMock: *mockFlag,
	}

	toolbar := createToolbar(state)

	state.scopeWidget = scope.New(cfg)
	state.monitor = newMonitor(state)

	content := container.NewBorder(
		toolbar,
		nil,
		nil,
		nil,
		state.scopeWidget,
	)

	window.SetContent(content)
	window.SetOnClosed(func() {
		disconnect(state)
	})
	window.ShowAndRun()
}

// monitorChain tracks the pipeline of one connection for graceful shutdown.
type monitorChain struct {
	device         device.Device
	store          *history.Store
	monitorRoutine chan struct{} // Closed when the monitor goroutine exits
}

// appState holds the application state.
type appState struct {
	cfg         *config.Config
	cfgPath     string
	device      device.Device
	monitor     *monitor.Monitor
	scopeWidget *scope.ScopeWidget
	window      fyne.Window
	connectBtn  *widget.Button
	shadeBtn    *widget.Button
	useMock     bool
	shade       guard.Position
	chain       *monitorChain // nil while disconnected

	// Throttling for scope updates
	lastUpdateTime time.Time
	updateMu       sync.Mutex
}

// createToolbar creates the toolbar with Connect and Settings on the left and
// the shade toggle on the right.
func createToolbar(state *appState) fyne.CanvasObject {
	connectBtn := widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})
	state.connectBtn = connectBtn

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	shadeBtn := widget.NewButtonWithIcon(shadeLabel(guard.Closed), theme.VisibilityIcon(), func() {
		handleShadeToggle(state)
	})
	shadeBtn.Disable()
	state.shadeBtn = shadeBtn

	return container.NewBorder(
		nil,
		nil,
		container.NewHBox(connectBtn, settingsBtn),
		shadeBtn,
		nil,
	)
}

// newMonitor creates a monitor for the configured window and routes its
// updates to the scope at no more than ~60 FPS.
func newMonitor(state *appState) *monitor.Monitor {
	m := monitor.New(state.cfg)

	const updateInterval = 16 * time.Millisecond
	m.OnUpdate(func(samples []telemetry.Sample, stats monitor.Stats, episodes []monitor.Episode) {
		state.updateMu.Lock()
		now := time.Now()
		if now.Sub(state.lastUpdateTime) < updateInterval {
			state.updateMu.Unlock()
			return
		}
		state.lastUpdateTime = now
		state.updateMu.Unlock()

		fyne.Do(func() {
			state.scopeWidget.UpdateData(samples, stats, episodes)
		})
	})
	return m
}

// closeMonitorChain closes the device and waits for the pipeline to drain.
func closeMonitorChain(chain *monitorChain) {
	if chain == nil {
		return
	}

	// Closing the device closes its readings channel, which unwinds the
	// converters and finally the monitor goroutine.
	if chain.device != nil {
		chain.device.Close()
	}
	if chain.monitorRoutine != nil {
		<-chain.monitorRoutine
	}
	if chain.store != nil {
		if err := chain.store.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close history")
		}
	}
}

func disconnect(state *appState) {
	closeMonitorChain(state.chain)
	state.chain = nil
	state.device = nil
}

// handleConnect handles the connect/disconnect button click.
func handleConnect(state *appState) {
	if state.device != nil && state.device.IsConnected() {
		disconnect(state)
		state.shadeBtn.Disable()
		setShade(state, guard.Closed)
		log.Info().Bool("mock", state.useMock).Msg("Disconnected")
		return
	}

	dev, err := device.Open(state.cfg, state.useMock)
	if err != nil {
		dialog.ShowError(err, state.window)
		return
	}
	if err := dev.Connect(); err != nil {
		dialog.ShowError(fmt.Errorf("failed to connect: %w", err), state.window)
		return
	}
	state.device = dev
	log.Info().Bool("mock", state.useMock).Msg("Connected")

	// The board closes the shade on reset.
	setShade(state, guard.Closed)
	state.shadeBtn.Enable()

	var store *history.Store
	if state.cfg.History.Enabled {
		store = openHistory(state.cfg)
	}

	if state.monitor.Window() != time.Duration(state.cfg.Monitor.WindowSeconds*float64(time.Second)) {
		state.monitor = newMonitor(state)
	}
	state.monitor.Reset()
	state.monitor.ResetShutdown()

	// readings -> classifier -> [smoother] -> [history] -> monitor
	stream := telemetry.NewClassifier(500)(dev.Readings())
	if state.cfg.Monitor.Smoothing > 1 {
		stream = telemetry.NewSmoother(state.cfg.Monitor.Smoothing, 500)(stream)
	}
	if store != nil {
		stream = telemetry.NewTap(func(s telemetry.Sample) {
			if err := store.RecordSample(s); err != nil {
				log.Warn().Err(err).Msg("Failed to record sample")
			}
		}, 500)(stream)
	}

	monitorDone := make(chan struct{})
	mon := state.monitor
	go func() {
		defer close(monitorDone)
		mon.ProcessSamples(stream)
	}()

	state.chain = &monitorChain{
		device:         dev,
		store:          store,
		monitorRoutine: monitorDone,
	}
}

// openHistory opens the reading log and drops rows past retention. Failures
// are logged and history is skipped.
func openHistory(cfg *config.Config) *history.Store {
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.History.Path).Msg("Failed to open history")
		return nil
	}
	if cfg.History.Retention > 0 {
		n, err := store.Prune(cfg.History.Retention, time.Now())
		if err != nil {
			log.Warn().Err(err).Msg("Failed to prune history")
		} else if n > 0 {
			log.Info().Int64("rows", n).Msg("Pruned history")
		}
	}
	return store
}
