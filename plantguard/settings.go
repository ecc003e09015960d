package main

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/plantguard/pkg/device"
)

// showSettingsDialog displays a settings dialog with one tab per section.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createMonitorTab(state),
		createHistoryTab(state),
		createMockTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 400))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 400))
	d.Show()
}

func saveConfig(state *appState) bool {
	if err := state.cfg.Save(state.cfgPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
		return false
	}
	return true
}

// createSerialTab creates the Serial configuration tab.
func createSerialTab(state *appState) *container.TabItem {
	ports, err := device.Ports()
	portOptions := []string{}
	portMap := make(map[string]string) // display name -> port name

	if err == nil {
		for _, port := range ports {
			displayName := port.Description
			if port.Arduino {
				displayName += " *"
			}
			portOptions = append(portOptions, displayName)
			portMap[displayName] = port.Name
		}
	}

	currentPort := state.cfg.Serial.Port
	currentDisplay := currentPort
	found := false
	for _, opt := range portOptions {
		if portMap[opt] == currentPort {
			currentDisplay = opt
			found = true
			break
		}
	}
	if !found && currentPort != "" {
		portOptions = append(portOptions, currentPort)
		portMap[currentPort] = currentPort
	}

	portSelect := widget.NewSelect(portOptions, nil)
	if currentDisplay != "" {
		portSelect.SetSelected(currentDisplay)
	}

	autoDetect := widget.NewCheck("Find the board automatically", nil)
	autoDetect.SetChecked(state.cfg.Serial.AutoDetect)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect, HintText: "* looks like an Arduino"},
			{Text: "Auto-detect", Widget: autoDetect},
		},
		OnSubmit: func() {
			selectedPort := state.cfg.Serial.Port
			if portSelect.Selected != "" {
				selectedPort = portMap[portSelect.Selected]
				if selectedPort == "" {
					selectedPort = portSelect.Selected
				}
			}

			portChanged := state.cfg.Serial.Port != selectedPort
			wasConnected := state.device != nil && state.device.IsConnected()

			state.cfg.Serial.Port = selectedPort
			state.cfg.Serial.AutoDetect = autoDetect.Checked
			if !saveConfig(state) {
				return
			}

			// Reconnect on the new port.
			if portChanged && wasConnected && !state.useMock {
				handleConnect(state)
				handleConnect(state)
			}
		},
	}

	return container.NewTabItem("Serial", form)
}

// createMonitorTab creates the Monitor configuration tab. Changes apply on
// the next connect.
func createMonitorTab(state *appState) *container.TabItem {
	windowEntry := widget.NewEntry()
	windowEntry.SetText(fmt.Sprintf("%.0f", state.cfg.Monitor.WindowSeconds))

	smoothingEntry := widget.NewEntry()
	smoothingEntry.SetText(strconv.Itoa(state.cfg.Monitor.Smoothing))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Window (seconds)", Widget: windowEntry},
			{Text: "Smoothing (0=disabled)", Widget: smoothingEntry},
		},
		OnSubmit: func() {
			if ws, err := strconv.ParseFloat(windowEntry.Text, 64); err == nil && ws > 0 {
				state.cfg.Monitor.WindowSeconds = ws
			}
			if sm, err := strconv.Atoi(smoothingEntry.Text); err == nil && sm >= 0 {
				state.cfg.Monitor.Smoothing = sm
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Monitor", form)
}

// createHistoryTab creates the History configuration tab.
func createHistoryTab(state *appState) *container.TabItem {
	enabled := widget.NewCheck("Record readings", nil)
	enabled.SetChecked(state.cfg.History.Enabled)

	pathEntry := widget.NewEntry()
	pathEntry.SetText(state.cfg.History.Path)

	retentionEntry := widget.NewEntry()
	retentionEntry.SetText(state.cfg.History.Retention.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Enabled", Widget: enabled},
			{Text: "Database", Widget: pathEntry},
			{Text: "Retention", Widget: retentionEntry, HintText: "0s keeps everything"},
		},
		OnSubmit: func() {
			state.cfg.History.Enabled = enabled.Checked
			if pathEntry.Text != "" {
				state.cfg.History.Path = pathEntry.Text
			}
			if r, err := time.ParseDuration(retentionEntry.Text); err == nil && r >= 0 {
				state.cfg.History.Retention = r
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("History", form)
}

// createMockTab creates the simulated board configuration tab.
func createMockTab(state *appState) *container.TabItem {
	periodEntry := widget.NewEntry()
	periodEntry.SetText(state.cfg.Mock.Period.String())

	dayLengthEntry := widget.NewEntry()
	dayLengthEntry.SetText(state.cfg.Mock.DayLength.String())

	baseEntry := widget.NewEntry()
	baseEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Mock.Base))

	amplitudeEntry := widget.NewEntry()
	amplitudeEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Mock.Amplitude))

	noiseEntry := widget.NewEntry()
	noiseEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Mock.Noise))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Loop Period", Widget: periodEntry},
			{Text: "Day Length", Widget: dayLengthEntry},
			{Text: "Base Light (%)", Widget: baseEntry},
			{Text: "Amplitude (%)", Widget: amplitudeEntry},
			{Text: "Noise (%)", Widget: noiseEntry},
		},
		OnSubmit: func() {
			if p, err := time.ParseDuration(periodEntry.Text); err == nil && p > 0 {
				state.cfg.Mock.Period = p
			}
			if d, err := time.ParseDuration(dayLengthEntry.Text); err == nil && d > 0 {
				state.cfg.Mock.DayLength = d
			}
			if b, err := strconv.ParseFloat(baseEntry.Text, 64); err == nil {
				state.cfg.Mock.Base = b
			}
			if a, err := strconv.ParseFloat(amplitudeEntry.Text, 64); err == nil {
				state.cfg.Mock.Amplitude = a
			}
			if n, err := strconv.ParseFloat(noiseEntry.Text, 64); err == nil {
				state.cfg.Mock.Noise = n
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Mock", form)
}
