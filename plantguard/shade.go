package main

import (
	"fmt"
	"time"

	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog/log"

	"github.com/itohio/plantguard/pkg/guard"
)

// shadeLabel names the action the toggle performs next.
func shadeLabel(p guard.Position) string {
	if p == guard.Open {
		return "Close shade"
	}
	return "Open shade"
}

// nextPosition is where a toggle from p moves the shade.
func nextPosition(p guard.Position) guard.Position {
	if p == guard.Open {
		return guard.Closed
	}
	return guard.Open
}

// handleShadeToggle sends the command that flips the shade.
func handleShadeToggle(state *appState) {
	if state.device == nil || !state.device.IsConnected() {
		return
	}

	next := nextPosition(state.shade)
	cmd := guard.CommandFor(next)
	if err := state.device.Send(cmd); err != nil {
		dialog.ShowError(fmt.Errorf("failed to move shade: %w", err), state.window)
		return
	}

	if state.chain != nil && state.chain.store != nil {
		if err := state.chain.store.RecordCommand(time.Now(), cmd, "gui"); err != nil {
			log.Warn().Err(err).Msg("Failed to record command")
		}
	}
	log.Info().Stringer("command", cmd).Msg("Shade command sent")

	setShade(state, next)
}

// setShade updates the tracked position, the toggle and the scope overlay.
func setShade(state *appState, p guard.Position) {
	state.shade = p
	updateShadeButton(state.shadeBtn, p)
	state.scopeWidget.SetShade(p)
}

func updateShadeButton(btn *widget.Button, p guard.Position) {
	btn.SetText(shadeLabel(p))
	if p == guard.Open {
		btn.Importance = widget.HighImportance
	} else {
		btn.Importance = widget.MediumImportance
	}
	btn.Refresh()
}
