package main

import (
	"github.com/JesseRWeigel/stay-focused/pkg/engine"
	tea "github.com/charmbracelet/bubbletea"
)

// snapshotMsg delivers a new engine snapshot from the bridge goroutine.
type snapshotMsg struct {
	snap engine.Snapshot
}

// loginFailedMsg reports a rejected login so the pairing form can return.
type loginFailedMsg struct {
	err error
}

// streamLostMsg reports that the focus stream gave up reconnecting.
type streamLostMsg struct {
	err error
}

// pairSubmittedMsg is returned by the tea.Cmd that hands the pairing form to
// the engine.
type pairSubmittedMsg struct {
	err error
}

// permissionMsg carries the outcome of a notification permission request.
type permissionMsg struct {
	granted bool
	err     error
}

// logoutDoneMsg is returned by the tea.Cmd that calls Engine.Logout.
type logoutDoneMsg struct {
	err error
}

// programReadyMsg passes the *tea.Program to the model so it can start the bridge.
type programReadyMsg struct {
	program *tea.Program
}
