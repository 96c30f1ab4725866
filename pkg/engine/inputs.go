package engine

import "github.com/JesseRWeigel/stay-focused/pkg/provider"

// input is a discrete event handled by the engine loop. gen identifies the
// binding that produced it; inputs from a replaced binding are dropped.
type input interface{ isInput() }

type storageLoaded struct {
	id  string
	ok  bool
	err error
}

type pairRequested struct {
	deviceID string
	creds    *provider.Credentials
}

type credentialsSubmitted struct {
	creds provider.Credentials
}

type logoutRequested struct{}

type logoutFinished struct {
	deviceID string
	err      error
}

type authChanged struct {
	gen   uint64
	state provider.AuthState
}

type authEnded struct {
	gen uint64
	err error
}

type loginFinished struct {
	gen  uint64
	user provider.User
	err  error
}

type focusReceived struct {
	gen     uint64
	seq     uint64
	reading provider.FocusReading
}

type focusEnded struct {
	gen uint64
	seq uint64
	err error
}

type reconnectDue struct {
	gen uint64
	seq uint64
}

type demoTick struct {
	gen         uint64
	probability float64
}

type syncRequest struct {
	ack chan struct{}
}

func (storageLoaded) isInput()        {}
func (pairRequested) isInput()        {}
func (credentialsSubmitted) isInput() {}
func (logoutRequested) isInput()      {}
func (logoutFinished) isInput()       {}
func (authChanged) isInput()          {}
func (authEnded) isInput()            {}
func (loginFinished) isInput()        {}
func (focusReceived) isInput()        {}
func (focusEnded) isInput()           {}
func (reconnectDue) isInput()         {}
func (demoTick) isInput()             {}
func (syncRequest) isInput()          {}
