// Package engine ties the device identity store, the provider session and
// the feedback controller together. A single loop goroutine owns all mutable
// state; frontends drive it through Pair, SubmitCredentials and Logout, and
// observe it through Snapshot and the EventBus.
//
// The auth state machine moves between four phases:
//
//	Unbound -> Bound           device identifier paired or restored
//	Bound -> Authenticating    login intent consumed
//	Authenticating -> Authenticated / Bound
//	Authenticated -> Bound     provider reports no user or the focus stream is lost
//	any -> Unbound             logout
//
// Pairing the demo identifier skips the provider entirely and feeds random
// focus samples to the feedback controller.
package engine
