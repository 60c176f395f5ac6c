// Package ui is the terminal front end of the debugger.
//
// Host implements the debugger's window boundary: it keeps the text,
// markers and cursor of every window and draws them onto a
// backend.Backend. Controller reads key events, maps them through a
// Keymap to actions and runs those actions against a debug.Session.
//
// Everything in this package runs on the goroutine that owns the
// session; other goroutines reach it only through Backend.PostEvent.
package ui
