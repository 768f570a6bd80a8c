// Package monitoring holds the diagnostic logger shared by the renderer,
// the localization store and the exporters.
package monitoring

import (
	"fmt"
	"log"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf.
// Messages are prefixed by the emitting component ("render:", "locstore:",
// "export:").
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Mute silences Logf and returns a function that restores the previous
// logger. Intended for tests and batch tools:
//
//	defer monitoring.Mute()()
func Mute() (restore func()) {
	prev := Logf
	SetLogger(nil)
	return func() { Logf = prev }
}

// Capture redirects Logf into the returned slice until restore is called.
func Capture() (lines *[]string, restore func()) {
	prev := Logf
	var out []string
	Logf = func(format string, v ...interface{}) {
		out = append(out, fmt.Sprintf(format, v...))
	}
	return &out, func() { Logf = prev }
}
