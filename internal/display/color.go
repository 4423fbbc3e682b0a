// Package display renders terminal output: ANSI colours, urgency styling and
// aligned tables.
//
// Colours follow NO_COLOR (https://no-color.org/) and are off when stdout is
// not a terminal. FORCE_COLOR turns them back on.
package display

import (
	"fmt"
	"os"

	"github.com/smokyabdulrahman/salat/internal/prayer"
)

// ANSI escape codes for styling.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
	fgGray = "\033[90m"
)

// enabled is set once at init and may be overridden with SetEnabled.
var enabled bool

func init() {
	enabled = shouldEnable()
}

func shouldEnable() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if _, ok := os.LookupEnv("FORCE_COLOR"); ok {
		return true
	}
	return isTerminal(os.Stdout)
}

// isTerminal reports whether f is a character device.
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// SetEnabled overrides the auto-detected color state.
func SetEnabled(b bool) {
	enabled = b
}

// Enabled reports whether color output is currently active.
func Enabled() bool {
	return enabled
}

// wrap surrounds text with an SGR code and a reset, or returns it unchanged
// when colour is off.
func wrap(code, text string) string {
	if !enabled {
		return text
	}
	return code + text + reset
}

// Bold returns text rendered in bold.
func Bold(text string) string {
	return wrap(bold, text)
}

// Dim returns text rendered in dim/faint.
func Dim(text string) string {
	return wrap(dim, text)
}

// Red returns text rendered in red.
func Red(text string) string {
	return wrap(red, text)
}

// Green returns text rendered in green.
func Green(text string) string {
	return wrap(green, text)
}

// Yellow returns text rendered in yellow.
func Yellow(text string) string {
	return wrap(yellow, text)
}

// Cyan returns text rendered in cyan.
func Cyan(text string) string {
	return wrap(cyan, text)
}

// Gray returns text rendered in gray.
func Gray(text string) string {
	return wrap(fgGray, text)
}

// Accent is bold cyan, used for the next prayer.
func Accent(text string) string {
	return wrap(bold+cyan, text)
}

// Boldf formats and bolds a string.
func Boldf(format string, a ...interface{}) string {
	return Bold(fmt.Sprintf(format, a...))
}

// Urgent colours text by urgency band: green, yellow for orange, red.
func Urgent(u prayer.Urgency, text string) string {
	switch u {
	case prayer.Red:
		return wrap(bold+red, text)
	case prayer.Orange:
		return wrap(bold+yellow, text)
	}
	return wrap(bold+green, text)
}

// Clock renders a clock string, dimming the "--:--" sentinel.
func Clock(s string) string {
	if prayer.IsSentinel(s) {
		return Gray(s)
	}
	return s
}

// TmuxStyle returns tmux status-line markup opening the urgency colour.
// Close it with TmuxReset.
func TmuxStyle(u prayer.Urgency) string {
	switch u {
	case prayer.Red:
		return "#[fg=red,bold]"
	case prayer.Orange:
		return "#[fg=colour214,bold]"
	}
	return "#[fg=green]"
}

// TmuxReset restores the default tmux style.
const TmuxReset = "#[default]"
