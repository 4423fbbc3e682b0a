package prayer

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// Format constants for display modes.
const (
	FormatTimeRemaining      = "time-remaining"
	FormatNextPrayerTime     = "next-prayer-time"
	FormatNameAndTime        = "name-and-time"
	FormatNameAndRemaining   = "name-and-remaining"
	FormatShortNameAndTime   = "short-name-and-time"
	FormatShortNameAndRemain = "short-name-and-remaining"
	FormatFull               = "full"
)

// Formats lists the built-in display modes.
var Formats = []string{
	FormatTimeRemaining, FormatNextPrayerTime, FormatNameAndTime, FormatNameAndRemaining,
	FormatShortNameAndTime, FormatShortNameAndRemain, FormatFull,
}

// Layout returns the Go time layout for a "12h" or "24h" setting.
func Layout(timeFormat string) string {
	if timeFormat == "12h" {
		return "3:04 PM"
	}
	return "15:04"
}

// FormatData is the data passed to custom Go templates.
type FormatData struct {
	Name      string // Full prayer name, e.g. "Asr"
	ShortName string // Abbreviated name, e.g. "A"
	Time      string // Formatted prayer time, e.g. "15:02" or "3:02 PM"
	Remaining string // Time remaining, e.g. "2h 15m"
	Hours     int    // Whole hours remaining
	Minutes   int    // Remaining minutes after hours
	Urgency   string // "green", "orange" or "red"
	Tomorrow  bool   // The prayer falls on the next calendar day
}

// Options controls FormatOutput.
type Options struct {
	// Mode is one of the Format* constants or a Go template containing "{{".
	Mode string
	// Layout is a Go time layout, see Layout.
	Layout     string
	Thresholds Thresholds
}

// FormatOutput formats a prayer for display according to opts.
//
// If opts.Mode contains "{{", it is treated as a custom Go template string.
// Available template fields: .Name, .ShortName, .Time, .Remaining, .Hours,
// .Minutes, .Urgency, .Tomorrow
//
// Example: "{{.Name}} in {{.Remaining}}" -> "Asr in 2h 15m"
func FormatOutput(p Prayer, now time.Time, opts Options) string {
	layout := opts.Layout
	if layout == "" {
		layout = Layout("24h")
	}

	d := TimeRemaining(p, now)
	remaining := FormatRemaining(d)
	timeStr := p.Time.Format(layout)
	short := ShortNames[p.Name]

	if strings.Contains(opts.Mode, "{{") {
		return formatCustom(opts.Mode, FormatData{
			Name:      p.Name,
			ShortName: short,
			Time:      timeStr,
			Remaining: remaining,
			Hours:     int(d.Hours()),
			Minutes:   int(d.Minutes()) % 60,
			Urgency:   band(d, opts.Thresholds).String(),
			Tomorrow:  DateOf(p.Time) != DateOf(now.In(p.Time.Location())),
		})
	}

	switch opts.Mode {
	case FormatTimeRemaining:
		return remaining
	case FormatNextPrayerTime:
		return timeStr
	case FormatNameAndRemaining:
		return fmt.Sprintf("%s %s", p.Name, remaining)
	case FormatShortNameAndTime:
		return fmt.Sprintf("%s %s", short, timeStr)
	case FormatShortNameAndRemain:
		return fmt.Sprintf("%s %s", short, remaining)
	case FormatFull:
		return fmt.Sprintf("%s %s (%s)", p.Name, timeStr, remaining)
	default:
		return fmt.Sprintf("%s %s", p.Name, timeStr)
	}
}

// formatCustom executes a user-provided Go template string against the FormatData.
func formatCustom(tmpl string, data FormatData) string {
	t, err := template.New("custom").Parse(tmpl)
	if err != nil {
		return fmt.Sprintf("template-err: %v", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return fmt.Sprintf("template-err: %v", err)
	}

	return buf.String()
}
