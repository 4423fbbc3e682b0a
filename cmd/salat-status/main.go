// Command salat-status prints the next prayer for a tmux status line,
// coloured by how close it is. It never touches the network: the location
// comes from flags, the salat config file, or a location cached by salat.
package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/smokyabdulrahman/salat/internal/cache"
	"github.com/smokyabdulrahman/salat/internal/config"
	"github.com/smokyabdulrahman/salat/internal/display"
	"github.com/smokyabdulrahman/salat/internal/logging"
	"github.com/smokyabdulrahman/salat/internal/method"
	"github.com/smokyabdulrahman/salat/internal/prayer"
	"github.com/smokyabdulrahman/salat/internal/schedule"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=v1.0.0"
var version = "dev"

// Colour modes.
const (
	colorTmux = "tmux"
	colorANSI = "ansi"
	colorNone = "none"
)

var errNoLocation = errors.New("no location: pass --latitude and --longitude, or run `salat config set latitude ...`")

// options are the parsed command-line flags.
type options struct {
	Latitude, Longitude float64
	UTCOffset           float64
	HasOffset           bool
	Timezone            string
	Method, School      int
	Format              string
	TimeFormat          string
	Color               string
	Orange, Red         int
	CacheDir            string
	ConfigPath          string
	LogLevel            string
}

func main() {
	fs := pflag.NewFlagSet("salat-status", pflag.ContinueOnError)
	var opts options

	// Location flags
	fs.Float64Var(&opts.Latitude, "latitude", 0, "Latitude (default: salat config or cached location)")
	fs.Float64Var(&opts.Longitude, "longitude", 0, "Longitude")
	fs.Float64Var(&opts.UTCOffset, "utc-offset", 0, "Fixed UTC offset in hours (wins over --timezone)")
	fs.StringVar(&opts.Timezone, "timezone", "", "IANA timezone (default: config, cached location or system zone)")

	// Calculation flags
	fs.IntVar(&opts.Method, "method", -1, "Calculation method ID (see --list-methods). -1 for the configured one.")
	fs.IntVar(&opts.School, "school", -1, "Juristic school: 0=Shafi, 1=Hanafi. -1 for the configured one.")

	// Display flags
	fs.StringVar(&opts.Format, "format", prayer.FormatNameAndTime, "Display format: "+strings.Join(prayer.Formats, ", ")+", or a custom Go template (e.g. '{{.Name}} in {{.Remaining}}'). Template fields: .Name, .ShortName, .Time, .Remaining, .Hours, .Minutes, .Urgency, .Tomorrow")
	fs.StringVar(&opts.TimeFormat, "time-format", "", "Time format: 12h or 24h")
	fs.StringVar(&opts.Color, "color", colorTmux, "Colour markup: tmux, ansi or none")
	fs.IntVar(&opts.Orange, "orange", 0, "Minutes before a prayer when the status turns orange")
	fs.IntVar(&opts.Red, "red", 0, "Minutes before a prayer when the status turns red")

	// Storage flags
	fs.StringVar(&opts.CacheDir, "cache-dir", "", "Cache directory (default: ~/.cache/salat/)")
	fs.StringVar(&opts.ConfigPath, "config", "", "Config file (default: ~/.config/salat/config.json)")
	fs.StringVar(&opts.LogLevel, "log-level", "", "Log level for diagnostics on stderr")

	// Info flags
	showVersion := fs.Bool("version", false, "Print version and exit")
	listMethods := fs.Bool("list-methods", false, "Print supported calculation methods and exit")

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	opts.HasOffset = fs.Changed("utc-offset")

	if *showVersion {
		fmt.Printf("salat-status %s\n", version)
		return
	}

	if *listMethods {
		printMethods(os.Stdout)
		return
	}

	log, err := logging.New(os.Stderr, opts.LogLevel, logging.FormatConsole)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	out, err := run(opts, time.Now(), log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(out)
}

// printMethods prints the table of supported calculation methods.
func printMethods(w io.Writer) {
	fmt.Fprintln(w, "Supported calculation methods:")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %-4s %-48s %s\n", "ID", "Name", "Angles")
	fmt.Fprintf(w, "  %-4s %-48s %s\n", "──", "────", "──────")
	for _, m := range method.All() {
		fmt.Fprintf(w, "  %-4d %-48s %s\n", m.ID, m.Name, m.Describe())
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Use --method <ID> to select a calculation method.")
}

// loadConfig reads the salat config file. A missing file is an empty config.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}

// settingsFor merges flags over the config and the cached location.
func settingsFor(opts options, cfg *config.Config, c *cache.Cache) (schedule.Settings, error) {
	lat, lon, tz := opts.Latitude, opts.Longitude, opts.Timezone
	if lat == 0 && lon == 0 {
		lat, lon = cfg.Latitude, cfg.Longitude
	}
	if lat == 0 && lon == 0 && c != nil {
		if g := c.LoadGeo(); g != nil {
			lat, lon = g.Latitude, g.Longitude
			if tz == "" && cfg.Timezone == "" {
				tz = g.Timezone
			}
		}
	}
	if lat == 0 && lon == 0 {
		return schedule.Settings{}, errNoLocation
	}

	st := schedule.Settings{
		Coordinates: prayer.Coordinates{Latitude: lat, Longitude: lon},
		Method:      cfg.MethodOrDefault(method.Default),
		School:      cfg.SchoolOrDefault(0),
		Thresholds:  cfg.Thresholds(),
	}
	if opts.Method >= 0 {
		st.Method = opts.Method
	}
	if opts.School >= 0 {
		st.School = opts.School
	}
	if opts.Orange > 0 {
		st.Thresholds.OrangeMinutes = opts.Orange
	}
	if opts.Red > 0 {
		st.Thresholds.RedMinutes = opts.Red
	}

	offset := cfg.UTCOffset
	if opts.HasOffset {
		offset = &opts.UTCOffset
	}
	if offset != nil {
		v := *offset
		st.FixedOffset = &v
	}
	if err := st.Validate(); err != nil {
		return st, fmt.Errorf("%w (see --list-methods for method ids)", err)
	}
	if st.FixedOffset != nil {
		st.Location = time.FixedZone("", int(math.Round(*st.FixedOffset*3600)))
		return st, nil
	}

	if tz == "" {
		tz = cfg.Timezone
	}
	st.Location = time.Local
	if tz != "" {
		zone, err := time.LoadLocation(tz)
		if err != nil {
			return st, fmt.Errorf("invalid timezone %q: %w", tz, err)
		}
		st.Location = zone
	}
	return st, nil
}

// colorize wraps text in markup for the urgency band.
func colorize(mode string, u prayer.Urgency, text string) (string, error) {
	switch mode {
	case colorTmux:
		return display.TmuxStyle(u) + text + display.TmuxReset, nil
	case colorANSI:
		display.SetEnabled(true)
		return display.Urgent(u, text), nil
	case colorNone, "":
		return text, nil
	}
	return "", fmt.Errorf("invalid --color %q (want %s, %s or %s)", mode, colorTmux, colorANSI, colorNone)
}

// run computes the status text for now.
func run(opts options, now time.Time, log zerolog.Logger) (string, error) {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return "", err
	}

	dir := opts.CacheDir
	if dir == "" {
		dir = cfg.CacheDir
	}
	c, err := cache.New(dir)
	if err != nil {
		log.Warn().Err(err).Msg("cache disabled")
		c = nil
	}

	st, err := settingsFor(opts, cfg, c)
	if err != nil {
		return "", err
	}

	schedOpts := []schedule.Option{schedule.WithLogger(log)}
	if c != nil {
		schedOpts = append(schedOpts, schedule.WithStore(c))
	}
	snap := schedule.New(st, schedOpts...).Status(now)

	text := fmt.Sprintf("%s %s", snap.Next.Key, prayer.Sentinel)
	if !snap.Next.At.IsZero() {
		timeFormat := opts.TimeFormat
		if timeFormat == "" {
			timeFormat = cfg.TimeFormat
		}
		p := prayer.Prayer{Name: string(snap.Next.Key), Time: snap.Next.At}
		text = prayer.FormatOutput(p, now.In(st.Location), prayer.Options{
			Mode:       opts.Format,
			Layout:     prayer.Layout(timeFormat),
			Thresholds: st.Thresholds,
		})
	}

	return colorize(opts.Color, snap.Urgency, text)
}
