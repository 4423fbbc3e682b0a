package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/salat/internal/prayer"
)

var (
	flagFormat  string
	flagPrayers string
)

func newNextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the next prayer with countdown",
		Long:  "Display the next upcoming prayer time with a countdown.\nSuitable for status bars; see also the salat-status binary.",
		RunE:  runNext,
	}

	cmd.Flags().StringVar(&flagFormat, "format", prayer.FormatFull, "Display format: "+strings.Join(prayer.Formats, ", ")+", or a custom Go template (fields: .Name .ShortName .Time .Remaining .Hours .Minutes .Urgency .Tomorrow)")
	cmd.Flags().StringVar(&flagPrayers, "prayers", "", "Comma-separated list of prayers to track (overrides config)")

	return cmd
}

var errNoPrayer = errors.New("could not determine next prayer")

// splitNames splits a comma-separated list, dropping blanks.
func splitNames(list string) []string {
	var names []string
	for _, n := range strings.Split(list, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// nextPrayerNames is the default selection for next: the five prayers,
// without sunrise.
func nextPrayerNames() []string {
	names := make([]string, len(prayer.Prayers))
	for i, k := range prayer.Prayers {
		names[i] = string(k)
	}
	return names
}

// upcoming finds the first selected prayer after now, looking into tomorrow
// when today's have all passed.
func (s *session) upcoming(now time.Time, selected []string) (prayer.Prayer, error) {
	zone := s.settings.Location
	today := prayer.DateOf(now)

	prayers, err := prayer.ParseTimings(s.sched.Times(today), now, zone, selected)
	if err != nil {
		return prayer.Prayer{}, err
	}
	if next := prayer.Upcoming(prayers, now); next != nil {
		return *next, nil
	}

	tomorrow := today.AddDays(1)
	later, err := prayer.ParseTimings(s.sched.Times(tomorrow), tomorrow.In(zone), zone, selected)
	if err != nil {
		return prayer.Prayer{}, err
	}
	if next := prayer.Upcoming(later, now); next != nil {
		return *next, nil
	}
	return prayer.Prayer{}, errNoPrayer
}

type nextJSON struct {
	Prayer    string         `json:"prayer"`
	Time      string         `json:"time"`
	Remaining string         `json:"remaining"`
	Urgency   prayer.Urgency `json:"urgency"`
	Tomorrow  bool           `json:"tomorrow"`
}

func runNext(cmd *cobra.Command, args []string) error {
	cfg := effectiveConfig(cmd)

	// Priority: --prayers flag > config > the five prayers.
	flag := ""
	if cmd.Flags().Changed("prayers") {
		flag = flagPrayers
	}
	selected := nextPrayerNames()
	if flag != "" || cfg.Prayers != "" {
		var err error
		if selected, err = selectedPrayers(flag, cfg); err != nil {
			return err
		}
	}

	s, err := newSession(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	now := s.now()
	next, err := s.upcoming(now, selected)
	if err != nil {
		return err
	}

	opts := prayer.Options{
		Mode:       flagFormat,
		Layout:     prayer.Layout(cfg.TimeFormat),
		Thresholds: s.settings.Thresholds,
	}

	if FlagJSON {
		left := prayer.TimeRemaining(next, now)
		return printJSON(nextJSON{
			Prayer:    strings.ToLower(next.Name),
			Time:      next.Time.Format(opts.Layout),
			Remaining: prayer.FormatRemaining(left),
			Urgency:   opts.Thresholds.Classify(left),
			Tomorrow:  prayer.DateOf(next.Time) != prayer.DateOf(now),
		})
	}

	fmt.Print(prayer.FormatOutput(next, now, opts))
	return nil
}
