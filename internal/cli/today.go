package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/salat/internal/api"
	"github.com/smokyabdulrahman/salat/internal/display"
	"github.com/smokyabdulrahman/salat/internal/method"
	"github.com/smokyabdulrahman/salat/internal/prayer"
	"github.com/smokyabdulrahman/salat/internal/schedule"
)

func runToday(cmd *cobra.Command, args []string) error {
	// Get merged config (CLI flags > config file > defaults).
	cfg := effectiveConfig(cmd)

	selected, err := selectedPrayers("", cfg)
	if err != nil {
		return err
	}
	layout := prayer.Layout(cfg.TimeFormat)

	s, err := newSession(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	now := s.now()
	snap := s.sched.Status(now)

	rows, parsed, err := dayRows(snap.Times, now, selected, layout)
	if err != nil {
		return err
	}
	current := prayer.CurrentPrayer(parsed, now)

	if FlagJSON {
		return printTodayJSON(s, rows, current, snap, now, layout)
	}

	printTodayRich(s, rows, current, snap, now, layout)
	return nil
}

// dayRow is one line of a day's schedule.
type dayRow struct {
	Name  string
	Clock string    // formatted time, or the sentinel
	At    time.Time // zero when unsolvable
}

// dayRows lines up the selected entries of times, placed on day's calendar
// date, with their formatted clock. Unsolvable entries keep the sentinel.
func dayRows(times prayer.TimeSet, day time.Time, selected []string, layout string) ([]dayRow, []prayer.Prayer, error) {
	parsed, err := prayer.ParseTimings(times, day, day.Location(), selected)
	if err != nil {
		return nil, nil, err
	}
	byName := make(map[string]prayer.Prayer, len(parsed))
	for _, p := range parsed {
		byName[p.Name] = p
	}

	want := make(map[prayer.Key]bool, len(selected))
	for _, n := range selected {
		k, _ := prayer.ParseKey(n)
		want[k] = true
	}

	var rows []dayRow
	for _, e := range times.Entries() {
		if !want[e.Key] {
			continue
		}
		row := dayRow{Name: string(e.Key), Clock: prayer.Sentinel}
		if p, ok := byName[row.Name]; ok {
			row.Clock = p.Time.Format(layout)
			row.At = p.Time
		}
		rows = append(rows, row)
	}
	return rows, parsed, nil
}

// formatGregorianDate returns e.g. "Saturday, 28 February 2026".
func formatGregorianDate(t time.Time) string {
	return t.Format("Monday, 02 January 2006")
}

// methodLabel returns e.g. "Muslim World League (MWL), Shafi".
func methodLabel(st schedule.Settings) string {
	school := "Shafi"
	if st.School == 1 {
		school = "Hanafi"
	}
	return method.Resolve(st.Method).Name + ", " + school
}

// printTodayRich renders the colored terminal output for today's prayer schedule.
func printTodayRich(s *session, rows []dayRow, current *prayer.Prayer, snap schedule.Snapshot, now time.Time, layout string) {
	fmt.Println()
	fmt.Printf("  %s\n", display.Bold("Prayer Times"))
	fmt.Println()

	fmt.Printf("  %s\n", s.loc.Label())
	fmt.Printf("  %s\n", s.zoneLabel())
	fmt.Printf("  %s\n", formatGregorianDate(now))
	fmt.Printf("  %s\n", display.Dim(methodLabel(s.settings)))
	fmt.Println()

	// Find the max prayer name length for alignment.
	maxNameLen := 0
	for _, r := range rows {
		if len(r.Name) > maxNameLen {
			maxNameLen = len(r.Name)
		}
	}

	next := snap.Next
	remaining := prayer.FormatRemaining(next.At.Sub(now))

	for _, r := range rows {
		name := padRight(r.Name, maxNameLen)

		switch {
		case !next.Tomorrow && r.Name == string(next.Key):
			line := fmt.Sprintf("  %s  %s", name, r.Clock)
			suffix := fmt.Sprintf("  <- next in %s", remaining)
			fmt.Println(display.Urgent(snap.Urgency, line+suffix))
		case current != nil && r.Name == current.Name:
			fmt.Println(display.Dim(fmt.Sprintf("  %s  %s", name, r.Clock)))
		default:
			fmt.Printf("  %s  %s\n", name, display.Clock(r.Clock))
		}
	}

	if next.Tomorrow {
		fmt.Println()
		if next.At.IsZero() {
			fmt.Printf("  %s\n", display.Dim("No more prayers today; Fajr tomorrow cannot be computed."))
		} else {
			line := fmt.Sprintf("  Next: %s tomorrow at %s, in %s", next.Key, next.At.Format(layout), remaining)
			fmt.Println(display.Urgent(snap.Urgency, line))
		}
	}

	fmt.Println()
}

// padRight pads a string to the given width with spaces.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// todayJSON is the JSON output structure for the root command.
type todayJSON struct {
	Location todayJSONLocation `json:"location"`
	Date     todayJSONDate     `json:"date"`
	Method   api.MethodInfo    `json:"method"`
	School   string            `json:"school"`
	Timings  map[string]string `json:"timings"`
	Current  string            `json:"current"`
	Next     todayJSONNext     `json:"next"`
}

type todayJSONLocation struct {
	City      string  `json:"city,omitempty"`
	Country   string  `json:"country,omitempty"`
	Timezone  string  `json:"timezone"`
	UTCOffset float64 `json:"utcOffset"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type todayJSONDate struct {
	Gregorian string `json:"gregorian"`
	ISO       string `json:"iso"`
}

type todayJSONNext struct {
	Prayer    string         `json:"prayer"`
	Time      string         `json:"time"`
	Remaining string         `json:"remaining"`
	Urgency   prayer.Urgency `json:"urgency"`
	Tomorrow  bool           `json:"tomorrow"`
}

func jsonLocation(s *session, date prayer.Date) todayJSONLocation {
	return todayJSONLocation{
		City:      s.loc.City,
		Country:   s.loc.Country,
		Timezone:  s.zoneLabel(),
		UTCOffset: s.settings.OffsetFor(date),
		Latitude:  s.loc.Lat,
		Longitude: s.loc.Lon,
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// printTodayJSON renders structured JSON output.
func printTodayJSON(s *session, rows []dayRow, current *prayer.Prayer, snap schedule.Snapshot, now time.Time, layout string) error {
	timings := make(map[string]string, len(rows))
	for _, r := range rows {
		timings[strings.ToLower(r.Name)] = r.Clock
	}

	out := todayJSON{
		Location: jsonLocation(s, snap.Date),
		Date: todayJSONDate{
			Gregorian: formatGregorianDate(now),
			ISO:       snap.Date.String(),
		},
		Method:  api.MethodInfoOf(method.Resolve(s.settings.Method)),
		School:  api.SchoolName(s.settings.School),
		Timings: timings,
		Next: todayJSONNext{
			Prayer:   strings.ToLower(string(snap.Next.Key)),
			Time:     snap.Next.Time,
			Urgency:  snap.Urgency,
			Tomorrow: snap.Next.Tomorrow,
		},
	}

	if current != nil {
		out.Current = strings.ToLower(current.Name)
	}
	if !snap.Next.At.IsZero() {
		out.Next.Time = snap.Next.At.Format(layout)
		out.Next.Remaining = prayer.FormatRemaining(snap.Next.At.Sub(now))
	}

	return printJSON(out)
}
