package cli

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/salat/internal/api"
	"github.com/smokyabdulrahman/salat/internal/display"
	"github.com/smokyabdulrahman/salat/internal/prayer"
	"github.com/smokyabdulrahman/salat/internal/reference"
)

var (
	flagVerifyDate      string
	flagVerifyTolerance time.Duration
	flagVerifyOnline    bool
)

// newAPIClient is swapped in tests.
var newAPIClient = api.NewClient

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Cross-check computed times against a reference ephemeris",
		Long:  "Compare the computed Fajr, Sunrise, Maghrib and Isha against an independent\nsolar ephemeris and, with --online, against the Al Adhan API.\nExits non-zero when the ephemeris disagrees beyond --tolerance.",
		Args:  cobra.NoArgs,
		RunE:  runVerify,
	}

	cmd.Flags().StringVar(&flagVerifyDate, "date", "", "Date to check, YYYY-MM-DD (default: today)")
	cmd.Flags().DurationVar(&flagVerifyTolerance, "tolerance", 3*time.Minute, "Largest accepted difference")
	cmd.Flags().BoolVar(&flagVerifyOnline, "online", false, "Also fetch the Al Adhan API for comparison")

	return cmd
}

// clockDiff returns a minus b in minutes on the 24 hour circle.
func clockDiff(a, b string) (float64, bool) {
	ah, am, err := prayer.ParseClock(a)
	if err != nil {
		return 0, false
	}
	bh, bm, err := prayer.ParseClock(b)
	if err != nil {
		return 0, false
	}
	d := (ah*60 + am) - (bh*60 + bm)
	switch {
	case d >= 720:
		d -= 1440
	case d < -720:
		d += 1440
	}
	return float64(d), true
}

func formatDelta(minutes float64, ok bool) string {
	if !ok || math.IsNaN(minutes) {
		return "-"
	}
	return fmt.Sprintf("%+.1f", minutes)
}

type verifyJSON struct {
	Date      string             `json:"date"`
	Tolerance string             `json:"tolerance"`
	Agrees    bool               `json:"agrees"`
	Rows      []verifyJSONRow    `json:"rows"`
	Online    map[string]string  `json:"online,omitempty"`
	Deltas    map[string]float64 `json:"deltas,omitempty"`
}

type verifyJSONRow struct {
	Prayer    string   `json:"prayer"`
	Local     string   `json:"local"`
	Reference string   `json:"reference"`
	Minutes   *float64 `json:"minutes"`
	Agrees    bool     `json:"agrees"`
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg := effectiveConfig(cmd)

	s, err := newSession(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	date := prayer.DateOf(s.now())
	if flagVerifyDate != "" {
		if date, err = prayer.ParseDate(flagVerifyDate); err != nil {
			return err
		}
	}

	req := s.settings.Request(date)
	local := prayer.Solve(req)
	localTimes := local.Format()
	deltas := reference.Compare(local, reference.Solve(req))

	var online prayer.TimeSet
	if flagVerifyOnline {
		q := api.Query{
			Coordinates: req.Coordinates,
			Method:      s.settings.Method,
			School:      s.settings.School,
		}
		if s.settings.FixedOffset == nil {
			q.Timezone = s.zoneLabel()
		}
		resp, err := newAPIClient().FetchByCoordinates(cmd.Context(), date, q)
		if err != nil {
			return fmt.Errorf("online check failed: %w", err)
		}
		online = resp.Data.Timings.TimeSet()
	}

	var failed []string
	for _, d := range deltas {
		if !d.Agrees(flagVerifyTolerance) {
			failed = append(failed, string(d.Key))
		}
	}

	if FlagJSON {
		out := verifyJSON{
			Date:      date.String(),
			Tolerance: flagVerifyTolerance.String(),
			Agrees:    len(failed) == 0,
		}
		for _, d := range deltas {
			row := verifyJSONRow{
				Prayer:    strings.ToLower(string(d.Key)),
				Local:     prayer.FormatDecimalHour(d.Local),
				Reference: prayer.FormatDecimalHour(d.Reference),
				Agrees:    d.Agrees(flagVerifyTolerance),
			}
			if !math.IsNaN(d.Minutes) {
				m := d.Minutes
				row.Minutes = &m
			}
			out.Rows = append(out.Rows, row)
		}
		if flagVerifyOnline {
			out.Online = make(map[string]string, len(prayer.Keys))
			out.Deltas = make(map[string]float64, len(prayer.Keys))
			for _, e := range online.Entries() {
				name := strings.ToLower(string(e.Key))
				out.Online[name] = e.Time
				if diff, ok := clockDiff(localTimes.Get(e.Key), e.Time); ok {
					out.Deltas[name] = diff
				}
			}
		}
		if err := printJSON(out); err != nil {
			return err
		}
	} else {
		printVerifyTable(s, date, deltas, localTimes, online)
	}

	if len(failed) > 0 {
		return fmt.Errorf("%s differ from the reference by more than %s", strings.Join(failed, ", "), flagVerifyTolerance)
	}
	return nil
}

func printVerifyTable(s *session, date prayer.Date, deltas []reference.Delta, local, online prayer.TimeSet) {
	fmt.Println()
	fmt.Printf("  %s\n", display.Bold("Verification"))
	fmt.Println()
	fmt.Printf("  %s, %s\n", s.loc.Label(), date)
	fmt.Printf("  %s\n", display.Dim(methodLabel(s.settings)))
	fmt.Println()

	headers := []string{"Prayer", "Local", "Ephemeris", "Δ min"}
	if flagVerifyOnline {
		headers = append(headers, "Al Adhan", "Δ min")
	}
	tbl := display.NewTable(headers)

	ref := make(map[prayer.Key]reference.Delta, len(deltas))
	for _, d := range deltas {
		ref[d.Key] = d
	}

	for _, k := range prayer.Keys {
		row := []string{string(k), local.Get(k), "", ""}
		if d, ok := ref[k]; ok {
			row[2] = prayer.FormatDecimalHour(d.Reference)
			row[3] = formatDelta(d.Minutes, true)
			if !d.Agrees(flagVerifyTolerance) {
				row[3] += " !"
			}
		}
		if flagVerifyOnline {
			diff, ok := clockDiff(local.Get(k), online.Get(k))
			row = append(row, online.Get(k), formatDelta(diff, ok))
		}
		tbl.AddRow(row)
	}

	fmt.Print(tbl.Render())
	fmt.Println()
}
