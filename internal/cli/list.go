package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/salat/internal/display"
	"github.com/smokyabdulrahman/salat/internal/prayer"
)

// maxDays bounds list and query ranges.
const maxDays = 366

// dayData holds a single day's computed times for list/query output.
type dayData struct {
	Date  prayer.Date
	Local time.Time // midnight of Date in the session zone
	Times prayer.TimeSet
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [days]",
		Short: "Show prayer times for multiple days",
		Long:  "Display a grid of prayer times for N days (default: 7).",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, args, 7)
		},
	}
}

func newWeekCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "week",
		Short: "Show prayer times for the next 7 days",
		Long:  "Alias for 'list 7'. Display a grid of prayer times for 7 days.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, nil, 7)
		},
	}
}

func newMonthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "month",
		Short: "Show prayer times for the next 30 days",
		Long:  "Alias for 'list 30'. Display a grid of prayer times for 30 days.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, nil, 30)
		},
	}
}

// parseDays reads a day count: a positive integer, "week" or "month".
func parseDays(s string) (int, error) {
	switch s {
	case "week":
		return 7, nil
	case "month":
		return 30, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid number of days: %q (must be a positive integer, 'week', or 'month')", s)
	}
	if n > maxDays {
		return 0, fmt.Errorf("invalid number of days: %d (at most %d)", n, maxDays)
	}
	return n, nil
}

// runList is the handler for the list subcommand.
func runList(cmd *cobra.Command, args []string, defaultDays int) error {
	days := defaultDays
	if len(args) > 0 {
		n, err := parseDays(args[0])
		if err != nil {
			return err
		}
		days = n
	}

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

	today := prayer.DateOf(s.now())
	daysList := s.days(today, days)

	if FlagJSON {
		return printListJSON(s, daysList, selected, layout)
	}

	fmt.Println()
	fmt.Printf("  %s\n", display.Bold(fmt.Sprintf("Prayer Times — %d Days", days)))
	fmt.Println()
	fmt.Printf("  %s\n", s.loc.Label())
	fmt.Printf("  %s\n", display.Dim(methodLabel(s.settings)))
	fmt.Println()

	tbl, err := dayTable(daysList, today, selected, layout)
	if err != nil {
		return err
	}
	fmt.Print(tbl.Render())
	fmt.Println()
	return nil
}

// days returns n consecutive days starting at start.
func (s *session) days(start prayer.Date, n int) []dayData {
	out := make([]dayData, n)
	for i := range out {
		d := start.AddDays(i)
		out[i] = dayData{
			Date:  d,
			Local: d.In(s.settings.Location),
			Times: s.sched.Times(d),
		}
	}
	return out
}

// dayTable builds a date-by-prayer grid with today's row highlighted.
func dayTable(daysList []dayData, today prayer.Date, selected []string, layout string) (*display.Table, error) {
	headers := append([]string{"Date"}, selected...)
	tbl := display.NewTable(headers)

	for i, dd := range daysList {
		rows, _, err := dayRows(dd.Times, dd.Local, selected, layout)
		if err != nil {
			return nil, err
		}

		row := []string{dd.Local.Format("Mon 02 Jan")}
		for _, r := range rows {
			row = append(row, r.Clock)
		}
		tbl.AddRow(row)

		if dd.Date == today {
			tbl.SetHighlightRow(i)
		}
	}
	return tbl, nil
}

// listJSONOutput is the JSON structure for the list command.
type listJSONOutput struct {
	Location todayJSONLocation `json:"location"`
	Days     []listJSONDay     `json:"days"`
}

type listJSONDay struct {
	Date    string            `json:"date"`
	Timings map[string]string `json:"timings"`
}

func printListJSON(s *session, daysList []dayData, selected []string, layout string) error {
	out := listJSONOutput{Location: jsonLocation(s, daysList[0].Date)}

	for _, dd := range daysList {
		rows, _, err := dayRows(dd.Times, dd.Local, selected, layout)
		if err != nil {
			return err
		}

		timings := make(map[string]string, len(rows))
		for _, r := range rows {
			timings[strings.ToLower(r.Name)] = r.Clock
		}

		out.Days = append(out.Days, listJSONDay{
			Date:    dd.Date.String(),
			Timings: timings,
		})
	}

	return printJSON(out)
}
