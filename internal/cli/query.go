package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/salat/internal/display"
	"github.com/smokyabdulrahman/salat/internal/prayer"
)

var flagQueryDays string

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <prayer>",
		Short: "Query a specific prayer time",
		Long:  "Query a specific prayer time for today, or across multiple days with --days.\n\nValid prayer names: " + strings.Join(prayer.DefaultPrayerNames, ", "),
		Args:  cobra.ExactArgs(1),
		RunE:  runQuery,
	}

	cmd.Flags().StringVar(&flagQueryDays, "days", "", "Number of days to show (or 'week'/'month')")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string) error {
	key, ok := prayer.ParseKey(args[0])
	if !ok {
		return fmt.Errorf("unknown prayer %q; valid names: %s", args[0], strings.Join(prayer.DefaultPrayerNames, ", "))
	}
	name := string(key)

	days := 1
	if flagQueryDays != "" {
		n, err := parseDays(flagQueryDays)
		if err != nil {
			return fmt.Errorf("invalid --days value: %w", err)
		}
		days = n
	}

	cfg := effectiveConfig(cmd)
	layout := prayer.Layout(cfg.TimeFormat)

	s, err := newSession(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	today := prayer.DateOf(s.now())
	daysList := s.days(today, days)

	if days == 1 {
		return printQuerySingle(s, daysList[0], name, layout)
	}
	return printQueryMulti(s, daysList, today, name, layout)
}

// clockFor returns the formatted time of one prayer on one day.
func clockFor(dd dayData, name, layout string) (string, error) {
	rows, _, err := dayRows(dd.Times, dd.Local, []string{name}, layout)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("no timing found for %s", name)
	}
	return rows[0].Clock, nil
}

type queryJSONSingle struct {
	Prayer string `json:"prayer"`
	Time   string `json:"time"`
	Date   string `json:"date"`
}

func printQuerySingle(s *session, dd dayData, name, layout string) error {
	clock, err := clockFor(dd, name, layout)
	if err != nil {
		return err
	}

	if FlagJSON {
		return printJSON(queryJSONSingle{
			Prayer: strings.ToLower(name),
			Time:   clock,
			Date:   dd.Date.String(),
		})
	}

	fmt.Printf("%s %s\n", name, clock)
	return nil
}

type queryJSONMulti struct {
	Location todayJSONLocation `json:"location"`
	Prayer   string            `json:"prayer"`
	Days     []queryJSONDay    `json:"days"`
}

type queryJSONDay struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

func printQueryMulti(s *session, daysList []dayData, today prayer.Date, name, layout string) error {
	if FlagJSON {
		out := queryJSONMulti{
			Location: jsonLocation(s, today),
			Prayer:   strings.ToLower(name),
		}
		for _, dd := range daysList {
			clock, err := clockFor(dd, name, layout)
			if err != nil {
				return err
			}
			out.Days = append(out.Days, queryJSONDay{Date: dd.Date.String(), Time: clock})
		}
		return printJSON(out)
	}

	fmt.Println()
	fmt.Printf("  %s\n", display.Bold(fmt.Sprintf("%s Times — %d Days", name, len(daysList))))
	fmt.Println()
	fmt.Printf("  %s\n", s.loc.Label())
	fmt.Println()

	tbl, err := dayTable(daysList, today, []string{name}, layout)
	if err != nil {
		return err
	}
	fmt.Print(tbl.Render())
	fmt.Println()
	return nil
}
