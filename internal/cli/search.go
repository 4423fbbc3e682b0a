package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/salat/internal/config"
	"github.com/smokyabdulrahman/salat/internal/display"
	"github.com/smokyabdulrahman/salat/internal/geo"
)

var (
	flagSearchCount int
	flagSearchSave  int
)

// searchPlaces is swapped in tests.
var searchPlaces = geo.Search

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <place>",
		Short: "Look up a place by name",
		Long:  "Search for a city or place and print its coordinates and timezone.\nUse --save N to store the Nth result as your location.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}

	cmd.Flags().IntVar(&flagSearchCount, "count", geo.DefaultSearchCount, "Maximum number of results")
	cmd.Flags().IntVar(&flagSearchSave, "save", 0, "Save result N (1-based) to the config file")

	return cmd
}

type searchJSON struct {
	Name      string  `json:"name"`
	Region    string  `json:"region,omitempty"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	if flagSearchCount < 1 {
		return fmt.Errorf("--count must be positive, got %d", flagSearchCount)
	}

	places, err := searchPlaces(cmd.Context(), query, flagSearchCount)
	if errors.Is(err, geo.ErrNoResults) {
		return fmt.Errorf("no places match %q", query)
	}
	if err != nil {
		return err
	}

	if flagSearchSave != 0 {
		if flagSearchSave < 1 || flagSearchSave > len(places) {
			return fmt.Errorf("--save %d: pick a result between 1 and %d", flagSearchSave, len(places))
		}
		return savePlace(places[flagSearchSave-1])
	}

	if FlagJSON {
		out := make([]searchJSON, len(places))
		for i, p := range places {
			out[i] = searchJSON{
				Name:      p.Name,
				Region:    p.Admin1,
				Country:   p.Country,
				Latitude:  p.Latitude,
				Longitude: p.Longitude,
				Timezone:  p.Timezone,
			}
		}
		return printJSON(out)
	}

	tbl := display.NewTable([]string{"#", "Place", "Coordinates", "Timezone"})
	for i, p := range places {
		tbl.AddRow([]string{
			strconv.Itoa(i + 1),
			p.Label(),
			fmt.Sprintf("%.4f, %.4f", p.Latitude, p.Longitude),
			p.Timezone,
		})
	}
	fmt.Println()
	fmt.Print(tbl.Render())
	fmt.Println()
	fmt.Println("Use --save <#> to store a result as your location.")
	return nil
}

// savePlace writes the place's coordinates and zone to the config file.
func savePlace(p geo.Place) error {
	path, err := config.Path()
	if err != nil {
		return err
	}
	cfg, err := config.ReadFile(path)
	if err != nil {
		return err
	}

	cfg.City = p.Name
	cfg.Country = p.Country
	cfg.Latitude = p.Latitude
	cfg.Longitude = p.Longitude
	if p.Timezone != "" {
		if err := cfg.Set("timezone", p.Timezone); err != nil {
			return err
		}
	}

	if err := cfg.SaveTo(path); err != nil {
		return err
	}
	fmt.Printf("Saved %s (%.4f, %.4f)\n", p.Label(), p.Latitude, p.Longitude)
	return nil
}
