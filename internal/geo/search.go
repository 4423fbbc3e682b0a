package geo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrNoResults is returned when a place search matches nothing.
var ErrNoResults = errors.New("no matching places")

var searchAPIURL = "https://geocoding-api.open-meteo.com/v1/search"

// DefaultSearchCount is how many candidates a search asks for.
const DefaultSearchCount = 5

// Place is one geocoding candidate.
type Place struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Admin1    string  `json:"admin1"`
	Admin2    string  `json:"admin2"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
}

// Label renders the place as "Name, Region, Country", skipping empty parts.
func (p Place) Label() string {
	parts := make([]string, 0, 4)
	for _, s := range []string{p.Name, p.Admin2, p.Admin1, p.Country} {
		if s != "" && (len(parts) == 0 || parts[len(parts)-1] != s) {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// Location converts the candidate to a Location.
func (p Place) Location() Location {
	return Location{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		City:      p.Name,
		Country:   p.Country,
		Timezone:  p.Timezone,
	}
}

type searchResponse struct {
	Results []Place `json:"results"`
}

// Search looks up places matching query using the Open-Meteo geocoding API.
// A count of zero or less asks for DefaultSearchCount candidates.
func Search(ctx context.Context, query string, count int) ([]Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("geocoding: empty query")
	}
	if count <= 0 {
		count = DefaultSearchCount
	}

	params := url.Values{}
	params.Set("name", query)
	params.Set("count", strconv.Itoa(count))
	params.Set("language", "en")
	params.Set("format", "json")

	var result searchResponse
	if err := getJSON(ctx, searchAPIURL+"?"+params.Encode(), &result); err != nil {
		return nil, fmt.Errorf("geocoding %q: %w", query, err)
	}
	if len(result.Results) == 0 {
		return nil, fmt.Errorf("geocoding %q: %w", query, ErrNoResults)
	}
	return result.Results, nil
}

// Resolve returns the best match for a city, optionally narrowed by country.
// When country is set, the first candidate in that country wins; otherwise
// the first candidate overall.
func Resolve(ctx context.Context, city, country string) (*Location, error) {
	places, err := Search(ctx, city, DefaultSearchCount)
	if err != nil {
		return nil, err
	}

	best := places[0]
	if country != "" {
		for _, p := range places {
			if strings.EqualFold(p.Country, country) {
				best = p
				break
			}
		}
	}
	loc := best.Location()
	return &loc, nil
}
