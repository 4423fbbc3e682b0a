package cli

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/salat/internal/cache"
	"github.com/smokyabdulrahman/salat/internal/config"
	"github.com/smokyabdulrahman/salat/internal/geo"
	"github.com/smokyabdulrahman/salat/internal/method"
	"github.com/smokyabdulrahman/salat/internal/prayer"
	"github.com/smokyabdulrahman/salat/internal/schedule"
)

// cacheRetention is how many past days of computed times are kept on disk.
const cacheRetention = 7

// locationSource describes how the location was found.
type locationSource string

const (
	sourceCoords locationSource = "coordinates"
	sourceCity   locationSource = "city"
	sourceCached locationSource = "cached"
	sourceIP     locationSource = "ip"
)

// resolvedLocation holds the result of location resolution.
type resolvedLocation struct {
	Source   locationSource
	Lat, Lon float64
	City     string
	Country  string
	Timezone string // optional hint from geocoding or geo-detection
}

// Label builds a "City, Country" string, falling back to coordinates.
func (l resolvedLocation) Label() string {
	if l.City != "" && l.Country != "" {
		return l.City + ", " + l.Country
	}
	if l.City != "" {
		return l.City
	}
	return fmt.Sprintf("%.4f, %.4f", l.Lat, l.Lon)
}

// lookup is the network side of location resolution, swapped in tests.
type lookup struct {
	resolve func(ctx context.Context, city, country string) (*geo.Location, error)
	detect  func(ctx context.Context) (*geo.Location, error)
}

var locator = lookup{resolve: geo.Resolve, detect: geo.DetectLocation}

// resolveLocation determines the effective location.
// Priority: coordinates > city > cached geolocation > IP auto-detect.
func resolveLocation(ctx context.Context, cfg *config.Config, c *cache.Cache) (resolvedLocation, error) {
	switch {
	case cfg.Latitude != 0 || cfg.Longitude != 0:
		return resolvedLocation{
			Source:  sourceCoords,
			Lat:     cfg.Latitude,
			Lon:     cfg.Longitude,
			City:    cfg.City,
			Country: cfg.Country,
		}, nil
	case cfg.City != "":
		found, err := locator.resolve(ctx, cfg.City, cfg.Country)
		if err != nil {
			return resolvedLocation{}, fmt.Errorf("cannot find %q: %w", cfg.City, err)
		}
		return fromGeo(sourceCity, found), nil
	}

	// Try cached geolocation first.
	if c != nil {
		if cached := c.LoadGeo(); cached != nil {
			return fromGeo(sourceCached, cached), nil
		}
	}

	detected, err := locator.detect(ctx)
	if err != nil {
		return resolvedLocation{}, fmt.Errorf("no location specified and auto-detection failed: %w", err)
	}

	if c != nil {
		if err := c.SaveGeo(detected); err != nil {
			logger.Warn().Err(err).Msg("could not cache detected location")
		}
	}

	return fromGeo(sourceIP, detected), nil
}

func fromGeo(src locationSource, g *geo.Location) resolvedLocation {
	return resolvedLocation{
		Source:   src,
		Lat:      g.Latitude,
		Lon:      g.Longitude,
		City:     g.City,
		Country:  g.Country,
		Timezone: g.Timezone,
	}
}

// buildSettings turns the merged config and the resolved location into
// calculation settings. A fixed UTC offset wins over any zone name; otherwise
// the zone comes from the config, the location lookup, or the system.
func buildSettings(cfg *config.Config, loc resolvedLocation) (schedule.Settings, error) {
	st := schedule.Settings{
		Coordinates: prayer.Coordinates{Latitude: loc.Lat, Longitude: loc.Lon},
		Method:      cfg.MethodOrDefault(method.Default),
		School:      cfg.SchoolOrDefault(0),
		Thresholds:  cfg.Thresholds(),
	}
	if cfg.UTCOffset != nil {
		offset := *cfg.UTCOffset
		st.FixedOffset = &offset
	}
	if err := st.Validate(); err != nil {
		return st, fmt.Errorf("%w (location %s; see `salat methods` for method ids)", err, loc.Label())
	}

	if st.FixedOffset != nil {
		offset := *st.FixedOffset
		st.Location = time.FixedZone(offsetName(offset), int(math.Round(offset*3600)))
		return st, nil
	}

	tz := cfg.Timezone
	if tz == "" {
		tz = loc.Timezone
	}
	if tz == "" {
		st.Location = time.Local
		return st, nil
	}
	zone, err := time.LoadLocation(tz)
	if err != nil {
		return st, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	st.Location = zone
	return st, nil
}

// offsetName renders an offset as "UTC+3" or "UTC+5:30".
func offsetName(offset float64) string {
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	mins := int(math.Round(offset * 60))
	if mins%60 == 0 {
		return fmt.Sprintf("UTC%s%d", sign, mins/60)
	}
	return fmt.Sprintf("UTC%s%d:%02d", sign, mins/60, mins%60)
}

// session is what every schedule-backed command works from.
type session struct {
	cfg      *config.Config
	loc      resolvedLocation
	settings schedule.Settings
	cache    *cache.Cache
	sched    *schedule.Scheduler
	log      zerolog.Logger
}

// newSession merges the config, opens the cache, resolves the location and
// builds a scheduler backed by the on-disk cache.
func newSession(ctx context.Context, cfg *config.Config) (*session, error) {
	c, err := cache.New(cfg.CacheDir)
	if err != nil {
		// Cache init failure is non-fatal; we just skip caching.
		logger.Warn().Err(err).Msg("cache disabled")
		c = nil
	}

	loc, err := resolveLocation(ctx, cfg, c)
	if err != nil {
		return nil, err
	}

	st, err := buildSettings(cfg, loc)
	if err != nil {
		return nil, err
	}

	opts := []schedule.Option{schedule.WithLogger(logger)}
	if c != nil {
		opts = append(opts, schedule.WithStore(c))
	}

	s := &session{
		cfg:      cfg,
		loc:      loc,
		settings: st,
		cache:    c,
		sched:    schedule.New(st, opts...),
		log:      logger,
	}
	s.prune()

	logger.Debug().
		Str("source", string(loc.Source)).
		Float64("lat", loc.Lat).
		Float64("lon", loc.Lon).
		Str("zone", st.Location.String()).
		Int("method", st.Method).
		Int("school", st.School).
		Msg("session ready")
	return s, nil
}

// now returns the current instant in the session's zone.
func (s *session) now() time.Time {
	return time.Now().In(s.settings.Location)
}

// zoneLabel names the zone for display.
func (s *session) zoneLabel() string {
	return s.settings.Location.String()
}

// prune drops cached days older than the retention window.
func (s *session) prune() {
	if s.cache == nil {
		return
	}
	cutoff := prayer.DateOf(s.now()).AddDays(-cacheRetention)
	n, err := s.cache.Prune(cutoff)
	if err != nil {
		s.log.Warn().Err(err).Msg("cache prune failed")
		return
	}
	if n > 0 {
		s.log.Debug().Int("removed", n).Msg("pruned cached days")
	}
}

// selectedPrayers returns the prayer list from the flag, the config, or the
// default, in that order.
func selectedPrayers(flag string, cfg *config.Config) ([]string, error) {
	names := cfg.PrayerNames()
	if flag != "" {
		names = splitNames(flag)
	}
	if len(names) == 0 {
		return prayer.DefaultPrayerNames, nil
	}
	for i, n := range names {
		k, ok := prayer.ParseKey(n)
		if !ok {
			return nil, fmt.Errorf("unknown prayer name: %s", n)
		}
		names[i] = string(k)
	}
	return names, nil
}
