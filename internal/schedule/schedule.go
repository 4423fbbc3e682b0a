// Package schedule keeps the current day's prayer times at hand, recomputing
// when the local date rolls over or the settings change, and drives periodic
// status updates.
package schedule

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/salat/internal/cache"
	"github.com/smokyabdulrahman/salat/internal/method"
	"github.com/smokyabdulrahman/salat/internal/prayer"
)

const (
	dayTTL          = 48 * time.Hour
	cleanupInterval = time.Hour
)

// Settings is everything that affects which times are computed.
type Settings struct {
	Coordinates prayer.Coordinates
	// Location decides the local calendar day and, unless FixedOffset is
	// set, the UTC offset for that day.
	Location *time.Location
	// FixedOffset overrides the offset derived from Location.
	FixedOffset *float64
	Method      int
	School      int
	Thresholds  prayer.Thresholds
}

// Validate reports the first setting that no calculation can use.
func (s Settings) Validate() error {
	lat, lon := s.Coordinates.Latitude, s.Coordinates.Longitude
	if outside(lat, -90, 90) || outside(lon, -180, 180) {
		return fmt.Errorf("coordinates out of range: %g, %g", lat, lon)
	}
	if !method.Valid(s.Method) {
		return fmt.Errorf("unknown calculation method %d", s.Method)
	}
	if s.School != 0 && s.School != 1 {
		return fmt.Errorf("school must be 0 (Shafi) or 1 (Hanafi), got %d", s.School)
	}
	if s.FixedOffset != nil && outside(*s.FixedOffset, -12, 14) {
		return fmt.Errorf("utc offset must be between -12 and 14, got %g", *s.FixedOffset)
	}
	if th := s.Thresholds; th.RedMinutes < 0 || th.RedMinutes >= th.OrangeMinutes {
		return fmt.Errorf("red threshold (%d min) must be below orange (%d min)", th.RedMinutes, th.OrangeMinutes)
	}
	return nil
}

func outside(v, lo, hi float64) bool {
	return math.IsNaN(v) || v < lo || v > hi
}

func (s Settings) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// OffsetFor returns the offset in hours to use for date.
func (s Settings) OffsetFor(date prayer.Date) float64 {
	if s.FixedOffset != nil {
		return *s.FixedOffset
	}
	return OffsetAt(s.location(), date)
}

// Request builds the computation request for date.
func (s Settings) Request(date prayer.Date) prayer.Request {
	return prayer.Request{
		Date:        date,
		Coordinates: s.Coordinates,
		UTCOffset:   s.OffsetFor(date),
		Method:      s.Method,
		AsrFactor:   prayer.ShadowFactor(s.School),
	}
}

// OffsetAt evaluates loc at local noon of date and returns its UTC offset in
// hours. Noon keeps the answer stable on days with a DST transition.
func OffsetAt(loc *time.Location, date prayer.Date) float64 {
	noon := time.Date(date.Year, date.Month, date.Day, 12, 0, 0, 0, loc)
	_, secs := noon.Zone()
	return float64(secs) / 3600
}

// Store persists computed days between runs.
type Store interface {
	LoadTimes(key cache.Key) (prayer.TimeSet, bool)
	SaveTimes(key cache.Key, times prayer.TimeSet) error
}

// Snapshot is the state reported at one instant.
type Snapshot struct {
	Date    prayer.Date
	Times   prayer.TimeSet
	Next    prayer.Next
	Urgency prayer.Urgency
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithStore adds a persistent store behind the in-memory cache.
func WithStore(st Store) Option {
	return func(s *Scheduler) { s.store = st }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// Scheduler is safe for concurrent use.
type Scheduler struct {
	mu       sync.RWMutex
	settings Settings

	days  *gocache.Cache
	store Store
	log   zerolog.Logger
}

// New creates a Scheduler for the given settings.
func New(settings Settings, opts ...Option) *Scheduler {
	s := &Scheduler{
		settings: settings,
		days:     gocache.New(dayTTL, cleanupInterval),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Settings returns the current settings.
func (s *Scheduler) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Update replaces the settings and drops every cached day.
func (s *Scheduler) Update(settings Settings) {
	s.mu.Lock()
	s.settings = settings
	s.days.Flush()
	s.mu.Unlock()
	s.log.Debug().Msg("settings changed, day cache flushed")
}

// Times returns the prayer times for date, computing them at most once per
// settings.
func (s *Scheduler) Times(date prayer.Date) prayer.TimeSet {
	s.mu.RLock()
	settings := s.settings
	s.mu.RUnlock()
	return s.times(settings, date)
}

func (s *Scheduler) times(settings Settings, date prayer.Date) prayer.TimeSet {
	req := settings.Request(date)
	key := cache.Key{
		Date:      date,
		Latitude:  req.Coordinates.Latitude,
		Longitude: req.Coordinates.Longitude,
		UTCOffset: req.UTCOffset,
		Method:    settings.Method,
		School:    settings.School,
	}
	memKey := fmt.Sprintf("%s|%.6f|%.6f|%g|%d|%d",
		date, key.Latitude, key.Longitude, key.UTCOffset, key.Method, key.School)

	if v, ok := s.days.Get(memKey); ok {
		if ts, ok := v.(prayer.TimeSet); ok {
			return ts
		}
	}

	if s.store != nil {
		if ts, ok := s.store.LoadTimes(key); ok {
			s.days.SetDefault(memKey, ts)
			return ts
		}
	}

	ts := prayer.ComputeWith(req)
	s.log.Debug().
		Str("date", date.String()).
		Float64("utc_offset", req.UTCOffset).
		Int("method", settings.Method).
		Msg("computed prayer times")

	s.days.SetDefault(memKey, ts)
	if s.store != nil {
		if err := s.store.SaveTimes(key, ts); err != nil {
			s.log.Warn().Err(err).Msg("could not persist prayer times")
		}
	}
	return ts
}

// Today returns the local date at now and its times.
func (s *Scheduler) Today(now time.Time) (prayer.Date, prayer.TimeSet) {
	s.mu.RLock()
	settings := s.settings
	s.mu.RUnlock()

	date := prayer.DateOf(now.In(settings.location()))
	return date, s.times(settings, date)
}

// Status classifies now against today's times.
func (s *Scheduler) Status(now time.Time) Snapshot {
	s.mu.RLock()
	settings := s.settings
	s.mu.RUnlock()

	local := now.In(settings.location())
	date := prayer.DateOf(local)
	times := s.times(settings, date)
	next, urgency := prayer.StatusWithTomorrow(times, func() prayer.TimeSet {
		return s.times(settings, date.AddDays(1))
	}, settings.Thresholds, local)

	return Snapshot{Date: date, Times: times, Next: next, Urgency: urgency}
}

// Sink receives snapshots from Run.
type Sink interface {
	Send(ctx context.Context, snap Snapshot) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, snap Snapshot) error

// Send calls f.
func (f SinkFunc) Send(ctx context.Context, snap Snapshot) error { return f(ctx, snap) }

// Run sends a snapshot immediately and then every interval until ctx is
// done. Sink errors are logged and do not stop the loop.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration, clock func() time.Time, sink Sink) error {
	if interval <= 0 {
		return fmt.Errorf("schedule: interval must be positive, got %s", interval)
	}
	if clock == nil {
		clock = time.Now
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		snap := s.Status(clock())
		if err := sink.Send(ctx, snap); err != nil {
			s.log.Warn().Err(err).Str("next", string(snap.Next.Key)).Msg("status update failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
