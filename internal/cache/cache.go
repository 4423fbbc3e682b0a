// Package cache persists computed prayer times and the last IP geolocation
// result as small JSON files, so repeated status-line invocations stay cheap.
package cache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/smokyabdulrahman/salat/internal/geo"
	"github.com/smokyabdulrahman/salat/internal/prayer"
)

const (
	timesFilePrefix = "times_"
	geoCacheFile    = "geolocation.json"
	geoTTL          = 24 * time.Hour
)

// Cache provides file-based caching for prayer times and geolocation data.
type Cache struct {
	dir string
	now func() time.Time
}

// Key identifies every input that affects a day's prayer times. Two keys
// that differ in any field never share an entry, so changing settings is a
// cache miss.
type Key struct {
	Date      prayer.Date
	Latitude  float64
	Longitude float64
	UTCOffset float64
	Method    int
	School    int
}

// TimesEntry stores a day's prayer times along with the inputs that produced
// them.
type TimesEntry struct {
	Date      string         `json:"date"` // YYYY-MM-DD
	Latitude  float64        `json:"latitude"`
	Longitude float64        `json:"longitude"`
	UTCOffset float64        `json:"utc_offset"`
	Method    int            `json:"method"`
	School    int            `json:"school"`
	Times     prayer.TimeSet `json:"times"`
}

// GeoCacheEntry stores a cached geolocation result with a timestamp.
type GeoCacheEntry struct {
	Location geo.Location `json:"location"`
	CachedAt time.Time    `json:"cached_at"`
}

// DefaultDir returns ~/.cache/salat.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".cache", "salat"), nil
}

// New creates a Cache rooted at the given directory.
// If dir is empty, it defaults to DefaultDir.
func New(dir string) (*Cache, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create cache directory %s: %w", dir, err)
	}

	return &Cache{dir: dir, now: time.Now}, nil
}

// Dir returns the directory the cache writes to.
func (c *Cache) Dir() string { return c.dir }

// fileName is "times_<date>_<hash>.json". The date prefix lets Prune work on
// names alone.
func (k Key) fileName() string {
	raw := fmt.Sprintf("%s|%.6f|%.6f|%.4f|%d|%d",
		k.Date, k.Latitude, k.Longitude, k.UTCOffset, k.Method, k.School)
	h := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%s_%x.json", timesFilePrefix, k.Date, h[:8])
}

// LoadTimes returns the cached times for key, or false when the entry is
// missing, unreadable, or was written for another date.
func (c *Cache) LoadTimes(key Key) (prayer.TimeSet, bool) {
	data, err := os.ReadFile(filepath.Join(c.dir, key.fileName()))
	if err != nil {
		return prayer.TimeSet{}, false
	}

	var entry TimesEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return prayer.TimeSet{}, false
	}

	if entry.Date != key.Date.String() {
		return prayer.TimeSet{}, false
	}

	return entry.Times, true
}

// SaveTimes writes a day's prayer times to the cache.
func (c *Cache) SaveTimes(key Key, times prayer.TimeSet) error {
	entry := TimesEntry{
		Date:      key.Date.String(),
		Latitude:  key.Latitude,
		Longitude: key.Longitude,
		UTCOffset: key.UTCOffset,
		Method:    key.Method,
		School:    key.School,
		Times:     times,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if err := writeFile(filepath.Join(c.dir, key.fileName()), data); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	return nil
}

// Prune removes cached times for dates before the given one and reports how
// many files were deleted.
func (c *Cache) Prune(before prayer.Date) (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read cache directory: %w", err)
	}

	cutoff := before.String()
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, timesFilePrefix) {
			continue
		}
		date, _, ok := strings.Cut(strings.TrimPrefix(name, timesFilePrefix), "_")
		// YYYY-MM-DD compares correctly as a string.
		if !ok || len(date) != len(cutoff) || date >= cutoff {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, name)); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", name, err)
		}
		removed++
	}
	return removed, nil
}

// LoadGeo attempts to read a cached geolocation result.
// Returns nil if the cache is missing or older than the TTL (24 hours).
func (c *Cache) LoadGeo() *geo.Location {
	data, err := os.ReadFile(filepath.Join(c.dir, geoCacheFile))
	if err != nil {
		return nil
	}

	var entry GeoCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil
	}

	if c.now().Sub(entry.CachedAt) > geoTTL {
		return nil
	}

	return &entry.Location
}

// SaveGeo writes a geolocation result to the cache.
func (c *Cache) SaveGeo(loc *geo.Location) error {
	entry := GeoCacheEntry{
		Location: *loc,
		CachedAt: c.now(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal geo cache: %w", err)
	}

	if err := writeFile(filepath.Join(c.dir, geoCacheFile), data); err != nil {
		return fmt.Errorf("failed to write geo cache: %w", err)
	}

	return nil
}

// writeFile replaces path atomically so a concurrent reader never sees a
// half-written entry.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
