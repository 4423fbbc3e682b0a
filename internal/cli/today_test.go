package cli

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/smokyabdulrahman/salat/internal/cache"
	"github.com/smokyabdulrahman/salat/internal/config"
	"github.com/smokyabdulrahman/salat/internal/display"
	"github.com/smokyabdulrahman/salat/internal/geo"
	"github.com/smokyabdulrahman/salat/internal/prayer"
	"github.com/smokyabdulrahman/salat/internal/schedule"
)

var riyadhZone = time.FixedZone("UTC+3", 3*3600)

func riyadhSession() *session {
	offset := 3.0
	st := schedule.Settings{
		Coordinates: prayer.Coordinates{Latitude: 24.7136, Longitude: 46.6753},
		Location:    riyadhZone,
		FixedOffset: &offset,
		Method:      4,
		Thresholds:  prayer.DefaultThresholds,
	}
	return &session{
		loc:      resolvedLocation{Source: sourceCoords, Lat: 24.7136, Lon: 46.6753},
		settings: st,
		sched:    schedule.New(st),
	}
}

func TestResolvedLocation_Label(t *testing.T) {
	tests := []struct {
		loc  resolvedLocation
		want string
	}{
		{resolvedLocation{City: "Riyadh", Country: "Saudi Arabia"}, "Riyadh, Saudi Arabia"},
		{resolvedLocation{City: "Riyadh"}, "Riyadh"},
		{resolvedLocation{Lat: 24.7136, Lon: 46.6753}, "24.7136, 46.6753"},
	}
	for _, tt := range tests {
		if got := tt.loc.Label(); got != tt.want {
			t.Errorf("Label() = %q, want %q", got, tt.want)
		}
	}
}

func TestPadRight(t *testing.T) {
	tests := []struct {
		s     string
		width int
		want  string
	}{
		{"Fajr", 7, "Fajr   "},
		{"Maghrib", 7, "Maghrib"},
		{"Isha", 4, "Isha"},
		{"A", 10, "A         "},
	}

	for _, tt := range tests {
		got := padRight(tt.s, tt.width)
		if got != tt.want {
			t.Errorf("padRight(%q, %d) = %q, want %q", tt.s, tt.width, got, tt.want)
		}
	}
}

func TestDayRows_KeepsSentinel(t *testing.T) {
	times := prayer.TimeSet{
		Fajr: prayer.Sentinel, Sunrise: "05:47", Dhuhr: "13:53",
		Asr: "18:10", Maghrib: "21:58", Isha: "01:07",
	}
	day := time.Date(2024, 6, 21, 0, 0, 0, 0, time.FixedZone("CEST", 2*3600))

	rows, parsed, err := dayRows(times, day, prayer.DefaultPrayerNames, "15:04")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 6 || len(parsed) != 5 {
		t.Fatalf("got %d rows, %d parsed; want 6 and 5", len(rows), len(parsed))
	}
	if rows[0].Clock != prayer.Sentinel || !rows[0].At.IsZero() {
		t.Errorf("Fajr row = %+v, want sentinel", rows[0])
	}
	isha := rows[5]
	if isha.Clock != "01:07" || isha.At.Day() != 22 {
		t.Errorf("Isha row = %+v, want 01:07 on the 22nd", isha)
	}
}

func TestDayRows_Selection(t *testing.T) {
	s := riyadhSession()
	day := time.Date(2026, 2, 28, 0, 0, 0, 0, riyadhZone)
	times := s.sched.Times(prayer.DateOf(day))

	rows, _, err := dayRows(times, day, []string{"Maghrib", "Fajr"}, "3:04 PM")
	if err != nil {
		t.Fatal(err)
	}
	// Rows follow the day's order, not the selection's.
	if len(rows) != 2 || rows[0].Name != "Fajr" || rows[1].Name != "Maghrib" {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if rows[0].Clock != "4:59 AM" || rows[1].Clock != "5:55 PM" {
		t.Errorf("clocks = %s, %s", rows[0].Clock, rows[1].Clock)
	}
}

func TestUpcoming(t *testing.T) {
	s := riyadhSession()
	five := nextPrayerNames()

	next, err := s.upcoming(time.Date(2026, 2, 28, 13, 0, 0, 0, riyadhZone), five)
	if err != nil {
		t.Fatal(err)
	}
	if next.Name != "Asr" || next.Time.Format("15:04") != "15:26" {
		t.Errorf("at 13:00 got %s %s, want Asr 15:26", next.Name, next.Time.Format("15:04"))
	}

	next, err = s.upcoming(time.Date(2026, 2, 28, 20, 0, 0, 0, riyadhZone), five)
	if err != nil {
		t.Fatal(err)
	}
	if next.Name != "Fajr" || next.Time.Day() != 1 || next.Time.Month() != time.March {
		t.Errorf("after Isha got %s at %v, want Fajr on 1 March", next.Name, next.Time)
	}

	// Sunrise only counts when selected.
	next, err = s.upcoming(time.Date(2026, 2, 28, 5, 30, 0, 0, riyadhZone), []string{"Sunrise", "Dhuhr"})
	if err != nil {
		t.Fatal(err)
	}
	if next.Name != "Sunrise" {
		t.Errorf("got %s, want Sunrise", next.Name)
	}
}

func TestCurrentAndNext_Consistency(t *testing.T) {
	s := riyadhSession()
	now := time.Date(2026, 2, 28, 13, 0, 0, 0, riyadhZone)
	snap := s.sched.Status(now)

	_, parsed, err := dayRows(snap.Times, now, prayer.DefaultPrayerNames, "15:04")
	if err != nil {
		t.Fatal(err)
	}
	current := prayer.CurrentPrayer(parsed, now)
	if current == nil || current.Name != "Dhuhr" {
		t.Fatalf("current = %v, want Dhuhr", current)
	}
	if snap.Next.Key != prayer.Asr {
		t.Errorf("next = %s, want Asr", snap.Next.Key)
	}
}

func TestSelectedPrayers(t *testing.T) {
	cfg := &config.Config{}
	got, err := selectedPrayers("", cfg)
	if err != nil || len(got) != len(prayer.DefaultPrayerNames) {
		t.Errorf("default selection = %v, %v", got, err)
	}

	cfg.Prayers = "fajr, isha"
	got, _ = selectedPrayers("", cfg)
	if strings.Join(got, ",") != "Fajr,Isha" {
		t.Errorf("config selection = %v", got)
	}

	got, _ = selectedPrayers("asr,,MAGHRIB", cfg)
	if strings.Join(got, ",") != "Asr,Maghrib" {
		t.Errorf("flag selection = %v", got)
	}

	if _, err := selectedPrayers("Fajr,Lunch", cfg); err == nil {
		t.Error("expected error for unknown prayer")
	}
}

func TestParseDays(t *testing.T) {
	for in, want := range map[string]int{"1": 1, "7": 7, "week": 7, "month": 30, "366": 366} {
		got, err := parseDays(in)
		if err != nil || got != want {
			t.Errorf("parseDays(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	for _, in := range []string{"0", "-3", "ten", "", "367"} {
		if _, err := parseDays(in); err == nil {
			t.Errorf("parseDays(%q) should fail", in)
		}
	}
}

func TestOffsetName(t *testing.T) {
	tests := map[float64]string{3: "UTC+3", 0: "UTC+0", -5: "UTC-5", 5.5: "UTC+5:30", -3.5: "UTC-3:30", 5.75: "UTC+5:45"}
	for in, want := range tests {
		if got := offsetName(in); got != want {
			t.Errorf("offsetName(%v) = %q, want %q", in, got, want)
		}
	}
}

func intp(v int) *int { return &v }

func TestBuildSettings_FixedOffset(t *testing.T) {
	offset := 5.5
	cfg := &config.Config{UTCOffset: &offset, Timezone: "Europe/Paris", Method: intp(1), School: intp(1)}
	st, err := buildSettings(cfg, resolvedLocation{Lat: 28.6, Lon: 77.2})
	if err != nil {
		t.Fatal(err)
	}
	if st.FixedOffset == nil || *st.FixedOffset != 5.5 {
		t.Errorf("FixedOffset = %v, want 5.5", st.FixedOffset)
	}
	if _, secs := time.Date(2026, 1, 1, 12, 0, 0, 0, st.Location).Zone(); secs != 19800 {
		t.Errorf("zone offset = %d s, want 19800", secs)
	}
	if st.Method != 1 || st.School != 1 {
		t.Errorf("method/school = %d/%d", st.Method, st.School)
	}
}

func TestBuildSettings_Timezone(t *testing.T) {
	cfg := &config.Config{}
	st, err := buildSettings(cfg, resolvedLocation{Lat: 48.85, Lon: 2.35, Timezone: "Europe/Paris"})
	if err != nil {
		t.Fatal(err)
	}
	if st.Location.String() != "Europe/Paris" || st.FixedOffset != nil {
		t.Errorf("zone = %s, fixed = %v", st.Location, st.FixedOffset)
	}
	if got := st.OffsetFor(prayer.Date{Year: 2024, Month: time.June, Day: 21}); got != 2 {
		t.Errorf("summer offset = %v, want 2", got)
	}

	// The config zone wins over the detected one.
	cfg.Timezone = "Asia/Riyadh"
	st, _ = buildSettings(cfg, resolvedLocation{Timezone: "Europe/Paris"})
	if st.Location.String() != "Asia/Riyadh" {
		t.Errorf("zone = %s, want Asia/Riyadh", st.Location)
	}
}

func TestBuildSettings_Invalid(t *testing.T) {
	big := 15.0
	cases := map[string]*config.Config{
		"method":   {Method: intp(6)},
		"school":   {School: intp(2)},
		"offset":   {UTCOffset: &big},
		"timezone": {Timezone: "Mars/Olympus"},
	}
	for name, cfg := range cases {
		if _, err := buildSettings(cfg, resolvedLocation{Lat: 1, Lon: 1}); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := buildSettings(&config.Config{}, resolvedLocation{Lat: 91}); err == nil {
		t.Error("expected error for latitude 91")
	}
	nan := math.NaN()
	if _, err := buildSettings(&config.Config{UTCOffset: &nan}, resolvedLocation{Lat: 1, Lon: 1}); err == nil {
		t.Error("expected error for NaN utc offset")
	}
}

// stubLocator replaces the network lookups for one test.
func stubLocator(t *testing.T, l lookup) {
	t.Helper()
	orig := locator
	locator = l
	t.Cleanup(func() { locator = orig })
}

func failLookup(t *testing.T) lookup {
	return lookup{
		resolve: func(context.Context, string, string) (*geo.Location, error) {
			t.Error("unexpected geocoding call")
			return nil, errors.New("unexpected")
		},
		detect: func(context.Context) (*geo.Location, error) {
			t.Error("unexpected IP lookup")
			return nil, errors.New("unexpected")
		},
	}
}

func TestResolveLocation_Coordinates(t *testing.T) {
	stubLocator(t, failLookup(t))

	cfg := &config.Config{Latitude: 21.4225, Longitude: 39.8262, City: "Makkah"}
	loc, err := resolveLocation(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if loc.Source != sourceCoords || loc.Lat != 21.4225 || loc.City != "Makkah" {
		t.Errorf("unexpected %+v", loc)
	}
}

func TestResolveLocation_City(t *testing.T) {
	l := failLookup(t)
	var gotCity, gotCountry string
	l.resolve = func(_ context.Context, city, country string) (*geo.Location, error) {
		gotCity, gotCountry = city, country
		return &geo.Location{Latitude: 24.7136, Longitude: 46.6753, City: "Riyadh", Country: "Saudi Arabia", Timezone: "Asia/Riyadh"}, nil
	}
	stubLocator(t, l)

	loc, err := resolveLocation(context.Background(), &config.Config{City: "Riyadh", Country: "SA"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if gotCity != "Riyadh" || gotCountry != "SA" {
		t.Errorf("resolve called with %q, %q", gotCity, gotCountry)
	}
	if loc.Source != sourceCity || loc.Timezone != "Asia/Riyadh" {
		t.Errorf("unexpected %+v", loc)
	}
}

func TestResolveLocation_CityNotFound(t *testing.T) {
	l := failLookup(t)
	l.resolve = func(context.Context, string, string) (*geo.Location, error) {
		return nil, geo.ErrNoResults
	}
	stubLocator(t, l)

	_, err := resolveLocation(context.Background(), &config.Config{City: "Atlantis"}, nil)
	if !errors.Is(err, geo.ErrNoResults) {
		t.Errorf("err = %v, want ErrNoResults", err)
	}
}

func TestResolveLocation_DetectsAndCaches(t *testing.T) {
	c, err := cache.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	calls := 0
	l := failLookup(t)
	l.detect = func(context.Context) (*geo.Location, error) {
		calls++
		return &geo.Location{Latitude: 51.5, Longitude: -0.12, City: "London", Country: "UK", Timezone: "Europe/London"}, nil
	}
	stubLocator(t, l)

	loc, err := resolveLocation(context.Background(), &config.Config{}, c)
	if err != nil {
		t.Fatal(err)
	}
	if loc.Source != sourceIP || loc.City != "London" {
		t.Errorf("unexpected %+v", loc)
	}

	// The second lookup is served from the cache.
	loc, err = resolveLocation(context.Background(), &config.Config{}, c)
	if err != nil {
		t.Fatal(err)
	}
	if loc.Source != sourceCached || calls != 1 {
		t.Errorf("source = %s after %d detections, want cached after 1", loc.Source, calls)
	}
}

func TestResolveLocation_DetectFails(t *testing.T) {
	l := failLookup(t)
	l.detect = func(context.Context) (*geo.Location, error) {
		return nil, errors.New("offline")
	}
	stubLocator(t, l)

	_, err := resolveLocation(context.Background(), &config.Config{}, nil)
	if err == nil || !strings.Contains(err.Error(), "auto-detection failed") {
		t.Errorf("err = %v", err)
	}
}

func TestStatusLine(t *testing.T) {
	display.SetEnabled(false)
	now := time.Date(2026, 2, 28, 15, 0, 0, 0, riyadhZone)
	snap := riyadhSession().sched.Status(now)

	got := statusLine(snap, now, "15:04")
	if got != "15:00:00  Asr 15:26 (26m)" {
		t.Errorf("statusLine = %q", got)
	}

	late := time.Date(2026, 2, 28, 21, 0, 0, 0, riyadhZone)
	got = statusLine(riyadhSession().sched.Status(late), late, "15:04")
	if !strings.Contains(got, "Fajr") || !strings.Contains(got, "tomorrow") {
		t.Errorf("statusLine = %q", got)
	}
}

func TestMultiSink(t *testing.T) {
	var seen int
	ok := schedule.SinkFunc(func(context.Context, schedule.Snapshot) error { seen++; return nil })
	boom := errors.New("boom")
	bad := schedule.SinkFunc(func(context.Context, schedule.Snapshot) error { seen++; return boom })

	err := multiSink{bad, ok}.Send(context.Background(), schedule.Snapshot{})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if seen != 2 {
		t.Errorf("sinks called %d times, want 2", seen)
	}
}

func TestClockDiff(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
		ok   bool
	}{
		{"05:00", "04:58", 2, true},
		{"04:58", "05:00", -2, true},
		{"00:02", "23:58", 4, true},
		{"23:58", "00:02", -4, true},
		{prayer.Sentinel, "05:00", 0, false},
		{"05:00", "05:00 (+03)", 0, true},
	}
	for _, tt := range tests {
		got, ok := clockDiff(tt.a, tt.b)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("clockDiff(%q, %q) = %v, %v; want %v, %v", tt.a, tt.b, got, ok, tt.want, tt.ok)
		}
	}
}
