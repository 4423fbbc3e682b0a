package schedule

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/smokyabdulrahman/salat/internal/cache"
	"github.com/smokyabdulrahman/salat/internal/prayer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
	)
}

var riyadhZone = time.FixedZone("AST", 3*3600)

func riyadh() Settings {
	off := 3.0
	return Settings{
		Coordinates: prayer.Coordinates{Latitude: 24.7136, Longitude: 46.6753},
		Location:    riyadhZone,
		FixedOffset: &off,
		Method:      4,
		Thresholds:  prayer.DefaultThresholds,
	}
}

var riyadhFeb28 = prayer.TimeSet{
	Fajr: "04:59", Sunrise: "06:17", Dhuhr: "12:07",
	Asr: "15:26", Maghrib: "17:55", Isha: "19:25",
}

type memStore struct {
	mu     sync.Mutex
	data   map[cache.Key]prayer.TimeSet
	loads  int
	saves  int
	broken bool
}

func newMemStore() *memStore { return &memStore{data: map[cache.Key]prayer.TimeSet{}} }

func (m *memStore) LoadTimes(key cache.Key) (prayer.TimeSet, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	ts, ok := m.data[key]
	return ts, ok
}

func (m *memStore) SaveTimes(key cache.Key, ts prayer.TimeSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.broken {
		return errors.New("disk full")
	}
	m.data[key] = ts
	return nil
}

func TestOffsetAt(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	assert.Equal(t, -5.0, OffsetAt(ny, prayer.Date{Year: 2024, Month: time.January, Day: 15}))
	assert.Equal(t, -4.0, OffsetAt(ny, prayer.Date{Year: 2024, Month: time.July, Day: 4}))
	// DST starts at 02:00 local on 2024-03-10; noon is already EDT.
	assert.Equal(t, -4.0, OffsetAt(ny, prayer.Date{Year: 2024, Month: time.March, Day: 10}))
	assert.Equal(t, 5.5, OffsetAt(kolkata, prayer.Date{Year: 2024, Month: time.June, Day: 21}))
}

func TestSettings_OffsetFor(t *testing.T) {
	s := Settings{Location: time.FixedZone("X", -3*3600)}
	d := prayer.Date{Year: 2026, Month: time.February, Day: 28}
	assert.Equal(t, -3.0, s.OffsetFor(d))

	fixed := 5.75
	s.FixedOffset = &fixed
	assert.Equal(t, 5.75, s.OffsetFor(d))

	assert.Equal(t, 0.0, Settings{}.OffsetFor(d), "nil location means UTC")
}

func TestSettings_Request(t *testing.T) {
	s := riyadh()
	s.School = 1
	req := s.Request(prayer.Date{Year: 2026, Month: time.February, Day: 28})
	assert.Equal(t, 3.0, req.UTCOffset)
	assert.Equal(t, 4, req.Method)
	assert.Equal(t, prayer.ShadowHanafi, req.AsrFactor)
}

func TestTimes_ComputesOncePerDay(t *testing.T) {
	store := newMemStore()
	s := New(riyadh(), WithStore(store))
	d := prayer.Date{Year: 2026, Month: time.February, Day: 28}

	assert.Equal(t, riyadhFeb28, s.Times(d))
	assert.Equal(t, riyadhFeb28, s.Times(d))

	assert.Equal(t, 1, store.loads, "second call should be served from memory")
	assert.Equal(t, 1, store.saves)
}

func TestTimes_StoreHit(t *testing.T) {
	store := newMemStore()
	d := prayer.Date{Year: 2026, Month: time.February, Day: 28}
	persisted := riyadhFeb28
	persisted.Isha = "19:26"
	store.data[cache.Key{Date: d, Latitude: 24.7136, Longitude: 46.6753, UTCOffset: 3, Method: 4}] = persisted

	s := New(riyadh(), WithStore(store))
	assert.Equal(t, persisted, s.Times(d))
	assert.Zero(t, store.saves)
}

func TestTimes_StoreFailureIsNotFatal(t *testing.T) {
	store := newMemStore()
	store.broken = true
	s := New(riyadh(), WithStore(store))

	assert.Equal(t, riyadhFeb28, s.Times(prayer.Date{Year: 2026, Month: time.February, Day: 28}))
}

func TestUpdate_FlushesDays(t *testing.T) {
	store := newMemStore()
	s := New(riyadh(), WithStore(store))
	d := prayer.Date{Year: 2026, Month: time.February, Day: 28}

	s.Times(d)
	s.Update(riyadh())
	s.Times(d)
	assert.Equal(t, 2, store.loads, "flushed day should be looked up again")

	changed := riyadh()
	changed.Method = 3
	s.Update(changed)
	assert.Equal(t, 3, s.Settings().Method)
	assert.NotEqual(t, riyadhFeb28.Isha, s.Times(d).Isha, "MWL uses an angle for Isha")
}

func TestStatus(t *testing.T) {
	s := New(riyadh())

	snap := s.Status(time.Date(2026, 2, 28, 12, 0, 0, 0, riyadhZone))
	assert.Equal(t, prayer.Date{Year: 2026, Month: time.February, Day: 28}, snap.Date)
	assert.Equal(t, riyadhFeb28, snap.Times)
	assert.Equal(t, prayer.Dhuhr, snap.Next.Key)
	assert.Equal(t, prayer.Red, snap.Urgency)

	snap = s.Status(time.Date(2026, 2, 28, 9, 0, 0, 0, riyadhZone))
	assert.Equal(t, prayer.Green, snap.Urgency)
}

func TestStatus_UsesLocalDay(t *testing.T) {
	s := New(riyadh())

	// 22:30 UTC on the 28th is already 01:30 on 1 March in Riyadh.
	snap := s.Status(time.Date(2026, 2, 28, 22, 30, 0, 0, time.UTC))
	assert.Equal(t, prayer.Date{Year: 2026, Month: time.March, Day: 1}, snap.Date)
	assert.Equal(t, prayer.Fajr, snap.Next.Key)
	assert.False(t, snap.Next.Tomorrow)
}

func TestStatus_AfterIshaUsesTomorrowsFajr(t *testing.T) {
	st := newMemStore()
	march1 := prayer.Date{Year: 2026, Month: time.March, Day: 1}
	st.data[cache.Key{Date: march1, Latitude: 24.7136, Longitude: 46.6753, UTCOffset: 3, Method: 4}] = prayer.TimeSet{
		Fajr: "04:30", Sunrise: "06:16", Dhuhr: "12:07",
		Asr: "15:26", Maghrib: "17:56", Isha: "19:26",
	}
	s := New(riyadh(), WithStore(st))

	snap := s.Status(time.Date(2026, 2, 28, 21, 0, 0, 0, riyadhZone))
	assert.Equal(t, riyadhFeb28, snap.Times)
	assert.Equal(t, prayer.Fajr, snap.Next.Key)
	assert.True(t, snap.Next.Tomorrow)
	assert.Equal(t, "04:30", snap.Next.Time)
	assert.True(t, snap.Next.At.Equal(time.Date(2026, 3, 1, 4, 30, 0, 0, riyadhZone)), "At = %v", snap.Next.At)
	assert.Equal(t, prayer.Green, snap.Urgency)

	snap = s.Status(time.Date(2026, 3, 1, 4, 25, 0, 0, riyadhZone))
	assert.Equal(t, prayer.Fajr, snap.Next.Key)
	assert.False(t, snap.Next.Tomorrow)
}

func TestStatus_TomorrowFajrUrgency(t *testing.T) {
	st := newMemStore()
	march1 := prayer.Date{Year: 2026, Month: time.March, Day: 1}
	st.data[cache.Key{Date: march1, Latitude: 24.7136, Longitude: 46.6753, UTCOffset: 3, Method: 4}] = prayer.TimeSet{
		Fajr: "00:05", Sunrise: "06:16", Dhuhr: "12:07",
		Asr: "15:26", Maghrib: "17:56", Isha: "19:26",
	}
	s := New(riyadh(), WithStore(st))

	snap := s.Status(time.Date(2026, 2, 28, 23, 58, 0, 0, riyadhZone))
	assert.Equal(t, prayer.Red, snap.Urgency)
}

func TestSettings_Validate(t *testing.T) {
	require.NoError(t, riyadh().Validate())

	nan := math.NaN()
	big := 14.5
	tests := map[string]func(*Settings){
		"latitude":   func(s *Settings) { s.Coordinates.Latitude = 90.5 },
		"longitude":  func(s *Settings) { s.Coordinates.Longitude = -180.5 },
		"nan lat":    func(s *Settings) { s.Coordinates.Latitude = nan },
		"method":     func(s *Settings) { s.Method = 6 },
		"school":     func(s *Settings) { s.School = 2 },
		"offset":     func(s *Settings) { s.FixedOffset = &big },
		"nan offset": func(s *Settings) { s.FixedOffset = &nan },
		"thresholds": func(s *Settings) { s.Thresholds = prayer.Thresholds{OrangeMinutes: 10, RedMinutes: 10} },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			st := riyadh()
			mutate(&st)
			assert.Error(t, st.Validate())
		})
	}
}

func TestToday(t *testing.T) {
	s := New(riyadh())
	d, ts := s.Today(time.Date(2026, 2, 28, 8, 0, 0, 0, riyadhZone))
	assert.Equal(t, prayer.Date{Year: 2026, Month: time.February, Day: 28}, d)
	assert.Equal(t, riyadhFeb28, ts)
}

func TestRun(t *testing.T) {
	s := New(riyadh())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	now := time.Date(2026, 2, 28, 12, 0, 0, 0, riyadhZone)
	var got []Snapshot
	sink := SinkFunc(func(_ context.Context, snap Snapshot) error {
		got = append(got, snap)
		if len(got) == 3 {
			cancel()
		}
		return errors.New("ignored")
	})

	err := s.Run(ctx, time.Millisecond, func() time.Time { return now }, sink)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, snap := range got {
		assert.Equal(t, prayer.Dhuhr, snap.Next.Key)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	s := New(riyadh())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	sent := make(chan struct{}, 1)
	go func() {
		done <- s.Run(ctx, time.Hour, nil, SinkFunc(func(context.Context, Snapshot) error {
			select {
			case sent <- struct{}{}:
			default:
			}
			return nil
		}))
	}()

	<-sent
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_InvalidInterval(t *testing.T) {
	err := New(riyadh()).Run(context.Background(), 0, nil, SinkFunc(func(context.Context, Snapshot) error { return nil }))
	assert.Error(t, err)
}
