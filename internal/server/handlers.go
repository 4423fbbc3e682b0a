package server

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smokyabdulrahman/salat/internal/api"
	"github.com/smokyabdulrahman/salat/internal/method"
	"github.com/smokyabdulrahman/salat/internal/prayer"
	"github.com/smokyabdulrahman/salat/internal/schedule"
)

// query is a request resolved against the server defaults.
type query struct {
	settings schedule.Settings
	date     prayer.Date
	// custom is set when any parameter overrides the defaults, in which case
	// the scheduler's cache is bypassed.
	custom bool
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, api.ErrorResponse{
		Code:   http.StatusBadRequest,
		Status: "BAD_REQUEST",
		Data:   msg,
	})
}

func floatParam(c *gin.Context, name string, min, max float64) (float64, bool, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || v < min || v > max {
		return 0, false, fmt.Errorf("%s must be a number between %g and %g", name, min, max)
	}
	return v, true, nil
}

func intParam(c *gin.Context, name string) (int, bool, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be an integer", name)
	}
	return v, true, nil
}

// parseQuery reads latitude, longitude, utc_offset, method, school and date.
// Latitude and longitude must come together. Without utc_offset the offset
// follows the server's zone.
func (s *Server) parseQuery(c *gin.Context) (query, error) {
	q := query{settings: s.sched.Settings()}

	lat, hasLat, err := floatParam(c, "latitude", -90, 90)
	if err != nil {
		return q, err
	}
	lon, hasLon, err := floatParam(c, "longitude", -180, 180)
	if err != nil {
		return q, err
	}
	if hasLat != hasLon {
		return q, fmt.Errorf("latitude and longitude must be given together")
	}
	if hasLat {
		q.settings.Coordinates = prayer.Coordinates{Latitude: lat, Longitude: lon}
		q.custom = true
	}

	if off, ok, err := floatParam(c, "utc_offset", -12, 14); err != nil {
		return q, err
	} else if ok {
		q.settings.FixedOffset = &off
		q.custom = true
	}

	if id, ok, err := intParam(c, "method"); err != nil {
		return q, err
	} else if ok {
		if !method.Valid(id) {
			return q, fmt.Errorf("unknown method %d", id)
		}
		q.settings.Method = id
		q.custom = true
	}

	if school, ok, err := intParam(c, "school"); err != nil {
		return q, err
	} else if ok {
		if school != 0 && school != 1 {
			return q, fmt.Errorf("school must be 0 (standard) or 1 (hanafi)")
		}
		q.settings.School = school
		q.custom = true
	}

	q.date = prayer.DateOf(s.clock().In(zoneOf(q.settings)))
	if raw := c.Query("date"); raw != "" {
		d, err := prayer.ParseDate(raw)
		if err != nil {
			return q, fmt.Errorf("date must be YYYY-MM-DD")
		}
		q.date = d
	}

	return q, nil
}

// zoneOf is the zone "now" is read in: the fixed offset when one is set,
// else the configured location.
func zoneOf(st schedule.Settings) *time.Location {
	switch {
	case st.FixedOffset != nil:
		return time.FixedZone("", int(*st.FixedOffset*3600))
	case st.Location != nil:
		return st.Location
	}
	return time.UTC
}

func (s *Server) times(q query) prayer.TimeSet {
	if q.custom {
		return prayer.ComputeWith(q.settings.Request(q.date))
	}
	return s.sched.Times(q.date)
}

func metaFor(st schedule.Settings, offset float64) api.Meta {
	m := method.Resolve(st.Method)
	tz := ""
	if st.Location != nil && st.FixedOffset == nil {
		tz = st.Location.String()
	}
	return api.Meta{
		Latitude:  st.Coordinates.Latitude,
		Longitude: st.Coordinates.Longitude,
		Timezone:  tz,
		Offset:    &offset,
		Method:    api.MethodInfoOf(m),
		School:    api.SchoolName(st.School),
	}
}

// handleTimings returns one day's times.
// GET /api/v1/timings
func (s *Server) handleTimings(c *gin.Context) {
	q, err := s.parseQuery(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	offset := q.settings.OffsetFor(q.date)
	c.JSON(http.StatusOK, api.Response{
		Code:   http.StatusOK,
		Status: "OK",
		Data: api.Data{
			Timings: api.TimingsFrom(s.times(q)),
			Date:    api.DateInfoFor(q.date, offset),
			Meta:    metaFor(q.settings, offset),
		},
	})
}

// nextResponse is the data of GET /api/v1/next.
type nextResponse struct {
	Prayer    string         `json:"prayer"`
	Time      string         `json:"time"`
	Tomorrow  bool           `json:"tomorrow"`
	At        *time.Time     `json:"at,omitempty"`
	Remaining string         `json:"remaining,omitempty"`
	Urgency   prayer.Urgency `json:"urgency"`
	Date      string         `json:"date"`
}

// handleNext classifies the current instant, or the given date's times at
// the current clock time.
// GET /api/v1/next
func (s *Server) handleNext(c *gin.Context) {
	q, err := s.parseQuery(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	th := q.settings.Thresholds
	if v, ok, err := intParam(c, "orange"); err != nil {
		badRequest(c, err.Error())
		return
	} else if ok {
		th.OrangeMinutes = v
	}
	if v, ok, err := intParam(c, "red"); err != nil {
		badRequest(c, err.Error())
		return
	} else if ok {
		th.RedMinutes = v
	}

	now := s.clock().In(zoneOf(q.settings))

	next, urgency := prayer.StatusWithTomorrow(s.times(q), func() prayer.TimeSet {
		later := q
		later.date = q.date.AddDays(1)
		return s.times(later)
	}, th, now)
	resp := nextResponse{
		Prayer:   string(next.Key),
		Time:     next.Time,
		Tomorrow: next.Tomorrow,
		Urgency:  urgency,
		Date:     q.date.String(),
	}
	if !next.At.IsZero() {
		at := next.At
		resp.At = &at
		resp.Remaining = prayer.FormatRemaining(at.Sub(now))
	}

	c.JSON(http.StatusOK, gin.H{
		"code":   http.StatusOK,
		"status": "OK",
		"data":   resp,
	})
}

type methodResponse struct {
	ID   int     `json:"id"`
	Name string  `json:"name"`
	Fajr float64 `json:"fajr"`
	Isha string  `json:"isha"`
}

// handleMethods lists the calculation methods.
// GET /api/v1/methods
func (s *Server) handleMethods(c *gin.Context) {
	all := method.All()
	out := make([]methodResponse, 0, len(all))
	for _, m := range all {
		out = append(out, methodResponse{ID: m.ID, Name: m.Name, Fajr: m.Fajr, Isha: m.Isha.String()})
	}
	c.JSON(http.StatusOK, gin.H{
		"code":   http.StatusOK,
		"status": "OK",
		"data":   out,
	})
}
