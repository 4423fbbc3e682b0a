package geo

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchPattern = `=~^https://geocoding-api\.open-meteo\.com/v1/search`

const riyadhBody = `{"results":[
	{"name":"Riyadh","country":"Saudi Arabia","admin1":"Riyadh Region","latitude":24.68773,"longitude":46.72185,"timezone":"Asia/Riyadh"},
	{"name":"Riyadh","country":"Egypt","admin1":"Kafr el-Sheikh","latitude":31.2,"longitude":30.9,"timezone":"Africa/Cairo"}
]}`

func activate(t *testing.T) {
	t.Helper()
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
}

func TestSearch(t *testing.T) {
	activate(t)
	httpmock.RegisterResponder("GET", searchPattern, func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		assert.Equal(t, "Riyadh", q.Get("name"))
		assert.Equal(t, "5", q.Get("count"))
		assert.Equal(t, "en", q.Get("language"))
		assert.Equal(t, "json", q.Get("format"))
		return httpmock.NewStringResponse(http.StatusOK, riyadhBody), nil
	})

	places, err := Search(context.Background(), " Riyadh ", 0)
	require.NoError(t, err)
	require.Len(t, places, 2)

	assert.Equal(t, "Riyadh, Riyadh Region, Saudi Arabia", places[0].Label())
	assert.InDelta(t, 24.68773, places[0].Latitude, 1e-9)
	assert.Equal(t, "Asia/Riyadh", places[0].Timezone)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestSearch_NoResults(t *testing.T) {
	activate(t)
	httpmock.RegisterResponder("GET", searchPattern,
		httpmock.NewStringResponder(http.StatusOK, `{"generationtime_ms":0.2}`))

	_, err := Search(context.Background(), "Nowhereville", 3)
	assert.True(t, errors.Is(err, ErrNoResults), "got %v", err)
}

func TestSearch_HTTPError(t *testing.T) {
	activate(t)
	httpmock.RegisterResponder("GET", searchPattern,
		httpmock.NewStringResponder(http.StatusBadRequest, `{"error":true}`))

	_, err := Search(context.Background(), "Riyadh", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestSearch_EmptyQuery(t *testing.T) {
	activate(t)

	_, err := Search(context.Background(), "   ", 3)
	require.Error(t, err)
	assert.Zero(t, httpmock.GetTotalCallCount())
}

func TestResolve_PrefersCountry(t *testing.T) {
	activate(t)
	httpmock.RegisterResponder("GET", searchPattern,
		httpmock.NewStringResponder(http.StatusOK, riyadhBody))

	loc, err := Resolve(context.Background(), "Riyadh", "egypt")
	require.NoError(t, err)
	assert.Equal(t, "Egypt", loc.Country)
	assert.Equal(t, "Africa/Cairo", loc.Timezone)

	loc, err = Resolve(context.Background(), "Riyadh", "")
	require.NoError(t, err)
	assert.Equal(t, "Saudi Arabia", loc.Country)
	assert.Equal(t, "Riyadh", loc.City)
}

func TestPlace_Label(t *testing.T) {
	tests := []struct {
		place Place
		want  string
	}{
		{Place{Name: "Paris", Admin1: "Île-de-France", Country: "France"}, "Paris, Île-de-France, France"},
		{Place{Name: "Singapore", Admin1: "Singapore", Country: "Singapore"}, "Singapore"},
		{Place{Name: "Springfield", Admin2: "Sangamon", Admin1: "Illinois", Country: "United States"}, "Springfield, Sangamon, Illinois, United States"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.place.Label())
	}
}
