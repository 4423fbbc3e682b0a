// Package api talks to the Al Adhan prayer times API, used to cross-check
// locally computed times, and defines the response envelope the local HTTP
// server mirrors.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/smokyabdulrahman/salat/internal/prayer"
)

const defaultBaseURL = "https://api.aladhan.com/v1"

// Client communicates with the Al Adhan prayer times API.
type Client struct {
	httpClient *http.Client
	// BaseURL is the API base URL. Defaults to the Al Adhan API.
	// Exported for testing with httptest.
	BaseURL string
}

// NewClient creates a new API client with sensible defaults.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		BaseURL: defaultBaseURL,
	}
}

// Query selects what to ask the API for. Negative Method or School leave the
// API default in place; an empty Timezone lets the API derive it from the
// coordinates.
type Query struct {
	Coordinates prayer.Coordinates
	Method      int
	School      int
	Timezone    string
}

func (q Query) values() url.Values {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(q.Coordinates.Latitude, 'f', 6, 64))
	params.Set("longitude", strconv.FormatFloat(q.Coordinates.Longitude, 'f', 6, 64))
	if q.Method >= 0 {
		params.Set("method", strconv.Itoa(q.Method))
	}
	if q.School >= 0 {
		params.Set("school", strconv.Itoa(q.School))
	}
	if q.Timezone != "" {
		params.Set("timezonestring", q.Timezone)
	}
	return params
}

// FetchByCoordinates fetches prayer times for the given date and coordinates.
func (c *Client) FetchByCoordinates(ctx context.Context, date prayer.Date, q Query) (*Response, error) {
	endpoint := fmt.Sprintf("%s/timings/%02d-%02d-%04d", c.BaseURL, date.Day, int(date.Month), date.Year)

	apiResp := Response{}
	env, err := c.doRequest(ctx, endpoint, q.values(), &apiResp.Data)
	if err != nil {
		return nil, err
	}
	apiResp.Code, apiResp.Status = env.Code, env.Status
	return &apiResp, nil
}

// FetchCalendarByCoordinates fetches a whole month of prayer times.
func (c *Client) FetchCalendarByCoordinates(ctx context.Context, year int, month time.Month, q Query) (*CalendarResponse, error) {
	endpoint := fmt.Sprintf("%s/calendar/%d/%d", c.BaseURL, year, int(month))

	apiResp := CalendarResponse{}
	env, err := c.doRequest(ctx, endpoint, q.values(), &apiResp.Data)
	if err != nil {
		return nil, err
	}
	apiResp.Code, apiResp.Status = env.Code, env.Status
	return &apiResp, nil
}

// envelope defers decoding of data until the code says it holds a result;
// on failure the API puts a message string there instead.
type envelope struct {
	Code   int             `json:"code"`
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, data any) (*envelope, error) {
	reqURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode API response: %w", err)
	}

	if env.Code != http.StatusOK {
		return nil, fmt.Errorf("API error: code=%d status=%s", env.Code, env.Status)
	}

	if err := json.Unmarshal(env.Data, data); err != nil {
		return nil, fmt.Errorf("failed to decode API response data: %w", err)
	}
	return &env, nil
}
