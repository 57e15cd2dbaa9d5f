package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultAPIBase = "https://metro-rti.nexus.org.uk/api/"
const defaultTimeout = 10 * time.Second
const userAgent = "tyne-and-wear-metro/1.0"

// Client talks to the Nexus metro RTI API. It never retries; a failed call
// is reported to the caller as a *TransportError.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIBase
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) GetStations(ctx context.Context) (map[string]string, error) {
	var stations map[string]string
	if err := c.getJSON(ctx, "stations", &stations); err != nil {
		return nil, err
	}
	return stations, nil
}

func (c *Client) GetPlatforms(ctx context.Context) (map[string][]PlatformRecord, error) {
	var platforms map[string][]PlatformRecord
	if err := c.getJSON(ctx, "stations/platforms", &platforms); err != nil {
		return nil, err
	}
	return platforms, nil
}

func (c *Client) GetTimes(ctx context.Context, stationCode string, platformCode string) ([]ArrivalRecord, error) {
	path := fmt.Sprintf("times/%s/%s", url.PathEscape(stationCode), url.PathEscape(platformCode))

	var arrivals []ArrivalRecord
	if err := c.getJSON(ctx, path, &arrivals); err != nil {
		return nil, err
	}
	return arrivals, nil
}

func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	requestURL := c.BaseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return &TransportError{Path: path, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	startTime := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &TransportError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	log.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Str("latency", time.Since(startTime).String()).
		Msg("Metro feed request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return &TransportError{Path: path, StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}

	jsonBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Path: path, StatusCode: resp.StatusCode, Err: err}
	}

	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return &TransportError{Path: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode payload: %w", err)}
	}

	return nil
}
