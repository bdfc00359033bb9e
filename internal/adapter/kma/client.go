// Package kma fetches upper-air (ZONDE) observations from the KMA API hub.
package kma

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/sounding-skewt/internal/domain"
)

// maxFeedBytes bounds the response body read. A full sounding is a few
// kilobytes of fixed-width text, so anything near this limit is broken.
const maxFeedBytes = 4 << 20

// Client fetches raw ZONDE text for one station from the KMA typ01 API.
type Client struct {
	baseURL    string
	authKey    string
	station    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a KMA upper-air client for a single station.
func NewClient(baseURL, authKey, station string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		authKey: authKey,
		station: station,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Fetch retrieves the latest sounding text. pa=0 requests all pressure
// levels; help=1 keeps the commented header the parser skips.
func (c *Client) Fetch(ctx context.Context) (domain.RawFeed, error) {
	params := url.Values{
		"stn":     {c.station},
		"pa":      {"0"},
		"help":    {"1"},
		"authKey": {c.authKey},
	}
	fullURL := fmt.Sprintf("%s/upp_temp.php?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.RawFeed{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.RawFeed{}, fmt.Errorf("fetch sounding: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.RawFeed{}, fmt.Errorf("kma API error: status %d: %s", resp.StatusCode, body)
	}

	text, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return domain.RawFeed{}, fmt.Errorf("read feed body: %w", err)
	}

	c.logger.Debug("sounding fetched", "station", c.station, "bytes", len(text))
	return domain.RawFeed{
		Station:     c.station,
		Text:        text,
		RetrievedAt: time.Now().UTC(),
	}, nil
}
