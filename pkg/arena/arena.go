// Package arena provides a client for mirroring race outcomes to the
// Type Arena chain service. The mirror is a best-effort side channel: a
// failure here is logged by the caller and never affects race state.
package arena

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/SuryaXyz-art/Type-Arena/internal/logger"
)

// PlayerResult is one player's final line in a race result.
type PlayerResult struct {
	PlayerID     string  `json:"playerId"`
	Username     string  `json:"username"`
	WPM          float64 `json:"wpm"`
	FinishTimeMs int64   `json:"finishTime"`
}

// RaceResult is the outcome of a finished race.
type RaceResult struct {
	RoomID       string         `json:"roomId"`
	TournamentID string         `json:"tournamentId,omitempty"`
	WinnerID     string         `json:"winnerId,omitempty"`
	Players      []PlayerResult `json:"players"`
}

// Client defines the chain mirror operations.
type Client interface {
	// RecordRace ships a finished race's outcome to the mirror.
	RecordRace(ctx context.Context, result RaceResult) error
}

// HTTPClient posts race results to a Type Arena endpoint.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	log        logger.Logger
}

// NewHTTPClient creates a mirror client for the given base URL.
func NewHTTPClient(baseURL string, log logger.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// NewHTTPClientWithHTTPClient creates a mirror client with a custom
// http.Client.
func NewHTTPClientWithHTTPClient(baseURL string, httpClient *http.Client, log logger.Logger) *HTTPClient {
	return &HTTPClient{baseURL: baseURL, httpClient: httpClient, log: log}
}

// RecordRace posts the result as JSON to {base}/api/races.
func (c *HTTPClient) RecordRace(ctx context.Context, result RaceResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode race result: %w", err)
	}

	url := fmt.Sprintf("%s/api/races", c.baseURL)
	c.log.Debug("arena mirror request", "url", url, "room", result.RoomID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach arena mirror: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	c.log.Debug("arena mirror response", "status", resp.StatusCode, "body", string(respBody))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("arena mirror returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// NopClient discards race results. Used when no mirror is configured.
type NopClient struct{}

// NewNopClient creates a mirror client that does nothing.
func NewNopClient() *NopClient {
	return &NopClient{}
}

// RecordRace discards the result.
func (*NopClient) RecordRace(context.Context, RaceResult) error {
	return nil
}

// Ensure implementations satisfy Client
var (
	_ Client = (*HTTPClient)(nil)
	_ Client = (*NopClient)(nil)
)
