// Package sheets pushes attendance snapshots to the spreadsheet web-app endpoint.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"nightslip/internal/domain/mirror"
)

// Pusher delivers a full snapshot to the spreadsheet.
type Pusher interface {
	Push(ctx context.Context, snap mirror.Snapshot) error
}

// Client posts snapshots as JSON to a spreadsheet script URL.
type Client struct {
	url  string
	http *http.Client
}

var _ Pusher = (*Client)(nil)

// NewClient creates a Client for url. A nil httpClient gets a 30 second timeout.
// PRE: url is non-empty
func NewClient(url string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{url: url, http: httpClient}
}

// Push sends the snapshot in one POST.
// POST: Returns nil only on a 2xx response
func (c *Client) Push(ctx context.Context, snap mirror.Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("spreadsheet endpoint returned status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// NoopClient drops snapshots. Used when no spreadsheet URL is configured.
type NoopClient struct{}

// Push logs the snapshot size and returns nil.
func (NoopClient) Push(_ context.Context, snap mirror.Snapshot) error {
	slog.Debug("noop_mirror_push", "dates", len(snap.Dates), "users", len(snap.Users), "records", len(snap.Attendance))
	return nil
}
