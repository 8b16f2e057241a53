// Package logcollector forwards progress events to the upload log collector.
//
// The collector accepts POST /log with a JSON body
// {"logMessage": "...", "serial": "..."} and streams the messages to the
// user who started the upload identified by serial.
package logcollector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"b1poster/internal/logger"
)

// Event is one log line for an upload.
type Event struct {
	LogMessage string `json:"logMessage"`
	Serial     string `json:"serial"`
}

// Client posts events to a log collector.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a client for the collector at baseURL, e.g.
// http://10.0.0.5:3003.
func NewClient(baseURL string) *Client {
	return NewClientWithHTTPClient(baseURL, &http.Client{Timeout: 10 * time.Second})
}

// NewClientWithHTTPClient creates a client with an explicit HTTP client (for testing).
func NewClientWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		log:        logger.WithComponent("logcollector"),
	}
}

// Send delivers event. The collector's reply body is ignored.
func (c *Client) Send(ctx context.Context, event Event) error {
	const op = "Send"

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: failed to encode event: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/log", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: failed to reach log collector: %w", op, err)
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s: log collector returned status %d", op, res.StatusCode)
	}

	c.log.Debug().
		Str("serial", event.Serial).
		Msg("Event forwarded to log collector")
	return nil
}
