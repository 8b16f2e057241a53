package servicelayer

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"b1poster/internal/logger"
)

const (
	// DefaultPort is the HTTPS port of the Service Layer.
	DefaultPort = 50000

	// APIRoot is the path prefix of every Service Layer resource.
	APIRoot = "/b1s/v1"

	sessionCookie = "B1SESSION"
)

// Transport performs a POST against a path relative to the API root.
// Implementations return the decoded body regardless of the HTTP status.
type Transport interface {
	Post(ctx context.Context, path string, body any) (*Response, error)
}

// TransportConfig holds the HTTP settings for a Service Layer connection.
type TransportConfig struct {
	// BaseURL is the API root, e.g. https://erp:50000/b1s/v1.
	BaseURL string

	// SessionID is the B1SESSION cookie value. It may be left empty and
	// obtained through Login.
	SessionID string

	// InsecureSkipVerify disables TLS certificate verification. Service
	// Layer installations commonly run with self-signed certificates.
	InsecureSkipVerify bool

	// Timeout bounds each HTTP exchange. Default: 60 seconds.
	Timeout time.Duration
}

// BaseURL returns the API root for a server host and port.
func BaseURL(server string, port int) string {
	if port == 0 {
		port = DefaultPort
	}
	return fmt.Sprintf("https://%s:%d%s", server, port, APIRoot)
}

// Credentials are the company login details for Login.
type Credentials struct {
	CompanyDB string `json:"CompanyDB"`
	UserName  string `json:"UserName"`
	Password  string `json:"Password"`
}

type loginResponse struct {
	SessionID      string     `json:"SessionId"`
	Version        string     `json:"Version"`
	SessionTimeout int        `json:"SessionTimeout"`
	Error          *ErrorBody `json:"error,omitempty"`
}

// HTTPTransport is the net/http implementation of Transport.
type HTTPTransport struct {
	baseURL    string
	sessionID  string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewHTTPTransport creates a transport from config.
func NewHTTPTransport(config TransportConfig) *HTTPTransport {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	httpTransport := http.DefaultTransport.(*http.Transport).Clone()
	if config.InsecureSkipVerify {
		httpTransport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	return NewHTTPTransportWithClient(config, &http.Client{
		Transport: httpTransport,
		Timeout:   timeout,
	})
}

// NewHTTPTransportWithClient creates a transport using an explicit HTTP client (for testing).
func NewHTTPTransportWithClient(config TransportConfig, client *http.Client) *HTTPTransport {
	return &HTTPTransport{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		sessionID:  config.SessionID,
		httpClient: client,
		log:        logger.WithComponent("servicelayer-transport"),
	}
}

// SessionID returns the current session id.
func (t *HTTPTransport) SessionID() string {
	return t.sessionID
}

// Login opens a session and keeps its id for subsequent calls.
func (t *HTTPTransport) Login(ctx context.Context, creds Credentials) (string, error) {
	const op = "Login"

	raw, err := t.do(ctx, "Login", creds, false)
	if err != nil {
		return "", NewTransportError(op, "Login", err)
	}

	var resp loginResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", NewTransportError(op, "Login", fmt.Errorf("%w: %v", ErrInvalidResponse, err))
	}
	if resp.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrLoginFailed, resp.Error.Message.Value)
	}
	if resp.SessionID == "" {
		return "", fmt.Errorf("%w: no session id returned", ErrLoginFailed)
	}

	t.sessionID = resp.SessionID
	t.log.Info().
		Str("company_db", creds.CompanyDB).
		Str("user", creds.UserName).
		Str("version", resp.Version).
		Int("session_timeout", resp.SessionTimeout).
		Msg("Service Layer session opened")
	return resp.SessionID, nil
}

// Logout closes the current session.
func (t *HTTPTransport) Logout(ctx context.Context) error {
	if t.sessionID == "" {
		return nil
	}
	if _, err := t.do(ctx, "Logout", nil, true); err != nil {
		return NewTransportError("Logout", "Logout", err)
	}
	t.sessionID = ""
	return nil
}

// Post sends body as JSON to path and decodes the response.
func (t *HTTPTransport) Post(ctx context.Context, path string, body any) (*Response, error) {
	const op = "Post"

	if t.sessionID == "" {
		return nil, NewTransportError(op, path, ErrMissingSession)
	}

	raw, err := t.do(ctx, path, body, true)
	if err != nil {
		return nil, NewTransportError(op, path, err)
	}

	resp := &Response{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return resp, nil
	}
	if err := json.Unmarshal(raw, resp); err != nil {
		return nil, NewTransportError(op, path, fmt.Errorf("%w: %v", ErrInvalidResponse, err))
	}
	resp.Body = raw
	return resp, nil
}

func (t *HTTPTransport) do(ctx context.Context, path string, body any, withSession bool) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	url := t.baseURL + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if withSession {
		req.Header.Set("Cookie", sessionCookie+"="+t.sessionID+";")
	}

	start := time.Now()
	res, err := t.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := res.Body.Close(); closeErr != nil {
			t.log.Warn().Err(closeErr).Msg("Failed to close response body")
		}
	}()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	t.log.Debug().
		Str("path", path).
		Int("status", res.StatusCode).
		Int("bytes", len(raw)).
		Dur("duration", time.Since(start)).
		Msg("Service Layer call completed")

	return raw, nil
}
