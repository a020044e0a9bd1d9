package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/omarabid-archived/pyroscope/internal/errors"
	"github.com/omarabid-archived/pyroscope/pkg/agent/upstream"
	"github.com/omarabid-archived/pyroscope/pkg/version"
)

const defaultTimeout = 10 * time.Second

// TransportConfig contains HTTP transport configuration.
type TransportConfig struct {
	// ServerAddress is the base URL of the Pyroscope server, e.g.
	// "http://localhost:4040".
	ServerAddress string
	// AuthToken, when set, is sent as a bearer token.
	AuthToken string
	// Timeout bounds each delivery attempt. Defaults to 10s.
	Timeout time.Duration
	// Client overrides the HTTP client. Timeout is ignored when a
	// client is supplied.
	Client *http.Client
	// Logger is the parent logger.
	Logger zerolog.Logger
}

// HTTPTransport sends sessions to the server's /ingest endpoint in
// collapsed format. Server errors and connection failures are marked
// transient; client errors are permanent.
type HTTPTransport struct {
	client  *http.Client
	baseURL string
	token   string
	logger  zerolog.Logger
}

// NewHTTPTransport creates an HTTP transport for the given server.
func NewHTTPTransport(cfg TransportConfig) (*HTTPTransport, error) {
	if cfg.ServerAddress == "" {
		return nil, fmt.Errorf("server address must not be empty")
	}
	u, err := url.Parse(cfg.ServerAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid server address %q: %w", cfg.ServerAddress, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server address %q must use http or https", cfg.ServerAddress)
	}

	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	return &HTTPTransport{
		client:  client,
		baseURL: strings.TrimRight(cfg.ServerAddress, "/"),
		token:   cfg.AuthToken,
		logger:  cfg.Logger.With().Str("component", "http_transport").Logger(),
	}, nil
}

// Send posts one session to /ingest.
func (t *HTTPTransport) Send(ctx context.Context, req *upstream.Request) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.baseURL+"/ingest", bytes.NewReader(req.Payload))
	if err != nil {
		return fmt.Errorf("building ingest request: %w", err)
	}

	q := httpReq.URL.Query()
	q.Set("name", req.Name)
	q.Set("from", strconv.FormatInt(req.StartTime.Unix(), 10))
	q.Set("until", strconv.FormatInt(req.Until.Unix(), 10))
	q.Set("format", "folded")
	q.Set("sampleRate", strconv.FormatUint(uint64(req.SampleRate), 10))
	q.Set("spyName", req.SpyName)
	q.Set("units", req.Units)
	httpReq.URL.RawQuery = q.Encode()

	httpReq.Header.Set("Content-Type", "binary/octet-stream")
	httpReq.Header.Set("User-Agent", version.UserAgent())
	if t.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+t.token)
	}

	t.logger.Trace().
		Str("name", req.Name).
		Int("bytes", len(req.Payload)).
		Msg("Posting profile")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		// Connection failures are worth retrying.
		return upstream.Transient(fmt.Errorf("posting profile: %w", err))
	}
	defer errors.DeferClose(t.logger, resp.Body, "failed to close response body")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	sendErr := fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(body)))

	// 5xx and rate limiting are retryable; other client errors
	// will not improve on retry.
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return upstream.Transient(sendErr)
	}
	return sendErr
}
