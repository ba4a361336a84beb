package haassohn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	statusPath = "/status.cgi"

	// maxStatusBytes bounds the status document read from the stove.
	maxStatusBytes = 1 << 20

	defaultRequestTimeout = 10 * time.Second
)

// Header values the stove's app sends with every command. The firmware
// rejects commands that deviate from them, including key spelling.
const (
	headerBackendIP      = "https://app.haassohn.com"
	headerAcceptLanguage = "de-DE;q=1.0, en-DE;q=0.9"
	headerAcceptEncoding = "gzip;q=1.0, compress;q=0.5"
	headerToken          = "32bytes"
	headerUserAgent      = "ios"
)

// DeviceClient talks to one stove over HTTP.
type DeviceClient struct {
	address string
	timeout time.Duration
	http    *http.Client
}

// NewDeviceClient creates a client for the stove at address (host or
// host:port). Every request is bounded by timeout; zero means 10s.
func NewDeviceClient(address string, timeout time.Duration) *DeviceClient {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &DeviceClient{
		address: address,
		timeout: timeout,
		http:    &http.Client{},
	}
}

// StatusURL returns the stove's status endpoint.
func (c *DeviceClient) StatusURL() string {
	return "http://" + c.address + statusPath
}

// FetchStatus GETs the status document. Network failures and timeouts wrap
// ErrTransport; non-200 responses and bodies that are not a JSON object wrap
// ErrProtocol.
func (c *DeviceClient) FetchStatus(ctx context.Context) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.StatusURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", ErrTransport, err)
	}
	req.Header.Set("Accept", "*/*")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck // draining for connection reuse
		return nil, fmt.Errorf("%w: status %d", ErrProtocol, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStatusBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrTransport, err)
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: parsing status: %w", ErrProtocol, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: empty status document", ErrProtocol)
	}
	return doc, nil
}

// SendCommand POSTs {"<attribute>": value} authenticated with token.
// Only a 200 response counts as success.
func (c *DeviceClient) SendCommand(ctx context.Context, attribute string, value any, token string) error {
	body, err := json.Marshal(map[string]any{attribute: value})
	if err != nil {
		return fmt.Errorf("encoding command: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newCommandRequest(ctx, body, token)
	if err != nil {
		return fmt.Errorf("%w: building request: %w", ErrTransport, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxStatusBytes)) //nolint:errcheck // draining for connection reuse

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrProtocol, resp.StatusCode)
	}
	return nil
}

// newCommandRequest builds the POST with the header set of the vendor app.
// Keys are assigned directly so they go out with the exact spelling.
func (c *DeviceClient) newCommandRequest(ctx context.Context, body []byte, token string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.StatusURL(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Host = c.address
	req.ContentLength = int64(len(body))

	h := req.Header
	h["Accept"] = []string{"*/*"}
	h["Proxy-Connection"] = []string{"keep-alive"}
	h["X-BACKEND-IP"] = []string{headerBackendIP}
	h["Accept-Language"] = []string{headerAcceptLanguage}
	h["Accept-Encoding"] = []string{headerAcceptEncoding}
	h["token"] = []string{headerToken}
	h["Content-Type"] = []string{"application/json"}
	h["Content-Length"] = []string{strconv.Itoa(len(body))}
	h["User-Agent"] = []string{headerUserAgent}
	h["Connection"] = []string{"keep-alive"}
	h["X-HS-PIN"] = []string{token}
	return req, nil
}
