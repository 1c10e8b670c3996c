package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alfredjeanlab/vaultsync/internal/model"
)

// HTTPClient implements SyncClient using the vaultsync HTTP/JSON API.
type HTTPClient struct {
	baseURL string
	token   string

	// httpClient serves request/response calls; streamClient has no
	// timeout so long-lived event streams are not cut off.
	httpClient   *http.Client
	streamClient *http.Client
}

var _ SyncClient = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		token:        token,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		streamClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Devices ---

func (c *HTTPClient) RegisterDevice(ctx context.Context, deviceID string) (*model.Device, error) {
	var d model.Device
	if err := c.doJSON(ctx, http.MethodPost, "/devices", map[string]string{"deviceId": deviceID}, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// --- Preferences ---

func (c *HTTPClient) GetPreferences(ctx context.Context, deviceID string) (*model.Preferences, error) {
	var p model.Preferences
	path := "/preferences?" + url.Values{"deviceId": {deviceID}}.Encode()
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SavePreferences uploads the full settings snapshot for deviceID.
func (c *HTTPClient) SavePreferences(ctx context.Context, deviceID string, settings model.Settings) (*model.Preferences, error) {
	body := struct {
		DeviceID string `json:"deviceId"`
		model.Settings
	}{deviceID, settings}

	var p model.Preferences
	if err := c.doJSON(ctx, http.MethodPost, "/preferences", body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// --- Presence ---

func (c *HTTPClient) Heartbeat(ctx context.Context, deviceID, itemID string) (*model.Session, error) {
	var s model.Session
	body := map[string]string{"deviceId": deviceID, "itemId": itemID}
	if err := c.doJSON(ctx, http.MethodPost, "/sessions", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *HTTPClient) ReleaseSession(ctx context.Context, deviceID, itemID string) error {
	path := "/sessions?" + url.Values{"deviceId": {deviceID}, "itemId": {itemID}}.Encode()
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

func (c *HTTPClient) ListViewers(ctx context.Context, itemID string) (*Viewers, error) {
	var v Viewers
	path := "/sessions?" + url.Values{"itemId": {itemID}}.Encode()
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// --- Events ---

// Publish asks the server to broadcast evt and returns the number of local
// subscribers it reached.
func (c *HTTPClient) Publish(ctx context.Context, evt model.Event) (int, error) {
	var resp struct {
		Delivered int `json:"delivered"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/events", evt, &resp); err != nil {
		return 0, err
	}
	return resp.Delivered, nil
}

// OpenStream connects to GET /events. The stream lives until ctx is
// cancelled, Close is called, or the server ends it.
func (c *HTTPClient) OpenStream(ctx context.Context, deviceID string) (EventStream, error) {
	path := "/events?" + url.Values{"deviceId": {deviceID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("opening stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, apiError(resp)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		resp.Body.Close()
		return nil, fmt.Errorf("opening stream: unexpected content type %q", ct)
	}
	return newSSEStream(resp.Body), nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (*HealthStatus, error) {
	var h HealthStatus
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// --- internal helpers ---

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp)
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// apiError builds an APIError from a failed response, preferring the
// server's {"error": ...} message.
func apiError(resp *http.Response) error {
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
}
