// Package apiclient is a thin JSON client for the perch HTTP API,
// used by the terminal dashboard.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/perchlab/perch/internal/model"
)

// AuthHeader mirrors the server's shared-secret header.
const AuthHeader = "X-Perch-Key"

// PluginDetail is one plugin's metadata plus its chart data.
type PluginDetail struct {
	Name               string                      `json:"name"`
	Description        string                      `json:"description"`
	Every              int                         `json:"every"`
	LastExecutedAt     *int64                      `json:"lastExecutedAt"`
	LastExecutedResult *bool                       `json:"lastExecutedResult"`
	Data               map[string]model.GroupChart `json:"data"`
}

// Client talks to one perch service.
type Client struct {
	baseURL string
	authKey string
	hc      *http.Client
}

// NewClient creates a client for the given base URL, e.g.
// "http://localhost:8015".
func NewClient(baseURL, authKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		authKey: authKey,
		hc:      &http.Client{Timeout: timeout},
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if c.authKey != "" {
		req.Header.Set(AuthHeader, c.authKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		var envelope struct {
			Reason string `json:"reason"`
		}
		if json.Unmarshal(body, &envelope) == nil && envelope.Reason != "" {
			return fmt.Errorf("api: %s (%d)", envelope.Reason, resp.StatusCode)
		}
		return fmt.Errorf("api: unexpected status %d", resp.StatusCode)
	}

	return json.Unmarshal(body, out)
}

// List returns metadata for every registered plugin.
func (c *Client) List(ctx context.Context) (map[string]model.PluginStatus, error) {
	var out map[string]model.PluginStatus
	if err := c.get(ctx, "/plugins/list", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Plugin returns chart data for one plugin. Zero times fall back to
// the server-side default window.
func (c *Client) Plugin(ctx context.Context, name string, gte, lte time.Time) (PluginDetail, error) {
	params := url.Values{}
	if !gte.IsZero() {
		params.Set("gte", gte.Format(time.RFC3339))
	}
	if !lte.IsZero() {
		params.Set("lte", lte.Format(time.RFC3339))
	}

	path := "/plugins/" + url.PathEscape(name)
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var out PluginDetail
	if err := c.get(ctx, path, &out); err != nil {
		return PluginDetail{}, err
	}
	return out, nil
}

// Health returns the raw health document.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.get(ctx, "/api/health", &out); err != nil {
		return nil, err
	}
	return out, nil
}
