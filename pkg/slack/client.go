// Package slack is the remote API gateway: thin per-operation adapters that
// shape validated arguments into Slack Web API calls and shape the vendor
// response back into normalized data. The secret is injected per call and
// never stored on the client.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mpopa/slackgate/pkg/envelope"
)

// DefaultBaseURL is the production Slack Web API root.
const DefaultBaseURL = "https://slack.com/api"

const maxResponseBytes = 4 << 20

// Client calls the Slack Web API. Safe for concurrent use; it holds no
// per-call state and no credentials.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a gateway client against baseURL (DefaultBaseURL in
// production, an httptest server in tests).
func NewClient(baseURL string, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

// apiResponse is the portion of the Slack envelope every method shares.
// Payload retains the full decoded body for per-operation extraction.
type apiResponse struct {
	OK      bool
	Err     string
	Payload map[string]any
}

// postJSON calls a write-style Slack method with a JSON body.
func (c *Client) postJSON(ctx context.Context, token, method string, payload map[string]any) (*apiResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("slack %s marshal: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("slack %s new request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	return c.do(req, token, method)
}

// getQuery calls a read-style Slack method with URL query parameters.
func (c *Client) getQuery(ctx context.Context, token, method string, q url.Values) (*apiResponse, error) {
	reqURL := c.baseURL + "/" + method
	if len(q) > 0 {
		reqURL += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("slack %s new request: %w", method, err)
	}
	return c.do(req, token, method)
}

func (c *Client) do(req *http.Request, token, method string) (*apiResponse, error) {
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, upstreamTimeout(method)
		}
		return nil, upstream("", fmt.Sprintf("slack %s: %s", method, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, upstream("", fmt.Sprintf("slack %s read response: %s", method, err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, upstream("", fmt.Sprintf("slack %s returned HTTP %d: %s", method, resp.StatusCode, string(body)))
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, upstream("", fmt.Sprintf("slack %s decode response: %s", method, err))
	}

	ok, _ := payload["ok"].(bool)
	errToken, _ := payload["error"].(string)
	if !ok {
		c.log.DebugContext(req.Context(), "slack API error", "method", method, "error", errToken)
		return nil, upstream(errToken, fmt.Sprintf("slack %s failed: %s", method, errToken))
	}
	return &apiResponse{OK: ok, Err: errToken, Payload: payload}, nil
}

func upstream(code, msg string) error {
	return envelope.ErrUpstream(code, msg)
}

func upstreamTimeout(method string) error {
	return envelope.ErrUpstreamTimeout(method)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue) && ue.Timeout()
}
