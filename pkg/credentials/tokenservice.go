package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mpopa/slackgate/pkg/envelope"
)

const maxStoreResponseBytes = 1 << 20

// TokenServiceClient fetches per-user OAuth secrets from the external token
// service over HTTP. One round trip per lookup, nothing cached.
type TokenServiceClient struct {
	baseURL    string
	apiKey     string
	provider   string
	httpClient *http.Client
}

// NewTokenServiceClient creates a client for the token service at baseURL.
// apiKey is sent as the x-api-key header on every request.
func NewTokenServiceClient(baseURL, apiKey string) *TokenServiceClient {
	return &TokenServiceClient{
		baseURL:  baseURL,
		apiKey:   apiKey,
		provider: "slack",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// tokenRecord is the shape the token service returns, either bare or as a
// one-element array. The access token may sit at the top level or nested
// under the raw OAuth exchange payload.
type tokenRecord struct {
	AccessToken string `json:"access_token"`
	Raw         struct {
		AccessToken string `json:"access_token"`
		AuthedUser  struct {
			AccessToken string `json:"access_token"`
		} `json:"authed_user"`
	} `json:"raw"`
}

func (rec *tokenRecord) token() string {
	switch {
	case rec.AccessToken != "":
		return rec.AccessToken
	case rec.Raw.AccessToken != "":
		return rec.Raw.AccessToken
	default:
		return rec.Raw.AuthedUser.AccessToken
	}
}

// LookupSecret implements SecretStore against the token service.
func (c *TokenServiceClient) LookupSecret(ctx context.Context, identity string) (string, error) {
	q := url.Values{}
	q.Set("provider", c.provider)
	q.Set("user_id", identity)
	reqURL := c.baseURL + "/get-token?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", envelope.ErrExternalStoreUnavailable(err)
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", envelope.ErrExternalStoreUnavailable(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStoreResponseBytes))
	if err != nil {
		return "", envelope.ErrExternalStoreUnavailable(err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", envelope.ErrIdentityNotFound(identity)
	case resp.StatusCode != http.StatusOK:
		return "", envelope.ErrExternalStoreUnavailable(
			fmt.Errorf("token service returned %d: %s", resp.StatusCode, string(body)))
	}

	rec, err := decodeTokenRecord(body)
	if err != nil {
		return "", envelope.ErrExternalStoreUnavailable(err)
	}
	if rec == nil || rec.token() == "" {
		return "", envelope.ErrIdentityNotFound(identity)
	}
	return rec.token(), nil
}

// decodeTokenRecord accepts both response shapes the token service emits: a
// bare record, or an array of records of which the first wins. An empty array
// means the identity has no stored secret.
func decodeTokenRecord(body []byte) (*tokenRecord, error) {
	var list []tokenRecord
	if err := json.Unmarshal(body, &list); err == nil {
		if len(list) == 0 {
			return nil, nil
		}
		return &list[0], nil
	}

	var rec tokenRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, errors.New("token service response is neither object nor array: " + err.Error())
	}
	return &rec, nil
}
