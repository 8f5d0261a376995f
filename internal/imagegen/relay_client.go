package imagegen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	channelAttempts = 3
	channelBackoff  = time.Second
)

type RelayOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// RelayClient provisions callback channels on a webhook relay service and
// reads the notifications a backend has posted to a channel. Each generation
// job gets its own channel so completion notifications never cross between
// concurrent jobs.
type RelayClient struct {
	httpClient *http.Client
	baseURL    string
	backoff    time.Duration
}

func NewRelayClient(opts RelayOptions) *RelayClient {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://webhook.site"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &RelayClient{
		httpClient: client,
		baseURL:    base,
		backoff:    channelBackoff,
	}
}

type tokenResp struct {
	UUID string `json:"uuid"`
}

type requestsResp struct {
	Data []struct {
		Content string `json:"content"`
	} `json:"data"`
}

// NewChannel acquires a fresh, unique callback channel. The relay is a scarce
// external resource, so acquisition is retried a small bounded number of times
// with a short backoff before giving up.
func (c *RelayClient) NewChannel(ctx context.Context) (string, error) {
	var lastErr error
	for attempt := 0; attempt < channelAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrChannelProvision, ctx.Err())
			case <-time.After(c.backoff):
			}
		}
		id, err := c.requestToken(ctx)
		if err == nil {
			return id, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("%w: %v", ErrChannelProvision, lastErr)
}

func (c *RelayClient) requestToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/token", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("relay: http %d", resp.StatusCode)
	}
	var out tokenResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.UUID) == "" {
		return "", fmt.Errorf("relay: missing channel id")
	}
	return out.UUID, nil
}

// CallbackURL is the address a backend posts completion notifications to.
func (c *RelayClient) CallbackURL(channelID string) string {
	return c.baseURL + "/" + channelID
}

// Notifications returns the raw bodies accumulated on the channel so far.
func (c *RelayClient) Notifications(ctx context.Context, channelID string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/token/%s/requests", c.baseURL, channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("relay: http %d", resp.StatusCode)
	}
	var out requestsResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	contents := make([]string, 0, len(out.Data))
	for _, item := range out.Data {
		if item.Content != "" {
			contents = append(contents, item.Content)
		}
	}
	return contents, nil
}
