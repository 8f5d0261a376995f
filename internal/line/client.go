package line

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Options struct {
	ChannelToken string
	APIBaseURL   string
	DataBaseURL  string
	HTTPClient   *http.Client
	Timeout      time.Duration
}

// Client is a minimal LINE Messaging API client covering what the bot needs:
// reply, push and message content download.
type Client struct {
	httpClient *http.Client
	apiBase    string
	dataBase   string
	token      string
}

func NewClient(opts Options) *Client {
	apiBase := strings.TrimRight(opts.APIBaseURL, "/")
	if apiBase == "" {
		apiBase = "https://api.line.me"
	}
	dataBase := strings.TrimRight(opts.DataBaseURL, "/")
	if dataBase == "" {
		dataBase = "https://api-data.line.me"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: client,
		apiBase:    apiBase,
		dataBase:   dataBase,
		token:      strings.TrimSpace(opts.ChannelToken),
	}
}

type replyRequest struct {
	ReplyToken string `json:"replyToken"`
	Messages   []any  `json:"messages"`
}

type pushRequest struct {
	To       string `json:"to"`
	Messages []any  `json:"messages"`
}

// Reply answers an event within its reply-token window.
func (c *Client) Reply(ctx context.Context, replyToken string, messages ...any) error {
	return c.post(ctx, "/v2/bot/message/reply", replyRequest{ReplyToken: replyToken, Messages: messages})
}

// Push sends messages to a user outside a reply window.
func (c *Client) Push(ctx context.Context, to string, messages ...any) error {
	return c.post(ctx, "/v2/bot/message/push", pushRequest{To: to, Messages: messages})
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	if c == nil {
		return errors.New("line client not configured")
	}
	if c.token == "" {
		return errors.New("line: channel access token is missing")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("line: http %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

// MessageContent downloads the raw bytes of a user-sent message (the source
// rendering photo).
func (c *Client) MessageContent(ctx context.Context, messageID string) ([]byte, error) {
	if c == nil {
		return nil, errors.New("line client not configured")
	}
	if c.token == "" {
		return nil, errors.New("line: channel access token is missing")
	}
	endpoint := fmt.Sprintf("%s/v2/bot/message/%s/content", c.dataBase, messageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("line: http %d fetching message content", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
