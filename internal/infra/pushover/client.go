package pushover

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"handsfree/internal/infra"
)

const defaultEndpoint = "https://api.pushover.net/1/messages.json"

// Client forwards advisories to a Pushover device.
type Client struct {
	token      string
	userKey    string
	endpoint   string
	httpClient *http.Client
	retry      infra.RetryConfig
}

func NewClient(token, userKey string) *Client {
	return &Client{
		token:      token,
		userKey:    userKey,
		endpoint:   defaultEndpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry:      infra.DefaultRetryConfig(),
	}
}

// WithEndpoint points the client at another messages URL.
func (c *Client) WithEndpoint(endpoint string) *Client {
	c.endpoint = endpoint
	return c
}

func (c *Client) Notify(ctx context.Context, message string) error {
	if c.token == "" || c.userKey == "" {
		return nil
	}

	data := url.Values{}
	data.Set("token", c.token)
	data.Set("user", c.userKey)
	data.Set("message", message)
	data.Set("title", "Hands Free")

	return infra.WithRetry(ctx, c.retry, func(int) error {
		return c.post(ctx, data)
	})
}

func (c *Client) post(ctx context.Context, data url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return infra.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}
	statusErr := fmt.Errorf("pushover error: %s", resp.Status)
	if infra.IsRetryableHTTPStatus(resp.StatusCode) {
		return statusErr
	}
	return infra.Permanent(statusErr)
}
