// Package messenger is a thin client for the messaging provider's
// send-message API, plus the wire types of its webhook events.
package messenger

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
)

// DefaultBaseURL is the provider's Graph API root.
const DefaultBaseURL = "https://graph.facebook.com/v18.0"

// Client is a thin HTTP client for the provider's send API. It makes a
// single attempt per send; retries and queuing are deliberately absent.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewClient creates a provider client. baseURL is the API root (use
// DefaultBaseURL outside of tests); accessToken is the page credential.
func NewClient(baseURL, accessToken string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// TokenPreview returns a short non-secret prefix of the access token for
// diagnostics. Never returns more than eight characters.
func (c *Client) TokenPreview() string {
	if len(c.accessToken) <= 8 {
		return c.accessToken
	}
	return c.accessToken[:8] + "..."
}

// SendText delivers a single text message to recipientID. A non-2xx
// provider response is an error; the body is included truncated.
func (c *Client) SendText(ctx context.Context, recipientID, text string) error {
	payload := sendPayload{
		Recipient: Participant{ID: recipientID},
		Message:   sendText{Text: text},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling send payload: %w", err)
	}

	endpoint := fmt.Sprintf(
		"%s/me/messages?access_token=%s",
		c.baseURL, url.QueryEscape(c.accessToken),
	)

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, endpoint, bytes.NewReader(data),
	)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling provider send API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf(
			"provider rejected send (%d): %s",
			resp.StatusCode, strings.TrimSpace(string(body)),
		)
	}

	return nil
}
