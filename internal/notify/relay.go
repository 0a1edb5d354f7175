package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RelayNotifier sends notifications through the notification relay's
// /send-message endpoint.
type RelayNotifier struct {
	baseURL    string
	httpClient *http.Client
}

// NewRelayNotifier creates a notifier targeting the relay at baseURL
// (e.g. http://localhost:3000).
func NewRelayNotifier(baseURL string) *RelayNotifier {
	return &RelayNotifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// sendRequest is the JSON body of the relay's /send-message endpoint.
type sendRequest struct {
	RecipientID string `json:"recipientId"`
	Message     string `json:"message"`
}

// Send posts the message to the relay. A non-2xx response is an error;
// there is no retry.
func (n *RelayNotifier) Send(ctx context.Context, recipientID, message string) error {
	data, err := json.Marshal(sendRequest{RecipientID: recipientID, Message: message})
	if err != nil {
		return fmt.Errorf("marshaling send request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, n.baseURL+"/send-message", bytes.NewReader(data),
	)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting to relay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf(
			"relay rejected send (%d): %s",
			resp.StatusCode, strings.TrimSpace(string(body)),
		)
	}

	return nil
}
