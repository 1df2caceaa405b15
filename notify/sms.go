package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SMSConfig configures the HTTP SMS gateway sender.
type SMSConfig struct {
	// Endpoint is the gateway's message-create URL.
	Endpoint string
	// APIKey authenticates against the gateway.
	APIKey string
	// Originator is the sender id shown to the recipient.
	Originator string
}

// SMSSender delivers codes through an HTTP SMS gateway using form-encoded
// POST requests.
type SMSSender struct {
	config SMSConfig
	client *http.Client
}

// NewSMSSender builds an SMS [Sender]. client may be nil for a default with
// a 10 second timeout.
func NewSMSSender(cfg SMSConfig, client *http.Client) *SMSSender {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &SMSSender{config: cfg, client: client}
}

// Send implements [Sender].
func (s *SMSSender) Send(ctx context.Context, msg Message) error {
	form := url.Values{}
	form.Set("apiKey", s.config.APIKey)
	form.Set("recipient", msg.Recipient)
	form.Set("from", s.config.Originator)
	form.Set("text", fmt.Sprintf("Your sign-in code is %s. It expires in %d minutes.",
		msg.Code, int(msg.ExpiresIn.Minutes())))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.Endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms gateway status %d: %s", resp.StatusCode, body)
	}
	return nil
}
