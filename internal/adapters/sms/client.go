package sms

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"tripdesk/internal/adapters/observability"
)

// Client sends messages through a form-encoded SMS gateway.
type Client struct {
	apiURL   string
	senderID string
	key      string
	hc       *http.Client
	rl       *rate.Limiter
}

func New(apiURL, senderID, key string) (*Client, error) {
	if apiURL == "" || senderID == "" || key == "" {
		return nil, fmt.Errorf("SMS gateway URL, sender id and key are required")
	}
	return &Client{
		apiURL:   apiURL,
		senderID: senderID,
		key:      key,
		hc:       &http.Client{Timeout: 30 * time.Second},
		rl:       rate.NewLimiter(rate.Limit(2), 2),
	}, nil
}

func (c *Client) Send(ctx context.Context, to, body string) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	form := url.Values{
		"sender":      {c.senderID},
		"apikey":      {c.key},
		"destination": {FormatNumber(to)},
		"message":     {body},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("sms", "send", resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("sms gateway status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return nil
}

// FormatNumber normalizes a destination to E.164-like form. Numbers
// without a leading "+" are assumed US and prefixed "+1".
func FormatNumber(phone string) string {
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	return "+1" + digits.String()
}
