package duffel

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

	"golang.org/x/time/rate"

	"tripdesk/internal/adapters/observability"
	"tripdesk/internal/domain"
)

var (
	ErrUnauthorized = errors.New("duffel: unauthorized")
	ErrForbidden    = errors.New("duffel: forbidden")
	ErrNotFound     = errors.New("duffel: not found")
)

// Client talks to the Duffel air API using a static bearer key.
type Client struct {
	base string
	key  string
	hc   *http.Client
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: base,
		key:  key,
		hc:   &http.Client{Timeout: 20 * time.Second},
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// SearchOffers creates an offer request with return_offers=true so the
// offers come back inline, and returns the native Duffel payload
// (data: {offers: [...]}) untouched.
func (c *Client) SearchOffers(ctx context.Context, p domain.SearchParams) (map[string]any, error) {
	slices := []map[string]any{{
		"origin":         p.Origin,
		"destination":    p.Destination,
		"departure_date": p.DepartureDate,
	}}
	if p.ReturnDate != "" {
		slices = append(slices, map[string]any{
			"origin":         p.Destination,
			"destination":    p.Origin,
			"departure_date": p.ReturnDate,
		})
	}
	passengers := make([]map[string]any, 0, p.Adults)
	for i := 0; i < p.Adults; i++ {
		passengers = append(passengers, map[string]any{"type": "adult"})
	}
	body := map[string]any{
		"slices":        slices,
		"passengers":    passengers,
		"cabin_class":   strings.ToLower(p.CabinClass),
		"return_offers": true,
	}

	var out map[string]any
	err := c.do(ctx, http.MethodPost, "/offer_requests", "offer_requests", body, &out)
	return out, err
}

// GetOffer fetches a single offer by id (used by the wizard review step).
func (c *Client) GetOffer(ctx context.Context, offerID string) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodGet, "/offers/"+offerID, "offers", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path, endpoint string, body, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Duffel-Version", "beta")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("duffel", endpoint, resp.StatusCode, time.Since(start))

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return json.NewDecoder(resp.Body).Decode(out)
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
}
