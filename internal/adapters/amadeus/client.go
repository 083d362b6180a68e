package amadeus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tripdesk/internal/adapters/observability"
	"tripdesk/internal/domain"
)

var (
	ErrUnauthorized = errors.New("amadeus: unauthorized")
	ErrForbidden    = errors.New("amadeus: forbidden")
	ErrNotFound     = errors.New("amadeus: not found")
)

// Client talks to the Amadeus self-service API. Authentication is an
// OAuth2 client-credentials exchange; the bearer token is cached and
// refreshed shortly before it expires.
type Client struct {
	base   string
	key    string
	secret string
	hc     *http.Client
	rl     *rate.Limiter

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func New(base, key, secret string, rps int) (*Client, error) {
	if key == "" || secret == "" {
		return nil, fmt.Errorf("API key and secret are required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base:   base,
		key:    key,
		secret: secret,
		hc:     &http.Client{Timeout: 20 * time.Second},
		rl:     rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// Token returns a valid bearer, exchanging credentials when the cached
// one is absent or within 30s of expiry.
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Until(c.tokenExp) > 30*time.Second {
		return c.token, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.key},
		"client_secret": {c.secret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.base+"/v1/security/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("amadeus", "token", resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("token exchange failed: %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", errors.New("token exchange returned empty access_token")
	}
	c.token = tok.AccessToken
	c.tokenExp = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.token, nil
}

// SearchOffers runs a flight-offers search and returns the native
// Amadeus payload (data: [offers...]) untouched.
func (c *Client) SearchOffers(ctx context.Context, p domain.SearchParams) (map[string]any, error) {
	q := url.Values{
		"originLocationCode":      {p.Origin},
		"destinationLocationCode": {p.Destination},
		"departureDate":           {p.DepartureDate},
		"adults":                  {strconv.Itoa(p.Adults)},
		"travelClass":             {p.CabinClass},
		"currencyCode":            {"USD"},
		"max":                     {"10"},
	}
	if p.ReturnDate != "" {
		q.Set("returnDate", p.ReturnDate)
	}

	var out map[string]any
	err := c.do(ctx, http.MethodGet, "/v2/shopping/flight-offers?"+q.Encode(), "search", nil, &out)
	return out, err
}

// PriceOffer confirms pricing for a previously returned raw offer.
func (c *Client) PriceOffer(ctx context.Context, offer map[string]any) (map[string]any, error) {
	body := map[string]any{
		"data": map[string]any{
			"type":         "flight-offers-pricing",
			"flightOffers": []any{offer},
		},
	}
	var out map[string]any
	err := c.do(ctx, http.MethodPost, "/v1/shopping/flight-offers/pricing", "pricing", body, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path, endpoint string, body, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}
	token, err := c.Token(ctx)
	if err != nil {
		return err
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("amadeus", endpoint, resp.StatusCode, time.Since(start))

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
