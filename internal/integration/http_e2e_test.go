//go:build integration || !unit

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	goredis "github.com/redis/go-redis/v9"

	httpserver "tripdesk/internal/adapters/http_server"
	redisad "tripdesk/internal/adapters/redis"
	"tripdesk/internal/app"
	"tripdesk/internal/domain"
)

// ---------- canned providers ----------

type cannedProvider struct {
	out map[string]any
	err error
}

func (c *cannedProvider) SearchOffers(ctx context.Context, p domain.SearchParams) (map[string]any, error) {
	return c.out, c.err
}

var duffelCanned = map[string]any{
	"data": map[string]any{
		"offers": []any{
			map[string]any{
				"id":             "off_e2e_1",
				"total_amount":   "321.40",
				"total_currency": "USD",
				"owner":          map[string]any{"name": "E2E Air"},
				"slices": []any{
					map[string]any{
						"origin":      map[string]any{"iata_code": "JFK"},
						"destination": map[string]any{"iata_code": "LAX"},
						"duration":    "PT6H15M",
						"segments": []any{
							map[string]any{
								"origin":            map[string]any{"iata_code": "JFK"},
								"destination":       map[string]any{"iata_code": "LAX"},
								"departing_at":      "2025-06-01T09:15:00",
								"arriving_at":       "2025-06-01T12:30:00",
								"marketing_carrier": map[string]any{"name": "E2E Air"},
							},
						},
					},
				},
			},
		},
	},
}

// ---------- http helpers ----------

func postJSON(t *testing.T, url string, body any, dst any) int {
	t.Helper()
	b, _ := json.Marshal(body)
	res, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer res.Body.Close()
	if dst != nil {
		if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return res.StatusCode
}

func getJSON(t *testing.T, url string, dst any) int {
	t.Helper()
	res, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer res.Body.Close()
	if dst != nil {
		if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return res.StatusCode
}

// ---------- the test ----------

func TestHTTP_EndToEnd_OnboardingToBooking(t *testing.T) {
	// Start isolated Redis container
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "redis",
		Tag:        "7",
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run redis: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	addr := "127.0.0.1:" + resource.GetPort("6379/tcp")
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := pool.Retry(func() error {
		return rdb.Ping(context.Background()).Err()
	}); err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })

	store := redisad.NewFromClient(rdb)
	bookings := app.NewBookingService(store)

	srv := httpserver.New()
	srv.MountHandlers(&httpserver.Handlers{
		Users:    app.NewUserService(store),
		OTP:      app.NewOTPService(store, nil, nil, 300),
		Search:   app.NewSearchService(&cannedProvider{err: fmt.Errorf("upstream 503")}, &cannedProvider{out: duffelCanned}, store, 15*time.Minute),
		Bookings: bookings,
		Wizard:   app.NewWizardService(store, bookings, nil, nil, 3600),
	})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	ctx := context.Background()
	phone := "+15550009999"

	// Register, then verify the phone with the actually stored code.
	var reg struct {
		UserID string `json:"userId"`
	}
	if code := postJSON(t, ts.URL+"/v1/users", map[string]any{
		"name": "E2E Guest", "email": "e2e@example.com", "phone": phone,
	}, &reg); code != http.StatusOK || reg.UserID == "" {
		t.Fatalf("register: code=%d resp=%+v", code, reg)
	}

	var sent struct {
		Success bool `json:"success"`
	}
	postJSON(t, ts.URL+"/v1/otp/send", map[string]any{"phone": phone}, &sent)
	if !sent.Success {
		t.Fatalf("otp send failed")
	}
	otp, err := rdb.Get(ctx, "otp:"+phone).Result()
	if err != nil {
		t.Fatalf("read stored otp: %v", err)
	}
	var verified struct {
		Success bool `json:"success"`
	}
	postJSON(t, ts.URL+"/v1/otp/verify", map[string]any{"phone": phone, "code": otp}, &verified)
	if !verified.Success {
		t.Fatalf("otp verify failed")
	}

	// Check in.
	var okResp struct {
		Success bool `json:"success"`
	}
	postJSON(t, ts.URL+"/v1/users/"+reg.UserID+"/checkin", map[string]any{"time": "2025-06-01T15:00:00Z"}, &okResp)
	if !okResp.Success {
		t.Fatalf("checkin failed")
	}

	// Search: one provider down, the other up.
	var search struct {
		SearchID string `json:"searchId"`
		Results  struct {
			Amadeus map[string]any `json:"amadeus"`
			Duffel  map[string]any `json:"duffel"`
		} `json:"results"`
	}
	if code := postJSON(t, ts.URL+"/v1/flights/search", map[string]any{
		"origin": "JFK", "destination": "LAX", "departureDate": "2025-06-01",
	}, &search); code != http.StatusOK {
		t.Fatalf("search: %d", code)
	}
	if search.Results.Amadeus != nil || search.Results.Duffel == nil {
		t.Fatalf("results: %+v", search.Results)
	}

	// Replay from the cache.
	var replay struct {
		Offers []struct {
			Provider string         `json:"provider"`
			Offer    map[string]any `json:"offer"`
		} `json:"offers"`
	}
	if code := getJSON(t, ts.URL+"/v1/flights/search/"+search.SearchID+"?sort=price", &replay); code != http.StatusOK {
		t.Fatalf("replay failed")
	}
	if len(replay.Offers) != 1 || replay.Offers[0].Provider != "duffel" {
		t.Fatalf("replay offers: %+v", replay.Offers)
	}

	// Walk the wizard end to end with the replayed offer.
	var sess domain.WizardSession
	postJSON(t, ts.URL+"/v1/wizard", map[string]any{"userId": reg.UserID}, &sess)
	base := ts.URL + "/v1/wizard/" + sess.ID
	postJSON(t, base+"/search", map[string]any{"searchId": search.SearchID}, &sess)
	postJSON(t, base+"/select", map[string]any{"provider": "duffel", "offer": replay.Offers[0].Offer}, &sess)
	postJSON(t, base+"/confirm", map[string]any{}, &sess)
	postJSON(t, base+"/passenger", map[string]any{
		"fullName": "E2E Guest", "email": "e2e@example.com", "phone": phone,
	}, &sess)

	var payment struct {
		Success bool                 `json:"success"`
		Session domain.WizardSession `json:"session"`
	}
	postJSON(t, base+"/payment", map[string]any{"method": "card"}, &payment)
	if !payment.Success || payment.Session.State != domain.WizardComplete {
		t.Fatalf("payment: %+v", payment)
	}

	// The booking landed under the user's hash.
	var listed struct {
		Bookings []map[string]any `json:"bookings"`
	}
	getJSON(t, ts.URL+"/v1/users/"+reg.UserID+"/bookings", &listed)
	if len(listed.Bookings) != 1 {
		t.Fatalf("bookings: %+v", listed.Bookings)
	}
	flight, _ := listed.Bookings[0]["flight"].(map[string]any)
	if flight == nil || flight["id"] != "off_e2e_1" {
		t.Fatalf("booking flight: %+v", listed.Bookings[0])
	}
}
