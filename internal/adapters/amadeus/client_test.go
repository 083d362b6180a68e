package amadeus_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"tripdesk/internal/adapters/amadeus"
	"tripdesk/internal/domain"
)

func newFakeAmadeus(t *testing.T, tokenCalls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/security/oauth2/token":
			atomic.AddInt32(tokenCalls, 1)
			if err := r.ParseForm(); err != nil || r.Form.Get("grant_type") != "client_credentials" {
				w.WriteHeader(400)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-1", "expires_in": 1799})
		case "/v2/shopping/flight-offers":
			if r.Header.Get("Authorization") != "Bearer tok-1" {
				w.WriteHeader(401)
				return
			}
			q := r.URL.Query()
			if q.Get("originLocationCode") != "JFK" || q.Get("adults") != "1" {
				w.WriteHeader(400)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": []any{map[string]any{"id": "1", "price": map[string]any{"total": "200.00"}}},
			})
		case "/v1/shopping/flight-offers/pricing":
			if r.Method != http.MethodPost || r.Header.Get("Authorization") != "Bearer tok-1" {
				w.WriteHeader(401)
				return
			}
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				w.WriteHeader(400)
				return
			}
			data, _ := body["data"].(map[string]any)
			offers, _ := data["flightOffers"].([]any)
			if data["type"] != "flight-offers-pricing" || len(offers) != 1 {
				w.WriteHeader(400)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{"flightOffers": []any{
					map[string]any{"id": "1", "price": map[string]any{"total": "212.40"}},
				}},
			})
		default:
			w.WriteHeader(404)
		}
	}))
}

func TestClient_SearchOffers(t *testing.T) {
	var tokenCalls int32
	ts := newFakeAmadeus(t, &tokenCalls)
	defer ts.Close()

	cl, err := amadeus.New(ts.URL, "key", "secret", 100)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	p := domain.SearchParams{Origin: "JFK", Destination: "LAX", DepartureDate: "2025-06-01", Adults: 1, CabinClass: "ECONOMY"}

	got, err := cl.SearchOffers(ctx, p)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	data, ok := got["data"].([]any)
	if !ok || len(data) != 1 {
		t.Fatalf("unexpected payload: %+v", got)
	}

	// Second search reuses the cached token.
	if _, err := cl.SearchOffers(ctx, p); err != nil {
		t.Fatalf("second search: %v", err)
	}
	if n := atomic.LoadInt32(&tokenCalls); n != 1 {
		t.Fatalf("expected 1 token exchange, got %d", n)
	}
}

func TestClient_PriceOffer(t *testing.T) {
	var tokenCalls int32
	ts := newFakeAmadeus(t, &tokenCalls)
	defer ts.Close()

	cl, _ := amadeus.New(ts.URL, "key", "secret", 100)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got, err := cl.PriceOffer(ctx, map[string]any{"id": "1"})
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	data, _ := got["data"].(map[string]any)
	offers, _ := data["flightOffers"].([]any)
	if len(offers) != 1 {
		t.Fatalf("unexpected payload: %+v", got)
	}
	price, _ := offers[0].(map[string]any)["price"].(map[string]any)
	if price["total"] != "212.40" {
		t.Fatalf("unexpected price: %+v", price)
	}
}

func TestClient_RequiresCredentials(t *testing.T) {
	if _, err := amadeus.New("http://x", "", "secret", 5); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := amadeus.New("http://x", "key", "", 5); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}

func TestClient_TokenExchangeFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
	}))
	defer ts.Close()

	cl, _ := amadeus.New(ts.URL, "key", "secret", 100)
	_, err := cl.SearchOffers(context.Background(), domain.SearchParams{Origin: "JFK", Destination: "LAX", DepartureDate: "2025-06-01", Adults: 1, CabinClass: "ECONOMY"})
	if err == nil {
		t.Fatalf("expected error when token exchange fails")
	}
}
