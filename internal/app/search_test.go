package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tripdesk/internal/app"
	"tripdesk/internal/domain"
)

type fakeProvider struct {
	out   map[string]any
	err   error
	delay time.Duration
}

func (f *fakeProvider) SearchOffers(ctx context.Context, p domain.SearchParams) (map[string]any, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.out, f.err
}

func TestSearch_PartialProviderFailure(t *testing.T) {
	duffelPayload := map[string]any{
		"data": map[string]any{"offers": []any{map[string]any{"id": "off_1", "total_amount": "200.00"}}},
	}
	svc := app.NewSearchService(
		&fakeProvider{err: errors.New("amadeus timed out")},
		&fakeProvider{out: duffelPayload},
		newFakeStore(),
		15*time.Minute,
	)

	out, err := svc.Search(context.Background(), domain.SearchParams{
		Origin: "JFK", Destination: "LAX", DepartureDate: "2025-06-01", Adults: 1, CabinClass: "ECONOMY",
	})
	if err != nil {
		t.Fatalf("search must not fail on a provider failure: %v", err)
	}
	if out.Results.Amadeus != nil {
		t.Fatalf("expected nil amadeus slot: %+v", out.Results.Amadeus)
	}
	if out.Results.Duffel == nil {
		t.Fatalf("expected populated duffel slot")
	}
	if got := app.DuffelOffers(out.Results); len(got) != 1 {
		t.Fatalf("expected 1 duffel offer, got %d", len(got))
	}
	if !strings.HasPrefix(out.SearchID, "flight-search:") {
		t.Fatalf("search id: %q", out.SearchID)
	}
}

func TestSearch_BothProvidersFail(t *testing.T) {
	svc := app.NewSearchService(
		&fakeProvider{err: errors.New("down")},
		&fakeProvider{err: errors.New("down")},
		newFakeStore(),
		15*time.Minute,
	)
	out, err := svc.Search(context.Background(), domain.SearchParams{Origin: "JFK", Destination: "LAX", DepartureDate: "2025-06-01", Adults: 1})
	if err != nil {
		t.Fatalf("dual provider failure is still a successful search: %v", err)
	}
	if out.Results.Amadeus != nil || out.Results.Duffel != nil {
		t.Fatalf("expected both slots nil: %+v", out.Results)
	}
}

func TestSearch_CacheWriteFailureIsFatal(t *testing.T) {
	st := newFakeStore()
	st.setErr = errors.New("redis gone")
	svc := app.NewSearchService(&fakeProvider{out: map[string]any{}}, &fakeProvider{out: map[string]any{}}, st, time.Minute)

	if _, err := svc.Search(context.Background(), domain.SearchParams{Origin: "JFK", Destination: "LAX", DepartureDate: "2025-06-01", Adults: 1}); err == nil {
		t.Fatalf("expected infrastructure failure to surface")
	}
}

func TestSearch_CachedResultReplay(t *testing.T) {
	st := newFakeStore()
	svc := app.NewSearchService(
		&fakeProvider{out: map[string]any{"data": []any{map[string]any{"id": "1"}}}},
		&fakeProvider{err: errors.New("down")},
		st,
		15*time.Minute,
	)

	out, err := svc.Search(context.Background(), domain.SearchParams{Origin: "JFK", Destination: "LAX", DepartureDate: "2025-06-01", Adults: 1})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	res, ok, err := svc.GetSearch(context.Background(), out.SearchID)
	if err != nil || !ok {
		t.Fatalf("replay: ok=%v err=%v", ok, err)
	}
	if len(app.AmadeusOffers(res)) != 1 || res.Duffel != nil {
		t.Fatalf("replayed results: %+v", res)
	}

	if _, ok, _ := svc.GetSearch(context.Background(), "flight-search:0"); ok {
		t.Fatalf("unknown search id must miss")
	}
}

func TestSearch_ProvidersRunConcurrently(t *testing.T) {
	delay := 150 * time.Millisecond
	svc := app.NewSearchService(
		&fakeProvider{out: map[string]any{}, delay: delay},
		&fakeProvider{out: map[string]any{}, delay: delay},
		newFakeStore(),
		time.Minute,
	)

	start := time.Now()
	if _, err := svc.Search(context.Background(), domain.SearchParams{Origin: "JFK", Destination: "LAX", DepartureDate: "2025-06-01", Adults: 1}); err != nil {
		t.Fatalf("search: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*delay {
		t.Fatalf("providers appear serialized: %v", elapsed)
	}
}
