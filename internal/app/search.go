package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"tripdesk/internal/domain"
)

// SearchService fans a search out to both providers, merges whatever
// came back, and caches the merged set for later re-display.
type SearchService struct {
	amadeus domain.FlightProvider
	duffel  domain.FlightProvider
	store   domain.Store
	ttl     time.Duration

	now func() time.Time
}

func NewSearchService(amadeus, duffel domain.FlightProvider, store domain.Store, ttl time.Duration) *SearchService {
	return &SearchService{amadeus: amadeus, duffel: duffel, store: store, ttl: ttl, now: time.Now}
}

// Search issues both provider searches concurrently and waits for both
// to settle. A provider failure empties that provider's slot; it never
// fails the search. The only error paths are infrastructure ones.
func (s *SearchService) Search(ctx context.Context, p domain.SearchParams) (domain.SearchOutcome, error) {
	var res domain.SearchResults

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := s.amadeus.SearchOffers(gctx, p)
		if err != nil {
			log.Warn().Err(err).Str("provider", "amadeus").Msg("provider search failed")
			return nil
		}
		res.Amadeus = out
		return nil
	})
	g.Go(func() error {
		out, err := s.duffel.SearchOffers(gctx, p)
		if err != nil {
			log.Warn().Err(err).Str("provider", "duffel").Msg("provider search failed")
			return nil
		}
		res.Duffel = out
		return nil
	})
	_ = g.Wait() // branches never return errors

	outcome := domain.SearchOutcome{
		SearchID: fmt.Sprintf("flight-search:%d", s.now().UnixMilli()),
		Results:  res,
	}
	if err := s.store.Set(ctx, outcome.SearchID, outcome.Results, int(s.ttl.Seconds())); err != nil {
		return domain.SearchOutcome{}, fmt.Errorf("cache search results: %w", err)
	}
	return outcome, nil
}

// GetSearch replays a cached result set within its expiry window.
func (s *SearchService) GetSearch(ctx context.Context, searchID string) (domain.SearchResults, bool, error) {
	var res domain.SearchResults
	ok, err := s.store.Get(ctx, searchID, &res)
	if err != nil {
		return domain.SearchResults{}, false, err
	}
	return res, ok, nil
}
