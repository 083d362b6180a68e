package domain

import "context"

// Store is the key-value persistence surface: JSON values with optional
// expiry, plain strings for lookup indexes, and hashes for records and
// collections. ttlSec <= 0 means no expiry.
type Store interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error

	GetString(ctx context.Context, key string) (string, bool, error)
	SetString(ctx context.Context, key, val string, ttlSec int) error

	HSet(ctx context.Context, key, field, val string) error
	HSetMap(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// FlightProvider is one upstream flight-search API. The returned payload
// is the provider's native JSON, decoded but otherwise untouched.
type FlightProvider interface {
	SearchOffers(ctx context.Context, p SearchParams) (map[string]any, error)
}

// OfferPricer confirms current pricing for a previously returned raw
// offer (Amadeus).
type OfferPricer interface {
	PriceOffer(ctx context.Context, offer map[string]any) (map[string]any, error)
}

// OfferFetcher re-fetches a single offer's current payload by id (Duffel).
type OfferFetcher interface {
	GetOffer(ctx context.Context, offerID string) (map[string]any, error)
}

// SMSSender delivers a text message to an E.164-ish destination.
type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}
