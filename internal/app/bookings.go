package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"tripdesk/internal/domain"
)

// BookingService appends booking records to a per-user collection.
// Bookings are stored locally as opaque JSON and are never submitted to
// either provider's order-creation endpoint; this is a deliberate demo
// boundary, not an integration gap.
type BookingService struct {
	store domain.Store

	now func() time.Time
}

func NewBookingService(store domain.Store) *BookingService {
	return &BookingService{store: store, now: time.Now}
}

func bookingsKey(userID string) string { return "user:" + userID + ":bookings" }

// Save stamps the payload with a generated booking id and date and
// appends it to the user's collection. Append-only; there is no update
// or cancellation path.
func (s *BookingService) Save(ctx context.Context, userID string, payload map[string]any) (string, error) {
	now := s.now()
	bookingID := fmt.Sprintf("booking:%d", now.UnixMilli())

	rec := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		rec[k] = v
	}
	rec["bookingId"] = bookingID
	rec["bookingDate"] = now.UTC().Format(time.RFC3339)

	b, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal booking: %w", err)
	}
	if err := s.store.HSet(ctx, bookingsKey(userID), bookingID, string(b)); err != nil {
		return "", fmt.Errorf("store booking: %w", err)
	}
	return bookingID, nil
}

// List returns all of a user's bookings. Entries that fail to parse are
// skipped with a warning rather than failing the whole listing.
func (s *BookingService) List(ctx context.Context, userID string) ([]map[string]any, error) {
	raw, err := s.store.HGetAll(ctx, bookingsKey(userID))
	if err != nil {
		return nil, fmt.Errorf("read bookings: %w", err)
	}
	out := make([]map[string]any, 0, len(raw))
	for id, v := range raw {
		var rec map[string]any
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			log.Warn().Err(err).Str("bookingId", id).Msg("skipping malformed booking record")
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
