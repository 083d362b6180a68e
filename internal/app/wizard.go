package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"tripdesk/internal/domain"
)

var (
	ErrWizardNotFound    = errors.New("wizard: session not found")
	ErrInvalidTransition = errors.New("wizard: invalid transition")
	ErrNoFlightSelected  = errors.New("wizard: no flight selected")
)

// WizardService drives the booking wizard state machine over
// store-persisted sessions. Transitions are strictly forward except the
// explicit back edges.
type WizardService struct {
	store    domain.Store
	bookings *BookingService
	pricer   domain.OfferPricer  // nil disables re-pricing on review
	fetcher  domain.OfferFetcher // nil disables re-fetching on review
	ttlSec   int

	now func() time.Time
}

func NewWizardService(store domain.Store, bookings *BookingService, pricer domain.OfferPricer, fetcher domain.OfferFetcher, ttlSec int) *WizardService {
	return &WizardService{store: store, bookings: bookings, pricer: pricer, fetcher: fetcher, ttlSec: ttlSec, now: time.Now}
}

func wizardKey(id string) string { return "wizard:" + id }

// Start opens a fresh session in the search state.
func (s *WizardService) Start(ctx context.Context, userID string) (domain.WizardSession, error) {
	sess := domain.WizardSession{
		ID:     uuid.NewString(),
		UserID: userID,
		State:  domain.WizardSearch,
	}
	return sess, s.save(ctx, sess)
}

func (s *WizardService) Get(ctx context.Context, id string) (domain.WizardSession, error) {
	var sess domain.WizardSession
	ok, err := s.store.Get(ctx, wizardKey(id), &sess)
	if err != nil {
		return domain.WizardSession{}, err
	}
	if !ok {
		return domain.WizardSession{}, ErrWizardNotFound
	}
	return sess, nil
}

// AttachSearch records the search a guest is browsing and moves the
// session forward to flight selection.
func (s *WizardService) AttachSearch(ctx context.Context, id, searchID string) (domain.WizardSession, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return domain.WizardSession{}, err
	}
	if sess.State != domain.WizardSearch {
		return domain.WizardSession{}, fmt.Errorf("%w: %s -> select", ErrInvalidTransition, sess.State)
	}
	sess.SearchID = searchID
	sess.State = domain.WizardSelect
	return sess, s.save(ctx, sess)
}

// SelectFlight stores the chosen raw offer and enters the confirm
// state at the review sub-step.
func (s *WizardService) SelectFlight(ctx context.Context, id string, provider domain.Provider, offer map[string]any) (domain.WizardSession, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return domain.WizardSession{}, err
	}
	if sess.State != domain.WizardSelect {
		return domain.WizardSession{}, fmt.Errorf("%w: %s -> confirm", ErrInvalidTransition, sess.State)
	}
	if len(offer) == 0 {
		return domain.WizardSession{}, ErrNoFlightSelected
	}
	sess.Provider = provider
	sess.Offer = offer
	sess.State = domain.WizardConfirm
	sess.Step = domain.StepReview
	return sess, s.save(ctx, sess)
}

// Back returns to the previous top-level state: select -> search,
// confirm -> select. A completed session has no back edge.
func (s *WizardService) Back(ctx context.Context, id string) (domain.WizardSession, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return domain.WizardSession{}, err
	}
	switch sess.State {
	case domain.WizardSelect:
		sess.State = domain.WizardSearch
		sess.SearchID = ""
	case domain.WizardConfirm:
		sess.State = domain.WizardSelect
		sess.Step = ""
		sess.Provider = ""
		sess.Offer = nil
		sess.Passenger = nil
		sess.PaymentMethod = ""
	default:
		return domain.WizardSession{}, fmt.Errorf("%w: no back edge from %s", ErrInvalidTransition, sess.State)
	}
	return sess, s.save(ctx, sess)
}

// ConfirmReview acknowledges the review sub-step and advances to the
// passenger form, refreshing the selection against the provider first.
// A confirm state without a selected flight is an error whose only
// exit is Back to search.
func (s *WizardService) ConfirmReview(ctx context.Context, id string) (domain.WizardSession, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return domain.WizardSession{}, err
	}
	if sess.State != domain.WizardConfirm || sess.Step != domain.StepReview {
		return domain.WizardSession{}, fmt.Errorf("%w: %s/%s -> passenger", ErrInvalidTransition, sess.State, sess.Step)
	}
	if len(sess.Offer) == 0 {
		return domain.WizardSession{}, ErrNoFlightSelected
	}
	sess.Offer = s.refreshOffer(ctx, sess)
	sess.Step = domain.StepPassenger
	return sess, s.save(ctx, sess)
}

// refreshOffer re-prices an Amadeus selection or re-fetches a Duffel
// one so the confirmed booking carries current data. A refresh failure
// keeps the stale selection; confirmation never blocks on a provider.
func (s *WizardService) refreshOffer(ctx context.Context, sess domain.WizardSession) map[string]any {
	switch sess.Provider {
	case domain.ProviderAmadeus:
		if s.pricer == nil {
			break
		}
		out, err := s.pricer.PriceOffer(ctx, sess.Offer)
		if err != nil {
			log.Warn().Err(err).Str("provider", "amadeus").Msg("offer re-price failed")
			break
		}
		if offers := lookupList(out, "data.flightOffers"); len(offers) > 0 {
			if m := asMap(offers[0]); m != nil {
				return m
			}
		}
	case domain.ProviderDuffel:
		if s.fetcher == nil {
			break
		}
		id := lookupStr(sess.Offer, "id")
		if id == "" {
			break
		}
		out, err := s.fetcher.GetOffer(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("provider", "duffel").Msg("offer refresh failed")
			break
		}
		if m := asMap(lookupAny(out, "data")); m != nil {
			return m
		}
	}
	return sess.Offer
}

// SubmitPassenger stores passenger details and advances to payment.
func (s *WizardService) SubmitPassenger(ctx context.Context, id string, p domain.Passenger) (domain.WizardSession, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return domain.WizardSession{}, err
	}
	if sess.State != domain.WizardConfirm || sess.Step != domain.StepPassenger {
		return domain.WizardSession{}, fmt.Errorf("%w: %s/%s -> payment", ErrInvalidTransition, sess.State, sess.Step)
	}
	sess.Passenger = &p
	sess.Step = domain.StepPayment
	return sess, s.save(ctx, sess)
}

// SubmitPayment persists the booking and completes the wizard. On a
// failed save the session stays on the payment sub-step so the guest
// can retry; nothing is retried automatically.
func (s *WizardService) SubmitPayment(ctx context.Context, id, method string) (domain.WizardSession, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return domain.WizardSession{}, err
	}
	if sess.State != domain.WizardConfirm || sess.Step != domain.StepPayment {
		return domain.WizardSession{}, fmt.Errorf("%w: %s/%s -> complete", ErrInvalidTransition, sess.State, sess.Step)
	}
	if len(sess.Offer) == 0 {
		return domain.WizardSession{}, ErrNoFlightSelected
	}
	if sess.Passenger == nil {
		return domain.WizardSession{}, fmt.Errorf("%w: missing passenger details", ErrInvalidTransition)
	}

	payload := buildBookingPayload(sess, method, s.now().UTC())
	bookingID, err := s.bookings.Save(ctx, sess.UserID, payload)
	if err != nil {
		// Stay on the payment sub-step; the caller surfaces the error.
		return sess, err
	}

	sess.PaymentMethod = method
	sess.BookingID = bookingID
	sess.State = domain.WizardComplete
	sess.Step = ""
	return sess, s.save(ctx, sess)
}

func (s *WizardService) save(ctx context.Context, sess domain.WizardSession) error {
	return s.store.Set(ctx, wizardKey(sess.ID), sess, s.ttlSec)
}

// buildBookingPayload combines the raw selected offer's identity, its
// normalized display projection, passenger details and payment metadata
// (method and display amount only; no capture).
func buildBookingPayload(sess domain.WizardSession, method string, at time.Time) map[string]any {
	tagged := domain.TaggedOffer{Provider: sess.Provider, Offer: sess.Offer}
	sum := Summarize(tagged)

	origin, destination, departureDate := "???", "???", "Unknown"
	if len(sum.Slices) > 0 {
		origin = sum.Slices[0].Origin
		destination = sum.Slices[0].Destination
		if t, ok := parseTimestamp(sum.Slices[0].Departure); ok {
			departureDate = t.Format("2006-01-02")
		}
	}

	offerID := sum.ID
	if offerID == "" {
		offerID = "unknown"
	}

	first := sess.Passenger.FullName
	last := ""
	if i := strings.IndexByte(first, ' '); i >= 0 {
		first, last = first[:i], strings.TrimSpace(first[i+1:])
	}

	return map[string]any{
		"provider": string(sess.Provider),
		"offer":    sess.Offer,
		"flight": map[string]any{
			"id": offerID,
			"details": map[string]any{
				"airline":       sum.Airline,
				"origin":        origin,
				"destination":   destination,
				"departureDate": departureDate,
				"price":         sum.PriceDisplay,
			},
		},
		"passenger": map[string]any{
			"firstName":   first,
			"lastName":    last,
			"email":       sess.Passenger.Email,
			"phone":       sess.Passenger.Phone,
			"dateOfBirth": sess.Passenger.DateOfBirth,
			"nationality": sess.Passenger.Nationality,
		},
		"payment": map[string]any{
			"method":    method,
			"amount":    sum.PriceDisplay,
			"currency":  sum.Currency,
			"timestamp": at.Format(time.RFC3339),
		},
	}
}
