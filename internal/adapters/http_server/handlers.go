package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"tripdesk/internal/app"
	"tripdesk/internal/domain"
)

type Handlers struct {
	Users    *app.UserService
	OTP      *app.OTPService
	Search   *app.SearchService
	Bookings *app.BookingService
	Wizard   *app.WizardService

	validate *validator.Validate
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	h.validate = validator.New(validator.WithRequiredStructEnabled())

	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Post("/v1/users", h.register)
	s.mux.Get("/v1/users/{id}", h.getUser)
	s.mux.Post("/v1/users/{id}/checkin", h.checkIn)
	s.mux.Post("/v1/users/{id}/checkout", h.checkOut)

	s.mux.Post("/v1/otp/send", h.sendOTP)
	s.mux.Post("/v1/otp/verify", h.verifyOTP)

	s.mux.Post("/v1/flights/search", h.searchFlights)
	s.mux.Get("/v1/flights/search/{searchID}", h.getSearch)

	s.mux.Post("/v1/users/{id}/bookings", h.saveBooking)
	s.mux.Get("/v1/users/{id}/bookings", h.listBookings)

	s.mux.Post("/v1/wizard", h.wizardStart)
	s.mux.Get("/v1/wizard/{sid}", h.wizardGet)
	s.mux.Post("/v1/wizard/{sid}/search", h.wizardAttachSearch)
	s.mux.Post("/v1/wizard/{sid}/select", h.wizardSelect)
	s.mux.Post("/v1/wizard/{sid}/back", h.wizardBack)
	s.mux.Post("/v1/wizard/{sid}/confirm", h.wizardConfirm)
	s.mux.Post("/v1/wizard/{sid}/passenger", h.wizardPassenger)
	s.mux.Post("/v1/wizard/{sid}/payment", h.wizardPayment)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// decodeValid decodes the body into dst and runs struct validation.
// Validation failures never reach the service layer.
func (h *Handlers) decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return false
	}
	return true
}

/********** users **********/

type registerRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,min=7,max=20"`
}

func (h *Handlers) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	id, err := h.Users.Register(r.Context(), req.Name, req.Email, req.Phone)
	if err != nil {
		log.Error().Err(err).Msg("register failed")
		writeProblem(w, http.StatusInternalServerError, "Registration failed", "could not store user")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"userId": id})
}

func (h *Handlers) getUser(w http.ResponseWriter, r *http.Request) {
	u, ok, err := h.Users.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Lookup failed", "could not read user")
		return
	}
	if !ok {
		writeProblem(w, http.StatusNotFound, "Not Found", "user not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"userId":       u.ID,
		"name":         u.Name,
		"email":        u.Email,
		"phone":        u.Phone,
		"checkInTime":  u.CheckInTime,
		"checkOutTime": u.CheckOutTime,
	})
}

type checkRequest struct {
	Time string `json:"time" validate:"required"`
}

func (h *Handlers) checkIn(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	if err := h.Users.RecordCheckIn(r.Context(), chi.URLParam(r, "id"), req.Time); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handlers) checkOut(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	if err := h.Users.RecordCheckOut(r.Context(), chi.URLParam(r, "id"), req.Time); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

/********** otp **********/

type otpSendRequest struct {
	Phone string `json:"phone" validate:"required,min=7,max=20"`
}

func (h *Handlers) sendOTP(w http.ResponseWriter, r *http.Request) {
	var req otpSendRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	if err := h.OTP.Send(r.Context(), req.Phone); err != nil {
		log.Warn().Err(err).Msg("otp send failed")
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"error":   "Failed to send verification code. Please try again.",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type otpVerifyRequest struct {
	Phone string `json:"phone" validate:"required,min=7,max=20"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

func (h *Handlers) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req otpVerifyRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	ok, err := h.OTP.Verify(r.Context(), req.Phone, req.Code)
	if err != nil {
		log.Warn().Err(err).Msg("otp verify failed")
		ok = false
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": ok})
}

/********** flights **********/

type searchRequest struct {
	Origin        string `json:"origin" validate:"required,len=3,alpha,uppercase"`
	Destination   string `json:"destination" validate:"required,len=3,alpha,uppercase"`
	DepartureDate string `json:"departureDate" validate:"required,datetime=2006-01-02"`
	ReturnDate    string `json:"returnDate" validate:"omitempty,datetime=2006-01-02"`
	Adults        int    `json:"adults" validate:"omitempty,min=1,max=9"`
	CabinClass    string `json:"cabinClass" validate:"omitempty,oneof=ECONOMY PREMIUM_ECONOMY BUSINESS FIRST"`
}

func (h *Handlers) searchFlights(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	if req.Adults == 0 {
		req.Adults = 1
	}
	if req.CabinClass == "" {
		req.CabinClass = "ECONOMY"
	}

	outcome, err := h.Search.Search(r.Context(), domain.SearchParams{
		Origin:        req.Origin,
		Destination:   req.Destination,
		DepartureDate: req.DepartureDate,
		ReturnDate:    req.ReturnDate,
		Adults:        req.Adults,
		CabinClass:    req.CabinClass,
	})
	if err != nil {
		log.Error().Err(err).Msg("flight search failed")
		writeProblem(w, http.StatusBadGateway, "Search failed", "could not cache search results")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"searchId": outcome.SearchID,
		"results":  outcome.Results,
	})
}

// getSearch replays a cached result set, optionally sorted and
// flattened into normalized summaries for display.
func (h *Handlers) getSearch(w http.ResponseWriter, r *http.Request) {
	searchID := chi.URLParam(r, "searchID")
	res, ok, err := h.Search.GetSearch(r.Context(), searchID)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Lookup failed", "could not read search results")
		return
	}
	if !ok {
		writeProblem(w, http.StatusNotFound, "Not Found", "search expired or unknown")
		return
	}

	sortBy := app.SortKey(r.URL.Query().Get("sort"))
	switch sortBy {
	case app.SortByPrice, app.SortByDuration, app.SortByDeparture:
	default:
		sortBy = app.SortByPrice
	}

	tagged := make([]domain.TaggedOffer, 0)
	for _, o := range app.AmadeusOffers(res) {
		tagged = append(tagged, domain.TaggedOffer{Provider: domain.ProviderAmadeus, Offer: o})
	}
	for _, o := range app.DuffelOffers(res) {
		tagged = append(tagged, domain.TaggedOffer{Provider: domain.ProviderDuffel, Offer: o})
	}
	tagged = app.SortOffers(tagged, sortBy)

	offers := make([]map[string]any, 0, len(tagged))
	for _, t := range tagged {
		offers = append(offers, map[string]any{
			"provider": t.Provider,
			"summary":  app.Summarize(t),
			"route":    app.RouteSummary(t),
			"offer":    t.Offer,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"searchId": searchID,
		"results":  res,
		"offers":   offers,
		"sort":     sortBy,
	})
}

/********** bookings **********/

func (h *Handlers) saveBooking(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	id, err := h.Bookings.Save(r.Context(), chi.URLParam(r, "id"), payload)
	if err != nil {
		log.Error().Err(err).Msg("save booking failed")
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "Failed to save booking"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "bookingId": id})
}

func (h *Handlers) listBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.Bookings.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		log.Error().Err(err).Msg("list bookings failed")
		writeJSON(w, http.StatusOK, map[string]any{"bookings": []any{}, "error": "Failed to get bookings"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

/********** wizard **********/

type wizardStartRequest struct {
	UserID string `json:"userId" validate:"required"`
}

func (h *Handlers) wizardStart(w http.ResponseWriter, r *http.Request) {
	var req wizardStartRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	sess, err := h.Wizard.Start(r.Context(), req.UserID)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Wizard start failed", "could not persist session")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handlers) wizardGet(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Wizard.Get(r.Context(), chi.URLParam(r, "sid"))
	if err != nil {
		h.wizardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type wizardSearchRequest struct {
	SearchID string `json:"searchId" validate:"required"`
}

func (h *Handlers) wizardAttachSearch(w http.ResponseWriter, r *http.Request) {
	var req wizardSearchRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	sess, err := h.Wizard.AttachSearch(r.Context(), chi.URLParam(r, "sid"), req.SearchID)
	if err != nil {
		h.wizardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type wizardSelectRequest struct {
	Provider string         `json:"provider" validate:"required,oneof=amadeus duffel"`
	Offer    map[string]any `json:"offer" validate:"required"`
}

func (h *Handlers) wizardSelect(w http.ResponseWriter, r *http.Request) {
	var req wizardSelectRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	sess, err := h.Wizard.SelectFlight(r.Context(), chi.URLParam(r, "sid"), domain.Provider(req.Provider), req.Offer)
	if err != nil {
		h.wizardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handlers) wizardBack(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Wizard.Back(r.Context(), chi.URLParam(r, "sid"))
	if err != nil {
		h.wizardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handlers) wizardConfirm(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Wizard.ConfirmReview(r.Context(), chi.URLParam(r, "sid"))
	if err != nil {
		h.wizardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type wizardPassengerRequest struct {
	FullName    string `json:"fullName" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"required,min=7,max=20"`
	DateOfBirth string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	Nationality string `json:"nationality" validate:"omitempty,alpha"`
}

func (h *Handlers) wizardPassenger(w http.ResponseWriter, r *http.Request) {
	var req wizardPassengerRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	sess, err := h.Wizard.SubmitPassenger(r.Context(), chi.URLParam(r, "sid"), domain.Passenger{
		FullName:    req.FullName,
		Email:       req.Email,
		Phone:       req.Phone,
		DateOfBirth: req.DateOfBirth,
		Nationality: req.Nationality,
	})
	if err != nil {
		h.wizardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// wizardPaymentRequest is a UI stub: the card-shaped fields are
// validated for shape and then discarded; only the method is stored.
type wizardPaymentRequest struct {
	Method     string `json:"method" validate:"required,oneof=card paypal bank_transfer"`
	CardNumber string `json:"cardNumber" validate:"omitempty,credit_card"`
	CardExpiry string `json:"cardExpiry" validate:"omitempty,datetime=01/06"`
	CardCVV    string `json:"cardCvv" validate:"omitempty,len=3,numeric"`
}

func (h *Handlers) wizardPayment(w http.ResponseWriter, r *http.Request) {
	var req wizardPaymentRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	sess, err := h.Wizard.SubmitPayment(r.Context(), chi.URLParam(r, "sid"), req.Method)
	if err != nil && sess.State == domain.WizardConfirm {
		// Persistence failed; the session is still on the payment step.
		log.Error().Err(err).Msg("booking persistence failed")
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"error":   "Failed to confirm booking. Please try again.",
			"session": sess,
		})
		return
	}
	if err != nil {
		h.wizardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "session": sess})
}

func (h *Handlers) wizardError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrWizardNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "wizard session not found or expired")
	case errors.Is(err, app.ErrNoFlightSelected):
		writeProblem(w, http.StatusConflict, "No flight selected", "select a flight or go back to search")
	case errors.Is(err, app.ErrInvalidTransition):
		writeProblem(w, http.StatusConflict, "Invalid transition", err.Error())
	default:
		writeProblem(w, http.StatusInternalServerError, "Wizard error", "could not update session")
	}
}
