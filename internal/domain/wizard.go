package domain

// Booking wizard states. Transitions are strictly forward except the
// explicit back edges (select→search, confirm→select).
type WizardState string

const (
	WizardSearch   WizardState = "search"
	WizardSelect   WizardState = "select"
	WizardConfirm  WizardState = "confirm"
	WizardComplete WizardState = "complete"
)

// ConfirmStep is the sub-step within WizardConfirm.
type ConfirmStep string

const (
	StepReview    ConfirmStep = "review"
	StepPassenger ConfirmStep = "passenger"
	StepPayment   ConfirmStep = "payment"
)

type Passenger struct {
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"dateOfBirth"`
	Nationality string `json:"nationality"`
}

// WizardSession is the server-side wizard state, persisted per session id.
type WizardSession struct {
	ID     string      `json:"id"`
	UserID string      `json:"userId"`
	State  WizardState `json:"state"`
	Step   ConfirmStep `json:"step,omitempty"` // set while State == confirm

	SearchID string         `json:"searchId,omitempty"`
	Provider Provider       `json:"provider,omitempty"`
	Offer    map[string]any `json:"offer,omitempty"`

	Passenger     *Passenger `json:"passenger,omitempty"`
	PaymentMethod string     `json:"paymentMethod,omitempty"`
	BookingID     string     `json:"bookingId,omitempty"`
}
