package domain

// User is an identity record keyed by a generated id, with unique
// phone and email lookup indexes maintained beside it.
type User struct {
	ID    string
	Name  string
	Email string
	Phone string

	// Check-in/check-out are free-form timestamp strings recorded by the
	// guest flow. Either may be re-recorded at any time; last write wins.
	CheckInTime  *string
	CheckOutTime *string
}
