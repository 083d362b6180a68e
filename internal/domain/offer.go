package domain

// Provider tags which flight-search API a raw offer came from. The two
// providers return incompatible schemas; the tag selects the projection.
type Provider string

const (
	ProviderAmadeus Provider = "amadeus"
	ProviderDuffel  Provider = "duffel"
)

// TaggedOffer pairs an untouched provider payload with its source tag.
// Raw offers are opaque pass-through blobs; only OfferSummary is typed.
type TaggedOffer struct {
	Provider Provider       `json:"provider"`
	Offer    map[string]any `json:"offer"`
}

// OfferSummary is the provider-agnostic projection of a raw offer used
// for display and sorting. Missing source data degrades to placeholders,
// never to an error.
type OfferSummary struct {
	ID           string  `json:"id"`
	Price        float64 `json:"price"`
	PriceKnown   bool    `json:"priceKnown"`
	PriceDisplay string  `json:"priceDisplay"`
	Currency     string  `json:"currency"`
	Airline      string  `json:"airline"`

	Slices []SliceSummary `json:"slices"`
}

// SliceSummary is one directional leg (outbound or return).
type SliceSummary struct {
	Kind        string `json:"kind"` // outbound | return
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Departure   string `json:"departure"`
	Arrival     string `json:"arrival"`
	Duration    string `json:"duration"` // "2h 30m", or "N/A"
	Stops       int    `json:"stops"`

	Segments []SegmentSummary `json:"segments"`
}

type SegmentSummary struct {
	DepartureTime string `json:"departureTime"`
	DepartureCode string `json:"departureCode"`
	ArrivalTime   string `json:"arrivalTime"`
	ArrivalCode   string `json:"arrivalCode"`
	Carrier       string `json:"carrier"`
	FlightNumber  string `json:"flightNumber"`
	Aircraft      string `json:"aircraft"`
}
