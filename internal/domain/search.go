package domain

// SearchParams are the normalized flight-search inputs shared by both
// provider clients.
type SearchParams struct {
	Origin        string
	Destination   string
	DepartureDate string // 2006-01-02
	ReturnDate    string // optional; empty for one-way
	Adults        int
	CabinClass    string // ECONOMY | PREMIUM_ECONOMY | BUSINESS | FIRST
}

// SearchResults tags each provider's outcome. A nil slot means that
// provider failed or returned nothing; it is not an overall error.
type SearchResults struct {
	Amadeus map[string]any `json:"amadeus"`
	Duffel  map[string]any `json:"duffel"`
}

// SearchOutcome is a merged result set addressable by SearchID within
// the cache window.
type SearchOutcome struct {
	SearchID string        `json:"searchId"`
	Results  SearchResults `json:"results"`
}
