package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tripdesk/internal/domain"
)

// Normalization of raw provider offers into the shared display
// projection. Every lookup tolerates missing keys at any depth and
// degrades to placeholders; nothing in this file returns an error.

const (
	unknownAirport = "???"
	unknownCarrier = "Unknown"
	multiAirline   = "Multiple Airlines"
	noValue        = "N/A"
)

/********** safe lookup helpers **********/

// lookupAny: nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns the string at path or "".
func lookupStr(m map[string]any, path string) string {
	if s, ok := lookupAny(m, path).(string); ok {
		return s
	}
	return ""
}

// firstStr returns the first non-empty string among paths.
func firstStr(m map[string]any, paths ...string) string {
	for _, p := range paths {
		if s := lookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

// lookupList returns the []any at path, or nil.
func lookupList(m map[string]any, path string) []any {
	if l, ok := lookupAny(m, path).([]any); ok {
		return l
	}
	return nil
}

// asMap narrows an any to a map, or nil.
func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}

// lookupFloat accepts float64 or numeric string at the given paths.
func lookupFloat(m map[string]any, paths ...string) (float64, bool) {
	for _, p := range paths {
		switch v := lookupAny(m, p).(type) {
		case float64:
			return v, true
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

/********** offer projection **********/

// Summarize maps one raw offer to the provider-agnostic projection.
func Summarize(o domain.TaggedOffer) domain.OfferSummary {
	out := domain.OfferSummary{ID: lookupStr(o.Offer, "id")}
	if o.Offer == nil {
		out.Airline = multiAirline
		out.PriceDisplay = noValue
		out.Currency = "USD"
		return out
	}

	switch o.Provider {
	case domain.ProviderAmadeus:
		out.Price, out.PriceKnown = lookupFloat(o.Offer, "price.total")
		out.Currency = firstStr(o.Offer, "price.currency")
		if codes := lookupList(o.Offer, "validatingAirlineCodes"); len(codes) > 0 {
			if s, ok := codes[0].(string); ok && s != "" {
				out.Airline = s
			}
		}
		for i, it := range lookupList(o.Offer, "itineraries") {
			out.Slices = append(out.Slices, summarizeSlice(o.Provider, asMap(it), i))
		}
	default: // duffel
		out.Price, out.PriceKnown = lookupFloat(o.Offer, "total_amount")
		out.Currency = firstStr(o.Offer, "total_currency", "currency")
		out.Airline = lookupStr(o.Offer, "owner.name")
		for i, sl := range lookupList(o.Offer, "slices") {
			out.Slices = append(out.Slices, summarizeSlice(o.Provider, asMap(sl), i))
		}
	}

	if out.Airline == "" {
		out.Airline = multiAirline
	}
	if out.Currency == "" {
		out.Currency = "USD"
	}
	out.PriceDisplay = formatPrice(out.Price, out.PriceKnown, out.Currency)
	return out
}

func summarizeSlice(provider domain.Provider, slice map[string]any, idx int) domain.SliceSummary {
	out := domain.SliceSummary{
		Kind:        sliceKind(idx),
		Origin:      unknownAirport,
		Destination: unknownAirport,
		Duration:    noValue,
	}
	if slice == nil {
		return out
	}

	segs := lookupList(slice, "segments")
	for _, s := range segs {
		out.Segments = append(out.Segments, summarizeSegment(provider, asMap(s)))
	}
	if n := len(out.Segments); n > 0 {
		first, last := out.Segments[0], out.Segments[len(out.Segments)-1]
		out.Origin = first.DepartureCode
		out.Destination = last.ArrivalCode
		out.Departure = first.DepartureTime
		out.Arrival = last.ArrivalTime
		out.Stops = n - 1
		out.Duration = spanDuration(first.DepartureTime, last.ArrivalTime)
	}

	// Duffel carries origin/destination at the slice level too; prefer
	// them when the segment data gave us nothing.
	if out.Origin == unknownAirport {
		if s := lookupStr(slice, "origin.iata_code"); s != "" {
			out.Origin = s
		}
	}
	if out.Destination == unknownAirport {
		if s := lookupStr(slice, "destination.iata_code"); s != "" {
			out.Destination = s
		}
	}
	return out
}

func summarizeSegment(provider domain.Provider, seg map[string]any) domain.SegmentSummary {
	out := domain.SegmentSummary{
		DepartureCode: unknownAirport,
		ArrivalCode:   unknownAirport,
		Carrier:       unknownCarrier,
	}
	if seg == nil {
		return out
	}

	if provider == domain.ProviderAmadeus {
		out.DepartureTime = lookupStr(seg, "departure.at")
		out.ArrivalTime = lookupStr(seg, "arrival.at")
		if s := lookupStr(seg, "departure.iataCode"); s != "" {
			out.DepartureCode = s
		}
		if s := lookupStr(seg, "arrival.iataCode"); s != "" {
			out.ArrivalCode = s
		}
		if s := lookupStr(seg, "carrierCode"); s != "" {
			out.Carrier = s
		}
		out.FlightNumber = lookupStr(seg, "number")
		out.Aircraft = lookupStr(seg, "aircraft.code")
		return out
	}

	out.DepartureTime = lookupStr(seg, "departing_at")
	out.ArrivalTime = lookupStr(seg, "arriving_at")
	if s := lookupStr(seg, "origin.iata_code"); s != "" {
		out.DepartureCode = s
	}
	if s := lookupStr(seg, "destination.iata_code"); s != "" {
		out.ArrivalCode = s
	}
	if s := lookupStr(seg, "marketing_carrier.name"); s != "" {
		out.Carrier = s
	}
	out.FlightNumber = lookupStr(seg, "marketing_carrier_flight_number")
	out.Aircraft = lookupStr(seg, "aircraft.name")
	return out
}

/********** display formatting **********/

// RouteSummary renders a one-line itinerary, e.g.
// "Outbound: JFK → LAX (09:15) | Return: LAX → JFK (18:40)".
func RouteSummary(o domain.TaggedOffer) string {
	sum := Summarize(o)
	if len(sum.Slices) == 0 {
		return "Flight details unavailable"
	}
	parts := make([]string, 0, len(sum.Slices))
	for _, sl := range sum.Slices {
		label := "Outbound"
		if sl.Kind == "return" {
			label = "Return"
		}
		parts = append(parts, fmt.Sprintf("%s: %s → %s (%s)", label, sl.Origin, sl.Destination, clockTime(sl.Departure)))
	}
	return strings.Join(parts, " | ")
}

func formatPrice(price float64, known bool, currency string) string {
	if !known {
		return noValue
	}
	return fmt.Sprintf("%.2f %s", price, currency)
}

// spanDuration renders the difference between two timestamps as
// "2h 30m", or "N/A" when either end is missing or unparseable.
func spanDuration(departure, arrival string) string {
	dep, ok1 := parseTimestamp(departure)
	arr, ok2 := parseTimestamp(arrival)
	if !ok1 || !ok2 {
		return noValue
	}
	mins := int(arr.Sub(dep).Minutes())
	return fmt.Sprintf("%dh %dm", mins/60, mins%60)
}

// clockTime renders an HH:MM display time, or "N/A".
func clockTime(ts string) string {
	t, ok := parseTimestamp(ts)
	if !ok {
		return noValue
	}
	return t.Format("15:04")
}

// parseTimestamp accepts the timestamp shapes the two providers emit:
// RFC3339 with zone (Amadeus) and zone-less local time (Duffel).
func parseTimestamp(ts string) (time.Time, bool) {
	if ts == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func sliceKind(idx int) string {
	if idx == 0 {
		return "outbound"
	}
	return "return"
}

/********** result-set extraction **********/

// AmadeusOffers pulls the raw offer list out of a merged result set.
func AmadeusOffers(r domain.SearchResults) []map[string]any {
	return offerMaps(lookupList(r.Amadeus, "data"))
}

// DuffelOffers pulls the raw offer list out of a merged result set.
func DuffelOffers(r domain.SearchResults) []map[string]any {
	return offerMaps(lookupList(r.Duffel, "data.offers"))
}

func offerMaps(raw []any) []map[string]any {
	out := make([]map[string]any, 0, len(raw))
	for _, v := range raw {
		if m := asMap(v); m != nil {
			out = append(out, m)
		}
	}
	return out
}
