package app

import (
	"math"
	"regexp"
	"sort"
	"strconv"

	"tripdesk/internal/domain"
)

// Sort keys for the results display. Offers missing the sorted-on field
// order last via large sentinels rather than erroring.

type SortKey string

const (
	SortByPrice     SortKey = "price"
	SortByDuration  SortKey = "duration"
	SortByDeparture SortKey = "departure"
)

const (
	priceSentinel    = 999999
	durationSentinel = 9999 // minutes
)

var (
	durationHours   = regexp.MustCompile(`(\d+)H`)
	durationMinutes = regexp.MustCompile(`(\d+)M`)
)

// SortOffers returns a stably sorted copy, ascending by the given key.
func SortOffers(offers []domain.TaggedOffer, by SortKey) []domain.TaggedOffer {
	out := make([]domain.TaggedOffer, len(offers))
	copy(out, offers)
	sort.SliceStable(out, func(i, j int) bool {
		switch by {
		case SortByDuration:
			return durationKey(out[i]) < durationKey(out[j])
		case SortByDeparture:
			return departureKey(out[i]) < departureKey(out[j])
		default:
			return priceKey(out[i]) < priceKey(out[j])
		}
	})
	return out
}

func priceKey(o domain.TaggedOffer) float64 {
	var paths []string
	if o.Provider == domain.ProviderAmadeus {
		paths = []string{"price.total"}
	} else {
		paths = []string{"total_amount"}
	}
	if f, ok := lookupFloat(o.Offer, paths...); ok {
		return f
	}
	return priceSentinel
}

// durationKey parses the first slice's PT#H#M token into minutes.
func durationKey(o domain.TaggedOffer) int {
	var token string
	if o.Provider == domain.ProviderAmadeus {
		if its := lookupList(o.Offer, "itineraries"); len(its) > 0 {
			token = lookupStr(asMap(its[0]), "duration")
		}
	} else {
		if sls := lookupList(o.Offer, "slices"); len(sls) > 0 {
			token = lookupStr(asMap(sls[0]), "duration")
		}
	}
	if token == "" {
		return durationSentinel
	}

	mins := 0
	found := false
	if m := durationHours.FindStringSubmatch(token); m != nil {
		if h, err := strconv.Atoi(m[1]); err == nil {
			mins += h * 60
			found = true
		}
	}
	if m := durationMinutes.FindStringSubmatch(token); m != nil {
		if mm, err := strconv.Atoi(m[1]); err == nil {
			mins += mm
			found = true
		}
	}
	if !found {
		return durationSentinel
	}
	return mins
}

// departureKey is the first departure as a unix timestamp; missing or
// unparseable departures sort last.
func departureKey(o domain.TaggedOffer) float64 {
	var ts string
	if o.Provider == domain.ProviderAmadeus {
		if its := lookupList(o.Offer, "itineraries"); len(its) > 0 {
			if segs := lookupList(asMap(its[0]), "segments"); len(segs) > 0 {
				ts = lookupStr(asMap(segs[0]), "departure.at")
			}
		}
	} else {
		if sls := lookupList(o.Offer, "slices"); len(sls) > 0 {
			if segs := lookupList(asMap(sls[0]), "segments"); len(segs) > 0 {
				ts = lookupStr(asMap(segs[0]), "departing_at")
			}
		}
	}
	t, ok := parseTimestamp(ts)
	if !ok {
		return math.Inf(1)
	}
	return float64(t.Unix())
}
