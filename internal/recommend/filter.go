package recommend

import (
	"sort"

	"github.com/spherical-ai/phone-advisor/internal/catalog"
)

// Admission decides whether a phone is considered before scoring.
type Admission int

const (
	// AdmissionStrict rejects phones outside [min_price, max_price] or of another brand.
	AdmissionStrict Admission = iota
	// AdmissionLenient rejects only phones above max_price*LenientPriceSlack or of
	// another brand. Not selectable per request.
	AdmissionLenient
)

// LenientPriceSlack is the price band tolerated by AdmissionLenient.
const LenientPriceSlack = 1.3

// ActiveAdmission is the policy used by Filter.
const ActiveAdmission = AdmissionStrict

// Match is a phone annotated with its score.
type Match struct {
	catalog.Phone
	MatchPercentage float64  `json:"match_percentage"`
	Reasons         []string `json:"reasons"`
}

// Filter admits phones under ActiveAdmission, scores them and returns them
// sorted by descending match percentage. Ties keep catalog order. The input
// slice is not modified.
func Filter(phones []catalog.Phone, prefs Preferences, stats catalog.Stats) []Match {
	return filterWith(ActiveAdmission, phones, prefs, stats)
}

func filterWith(policy Admission, phones []catalog.Phone, prefs Preferences, stats catalog.Stats) []Match {
	results := make([]Match, 0, len(phones))

	for _, phone := range phones {
		if !policy.admits(phone, prefs) {
			continue
		}
		sr := Score(phone, prefs, stats)
		results = append(results, Match{
			Phone:           phone,
			MatchPercentage: sr.Score,
			Reasons:         sr.Reasons,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].MatchPercentage > results[j].MatchPercentage
	})

	return results
}

func (a Admission) admits(phone catalog.Phone, prefs Preferences) bool {
	if prefs.hasBrand() && !sameBrand(phone.Brand, *prefs.Brand) {
		return false
	}

	switch a {
	case AdmissionLenient:
		if prefs.MaxPrice != nil && phone.Price > *prefs.MaxPrice*LenientPriceSlack {
			return false
		}
	default:
		if prefs.MinPrice != nil && phone.Price < *prefs.MinPrice {
			return false
		}
		if prefs.MaxPrice != nil && phone.Price > *prefs.MaxPrice {
			return false
		}
	}
	return true
}

// String names the policy.
func (a Admission) String() string {
	if a == AdmissionLenient {
		return "lenient"
	}
	return "strict"
}

// Top returns at most n matches.
func Top(matches []Match, n int) []Match {
	if n < 0 || len(matches) <= n {
		return matches
	}
	return matches[:n]
}
