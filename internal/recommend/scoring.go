package recommend

import (
	"math"
	"strings"

	"github.com/spherical-ai/phone-advisor/internal/catalog"
)

// Reason strings attached to scored results.
const (
	ReasonPriceWithinBudget = "Price within budget"
	ReasonStrongBattery     = "Strong battery"
	ReasonGoodMemory        = "Good RAM capacity"
	ReasonCameraMeets       = "Camera meets requirements"
	reasonBrandPrefix       = "Preferred brand: "
)

// ScoreResult is the match score of one phone for one preference set.
type ScoreResult struct {
	Score   float64
	Reasons []string
}

// Score computes a 0-100 match score and the reasons behind it.
func Score(phone catalog.Phone, prefs Preferences, stats catalog.Stats) ScoreResult {
	weights := Weights(prefs)
	reasons := make([]string, 0, len(weights))
	var total float64

	if positiveFloat(prefs.MaxPrice) {
		budget := *prefs.MaxPrice
		total += math.Max(0, (budget-phone.Price)/budget*100) * weights[BucketPrice]
		if phone.Price <= budget {
			reasons = append(reasons, ReasonPriceWithinBudget)
		}
	}

	total += normalized(phone.Battery, stats.MaxBattery) * weights[BucketBattery]
	if meets(phone.Battery, prefs.MinBattery) {
		reasons = append(reasons, ReasonStrongBattery)
	}

	total += normalized(phone.RAM, stats.MaxRAM) * weights[BucketMemory]
	if meets(phone.RAM, prefs.MinMemory) {
		reasons = append(reasons, ReasonGoodMemory)
	}

	total += normalized(phone.CameraMP, stats.MaxCamera) * weights[BucketCamera]
	if meets(phone.CameraMP, prefs.MinCamera) {
		reasons = append(reasons, ReasonCameraMeets)
	}

	if prefs.hasBrand() && sameBrand(phone.Brand, *prefs.Brand) {
		total += 100 * weights[BucketBrand]
		reasons = append(reasons, reasonBrandPrefix+*prefs.Brand)
	}

	return ScoreResult{
		Score:   clamp(round2(total)),
		Reasons: reasons,
	}
}

// normalized returns v as a percentage of max, or 0 when max is 0.
func normalized(v, max int) float64 {
	if max <= 0 {
		return 0
	}
	return float64(v) / float64(max) * 100
}

func meets(v int, min *int) bool {
	return positiveInt(min) && v >= *min
}

func sameBrand(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}
