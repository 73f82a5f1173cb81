// Package recommend ranks catalog phones against user preferences.
//
// Scoring contract:
//   - Every specified preference bucket (price, battery, memory, camera, brand)
//     receives an equal share of the weight. Screen is accepted as a
//     preference but is never a weight bucket.
//   - Price scores max(0, (max_price - price) / max_price) * 100.
//   - Battery, memory and camera score attr / catalog_max * 100.
//   - Admission is strict: min_price, max_price and brand are hard cutoffs.
package recommend

import "strings"

// Bucket is a scoring dimension eligible for weighting.
type Bucket string

const (
	BucketPrice   Bucket = "price"
	BucketBattery Bucket = "battery"
	BucketMemory  Bucket = "memory"
	BucketCamera  Bucket = "camera"
	BucketBrand   Bucket = "brand"
)

// Preferences is a sparse set of constraints. A nil field is not a constraint.
type Preferences struct {
	Brand      *string  `json:"brand,omitempty"`
	MinPrice   *float64 `json:"min_price,omitempty"`
	MaxPrice   *float64 `json:"max_price,omitempty"`
	MinBattery *int     `json:"min_battery,omitempty"`
	MinMemory  *int     `json:"min_ram,omitempty"`
	MinCamera  *int     `json:"min_camera_mp,omitempty"`
	Screen     *float64 `json:"screen,omitempty"`
}

// WeightMap maps each specified bucket to its share of the total score.
type WeightMap map[Bucket]float64

// Weights returns equal shares for every bucket the preferences specify.
//
// Inputs are sanitized first: a price cap or numeric minimum that is zero or
// negative is treated as absent, and so is a brand that is blank after
// trimming. Scoring uses the same rule, so a sanitized field neither weighs
// nor earns a reason. Admission still applies the price bounds as given.
// No buckets yields an empty map.
func Weights(p Preferences) WeightMap {
	var buckets []Bucket

	if positiveFloat(p.MaxPrice) {
		buckets = append(buckets, BucketPrice)
	}
	if positiveInt(p.MinBattery) {
		buckets = append(buckets, BucketBattery)
	}
	if positiveInt(p.MinMemory) {
		buckets = append(buckets, BucketMemory)
	}
	if positiveInt(p.MinCamera) {
		buckets = append(buckets, BucketCamera)
	}
	if p.hasBrand() {
		buckets = append(buckets, BucketBrand)
	}

	weights := make(WeightMap, len(buckets))
	if len(buckets) == 0 {
		return weights
	}

	share := 1 / float64(len(buckets))
	for _, b := range buckets {
		weights[b] = share
	}
	return weights
}

func (p Preferences) hasBrand() bool {
	return p.Brand != nil && strings.TrimSpace(*p.Brand) != ""
}

func positiveFloat(v *float64) bool { return v != nil && *v > 0 }

func positiveInt(v *int) bool { return v != nil && *v > 0 }
