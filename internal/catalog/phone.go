// Package catalog holds the phone records that every recommendation is computed from.
package catalog

import (
	"sort"
	"strings"
)

// Phone is one catalog record. Values are never mutated after load.
type Phone struct {
	Name     string  `json:"name"`
	Brand    string  `json:"brand"`
	Price    float64 `json:"price"`
	Battery  int     `json:"battery"`
	RAM      int     `json:"ram"`
	CameraMP int     `json:"camera_mp"`
	ImageURL *string `json:"image_url"`
	Screen   float64 `json:"screen"`

	// Retrieval-only attributes.
	Model     string `json:"-"`
	StorageGB string `json:"-"`
	OS        string `json:"-"`
}

// Stats are aggregate maxima (and the minimum price) across a catalog.
// All fields are zero for an empty catalog.
type Stats struct {
	MaxPrice   float64 `json:"max_price"`
	MinPrice   float64 `json:"min_price"`
	MaxBattery int     `json:"max_battery"`
	MaxRAM     int     `json:"max_ram"`
	MaxCamera  int     `json:"max_camera"`
}

// PriceRange is the cheapest and most expensive price in the catalog.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Catalog is an immutable set of phones with precomputed stats.
type Catalog struct {
	phones []Phone
	stats  Stats
	brands []string
}

// New builds a catalog from phones. The slice is copied.
func New(phones []Phone) *Catalog {
	owned := make([]Phone, len(phones))
	copy(owned, phones)

	return &Catalog{
		phones: owned,
		stats:  ComputeStats(owned),
		brands: uniqueBrands(owned),
	}
}

// Phones returns a copy of the records in catalog order.
func (c *Catalog) Phones() []Phone {
	out := make([]Phone, len(c.phones))
	copy(out, c.phones)
	return out
}

// Len returns the number of records.
func (c *Catalog) Len() int { return len(c.phones) }

// Stats returns the aggregate statistics.
func (c *Catalog) Stats() Stats { return c.stats }

// Brands returns the sorted set of brand names as they appear in the data.
func (c *Catalog) Brands() []string {
	out := make([]string, len(c.brands))
	copy(out, c.brands)
	return out
}

// PriceRange returns the minimum and maximum price.
func (c *Catalog) PriceRange() PriceRange {
	return PriceRange{Min: c.stats.MinPrice, Max: c.stats.MaxPrice}
}

// ComputeStats derives Stats from phones.
func ComputeStats(phones []Phone) Stats {
	var s Stats
	for i, p := range phones {
		if i == 0 || p.Price < s.MinPrice {
			s.MinPrice = p.Price
		}
		if p.Price > s.MaxPrice {
			s.MaxPrice = p.Price
		}
		if p.Battery > s.MaxBattery {
			s.MaxBattery = p.Battery
		}
		if p.RAM > s.MaxRAM {
			s.MaxRAM = p.RAM
		}
		if p.CameraMP > s.MaxCamera {
			s.MaxCamera = p.CameraMP
		}
	}
	return s
}

func uniqueBrands(phones []Phone) []string {
	seen := make(map[string]struct{}, len(phones))
	brands := make([]string, 0)
	for _, p := range phones {
		b := strings.TrimSpace(p.Brand)
		if b == "" {
			continue
		}
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		brands = append(brands, b)
	}
	sort.Strings(brands)
	return brands
}
