package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var brands = []string{"Apple", "Google", "One", "OnePlus", "Samsung", "Xiaomi"}

func TestExtractHints(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		brand      string
		maxPrice   float64
		minBattery int
		minMemory  int
		minCamera  int
	}{
		{
			name:     "brand and budget",
			text:     "I want a Samsung phone under 500",
			brand:    "Samsung",
			maxPrice: 500,
		},
		{
			name:  "longest brand wins",
			text:  "is the oneplus nord any good?",
			brand: "OnePlus",
		},
		{
			name:       "first number after each keyword",
			text:       "budget 300 dollars, battery at least 5000 and camera 48",
			maxPrice:   300,
			minBattery: 5000,
			minCamera:  48,
		},
		{
			name:      "gb suffix converts to MB",
			text:      "need ram 8 gb please",
			minMemory: 8192,
		},
		{
			name:       "unit first phrasing",
			text:       "8gb ram, 5000mah battery and a 108mp camera",
			minMemory:  8192,
			minBattery: 5000,
			minCamera:  108,
		},
		{
			name:      "memory already in MB",
			text:      "memory 6144",
			minMemory: 6144,
		},
		{
			name:       "arabic keywords and digits",
			text:       "أريد هاتف سامسونج بسعر أقل من ٣٠٠٠ وبطارية ٥٠٠٠",
			brand:      "Samsung",
			maxPrice:   3000,
			minBattery: 5000,
		},
		{
			name:      "arabic gb suffix",
			text:      "رام ٨ جيجا",
			minMemory: 8192,
		},
		{
			name:     "thousands separator",
			text:     "price below 1,200",
			maxPrice: 1200,
		},
		{
			name: "keyword inside another word is ignored",
			text: "a program with 4 tabs",
		},
		{
			name:     "arabic keyword inside another word is ignored",
			text:     "هاتف للبرامج بسعر 500",
			maxPrice: 500,
		},
		{
			name: "arabic keyword with attached prefix ignored inside a word",
			text: "برامج 8",
		},
		{
			name:      "arabic keyword with definite article",
			text:      "هاتف بالرام 12 والكاميرا 64",
			minMemory: 12288,
			minCamera: 64,
		},
		{
			name: "nothing to extract",
			text: "hello there",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ExtractHints(tt.text, brands)

			if tt.brand == "" {
				assert.Nil(t, p.Brand)
			} else if assert.NotNil(t, p.Brand) {
				assert.Equal(t, tt.brand, *p.Brand)
			}
			assertFloat(t, tt.maxPrice, p.MaxPrice)
			assertInt(t, tt.minBattery, p.MinBattery)
			assertInt(t, tt.minMemory, p.MinMemory)
			assertInt(t, tt.minCamera, p.MinCamera)
			assert.Nil(t, p.MinPrice)
			assert.Nil(t, p.Screen)
		})
	}
}

func TestExtractHints_NeverPanics(t *testing.T) {
	inputs := []string{"", "   ", "٫٫٫", "ram", "price $", ",,,1,", "🙂 battery 🔋 ٥"}
	for _, in := range inputs {
		require.NotPanics(t, func() { ExtractHints(in, brands) }, in)
	}
	require.NotPanics(t, func() { ExtractHints("samsung", nil) })
}

func TestNormalizeDigits(t *testing.T) {
	assert.Equal(t, "1234.5", normalizeDigits("١٢٣٤٫٥"))
	assert.Equal(t, "9876", normalizeDigits("۹۸۷۶"))
	assert.Equal(t, "1200 and 3, 4", normalizeDigits("1,200 and 3, 4"))
}

func assertFloat(t *testing.T, want float64, got *float64) {
	t.Helper()
	if want == 0 {
		assert.Nil(t, got)
		return
	}
	if assert.NotNil(t, got) {
		assert.Equal(t, want, *got)
	}
}

func assertInt(t *testing.T, want int, got *int) {
	t.Helper()
	if want == 0 {
		assert.Nil(t, got)
		return
	}
	if assert.NotNil(t, got) {
		assert.Equal(t, want, *got)
	}
}
