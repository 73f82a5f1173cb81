package chat

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spherical-ai/phone-advisor/internal/recommend"
)

type topic int

const (
	topicPrice topic = iota
	topicBattery
	topicMemory
	topicCamera
)

// topicKeywords are matched case-insensitively as whole words. Arabic
// keywords may carry an attached prefix such as "ال", "ب" or "و".
var topicKeywords = map[topic][]string{
	topicPrice:   {"price", "budget", "under", "below", "less than", "cost", "سعر", "ميزانية", "ميزانيه", "أقل من", "اقل من", "تحت", "حدود"},
	topicBattery: {"battery", "بطارية", "بطاريه"},
	topicMemory:  {"ram", "memory", "رام", "ذاكرة", "ذاكره", "ميموري"},
	topicCamera:  {"camera", "كاميرا", "كاميره", "كاميرة"},
}

var (
	numberRe   = regexp.MustCompile(`\d+(?:\.\d+)?`)
	gbSuffixRe = regexp.MustCompile(`^\s*(?:gb\b|g\b|جيجا|جيغا|غيغا)`)
	ramUnitRe  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:gb|g|جيجا|جيغا|غيغا)\s*(?:of\s+)?(?:ram|memory|رام|ذاكر)`)
	mahRe      = regexp.MustCompile(`(\d+)\s*mah\b`)
	mpRe       = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:mp|megapixels?|ميجا ?بكسل|ميغا ?بكسل)`)
	wordRe     = map[string]*regexp.Regexp{}
)

// arabicPrefix matches the clitics that attach to an Arabic keyword.
const arabicPrefix = `[وف]?(?:بال|لل|ال|ب|ل|ك)?`

func init() {
	for _, kws := range topicKeywords {
		for _, kw := range kws {
			if isASCII(kw) {
				wordRe[kw] = regexp.MustCompile(`\b(` + regexp.QuoteMeta(kw) + `)\b`)
				continue
			}
			wordRe[kw] = regexp.MustCompile(`(?:^|[^\p{L}])` + arabicPrefix + `(` + regexp.QuoteMeta(kw) + `)(?:$|[^\p{L}])`)
		}
	}
}

// ExtractHints builds preferences from free text. It is best effort: any
// field it cannot find is left unset, and it never fails.
//
// The longest catalog brand contained in the text wins. A number carrying an
// explicit unit ("5000mah", "8gb ram", "48mp") is taken first; otherwise the
// first number after the earliest topic keyword is used. A memory value
// followed by "gb" (or "جيجا"), or small enough that it can only mean
// gigabytes, is converted to megabytes.
func ExtractHints(text string, brands []string) recommend.Preferences {
	var p recommend.Preferences
	norm := strings.ToLower(normalizeDigits(text))

	if b := matchBrand(norm, brands); b != "" {
		p.Brand = &b
	}

	if v, _, ok := numberAfter(norm, topicPrice); ok {
		p.MaxPrice = &v
	}

	if m := mahRe.FindStringSubmatch(norm); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			p.MinBattery = &n
		}
	} else if v, _, ok := numberAfter(norm, topicBattery); ok {
		n := int(v)
		p.MinBattery = &n
	}

	if m := ramUnitRe.FindStringSubmatch(norm); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			n := int(f * 1024)
			p.MinMemory = &n
		}
	} else if v, rest, ok := numberAfter(norm, topicMemory); ok {
		if gbSuffixRe.MatchString(rest) || v <= 64 {
			v *= 1024
		}
		n := int(v)
		p.MinMemory = &n
	}

	if m := mpRe.FindStringSubmatch(norm); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			n := int(f)
			p.MinCamera = &n
		}
	} else if v, _, ok := numberAfter(norm, topicCamera); ok {
		n := int(v)
		p.MinCamera = &n
	}

	return p
}

// matchBrand returns the longest brand that occurs in text.
func matchBrand(text string, brands []string) string {
	sorted := make([]string, 0, len(brands))
	for _, b := range brands {
		if strings.TrimSpace(b) != "" {
			sorted = append(sorted, b)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return len([]rune(sorted[i])) > len([]rune(sorted[j]))
	})

	for _, b := range sorted {
		if strings.Contains(text, strings.ToLower(strings.TrimSpace(b))) {
			return b
		}
	}

	for _, alias := range arabicBrandAliases {
		if !strings.Contains(text, alias.name) {
			continue
		}
		for _, b := range sorted {
			if strings.EqualFold(strings.TrimSpace(b), alias.brand) {
				return b
			}
		}
	}
	return ""
}

// arabicBrandAliases maps Arabic spellings to catalog brands, longest first.
var arabicBrandAliases = []struct{ name, brand string }{
	{"موتورولا", "Motorola"},
	{"سامسونج", "Samsung"},
	{"سامسونغ", "Samsung"},
	{"ون بلس", "OnePlus"},
	{"هواوي", "Huawei"},
	{"شاومي", "Xiaomi"},
	{"ريلمي", "Realme"},
	{"ايفون", "Apple"},
	{"آيفون", "Apple"},
	{"نوكيا", "Nokia"},
	{"جوجل", "Google"},
	{"اوبو", "Oppo"},
	{"فيفو", "Vivo"},
	{"سوني", "Sony"},
	{"آبل", "Apple"},
}

// numberAfter finds the earliest keyword of t and parses the first number
// after it. rest is the text following that number.
func numberAfter(text string, t topic) (value float64, rest string, ok bool) {
	start := -1
	for _, kw := range topicKeywords[t] {
		end := keywordEnd(text, kw)
		if end >= 0 && (start < 0 || end < start) {
			start = end
		}
	}
	if start < 0 {
		return 0, "", false
	}

	tail := text[start:]
	loc := numberRe.FindStringIndex(tail)
	if loc == nil {
		return 0, "", false
	}

	v, err := strconv.ParseFloat(tail[loc[0]:loc[1]], 64)
	if err != nil {
		return 0, "", false
	}
	return v, tail[loc[1]:], true
}

// keywordEnd returns the byte offset just past the first occurrence of kw, or -1.
func keywordEnd(text, kw string) int {
	re, ok := wordRe[kw]
	if !ok {
		return -1
	}
	loc := re.FindStringSubmatchIndex(text)
	if loc == nil {
		return -1
	}
	return loc[3]
}

// normalizeDigits maps Arabic-Indic and Persian digits and separators to ASCII
// and drops thousands separators between digits.
func normalizeDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r >= '٠' && r <= '٩':
			b.WriteRune('0' + (r - '٠'))
		case r >= '۰' && r <= '۹':
			b.WriteRune('0' + (r - '۰'))
		case r == '٫':
			b.WriteRune('.')
		case (r == ',' || r == '٬') && between(runes, i):
			// thousands separator
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func between(runes []rune, i int) bool {
	return i > 0 && i+1 < len(runes) && isDigit(runes[i-1]) && isDigit(runes[i+1])
}

func isDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= '٠' && r <= '٩') || (r >= '۰' && r <= '۹')
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}
