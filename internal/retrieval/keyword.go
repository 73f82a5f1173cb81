package retrieval

import (
	"context"
	"sort"
	"strings"
	"unicode"
)

// KeywordRetriever ranks documents by shared query terms. It has no notion
// of relevance, so its evidence is unscored and the gate keeps all of it.
// Used when no embedding endpoint is configured.
type KeywordRetriever struct {
	docs  []Document
	terms []map[string]struct{}
}

// NewKeywordRetriever indexes docs.
func NewKeywordRetriever(docs []Document) *KeywordRetriever {
	r := &KeywordRetriever{
		docs:  docs,
		terms: make([]map[string]struct{}, len(docs)),
	}
	for i, d := range docs {
		set := make(map[string]struct{})
		for _, t := range terms(d.Content) {
			set[t] = struct{}{}
		}
		r.terms[i] = set
	}
	return r
}

// Search returns up to k documents sharing at least one term with query.
func (r *KeywordRetriever) Search(_ context.Context, query string, k int) ([]Evidence, error) {
	qterms := uniqueTerms(query)
	if len(qterms) == 0 || k <= 0 {
		return []Evidence{}, nil
	}

	type hit struct {
		idx     int
		matches int
	}
	var hits []hit
	for i, set := range r.terms {
		n := 0
		for _, t := range qterms {
			if _, ok := set[t]; ok {
				n++
			}
		}
		if n > 0 {
			hits = append(hits, hit{idx: i, matches: n})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].matches > hits[j].matches })
	if len(hits) > k {
		hits = hits[:k]
	}

	out := make([]Evidence, len(hits))
	for i, h := range hits {
		d := r.docs[h.idx]
		out[i] = Evidence{Content: d.Content, Metadata: d.Metadata}
	}
	return out, nil
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "with": {}, "and": {}, "or": {}, "of": {},
	"is": {}, "what": {}, "which": {}, "for": {}, "me": {}, "i": {}, "in": {},
	"to": {}, "phone": {}, "phones": {}, "inch": {}, "screen": {}, "battery": {},
	"ram": {}, "rear": {}, "camera": {},
}

func terms(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func uniqueTerms(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range terms(text) {
		if _, stop := stopWords[t]; stop {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

var _ Retriever = (*KeywordRetriever)(nil)
