package retrieval

// SelectForGrounding picks the evidence usable as grounding context.
//
// When any item carries a score, only scored items at or above minRelevance
// are kept; unscored items in a mixed list are dropped. When no item carries
// a score, every item is kept. Empty input yields empty output.
func SelectForGrounding(evidence []Evidence, minRelevance float64) []Evidence {
	if len(evidence) == 0 {
		return []Evidence{}
	}

	hasScores := false
	for _, e := range evidence {
		if e.Score != nil {
			hasScores = true
			break
		}
	}

	if !hasScores {
		out := make([]Evidence, len(evidence))
		copy(out, evidence)
		return out
	}

	out := make([]Evidence, 0, len(evidence))
	for _, e := range evidence {
		if e.Score != nil && *e.Score >= minRelevance {
			out = append(out, e)
		}
	}
	return out
}
