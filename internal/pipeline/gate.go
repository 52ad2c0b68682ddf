package pipeline

import "apptrack/internal/model"

// Gate is the confidence filter between extraction and persistence.
// Template records carry confidence 1.0 and always pass; AI-fallback
// records are the ones actually filtered.
type Gate struct {
	Threshold float64
}

// Accept reports whether the candidate clears the threshold. Rejected
// candidates are not written and not committed, so they stay eligible
// for reprocessing on a later run.
func (g Gate) Accept(c model.Candidate) bool {
	return c.Confidence >= g.Threshold
}
