package transit

import "AstroOverlap/internal/domain/models"

// Intersect reduces per-body windows to their common interval:
// start = max(entries), end = min(exits). ok is false when start >= end
// or when no windows are given.
func Intersect(windows map[string]models.SignInterval) (models.SignInterval, bool) {
	var out models.SignInterval
	first := true
	for _, w := range windows {
		if first {
			out = w
			first = false
			continue
		}
		if w.Entry.After(out.Entry) {
			out.Entry = w.Entry
		}
		if w.Exit.Before(out.Exit) {
			out.Exit = w.Exit
		}
	}
	if first || !out.Entry.Before(out.Exit) {
		return models.SignInterval{}, false
	}
	return out, true
}
