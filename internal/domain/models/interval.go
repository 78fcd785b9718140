package models

import (
	"fmt"
	"time"
)

// SearchWindow is the bounded, sampled time range scanned for one body.
type SearchWindow struct {
	Start       time.Time
	End         time.Time
	StepMinutes int
}

// Step returns the sampling step as a duration.
func (w SearchWindow) Step() time.Duration {
	return time.Duration(w.StepMinutes) * time.Minute
}

// Steps returns the number of samples the scan would take.
func (w SearchWindow) Steps() int64 {
	if w.StepMinutes <= 0 || w.End.Before(w.Start) {
		return 0
	}
	return int64(w.End.Sub(w.Start)/w.Step()) + 1
}

// Validate enforces start <= end and a positive step.
func (w SearchWindow) Validate() error {
	if w.StepMinutes <= 0 {
		return fmt.Errorf("%w: step_minutes must be > 0, got %d", ErrInvalidWindow, w.StepMinutes)
	}
	if w.End.Before(w.Start) {
		return fmt.Errorf("%w: end %s before start %s", ErrInvalidWindow,
			w.End.Format(time.RFC3339), w.Start.Format(time.RFC3339))
	}
	return nil
}

// YearWindow builds the padded UTC range [Jan 1 - padding, Dec 31 + padding] for a year.
func YearWindow(year, paddingDays, stepMinutes int) SearchWindow {
	pad := time.Duration(paddingDays) * 24 * time.Hour
	return SearchWindow{
		Start:       time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).Add(-pad),
		End:         time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).Add(pad),
		StepMinutes: stepMinutes,
	}
}

// SignInterval is the first complete occupancy of a sign by one body. Entry < Exit.
type SignInterval struct {
	Entry time.Time `json:"entry"`
	Exit  time.Time `json:"exit"`
}

// Duration returns Exit - Entry.
func (i SignInterval) Duration() time.Duration { return i.Exit.Sub(i.Entry) }

// In converts both instants to loc.
func (i SignInterval) In(loc *time.Location) SignInterval {
	return SignInterval{Entry: i.Entry.In(loc), Exit: i.Exit.In(loc)}
}

// OverlapStatus distinguishes the three query outcomes.
type OverlapStatus string

const (
	StatusOverlap          OverlapStatus = "overlap"
	StatusNoOverlap        OverlapStatus = "no_overlap"
	StatusInsufficientData OverlapStatus = "insufficient_data"
)

// BodyWindow is one body's located occupancy, reported alongside the result.
type BodyWindow struct {
	Body        string       `json:"body"`
	Sign        string       `json:"sign"`
	StepMinutes int          `json:"step_minutes"`
	Window      SignInterval `json:"window"`
}

// OverlapResult is the outcome of one overlap query.
// Start/End are set only when Status is StatusOverlap and are in civil time.
type OverlapResult struct {
	Status      OverlapStatus `json:"status"`
	Start       *time.Time    `json:"start,omitempty"`
	End         *time.Time    `json:"end,omitempty"`
	Zone        string        `json:"zone"`
	Year        int           `json:"year"`
	MissingBody string        `json:"missing_body,omitempty"`
	Windows     []BodyWindow  `json:"windows,omitempty"`
}

// Found reports whether a common interval exists.
func (r *OverlapResult) Found() bool { return r != nil && r.Status == StatusOverlap }
