package models

import (
	"fmt"
	"sort"
	"strings"
)

// BodyCode identifies a body for an ephemeris backend (Swiss Ephemeris numbering).
type BodyCode int

const (
	CodeSun      BodyCode = 0
	CodeMoon     BodyCode = 1
	CodeMercury  BodyCode = 2
	CodeVenus    BodyCode = 3
	CodeMars     BodyCode = 4
	CodeJupiter  BodyCode = 5
	CodeSaturn   BodyCode = 6
	CodeMeanNode BodyCode = 10
)

// Body is a celestial body known to the service.
// Offset is added to the longitude of Code; Ketu is the mean node shifted by 180°.
// MaxSpeed is the largest apparent angular speed in degrees per day and drives step sizing.
type Body struct {
	Name     string   `json:"name"`
	Code     BodyCode `json:"code"`
	Offset   float64  `json:"offset,omitempty"`
	MaxSpeed float64  `json:"max_speed_deg_per_day"`
}

var knownBodies = map[string]Body{
	"Sun":     {Name: "Sun", Code: CodeSun, MaxSpeed: 1.03},
	"Moon":    {Name: "Moon", Code: CodeMoon, MaxSpeed: 15.4},
	"Mercury": {Name: "Mercury", Code: CodeMercury, MaxSpeed: 2.25},
	"Venus":   {Name: "Venus", Code: CodeVenus, MaxSpeed: 1.26},
	"Mars":    {Name: "Mars", Code: CodeMars, MaxSpeed: 0.8},
	"Jupiter": {Name: "Jupiter", Code: CodeJupiter, MaxSpeed: 0.25},
	"Saturn":  {Name: "Saturn", Code: CodeSaturn, MaxSpeed: 0.13},
	"Rahu":    {Name: "Rahu", Code: CodeMeanNode, MaxSpeed: 0.06},
	"Ketu":    {Name: "Ketu", Code: CodeMeanNode, Offset: 180, MaxSpeed: 0.06},
}

// LookupBody finds a known body by name (case-insensitive).
func LookupBody(name string) (Body, error) {
	n := strings.TrimSpace(name)
	if b, ok := knownBodies[n]; ok {
		return b, nil
	}
	for k, b := range knownBodies {
		if strings.EqualFold(k, n) {
			return b, nil
		}
	}
	return Body{}, fmt.Errorf("%w: %q", ErrUnknownBody, name)
}

// BaseBody returns the unshifted body whose table serves b: Rahu for Ketu, b itself otherwise.
func BaseBody(b Body) Body {
	if b.Offset == 0 {
		return b
	}
	for _, k := range KnownBodies() {
		if k.Code == b.Code && k.Offset == 0 {
			return k
		}
	}
	return Body{Name: b.Name, Code: b.Code, MaxSpeed: b.MaxSpeed}
}

// KnownBodies returns the body table sorted by ephemeris code, then name.
func KnownBodies() []Body {
	out := make([]Body, 0, len(knownBodies))
	for _, b := range knownBodies {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return out[i].Name < out[j].Name
	})
	return out
}
