package models

import (
	"fmt"
	"math"
	"strings"
)

// SignSize is the width of one zodiacal sign in degrees of ecliptic longitude.
const SignSize = 30.0

// SignCount is the number of signs in the zodiac.
const SignCount = 12

// Sign is a zodiacal sign index in [0,11], Aries first.
type Sign int

const (
	Aries Sign = iota
	Taurus
	Gemini
	Cancer
	Leo
	Virgo
	Libra
	Scorpio
	Sagittarius
	Capricorn
	Aquarius
	Pisces
)

var signNames = [SignCount]string{
	"Aries", "Taurus", "Gemini", "Cancer",
	"Leo", "Virgo", "Libra", "Scorpio",
	"Sagittarius", "Capricorn", "Aquarius", "Pisces",
}

// SignNames returns the ordered sign name table.
func SignNames() []string {
	out := make([]string, SignCount)
	copy(out, signNames[:])
	return out
}

func (s Sign) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Sign(%d)", int(s))
	}
	return signNames[s]
}

// Valid reports whether s is one of the twelve signs.
func (s Sign) Valid() bool { return s >= 0 && s < SignCount }

// StartDegree is the first longitude belonging to s.
func (s Sign) StartDegree() float64 { return float64(s) * SignSize }

// ParseSign resolves a sign name, case-insensitively.
func ParseSign(name string) (Sign, error) {
	n := strings.TrimSpace(name)
	for i, s := range signNames {
		if strings.EqualFold(s, n) {
			return Sign(i), nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrUnknownSign, name)
}

// SignOf classifies a longitude already normalized to [0,360).
// A longitude exactly on a 30° multiple belongs to the higher sign.
func SignOf(longitude float64) Sign {
	idx := int(math.Floor(longitude / SignSize))
	if idx < 0 {
		return Aries
	}
	if idx >= SignCount {
		return Pisces
	}
	return Sign(idx)
}

// NormalizeDegrees folds any angle into [0,360).
func NormalizeDegrees(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	return d
}
