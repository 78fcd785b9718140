package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SiderealLahiri is the only supported ayanamsa.
const SiderealLahiri = "lahiri"

// AstroConfig is process-wide immutable configuration built once at startup.
type AstroConfig struct {
	SiderealMode string
	CivilZone    *time.Location
	ZoneName     string
}

// NewAstroConfig resolves the civil zone from an IANA name or a "+05:30" style offset.
func NewAstroConfig(siderealMode, civilZone string) (*AstroConfig, error) {
	mode := strings.ToLower(strings.TrimSpace(siderealMode))
	if mode == "" {
		mode = SiderealLahiri
	}
	if mode != SiderealLahiri {
		return nil, fmt.Errorf("unsupported sidereal mode %q", siderealMode)
	}
	loc, err := ParseCivilZone(civilZone)
	if err != nil {
		return nil, err
	}
	return &AstroConfig{SiderealMode: mode, CivilZone: loc, ZoneName: civilZone}, nil
}

// ParseCivilZone accepts "UTC", an IANA zone, or a fixed offset such as "+05:30" / "-0400".
func ParseCivilZone(zone string) (*time.Location, error) {
	z := strings.TrimSpace(zone)
	if z == "" || strings.EqualFold(z, "UTC") {
		return time.UTC, nil
	}
	if z[0] == '+' || z[0] == '-' {
		return parseOffset(z)
	}
	loc, err := time.LoadLocation(z)
	if err != nil {
		return nil, fmt.Errorf("invalid civil zone %q: %w", zone, err)
	}
	return loc, nil
}

func parseOffset(z string) (*time.Location, error) {
	sign := 1
	if z[0] == '-' {
		sign = -1
	}
	body := z[1:]
	if len(body) == 5 && body[2] == ':' {
		body = body[:2] + body[3:]
	}
	if len(body) != 4 && len(body) != 2 {
		return nil, fmt.Errorf("invalid civil zone offset %q", z)
	}
	for i := 0; i < len(body); i++ {
		if body[i] < '0' || body[i] > '9' {
			return nil, fmt.Errorf("invalid civil zone offset %q", z)
		}
	}
	hh, _ := strconv.Atoi(body[:2])
	mm := 0
	if len(body) == 4 {
		mm, _ = strconv.Atoi(body[2:])
	}
	if hh > 14 || mm > 59 {
		return nil, fmt.Errorf("invalid civil zone offset %q", z)
	}
	secs := sign * (hh*3600 + mm*60)
	return time.FixedZone("UTC"+z, secs), nil
}
