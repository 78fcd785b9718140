package models

import "time"

// EphemerisSample is one tabulated sidereal longitude for a body.
type EphemerisSample struct {
	Body      string    `json:"body"`
	T         time.Time `json:"t"`
	Longitude float64   `json:"lon"`
}
