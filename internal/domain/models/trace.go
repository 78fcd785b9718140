package models

import "time"

// TraceKind labels a scan observation.
type TraceKind string

const (
	TraceSample TraceKind = "sample"
	TraceEntry  TraceKind = "entry"
	TraceExit   TraceKind = "exit"
)

// TraceEvent is emitted by the window finder for every sampled step when a hook is installed.
type TraceEvent struct {
	Kind      TraceKind `json:"kind"`
	Body      string    `json:"body"`
	Target    Sign      `json:"target"`
	Instant   time.Time `json:"instant"`
	Longitude float64   `json:"longitude"`
	Sign      Sign      `json:"sign"`
	Step      int64     `json:"step"`
}

// TraceFunc receives scan observations. It must not block for long.
type TraceFunc func(TraceEvent)
