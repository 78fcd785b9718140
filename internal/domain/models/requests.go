package models

// Requests for overlap endpoints. Shared by HTTP, websocket and Kafka transports.

type BodyTarget struct {
	Body        string `json:"body" validate:"required"`
	Sign        string `json:"sign" validate:"required"`
	StepMinutes int    `json:"step_minutes,omitempty" validate:"gte=0,lte=1440"`
}

type OverlapRequest struct {
	ID          string       `json:"id,omitempty"`
	Year        int          `json:"year" validate:"required,gte=1,lte=9999"`
	PaddingDays int          `json:"padding_days" default:"60" validate:"gte=1,lte=3660"`
	Targets     []BodyTarget `json:"targets" validate:"required,min=1,max=16,dive"`
}

type OverlapResponse struct {
	ID     string         `json:"id,omitempty"`
	Result *OverlapResult `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}
