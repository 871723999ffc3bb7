package server

import (
	"context"
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"parking-grid/internal/logging"
	"parking-grid/internal/parking"
)

type Meta struct {
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Meta    *Meta  `json:"meta,omitempty"`
}

// SpotRequest addresses one cell. X and Y are pointers so a missing
// coordinate is told apart from zero.
type SpotRequest struct {
	X            *int   `json:"x"`
	Y            *int   `json:"y"`
	Registration string `json:"registration,omitempty"`
}

type ParkNearestRequest struct {
	Registration string `json:"registration,omitempty"`
}

type LotResponse struct {
	Width         int             `json:"width"`
	Height        int             `json:"height"`
	Entrance      parking.Coord   `json:"entrance"`
	TotalParkable int             `json:"total_parkable_spots"`
	Ignored       []parking.Coord `json:"ignored,omitempty"`
}

type SpotResponse struct {
	Position     parking.Coord   `json:"position"`
	Distance     int             `json:"distance"`
	Registration string          `json:"registration,omitempty"`
	Path         []parking.Coord `json:"path,omitempty"`
}

type PathResponse struct {
	Target   parking.Coord   `json:"target"`
	Distance int             `json:"distance"`
	Steps    []parking.Coord `json:"steps"`
}

type StatusResponse struct {
	parking.StatusCounts
	Parked []parking.ParkedSpot `json:"parked"`
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func extractMeta(ctx context.Context) *Meta {
	meta := &Meta{}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		meta.TraceID = span.SpanContext().TraceID().String()
	}

	meta.RequestID = logging.RequestID(ctx)

	return meta
}

func WriteSuccess(ctx context.Context, w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    extractMeta(ctx),
	})
}

func WriteError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{
		Success: false,
		Error:   message,
		Meta:    extractMeta(ctx),
	})
}
