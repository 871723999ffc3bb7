package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"parking-grid/internal/logging"
	"parking-grid/internal/parking"
	"parking-grid/internal/telemetry"
)

const errNoLot = "Parking lot not created. Create parking lot first"

type Handler struct {
	mu          sync.RWMutex
	allocator   *parking.InstrumentedAllocator
	telemetry   *telemetry.Provider
	serviceName string
}

// NewHandler serves allocator, which may be nil until a lot is created over
// the API.
func NewHandler(allocator *parking.InstrumentedAllocator, tp *telemetry.Provider, serviceName string) *Handler {
	return &Handler{
		allocator:   allocator,
		telemetry:   tp,
		serviceName: serviceName,
	}
}

// Allocator returns the lot currently being served.
func (h *Handler) Allocator() *parking.InstrumentedAllocator {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.allocator
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: h.serviceName,
		Meta:    extractMeta(r.Context()),
	})
}

func (h *Handler) CreateParkingLot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var layout parking.Layout
	if err := json.NewDecoder(r.Body).Decode(&layout); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	allocator, err := parking.NewInstrumentedAllocator(layout, h.telemetry)
	if err != nil {
		writeAllocatorError(w, r, err)
		return
	}

	ignored := layout.Ignored()
	for _, c := range ignored {
		logging.ForSpot(ctx, c.X, c.Y).WarnContext(ctx, "layout entry ignored")
	}

	h.mu.Lock()
	if h.allocator != nil {
		h.allocator.Retire(ctx)
	}
	h.allocator = allocator
	h.mu.Unlock()

	logging.Info(ctx, "parking lot created",
		"width", layout.Width,
		"height", layout.Height,
		"entrance", layout.Entrance.String(),
	)

	WriteSuccess(ctx, w, "Parking lot created successfully", LotResponse{
		Width:         layout.Width,
		Height:        layout.Height,
		Entrance:      layout.Entrance,
		TotalParkable: allocator.Summary(ctx).TotalParkable,
		Ignored:       ignored,
	})
}

func (h *Handler) ParkVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	allocator := h.Allocator()
	if allocator == nil {
		WriteError(ctx, w, http.StatusBadRequest, errNoLot)
		return
	}

	req, ok := decodeSpot(w, r)
	if !ok {
		return
	}
	c := parking.Coord{X: *req.X, Y: *req.Y}

	if err := allocator.Park(ctx, c, parking.NewVehicle(req.Registration)); err != nil {
		writeAllocatorError(w, r, err)
		return
	}

	logging.ForSpot(ctx, c.X, c.Y).InfoContext(ctx, "vehicle parked", "registration", req.Registration)

	distance, _ := allocator.Distance(c)
	WriteSuccess(ctx, w, "Vehicle parked successfully", SpotResponse{
		Position:     c,
		Distance:     distance,
		Registration: req.Registration,
	})
}

func (h *Handler) ParkNearest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	allocator := h.Allocator()
	if allocator == nil {
		WriteError(ctx, w, http.StatusBadRequest, errNoLot)
		return
	}

	var req ParkNearestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	c, err := allocator.ParkNearest(ctx, parking.NewVehicle(req.Registration))
	if err != nil {
		writeAllocatorError(w, r, err)
		return
	}

	logging.ForSpot(ctx, c.X, c.Y).InfoContext(ctx, "vehicle parked at nearest spot", "registration", req.Registration)

	distance, _ := allocator.Distance(c)
	path, _ := allocator.PathTo(ctx, c)
	WriteSuccess(ctx, w, "Vehicle parked at nearest spot", SpotResponse{
		Position:     c,
		Distance:     distance,
		Registration: req.Registration,
		Path:         path,
	})
}

func (h *Handler) ReleaseSpot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	allocator := h.Allocator()
	if allocator == nil {
		WriteError(ctx, w, http.StatusBadRequest, errNoLot)
		return
	}

	req, ok := decodeSpot(w, r)
	if !ok {
		return
	}
	c := parking.Coord{X: *req.X, Y: *req.Y}

	v, err := allocator.Release(ctx, c)
	if err != nil {
		writeAllocatorError(w, r, err)
		return
	}

	resp := SpotResponse{Position: c}
	resp.Distance, _ = allocator.Distance(c)
	if v != nil {
		resp.Registration = v.RegistrationNumber
	}
	logging.ForSpot(ctx, c.X, c.Y).InfoContext(ctx, "spot released", "registration", resp.Registration)
	WriteSuccess(ctx, w, "Spot released successfully", resp)
}

func (h *Handler) FindNearest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	allocator := h.Allocator()
	if allocator == nil {
		WriteError(ctx, w, http.StatusBadRequest, errNoLot)
		return
	}

	c, ok := allocator.FindNearest(ctx)
	if !ok {
		WriteError(ctx, w, http.StatusNotFound, "No available spots")
		return
	}

	distance, _ := allocator.Distance(c)
	path, _ := allocator.PathTo(ctx, c)
	WriteSuccess(ctx, w, "Nearest spot found", SpotResponse{
		Position: c,
		Distance: distance,
		Path:     path,
	})
}

func (h *Handler) GetPath(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	allocator := h.Allocator()
	if allocator == nil {
		WriteError(ctx, w, http.StatusBadRequest, errNoLot)
		return
	}

	x, errX := strconv.Atoi(chi.URLParam(r, "x"))
	y, errY := strconv.Atoi(chi.URLParam(r, "y"))
	if errX != nil || errY != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Coordinates must be integers")
		return
	}
	c := parking.Coord{X: x, Y: y}

	steps, err := allocator.PathTo(ctx, c)
	if err != nil {
		writeAllocatorError(w, r, err)
		return
	}

	WriteSuccess(ctx, w, "Path found", PathResponse{
		Target:   c,
		Distance: len(steps) - 1,
		Steps:    steps,
	})
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	allocator := h.Allocator()
	if allocator == nil {
		WriteError(ctx, w, http.StatusBadRequest, errNoLot)
		return
	}

	WriteSuccess(ctx, w, "Status retrieved successfully", StatusResponse{
		StatusCounts: allocator.Summary(ctx),
		Parked:       allocator.Parked(),
	})
}

func (h *Handler) GetMap(w http.ResponseWriter, r *http.Request) {
	allocator := h.Allocator()
	if allocator == nil {
		WriteError(r.Context(), w, http.StatusBadRequest, errNoLot)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, allocator.Render()+"\n")
	if r.URL.Query().Get("legend") == "true" {
		io.WriteString(w, "\nLegend: "+parking.Legend+"\n")
	}
}

func (h *Handler) FindByRegistration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	allocator := h.Allocator()
	if allocator == nil {
		WriteError(ctx, w, http.StatusBadRequest, errNoLot)
		return
	}

	registration := chi.URLParam(r, "registration")
	if registration == "" {
		WriteError(ctx, w, http.StatusBadRequest, "Registration number is required")
		return
	}

	c, err := allocator.FindVehicle(ctx, registration)
	if err != nil {
		writeAllocatorError(w, r, err)
		return
	}

	distance, _ := allocator.Distance(c)
	WriteSuccess(ctx, w, "Vehicle found", SpotResponse{
		Position:     c,
		Distance:     distance,
		Registration: registration,
	})
}

func decodeSpot(w http.ResponseWriter, r *http.Request) (SpotRequest, bool) {
	var req SpotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(r.Context(), w, http.StatusBadRequest, "Invalid request body")
		return req, false
	}
	if req.X == nil || req.Y == nil {
		WriteError(r.Context(), w, http.StatusBadRequest, "x and y are required")
		return req, false
	}
	return req, true
}

func writeAllocatorError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.Error(r.Context(), "allocator operation failed", "error", err)
	}
	WriteError(r.Context(), w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, parking.ErrOutOfBounds), errors.Is(err, parking.ErrInvalidLayout):
		return http.StatusBadRequest
	case errors.Is(err, parking.ErrNotAvailable),
		errors.Is(err, parking.ErrNotParked),
		errors.Is(err, parking.ErrAlreadyParked):
		return http.StatusConflict
	case errors.Is(err, parking.ErrUnreachable),
		errors.Is(err, parking.ErrNoPath),
		errors.Is(err, parking.ErrVehicleNotFound),
		errors.Is(err, parking.ErrLotFull):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
