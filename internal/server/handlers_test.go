package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-grid/internal/logging"
	"parking-grid/internal/parking"
	"parking-grid/internal/telemetry"
)

type testResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Meta    *Meta           `json:"meta"`
}

func newTestRouter(t *testing.T) (http.Handler, *Handler) {
	t.Helper()

	tp := telemetry.NewNoop()
	allocator, err := parking.NewInstrumentedAllocator(parking.Layout{
		Width:     3,
		Height:    3,
		Obstacles: []parking.Coord{{X: 1, Y: 1}},
	}, tp)
	require.NoError(t, err)

	h := NewHandler(allocator, tp, "parking-grid-test")
	return NewRouter(h), h
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) testResponse {
	t.Helper()

	var resp testResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	if data != nil && len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return resp
}

func TestHealthCheck(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(t, router, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "parking-grid-test", resp.Service)
}

func TestRequestIDPropagated(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/parking-lot/status", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
	resp := decode(t, w, nil)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, "abc-123", resp.Meta.RequestID)
}

func TestParkNearest(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(t, router, http.MethodPost, "/api/parking-lot/park-nearest", `{"registration":"51G-123.45"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var spot SpotResponse
	resp := decode(t, w, &spot)
	assert.True(t, resp.Success)
	assert.Equal(t, parking.Coord{X: 0, Y: 1}, spot.Position)
	assert.Equal(t, 1, spot.Distance)
	assert.Equal(t, "51G-123.45", spot.Registration)
	assert.Equal(t, []parking.Coord{{X: 0, Y: 0}, {X: 0, Y: 1}}, spot.Path)

	w = do(t, router, http.MethodPost, "/api/parking-lot/park-nearest", `{"registration":"51G-123.45"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, router, http.MethodPost, "/api/parking-lot/park-nearest", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &spot)
	assert.Equal(t, parking.Coord{X: 1, Y: 0}, spot.Position)
	assert.Empty(t, spot.Registration)

	w = do(t, router, http.MethodPost, "/api/parking-lot/park-nearest", "{")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParkVehicle(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"parks", `{"x":2,"y":2,"registration":"29A-999"}`, http.StatusOK},
		{"occupied", `{"x":2,"y":2}`, http.StatusConflict},
		{"entrance", `{"x":0,"y":0}`, http.StatusConflict},
		{"obstacle", `{"x":1,"y":1}`, http.StatusConflict},
		{"same vehicle", `{"x":2,"y":0,"registration":"29A-999"}`, http.StatusConflict},
		{"out of bounds", `{"x":5,"y":5}`, http.StatusBadRequest},
		{"missing y", `{"x":1}`, http.StatusBadRequest},
		{"malformed", `not json`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/api/parking-lot/park", tt.body)
			assert.Equal(t, tt.status, w.Code)

			resp := decode(t, w, nil)
			assert.Equal(t, tt.status == http.StatusOK, resp.Success)
			if tt.status != http.StatusOK {
				assert.NotEmpty(t, resp.Error)
			}
		})
	}
}

func TestReleaseSpot(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(t, router, http.MethodPost, "/api/parking-lot/release", `{"x":2,"y":1}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, router, http.MethodPost, "/api/parking-lot/park", `{"x":2,"y":1,"registration":"30F-111"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodPost, "/api/parking-lot/release", `{"x":2,"y":1}`)
	require.Equal(t, http.StatusOK, w.Code)

	var spot SpotResponse
	decode(t, w, &spot)
	assert.Equal(t, parking.Coord{X: 2, Y: 1}, spot.Position)
	assert.Equal(t, 2, spot.Distance)
	assert.Equal(t, "30F-111", spot.Registration)

	w = do(t, router, http.MethodPost, "/api/parking-lot/release", `{"x":-1,"y":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFindNearest(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(t, router, http.MethodGet, "/api/parking-lot/nearest", "")
	require.Equal(t, http.StatusOK, w.Code)

	var spot SpotResponse
	decode(t, w, &spot)
	assert.Equal(t, parking.Coord{X: 0, Y: 1}, spot.Position)
	assert.Len(t, spot.Path, 2)

	w = do(t, router, http.MethodPost, "/api/parking-lot", `{"width":2,"height":1}`)
	require.Equal(t, http.StatusOK, w.Code)
	do(t, router, http.MethodPost, "/api/parking-lot/park-nearest", "")

	w = do(t, router, http.MethodGet, "/api/parking-lot/nearest", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodPost, "/api/parking-lot/park-nearest", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decode(t, w, nil).Error, "full")
}

func TestGetPath(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(t, router, http.MethodGet, "/api/parking-lot/path/2/2", "")
	require.Equal(t, http.StatusOK, w.Code)

	var path PathResponse
	decode(t, w, &path)
	assert.Equal(t, parking.Coord{X: 2, Y: 2}, path.Target)
	assert.Equal(t, 3, path.Distance)
	assert.Equal(t, []parking.Coord{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 2}, {X: 2, Y: 2}}, path.Steps)

	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/api/parking-lot/path/a/1", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/api/parking-lot/path/9/9", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/api/parking-lot/path/1/1", "").Code)
}

func TestGetStatus(t *testing.T) {
	router, _ := newTestRouter(t)
	do(t, router, http.MethodPost, "/api/parking-lot/park", `{"x":2,"y":0,"registration":"AB-1"}`)

	w := do(t, router, http.MethodGet, "/api/parking-lot/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var status StatusResponse
	decode(t, w, &status)
	assert.Equal(t, 7, status.TotalParkable)
	assert.Equal(t, 6, status.Empty)
	assert.Equal(t, 1, status.Parked)
	assert.Equal(t, 1, status.Obstacles)
	assert.InDelta(t, 1.0/7.0, status.OccupancyRate, 1e-9)
	require.Len(t, status.Parked, 1)
	assert.Equal(t, parking.Coord{X: 2, Y: 0}, status.Parked[0].Coord)
	require.NotNil(t, status.Parked[0].Vehicle)
	assert.Equal(t, "AB-1", status.Parked[0].Vehicle.RegistrationNumber)
}

func TestGetMap(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(t, router, http.MethodGet, "/api/parking-lot/map", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "S . .\n. X .\n. . .\n", w.Body.String())

	w = do(t, router, http.MethodGet, "/api/parking-lot/map?legend=true", "")
	assert.Contains(t, w.Body.String(), "Legend: "+parking.Legend)
}

func TestFindByRegistration(t *testing.T) {
	router, _ := newTestRouter(t)
	do(t, router, http.MethodPost, "/api/parking-lot/park", `{"x":0,"y":2,"registration":"KA01HH1234"}`)

	w := do(t, router, http.MethodGet, "/api/parking-lot/find/KA01HH1234", "")
	require.Equal(t, http.StatusOK, w.Code)

	var spot SpotResponse
	decode(t, w, &spot)
	assert.Equal(t, parking.Coord{X: 0, Y: 2}, spot.Position)
	assert.Equal(t, "KA01HH1234", spot.Registration)

	w = do(t, router, http.MethodGet, "/api/parking-lot/find/NOPE", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateParkingLot(t *testing.T) {
	router, h := newTestRouter(t)
	do(t, router, http.MethodPost, "/api/parking-lot/park", `{"x":2,"y":2}`)

	w := do(t, router, http.MethodPost, "/api/parking-lot",
		`{"width":4,"height":2,"entrance":{"x":3,"y":1},"obstacles":[{"x":0,"y":0},{"x":9,"y":9}]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var lot LotResponse
	decode(t, w, &lot)
	assert.Equal(t, 4, lot.Width)
	assert.Equal(t, 2, lot.Height)
	assert.Equal(t, parking.Coord{X: 3, Y: 1}, lot.Entrance)
	assert.Equal(t, 6, lot.TotalParkable)
	assert.Equal(t, []parking.Coord{{X: 9, Y: 9}}, lot.Ignored)

	assert.Equal(t, 0, h.Allocator().Summary(t.Context()).Parked)

	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodPost, "/api/parking-lot", `{"width":0,"height":3}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodPost, "/api/parking-lot", `{"width":4294967296,"height":4294967296}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodPost, "/api/parking-lot", `[`).Code)
}

func TestNoLotYet(t *testing.T) {
	h := NewHandler(nil, telemetry.NewNoop(), "parking-grid-test")
	router := NewRouter(h)

	for _, path := range []string{"/api/parking-lot/status", "/api/parking-lot/nearest", "/api/parking-lot/map"} {
		w := do(t, router, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Equal(t, errNoLot, decode(t, w, nil).Error, path)
	}

	w := do(t, router, http.MethodPost, "/api/parking-lot", `{"width":3,"height":3}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/api/parking-lot/status", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	do(t, router, http.MethodPost, "/api/parking-lot/park", `{"x":2,"y":2}`)

	w := do(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "parking_grid_parkable_spots 7")
	assert.Contains(t, body, `parking_grid_spots{state="obstacle"} 1`)
	assert.Contains(t, body, `parking_grid_spots{state="parked"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{parking.ErrOutOfBounds, http.StatusBadRequest},
		{parking.ErrInvalidLayout, http.StatusBadRequest},
		{parking.ErrNotAvailable, http.StatusConflict},
		{parking.ErrNotParked, http.StatusConflict},
		{parking.ErrAlreadyParked, http.StatusConflict},
		{parking.ErrUnreachable, http.StatusNotFound},
		{parking.ErrNoPath, http.StatusNotFound},
		{parking.ErrVehicleNotFound, http.StatusNotFound},
		{parking.ErrLotFull, http.StatusNotFound},
		{fmt.Errorf("park (1, 1): %w", parking.ErrNotAvailable), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decode(t, w, nil).Error)
}

func TestCORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(t, router, http.MethodOptions, "/api/parking-lot/park", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAccessLogCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logging.InitWithWriter(&buf, "parking-grid-test", "production")
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/parking-lot/park", strings.NewReader(`{"x":2,"y":2}`))
	req.Header.Set("X-Request-ID", "trace-me")
	router.ServeHTTP(httptest.NewRecorder(), req)

	logs := buf.String()
	assert.Contains(t, logs, `"msg":"vehicle parked"`)
	assert.Contains(t, logs, `"msg":"http request"`)
	assert.Equal(t, 2, strings.Count(logs, `"request_id":"trace-me"`))
}
