package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"parking-grid/internal/logging"
)

type Server struct {
	httpServer *http.Server
	handler    *Handler
}

func NewServer(port string, handler *Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + port,
			Handler:      NewRouter(handler),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		handler: handler,
	}
}

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(OTelHTTP(handler.serviceName))
	r.Use(RecoveryMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)

	r.Get("/health", handler.HealthCheck)
	r.Handle("/metrics", promhttp.HandlerFor(NewRegistry(handler), promhttp.HandlerOpts{}))

	r.Route("/api/parking-lot", func(r chi.Router) {
		r.Post("/", handler.CreateParkingLot)
		r.Post("/park", handler.ParkVehicle)
		r.Post("/park-nearest", handler.ParkNearest)
		r.Post("/release", handler.ReleaseSpot)
		r.Get("/nearest", handler.FindNearest)
		r.Get("/path/{x}/{y}", handler.GetPath)
		r.Get("/status", handler.GetStatus)
		r.Get("/map", handler.GetMap)
		r.Get("/find/{registration}", handler.FindByRegistration)
	})

	return r
}

func (s *Server) Start() error {
	logging.Info(context.Background(), "starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info(ctx, "shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) GetAddress() string {
	return fmt.Sprintf("http://localhost%s", s.httpServer.Addr)
}
