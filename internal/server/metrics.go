package server

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	spotsDesc = prometheus.NewDesc(
		"parking_grid_spots",
		"Number of cells in the lot by state.",
		[]string{"state"}, nil,
	)
	parkableDesc = prometheus.NewDesc(
		"parking_grid_parkable_spots",
		"Number of reachable cells a vehicle can occupy.",
		nil, nil,
	)
	occupancyDesc = prometheus.NewDesc(
		"parking_grid_occupancy_ratio",
		"Parked spots over parkable spots.",
		nil, nil,
	)
)

// LotCollector exposes the summary of whichever lot the handler is serving
// at scrape time.
type LotCollector struct {
	handler *Handler
}

func NewLotCollector(h *Handler) *LotCollector {
	return &LotCollector{handler: h}
}

func (c *LotCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- spotsDesc
	ch <- parkableDesc
	ch <- occupancyDesc
}

func (c *LotCollector) Collect(ch chan<- prometheus.Metric) {
	allocator := c.handler.Allocator()
	if allocator == nil {
		return
	}

	counts := allocator.Summary(context.Background())

	for state, n := range map[string]int{
		"empty":       counts.Empty,
		"parked":      counts.Parked,
		"obstacle":    counts.Obstacles,
		"path_only":   counts.PathOnly,
		"unreachable": counts.Unreachable,
	} {
		ch <- prometheus.MustNewConstMetric(spotsDesc, prometheus.GaugeValue, float64(n), state)
	}
	ch <- prometheus.MustNewConstMetric(parkableDesc, prometheus.GaugeValue, float64(counts.TotalParkable))
	ch <- prometheus.MustNewConstMetric(occupancyDesc, prometheus.GaugeValue, counts.OccupancyRate)
}

// NewRegistry returns a registry holding the lot collector and the Go
// runtime and process collectors.
func NewRegistry(h *Handler) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		NewLotCollector(h),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
